package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/matching"
	"github.com/school-system/exam-results/internal/metrics"
	"github.com/school-system/exam-results/internal/models"
)

const (
	RankModeExam     = "exam"
	RankModeCombined = "combined"
)

// ResultOptions are the school-independent knobs from config.
type ResultOptions struct {
	PassThreshold float64
	RankCutoff    int
}

type ResultService struct {
	store   Store
	opts    ResultOptions
	metrics *metrics.Metrics
	audit   *AuditService
}

func NewResultService(store Store, opts ResultOptions, m *metrics.Metrics, audit *AuditService) *ResultService {
	return &ResultService{store: store, opts: opts, metrics: m, audit: audit}
}

// RankResult is a student's standing in the class for one exam or a
// combination of exams.
type RankResult struct {
	StudentID  string  `json:"student_id"`
	Mode       string  `json:"mode"`
	Percentage float64 `json:"percentage"`
	Position   int     `json:"position"`
	Rank       int     `json:"rank,omitempty"`
	Ranked     bool    `json:"ranked"`
	ClassSize  int     `json:"class_size"`
}

// ClassRank is one row of a class ranking table.
type ClassRank struct {
	grading.Placement
	Name   string `json:"name"`
	RollNo string `json:"roll_no"`
}

// examData is an exam loaded once for every student of one class.
type examData struct {
	exam     *models.Exam
	subjects []grading.Subject
	entries  []models.MarksEntry
}

func (s *ResultService) policy(ctx context.Context, schoolID uuid.UUID) (grading.Policy, error) {
	logger := logging.FromContext(ctx)

	scale := grading.DefaultScale()
	active, err := s.store.ActiveGradingScale(ctx, schoolID)
	switch {
	case err == nil && len(active.Ranges) > 0:
		scale = active.Scale()
	case err == nil, errors.Is(err, ErrNotFound):
		logger.Debug("school has no grading scale, using default", "school_id", schoolID)
	default:
		return grading.Policy{}, err
	}

	p := grading.Policy{
		Scale:         scale,
		PassThreshold: s.opts.PassThreshold,
		Logger:        logger,
	}
	if s.metrics != nil {
		p.OnLookup = s.metrics.ObserveLookup
	}
	return p, nil
}

func (s *ResultService) observe(kind string) {
	if s.metrics != nil {
		s.metrics.ObserveResult(kind)
	}
}

// ResolveSubject maps a free-text label onto the subjects the exam schedules
// for a class. classID may be uuid.Nil for the exam-wide schedule.
func (s *ResultService) ResolveSubject(ctx context.Context, schoolID, examID, classID uuid.UUID, label string) (matching.Resolution, bool, error) {
	exam, err := s.store.GetExam(ctx, schoolID, examID)
	if err != nil {
		return matching.Resolution{}, false, err
	}
	res, ok := matching.ResolveSubject(label, exam.SubjectsFor(classID))
	return res, ok, nil
}

// MatchStudent finds the roster entry for a spreadsheet-style name and roll.
func (s *ResultService) MatchStudent(ctx context.Context, schoolID, classID uuid.UUID, sectionID, name, roll string) (matching.StudentMatch, bool, error) {
	students, err := s.store.ListStudents(ctx, schoolID, classID, sectionID)
	if err != nil {
		return matching.StudentMatch{}, false, err
	}
	m, ok := matching.MatchStudent(name, roll, toRoster(students))
	return m, ok, nil
}

func (s *ResultService) loadExam(ctx context.Context, schoolID, examID, classID uuid.UUID) (*examData, error) {
	exam, err := s.store.GetExam(ctx, schoolID, examID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListMarksEntries(ctx, schoolID, examID, classID)
	if err != nil {
		return nil, err
	}
	return &examData{
		exam:     exam,
		subjects: grading.OrderSubjects(exam.SubjectsFor(classID), exam.SubjectOrder),
		entries:  entries,
	}, nil
}

// marksFor collects a student's marks keyed by subject. When a subject has
// several entries, one holding a row for the student wins, then one for the
// student's section.
func (d *examData) marksFor(student *models.Student) map[string]grading.Mark {
	id := student.ID.String()
	marks := make(map[string]grading.Mark, len(d.subjects))

	for _, sub := range d.subjects {
		key := sub.Key()
		name := strings.ToUpper(strings.TrimSpace(sub.Name))

		bestScore := -1
		var bestRow *models.MarkRow
		for i := range d.entries {
			e := &d.entries[i]
			if e.SubjectID != key && strings.ToUpper(strings.TrimSpace(e.SubjectName)) != name {
				continue
			}
			score := 0
			row := findRow(e, id)
			if row != nil {
				score += 2
			}
			if e.SectionID == student.SectionID {
				score++
			}
			if score > bestScore {
				bestScore, bestRow = score, row
			}
		}
		if bestRow != nil {
			marks[key] = bestRow.Mark
		}
	}
	return marks
}

func findRow(e *models.MarksEntry, studentID string) *models.MarkRow {
	for i := range e.Marks {
		if e.Marks[i].StudentID == studentID {
			return &e.Marks[i]
		}
	}
	return nil
}

func (d *examData) resultFor(student *models.Student, policy grading.Policy) grading.ExamResult {
	res := grading.ComputeExamResult(d.exam.ID.String(), d.subjects, d.marksFor(student), policy)
	res.ExamName = d.exam.Title()
	return res
}

// ComputeExamResult derives one student's result for one exam.
func (s *ResultService) ComputeExamResult(ctx context.Context, schoolID, studentID, examID uuid.UUID) (*grading.ExamResult, error) {
	student, err := s.store.GetStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	data, err := s.loadExam(ctx, schoolID, examID, student.ClassID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	res := data.resultFor(student, policy)
	s.observe("exam")
	return &res, nil
}

func (s *ResultService) loadExams(ctx context.Context, schoolID, classID uuid.UUID, examIDs []uuid.UUID) ([]*examData, error) {
	if len(examIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one exam is required", ErrInvalidInput)
	}
	exams := make([]*examData, 0, len(examIDs))
	for _, id := range examIDs {
		d, err := s.loadExam(ctx, schoolID, id, classID)
		if err != nil {
			return nil, err
		}
		exams = append(exams, d)
	}
	return exams, nil
}

// ComputeCombinedResult aggregates several exams for one student. An empty
// weightage combines by summed totals.
func (s *ResultService) ComputeCombinedResult(ctx context.Context, schoolID, studentID uuid.UUID, examIDs []uuid.UUID, weights grading.Weightage) (*grading.CombinedResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	student, err := s.store.GetStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	exams, err := s.loadExams(ctx, schoolID, student.ClassID, examIDs)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	res, err := combine(exams, student, weights, policy)
	if err != nil {
		return nil, err
	}
	s.observe("combined")
	return &res, nil
}

func combine(exams []*examData, student *models.Student, weights grading.Weightage, policy grading.Policy) (grading.CombinedResult, error) {
	results := make([]grading.ExamResult, len(exams))
	for i, d := range exams {
		results[i] = d.resultFor(student, policy)
	}
	return grading.Combine(results, weights, policy)
}

// standings computes every rostered student's percentage in roster order,
// over one section when sectionID is set. A single exam ranks by its
// percentage, several by the combined one. Percentages are compared as
// displayed, to two decimals.
func (s *ResultService) standings(ctx context.Context, schoolID, classID uuid.UUID, sectionID string, examIDs []uuid.UUID, weights grading.Weightage) ([]models.Student, []grading.Standing, string, error) {
	if err := weights.Validate(); err != nil {
		return nil, nil, "", err
	}
	exams, err := s.loadExams(ctx, schoolID, classID, examIDs)
	if err != nil {
		return nil, nil, "", err
	}
	roster, err := s.store.ListStudents(ctx, schoolID, classID, sectionID)
	if err != nil {
		return nil, nil, "", err
	}
	policy, err := s.policy(ctx, schoolID)
	if err != nil {
		return nil, nil, "", err
	}
	// Classmates' lookups are not counted as served results.
	policy.OnLookup = nil

	mode := RankModeExam
	if len(exams) > 1 {
		mode = RankModeCombined
	}

	standings := make([]grading.Standing, 0, len(roster))
	for i := range roster {
		st := &roster[i]
		var pct float64
		if mode == RankModeExam {
			pct = exams[0].resultFor(st, policy).Percentage
		} else {
			res, err := combine(exams, st, weights, policy)
			if err != nil {
				return nil, nil, "", err
			}
			pct = res.GrandPercentage
		}
		standings = append(standings, grading.Standing{StudentID: st.ID.String(), Percentage: pct})
	}
	return roster, standings, mode, nil
}

// ComputeRank places a student among the active students of their class, or
// of one section of it when sectionID is set.
func (s *ResultService) ComputeRank(ctx context.Context, schoolID, studentID uuid.UUID, sectionID string, examIDs []uuid.UUID, weights grading.Weightage) (*RankResult, error) {
	student, err := s.store.GetStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	_, standings, mode, err := s.standings(ctx, schoolID, student.ClassID, sectionID, examIDs, weights)
	if err != nil {
		return nil, err
	}

	p, ok := grading.RankOf(student.ID.String(), standings, s.opts.RankCutoff)
	if !ok {
		if sectionID != "" {
			return nil, fmt.Errorf("student %s is not on the active roster of class %s section %s: %w", studentID, student.ClassID, sectionID, ErrNotFound)
		}
		return nil, fmt.Errorf("student %s is not on the active roster of class %s: %w", studentID, student.ClassID, ErrNotFound)
	}
	s.observe("rank")
	return &RankResult{
		StudentID:  p.StudentID,
		Mode:       mode,
		Percentage: p.Percentage,
		Position:   p.Position,
		Rank:       p.Rank,
		Ranked:     p.Ranked(),
		ClassSize:  len(standings),
	}, nil
}

// ClassRanks returns the class, or one section of it, in rank order.
func (s *ResultService) ClassRanks(ctx context.Context, schoolID, classID uuid.UUID, sectionID string, examIDs []uuid.UUID, weights grading.Weightage) ([]ClassRank, error) {
	roster, standings, _, err := s.standings(ctx, schoolID, classID, sectionID, examIDs, weights)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Student, len(roster))
	for i := range roster {
		byID[roster[i].ID.String()] = &roster[i]
	}

	placed := grading.Rank(standings, s.opts.RankCutoff)
	out := make([]ClassRank, len(placed))
	for i, p := range placed {
		out[i] = ClassRank{Placement: p}
		if st, ok := byID[p.StudentID]; ok {
			out[i].Name = st.FullName()
			out[i].RollNo = st.RollNo
		}
	}
	s.observe("rank")
	return out, nil
}

// GradingScale returns the school's active scale.
func (s *ResultService) GradingScale(ctx context.Context, schoolID uuid.UUID) (*models.GradingScale, error) {
	scale, err := s.store.ActiveGradingScale(ctx, schoolID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoGradingScale
	}
	return scale, err
}

// SaveGradingScale validates ranges and stores them as the school's default
// scale, replacing the current default in place.
func (s *ResultService) SaveGradingScale(ctx context.Context, schoolID uuid.UUID, name string, ranges []grading.Range, actor Actor) (*models.GradingScale, error) {
	if strings.TrimSpace(name) == "" {
		name = grading.DefaultScale().Name
	}
	candidate := grading.Scale{Name: name, Ranges: ranges}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var before models.JSONB
	scale := &models.GradingScale{SchoolID: schoolID}
	current, err := s.store.ActiveGradingScale(ctx, schoolID)
	switch {
	case err == nil:
		scale = current
		before = models.JSONB{"name": current.Name, "rule_version": current.RuleVersion, "ranges": current.Ranges}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	scale.Name = name
	scale.IsDefault = true
	scale.Ranges = ranges
	scale.RuleVersion = candidate.Fingerprint()
	if err := s.store.SaveGradingScale(ctx, scale); err != nil {
		return nil, fmt.Errorf("failed to save grading scale: %w", err)
	}

	logging.FromContext(ctx).Info("grading scale saved",
		"school_id", schoolID, "scale_id", scale.ID, "rule_version", scale.RuleVersion)
	s.audit.Log(ctx, schoolID, actor, AuditActionScaleSaved, "grading_scale", scale.ID, before,
		models.JSONB{"name": scale.Name, "rule_version": scale.RuleVersion, "ranges": scale.Ranges})
	return scale, nil
}
