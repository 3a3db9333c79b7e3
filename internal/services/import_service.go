package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/importer"
	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/metrics"
	"github.com/school-system/exam-results/internal/models"
)

// ImportTarget is the exam, class and section a sheet is imported into.
type ImportTarget struct {
	SchoolID  uuid.UUID
	ExamID    uuid.UUID
	ClassID   uuid.UUID
	SectionID string
}

// ImportInput is an uploaded sheet plus where it goes.
type ImportInput struct {
	ImportTarget
	Filename         string
	Data             io.Reader
	ConfirmUnmatched bool
	Actor            Actor
}

type ImportService struct {
	store            Store
	audit            *AuditService
	metrics          *metrics.Metrics
	headerSearchRows int
}

func NewImportService(store Store, audit *AuditService, m *metrics.Metrics, headerSearchRows int) *ImportService {
	if headerSearchRows <= 0 {
		headerSearchRows = importer.DefaultHeaderSearchRows
	}
	return &ImportService{store: store, audit: audit, metrics: m, headerSearchRows: headerSearchRows}
}

// entrySink writes one subject's marks as the MarksEntry of an import target.
type entrySink struct {
	store  Store
	target ImportTarget
}

func (s entrySink) SaveSubjectMarks(ctx context.Context, sm importer.SubjectMarks) error {
	rows := make([]models.MarkRow, len(sm.Rows))
	for i, r := range sm.Rows {
		rows[i] = models.MarkRow{
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			RollNo:      r.RollNo,
			Mark:        r.Mark,
		}
	}
	return s.store.UpsertMarksEntry(ctx, &models.MarksEntry{
		SchoolID:    s.target.SchoolID,
		ExamID:      s.target.ExamID,
		ClassID:     s.target.ClassID,
		SectionID:   s.target.SectionID,
		SubjectID:   sm.Subject.Key(),
		SubjectName: sm.Subject.Name,
		MaxMarks:    sm.MaxMarks,
		Status:      models.MarksStatusSubmitted,
		Marks:       rows,
	})
}

func (s *ImportService) request(ctx context.Context, in ImportInput) (importer.Request, error) {
	format, err := importer.DetectFormat(in.Filename)
	if err != nil {
		return importer.Request{}, err
	}
	exam, err := s.store.GetExam(ctx, in.SchoolID, in.ExamID)
	if err != nil {
		return importer.Request{}, err
	}
	students, err := s.store.ListStudents(ctx, in.SchoolID, in.ClassID, in.SectionID)
	if err != nil {
		return importer.Request{}, err
	}
	sheet, err := importer.ReadSheet(in.Data, format, s.headerSearchRows)
	if err != nil {
		return importer.Request{}, fmt.Errorf("failed to read %s: %w", in.Filename, err)
	}
	return importer.Request{
		Sheet:            sheet,
		Subjects:         exam.SubjectsFor(in.ClassID),
		Roster:           toRoster(students),
		ConfirmUnmatched: in.ConfirmUnmatched,
	}, nil
}

func (s *ImportService) newImporter(ctx context.Context, target ImportTarget) *importer.Importer {
	logger := logging.WithFields(ctx, "exam_id", target.ExamID, "class_id", target.ClassID, "section_id", target.SectionID)
	return importer.New(entrySink{store: s.store, target: target}, logger)
}

// Preview reports what an import of the sheet would write without writing.
func (s *ImportService) Preview(ctx context.Context, in ImportInput) (*importer.Report, error) {
	req, err := s.request(ctx, in)
	if err != nil {
		return nil, err
	}
	plan, err := s.newImporter(ctx, in.ImportTarget).Preview(req)
	if err != nil {
		return nil, err
	}
	return &plan.Report, nil
}

// Import writes the sheet's marks. The returned report is non-nil whenever
// the sheet could be read, including when the import was refused.
func (s *ImportService) Import(ctx context.Context, in ImportInput) (*importer.Report, error) {
	req, err := s.request(ctx, in)
	if err != nil {
		return nil, err
	}

	report, err := s.newImporter(ctx, in.ImportTarget).Import(ctx, req)
	if report == nil || report.Success+len(report.Failures) == 0 {
		return report, err
	}

	if s.metrics != nil {
		s.metrics.ObserveImport(report)
	}
	s.audit.Log(ctx, in.SchoolID, in.Actor, AuditActionImport, "exam", in.ExamID, nil, models.JSONB{
		"file":               in.Filename,
		"class_id":           in.ClassID.String(),
		"section_id":         in.SectionID,
		"subjects":           report.Subjects,
		"success":            report.Success,
		"failed":             len(report.Failures),
		"unmatched_students": len(report.UnmatchedStudents),
	})
	return report, err
}

// Template writes the marks template for a class and returns a file name
// for it.
func (s *ImportService) Template(ctx context.Context, target ImportTarget, w io.Writer) (string, error) {
	exam, err := s.store.GetExam(ctx, target.SchoolID, target.ExamID)
	if err != nil {
		return "", err
	}
	students, err := s.store.ListStudents(ctx, target.SchoolID, target.ClassID, target.SectionID)
	if err != nil {
		return "", err
	}
	if err := importer.WriteTemplate(w, exam.SubjectsFor(target.ClassID), toRoster(students)); err != nil {
		return "", err
	}
	return templateFilename(exam.Title(), target.SectionID), nil
}

func templateFilename(exam, section string) string {
	name := exam
	if section != "" {
		name += "_" + section
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "marks_template.xlsx"
	}
	return string(out) + "_marks.xlsx"
}
