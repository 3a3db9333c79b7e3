package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/models"
)

// fakeStore is an in-memory Store, SetupStore and AuditStore.
type fakeStore struct {
	schools  []models.School
	exams    map[uuid.UUID]*models.Exam
	students []models.Student
	entries  []*models.MarksEntry
	scales   map[uuid.UUID]*models.GradingScale
	audit    []models.AuditLog

	upserts    int
	failUpsert string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exams:  make(map[uuid.UUID]*models.Exam),
		scales: make(map[uuid.UUID]*models.GradingScale),
	}
}

func (f *fakeStore) GetExam(_ context.Context, schoolID, examID uuid.UUID) (*models.Exam, error) {
	e, ok := f.exams[examID]
	if !ok || e.SchoolID != schoolID {
		return nil, fmt.Errorf("exam %s: %w", examID, models.ErrNotFound)
	}
	return e, nil
}

func (f *fakeStore) GetStudent(_ context.Context, schoolID, studentID uuid.UUID) (*models.Student, error) {
	for i := range f.students {
		if f.students[i].ID == studentID && f.students[i].SchoolID == schoolID {
			s := f.students[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("student %s: %w", studentID, models.ErrNotFound)
}

func (f *fakeStore) ListStudents(_ context.Context, schoolID, classID uuid.UUID, sectionID string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.students {
		if s.SchoolID != schoolID || s.ClassID != classID || s.Status != models.StudentStatusActive {
			continue
		}
		if sectionID != "" && s.SectionID != sectionID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListMarksEntries(_ context.Context, schoolID, examID, classID uuid.UUID) ([]models.MarksEntry, error) {
	var out []models.MarksEntry
	for _, e := range f.entries {
		if e.SchoolID != schoolID || e.ExamID != examID || e.ClassID != classID {
			continue
		}
		if e.Status == models.MarksStatusDraft {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) ActiveGradingScale(_ context.Context, schoolID uuid.UUID) (*models.GradingScale, error) {
	s, ok := f.scales[schoolID]
	if !ok {
		return nil, fmt.Errorf("grading scale for school %s: %w", schoolID, models.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SaveGradingScale(_ context.Context, scale *models.GradingScale) error {
	if scale.ID == uuid.Nil {
		scale.ID = uuid.New()
	}
	cp := *scale
	f.scales[scale.SchoolID] = &cp
	return nil
}

func (f *fakeStore) UpsertMarksEntry(_ context.Context, entry *models.MarksEntry) error {
	if entry.SubjectName == f.failUpsert {
		return errors.New("deadlock detected")
	}
	f.upserts++
	for _, e := range f.entries {
		if e.SchoolID == entry.SchoolID && e.ExamID == entry.ExamID && e.ClassID == entry.ClassID &&
			e.SectionID == entry.SectionID && e.SubjectID == entry.SubjectID {
			e.SubjectName = entry.SubjectName
			e.MaxMarks = entry.MaxMarks
			e.Status = entry.Status
			e.Marks = entry.Marks
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	cp := *entry
	cp.ID = uuid.New()
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeStore) ListSchools(context.Context) ([]models.School, error) {
	return f.schools, nil
}

func (f *fakeStore) RecordAudit(_ context.Context, entry *models.AuditLog) error {
	f.audit = append(f.audit, *entry)
	return nil
}

func (f *fakeStore) RecentAudit(_ context.Context, schoolID uuid.UUID, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for i := len(f.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if f.audit[i].SchoolID == schoolID {
			out = append(out, f.audit[i])
		}
	}
	return out, nil
}

// fixture is one school with a class of three students and two exams.
type fixture struct {
	store    *fakeStore
	school   uuid.UUID
	class    uuid.UUID
	ali      uuid.UUID
	sara     uuid.UUID
	bilal    uuid.UUID
	midterm  uuid.UUID
	final    uuid.UUID
	subjects []grading.Subject
}

func newFixture() *fixture {
	f := &fixture{
		store:   newFakeStore(),
		school:  uuid.New(),
		class:   uuid.New(),
		ali:     uuid.New(),
		sara:    uuid.New(),
		bilal:   uuid.New(),
		midterm: uuid.New(),
		final:   uuid.New(),
		subjects: []grading.Subject{
			{ID: "math", Name: "MATHEMATICS", AssessmentType: grading.AssessmentMarks, MaxMarks: 100},
			{ID: "eng", Name: "ENGLISH", CombinedAliases: []string{"URDU"}, AssessmentType: grading.AssessmentMarks, MaxMarks: 100},
			{ID: "art", Name: "ART", AssessmentType: grading.AssessmentGrade},
		},
	}

	f.store.schools = []models.School{{BaseModel: models.BaseModel{ID: f.school}, Name: "Green Valley"}}
	student := func(id uuid.UUID, first, last, roll, section string) models.Student {
		return models.Student{
			BaseModel: models.BaseModel{ID: id},
			SchoolID:  f.school,
			ClassID:   f.class,
			SectionID: section,
			RollNo:    roll,
			FirstName: first,
			LastName:  last,
			Status:    models.StudentStatusActive,
		}
	}
	f.store.students = []models.Student{
		student(f.ali, "Ali", "Khan", "1", "A"),
		student(f.sara, "Sara", "Ahmed", "2", "A"),
		student(f.bilal, "Bilal", "Raza", "3", "B"),
	}

	for _, id := range []uuid.UUID{f.midterm, f.final} {
		f.store.exams[id] = &models.Exam{
			BaseModel: models.BaseModel{ID: id},
			SchoolID:  f.school,
			Name:      "Exam " + id.String()[:4],
			Subjects:  f.subjects,
		}
	}
	f.store.exams[f.midterm].DisplayName = "Midterm"
	f.store.exams[f.final].DisplayName = "Final"
	return f
}

func (f *fixture) addEntry(examID uuid.UUID, section, subjectID, subjectName string, rows ...models.MarkRow) {
	f.store.entries = append(f.store.entries, &models.MarksEntry{
		ID:          uuid.New(),
		SchoolID:    f.school,
		ExamID:      examID,
		ClassID:     f.class,
		SectionID:   section,
		SubjectID:   subjectID,
		SubjectName: subjectName,
		Status:      models.MarksStatusSubmitted,
		Marks:       rows,
	})
}

func row(id uuid.UUID, m grading.Mark) models.MarkRow {
	return models.MarkRow{StudentID: id.String(), Mark: m}
}

func obtained(v float64) grading.Mark {
	return grading.Mark{ObtainedMarks: v}
}

// withMidtermMarks records the midterm:
// Ali 80 + AB + grade A = 40%, Sara 95 + 85 = 90%, Bilal 40 + 30 = 35%.
func (f *fixture) withMidtermMarks() *fixture {
	f.addEntry(f.midterm, "A", "math", "MATHEMATICS", row(f.ali, obtained(80)), row(f.sara, obtained(95)))
	f.addEntry(f.midterm, "B", "math", "MATHEMATICS", row(f.bilal, obtained(40)))
	f.addEntry(f.midterm, "A", "eng", "ENGLISH", row(f.ali, grading.Mark{IsAbsent: true}), row(f.sara, obtained(85)))
	f.addEntry(f.midterm, "B", "eng", "ENGLISH", row(f.bilal, obtained(30)))
	f.addEntry(f.midterm, "A", "art", "ART", row(f.ali, grading.Mark{Grade: "A"}))
	return f
}

// withFinalMarks records the final: Ali scores 100 in both marked subjects.
func (f *fixture) withFinalMarks() *fixture {
	f.addEntry(f.final, "A", "math", "MATHEMATICS", row(f.ali, obtained(100)), row(f.sara, obtained(50)))
	f.addEntry(f.final, "A", "eng", "ENGLISH", row(f.ali, obtained(100)), row(f.sara, obtained(50)))
	return f
}
