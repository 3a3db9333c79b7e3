package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/matching"
	"github.com/school-system/exam-results/internal/models"
)

var (
	ErrNotFound       = models.ErrNotFound
	ErrNoGradingScale = errors.New("no grading scale configured")
	ErrInvalidInput   = errors.New("invalid input")
)

// Store is the persistence the result and import services need.
// database.Store implements it.
type Store interface {
	GetExam(ctx context.Context, schoolID, examID uuid.UUID) (*models.Exam, error)
	GetStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*models.Student, error)
	ListStudents(ctx context.Context, schoolID, classID uuid.UUID, sectionID string) ([]models.Student, error)
	ListMarksEntries(ctx context.Context, schoolID, examID, classID uuid.UUID) ([]models.MarksEntry, error)
	ActiveGradingScale(ctx context.Context, schoolID uuid.UUID) (*models.GradingScale, error)
	SaveGradingScale(ctx context.Context, scale *models.GradingScale) error
	UpsertMarksEntry(ctx context.Context, entry *models.MarksEntry) error
}

// AuditStore persists audit records.
type AuditStore interface {
	RecordAudit(ctx context.Context, entry *models.AuditLog) error
	RecentAudit(ctx context.Context, schoolID uuid.UUID, limit int) ([]models.AuditLog, error)
}

func toRoster(students []models.Student) []matching.Student {
	roster := make([]matching.Student, len(students))
	for i, s := range students {
		roster[i] = matching.Student{
			ID:        s.ID.String(),
			Name:      s.FullName(),
			RollNo:    s.RollNo,
			ClassID:   s.ClassID.String(),
			SectionID: s.SectionID,
		}
	}
	return roster
}
