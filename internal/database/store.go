package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/school-system/exam-results/internal/models"
)

// Store reads and writes exam data for the result services.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

func (s *Store) GetExam(ctx context.Context, schoolID, examID uuid.UUID) (*models.Exam, error) {
	var exam models.Exam
	if err := s.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", examID, schoolID).
		First(&exam).Error; err != nil {
		return nil, notFound(err, "exam", examID)
	}
	return &exam, nil
}

// ListStudents returns the active roster of a class, optionally narrowed to a
// section, in enrollment order.
func (s *Store) ListStudents(ctx context.Context, schoolID, classID uuid.UUID, sectionID string) ([]models.Student, error) {
	q := s.db.WithContext(ctx).
		Where("school_id = ? AND class_id = ? AND status = ?", schoolID, classID, models.StudentStatusActive)
	if sectionID != "" {
		q = q.Where("section_id = ?", sectionID)
	}

	var students []models.Student
	if err := q.Order("created_at ASC, id ASC").Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *Store) GetStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", studentID, schoolID).
		First(&student).Error; err != nil {
		return nil, notFound(err, "student", studentID)
	}
	return &student, nil
}

// ListMarksEntries returns submitted and approved entries for a class in an exam.
func (s *Store) ListMarksEntries(ctx context.Context, schoolID, examID, classID uuid.UUID) ([]models.MarksEntry, error) {
	var entries []models.MarksEntry
	if err := s.db.WithContext(ctx).
		Where("school_id = ? AND exam_id = ? AND class_id = ?", schoolID, examID, classID).
		Where("status IN ?", []string{models.MarksStatusSubmitted, models.MarksStatusApproved}).
		Order("updated_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list marks entries: %w", err)
	}
	return entries, nil
}

// ActiveGradingScale prefers the school's default scale, then its most
// recently updated one.
func (s *Store) ActiveGradingScale(ctx context.Context, schoolID uuid.UUID) (*models.GradingScale, error) {
	var scale models.GradingScale
	if err := s.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("is_default DESC, updated_at DESC").
		First(&scale).Error; err != nil {
		return nil, notFound(err, "grading scale for school", schoolID)
	}
	return &scale, nil
}

// SaveGradingScale stores a scale; a default scale clears the flag on the
// school's other scales.
func (s *Store) SaveGradingScale(ctx context.Context, scale *models.GradingScale) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if scale.IsDefault {
			q := tx.Model(&models.GradingScale{}).Where("school_id = ? AND is_default = ?", scale.SchoolID, true)
			if scale.ID != uuid.Nil {
				q = q.Where("id <> ?", scale.ID)
			}
			if err := q.Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(scale).Error
	})
}

// UpsertMarksEntry inserts the entry or replaces the marks of the existing
// entry for the same school, exam, class, section and subject.
func (s *Store) UpsertMarksEntry(ctx context.Context, entry *models.MarksEntry) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "school_id"},
			{Name: "exam_id"},
			{Name: "class_id"},
			{Name: "section_id"},
			{Name: "subject_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"subject_name", "max_marks", "status", "marks", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert marks for %s: %w", entry.SubjectName, err)
	}
	return nil
}

func (s *Store) ListSchools(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&schools).Error; err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	return schools, nil
}

func (s *Store) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) RecentAudit(ctx context.Context, schoolID uuid.UUID, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
