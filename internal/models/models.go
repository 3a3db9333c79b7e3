package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/school-system/exam-results/internal/grading"
)

// ErrNotFound is returned by stores when a requested record does not exist
// for the given school.
var ErrNotFound = errors.New("record not found")

// JSONB custom type for free-form JSON fields
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(data, j)
}

// Base model with UUID
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// School represents an educational institution
type School struct {
	BaseModel
	Name   string `gorm:"type:varchar(255);not null" json:"name"`
	Config JSONB  `gorm:"type:json" json:"config"`
}

// Class represents a class/grade with its sections
type Class struct {
	BaseModel
	SchoolID uuid.UUID                   `gorm:"type:char(36);not null;index" json:"school_id"`
	Name     string                      `gorm:"type:varchar(100);not null" json:"name"`
	Sections datatypes.JSONSlice[string] `gorm:"type:json" json:"sections"`
}

const StudentStatusActive = "active"

// Student represents an enrolled student
type Student struct {
	BaseModel
	SchoolID    uuid.UUID `gorm:"type:char(36);not null;index:idx_student_school_class" json:"school_id"`
	ClassID     uuid.UUID `gorm:"type:char(36);not null;index:idx_student_school_class" json:"class_id"`
	SectionID   string    `gorm:"type:varchar(50)" json:"section_id"`
	AdmissionNo string    `gorm:"type:varchar(50)" json:"admission_no"`
	RollNo      string    `gorm:"type:varchar(20)" json:"roll_no"`
	FirstName   string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName    string    `gorm:"type:varchar(100)" json:"last_name"`
	Status      string    `gorm:"type:varchar(20);default:'active'" json:"status"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ClassRoutine overrides an exam's subject schedule for one class.
type ClassRoutine struct {
	ClassID  string            `json:"class_id"`
	Subjects []grading.Subject `json:"subjects"`
}

const (
	ExamStatusScheduled = "SCHEDULED"
	ExamStatusCompleted = "COMPLETED"
)

// Exam is an exam definition with its subject schedule
type Exam struct {
	BaseModel
	SchoolID       uuid.UUID                            `gorm:"type:char(36);not null;index" json:"school_id"`
	AcademicYearID *uuid.UUID                           `gorm:"type:char(36);index" json:"academic_year_id,omitempty"`
	Name           string                               `gorm:"type:varchar(255);not null" json:"name"`
	DisplayName    string                               `gorm:"type:varchar(255)" json:"display_name"`
	Status         string                               `gorm:"type:varchar(20);default:'SCHEDULED'" json:"status"`
	Subjects       datatypes.JSONSlice[grading.Subject] `gorm:"type:json" json:"subjects"`
	ClassRoutines  datatypes.JSONSlice[ClassRoutine]    `gorm:"type:json" json:"class_routines"`
	SubjectOrder   datatypes.JSONSlice[string]          `gorm:"type:json" json:"subject_order"`
}

// SubjectsFor returns the class routine's schedule when the class has a
// non-empty one, else the exam-wide schedule.
func (e *Exam) SubjectsFor(classID uuid.UUID) []grading.Subject {
	id := classID.String()
	for _, r := range e.ClassRoutines {
		if r.ClassID == id && len(r.Subjects) > 0 {
			return r.Subjects
		}
	}
	return e.Subjects
}

func (e *Exam) Title() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

const (
	MarksStatusDraft     = "DRAFT"
	MarksStatusSubmitted = "SUBMITTED"
	MarksStatusApproved  = "APPROVED"
)

// MarkRow is one student's marks inside a MarksEntry
type MarkRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	RollNo      string `json:"roll_no"`
	grading.Mark
}

// MarksEntry holds every student's marks for one subject of one exam in one
// class section. There is at most one per (school, exam, class, section,
// subject); writes go through an upsert on that tuple.
type MarksEntry struct {
	ID          uuid.UUID                    `gorm:"type:char(36);primaryKey" json:"id"`
	SchoolID    uuid.UUID                    `gorm:"type:char(36);not null;uniqueIndex:idx_marks_entry_tuple,priority:1" json:"school_id"`
	ExamID      uuid.UUID                    `gorm:"type:char(36);not null;uniqueIndex:idx_marks_entry_tuple,priority:2" json:"exam_id"`
	ClassID     uuid.UUID                    `gorm:"type:char(36);not null;uniqueIndex:idx_marks_entry_tuple,priority:3" json:"class_id"`
	SectionID   string                       `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_marks_entry_tuple,priority:4" json:"section_id"`
	SubjectID   string                       `gorm:"type:varchar(100);not null;uniqueIndex:idx_marks_entry_tuple,priority:5" json:"subject_id"`
	SubjectName string                       `gorm:"type:varchar(255)" json:"subject_name"`
	MaxMarks    float64                      `gorm:"type:decimal(6,2)" json:"max_marks"`
	Status      string                       `gorm:"type:varchar(20);not null;index" json:"status"`
	Marks       datatypes.JSONSlice[MarkRow] `gorm:"type:json" json:"marks"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

func (m *MarksEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// GradingScale stores a school's percentage-to-grade ranges
type GradingScale struct {
	BaseModel
	SchoolID    uuid.UUID                          `gorm:"type:char(36);not null;index" json:"school_id"`
	Name        string                             `gorm:"type:varchar(100);not null" json:"name"`
	IsDefault   bool                               `gorm:"default:false" json:"is_default"`
	Ranges      datatypes.JSONSlice[grading.Range] `gorm:"type:json" json:"ranges"`
	RuleVersion string                             `gorm:"type:varchar(64)" json:"rule_version"`
}

func (g *GradingScale) Scale() grading.Scale {
	return grading.Scale{Name: g.Name, Ranges: g.Ranges}
}

// AuditLog tracks result-affecting changes
type AuditLog struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	SchoolID     uuid.UUID `gorm:"type:char(36);index" json:"school_id"`
	Actor        string    `gorm:"type:varchar(255)" json:"actor"`
	Action       string    `gorm:"type:varchar(50);not null" json:"action"`
	ResourceType string    `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   uuid.UUID `gorm:"type:char(36);index" json:"resource_id"`
	Before       JSONB     `gorm:"type:json" json:"before"`
	After        JSONB     `gorm:"type:json" json:"after"`
	Timestamp    time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	IP           string    `gorm:"type:varchar(45)" json:"ip"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
