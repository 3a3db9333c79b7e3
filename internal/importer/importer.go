package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/matching"
)

const fallbackMaxMarks = 100

var (
	ErrConfirmationRequired = errors.New("unmatched students require confirmation")
	ErrInvalidSheet         = errors.New("spreadsheet failed validation")
)

// MarkRow is one student's marks for one subject.
type MarkRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	RollNo      string `json:"roll_no"`
	grading.Mark
}

// SubjectMarks is everything written for one subject in one import.
type SubjectMarks struct {
	Subject  grading.Subject `json:"subject"`
	Column   string          `json:"column"`
	MaxMarks float64         `json:"max_marks"`
	Rows     []MarkRow       `json:"rows"`
}

// Sink persists one subject's marks. Implementations must replace any earlier
// marks for the same subject rather than add to them.
type Sink interface {
	SaveSubjectMarks(ctx context.Context, marks SubjectMarks) error
}

type UnresolvedSubject struct {
	Header string `json:"header"`
}

type UnmatchedStudent struct {
	Row  int    `json:"row"`
	Name string `json:"name"`
	Roll string `json:"roll"`
}

// InvalidCell is a subject cell that could not be read as marks or a grade.
// The student's mark for that subject is not written.
type InvalidCell struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

type SubjectFailure struct {
	Subject string `json:"subject"`
	Err     string `json:"error"`
}

// Report describes a preview or a completed import. Success counts subjects
// that were actually written.
type Report struct {
	Success           int                 `json:"success"`
	Subjects          []string            `json:"subjects"`
	MatchedStudents   int                 `json:"matched_students"`
	UnmatchedStudents []UnmatchedStudent  `json:"unmatched_students"`
	UnmatchedSubjects []UnresolvedSubject `json:"unmatched_subjects"`
	InvalidCells      []InvalidCell       `json:"invalid_cells"`
	Failures          []SubjectFailure    `json:"failures"`
	Validation        Validation          `json:"validation"`
	Columns           Columns             `json:"columns"`
}

// Request is one sheet to import against an exam's schedule and a roster.
type Request struct {
	Sheet            *Sheet
	Subjects         []grading.Subject
	Roster           []matching.Student
	ConfirmUnmatched bool
}

// Plan is the outcome of the read-only phase.
type Plan struct {
	Report Report
	Marks  []SubjectMarks
}

type Importer struct {
	sink   Sink
	logger *slog.Logger
}

func New(sink Sink, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{sink: sink, logger: logger}
}

// Preview classifies columns, resolves subjects, matches students and parses
// every cell without writing anything.
func (im *Importer) Preview(req Request) (*Plan, error) {
	if req.Sheet == nil {
		return nil, ErrEmptySheet
	}

	cols := ClassifyColumns(req.Sheet.Headers)
	plan := &Plan{Report: Report{Columns: cols}}
	plan.Report.Validation = Validate(req.Sheet, cols, req.Roster)

	resolved, unresolved := matching.ResolveColumns(cols.Subjects, req.Subjects)
	for _, h := range unresolved {
		plan.Report.UnmatchedSubjects = append(plan.Report.UnmatchedSubjects, UnresolvedSubject{Header: h})
	}

	// One column per subject; later columns resolving to an already claimed
	// subject are ignored with a warning.
	claimed := make(map[string]string)
	bySubject := make(map[string]*SubjectMarks)
	var order []string
	for _, col := range resolved {
		key := col.Subject.Key()
		if first, ok := claimed[key]; ok {
			plan.Report.Validation.Warnings = append(plan.Report.Validation.Warnings,
				fmt.Sprintf("Column %q also maps to %s (already read from %q), ignored", col.Header, col.Subject.Name, first))
			continue
		}
		claimed[key] = col.Header
		bySubject[key] = &SubjectMarks{Subject: col.Subject, Column: col.Header, MaxMarks: entryMaxMarks(col.Subject)}
		order = append(order, key)
	}

	for _, row := range req.Sheet.Rows {
		name := row.Get(cols.Name)
		roll := row.Get(cols.Roll)
		if name == "" && roll == "" {
			continue
		}

		m, ok := matching.MatchStudent(name, roll, req.Roster)
		if !ok {
			plan.Report.UnmatchedStudents = append(plan.Report.UnmatchedStudents,
				UnmatchedStudent{Row: row.Number, Name: name, Roll: roll})
			continue
		}
		plan.Report.MatchedStudents++

		for _, key := range order {
			sm := bySubject[key]
			raw := row.Get(sm.Column)
			cell := ParseCell(raw)
			if cell.Blank {
				continue
			}
			if cell.Invalid {
				plan.Report.InvalidCells = append(plan.Report.InvalidCells,
					InvalidCell{Row: row.Number, Column: sm.Column, Value: raw})
				continue
			}
			sm.Rows = append(sm.Rows, MarkRow{
				StudentID:   m.Student.ID,
				StudentName: m.Student.Name,
				RollNo:      m.Student.RollNo,
				Mark:        markFromCell(cell, sm.Subject),
			})
		}
	}

	for _, key := range order {
		sm := bySubject[key]
		if len(sm.Rows) == 0 {
			continue
		}
		plan.Marks = append(plan.Marks, *sm)
		plan.Report.Subjects = append(plan.Report.Subjects, sm.Subject.Name)
	}
	return plan, nil
}

// Import previews the request and writes each subject through the sink. It
// refuses to write while students are unmatched unless the caller confirmed.
// A failed subject is reported and the next one is still attempted.
func (im *Importer) Import(ctx context.Context, req Request) (*Report, error) {
	plan, err := im.Preview(req)
	if err != nil {
		return nil, err
	}
	report := &plan.Report

	if !report.Validation.Valid() {
		return report, ErrInvalidSheet
	}
	if len(report.UnmatchedStudents) > 0 && !req.ConfirmUnmatched {
		return report, ErrConfirmationRequired
	}

	for _, sm := range plan.Marks {
		if err := ctx.Err(); err != nil {
			im.logger.Warn("marks import interrupted", "completed", report.Success, "remaining", len(plan.Marks)-report.Success-len(report.Failures))
			return report, fmt.Errorf("import interrupted: %w", err)
		}

		if err := im.sink.SaveSubjectMarks(ctx, sm); err != nil {
			im.logger.Error("failed to save subject marks", "subject", sm.Subject.Name, "rows", len(sm.Rows), "error", err)
			report.Failures = append(report.Failures, SubjectFailure{Subject: sm.Subject.Name, Err: err.Error()})
			continue
		}
		report.Success++
	}

	im.logger.Info("marks imported",
		"subjects", report.Success,
		"failed", len(report.Failures),
		"students", report.MatchedStudents,
		"unmatched_students", len(report.UnmatchedStudents),
		"unresolved_columns", len(report.UnmatchedSubjects),
		"invalid_cells", len(report.InvalidCells))
	return report, nil
}

func markFromCell(c Cell, sub grading.Subject) grading.Mark {
	if sub.IsGradeOnly() {
		return grading.Mark{Grade: c.Grade, IsAbsent: c.IsAbsent, IsNA: c.IsNA}
	}
	return grading.Mark{
		TheoryMarks:    c.Theory,
		PracticalMarks: c.Practical,
		ObtainedMarks:  c.Obtained(),
		Grade:          c.Grade,
		IsAbsent:       c.IsAbsent,
		IsNA:           c.IsNA,
	}
}

func entryMaxMarks(sub grading.Subject) float64 {
	if total := sub.TotalMax(); total > 0 {
		return total
	}
	return fallbackMaxMarks
}
