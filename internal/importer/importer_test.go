package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/matching"
)

// memorySink keeps the latest marks per subject, like the upserting store.
type memorySink struct {
	saved  map[string]SubjectMarks
	writes int
	failOn string
}

func newMemorySink() *memorySink {
	return &memorySink{saved: make(map[string]SubjectMarks)}
}

func (s *memorySink) SaveSubjectMarks(_ context.Context, sm SubjectMarks) error {
	if sm.Subject.Name == s.failOn {
		return errors.New("connection reset")
	}
	s.writes++
	s.saved[sm.Subject.Key()] = sm
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func examSubjects() []grading.Subject {
	return []grading.Subject{
		{ID: "math", Name: "MATH", AssessmentType: grading.AssessmentMarks, MaxMarks: 100},
		{ID: "eng", Name: "ENGLISH", CombinedAliases: []string{"URDU"}, AssessmentType: grading.AssessmentMarks, TheoryMax: 75, PracticalMax: 25},
		{ID: "draw", Name: "DRAWING", AssessmentType: grading.AssessmentGrade},
		{ID: "gk", Name: "GK", AssessmentType: grading.AssessmentMarks},
	}
}

func classRoster() []matching.Student {
	return []matching.Student{
		{ID: "s1", Name: "Ali Khan", RollNo: "1"},
		{ID: "s2", Name: "Sara Ahmed", RollNo: "2"},
		{ID: "s3", Name: "Bilal Raza", RollNo: "3"},
	}
}

func mustSheet(t *testing.T, csv string) *Sheet {
	t.Helper()
	sheet, err := ReadSheet(strings.NewReader(csv), FormatCSV, 0)
	require.NoError(t, err)
	return sheet
}

const fullSheet = `ROLL,STUDENT NAME,MATH,URDU,DRAWING,GK,PHYSICS,TOTAL %,RESULT
1,Ali Khan,80,60 15 B,A,9,50,70,PASS
#2,Sara Ahmed,AB,NA,B+,,40,,
3,Raza Bilal,45,70,AB,7,,,
`

func TestPreview(t *testing.T) {
	im := New(newMemorySink(), quietLogger())

	plan, err := im.Preview(Request{Sheet: mustSheet(t, fullSheet), Subjects: examSubjects(), Roster: classRoster()})
	require.NoError(t, err)

	r := plan.Report
	assert.Equal(t, 3, r.MatchedStudents)
	assert.Empty(t, r.UnmatchedStudents)
	assert.Equal(t, []UnresolvedSubject{{Header: "PHYSICS"}}, r.UnmatchedSubjects)
	assert.Equal(t, []string{"MATH", "ENGLISH", "DRAWING", "GK"}, r.Subjects)
	assert.Equal(t, 0, r.Success)

	require.Len(t, plan.Marks, 4)

	math := plan.Marks[0]
	assert.Equal(t, 100.0, math.MaxMarks)
	require.Len(t, math.Rows, 3)
	assert.True(t, math.Rows[1].IsAbsent)
	assert.Equal(t, "s2", math.Rows[1].StudentID)

	eng := plan.Marks[1]
	assert.Equal(t, "URDU", eng.Column)
	assert.Equal(t, 100.0, eng.MaxMarks)
	assert.Equal(t, 75.0, eng.Rows[0].ObtainedMarks)
	assert.Equal(t, 15.0, *eng.Rows[0].PracticalMarks)
	assert.True(t, eng.Rows[1].IsNA)

	drawing := plan.Marks[2]
	assert.Equal(t, "A", drawing.Rows[0].Grade)
	assert.Nil(t, drawing.Rows[0].TheoryMarks)
	assert.True(t, drawing.Rows[2].IsAbsent)

	gk := plan.Marks[3]
	assert.Equal(t, 100.0, gk.MaxMarks, "no configured maximum falls back to 100")
	assert.Len(t, gk.Rows, 2, "blank cells are skipped")
}

func TestImport_WritesEverySubject(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())

	report, err := im.Import(context.Background(), Request{Sheet: mustSheet(t, fullSheet), Subjects: examSubjects(), Roster: classRoster()})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Success)
	assert.Empty(t, report.Failures)
	assert.Len(t, sink.saved, 4)
}

func TestImport_ReimportReplaces(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())
	req := Request{Subjects: examSubjects(), Roster: classRoster()}

	req.Sheet = mustSheet(t, "ROLL,NAME,MATH\n1,Ali Khan,50\n2,Sara Ahmed,60\n")
	_, err := im.Import(context.Background(), req)
	require.NoError(t, err)

	req.Sheet = mustSheet(t, "ROLL,NAME,MATH\n1,Ali Khan,55\n2,Sara Ahmed,65\n")
	_, err = im.Import(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, sink.saved, 1)
	rows := sink.saved["math"].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, 55.0, rows[0].ObtainedMarks)
	assert.Equal(t, 65.0, rows[1].ObtainedMarks)
}

func TestImport_UnmatchedNeedsConfirmation(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())
	sheet := mustSheet(t, "ROLL,NAME,MATH\n1,Ali Khan,50\n9,New Kid,60\n")

	report, err := im.Import(context.Background(), Request{Sheet: sheet, Subjects: examSubjects(), Roster: classRoster()})
	require.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, []UnmatchedStudent{{Row: 3, Name: "New Kid", Roll: "9"}}, report.UnmatchedStudents)
	assert.Zero(t, sink.writes)

	report, err = im.Import(context.Background(), Request{Sheet: sheet, Subjects: examSubjects(), Roster: classRoster(), ConfirmUnmatched: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.Len(t, sink.saved["math"].Rows, 1)
}

func TestImport_ContinuesPastFailedSubject(t *testing.T) {
	sink := newMemorySink()
	sink.failOn = "MATH"
	im := New(sink, quietLogger())

	report, err := im.Import(context.Background(), Request{Sheet: mustSheet(t, fullSheet), Subjects: examSubjects(), Roster: classRoster()})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Success)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "MATH", report.Failures[0].Subject)
	assert.Contains(t, report.Failures[0].Err, "connection reset")
}

func TestImport_InvalidSheet(t *testing.T) {
	im := New(newMemorySink(), quietLogger())

	report, err := im.Import(context.Background(), Request{
		Sheet:    mustSheet(t, "ROLL NO,MATH\n1,50\n"),
		Subjects: examSubjects(),
		Roster:   classRoster(),
	})
	require.ErrorIs(t, err, ErrInvalidSheet)
	assert.Contains(t, report.Validation.Errors, "Missing required columns (Roll and Name)")
}

func TestImport_Cancelled(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := im.Import(ctx, Request{Sheet: mustSheet(t, fullSheet), Subjects: examSubjects(), Roster: classRoster()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Success)
	assert.Zero(t, sink.writes)
}

func TestValidate(t *testing.T) {
	sheet := mustSheet(t, "ROLL,NAME,MATH\n1,Ali Khan,50\n,Sara Ahmed,60\n7,,10\n42,Ghost,1\n")
	v := Validate(sheet, ClassifyColumns(sheet.Headers), classRoster())

	assert.True(t, v.Valid())
	assert.Empty(t, v.Errors)
	assert.Equal(t, []string{
		"Row 3: Roll number is missing",
		"Row 4: Student name is missing",
		"Row 4: Student with Roll No 7 not found",
		"Row 5: Student with Roll No 42 not found",
	}, v.Warnings)
	assert.Equal(t, 2, v.ValidCount)
	assert.Equal(t, 4, v.TotalCount)
}

func TestImport_RowProblemsDoNotBlockOtherRows(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())

	report, err := im.Import(context.Background(), Request{
		Sheet:            mustSheet(t, "ROLL,NAME,MATH\n1,Ali Khan,80\n2,Sara Ahmed,70\n3,,60\n,,\n"),
		Subjects:         examSubjects(),
		Roster:           classRoster(),
		ConfirmUnmatched: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 3, report.MatchedStudents)
	assert.Contains(t, report.Validation.Warnings, "Row 4: Student name is missing")

	rows := sink.saved["math"].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "s3", rows[2].StudentID)
	assert.Equal(t, 60.0, rows[2].ObtainedMarks)
}

func TestImport_InvalidCellsAreReported(t *testing.T) {
	sink := newMemorySink()
	im := New(sink, quietLogger())

	report, err := im.Import(context.Background(), Request{
		Sheet:    mustSheet(t, "ROLL,NAME,MATH,GK\n1,Ali Khan,8O,9\n2,Sara Ahmed,INF,nan\n3,Bilal Raza,45,\n"),
		Subjects: examSubjects(),
		Roster:   classRoster(),
	})
	require.NoError(t, err)
	assert.Equal(t, []InvalidCell{
		{Row: 2, Column: "MATH", Value: "8O"},
		{Row: 3, Column: "MATH", Value: "INF"},
		{Row: 3, Column: "GK", Value: "nan"},
	}, report.InvalidCells)

	math := sink.saved["math"].Rows
	require.Len(t, math, 1)
	assert.Equal(t, "s3", math[0].StudentID)
	gk := sink.saved["gk"].Rows
	require.Len(t, gk, 1)
	assert.Equal(t, "s1", gk[0].StudentID)
}
