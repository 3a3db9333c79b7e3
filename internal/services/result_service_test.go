package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/matching"
	"github.com/school-system/exam-results/internal/metrics"
	"github.com/school-system/exam-results/internal/models"
)

func newResultService(f *fixture, m *metrics.Metrics) *ResultService {
	return NewResultService(f.store, ResultOptions{PassThreshold: 33, RankCutoff: 10}, m, NewAuditService(f.store))
}

func TestComputeExamResult(t *testing.T) {
	f := newFixture().withMidtermMarks()
	m := metrics.New(nil)
	svc := newResultService(f, m)

	res, err := svc.ComputeExamResult(context.Background(), f.school, f.ali, f.midterm)
	require.NoError(t, err)

	assert.Equal(t, "Midterm", res.ExamName)
	assert.Equal(t, []string{"ENGLISH", "MATHEMATICS", "ART"}, res.Order)
	assert.Equal(t, 80.0, res.TotalObtained)
	assert.Equal(t, 200.0, res.TotalMax, "absent subject still counts its maximum")
	assert.Equal(t, 40.0, res.Percentage)
	assert.Equal(t, "E", res.Grade)
	assert.Equal(t, grading.StatusPass, res.Status)
	assert.Equal(t, grading.DefaultScale().Fingerprint(), res.ScaleHash)

	assert.True(t, res.Subjects["ENGLISH"].IsAbsent)
	assert.Equal(t, "A", res.Subjects["ART"].Grade)
	assert.True(t, res.Subjects["ART"].IsGradeOnly)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsComputed.WithLabelValues("exam")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GradingLookups.WithLabelValues("rounded")))
}

func TestComputeExamResult_CustomOrder(t *testing.T) {
	f := newFixture().withMidtermMarks()
	f.store.exams[f.midterm].SubjectOrder = []string{"Mathematics"}

	res, err := newResultService(f, nil).ComputeExamResult(context.Background(), f.school, f.ali, f.midterm)
	require.NoError(t, err)
	assert.Equal(t, []string{"MATHEMATICS", "ENGLISH", "ART"}, res.Order)
}

func TestComputeExamResult_ClassRoutine(t *testing.T) {
	f := newFixture().withMidtermMarks()
	f.store.exams[f.midterm].ClassRoutines = []models.ClassRoutine{
		{ClassID: f.class.String(), Subjects: f.subjects[:1]},
	}

	res, err := newResultService(f, nil).ComputeExamResult(context.Background(), f.school, f.ali, f.midterm)
	require.NoError(t, err)
	assert.Equal(t, []string{"MATHEMATICS"}, res.Order)
	assert.Equal(t, 80.0, res.Percentage)
}

func TestComputeExamResult_PrefersEntryForStudentSection(t *testing.T) {
	f := newFixture().withMidtermMarks()
	// A legacy entry without a section also lists Bilal.
	f.addEntry(f.midterm, "", "math", "MATHEMATICS", row(f.bilal, obtained(90)))

	res, err := newResultService(f, nil).ComputeExamResult(context.Background(), f.school, f.bilal, f.midterm)
	require.NoError(t, err)
	assert.Equal(t, 40.0, res.Subjects["MATHEMATICS"].Obtained.Value)
}

func TestComputeExamResult_SchoolScale(t *testing.T) {
	f := newFixture().withMidtermMarks()
	f.store.scales[f.school] = &models.GradingScale{
		SchoolID: f.school,
		Name:     "Pass/Fail",
		Ranges: []grading.Range{
			{Min: 40, Max: 100, Grade: "P", Remark: "Pass"},
			{Min: 0, Max: 39.99, Grade: "R", Remark: "Repeat"},
		},
	}

	res, err := newResultService(f, nil).ComputeExamResult(context.Background(), f.school, f.ali, f.midterm)
	require.NoError(t, err)
	assert.Equal(t, "P", res.Grade)
	assert.Equal(t, "Pass", res.Remark)
}

func TestComputeExamResult_NotFound(t *testing.T) {
	f := newFixture()
	svc := newResultService(f, nil)

	_, err := svc.ComputeExamResult(context.Background(), f.school, uuid.New(), f.midterm)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ComputeExamResult(context.Background(), uuid.New(), f.ali, f.midterm)
	assert.ErrorIs(t, err, ErrNotFound, "another school's student is not visible")

	_, err = svc.ComputeExamResult(context.Background(), f.school, f.ali, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComputeCombinedResult(t *testing.T) {
	f := newFixture().withMidtermMarks().withFinalMarks()
	svc := newResultService(f, nil)
	ctx := context.Background()
	exams := []uuid.UUID{f.midterm, f.final}

	t.Run("Summed Totals", func(t *testing.T) {
		res, err := svc.ComputeCombinedResult(ctx, f.school, f.ali, exams, nil)
		require.NoError(t, err)
		assert.False(t, res.Weighted)
		assert.Equal(t, 280.0, res.GrandTotalObtained)
		assert.Equal(t, 400.0, res.GrandTotalMax)
		assert.Equal(t, 70.0, res.GrandPercentage)
		assert.Equal(t, "B", res.GrandGrade)
		require.Len(t, res.PerExam, 2)
		assert.Equal(t, "Midterm", res.PerExam[0].ExamName)
	})

	t.Run("Weighted", func(t *testing.T) {
		weights := grading.Weightage{f.midterm.String(): 80, f.final.String(): 20}
		res, err := svc.ComputeCombinedResult(ctx, f.school, f.ali, exams, weights)
		require.NoError(t, err)
		assert.True(t, res.Weighted)
		assert.InDelta(t, 52.0, res.GrandPercentage, 0.001)
		assert.Equal(t, "C", res.GrandGrade)
	})

	t.Run("Weightage Over 100", func(t *testing.T) {
		weights := grading.Weightage{f.midterm.String(): 70, f.final.String(): 40}
		_, err := svc.ComputeCombinedResult(ctx, f.school, f.ali, exams, weights)
		assert.ErrorIs(t, err, grading.ErrWeightageExceeded)
	})

	t.Run("No Exams", func(t *testing.T) {
		_, err := svc.ComputeCombinedResult(ctx, f.school, f.ali, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestComputeRank(t *testing.T) {
	f := newFixture().withMidtermMarks().withFinalMarks()
	ctx := context.Background()

	t.Run("Single Exam", func(t *testing.T) {
		res, err := newResultService(f, nil).ComputeRank(ctx, f.school, f.ali, "", []uuid.UUID{f.midterm}, nil)
		require.NoError(t, err)
		assert.Equal(t, RankModeExam, res.Mode)
		assert.Equal(t, 2, res.Position)
		assert.Equal(t, 2, res.Rank)
		assert.True(t, res.Ranked)
		assert.Equal(t, 3, res.ClassSize)
	})

	t.Run("Combined Tie Keeps Roster Order", func(t *testing.T) {
		svc := newResultService(f, nil)
		exams := []uuid.UUID{f.midterm, f.final}

		ali, err := svc.ComputeRank(ctx, f.school, f.ali, "", exams, nil)
		require.NoError(t, err)
		sara, err := svc.ComputeRank(ctx, f.school, f.sara, "", exams, nil)
		require.NoError(t, err)

		assert.Equal(t, RankModeCombined, ali.Mode)
		assert.Equal(t, ali.Percentage, sara.Percentage)
		assert.Equal(t, 1, ali.Rank)
		assert.Equal(t, 2, sara.Rank)
	})

	t.Run("Outside Cutoff", func(t *testing.T) {
		svc := NewResultService(f.store, ResultOptions{RankCutoff: 1}, nil, nil)
		res, err := svc.ComputeRank(ctx, f.school, f.ali, "", []uuid.UUID{f.midterm}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Position)
		assert.False(t, res.Ranked)
		assert.Zero(t, res.Rank)
	})

	t.Run("Within Section", func(t *testing.T) {
		svc := newResultService(f, nil)

		bilal, err := svc.ComputeRank(ctx, f.school, f.bilal, "B", []uuid.UUID{f.midterm}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, bilal.Rank)
		assert.Equal(t, 1, bilal.ClassSize)

		ali, err := svc.ComputeRank(ctx, f.school, f.ali, "A", []uuid.UUID{f.midterm}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, ali.Rank)
		assert.Equal(t, 2, ali.ClassSize)
	})

	t.Run("Student Outside Section", func(t *testing.T) {
		_, err := newResultService(f, nil).ComputeRank(ctx, f.school, f.bilal, "A", []uuid.UUID{f.midterm}, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClassRanks(t *testing.T) {
	f := newFixture().withMidtermMarks()

	ranks, err := newResultService(f, nil).ClassRanks(context.Background(), f.school, f.class, "", []uuid.UUID{f.midterm}, nil)
	require.NoError(t, err)
	require.Len(t, ranks, 3)

	assert.Equal(t, "Sara Ahmed", ranks[0].Name)
	assert.Equal(t, 90.0, ranks[0].Percentage)
	assert.Equal(t, "Ali Khan", ranks[1].Name)
	assert.Equal(t, "Bilal Raza", ranks[2].Name)
	assert.Equal(t, "3", ranks[2].RollNo)
	assert.Equal(t, 3, ranks[2].Rank)

	section, err := newResultService(f, nil).ClassRanks(context.Background(), f.school, f.class, "B", []uuid.UUID{f.midterm}, nil)
	require.NoError(t, err)
	require.Len(t, section, 1)
	assert.Equal(t, "Bilal Raza", section[0].Name)
	assert.Equal(t, 1, section[0].Rank)
}

func TestResolveSubject(t *testing.T) {
	f := newFixture()
	svc := newResultService(f, nil)

	res, ok, err := svc.ResolveSubject(context.Background(), f.school, f.midterm, f.class, "Urdu")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ENGLISH", res.Subject.Name)
	assert.Equal(t, matching.RuleCombinedAlias, res.Rule)

	_, ok, err = svc.ResolveSubject(context.Background(), f.school, f.midterm, f.class, "Physics")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchStudent(t *testing.T) {
	f := newFixture()
	svc := newResultService(f, nil)
	ctx := context.Background()

	m, ok, err := svc.MatchStudent(ctx, f.school, f.class, "", "Khan Ali", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.ali.String(), m.Student.ID)
	assert.Equal(t, matching.ByName, m.By)

	_, ok, err = svc.MatchStudent(ctx, f.school, f.class, "A", "Bilal Raza", "3")
	require.NoError(t, err)
	assert.False(t, ok, "Bilal is in section B")
}

func TestSaveGradingScale(t *testing.T) {
	f := newFixture()
	svc := newResultService(f, nil)
	ctx := context.Background()
	actor := Actor{Name: "admin@school", IP: "10.0.0.1"}

	_, err := svc.GradingScale(ctx, f.school)
	assert.ErrorIs(t, err, ErrNoGradingScale)

	_, err = svc.SaveGradingScale(ctx, f.school, "Broken", []grading.Range{{Min: 50, Max: 10, Grade: "X"}}, actor)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.store.audit)

	def := grading.DefaultScale()
	saved, err := svc.SaveGradingScale(ctx, f.school, "", def.Ranges, actor)
	require.NoError(t, err)
	assert.Equal(t, def.Name, saved.Name)
	assert.True(t, saved.IsDefault)
	assert.Equal(t, def.Fingerprint(), saved.RuleVersion)

	ranges := append([]grading.Range(nil), def.Ranges...)
	ranges[0].Remark = "Outstanding"
	ranges[0].Grade = "O"
	again, err := svc.SaveGradingScale(ctx, f.school, "Revised", ranges, actor)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID, "saving replaces the default scale in place")
	assert.NotEqual(t, saved.RuleVersion, again.RuleVersion)

	current, err := svc.GradingScale(ctx, f.school)
	require.NoError(t, err)
	assert.Equal(t, "Revised", current.Name)

	require.Len(t, f.store.audit, 2)
	assert.Equal(t, AuditActionScaleSaved, f.store.audit[1].Action)
	assert.Equal(t, "admin@school", f.store.audit[1].Actor)
	assert.NotNil(t, f.store.audit[1].Before)
	assert.Nil(t, f.store.audit[0].Before)
}
