package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AssessmentType says whether a subject is marked numerically or by letter grade.
type AssessmentType string

const (
	AssessmentMarks AssessmentType = "MARKS"
	AssessmentGrade AssessmentType = "GRADE"
)

const (
	LabelAbsent        = "AB"
	LabelNotApplicable = "NA"
)

// Subject is a subject as scheduled for an exam.
type Subject struct {
	ID              string         `json:"id,omitempty"`
	Name            string         `json:"name"`
	CombinedAliases []string       `json:"combined_aliases,omitempty"`
	AssessmentType  AssessmentType `json:"assessment_type"`
	TheoryMax       float64        `json:"theory_max"`
	PracticalMax    float64        `json:"practical_max"`
	MaxMarks        float64        `json:"max_marks"`
}

func (s Subject) IsGradeOnly() bool {
	return s.AssessmentType == AssessmentGrade
}

// IsSplit reports whether the subject has a configured theory/practical split.
func (s Subject) IsSplit() bool {
	return s.TheoryMax > 0 || s.PracticalMax > 0
}

// TotalMax is the split sum when a split is configured, else MaxMarks.
func (s Subject) TotalMax() float64 {
	if s.IsSplit() {
		return s.TheoryMax + s.PracticalMax
	}
	return s.MaxMarks
}

// Key is the subject's stable identity: its ID, or its canonical name when the
// schedule carries no ID.
func (s Subject) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return strings.ToUpper(strings.TrimSpace(s.Name))
}

// DisplayName renders the subject with its aliases, e.g. "ENGLISH / URDU".
func (s Subject) DisplayName() string {
	name := strings.TrimSpace(s.Name)
	for _, alias := range s.CombinedAliases {
		if a := strings.TrimSpace(alias); a != "" {
			name += " / " + a
		}
	}
	return name
}

// Mark is one student's stored row for one subject.
type Mark struct {
	TheoryMarks    *float64 `json:"theory_marks,omitempty"`
	PracticalMarks *float64 `json:"practical_marks,omitempty"`
	ObtainedMarks  float64  `json:"obtained_marks"`
	Grade          string   `json:"grade,omitempty"`
	Remarks        string   `json:"remarks,omitempty"`
	IsAbsent       bool     `json:"is_absent"`
	IsNA           bool     `json:"is_na"`
}

// Score is either a number or a label (AB, NA, a letter grade, "").
// It marshals to a JSON number or string accordingly.
type Score struct {
	Value float64
	Label string
}

func Marks(v float64) Score { return Score{Value: v} }

func Labelled(label string) Score { return Score{Label: label} }

func (s Score) IsNumeric() bool { return s.Label == "" }

func (s Score) String() string {
	if s.Label != "" {
		return s.Label
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return json.Marshal(s.Value)
}

// SubjectResult is one student's derived result for one subject in one exam.
type SubjectResult struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Obtained     Score   `json:"obtained"`
	Theory       Score   `json:"theory"`
	Practical    Score   `json:"practical"`
	Max          float64 `json:"max"`
	TheoryMax    float64 `json:"theory_max"`
	PracticalMax float64 `json:"practical_max"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade"`
	Remark       string  `json:"remark"`
	IsGradeOnly  bool    `json:"is_grade_only"`
	IsAbsent     bool    `json:"is_absent"`
	IsNA         bool    `json:"is_na"`

	// Recovered marks a split attributed by heuristic: the split fields were
	// empty and the whole recorded total was assigned to one component.
	Recovered bool   `json:"recovered,omitempty"`
	Reason    string `json:"reason"`
}

// countsTowardTotals reports whether the result enters the exam's ratio.
func (r SubjectResult) countsTowardTotals() bool {
	return !r.IsGradeOnly && !r.IsNA
}

// obtainedForTotals is the numeric contribution; AB counts as zero.
func (r SubjectResult) obtainedForTotals() float64 {
	if r.Obtained.IsNumeric() {
		return r.Obtained.Value
	}
	return 0
}

// ComputeSubjectResult derives one subject's result. A nil mark means nothing
// was recorded for the student and is treated as zero obtained.
func ComputeSubjectResult(sub Subject, mark *Mark, policy Policy) SubjectResult {
	theoryMax := sub.MaxMarks
	if sub.IsSplit() {
		theoryMax = sub.TheoryMax
	}

	res := SubjectResult{
		Name:         sub.Name,
		DisplayName:  sub.DisplayName(),
		Max:          sub.TotalMax(),
		TheoryMax:    theoryMax,
		PracticalMax: sub.PracticalMax,
		Grade:        noRemark,
		Remark:       noRemark,
		IsGradeOnly:  sub.IsGradeOnly(),
	}

	if mark == nil {
		mark = &Mark{}
	}

	switch {
	case mark.IsNA:
		res.IsNA = true
		res.Obtained = Labelled(LabelNotApplicable)
		res.Theory = Labelled(LabelNotApplicable)
		res.Practical = Labelled(LabelNotApplicable)
		res.Reason = "not applicable, excluded from totals"
		return res

	case mark.IsAbsent:
		res.IsAbsent = true
		res.Obtained = Labelled(LabelAbsent)
		res.Theory = Labelled(LabelAbsent)
		res.Practical = Labelled(LabelAbsent)
		if res.IsGradeOnly {
			res.Reason = "absent"
		} else {
			res.Reason = fmt.Sprintf("absent, 0/%.0f counted", res.Max)
		}
		return res

	case res.IsGradeOnly:
		grade := strings.TrimSpace(mark.Grade)
		if grade == "" {
			grade = noRemark
		}
		res.Obtained = Labelled(grade)
		res.Theory = Labelled("")
		res.Practical = Labelled("")
		res.Grade = grade
		if r := strings.TrimSpace(mark.Remarks); r != "" {
			res.Remark = r
		}
		res.Reason = "grade-only subject, stored grade " + grade
		return res
	}

	theory := valueOr(mark.TheoryMarks)
	practical := valueOr(mark.PracticalMarks)
	obtained := theory + practical
	if obtained == 0 && mark.ObtainedMarks > 0 {
		obtained = mark.ObtainedMarks
	}

	switch {
	case !sub.IsSplit():
		theory, practical = obtained, 0
	case theory == 0 && practical == 0 && obtained > 0:
		res.Recovered = true
		if sub.PracticalMax > 0 && sub.TheoryMax == 0 {
			practical = obtained
		} else {
			theory = obtained
		}
	}

	res.Obtained = Marks(obtained)
	res.Theory = Marks(theory)
	res.Practical = Marks(practical)

	if res.Max > 0 {
		pct := percentOf(obtained, res.Max)
		m := policy.grade(pct)
		res.Percentage = round2(pct)
		res.Grade = m.Grade
		res.Remark = m.Remark
		res.Reason = fmt.Sprintf("%g/%g = %.2f%% → %s", obtained, res.Max, pct, m.Grade)
	} else {
		res.Reason = fmt.Sprintf("%g obtained, no maximum configured", obtained)
	}
	if res.Recovered {
		res.Reason += " (split recovered from total)"
	}
	return res
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
