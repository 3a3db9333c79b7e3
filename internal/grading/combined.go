package grading

import (
	"errors"
	"fmt"
)

var (
	ErrWeightageExceeded = errors.New("weightages exceed 100%")
	ErrInvalidWeightage  = errors.New("invalid weightage")
)

// Weightage maps an exam ID to its share of the combined result, in percent.
type Weightage map[string]float64

func (w Weightage) Total() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

func (w Weightage) Validate() error {
	for examID, v := range w {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: exam %s has %.2f", ErrInvalidWeightage, examID, v)
		}
	}
	if total := w.Total(); total > 100 {
		return fmt.Errorf("%w: total %.2f", ErrWeightageExceeded, total)
	}
	return nil
}

// CombinedResult aggregates several exams for one student.
type CombinedResult struct {
	PerExam            []ExamResult `json:"per_exam"`
	GrandTotalObtained float64      `json:"grand_total_obtained"`
	GrandTotalMax      float64      `json:"grand_total_max"`
	GrandPercentage    float64      `json:"grand_percentage"`
	GrandGrade         string       `json:"grand_grade"`
	GrandRemark        string       `json:"grand_remark"`
	Weighted           bool         `json:"weighted"`
	Status             Status       `json:"status"`

	pct float64
}

func (r CombinedResult) RawPercentage() float64 {
	return r.pct
}

// Combine aggregates exam results. With no weightage (or a zero total) the grand
// percentage is the ratio of summed totals. Otherwise it is the sum of each
// exam's percentage scaled by its weight; exams with nothing to grade and exams
// without a weight contribute nothing in that mode.
func Combine(exams []ExamResult, weights Weightage, policy Policy) (CombinedResult, error) {
	if err := weights.Validate(); err != nil {
		return CombinedResult{}, err
	}

	res := CombinedResult{PerExam: exams}
	for _, e := range exams {
		res.GrandTotalObtained += e.TotalObtained
		res.GrandTotalMax += e.TotalMax
	}

	if weights.Total() > 0 {
		res.Weighted = true
		for _, e := range exams {
			if e.TotalMax <= 0 {
				continue
			}
			res.pct += e.RawPercentage() * weights[e.ExamID] / 100
		}
	} else {
		res.pct = percentOf(res.GrandTotalObtained, res.GrandTotalMax)
	}

	res.GrandPercentage = round2(res.pct)
	m := policy.grade(res.pct)
	res.GrandGrade = m.Grade
	res.GrandRemark = m.Remark
	res.Status = policy.status(res.pct)
	return res, nil
}
