package grading

import "fmt"

// ExamResult is one student's derived result for one exam. Subjects are keyed
// by subject name; Order lists them as the exam schedules them.
type ExamResult struct {
	ExamID        string                   `json:"exam_id"`
	ExamName      string                   `json:"exam_name,omitempty"`
	Subjects      map[string]SubjectResult `json:"subjects"`
	Order         []string                 `json:"order"`
	TotalObtained float64                  `json:"total_obtained"`
	TotalMax      float64                  `json:"total_max"`
	Percentage    float64                  `json:"percentage"`
	Grade         string                   `json:"grade"`
	Remark        string                   `json:"remark"`
	Status        Status                   `json:"status"`
	ScaleHash     string                   `json:"scale_hash"`

	// pct keeps the unrounded percentage for the grand computation.
	pct float64
}

// RawPercentage is the exam percentage before rounding for display.
func (r ExamResult) RawPercentage() float64 {
	if r.pct == 0 {
		return r.Percentage
	}
	return r.pct
}

// ComputeExamResult derives the result of one exam for one student. marks is
// keyed by Subject.Key; subjects without an entry count as not recorded.
func ComputeExamResult(examID string, subjects []Subject, marks map[string]Mark, policy Policy) ExamResult {
	res := ExamResult{
		ExamID:    examID,
		Subjects:  make(map[string]SubjectResult, len(subjects)),
		Order:     make([]string, 0, len(subjects)),
		ScaleHash: policy.Scale.Fingerprint(),
	}

	for _, sub := range subjects {
		var mark *Mark
		if m, ok := marks[sub.Key()]; ok {
			mark = &m
		}
		sr := ComputeSubjectResult(sub, mark, policy)
		if _, dup := res.Subjects[sub.Name]; !dup {
			res.Order = append(res.Order, sub.Name)
		}
		res.Subjects[sub.Name] = sr

		if !sr.countsTowardTotals() {
			continue
		}
		res.TotalObtained += sr.obtainedForTotals()
		res.TotalMax += sr.Max
	}

	res.pct = percentOf(res.TotalObtained, res.TotalMax)
	res.Percentage = round2(res.pct)

	m := policy.grade(res.pct)
	res.Grade = m.Grade
	res.Remark = m.Remark
	res.Status = policy.status(res.pct)

	policy.logger().Debug("exam result computed",
		"exam_id", examID,
		"subjects", len(res.Order),
		"total", fmt.Sprintf("%g/%g", res.TotalObtained, res.TotalMax),
		"grade", res.Grade)

	return res
}
