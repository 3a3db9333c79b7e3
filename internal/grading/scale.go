package grading

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"strings"
)

// NoGrade is reported when a percentage falls outside every configured range.
const NoGrade = "—"

const noRemark = "-"

var (
	ErrEmptyScale   = errors.New("grading scale has no ranges")
	ErrInvalidRange = errors.New("invalid grading range")
)

// Range is one row of a grading scale. Both bounds are inclusive.
type Range struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Grade  string  `json:"grade"`
	Remark string  `json:"remark"`
}

func (r Range) contains(pct float64) bool {
	return pct >= r.Min && pct <= r.Max
}

// Scale is an ordered set of grade ranges as configured by a school.
type Scale struct {
	Name   string  `json:"name"`
	Ranges []Range `json:"ranges"`
}

// Pass records which lookup pass produced a grade.
type Pass int

const (
	PassNone Pass = iota
	PassRounded
	PassUnrounded
)

func (p Pass) String() string {
	switch p {
	case PassRounded:
		return "rounded"
	case PassUnrounded:
		return "unrounded"
	default:
		return "none"
	}
}

// Match is the outcome of a scale lookup.
type Match struct {
	Grade  string
	Remark string
	Pass   Pass
}

// Lookup finds the first range containing the rounded percentage, then retries
// with the unrounded value. A miss on both passes yields NoGrade.
func (s Scale) Lookup(pct float64) Match {
	if r, ok := s.find(math.Round(pct)); ok {
		return Match{Grade: r.Grade, Remark: remarkOf(r), Pass: PassRounded}
	}
	if r, ok := s.find(pct); ok {
		return Match{Grade: r.Grade, Remark: remarkOf(r), Pass: PassUnrounded}
	}
	return Match{Grade: NoGrade, Remark: NoGrade, Pass: PassNone}
}

func (s Scale) find(pct float64) (Range, bool) {
	for _, r := range s.Ranges {
		if r.contains(pct) {
			return r, true
		}
	}
	return Range{}, false
}

func remarkOf(r Range) string {
	if strings.TrimSpace(r.Remark) == "" {
		return noRemark
	}
	return r.Remark
}

// Validate rejects scales an administrator cannot have meant. Gaps between
// ranges are allowed; they surface as NoGrade at lookup time.
func (s Scale) Validate() error {
	if len(s.Ranges) == 0 {
		return ErrEmptyScale
	}
	for i, r := range s.Ranges {
		if strings.TrimSpace(r.Grade) == "" {
			return fmt.Errorf("%w: range %d has no grade", ErrInvalidRange, i+1)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%w: range %d (%s) min %.2f > max %.2f", ErrInvalidRange, i+1, r.Grade, r.Min, r.Max)
		}
		if r.Min < 0 || r.Max > 100 {
			return fmt.Errorf("%w: range %d (%s) outside 0-100", ErrInvalidRange, i+1, r.Grade)
		}
	}
	return nil
}

// Fingerprint identifies the exact set of ranges a result was computed with.
func (s Scale) Fingerprint() string {
	var b strings.Builder
	for _, r := range s.Ranges {
		fmt.Fprintf(&b, "%g-%g:%s;", r.Min, r.Max, r.Grade)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash[:8])
}

// DefaultScale is the letter scale schools start from.
func DefaultScale() Scale {
	return Scale{
		Name: "Letter Grade",
		Ranges: []Range{
			{Min: 91, Max: 100, Grade: "A+", Remark: "Excellent"},
			{Min: 81, Max: 90, Grade: "A", Remark: "Very Good"},
			{Min: 71, Max: 80, Grade: "B+", Remark: "Good"},
			{Min: 61, Max: 70, Grade: "B", Remark: "Average"},
			{Min: 51, Max: 60, Grade: "C", Remark: "Satisfactory"},
			{Min: 41, Max: 50, Grade: "D", Remark: "Poor"},
			{Min: 33, Max: 40, Grade: "E", Remark: "Very Poor"},
			{Min: 0, Max: 32, Grade: "F", Remark: "Fail"},
		},
	}
}
