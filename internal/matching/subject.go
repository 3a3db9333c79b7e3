// Package matching reconciles spreadsheet labels and rows with the subjects and
// students a school has configured.
package matching

import (
	"regexp"
	"strings"

	"github.com/school-system/exam-results/internal/grading"
)

var labelNoise = regexp.MustCompile(`[\s./-]+`)

// abbreviationTokens are short forms teachers commonly use in column headers.
var abbreviationTokens = []string{"URDU", "SANS", "DEEN", "CONV", "COMP"}

// CleanLabel normalizes a subject label for comparison.
func CleanLabel(label string) string {
	return labelNoise.ReplaceAllString(strings.ToUpper(strings.TrimSpace(label)), "")
}

// Rule names reported in a Resolution.
const (
	RuleExact         = "exact"
	RuleContains      = "contains"
	RuleCombinedAlias = "combined-alias"
	RuleAbbreviation  = "abbreviation"
)

type subjectRule struct {
	name  string
	match func(candidate string, subject grading.Subject) bool
}

// subjectRules are tried in order; a later rule only applies when no subject
// satisfies any earlier one.
var subjectRules = []subjectRule{
	{RuleExact, func(c string, s grading.Subject) bool {
		return c == CleanLabel(s.Name)
	}},
	{RuleContains, func(c string, s grading.Subject) bool {
		return containsEither(c, CleanLabel(s.Name))
	}},
	{RuleCombinedAlias, func(c string, s grading.Subject) bool {
		for _, alias := range s.CombinedAliases {
			if containsEither(c, CleanLabel(alias)) {
				return true
			}
		}
		return false
	}},
	{RuleAbbreviation, func(c string, s grading.Subject) bool {
		name := CleanLabel(s.Name)
		for _, token := range abbreviationTokens {
			if strings.Contains(c, token) && strings.Contains(name, token) {
				return true
			}
		}
		return false
	}},
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Resolution identifies the subject a label resolved to and the rule that matched.
type Resolution struct {
	Subject grading.Subject `json:"subject"`
	Index   int             `json:"index"`
	Rule    string          `json:"rule"`
}

// ResolveSubject maps a free-text label onto one of subjects. The first rule
// any subject satisfies wins; within a rule the earliest subject wins.
func ResolveSubject(label string, subjects []grading.Subject) (Resolution, bool) {
	candidate := CleanLabel(label)
	if candidate == "" {
		return Resolution{}, false
	}
	for _, rule := range subjectRules {
		for i, s := range subjects {
			if rule.match(candidate, s) {
				return Resolution{Subject: s, Index: i, Rule: rule.name}, true
			}
		}
	}
	return Resolution{}, false
}

// ColumnResolution pairs a spreadsheet header with its resolved subject.
type ColumnResolution struct {
	Header string `json:"header"`
	Resolution
}

// ResolveColumns resolves every header, returning resolved columns and the
// unresolved headers, each in header order.
func ResolveColumns(headers []string, subjects []grading.Subject) ([]ColumnResolution, []string) {
	var resolved []ColumnResolution
	var unresolved []string
	for _, h := range headers {
		if r, ok := ResolveSubject(h, subjects); ok {
			resolved = append(resolved, ColumnResolution{Header: h, Resolution: r})
		} else {
			unresolved = append(unresolved, h)
		}
	}
	return resolved, unresolved
}
