package grading

import (
	"sort"
	"strings"
)

// OrderSubjects returns subjects in report order: names from customOrder first
// (in that order, skipping ones not scheduled), then the remaining marks-based
// subjects alphabetically, then grade-only subjects alphabetically.
func OrderSubjects(subjects []Subject, customOrder []string) []Subject {
	out := make([]Subject, 0, len(subjects))
	used := make([]bool, len(subjects))

	for _, name := range customOrder {
		want := strings.ToUpper(strings.TrimSpace(name))
		for i, s := range subjects {
			if !used[i] && strings.ToUpper(strings.TrimSpace(s.Name)) == want {
				out = append(out, s)
				used[i] = true
				break
			}
		}
	}

	var marks, grades []Subject
	for i, s := range subjects {
		if used[i] {
			continue
		}
		if s.IsGradeOnly() {
			grades = append(grades, s)
		} else {
			marks = append(marks, s)
		}
	}
	byName := func(list []Subject) {
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToUpper(list[i].Name) < strings.ToUpper(list[j].Name)
		})
	}
	byName(marks)
	byName(grades)

	out = append(out, marks...)
	return append(out, grades...)
}
