package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Student is a roster entry as the matcher sees it.
type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RollNo    string `json:"roll_no"`
	ClassID   string `json:"class_id,omitempty"`
	SectionID string `json:"section_id,omitempty"`
}

// Strategy names reported in a StudentMatch.
const (
	ByRoll      = "roll"
	ByRollName  = "roll+name"
	ByRollFirst = "roll-first"
	ByName      = "name"
)

// StudentMatch is the roster entry a row matched and how.
type StudentMatch struct {
	Student Student `json:"student"`
	Index   int     `json:"index"`
	By      string  `json:"by"`
}

// NormalizeRoll trims a roll number and drops a leading '#'.
func NormalizeRoll(roll string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(roll), "#"))
}

// NormalizeName uppercases a name and collapses internal whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// nameKey is insensitive to case, punctuation and word order, so "Khan, Ali"
// and "ALI KHAN" share a key.
func nameKey(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToUpper(r)
		}
		return ' '
	}, name)
	words := strings.Fields(cleaned)
	sort.Strings(words)
	return strings.Join(words, " ")
}

type row struct {
	key  string
	roll string
}

type studentStrategy func(r row, roster []Student) (StudentMatch, bool)

var studentStrategies = []studentStrategy{
	matchByRoll,
	matchByName,
}

// matchByRoll resolves rows whose roll appears in the roster. A roll shared by
// several students is broken by name, then by roster order.
func matchByRoll(r row, roster []Student) (StudentMatch, bool) {
	if r.roll == "" {
		return StudentMatch{}, false
	}
	var candidates []int
	for i, s := range roster {
		if NormalizeRoll(s.RollNo) == r.roll {
			candidates = append(candidates, i)
		}
	}
	switch len(candidates) {
	case 0:
		return StudentMatch{}, false
	case 1:
		i := candidates[0]
		return StudentMatch{Student: roster[i], Index: i, By: ByRoll}, true
	}
	if r.key != "" {
		for _, i := range candidates {
			if nameKey(roster[i].Name) == r.key {
				return StudentMatch{Student: roster[i], Index: i, By: ByRollName}, true
			}
		}
	}
	i := candidates[0]
	return StudentMatch{Student: roster[i], Index: i, By: ByRollFirst}, true
}

func matchByName(r row, roster []Student) (StudentMatch, bool) {
	if r.key == "" {
		return StudentMatch{}, false
	}
	for i, s := range roster {
		if nameKey(s.Name) == r.key {
			return StudentMatch{Student: s, Index: i, By: ByName}, true
		}
	}
	return StudentMatch{}, false
}

// MatchStudent finds the roster entry for a spreadsheet row.
func MatchStudent(name, roll string, roster []Student) (StudentMatch, bool) {
	r := row{key: nameKey(name), roll: NormalizeRoll(roll)}
	for _, strategy := range studentStrategies {
		if m, ok := strategy(r, roster); ok {
			return m, true
		}
	}
	return StudentMatch{}, false
}
