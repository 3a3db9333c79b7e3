package grading

import "sort"

// Standing is one roster entry's percentage going into a ranking.
type Standing struct {
	StudentID  string  `json:"student_id"`
	Percentage float64 `json:"percentage"`
}

// Placement is a ranked standing. Rank is zero when the student falls outside
// the cutoff.
type Placement struct {
	Standing
	Position int `json:"position"`
	Rank     int `json:"rank,omitempty"`
}

func (p Placement) Ranked() bool {
	return p.Rank > 0
}

// Rank orders standings by percentage, highest first. Equal percentages keep
// roster order and still receive distinct consecutive positions. Positions
// beyond cutoff carry no rank; a cutoff <= 0 uses DefaultRankCutoff.
func Rank(standings []Standing, cutoff int) []Placement {
	if cutoff <= 0 {
		cutoff = DefaultRankCutoff
	}

	placed := make([]Placement, len(standings))
	for i, s := range standings {
		placed[i] = Placement{Standing: s}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Percentage > placed[j].Percentage
	})

	for i := range placed {
		placed[i].Position = i + 1
		if placed[i].Position <= cutoff {
			placed[i].Rank = placed[i].Position
		}
	}
	return placed
}

// RankOf returns the placement of one student, or false when the student is
// not in the roster.
func RankOf(studentID string, standings []Standing, cutoff int) (Placement, bool) {
	for _, p := range Rank(standings, cutoff) {
		if p.StudentID == studentID {
			return p, true
		}
	}
	return Placement{}, false
}
