package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	gradeOnlyCell = regexp.MustCompile(`^[A-F][+-]?$`)
	splitCell     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s+([A-F][+-]?)$`)
)

// Cell is the parsed content of one subject cell.
//
// Accepted forms: "AB", "NA", a bare grade ("B+"), "theory practical grade"
// ("80 20 A"), or one or two non-negative numbers ("72", "45 20"). Anything
// else is Invalid; Blank is reserved for empty cells.
type Cell struct {
	Theory    *float64
	Practical *float64
	Grade     string
	IsAbsent  bool
	IsNA      bool
	Blank     bool
	Invalid   bool
}

// Obtained is theory plus practical, missing parts counting as zero.
func (c Cell) Obtained() float64 {
	var total float64
	if c.Theory != nil {
		total += *c.Theory
	}
	if c.Practical != nil {
		total += *c.Practical
	}
	return total
}

func ParseCell(value string) Cell {
	s := strings.ToUpper(strings.TrimSpace(value))
	switch {
	case s == "":
		return Cell{Blank: true}
	case s == "AB":
		return Cell{IsAbsent: true}
	case s == "NA":
		return Cell{IsNA: true}
	case gradeOnlyCell.MatchString(s):
		return Cell{Grade: s}
	}

	if m := splitCell.FindStringSubmatch(s); m != nil {
		return Cell{Theory: number(m[1]), Practical: number(m[2]), Grade: m[3]}
	}

	parts := strings.Fields(s)
	if len(parts) > 3 {
		return Cell{Invalid: true}
	}
	var c Cell
	if c.Theory = number(parts[0]); c.Theory == nil {
		return Cell{Invalid: true}
	}
	if len(parts) > 1 {
		if c.Practical = number(parts[1]); c.Practical == nil {
			return Cell{Invalid: true}
		}
	}
	if len(parts) > 2 {
		if !gradeOnlyCell.MatchString(parts[2]) {
			return Cell{Invalid: true}
		}
		c.Grade = parts[2]
	}
	return c
}

// number parses a finite, non-negative mark.
func number(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return nil
	}
	return &v
}
