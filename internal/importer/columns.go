package importer

import (
	"fmt"
	"strings"

	"github.com/school-system/exam-results/internal/matching"
)

const emptyHeader = "__EMPTY"

// excludedColumns never hold subject marks.
var excludedColumns = []string{"ROLL", "NAME", "STUDENT", "TOTAL", "%", "RESULT", "SIGN", "REMARK"}

// Columns is the role of every header in a sheet.
type Columns struct {
	Roll     string   `json:"roll"`
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
	Excluded []string `json:"excluded"`
}

func ClassifyColumns(headers []string) Columns {
	var cols Columns
	for _, h := range headers {
		up := strings.ToUpper(h)
		if cols.Roll == "" && strings.Contains(up, "ROLL") {
			cols.Roll = h
			continue
		}
		if cols.Name == "" && (strings.Contains(up, "NAME") || strings.Contains(up, "STUDENT")) {
			cols.Name = h
			continue
		}
		if isExcluded(h) {
			cols.Excluded = append(cols.Excluded, h)
			continue
		}
		cols.Subjects = append(cols.Subjects, h)
	}
	return cols
}

func isExcluded(header string) bool {
	if strings.TrimSpace(header) == "" || strings.HasPrefix(header, emptyHeader) {
		return true
	}
	up := strings.ToUpper(header)
	for _, p := range excludedColumns {
		if strings.Contains(up, p) {
			return true
		}
	}
	return false
}

// Validation collects sheet problems. Errors are sheet-level and block an
// import; row problems are warnings and never stop the other rows.
type Validation struct {
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	ValidCount int      `json:"valid_count"`
	TotalCount int      `json:"total_count"`
}

func (v Validation) Valid() bool {
	return len(v.Errors) == 0
}

// Validate checks the sheet has data and both required columns. Rows missing
// a roll or a name, and rolls no roster entry carries, are warned about.
func Validate(sheet *Sheet, cols Columns, roster []matching.Student) Validation {
	v := Validation{TotalCount: len(sheet.Rows)}
	if len(sheet.Rows) == 0 {
		v.Errors = append(v.Errors, "No data found in spreadsheet")
		return v
	}
	if cols.Roll == "" || cols.Name == "" {
		v.Errors = append(v.Errors, "Missing required columns (Roll and Name)")
		return v
	}

	rolls := make(map[string]bool, len(roster))
	for _, s := range roster {
		rolls[matching.NormalizeRoll(s.RollNo)] = true
	}

	for _, row := range sheet.Rows {
		roll := matching.NormalizeRoll(row.Get(cols.Roll))
		name := strings.TrimSpace(row.Get(cols.Name))
		if roll == "" && name == "" {
			continue
		}

		ok := true
		if roll == "" {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Row %d: Roll number is missing", row.Number))
			ok = false
		}
		if name == "" {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Row %d: Student name is missing", row.Number))
			ok = false
		}
		if roll != "" && len(roster) > 0 && !rolls[roll] {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Row %d: Student with Roll No %s not found", row.Number, roll))
		}
		if ok {
			v.ValidCount++
		}
	}
	return v
}
