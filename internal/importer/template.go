package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/matching"
)

const templateSheet = "Marks Template"

// TemplateHeaders lists the columns of a marks template: roll, name, one column
// per subject using its display name, then the summary columns.
func TemplateHeaders(subjects []grading.Subject) []string {
	headers := []string{"ROLL", "STUDENT NAME"}
	for _, s := range subjects {
		headers = append(headers, s.DisplayName())
	}
	return append(headers, "TOTAL %", "RESULT")
}

// WriteTemplate writes an xlsx marks template pre-filled with the roster.
func WriteTemplate(w io.Writer, subjects []grading.Subject, roster []matching.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := TemplateHeaders(subjects)
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(templateSheet, "B", "B", 28); err != nil {
		return err
	}
	if len(headers) > 2 {
		if err := f.SetColWidth(templateSheet, "C", lastCol, 14); err != nil {
			return err
		}
	}

	for i, s := range roster {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{s.RollNo, s.Name}
		if err := f.SetSheetRow(templateSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", s.Name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
