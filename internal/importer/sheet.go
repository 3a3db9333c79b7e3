// Package importer turns a marks spreadsheet into per-subject mark sheets for
// an exam and writes them through a Sink.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultHeaderSearchRows bounds how far down a sheet the header row may sit.
const DefaultHeaderSearchRows = 20

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoHeader          = errors.New("no header row with roll or name column found")
	ErrEmptySheet        = errors.New("spreadsheet has no rows")
)

// Format is a spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks a format from an uploaded file's name.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Row is one data row. Number is the 1-based row number in the sheet.
type Row struct {
	Number int               `json:"number"`
	Cells  map[string]string `json:"cells"`
}

func (r Row) Get(header string) string {
	if header == "" {
		return ""
	}
	return r.Cells[header]
}

// Sheet is a parsed spreadsheet: its header row and the data rows below it.
type Sheet struct {
	Headers   []string `json:"headers"`
	HeaderRow int      `json:"header_row"`
	Rows      []Row    `json:"rows"`
}

// ReadSheet parses the first worksheet of an xlsx file, or a csv file. The
// header row is the first row, among the first headerSearchRows, that names a
// roll or name column.
func ReadSheet(r io.Reader, format Format, headerSearchRows int) (*Sheet, error) {
	var records [][]string
	var err error

	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return parseRecords(records, headerSearchRows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func parseRecords(records [][]string, headerSearchRows int) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	headerIdx := findHeaderRow(records, headerSearchRows)
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	sheet := &Sheet{
		Headers:   headerNames(records[headerIdx]),
		HeaderRow: headerIdx + 1,
	}

	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRow(rec) {
			continue
		}
		row := Row{Number: i + 1, Cells: make(map[string]string, len(sheet.Headers))}
		for j, h := range sheet.Headers {
			if j < len(rec) {
				row.Cells[h] = strings.TrimSpace(rec[j])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func findHeaderRow(records [][]string, limit int) int {
	if limit <= 0 {
		limit = DefaultHeaderSearchRows
	}
	if len(records) < limit {
		limit = len(records)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range records[i] {
			up := strings.ToUpper(strings.TrimSpace(cell))
			if strings.Contains(up, "ROLL") || strings.Contains(up, "NAME") {
				return i
			}
		}
	}
	return -1
}

// headerNames trims headers, names blank ones __EMPTY, __EMPTY_1, ... and
// suffixes repeats so every column keeps a distinct key.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = emptyHeader
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
