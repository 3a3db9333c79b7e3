package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/school-system/exam-results/internal/config"
	"github.com/school-system/exam-results/internal/database"
	"github.com/school-system/exam-results/internal/importer"
	"github.com/school-system/exam-results/internal/services"
)

const usage = `usage:
  api                                  start the HTTP server
  api migrate                          create or update tables
  api seed-grading                     give schools without a grading scale the default one
  api import-preview <file> <school-id> <exam-id> <class-id> [section]`

func handleCommand(cfg *config.Config, cmd string, args []string) error {
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Println(usage)
		return nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	store := database.NewStore(db)
	ctx := context.Background()

	switch cmd {
	case "migrate":
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("migration completed successfully")
		return nil

	case "seed-grading":
		seeded, err := services.NewSchoolSetupService(store).SeedGradingScales(ctx)
		if err != nil {
			return err
		}
		slog.Info("grading scales seeded", "schools", seeded)
		return nil

	case "import-preview":
		in, closeFile, err := previewInput(args)
		if err != nil {
			return err
		}
		defer closeFile()

		imports := services.NewImportService(store, nil, nil, cfg.Import.HeaderSearchRows)
		report, err := imports.Preview(ctx, in)
		if err != nil {
			return err
		}
		printReport(os.Stdout, in.Filename, report)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func previewInput(args []string) (services.ImportInput, func(), error) {
	if len(args) < 4 {
		return services.ImportInput{}, nil, fmt.Errorf("import-preview needs a file, school, exam and class\n%s", usage)
	}
	ids := make([]uuid.UUID, 3)
	for i, label := range []string{"school", "exam", "class"} {
		id, err := uuid.Parse(args[i+1])
		if err != nil {
			return services.ImportInput{}, nil, fmt.Errorf("invalid %s id %q: %w", label, args[i+1], err)
		}
		ids[i] = id
	}
	section := ""
	if len(args) > 4 {
		section = args[4]
	}

	f, err := os.Open(args[0])
	if err != nil {
		return services.ImportInput{}, nil, err
	}
	return services.ImportInput{
		ImportTarget: services.ImportTarget{
			SchoolID:  ids[0],
			ExamID:    ids[1],
			ClassID:   ids[2],
			SectionID: section,
		},
		Filename: filepath.Base(args[0]),
		Data:     f,
	}, func() { f.Close() }, nil
}

var (
	heading = color.New(color.FgCyan)
	warn    = color.New(color.FgYellow)
	fail    = color.New(color.FgRed)
	success = color.New(color.FgGreen)
)

func printReport(w io.Writer, filename string, r *importer.Report) {
	heading.Fprintf(w, "\n=== Import preview: %s ===\n", filename)

	if len(r.Validation.Errors) > 0 {
		fail.Fprintln(w, "\nValidation errors")
		for _, e := range r.Validation.Errors {
			fmt.Fprintln(w, "  "+e)
		}
	}
	if len(r.Validation.Warnings) > 0 {
		warn.Fprintln(w, "\nWarnings")
		for _, e := range r.Validation.Warnings {
			fmt.Fprintln(w, "  "+e)
		}
	}

	warn.Fprintln(w, "\nSubjects")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Status"})
	for _, s := range r.Subjects {
		table.Append([]string{s, "will import"})
	}
	for _, s := range r.UnmatchedSubjects {
		table.Append([]string{s.Header, "no matching subject"})
	}
	table.Render()

	if len(r.UnmatchedStudents) > 0 {
		warn.Fprintln(w, "\nUnmatched students")
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Row", "Roll", "Name"})
		for _, s := range r.UnmatchedStudents {
			table.Append([]string{fmt.Sprint(s.Row), s.Roll, s.Name})
		}
		table.Render()
	}

	if len(r.InvalidCells) > 0 {
		warn.Fprintln(w, "\nUnreadable cells (skipped)")
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Row", "Column", "Value"})
		for _, c := range r.InvalidCells {
			table.Append([]string{fmt.Sprint(c.Row), c.Column, c.Value})
		}
		table.Render()
	}

	summary := fmt.Sprintf("\n%d students matched, %d unmatched, %d subjects ready",
		r.MatchedStudents, len(r.UnmatchedStudents), len(r.Subjects))
	switch {
	case !r.Validation.Valid():
		fail.Fprintf(w, "%s, import would be refused\n", summary)
	case len(r.UnmatchedStudents) > 0:
		warn.Fprintf(w, "%s, import needs confirmation\n", summary)
	default:
		success.Fprintln(w, summary)
	}
	if len(r.Validation.Errors) == 0 && len(r.UnmatchedSubjects) > 0 {
		fmt.Fprintln(w, "Unresolved columns: "+joinHeaders(r.UnmatchedSubjects))
	}
}

func joinHeaders(subjects []importer.UnresolvedSubject) string {
	headers := make([]string, len(subjects))
	for i, s := range subjects {
		headers[i] = s.Header
	}
	return strings.Join(headers, ", ")
}
