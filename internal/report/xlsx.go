package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the workbook
const (
	SheetSummary    = "Summary"
	SheetComponents = "Components"
	SheetNets       = "Nets"
	SheetPages      = "Pages"
	SheetAmbiguous  = "Ambiguous"
	SheetAudit      = "Audit"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
	err   error
}

func (s *sheetWriter) header(values ...any) {
	s.append(values...)
	if s.err == nil {
		s.err = s.f.SetRowStyle(s.sheet, s.row, s.row, s.bold)
	}
}

func (s *sheetWriter) append(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(s.sheet, cell, &values)
}

type sheetSpec struct {
	name  string
	write func(*sheetWriter, *Envelope)
}

// WriteXLSX writes env as a workbook with one sheet per section. Lists are
// not truncated.
func WriteXLSX(w io.Writer, env *Envelope) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	sheets := []sheetSpec{{SheetSummary, summarySheet}}
	if env.Result != nil {
		sheets = append(sheets,
			sheetSpec{SheetComponents, componentsSheet},
			sheetSpec{SheetNets, netsSheet},
			sheetSpec{SheetPages, pagesSheet},
			sheetSpec{SheetAmbiguous, ambiguousSheet},
		)
	}
	if env.Audit != nil {
		sheets = append(sheets, sheetSpec{SheetAudit, auditSheet})
	}

	for i, s := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
			}
		}
		sw := &sheetWriter{f: f, sheet: s.name, bold: bold}
		s.write(sw, env)
		if sw.err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", s.name, sw.err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func summarySheet(s *sheetWriter, env *Envelope) {
	s.header("Field", "Value")
	s.append("Run", env.RunID)
	s.append("JSON Source", env.JSONPath)
	if env.PDFPath != "" {
		s.append("PDF Ground Truth", env.PDFPath)
	}
	if env.PDF != nil {
		s.append("PDF Version", env.PDF.Version)
		s.append("PDF Pages", env.PDF.Pages)
		s.append("PDF Encrypted", env.PDF.Encrypted)
	}

	res := env.Result
	if res == nil {
		return
	}
	s.append("Pages", len(res.Pages))
	s.append("Extraction Failures", len(res.ExtractionFailures))
	s.append("Fragments", res.TotalFragments)
	s.append("Candidates", res.TotalCandidates)
	s.append("Components Total", res.Components.Total)
	s.append("Components Matched", len(res.Components.Matched))
	s.append("Component Match Rate", res.Components.Rate)
	s.append("Nets Total", res.Nets.Total)
	s.append("Nets Matched", len(res.Nets.Matched))
	s.append("Net Match Rate", res.Nets.Rate)
	s.append("Net Candidate Precision", res.Nets.CandidateRate)
	s.append("Ambiguous Candidates", len(res.Ambiguous))
	s.append("Consistency Found", res.Consistency.Found)
	s.append("Consistency Rate", res.Consistency.Rate)
}

func pageList(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

func componentsSheet(s *sheetWriter, env *Envelope) {
	c := env.Result.Components
	s.header("RefDes", "Status", "Pages", "Occurrences", "Ambiguous")
	for _, m := range c.Matched {
		s.append(m.Name, "matched", pageList(m.Pages), m.Occurrences, m.Ambiguous)
	}
	for _, name := range c.Missing {
		s.append(name, "missing", "", 0, 0)
	}
	for _, u := range c.Unmatched {
		s.append(u.Text, "unmatched", pageList(u.Pages), u.Occurrences, u.Ambiguous)
	}
}

func netsSheet(s *sheetWriter, env *Envelope) {
	n := env.Result.Nets
	s.header("Net", "Status", "Pages", "Occurrences", "Ambiguous")
	for _, m := range n.Matched {
		s.append(m.Name, "matched", pageList(m.Pages), m.Occurrences, m.Ambiguous)
	}
	for _, name := range n.Missing {
		s.append(name, "missing", "", 0, 0)
	}
	for _, u := range n.Unmatched {
		s.append(u.Text, "unmatched", pageList(u.Pages), u.Occurrences, u.Ambiguous)
	}
}

func pagesSheet(s *sheetWriter, env *Envelope) {
	s.header("Page", "Fragments", "Candidates", "Components", "Noise", "Extraction Failed", "Failure")
	for _, p := range env.Result.Pages {
		s.append(p.Page, p.Fragments, p.Candidates, p.Components, p.Noise, p.ExtractionFailed, p.Failure)
	}
}

func ambiguousSheet(s *sheetWriter, env *Envelope) {
	s.header("Page", "Fragment", "Candidate", "Start", "End", "Kind", "Matched")
	for _, f := range env.Result.Ambiguous {
		s.append(f.Page, f.Fragment, f.Text, f.Start, f.End, f.Kind.String(), f.Matched)
	}
}

func auditSheet(s *sheetWriter, env *Envelope) {
	s.header("Status", "Check", "Subject", "Detail")
	for _, f := range env.Audit.Findings {
		s.append(string(f.Status), string(f.Check), f.Subject, f.Message)
	}
}
