// Package report renders a reconciliation run as Markdown, JSON or an XLSX
// workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/schematic-verify/internal/audit"
	"github.com/a3tai/schematic-verify/internal/pdf"
	"github.com/a3tai/schematic-verify/internal/reconcile"
)

// Format selects a rendering
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat maps a name or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// Options bound the sample lists in textual renderings
type Options struct {
	SampleLimit    int
	UnmatchedLimit int
}

// DefaultOptions returns the sample limits used by the reference report
func DefaultOptions() Options {
	return Options{SampleLimit: 20, UnmatchedLimit: 50}
}

// Envelope wraps one run's results with its provenance
type Envelope struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	JSONPath    string            `json:"json_path"`
	PDFPath     string            `json:"pdf_path,omitempty"`
	PDF         *pdf.Info         `json:"pdf,omitempty"`
	Result      *reconcile.Result `json:"result,omitempty"`
	Audit       *audit.Report     `json:"audit,omitempty"`
}

// NewEnvelope creates an Envelope with a fresh run id
func NewEnvelope(jsonPath, pdfPath string) *Envelope {
	return &Envelope{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		JSONPath:    jsonPath,
		PDFPath:     pdfPath,
	}
}

// Write renders env in the given format
func Write(w io.Writer, format Format, env *Envelope, opts Options) error {
	switch format {
	case FormatMarkdown:
		return WriteMarkdown(w, env, opts)
	case FormatJSON:
		return WriteJSON(w, env)
	case FormatXLSX:
		return WriteXLSX(w, env)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteJSON writes env as indented JSON
func WriteJSON(w io.Writer, env *Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
