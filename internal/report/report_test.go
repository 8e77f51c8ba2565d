package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/schematic-verify/internal/audit"
	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/pdf"
	"github.com/a3tai/schematic-verify/internal/reconcile"
)

func sampleEnvelope(t *testing.T) *Envelope {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)

	idx := design.New(
		[]string{"R241", "FB213", "SW212", "C9", "TP1"},
		[]string{"1P8V", "REG_EN", "TP1"},
		[]string{"R241", "FB213", "SHEET 3"},
	)
	ext, err := pdf.NewExtractor(1, quiet).Extract(context.Background(),
		pdf.TextPages{"R241 11FB213SW212", "1P8V1P8V FOO_BAR TP1"})
	require.NoError(t, err)

	res, err := reconcile.NewEngine(nil, 1, quiet).Run(context.Background(), ext, idx)
	require.NoError(t, err)

	env := NewEnvelope("design.json", "board.pdf")
	env.GeneratedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env.PDF = &pdf.Info{Path: "board.pdf", Pages: 2, Version: "1.7"}
	env.Result = res
	return env
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "markdown", want: FormatMarkdown},
		{in: ".md", want: FormatMarkdown},
		{in: "JSON", want: FormatJSON},
		{in: "xlsx", want: FormatXLSX},
		{in: "excel", want: FormatXLSX},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("a.json", "b.pdf")
	_, err := uuid.Parse(env.RunID)
	assert.NoError(t, err)
	assert.NotEqual(t, env.RunID, NewEnvelope("a.json", "b.pdf").RunID)
	assert.False(t, env.GeneratedAt.IsZero())
}

func TestWriteMarkdown(t *testing.T) {
	env := sampleEnvelope(t)

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, env, DefaultOptions()))
	out := buf.String()

	assert.Contains(t, out, "# Design Verification Report")
	assert.Contains(t, out, "**PDF Ground Truth:** `board.pdf` (PDF 1.7, 2 pages)")
	assert.Contains(t, out, "- **RefDes found in JSON Text:** 2 / 5")
	assert.Contains(t, out, "- **Consistency Rate:** 40.0%")
	assert.Contains(t, out, "- **Sample JSON Text:** `R241, FB213, SHEET 3`...")
	assert.Contains(t, out, "| Components matched | 4 / 5 (80.0%) |")
	assert.Contains(t, out, "### Missing Components (in JSON but not found in PDF)")
	assert.Contains(t, out, "`C9`")
	assert.Contains(t, out, "might be text artifacts or non-electrical")
	assert.Contains(t, out, "### Unmatched Net Labels")
	assert.Contains(t, out, "`FOO_BAR`")
	assert.Contains(t, out, "## Ambiguous Segmentations")
	assert.Contains(t, out, "| 2 | `TP1` | `TP1` | 0-3 | component | true |")
	assert.Contains(t, out, "## Components per Page")
	assert.NotContains(t, out, "## Design Logic Audit")
}

func TestWriteMarkdown_Truncation(t *testing.T) {
	missing := make([]string, 60)
	for i := range missing {
		missing[i] = fmt.Sprintf("R%d", i+100)
	}
	env := &Envelope{
		RunID:    "run",
		JSONPath: "design.json",
		Result: &reconcile.Result{
			Components: reconcile.EntityReport{Total: 60, Missing: missing},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, env, Options{SampleLimit: 20, UnmatchedLimit: 50}))
	out := buf.String()

	assert.Contains(t, out, "R149` ... and more")
	assert.NotContains(t, out, "R150")
	assert.Contains(t, out, "no nets to verify")
}

func TestWriteMarkdown_EmptyDesign(t *testing.T) {
	env := &Envelope{RunID: "run", JSONPath: "design.json", Result: &reconcile.Result{}}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, env, DefaultOptions()))
	out := buf.String()

	assert.Contains(t, out, "no components to verify")
	assert.Contains(t, out, "no nets to verify")
	assert.Contains(t, out, "No components to check")
	assert.NotContains(t, out, "NaN")
}

func TestWriteMarkdown_Audit(t *testing.T) {
	env := &Envelope{
		RunID:    "run",
		JSONPath: "design.json",
		Audit: &audit.Report{
			Instances:  3,
			Blocks:     []audit.BlockCount{{Block: "usb_block", Count: 3}},
			Wires:      2,
			Primitives: 7,
			Findings: []audit.Finding{
				{Check: audit.CheckInstances, Subject: "J10", Status: audit.StatusFail, Message: "missing position data"},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, env, DefaultOptions()))
	out := buf.String()

	assert.Contains(t, out, "## Design Logic Audit")
	assert.Contains(t, out, "- **Wires:** 2 of 7 primitives")
	assert.Contains(t, out, "| usb_block | 3 |")
	assert.Contains(t, out, "| [FAIL] | hierarchical_instances | J10 | missing position data |")
}

func TestWriteConsistency(t *testing.T) {
	c := reconcile.Consistency{Total: 3, Found: 1, Rate: 1.0 / 3.0, Inconsistent: []string{"R2", "U3"}, TextPrimitives: 4}

	var buf bytes.Buffer
	require.NoError(t, WriteConsistency(&buf, c, 1))
	out := buf.String()

	assert.Contains(t, out, "1 / 3")
	assert.Contains(t, out, "33.3%")
	assert.Contains(t, out, "`R2` ... and more")
}

func TestWriteJSON(t *testing.T) {
	env := sampleEnvelope(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, env))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, env.RunID, decoded["run_id"])

	result := decoded["result"].(map[string]any)
	comps := result["components"].(map[string]any)
	assert.Equal(t, "component", comps["kind"])
	assert.Equal(t, 0.8, comps["rate"])
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""))
}

func TestWriteXLSX(t *testing.T) {
	env := sampleEnvelope(t)
	env.Audit = &audit.Report{Findings: []audit.Finding{{Check: audit.CheckWires, Subject: "wires", Status: audit.StatusWarn, Message: "few"}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, env, DefaultOptions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetComponents, SheetNets, SheetPages, SheetAmbiguous, SheetAudit}, f.GetSheetList())

	rows, err := f.GetRows(SheetComponents)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"RefDes", "Status", "Pages", "Occurrences", "Ambiguous"}, rows[0])
	// 4 matched, 1 missing, no unmatched
	assert.Len(t, rows, 6)
	assert.Equal(t, []string{"C9", "missing", "", "0", "0"}, rows[5])

	pages, err := f.GetRows(SheetPages)
	require.NoError(t, err)
	assert.Len(t, pages, 3)

	audits, err := f.GetRows(SheetAudit)
	require.NoError(t, err)
	assert.Equal(t, []string{"WARN", "wires", "wires", "few"}, audits[1])
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(io.Discard, Format("pdf"), &Envelope{}, DefaultOptions())
	assert.Error(t, err)
}
