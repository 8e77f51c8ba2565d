package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/a3tai/schematic-verify/internal/audit"
	"github.com/a3tai/schematic-verify/internal/reconcile"
)

const (
	componentCaveat = "These might be text artifacts or non-electrical components in the PDF."
	missingCaveat   = "These might be text artifacts or non-electrical components; the PDF text layer is an imperfect oracle."
	netCaveat       = "These might be text artifacts or non-electrical labels not corresponding to electrical nets."
)

// WriteMarkdown renders env as a Markdown report
func WriteMarkdown(w io.Writer, env *Envelope, opts Options) error {
	var b strings.Builder

	b.WriteString("# Design Verification Report\n\n")
	fmt.Fprintf(&b, "**Run:** `%s`\n", env.RunID)
	if !env.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s\n", env.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(&b, "**JSON Source:** `%s`\n", env.JSONPath)
	if env.PDFPath != "" {
		fmt.Fprintf(&b, "**PDF Ground Truth:** `%s`", env.PDFPath)
		if env.PDF != nil {
			fmt.Fprintf(&b, " (PDF %s, %d pages)", env.PDF.Version, env.PDF.Pages)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if res := env.Result; res != nil {
		writeConsistency(&b, res.Consistency)
		writeSummary(&b, res)
		writeComponents(&b, res, opts)
		writeNets(&b, res.Nets, opts)
		writeAmbiguous(&b, res.Ambiguous, opts.UnmatchedLimit)
		writePages(&b, res)
	}
	if env.Audit != nil {
		writeAudit(&b, env.Audit)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteConsistency renders only the internal consistency section
func WriteConsistency(w io.Writer, c reconcile.Consistency, limit int) error {
	var b strings.Builder
	writeConsistency(&b, c)
	if len(c.Inconsistent) > 0 {
		b.WriteString("#### Components absent from JSON text\n")
		writeList(&b, c.Inconsistent, limit)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAudit renders only the design logic audit section
func WriteAudit(w io.Writer, r *audit.Report) error {
	var b strings.Builder
	writeAudit(&b, r)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeConsistency(b *strings.Builder, c reconcile.Consistency) {
	b.WriteString("## Text Extraction Verification\n")
	fmt.Fprintf(b, "- **Text Primitives in JSON:** %d\n", c.TextPrimitives)
	if len(c.TextSample) > 0 {
		fmt.Fprintf(b, "- **Sample JSON Text:** `%s`...\n", strings.Join(c.TextSample, ", "))
	}
	b.WriteString("\n")

	b.WriteString("### Internal Consistency (RefDes in JSON Text)\n")
	if !c.HasEntities() {
		b.WriteString("- No components to check\n\n")
		return
	}
	fmt.Fprintf(b, "- **RefDes found in JSON Text:** %d / %d\n", c.Found, c.Total)
	fmt.Fprintf(b, "- **Consistency Rate:** %s\n\n", percent(c.Rate))
}

func rateCell(r reconcile.EntityReport, noun string) string {
	if !r.HasEntities() {
		return fmt.Sprintf("no %s to verify", noun)
	}
	return fmt.Sprintf("%d / %d (%s)", len(r.Matched), r.Total, percent(r.Rate))
}

func writeSummary(b *strings.Builder, res *reconcile.Result) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Pages | %d (%d extraction failures) |\n", len(res.Pages), len(res.ExtractionFailures))
	fmt.Fprintf(b, "| Fragments | %d |\n", res.TotalFragments)
	fmt.Fprintf(b, "| Candidates | %d |\n", res.TotalCandidates)
	fmt.Fprintf(b, "| Components matched | %s |\n", rateCell(res.Components, "components"))
	fmt.Fprintf(b, "| Nets matched | %s |\n", rateCell(res.Nets, "nets"))
	fmt.Fprintf(b, "| Unclassified candidates | %d |\n", len(res.Unclassified))
	fmt.Fprintf(b, "| Ambiguous candidates | %d |\n", len(res.Ambiguous))
	fmt.Fprintf(b, "| Internal consistency | %s |\n", consistencyCell(res.Consistency))
	b.WriteString("\n")
}

func consistencyCell(c reconcile.Consistency) string {
	if !c.HasEntities() {
		return "no components to check"
	}
	return fmt.Sprintf("%d / %d (%s)", c.Found, c.Total, percent(c.Rate))
}

func writeComponents(b *strings.Builder, res *reconcile.Result, opts Options) {
	c := res.Components
	b.WriteString("## Component Verification\n")
	fmt.Fprintf(b, "- **Component Candidates in PDF:** %d distinct (%d occurrences)\n", c.DistinctCandidates, c.Candidates)
	fmt.Fprintf(b, "- **Components Matched in JSON:** %d / %d\n", len(c.Matched), c.Total)
	if c.HasEntities() {
		fmt.Fprintf(b, "- **Match Rate:** %s\n\n", percent(c.Rate))
	} else {
		b.WriteString("- **Match Rate:** no components to verify\n\n")
	}

	if len(c.Missing) > 0 {
		b.WriteString("### Missing Components (in JSON but not found in PDF)\n")
		b.WriteString(missingCaveat + "\n")
		writeList(b, c.Missing, opts.UnmatchedLimit)
	} else if c.HasEntities() {
		b.WriteString("✅ **All JSON components were found in the PDF!**\n\n")
	}

	if len(c.Unmatched) > 0 {
		b.WriteString("### Unmatched Components (found in PDF but not in JSON)\n")
		b.WriteString(componentCaveat + "\n")
		writeList(b, unmatchedTexts(c.Unmatched), opts.UnmatchedLimit)
	}

	if len(c.Matched) > 0 {
		b.WriteString("### Sample Matched Components\n")
		writeSample(b, c.MatchedNames(), opts.SampleLimit)
	}

	if len(res.ComponentClasses) > 0 {
		b.WriteString("### Components by Class\n\n")
		b.WriteString("| Class | Total | Matched | Missing |\n|---|---|---|---|\n")
		for _, cc := range res.ComponentClasses {
			fmt.Fprintf(b, "| %s | %d | %d | %d |\n", cc.Class, cc.Total, cc.Matched, cc.Missing)
		}
		b.WriteString("\n")
	}
}

func writeNets(b *strings.Builder, n reconcile.EntityReport, opts Options) {
	b.WriteString("## Net Verification\n")
	fmt.Fprintf(b, "- **Potential Nets Found in PDF:** %d distinct (%d occurrences)\n", n.DistinctCandidates, n.Candidates)
	fmt.Fprintf(b, "- **Nets Matched in JSON:** %d / %d\n", len(n.Matched), n.Total)
	if n.HasEntities() {
		fmt.Fprintf(b, "- **Match Rate:** %s\n", percent(n.Rate))
	} else {
		b.WriteString("- **Match Rate:** no nets to verify\n")
	}
	fmt.Fprintf(b, "- **Candidate Precision:** %s of potential net labels are declared nets\n\n", percent(n.CandidateRate))

	if len(n.Unmatched) > 0 {
		b.WriteString("### Unmatched Net Labels\n")
		b.WriteString(netCaveat + "\n")
		writeList(b, unmatchedTexts(n.Unmatched), opts.UnmatchedLimit)
	}

	if len(n.Missing) > 0 {
		b.WriteString("### Nets Not Found in PDF\n")
		b.WriteString(netCaveat + "\n")
		writeList(b, n.Missing, opts.UnmatchedLimit)
	}

	if len(n.Matched) > 0 {
		b.WriteString("### Sample Matched Nets\n")
		writeSample(b, n.MatchedNames(), opts.SampleLimit)
	}
}

func writeAmbiguous(b *strings.Builder, flagged []reconcile.Flagged, limit int) {
	if len(flagged) == 0 {
		return
	}
	b.WriteString("## Ambiguous Segmentations\n")
	b.WriteString("Candidate boundaries that could have been drawn elsewhere; review manually.\n\n")
	b.WriteString("| Page | Fragment | Candidate | Offsets | Kind | Matched |\n|---|---|---|---|---|---|\n")
	for i, f := range flagged {
		if limit > 0 && i == limit {
			fmt.Fprintf(b, "\n... and %d more\n", len(flagged)-limit)
			break
		}
		fmt.Fprintf(b, "| %d | `%s` | `%s` | %d-%d | %s | %t |\n", f.Page, f.Fragment, f.Text, f.Start, f.End, f.Kind, f.Matched)
	}
	b.WriteString("\n")
}

func writePages(b *strings.Builder, res *reconcile.Result) {
	b.WriteString("## Components per Page\n\n")
	b.WriteString("| Page | Fragments | Candidates | Components | Noise |\n|---|---|---|---|---|\n")
	for _, p := range res.Pages {
		if p.ExtractionFailed {
			fmt.Fprintf(b, "| %d | extraction failed | - | - | - |\n", p.Page)
			continue
		}
		fmt.Fprintf(b, "| %d | %d | %d | %d | %d |\n", p.Page, p.Fragments, p.Candidates, p.Components, p.Noise)
	}
	ps := res.PageStats
	fmt.Fprintf(b, "\nMean %.1f components per page (std dev %.1f) over %d readable pages; busiest page %d with %d.\n\n",
		ps.Mean, ps.StdDev, ps.Pages, ps.MaxPage, ps.Max)
}

func writeAudit(b *strings.Builder, r *audit.Report) {
	b.WriteString("## Design Logic Audit\n")
	fmt.Fprintf(b, "- **Instances Loaded:** %d\n", r.Instances)
	fmt.Fprintf(b, "- **Wires:** %d of %d primitives\n", r.Wires, r.Primitives)
	if r.Coordinates.Positioned > 0 {
		c := r.Coordinates
		fmt.Fprintf(b, "- **Coordinate Range:** X[%g, %g], Y[%g, %g]\n", c.MinX, c.MaxX, c.MinY, c.MaxY)
		fmt.Fprintf(b, "- **Out of Bounds:** %d\n", r.OutOfBounds)
	}
	b.WriteString("\n")

	if len(r.Blocks) > 0 {
		b.WriteString("### Block Distribution\n\n| Block | Instances |\n|---|---|\n")
		for _, bc := range r.Blocks {
			fmt.Fprintf(b, "| %s | %d |\n", bc.Block, bc.Count)
		}
		b.WriteString("\n")
	}

	if len(r.Findings) > 0 {
		b.WriteString("### Findings\n\n| Status | Check | Subject | Detail |\n|---|---|---|---|\n")
		for _, f := range r.Findings {
			fmt.Fprintf(b, "| [%s] | %s | %s | %s |\n", f.Status, f.Check, f.Subject, f.Message)
		}
		b.WriteString("\n")
	}
}

// writeList prints up to limit entries followed by "... and more" when
// truncated. A non-positive limit prints everything.
func writeList(b *strings.Builder, items []string, limit int) {
	shown := items
	if limit > 0 && len(items) > limit {
		shown = items[:limit]
	}
	fmt.Fprintf(b, "`%s`", strings.Join(shown, ", "))
	if len(shown) < len(items) {
		b.WriteString(" ... and more")
	}
	b.WriteString("\n\n")
}

func writeSample(b *strings.Builder, items []string, limit int) {
	shown := items
	if limit > 0 && len(items) > limit {
		shown = items[:limit]
	}
	fmt.Fprintf(b, "`%s`", strings.Join(shown, ", "))
	if len(shown) < len(items) {
		b.WriteString("...")
	}
	b.WriteString("\n\n")
}

func unmatchedTexts(list []reconcile.Unmatched) []string {
	out := make([]string, len(list))
	for i, u := range list {
		out[i] = u.Text
	}
	return out
}
