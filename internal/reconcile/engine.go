// Package reconcile cross-checks segmented PDF candidates against a design
// index and produces match statistics and discrepancy lists.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"

	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/faults"
	"github.com/a3tai/schematic-verify/internal/grammar"
	"github.com/a3tai/schematic-verify/internal/pdf"
	"github.com/a3tai/schematic-verify/internal/segment"
)

// Engine runs segmentation and reconciliation over an extracted document
type Engine struct {
	grammar *grammar.Grammar
	workers int
	logger  *log.Logger
}

// NewEngine creates an Engine. A nil grammar uses grammar.Default and a nil
// logger writes to stderr.
func NewEngine(g *grammar.Grammar, workers int, logger *log.Logger) *Engine {
	if g == nil {
		g = grammar.Default()
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[Reconcile] ", log.LstdFlags)
	}
	return &Engine{grammar: g, workers: workers, logger: logger}
}

// pageResult is the immutable per-page output merged after all pages finish
type pageResult struct {
	summary    PageSummary
	tokens     []segment.CandidateToken
	noiseWords int
}

// Run segments every page of ext and reconciles the candidates against idx.
// Unmatched and missing entities are results, not errors; Run fails only on
// a nil index or an extraction with no pages.
func (e *Engine) Run(ctx context.Context, ext *pdf.Extraction, idx *design.Index) (*Result, error) {
	if idx == nil {
		return nil, faults.New(faults.TypeInvalidInput, "design index is nil")
	}
	if ext == nil || len(ext.Pages) == 0 {
		return nil, faults.Wrap(faults.TypeInvalidInput, faults.ErrNoPages)
	}

	seg := segment.New(e.grammar, segment.NewLexicon(idx.Components(), idx.Nets()))

	results := make([]pageResult, len(ext.Pages))
	p := pool.New().WithMaxGoroutines(e.workers)
	for i := range ext.Pages {
		page := ext.Pages[i]
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			results[i] = segmentPage(seg, page, idx)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reconciliation cancelled: %w", err)
	}

	res := &Result{
		Pages:              make([]PageSummary, 0, len(results)),
		ExtractionFailures: ext.Failures,
	}
	var tokens []segment.CandidateToken
	for _, r := range results {
		res.Pages = append(res.Pages, r.summary)
		res.TotalFragments += r.summary.Fragments
		res.TotalCandidates += len(r.tokens)
		res.NoiseWords += r.noiseWords
		tokens = append(tokens, r.tokens...)
	}
	sort.Slice(res.Pages, func(i, j int) bool { return res.Pages[i].Page < res.Pages[j].Page })

	var wg conc.WaitGroup
	wg.Go(func() { res.Components = ReconcileComponents(tokens, idx) })
	wg.Go(func() { res.Nets = ReconcileNets(tokens, idx) })
	wg.Go(func() { res.Consistency = CheckInternalConsistency(idx) })
	wg.Wait()

	res.ComponentClasses = classBreakdown(res.Components)
	res.Unclassified = unclassified(tokens)
	res.Ambiguous = flagged(tokens, idx)
	res.PageStats = pageStats(res.Pages)

	e.logger.Printf("Reconciled %d candidates from %d pages: components %d/%d, nets %d/%d, %d ambiguous",
		res.TotalCandidates, len(res.Pages),
		len(res.Components.Matched), res.Components.Total,
		len(res.Nets.Matched), res.Nets.Total,
		len(res.Ambiguous))

	return res, nil
}

func segmentPage(seg *segment.Segmenter, page pdf.Page, idx *design.Index) pageResult {
	r := pageResult{summary: PageSummary{Page: page.Number}}
	if page.Failed() {
		r.summary.ExtractionFailed = true
		r.summary.Failure = page.Failure.Message
		return r
	}

	matched := map[string]struct{}{}
	r.summary.Fragments = len(page.Fragments)
	for _, frag := range page.Fragments {
		s := seg.Segment(frag)
		r.summary.Noise += s.Noise
		r.noiseWords += len(s.NoiseWords)
		for _, tok := range s.Tokens {
			if tok.Kind == grammar.ComponentLike && idx.IsComponent(tok.Text) {
				matched[tok.Text] = struct{}{}
			}
		}
		r.tokens = append(r.tokens, s.Tokens...)
	}
	r.summary.Candidates = len(r.tokens)
	r.summary.Components = len(matched)
	return r
}

// flagged lists Ambiguous candidates in an order that does not depend on
// fragment processing order
func flagged(tokens []segment.CandidateToken, idx *design.Index) []Flagged {
	out := []Flagged{}
	for _, tok := range tokens {
		if tok.Confidence != segment.Ambiguous {
			continue
		}
		matched := (tok.Kind == grammar.ComponentLike && idx.IsComponent(tok.Text)) ||
			(tok.Kind == grammar.NetLike && idx.IsNet(tok.Text))
		out = append(out, Flagged{
			Page:     tok.Page,
			Fragment: tok.Fragment,
			Text:     tok.Text,
			Start:    tok.Start,
			End:      tok.End,
			Kind:     tok.Kind,
			Matched:  matched,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Fragment != b.Fragment {
			return a.Fragment < b.Fragment
		}
		return a.Start < b.Start
	})
	return out
}

// pageStats summarizes matched components over pages that were read
func pageStats(pages []PageSummary) PageStats {
	var ps PageStats
	counts := make([]float64, 0, len(pages))
	for _, p := range pages {
		if p.ExtractionFailed {
			continue
		}
		counts = append(counts, float64(p.Components))
		if p.Components > ps.Max {
			ps.Max = p.Components
			ps.MaxPage = p.Page
		}
	}

	ps.Pages = len(counts)
	switch len(counts) {
	case 0:
	case 1:
		ps.Mean = counts[0]
	default:
		ps.Mean, ps.StdDev = stat.MeanStdDev(counts, nil)
	}
	return ps
}
