package reconcile

import (
	"sort"

	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/grammar"
	"github.com/a3tai/schematic-verify/internal/segment"
)

// ReconcileComponents matches ComponentLike candidates against the design's
// component set
func ReconcileComponents(tokens []segment.CandidateToken, idx *design.Index) EntityReport {
	return reconcileKind(grammar.ComponentLike, tokens, idx.Components(), idx.IsComponent)
}

// ReconcileNets matches NetLike candidates against the design's net set.
// Net-like extraction admits many false positives, so CandidateRate is
// reported beside Rate.
func ReconcileNets(tokens []segment.CandidateToken, idx *design.Index) EntityReport {
	return reconcileKind(grammar.NetLike, tokens, idx.Nets(), idx.IsNet)
}

// textSampleSize is how many leading text primitives are kept for display
const textSampleSize = 10

// CheckInternalConsistency tests every declared component for exact
// membership in the design's own text primitives. It does not look at the
// PDF.
func CheckInternalConsistency(idx *design.Index) Consistency {
	text := idx.TextPrimitives()
	c := Consistency{
		Total:          len(idx.Components()),
		Inconsistent:   []string{},
		TextPrimitives: len(text),
		TextSample:     append([]string{}, text[:min(len(text), textSampleSize)]...),
	}
	for _, ref := range idx.Components() {
		if idx.HasText(ref) {
			c.Found++
		} else {
			c.Inconsistent = append(c.Inconsistent, ref)
		}
	}
	c.Rate = ratio(c.Found, c.Total)
	return c
}

type tally struct {
	pages       map[int]struct{}
	occurrences int
	ambiguous   int
}

func (t *tally) add(tok segment.CandidateToken) {
	t.pages[tok.Page] = struct{}{}
	t.occurrences++
	if tok.Confidence == segment.Ambiguous {
		t.ambiguous++
	}
}

func (t *tally) sortedPages() []int {
	out := make([]int, 0, len(t.pages))
	for p := range t.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

type tallies map[string]*tally

func (ts tallies) add(tok segment.CandidateToken) {
	t, ok := ts[tok.Text]
	if !ok {
		t = &tally{pages: make(map[int]struct{})}
		ts[tok.Text] = t
	}
	t.add(tok)
}

func (ts tallies) unmatched() []Unmatched {
	keys := make([]string, 0, len(ts))
	for k := range ts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Unmatched, 0, len(keys))
	for _, k := range keys {
		t := ts[k]
		out = append(out, Unmatched{
			Text:        k,
			Pages:       t.sortedPages(),
			Occurrences: t.occurrences,
			Ambiguous:   t.ambiguous,
		})
	}
	return out
}

// reconcileKind expects authoritative to be sorted and duplicate free
func reconcileKind(kind grammar.Kind, tokens []segment.CandidateToken, authoritative []string, isMember func(string) bool) EntityReport {
	r := EntityReport{
		Kind:      kind,
		Total:     len(authoritative),
		Matched:   []Match{},
		Missing:   []string{},
		Unmatched: []Unmatched{},
	}

	found := tallies{}
	stray := tallies{}
	for _, tok := range tokens {
		if tok.Kind != kind {
			continue
		}
		r.Candidates++
		if isMember(tok.Text) {
			found.add(tok)
			r.MatchedOccurrences++
		} else {
			stray.add(tok)
			r.UnmatchedOccurrences++
		}
	}

	for _, name := range authoritative {
		t, ok := found[name]
		if !ok {
			r.Missing = append(r.Missing, name)
			continue
		}
		r.Matched = append(r.Matched, Match{
			Name:        name,
			Pages:       t.sortedPages(),
			Occurrences: t.occurrences,
			Ambiguous:   t.ambiguous,
		})
	}
	r.Unmatched = stray.unmatched()

	r.DistinctCandidates = len(found) + len(stray)
	r.Rate = ratio(len(r.Matched), r.Total)
	r.CandidateRate = ratio(len(found), r.DistinctCandidates)
	return r
}

// classBreakdown groups matched and missing components by designator class
func classBreakdown(components EntityReport) []ClassCount {
	byClass := map[string]*ClassCount{}
	get := func(ref string) *ClassCount {
		class := grammar.ComponentClass(ref)
		c, ok := byClass[class]
		if !ok {
			c = &ClassCount{Class: class}
			byClass[class] = c
		}
		return c
	}

	for _, m := range components.Matched {
		c := get(m.Name)
		c.Total++
		c.Matched++
	}
	for _, ref := range components.Missing {
		c := get(ref)
		c.Total++
		c.Missing++
	}

	out := make([]ClassCount, 0, len(byClass))
	for _, c := range byClass {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// unclassified aggregates candidates that fit neither grammar class
func unclassified(tokens []segment.CandidateToken) []Unmatched {
	ts := tallies{}
	for _, tok := range tokens {
		if tok.Kind == grammar.Unclassified {
			ts.add(tok)
		}
	}
	return ts.unmatched()
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
