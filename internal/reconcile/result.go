package reconcile

import (
	"fmt"

	"github.com/a3tai/schematic-verify/internal/faults"
	"github.com/a3tai/schematic-verify/internal/grammar"
)

// Match is an authoritative entity found in the PDF text, with every page
// it was seen on
type Match struct {
	Name        string `json:"name"`
	Pages       []int  `json:"pages"`
	Occurrences int    `json:"occurrences"`
	Ambiguous   int    `json:"ambiguous"`
}

// Unmatched is a candidate string with no authoritative counterpart. It may
// be a text artifact or a non-electrical label.
type Unmatched struct {
	Text        string `json:"text"`
	Pages       []int  `json:"pages"`
	Occurrences int    `json:"occurrences"`
	Ambiguous   int    `json:"ambiguous"`
}

// EntityReport reconciles one entity kind. Every authoritative entity is in
// exactly one of Matched and Missing; every candidate occurrence of the kind
// is counted in exactly one of MatchedOccurrences and UnmatchedOccurrences.
type EntityReport struct {
	Kind                 grammar.Kind `json:"kind"`
	Total                int          `json:"total"`
	Matched              []Match      `json:"matched"`
	Missing              []string     `json:"missing"`
	Unmatched            []Unmatched  `json:"unmatched"`
	Candidates           int          `json:"candidates"`
	DistinctCandidates   int          `json:"distinct_candidates"`
	MatchedOccurrences   int          `json:"matched_occurrences"`
	UnmatchedOccurrences int          `json:"unmatched_occurrences"`
	Rate                 float64      `json:"rate"`
	CandidateRate        float64      `json:"candidate_rate"`
}

// HasEntities reports whether there was anything to verify. A report with
// no authoritative entities has a Rate of 0 that must not be read as a
// failed match.
func (r EntityReport) HasEntities() bool {
	return r.Total > 0
}

// MatchedNames returns the matched entity names in order
func (r EntityReport) MatchedNames() []string {
	out := make([]string, len(r.Matched))
	for i, m := range r.Matched {
		out[i] = m.Name
	}
	return out
}

// ClassCount breaks components down by designator class
type ClassCount struct {
	Class   string `json:"class"`
	Total   int    `json:"total"`
	Matched int    `json:"matched"`
	Missing int    `json:"missing"`
}

// Consistency is the result of checking declared components against the
// design's own text primitives
type Consistency struct {
	Total          int      `json:"total"`
	Found          int      `json:"found"`
	Rate           float64  `json:"rate"`
	Inconsistent   []string `json:"inconsistent"`
	TextPrimitives int      `json:"text_primitives"`
	TextSample     []string `json:"text_sample"`
}

// HasEntities reports whether any components were declared
func (c Consistency) HasEntities() bool {
	return c.Total > 0
}

// PageSummary holds diagnostic counts for one PDF page. A page whose text
// could not be read is marked ExtractionFailed and its counts are zero.
type PageSummary struct {
	Page             int    `json:"page"`
	Fragments        int    `json:"fragments"`
	Candidates       int    `json:"candidates"`
	Components       int    `json:"components"`
	Noise            int    `json:"noise"`
	ExtractionFailed bool   `json:"extraction_failed"`
	Failure          string `json:"failure,omitempty"`
}

// PageStats summarizes matched components per readable page
type PageStats struct {
	Pages   int     `json:"pages"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Max     int     `json:"max"`
	MaxPage int     `json:"max_page"`
}

// Flagged is an Ambiguous candidate surfaced for manual review
type Flagged struct {
	Page     int          `json:"page"`
	Fragment string       `json:"fragment"`
	Text     string       `json:"text"`
	Start    int          `json:"start"`
	End      int          `json:"end"`
	Kind     grammar.Kind `json:"kind"`
	Matched  bool         `json:"matched"`
}

// Result is the full output of one reconciliation run. It is read-only
// once returned.
type Result struct {
	Pages              []PageSummary   `json:"pages"`
	PageStats          PageStats       `json:"page_stats"`
	Components         EntityReport    `json:"components"`
	Nets               EntityReport    `json:"nets"`
	ComponentClasses   []ClassCount    `json:"component_classes"`
	Unclassified       []Unmatched     `json:"unclassified"`
	Ambiguous          []Flagged       `json:"ambiguous"`
	Consistency        Consistency     `json:"consistency"`
	TotalFragments     int             `json:"total_fragments"`
	TotalCandidates    int             `json:"total_candidates"`
	NoiseWords         int             `json:"noise_words"`
	ExtractionFailures []*faults.Fault `json:"extraction_failures,omitempty"`
}

// Faults gathers the run's page extraction failures and ambiguous
// segmentations into one collection. Neither kind is fatal.
func (r *Result) Faults(filePath string) *faults.Collection {
	c := faults.NewCollection(filePath)
	for _, f := range r.ExtractionFailures {
		c.Add(f)
	}
	for _, a := range r.Ambiguous {
		c.Add(faults.New(faults.TypeAmbiguousSegmentation,
			fmt.Sprintf("%q in fragment %q", a.Text, a.Fragment)).WithPage(a.Page))
	}
	return c
}
