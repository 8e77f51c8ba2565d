// Package segment splits raw PDF text fragments, which often glue several
// labels together with no delimiter, into candidate identifier tokens.
//
// Parsing is greedy and leftmost: at each offset the longest valid match is
// taken. Matches come from three sources, tried in order:
//
//  1. the lexicon of known design strings (no boundary rules),
//  2. the designator grammar, only when the match is not glued to a letter
//     on the left, and on the right only to the start of another designator
//     (R241C102),
//  3. the net-label grammar, only at a token boundary (fragment start, a
//     separator, or the end of the previous candidate) and only up to the
//     next offset where a source 1 or 2 match begins.
//
// Letters, digits and underscores not covered by any match are noise; other
// uncovered characters are separators. Ties at one offset go to the longer
// match, then to ComponentLike over NetLike. The result is a pure function of
// the fragment text and the lexicon.
package segment

import (
	"github.com/a3tai/schematic-verify/internal/grammar"
)

// Confidence marks whether a candidate's boundaries are uncontested
type Confidence int

const (
	Exact Confidence = iota
	Ambiguous
)

// String returns a string representation of the Confidence
func (c Confidence) String() string {
	if c == Ambiguous {
		return "ambiguous"
	}
	return "exact"
}

// MarshalText lets Confidence render by name in JSON output
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Source records which rule produced a candidate
type Source int

const (
	FromLexicon Source = iota
	FromDesignator
	FromNetLabel
)

// RawFragment is one unit of text from a PDF page's text layer
type RawFragment struct {
	Page  int    `json:"page"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// CandidateToken is a substring of a fragment proposed as an identifier.
// Start and End are byte offsets into Fragment.
type CandidateToken struct {
	Text       string       `json:"text"`
	Start      int          `json:"start"`
	End        int          `json:"end"`
	Kind       grammar.Kind `json:"kind"`
	Confidence Confidence   `json:"confidence"`
	Source     Source       `json:"-"`
	Page       int          `json:"page"`
	Fragment   string       `json:"fragment"`
	Index      int          `json:"fragment_index"`
}

// Segmentation is the segmenter's output for one fragment
type Segmentation struct {
	Fragment   RawFragment      `json:"fragment"`
	Tokens     []CandidateToken `json:"tokens"`
	Noise      int              `json:"noise"`
	NoiseWords []string         `json:"noise_words,omitempty"`
}

type match struct {
	start, end int
	kind       grammar.Kind
	both       bool
	source     Source
}

func (m match) ok() bool { return m.end > m.start }

// Segmenter proposes candidate tokens for fragments
type Segmenter struct {
	grammar *grammar.Grammar
	lexicon *Lexicon
}

// New creates a Segmenter. A nil lexicon segments on grammar alone.
func New(g *grammar.Grammar, lex *Lexicon) *Segmenter {
	if lex == nil {
		lex = NewLexicon(nil, nil)
	}
	return &Segmenter{grammar: g, lexicon: lex}
}

// Segment splits one fragment into candidate tokens
func (s *Segmenter) Segment(frag RawFragment) Segmentation {
	text := frag.Text
	out := Segmentation{Fragment: frag}
	if text == "" {
		return out
	}

	anchors := s.anchors(text)

	var prev match
	boundary := true
	for i := 0; i < len(text); {
		m := anchors[i]
		if !m.ok() && boundary {
			m = s.netLabelAt(text, i, anchors)
			if m.ok() && s.grammar.IsNoise(text[m.start:m.end]) {
				out.NoiseWords = append(out.NoiseWords, text[m.start:m.end])
				i = m.end
				continue
			}
		}
		if !m.ok() {
			if grammar.IsWordChar(text[i]) {
				out.Noise++
				boundary = false
			} else {
				boundary = true
			}
			i++
			continue
		}

		tok := CandidateToken{
			Text:       text[m.start:m.end],
			Start:      m.start,
			End:        m.end,
			Kind:       m.kind,
			Confidence: Exact,
			Source:     m.source,
			Page:       frag.Page,
			Fragment:   text,
			Index:      frag.Index,
		}
		if m.both || contested(prev, m, anchors) {
			tok.Confidence = Ambiguous
		}
		out.Tokens = append(out.Tokens, tok)

		prev = m
		i = m.end
		boundary = true
	}
	return out
}

// anchors computes the lexicon or designator match starting at every offset
func (s *Segmenter) anchors(text string) []match {
	anchors := make([]match, len(text))
	for i := 0; i < len(text); i++ {
		var best match

		if n, kind, both := s.lexicon.LongestAt(text, i); n > 0 {
			best = match{start: i, end: i + n, kind: kind, both: both, source: FromLexicon}
		}

		if n := s.designatorAt(text, i); n > best.end-best.start {
			tok := text[i : i+n]
			best = match{
				start:  i,
				end:    i + n,
				kind:   s.grammar.Classify(tok, s.lexicon),
				source: FromDesignator,
			}
		}

		anchors[i] = best
	}
	return anchors
}

// designatorAt matches the designator grammar at i when the match is not
// glued to a letter on the left. A letter on the right is allowed only when
// another designator starts there.
func (s *Segmenter) designatorAt(text string, i int) int {
	if i > 0 && grammar.IsLetter(text[i-1]) {
		return 0
	}
	n := s.grammar.RefDesAt(text, i)
	if n == 0 {
		return 0
	}
	if end := i + n; end < len(text) && grammar.IsLetter(text[end]) && s.grammar.RefDesAt(text, end) == 0 {
		return 0
	}
	return n
}

// netLabelAt takes the longest net label starting at i that ends before the
// next anchored offset. Labels start and end on a letter, digit or
// underscore; dots and dashes at either edge are separators.
func (s *Segmenter) netLabelAt(text string, i int, anchors []match) match {
	if !grammar.IsWordChar(text[i]) {
		return match{}
	}
	limit := i + 1
	for limit < len(text) && !anchors[limit].ok() && grammar.IsNetChar(text[limit]) {
		limit++
	}
	for limit > i && !grammar.IsWordChar(text[limit-1]) {
		limit--
	}

	for end := limit; end-i >= 2; end-- {
		tok := text[i:end]
		if !s.grammar.IsNetLabel(tok) {
			continue
		}
		return match{
			start:  i,
			end:    end,
			kind:   s.grammar.Classify(tok, s.lexicon),
			source: FromNetLabel,
		}
	}
	return match{}
}

// contested reports whether an alternative anchor starting inside the
// previous candidate reaches into m, meaning the boundary between the two
// could have been drawn elsewhere
func contested(prev, m match, anchors []match) bool {
	if !prev.ok() {
		return false
	}
	for a := prev.start + 1; a < prev.end; a++ {
		if alt := anchors[a]; alt.ok() && alt.end > m.start {
			return true
		}
	}
	return false
}
