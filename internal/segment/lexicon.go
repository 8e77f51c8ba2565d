package segment

import (
	"github.com/a3tai/schematic-verify/internal/grammar"
)

// Lexicon is the set of known identifier strings the segmenter may anchor
// on, built from the design's component and net lists.
type Lexicon struct {
	components map[string]struct{}
	nets       map[string]struct{}
	maxLen     int
}

// NewLexicon builds a lexicon. Components need a letter and at least two
// characters. Any non-empty net is admitted as declared, punctuation
// included (DDR_DQ<0>, +3V3, USB_D+). A designator-shaped string listed as a
// net is admitted as a net.
func NewLexicon(components, nets []string) *Lexicon {
	l := &Lexicon{
		components: make(map[string]struct{}, len(components)),
		nets:       make(map[string]struct{}, len(nets)),
	}

	for _, c := range components {
		if len(c) < 2 || !hasLetter(c) {
			continue
		}
		l.components[c] = struct{}{}
		if len(c) > l.maxLen {
			l.maxLen = len(c)
		}
	}

	for _, n := range nets {
		if n == "" {
			continue
		}
		l.nets[n] = struct{}{}
		if len(n) > l.maxLen {
			l.maxLen = len(n)
		}
	}

	return l
}

// IsComponent reports whether s is a known component designator
func (l *Lexicon) IsComponent(s string) bool {
	_, ok := l.components[s]
	return ok
}

// IsNet reports whether s is a known net label
func (l *Lexicon) IsNet(s string) bool {
	_, ok := l.nets[s]
	return ok
}

// Len returns the number of distinct entries
func (l *Lexicon) Len() int {
	n := len(l.components)
	for s := range l.nets {
		if _, dup := l.components[s]; !dup {
			n++
		}
	}
	return n
}

// LongestAt returns the longest known string starting at s[i:]. At equal
// length a component beats a net; both reports that the chosen string is
// listed under both kinds. A single-character entry only matches when it
// is not glued to another letter or digit.
func (l *Lexicon) LongestAt(s string, i int) (n int, kind grammar.Kind, both bool) {
	limit := len(s) - i
	if limit > l.maxLen {
		limit = l.maxLen
	}

	for size := limit; size >= 1; size-- {
		if size == 1 && !isolated(s, i) {
			break
		}
		sub := s[i : i+size]
		isComp := l.IsComponent(sub)
		isNet := l.IsNet(sub)
		switch {
		case isComp:
			return size, grammar.ComponentLike, isNet
		case isNet:
			return size, grammar.NetLike, false
		}
	}
	return 0, grammar.Unclassified, false
}

func isolated(s string, i int) bool {
	if i > 0 && grammar.IsWordChar(s[i-1]) {
		return false
	}
	return i+1 >= len(s) || !grammar.IsWordChar(s[i+1])
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if grammar.IsLetter(s[i]) {
			return true
		}
	}
	return false
}
