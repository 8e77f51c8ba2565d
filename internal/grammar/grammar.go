// Package grammar holds the classification rules for schematic identifiers:
// component reference designators (prefix letters followed by digits) and
// net labels (short alphanumeric names such as rails or signal mnemonics).
package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the classification assigned to a token
type Kind int

const (
	Unclassified Kind = iota
	ComponentLike
	NetLike
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case ComponentLike:
		return "component"
	case NetLike:
		return "net"
	default:
		return "unclassified"
	}
}

// MarshalText lets Kind render by name in JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// DefaultPrefixes is the IPC-style reference designator vocabulary
var DefaultPrefixes = []string{
	"R", "C", "L", "D", "J", "U", "Q", "Y", "P", "F",
	"FB", "SW", "TP", "CR", "LED", "PTH",
}

// DefaultNoise lists title-block and boilerplate words that look like net
// labels but never name a net.
var DefaultNoise = []string{
	"GND", "VCC", "PAGE", "DATE", "REV", "SIZE", "TITLE",
	"DRAWN", "CHECKED", "BLOCK", "SCHEMATIC",
}

// shortTokenLen is the length at or below which a designator-shaped token
// is too short to be trusted without a known entity.
const shortTokenLen = 2

// Lookup answers exact-string membership against known design entities
type Lookup interface {
	IsComponent(s string) bool
	IsNet(s string) bool
}

// Grammar classifies identifier tokens
type Grammar struct {
	prefixes []string
	noise    map[string]struct{}
}

// New creates a Grammar for the given designator prefixes and noise words
func New(prefixes, noise []string) (*Grammar, error) {
	seen := make(map[string]struct{}, len(prefixes))
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for i := 0; i < len(p); i++ {
			if !isLetter(p[i]) {
				return nil, fmt.Errorf("invalid designator prefix %q: letters only", p)
			}
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("designator prefix vocabulary cannot be empty")
	}

	// Longest prefix first so FB is tried before F.
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})

	noiseSet := make(map[string]struct{}, len(noise))
	for _, n := range noise {
		if n = strings.TrimSpace(n); n != "" {
			noiseSet[n] = struct{}{}
		}
	}

	return &Grammar{prefixes: cleaned, noise: noiseSet}, nil
}

// Default returns a Grammar with the default vocabulary
func Default() *Grammar {
	g, err := New(DefaultPrefixes, DefaultNoise)
	if err != nil {
		panic(err)
	}
	return g
}

// Prefixes returns the designator vocabulary, longest first
func (g *Grammar) Prefixes() []string {
	out := make([]string, len(g.prefixes))
	copy(out, g.prefixes)
	return out
}

// RefDesAt returns the length of the designator match that starts at
// s[i:], or 0. The digit run is always taken to its end.
func (g *Grammar) RefDesAt(s string, i int) int {
	rest := s[i:]
	for _, p := range g.prefixes {
		if !strings.HasPrefix(rest, p) {
			continue
		}
		j := len(p)
		for j < len(rest) && isDigit(rest[j]) {
			j++
		}
		if j > len(p) {
			return j
		}
	}
	return 0
}

// IsRefDes reports whether s is exactly one reference designator
func (g *Grammar) IsRefDes(s string) bool {
	return s != "" && g.RefDesAt(s, 0) == len(s)
}

// IsNetShape reports whether s has the character shape of a net label:
// at least two characters from [A-Za-z0-9_.-], not purely numeric.
func IsNetShape(s string) bool {
	if len(s) < 2 {
		return false
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !IsNetChar(c) {
			return false
		}
		if isDigit(c) {
			digits++
		}
	}
	return digits < len(s)
}

// IsNetLabel reports whether s is a net label that is not also a designator
func (g *Grammar) IsNetLabel(s string) bool {
	return IsNetShape(s) && !g.IsRefDes(s)
}

// IsNoise reports whether s is a boilerplate word excluded from nets
func (g *Grammar) IsNoise(s string) bool {
	_, ok := g.noise[s]
	return ok
}

// Classify assigns a Kind to a token. Known entities win: a known component
// is ComponentLike and a known net is NetLike, even if its shape says
// otherwise. Unknown designators become ComponentLike unless they are short
// enough to be pin or grid labels (D0, C1), which stay Unclassified.
func (g *Grammar) Classify(tok string, known Lookup) Kind {
	if known != nil {
		if known.IsComponent(tok) {
			return ComponentLike
		}
		if known.IsNet(tok) {
			return NetLike
		}
	}

	if g.IsRefDes(tok) {
		if len(tok) <= shortTokenLen {
			return Unclassified
		}
		return ComponentLike
	}

	if g.IsNetLabel(tok) && !g.IsNoise(tok) {
		return NetLike
	}
	return Unclassified
}

// IsNetChar reports whether c may appear in a net label
func IsNetChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '.' || c == '-'
}

// IsWordChar reports whether c is a letter, digit or underscore. Other
// characters uncovered by a candidate separate candidates rather than count
// as noise.
func IsWordChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

// IsLetter reports whether c is an ASCII letter
func IsLetter(c byte) bool {
	return isLetter(c)
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
