package pdf

import (
	"fmt"
	"unicode"

	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/schematic-verify/internal/segment"
)

// FragmentLexer splits a page's plain text into whitespace-delimited runs.
// Punctuation stays inside a run: declared labels such as DDR_DQ<0> or +3V3
// carry it, and the segmenter treats it as a separator everywhere else.
var FragmentLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Run", Pattern: `\S+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var runType = FragmentLexer.Symbols()["Run"]

// Fragmenter turns page text into ordered raw fragments
type Fragmenter struct{}

// NewFragmenter creates a Fragmenter
func NewFragmenter() *Fragmenter {
	return &Fragmenter{}
}

// Fragments returns the fragments of one page in text-layer order. Text is
// NFKC-normalized first so ligatures and full-width forms compare equal to
// their ASCII spellings.
func (f *Fragmenter) Fragments(page int, text string) ([]segment.RawFragment, error) {
	text = norm.NFKC.String(text)

	lex, err := FragmentLexer.LexString(fmt.Sprintf("page-%d", page), text)
	if err != nil {
		return nil, fmt.Errorf("failed to lex page %d: %w", page, err)
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("failed to lex page %d: %w", page, err)
	}

	out := make([]segment.RawFragment, 0, len(tokens)/2)
	for _, tok := range tokens {
		if tok.Type != runType || !hasAlnum(tok.Value) {
			continue
		}
		out = append(out, segment.RawFragment{
			Page:  page,
			Index: len(out),
			Text:  tok.Value,
		})
	}
	return out, nil
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
