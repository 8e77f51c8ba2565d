package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/a3tai/schematic-verify/internal/segment"
)

// WriteSegmentations lists the candidates proposed for each fragment
func WriteSegmentations(w io.Writer, segs []segment.Segmentation) error {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Fragment %q: %d candidate(s)", seg.Fragment.Text, len(seg.Tokens))
		if seg.Noise > 0 {
			fmt.Fprintf(&b, ", %d noise word(s): %s", seg.Noise, strings.Join(seg.NoiseWords, " "))
		}
		b.WriteString("\n")
		for _, tok := range seg.Tokens {
			fmt.Fprintf(&b, "  %-16s [%d:%d] %s, %s\n", tok.Text, tok.Start, tok.End, tok.Kind, tok.Confidence)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
