// Package pdf reads the text layer of a schematic PDF and splits every page
// into raw fragments for segmentation.
package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/a3tai/schematic-verify/internal/faults"
	"github.com/a3tai/schematic-verify/internal/segment"
)

// Page holds the fragments of one page. A page whose text could not be
// read has a Failure and no fragments.
type Page struct {
	Number    int                   `json:"number"`
	Fragments []segment.RawFragment `json:"fragments"`
	Failure   *faults.Fault         `json:"failure,omitempty"`
}

// Failed reports whether the page's text layer could not be read
func (p Page) Failed() bool {
	return p.Failure != nil
}

// Extraction is the ordered text-layer output of one document
type Extraction struct {
	Path     string          `json:"path,omitempty"`
	Pages    []Page          `json:"pages"`
	Failures []*faults.Fault `json:"failures,omitempty"`
}

// FragmentCount returns the total number of fragments across all pages
func (e *Extraction) FragmentCount() int {
	n := 0
	for _, p := range e.Pages {
		n += len(p.Fragments)
	}
	return n
}

// Extractor pulls fragments from every page of a PageSource
type Extractor struct {
	workers    int
	fragmenter *Fragmenter
	logger     *log.Logger
}

// NewExtractor creates an Extractor that reads up to workers pages at once.
// A nil logger writes to stderr.
func NewExtractor(workers int, logger *log.Logger) *Extractor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[Extractor] ", log.LstdFlags)
	}
	return &Extractor{
		workers:    workers,
		fragmenter: NewFragmenter(),
		logger:     logger,
	}
}

// Extract reads every page of src. A page that fails is recorded as an
// ExtractionFailure and processing continues with the rest. A source with
// no pages is an error.
func (e *Extractor) Extract(ctx context.Context, src PageSource) (*Extraction, error) {
	return e.ExtractPages(ctx, src, nil)
}

// ExtractPages reads the pages of src selected by ranges, keeping their
// document page numbers. Nil ranges select every page. A selection that
// covers no page of src is an error.
func (e *Extractor) ExtractPages(ctx context.Context, src PageSource, ranges []PageRange) (*Extraction, error) {
	n := src.NumPages()
	if n <= 0 {
		return nil, faults.Wrap(faults.TypeInvalidInput, faults.ErrNoPages)
	}
	selected := SelectPages(ranges, n)
	if len(selected) == 0 {
		return nil, faults.New(faults.TypeInvalidInput,
			fmt.Sprintf("page selection %s is outside the document's %d pages", formatRanges(ranges), n))
	}

	pages := make([]Page, len(selected))
	p := pool.New().WithMaxGoroutines(e.workers)
	for i, num := range selected {
		p.Go(func() {
			pages[i] = e.extractPage(ctx, src, num)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Extraction{Pages: pages}
	if fs, ok := src.(*FileSource); ok {
		out.Path = fs.Path()
	}
	for _, page := range pages {
		if page.Failure != nil {
			page.Failure.FilePath = out.Path
			out.Failures = append(out.Failures, page.Failure)
			e.logger.Printf("Page %d skipped: %v", page.Number, page.Failure.Err)
		}
	}

	e.logger.Printf("Extracted %d fragments from %d of %d pages (%d failed)",
		out.FragmentCount(), len(selected), n, len(out.Failures))
	return out, nil
}

func formatRanges(ranges []PageRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

func (e *Extractor) extractPage(ctx context.Context, src PageSource, num int) Page {
	page := Page{Number: num}
	if err := ctx.Err(); err != nil {
		page.Failure = faults.Extraction(num, err)
		return page
	}

	text, err := src.PageText(num)
	if err != nil {
		page.Failure = faults.Extraction(num, err)
		return page
	}

	frags, err := e.fragmenter.Fragments(num, text)
	if err != nil {
		page.Failure = faults.Extraction(num, err)
		return page
	}

	page.Fragments = frags
	return page
}
