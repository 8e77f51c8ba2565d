package pdf

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/a3tai/schematic-verify/internal/faults"
)

// PageRange represents an inclusive range of 1-based pages
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// String formats the range the way ParsePageRanges reads it
func (r PageRange) String() string {
	switch r.End {
	case r.Start:
		return strconv.Itoa(r.Start)
	case math.MaxInt:
		return strconv.Itoa(r.Start) + "-"
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParsePageRanges reads a selection such as "1-3,7,10-". An open end runs to
// the last page. An empty selection means every page and returns nil.
func ParsePageRanges(s string) ([]PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ranges []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parsePageRange(part)
		if err != nil {
			return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("invalid page range %q: %w", part, err))
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, faults.New(faults.TypeInvalidInput, fmt.Sprintf("page selection %q names no pages", s))
	}
	return ranges, nil
}

func parsePageRange(part string) (PageRange, error) {
	from, to, isRange := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return PageRange{}, err
	}
	if start < 1 {
		return PageRange{}, errors.New("pages start at 1")
	}
	if !isRange {
		return PageRange{Start: start, End: start}, nil
	}

	to = strings.TrimSpace(to)
	if to == "" {
		// open ended, clamped by SelectPages
		return PageRange{Start: start, End: math.MaxInt}, nil
	}
	end, err := strconv.Atoi(to)
	if err != nil {
		return PageRange{}, err
	}
	if end < start {
		return PageRange{}, fmt.Errorf("end %d before start %d", end, start)
	}
	return PageRange{Start: start, End: end}, nil
}

// SelectPages returns the sorted, de-duplicated page numbers the ranges
// cover in a document of total pages. Bounds are clamped and ranges that
// fall entirely outside the document are dropped. No ranges selects every
// page.
func SelectPages(ranges []PageRange, total int) []int {
	if total <= 0 {
		return nil
	}
	seen := make([]bool, total+1)
	if len(ranges) == 0 {
		for i := 1; i <= total; i++ {
			seen[i] = true
		}
	}
	for _, r := range ranges {
		start, end := r.Start, r.End
		if start < 1 {
			start = 1
		}
		if end > total {
			end = total
		}
		for p := start; p <= end; p++ {
			seen[p] = true
		}
	}

	var pages []int
	for p := 1; p <= total; p++ {
		if seen[p] {
			pages = append(pages, p)
		}
	}
	return pages
}
