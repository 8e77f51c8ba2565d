package pdf

import (
	"fmt"
	"os"
	"sync"

	"github.com/ledongthuc/pdf"
)

// PageSource exposes the text layer of a paginated document. Pages are
// numbered from 1.
type PageSource interface {
	NumPages() int
	PageText(page int) (string, error)
}

// FileSource reads page text from a PDF file with ledongthuc/pdf
type FileSource struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	reader *pdf.Reader
}

// OpenFile opens a PDF for page text extraction
func OpenFile(path string) (*FileSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &FileSource{path: path, file: f, reader: r}, nil
}

// Path returns the file the source reads from
func (s *FileSource) Path() string {
	return s.path
}

// NumPages returns the number of pages in the document
func (s *FileSource) NumPages() int {
	return s.reader.NumPage()
}

// PageText returns the plain text of one page. The underlying reader is not
// safe for concurrent use, so calls are serialized. Decoder panics on
// malformed content streams are returned as errors.
func (s *FileSource) PageText(page int) (text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page decoder panic: %v", r)
		}
	}()

	if page < 1 || page > s.reader.NumPage() {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", page, s.reader.NumPage())
	}

	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page object is missing")
	}

	return p.GetPlainText(nil)
}

// Close closes the underlying file
func (s *FileSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// TextPages is an in-memory PageSource, one string per page
type TextPages []string

// NumPages returns the number of pages
func (t TextPages) NumPages() int {
	return len(t)
}

// PageText returns the text of one page
func (t TextPages) PageText(page int) (string, error) {
	if page < 1 || page > len(t) {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", page, len(t))
	}
	return t[page-1], nil
}
