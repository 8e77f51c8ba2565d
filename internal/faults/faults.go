package faults

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is
var (
	ErrSchema  = errors.New("design schema error")
	ErrNoPages = errors.New("extraction produced no pages")
)

// Type categorizes faults raised while verifying a design
type Type int

const (
	TypeUnknown Type = iota
	TypeExtractionFailure
	TypeSchemaError
	TypeAmbiguousSegmentation
	TypeInvalidInput
)

// Severity indicates how a fault affects a run
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityFatal
)

// String returns a string representation of the Type
func (t Type) String() string {
	switch t {
	case TypeExtractionFailure:
		return "EXTRACTION_FAILURE"
	case TypeSchemaError:
		return "SCHEMA_ERROR"
	case TypeAmbiguousSegmentation:
		return "AMBIGUOUS_SEGMENTATION"
	case TypeInvalidInput:
		return "INVALID_INPUT"
	default:
		return "UNKNOWN"
	}
}

// Severity returns the severity level for a given fault type
func (t Type) Severity() Severity {
	switch t {
	case TypeAmbiguousSegmentation:
		return SeverityInfo
	case TypeExtractionFailure:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}

// IsRecoverable reports whether a run continues past a fault of this type.
// Only schema and input errors abort.
func (t Type) IsRecoverable() bool {
	return t.Severity() != SeverityFatal
}

// Fault is a verification error with page and file context
type Fault struct {
	Type        Type   `json:"type"`
	Message     string `json:"message"`
	Context     string `json:"context,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	PageNumber  int    `json:"page_number,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Err         error  `json:"-"`
}

// Error implements the error interface
func (f *Fault) Error() string {
	msg := fmt.Sprintf("[%s] %s", f.Type, f.Message)
	if f.PageNumber > 0 {
		msg = fmt.Sprintf("[%s] page %d: %s", f.Type, f.PageNumber, f.Message)
	}
	if f.Context != "" {
		msg += ": " + f.Context
	}
	return msg
}

// Unwrap exposes the cause and the sentinel for the fault type
func (f *Fault) Unwrap() []error {
	errs := make([]error, 0, 2)
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	if f.Type == TypeSchemaError {
		errs = append(errs, ErrSchema)
	}
	return errs
}

// New creates a Fault of the given type
func New(t Type, message string) *Fault {
	return &Fault{
		Type:        t,
		Message:     message,
		Recoverable: t.IsRecoverable(),
	}
}

// Wrap wraps err as a Fault of the given type
func Wrap(t Type, err error) *Fault {
	return &Fault{
		Type:        t,
		Message:     err.Error(),
		Recoverable: t.IsRecoverable(),
		Err:         err,
	}
}

// Schema creates a SchemaError
func Schema(format string, args ...any) *Fault {
	return New(TypeSchemaError, fmt.Sprintf(format, args...))
}

// Extraction creates an ExtractionFailure for one page
func Extraction(page int, err error) *Fault {
	return Wrap(TypeExtractionFailure, err).WithPage(page)
}

// WithContext adds context to an existing Fault
func (f *Fault) WithContext(context string) *Fault {
	f.Context = context
	return f
}

// WithFile adds file path information to an existing Fault
func (f *Fault) WithFile(filePath string) *Fault {
	f.FilePath = filePath
	return f
}

// WithPage adds page number information to an existing Fault
func (f *Fault) WithPage(pageNumber int) *Fault {
	f.PageNumber = pageNumber
	return f
}

// IsFatal returns true if the fault aborts a run
func (f *Fault) IsFatal() bool {
	return f.Type.Severity() == SeverityFatal
}

// IsType reports whether err is a Fault of type t
func IsType(err error, t Type) bool {
	var f *Fault
	return errors.As(err, &f) && f.Type == t
}

// Collection gathers faults raised during one run
type Collection struct {
	Errors   []*Fault `json:"errors"`
	Warnings []*Fault `json:"warnings"`
	FilePath string   `json:"file_path,omitempty"`
}

// NewCollection creates an empty fault collection
func NewCollection(filePath string) *Collection {
	return &Collection{
		Errors:   make([]*Fault, 0),
		Warnings: make([]*Fault, 0),
		FilePath: filePath,
	}
}

// Add files a fault under errors or warnings based on severity
func (c *Collection) Add(f *Fault) {
	if f.FilePath == "" && c.FilePath != "" {
		f.FilePath = c.FilePath
	}

	if f.IsFatal() {
		c.Errors = append(c.Errors, f)
	} else {
		c.Warnings = append(c.Warnings, f)
	}
}

// HasFatal returns true if any fatal fault was collected
func (c *Collection) HasFatal() bool {
	return len(c.Errors) > 0
}

// Count returns the number of errors and warnings
func (c *Collection) Count() (errs, warnings int) {
	return len(c.Errors), len(c.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (c *Collection) Summary() string {
	errorCount, warningCount := c.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
