package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/a3tai/schematic-verify/internal/faults"
)

// Validator checks a schematic PDF before any parsing is attempted
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified size limit
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile checks that path names a non-empty PDF within the size limit
func (v *Validator) ValidateFile(path string) error {
	if path == "" {
		return faults.New(faults.TypeInvalidInput, "path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return faults.New(faults.TypeInvalidInput, "file does not exist").WithFile(path)
	}
	if err != nil {
		return faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("cannot access file: %w", err)).WithFile(path)
	}

	return v.ValidateFileInfo(path, info)
}

// ValidateFileInfo performs the same checks on already-fetched file info
func (v *Validator) ValidateFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return faults.New(faults.TypeInvalidInput, "path is a directory, not a file").WithFile(path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return faults.New(faults.TypeInvalidInput, "file is not a PDF").WithFile(path)
	}

	if info.Size() == 0 {
		return faults.New(faults.TypeInvalidInput, "file is empty").WithFile(path)
	}

	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return faults.New(faults.TypeInvalidInput,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)).WithFile(path)
	}

	return nil
}
