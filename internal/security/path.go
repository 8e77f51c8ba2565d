// Package security confines file arguments received over MCP to a base
// directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves and checks paths against a base directory
type PathValidator struct {
	baseDirectory string
}

// NewPathValidator creates a new path validator for the given directory.
// The directory does not need to exist yet.
func NewPathValidator(baseDirectory string) (*PathValidator, error) {
	if baseDirectory == "" {
		return nil, fmt.Errorf("base directory cannot be empty")
	}

	abs, err := filepath.Abs(baseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &PathValidator{baseDirectory: filepath.Clean(abs)}, nil
}

// BaseDirectory returns the absolute base directory
func (v *PathValidator) BaseDirectory() string {
	return v.baseDirectory
}

// Resolve turns path into an absolute path inside the base directory.
// Relative paths are taken relative to the base directory.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.baseDirectory, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !v.Contains(abs) {
		return "", fmt.Errorf("path is outside base directory: %s", path)
	}
	return abs, nil
}

// Contains reports whether path lies within the base directory, both as
// written and after symlinks are followed
func (v *PathValidator) Contains(path string) bool {
	clean := filepath.Clean(path)

	// A base that does not exist yet has no symlinks to follow
	baseReal := v.baseDirectory
	if resolved, err := filepath.EvalSymlinks(baseReal); err == nil {
		baseReal = resolved
	}

	real := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		real = resolved
	} else if !os.IsNotExist(err) {
		return false
	}

	within := func(p string) bool {
		return under(p, v.baseDirectory) || under(p, baseReal)
	}
	return within(clean) && within(real)
}

func under(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
