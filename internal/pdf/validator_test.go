package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/schematic-verify/internal/faults"
)

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, size int) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
		return path
	}

	valid := write("schematic.pdf", 100)
	upper := write("SCHEMATIC.PDF", 100)
	empty := write("empty.pdf", 0)
	large := write("large.pdf", 2048)
	text := write("notes.txt", 100)

	validator := NewValidator(1024)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "valid", path: valid},
		{name: "upper case extension", path: upper},
		{name: "empty path", path: "", wantErr: "path cannot be empty"},
		{name: "missing", path: filepath.Join(dir, "missing.pdf"), wantErr: "does not exist"},
		{name: "directory", path: dir, wantErr: "directory"},
		{name: "empty file", path: empty, wantErr: "file is empty"},
		{name: "too large", path: large, wantErr: "file too large"},
		{name: "wrong extension", path: text, wantErr: "not a PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFile(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, faults.IsType(err, faults.TypeInvalidInput))
		})
	}
}

func TestValidator_NoSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	assert.NoError(t, NewValidator(0).ValidateFile(path))
}

func TestInspect_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	info, err := Inspect(path)
	require.Error(t, err)
	assert.Nil(t, info)
	assert.True(t, faults.IsType(err, faults.TypeInvalidInput))
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, faults.IsType(err, faults.TypeInvalidInput))
}

func TestOpenFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := OpenFile(path)
	assert.Error(t, err)
}
