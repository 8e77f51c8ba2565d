package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/schematic-verify/internal/faults"
)

// Info describes a PDF's structure as seen by pdfcpu, read before text
// extraction so a broken file is reported once instead of per page.
type Info struct {
	Path      string `json:"path"`
	Pages     int    `json:"pages"`
	Version   string `json:"version"`
	Encrypted bool   `json:"encrypted"`
	Size      int64  `json:"size"`
}

// Inspect reads the document structure with relaxed validation
func Inspect(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("failed to open file: %w", err)).WithFile(path)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("failed to stat file: %w", err)).WithFile(path)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("failed to read PDF structure: %w", err)).WithFile(path)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("failed to determine page count: %w", err)).WithFile(path)
	}

	return &Info{
		Path:      path,
		Pages:     ctx.PageCount,
		Version:   ctx.HeaderVersion.String(),
		Encrypted: ctx.Encrypt != nil,
		Size:      stat.Size(),
	}, nil
}
