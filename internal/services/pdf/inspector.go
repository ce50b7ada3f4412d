// -----------------------------------------------------------------------
// PDF Inspector - validate uploaded bytes and read page metadata
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
)

// Inspector validates uploaded PDF bytes and reads page counts.
// pdfcpu works on files, so bytes go through a temp file.
type Inspector struct {
	logger  arbor.ILogger
	tempDir string
}

// NewInspector creates a new PDF inspector
func NewInspector(logger arbor.ILogger) *Inspector {
	tempDir := filepath.Join(os.TempDir(), "lectio-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Inspector{
		logger:  logger,
		tempDir: tempDir,
	}
}

// PageCount validates that data is a readable PDF and returns its page
// count. Unreadable or encrypted-beyond-open documents fail.
func (i *Inspector) PageCount(data []byte) (int, error) {
	tempFile := filepath.Join(i.tempDir, fmt.Sprintf("inspect_%s.pdf", uuid.New().String()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}

	i.logger.Debug().
		Int("page_count", pdfCtx.PageCount).
		Int("file_size", len(data)).
		Msg("Inspected PDF")

	return pdfCtx.PageCount, nil
}

// Validate reports whether data is a readable PDF
func (i *Inspector) Validate(data []byte) error {
	_, err := i.PageCount(data)
	return err
}
