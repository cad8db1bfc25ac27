package extractor

import (
	"errors"
	"fmt"

	"docsearch/internal/domain"
)

var (
	// ErrEmptyDocument means the file decoded fine but holds no non-blank text.
	ErrEmptyDocument = errors.New("document is empty or has no extractable text")

	// ErrNoSheets means a workbook decoded fine but contains zero sheets.
	ErrNoSheets = errors.New("workbook has no sheets")
)

// ExtractionError wraps a decode failure with the format that failed.
type ExtractionError struct {
	Format domain.FileType
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func decodeError(format domain.FileType, err error) error {
	return &ExtractionError{Format: format, Err: err}
}
