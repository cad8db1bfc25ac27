package extractor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"docsearch/internal/domain"
)

// TextExtractor yields one unit per non-blank line of a plain-text file.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) FileType() domain.FileType {
	return domain.FileTypeTXT
}

// Extract reads the file as UTF-8, honouring a UTF-8 or UTF-16 byte order
// mark, and splits it on "\n" (a preceding "\r" is dropped). Line numbers are
// 1-based and count blank lines.
func (e *TextExtractor) Extract(path string) ([]domain.TextUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, decodeError(domain.FileTypeTXT, err)
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return nil, decodeError(domain.FileTypeTXT, err)
	}

	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	lines := strings.Split(content, "\n")
	units := make([]domain.TextUnit, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		units = append(units, domain.TextUnit{
			Label:   fmt.Sprintf("line %d", i+1),
			Content: line,
		})
	}

	return units, nil
}
