package port

import "docsearch/internal/domain"

// Extractor converts a document on disk into located text units.
type Extractor interface {
	Extract(path string) ([]domain.TextUnit, error)

	// FileType is the document family reported in results.
	FileType() domain.FileType
}
