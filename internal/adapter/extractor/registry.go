// Package extractor turns PDF, DOCX, spreadsheet and plain-text files into
// located text units.
package extractor

import (
	"strings"

	"docsearch/internal/port"
)

// Registry maps lowercase file extensions to the extractor handling them.
type Registry struct {
	byExt map[string]port.Extractor
	exts  []string
}

// NewRegistry returns a registry with every built-in format registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]port.Extractor)}

	sheets := NewSpreadsheetExtractor()
	r.Register(".pdf", NewPDFExtractor())
	r.Register(".docx", NewDocxExtractor())
	r.Register(".xlsx", sheets)
	r.Register(".xls", sheets)
	r.Register(".txt", NewTextExtractor())

	return r
}

// Register binds ext (with leading dot) to e, replacing any previous binding.
func (r *Registry) Register(ext string, e port.Extractor) {
	ext = strings.ToLower(ext)
	if _, exists := r.byExt[ext]; !exists {
		r.exts = append(r.exts, ext)
	}
	r.byExt[ext] = e
}

// Lookup returns the extractor for ext. Matching is case-insensitive.
func (r *Registry) Lookup(ext string) (port.Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(ext)]
	return e, ok
}

// Extensions lists the supported extensions in registration order.
func (r *Registry) Extensions() []string {
	out := make([]string, len(r.exts))
	copy(out, r.exts)
	return out
}

var (
	_ port.Extractor = (*PDFExtractor)(nil)
	_ port.Extractor = (*DocxExtractor)(nil)
	_ port.Extractor = (*SpreadsheetExtractor)(nil)
	_ port.Extractor = (*TextExtractor)(nil)
)
