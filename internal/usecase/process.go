package usecase

import (
	"errors"
	"fmt"
	"path/filepath"

	"docsearch/internal/adapter/extractor"
	"docsearch/internal/adapter/matcher"
	"docsearch/internal/domain"
)

// FileOutcome is the result of processing one file together with the report
// lines it contributes.
type FileOutcome struct {
	Result domain.FileResult

	// Findings are the occurrence lines, in discovery order.
	Findings []string

	// Problems holds at most one warning or error line.
	Problems []string
}

// FileProcessor runs extraction and snippet search for a single file.
type FileProcessor struct {
	registry *extractor.Registry
}

// NewFileProcessor creates a processor dispatching on registry.
func NewFileProcessor(registry *extractor.Registry) *FileProcessor {
	return &FileProcessor{registry: registry}
}

// Supports reports whether ext (with leading dot, any case) has an extractor.
func (p *FileProcessor) Supports(ext string) bool {
	_, ok := p.registry.Lookup(ext)
	return ok
}

// Extensions lists the supported extensions.
func (p *FileProcessor) Extensions() []string {
	return p.registry.Extensions()
}

// Process extracts the text units of path and searches each for every term.
// Extraction problems never escape as errors: they are folded into the
// returned result as a warning or error status.
func (p *FileProcessor) Process(path string, terms []string, contextChars int) FileOutcome {
	name := filepath.Base(path)
	ext := filepath.Ext(name)

	ex, ok := p.registry.Lookup(ext)
	if !ok {
		return errorOutcome(name, domain.FileType(ext), fmt.Errorf("no extractor registered for %q", ext))
	}
	fileType := ex.FileType()

	units, err := ex.Extract(path)
	if err != nil {
		if detail, ok := warningDetail(fileType, err); ok {
			return FileOutcome{
				Result: domain.FileResult{
					FileName:    name,
					FileType:    fileType,
					Status:      domain.StatusWarning,
					ErrorDetail: detail,
					Matches:     []domain.TermMatches{},
				},
				Problems: []string{fmt.Sprintf("File: '%s' (%s) -> Warning: %s", name, fileType, detail)},
			}
		}
		return errorOutcome(name, fileType, err)
	}

	return search(name, fileType, units, terms, contextChars)
}

// search runs every term over every unit, unit by unit.
func search(name string, fileType domain.FileType, units []domain.TextUnit, terms []string, contextChars int) FileOutcome {
	out := FileOutcome{
		Result: domain.FileResult{
			FileName: name,
			FileType: fileType,
			Status:   domain.StatusSuccess,
			Matches:  []domain.TermMatches{},
		},
	}

	for _, unit := range units {
		for _, term := range terms {
			occurrences := matcher.FindSnippets(unit.Content, term, contextChars)
			if len(occurrences) == 0 {
				continue
			}

			entry := out.Result.MatchesFor(term)
			entry.Count += len(occurrences)
			out.Result.TotalMatchCount += len(occurrences)

			out.Findings = append(out.Findings, "", findingHeader(name, fileType, unit.Label, term))
			for _, occ := range occurrences {
				snippet := occ.Snippet
				if unit.Label != "" {
					snippet = "[" + unit.Label + "] " + snippet
				}
				entry.Snippets = append(entry.Snippets, snippet)
				out.Findings = append(out.Findings, "  └─ "+occ.Snippet)
			}
			out.Findings = append(out.Findings, "")
		}
	}

	return out
}

func findingHeader(name string, fileType domain.FileType, label, term string) string {
	if label == "" {
		return fmt.Sprintf("File: '%s' (%s) -> Found: '%s'", name, fileType, term)
	}
	return fmt.Sprintf("File: '%s' (%s) - %s -> Found: '%s'", name, fileType, label, term)
}

// warningDetail maps the "decoded fine but nothing to search" conditions to
// their report wording.
func warningDetail(fileType domain.FileType, err error) (string, bool) {
	switch {
	case errors.Is(err, extractor.ErrNoSheets):
		return "Excel file has no sheets.", true
	case errors.Is(err, extractor.ErrEmptyDocument):
		switch fileType {
		case domain.FileTypeExcel:
			return "Excel file has no data in any sheet.", true
		case domain.FileTypeTXT:
			return "Text file is empty.", true
		default:
			return "File is empty or has no extractable text.", true
		}
	}
	return "", false
}

func errorOutcome(name string, fileType domain.FileType, err error) FileOutcome {
	reason := err.Error()
	var extErr *extractor.ExtractionError
	if errors.As(err, &extErr) {
		reason = extErr.Err.Error()
	}

	return FileOutcome{
		Result: domain.FileResult{
			FileName:    name,
			FileType:    fileType,
			Status:      domain.StatusError,
			ErrorDetail: reason,
			Matches:     []domain.TermMatches{},
		},
		Problems: []string{fmt.Sprintf("File: '%s' -> ERROR: could not be processed as %s. Reason: %s", name, fileType, reason)},
	}
}
