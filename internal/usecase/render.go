package usecase

import (
	"fmt"
	"strings"
)

const reportWidth = 85

// renderText lays out the plain-text report. Nothing time-dependent goes in,
// so identical runs render identical bytes.
func renderText(r *run) string {
	s := r.summary
	var out []string

	out = append(out,
		strings.Repeat("=", 30)+" CONTEXTUAL SEARCH REPORT "+strings.Repeat("=", 29),
		fmt.Sprintf("Search terms: [%s]", strings.Join(s.SearchTerms, ", ")),
		fmt.Sprintf("Context characters: %d (before and after each match)", s.ContextChars),
		fmt.Sprintf("Supported file extensions: %s", strings.Join(s.SupportedExtensions, ", ")),
		strings.Repeat("=", reportWidth),
	)

	out = append(out, "", "--- OCCURRENCES FOUND ---")
	if len(r.findings) > 0 {
		out = append(out, r.findings...)
	} else {
		out = append(out, "No occurrences of the search terms were found in the processed files.")
	}

	out = append(out, "", "", "--- FILES WITH PROBLEMS OR WARNINGS ---")
	if len(r.problems) > 0 {
		out = append(out, r.problems...)
	} else {
		out = append(out, "All supported files were analysed without errors or significant warnings.")
	}

	out = append(out, "", "", "--- UNSUPPORTED / IGNORED FILES ---")
	out = append(out, fmt.Sprintf("Total ignored files: %d", len(r.ignored)), "")
	if len(r.ignored) > 0 {
		for _, name := range r.ignored {
			out = append(out, "- "+name)
		}
	} else {
		out = append(out, "No files with unsupported formats were found.")
	}

	out = append(out, "", "", strings.Repeat("=", 36)+" FINAL SUMMARY "+strings.Repeat("=", 34),
		fmt.Sprintf("Total files in the upload directory: %d", s.TotalFiles),
		fmt.Sprintf("Files processed successfully (including warnings): %d", s.Processed),
		fmt.Sprintf("Files ignored for unsupported format: %d", s.Ignored),
		fmt.Sprintf("Files with problems or errors (could not be processed): %d", s.WithProblems),
		fmt.Sprintf("Total matches found: %d", s.TotalMatches),
		fmt.Sprintf("Context returned (characters): %d", s.ContextChars),
		"",
		"Matches per search term:",
	)
	for _, term := range s.SearchTerms {
		out = append(out, fmt.Sprintf("  - '%s': %d", term, s.MatchCountByTerm[term]))
	}
	out = append(out, strings.Repeat("=", reportWidth))

	return strings.Join(out, "\n")
}
