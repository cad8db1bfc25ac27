// Package matcher locates search terms in extracted text and cuts the
// context snippets shown in reports.
package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"docsearch/internal/domain"
)

const (
	MarkerLeft  = ">>>"
	MarkerRight = "<<<"
	Ellipsis    = "..."
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// FindSnippets returns every case-insensitive occurrence of term in text.
//
// Scanning resumes one rune after the start of each match, so overlapping
// occurrences are all reported ("aa" occurs three times in "aaaa").
// Positions and context widths are counted in runes. With contextChars == 0
// the snippet is the bare match between markers.
func FindSnippets(text, term string, contextChars int) []domain.Occurrence {
	if term == "" || text == "" {
		return nil
	}

	runes := []rune(text)
	haystack := foldRunes(runes)
	needle := foldRunes([]rune(term))
	if len(needle) > len(haystack) {
		return nil
	}

	var occurrences []domain.Occurrence
	for pos := indexFrom(haystack, needle, 0); pos >= 0; pos = indexFrom(haystack, needle, pos+1) {
		var snippet string
		if contextChars > 0 {
			snippet = contextWindow(runes, pos, len(needle), contextChars, needle)
		} else {
			snippet = MarkerLeft + string(runes[pos:pos+len(needle)]) + MarkerRight
		}

		occurrences = append(occurrences, domain.Occurrence{
			Term:     term,
			Position: pos,
			Snippet:  snippet,
		})
	}

	return occurrences
}

// contextWindow cuts up to width runes on each side of the match, folds line
// breaks into spaces and marks every occurrence of the term inside the window.
func contextWindow(runes []rune, pos, length, width int, needle []rune) string {
	start := pos - width
	if start < 0 {
		start = 0
	}
	end := pos + length + width
	if end > len(runes) {
		end = len(runes)
	}

	window := lineBreaks.ReplaceAllString(string(runes[start:end]), " ")
	window = strings.TrimSpace(window)

	var sb strings.Builder
	if start > 0 {
		sb.WriteString(Ellipsis)
	}
	highlight(&sb, []rune(window), needle)
	if end < len(runes) {
		sb.WriteString(Ellipsis)
	}
	return sb.String()
}

// highlight writes text with non-overlapping occurrences of needle wrapped in
// markers. It folds case the same way the search does, so every match found
// by FindSnippets is marked.
func highlight(sb *strings.Builder, text, needle []rune) {
	folded := foldRunes(text)
	i := 0
	for i <= len(text) {
		pos := indexFrom(folded, needle, i)
		if pos < 0 {
			break
		}
		sb.WriteString(string(text[i:pos]))
		sb.WriteString(MarkerLeft)
		sb.WriteString(string(text[pos : pos+len(needle)]))
		sb.WriteString(MarkerRight)
		i = pos + len(needle)
	}
	sb.WriteString(string(text[i:]))
}

// foldRunes lowercases rune by rune so offsets stay aligned with the original text.
func foldRunes(runes []rune) []rune {
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	return folded
}

func indexFrom(haystack, needle []rune, from int) int {
	last := len(haystack) - len(needle)
	for i := from; i <= last; i++ {
		if haystack[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
