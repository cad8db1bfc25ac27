package domain

import "time"

// FileType names the document family a file was processed as.
type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeDOCX  FileType = "DOCX"
	FileTypeExcel FileType = "Excel"
	FileTypeTXT   FileType = "TXT"
)

// Status is the outcome of processing one file.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// TextUnit is the smallest addressable chunk of extracted text: a page, a cell or a line.
// Label is empty for whole-document extraction.
type TextUnit struct {
	Label   string
	Content string
}

// Occurrence is a single case-insensitive match of a term inside a TextUnit.
type Occurrence struct {
	Term     string
	Position int // rune offset into the unit content
	Snippet  string
}

// TermMatches groups the snippets found for one search term in one file.
type TermMatches struct {
	Term     string   `json:"term"`
	Count    int      `json:"count"`
	Snippets []string `json:"snippets"`
}

// FileResult is the outcome of processing one input file.
type FileResult struct {
	FileName        string        `json:"file_name"`
	FileType        FileType      `json:"file_type"`
	Status          Status        `json:"status"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	TotalMatchCount int           `json:"total_match_count"`
	Matches         []TermMatches `json:"matches"`
}

// MatchesFor returns the entry for term, creating it in first-match order.
func (r *FileResult) MatchesFor(term string) *TermMatches {
	for i := range r.Matches {
		if r.Matches[i].Term == term {
			return &r.Matches[i]
		}
	}
	r.Matches = append(r.Matches, TermMatches{Term: term, Snippets: []string{}})
	return &r.Matches[len(r.Matches)-1]
}

// Summary holds the run-wide counters and the echo of the run configuration.
type Summary struct {
	TotalFiles          int            `json:"total_files"`
	Processed           int            `json:"processed"`
	Ignored             int            `json:"ignored"`
	WithProblems        int            `json:"with_problems"`
	TotalMatches        int            `json:"total_matches"`
	MatchCountByTerm    map[string]int `json:"match_count_by_term"`
	ContextChars        int            `json:"context_chars"`
	SupportedExtensions []string       `json:"supported_extensions"`
	SearchTerms         []string       `json:"search_terms"`
}

// ReportSummary is the structured report of one run.
type ReportSummary struct {
	Summary Summary      `json:"summary"`
	Results []FileResult `json:"results"`
}

// Report pairs the plain-text rendering with the structured report.
type Report struct {
	Text       string        `json:"text"`
	Structured ReportSummary `json:"structured"`
}

// StoredReport is a report persisted for a session.
type StoredReport struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Report    Report    `json:"report"`
}
