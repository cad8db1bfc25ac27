package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"docsearch/internal/domain"
	"docsearch/internal/intake"
)

const maxFieldSize = 64 << 10

const (
	msgNoFiles      = "No file was selected."
	msgNoTerms      = "Enter at least one text to search for."
	msgProcessing   = "An error occurred while processing the files."
	msgBadUpload    = "The upload could not be read."
	msgNoReportText = "There is no report to download."
)

type indexPage struct {
	Messages       []Message
	Extensions     []string
	Separator      string
	MaxFiles       int
	MaxFileSizeMiB int64
	MaxContext     int
	DefaultContext int
}

type resultsPage struct {
	Report  *domain.Report
	Skipped []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", indexPage{
		Messages:       popFlash(w, r),
		Extensions:     s.extensions,
		Separator:      s.search.TermSeparator,
		MaxFiles:       s.cfg.MaxFiles,
		MaxFileSizeMiB: s.cfg.MaxFileSize >> 20,
		MaxContext:     s.search.MaxContextChars,
		DefaultContext: s.search.ContextChars,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)

	scratch, err := s.intake.NewScratch()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create scratch dir")
		flashRedirect(w, r, msgProcessing)
		return
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			log.Warn().Err(err).Str("dir", scratch.Dir).Msg("Failed to remove scratch dir")
		}
	}()

	if limit := s.bodyLimit(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	form, err := receive(r, scratch)
	if err != nil {
		log.Warn().Err(err).Msg("Upload rejected")
		switch {
		case errors.Is(err, intake.ErrFileTooLarge), errors.Is(err, intake.ErrTooManyFiles):
			flashRedirect(w, r, err.Error())
		default:
			flashRedirect(w, r, msgBadUpload)
		}
		return
	}

	if scratch.Saved() == 0 {
		flashRedirect(w, r, msgNoFiles)
		return
	}

	terms := splitTerms(form.terms, s.search.TermSeparator)
	if len(terms) == 0 {
		flashRedirect(w, r, msgNoTerms)
		return
	}

	contextChars := s.search.ContextChars
	if n, err := strconv.Atoi(strings.TrimSpace(form.contextChars)); err == nil {
		contextChars = s.search.ClampContext(n)
	}

	report, err := s.searcher.Generate(r.Context(), scratch.Dir, terms, contextChars)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate report")
		flashRedirect(w, r, msgProcessing)
		return
	}

	if err := s.store.Put(sid, *report); err != nil {
		log.Error().Err(err).Str("session", sid).Msg("Failed to store report")
	}

	s.render(w, "results.html", resultsPage{Report: report, Skipped: scratch.Skipped})
}

func (s *Server) handleReportText(w http.ResponseWriter, r *http.Request) {
	text := msgNoReportText
	if stored, ok := s.lastReport(r); ok {
		text = stored.Report.Text
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="search_report.txt"`)
	io.WriteString(w, text)
}

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stored, ok := s.lastReport(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no report for this session"})
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="search_report.json"`)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	enc.Encode(stored.Report.Structured)
}

func (s *Server) lastReport(r *http.Request) (domain.StoredReport, bool) {
	sid, ok := existingSession(r)
	if !ok {
		return domain.StoredReport{}, false
	}
	stored, ok, err := s.store.Get(sid)
	if err != nil {
		log.Error().Err(err).Str("session", sid).Msg("Failed to load report")
		return domain.StoredReport{}, false
	}
	return stored, ok
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// bodyLimit bounds the whole request: every file at full size plus room for
// the form fields and multipart framing.
func (s *Server) bodyLimit() int64 {
	if s.cfg.MaxFileSize <= 0 || s.cfg.MaxFiles <= 0 {
		return 0
	}
	return s.cfg.MaxFileSize*int64(s.cfg.MaxFiles) + 1<<20
}

type searchForm struct {
	terms        string
	contextChars string
}

// receive streams the multipart body, writing file parts straight into the
// scratch directory.
func receive(r *http.Request, scratch *intake.Scratch) (searchForm, error) {
	var form searchForm

	mr, err := r.MultipartReader()
	if err != nil {
		return form, err
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return form, err
		}

		switch part.FormName() {
		case "files", "files[]":
			// an empty file input still sends a part, with no file name
			if part.FileName() != "" {
				_, err = scratch.Save(part.FileName(), part)
			}
		case "search_strings":
			form.terms, err = readField(part)
		case "context_chars":
			form.contextChars, err = readField(part)
		}
		part.Close()
		if err != nil {
			return form, err
		}
	}
}

func readField(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFieldSize))
	return string(data), err
}

// splitTerms splits raw on sep, trims each term and drops blanks. Order and
// duplicates are kept.
func splitTerms(raw, sep string) []string {
	var terms []string
	for _, t := range strings.Split(raw, sep) {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
