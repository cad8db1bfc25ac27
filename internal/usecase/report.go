package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/phuslu/log"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// ErrDirectoryAccess is returned when the input directory cannot be listed.
var ErrDirectoryAccess = errors.New("cannot access input directory")

// DefaultContextChars is the context width used when the caller gives none.
const DefaultContextChars = 240

// ProgressFunc is called after each directory entry is handled.
type ProgressFunc func(done, total int, name string)

// ReportUseCase searches every supported file of a directory and builds the
// text and structured reports.
type ReportUseCase struct {
	lister    port.DirLister
	processor *FileProcessor
}

// NewReportUseCase creates a new report use case.
func NewReportUseCase(lister port.DirLister, processor *FileProcessor) *ReportUseCase {
	return &ReportUseCase{
		lister:    lister,
		processor: processor,
	}
}

// Generate runs a search over dir. Only a failure to list dir (or ctx being
// cancelled between files) is returned as an error; per-file problems end up
// in the report.
func (u *ReportUseCase) Generate(ctx context.Context, dir string, terms []string, contextChars int) (*domain.Report, error) {
	return u.GenerateWithProgress(ctx, dir, terms, contextChars, nil)
}

// GenerateWithProgress is Generate with a progress callback.
func (u *ReportUseCase) GenerateWithProgress(ctx context.Context, dir string, terms []string, contextChars int, progress ProgressFunc) (*domain.Report, error) {
	start := time.Now()

	entries, err := u.lister.List(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to list input directory")
		return nil, fmt.Errorf("%w %q: %v", ErrDirectoryAccess, dir, err)
	}

	run := newRun(terms, contextChars, u.processor.Extensions())

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("report generation cancelled: %w", err)
		}

		if entry.Regular {
			run.summary.TotalFiles++
			ext := filepath.Ext(entry.Name)
			if u.processor.Supports(ext) {
				out := u.processSafely(entry, ext, terms, contextChars)
				run.merge(out)
				logOutcome(out.Result)
			} else {
				run.ignore(entry.Name)
				log.Debug().Str("file", entry.Name).Msg("Ignoring unsupported file")
			}
		}

		if progress != nil {
			progress(i+1, len(entries), entry.Name)
		}
	}

	report := run.finish()

	log.Info().
		Int("total_files", report.Structured.Summary.TotalFiles).
		Int("processed", report.Structured.Summary.Processed).
		Int("ignored", report.Structured.Summary.Ignored).
		Int("with_problems", report.Structured.Summary.WithProblems).
		Int("matches", report.Structured.Summary.TotalMatches).
		Dur("duration", time.Since(start)).
		Msg("Search report complete")

	return report, nil
}

// processSafely turns a panic inside a processor into an error result so one
// bad file cannot abort the run.
func (u *ReportUseCase) processSafely(entry port.FileInfo, ext string, terms []string, contextChars int) (out FileOutcome) {
	defer func() {
		if p := recover(); p != nil {
			reason := fmt.Sprint(p)
			log.Error().Str("file", entry.Name).Str("panic", reason).Msg("File processor panicked")
			out = FileOutcome{
				Result: domain.FileResult{
					FileName:    entry.Name,
					FileType:    domain.FileType(ext),
					Status:      domain.StatusError,
					ErrorDetail: reason,
					Matches:     []domain.TermMatches{},
				},
				Problems: []string{fmt.Sprintf("File: '%s' -> CRITICAL ERROR: processing failed. Reason: %s", entry.Name, reason)},
			}
		}
	}()

	return u.processor.Process(entry.Path, terms, contextChars)
}

func logOutcome(r domain.FileResult) {
	switch r.Status {
	case domain.StatusSuccess:
		log.Debug().Str("file", r.FileName).Str("type", string(r.FileType)).Int("matches", r.TotalMatchCount).Msg("File processed")
	default:
		log.Warn().Str("file", r.FileName).Str("type", string(r.FileType)).Str("status", string(r.Status)).Str("detail", r.ErrorDetail).Msg("File processed with problems")
	}
}

// run accumulates the state of one Generate call.
type run struct {
	summary  domain.Summary
	results  []domain.FileResult
	findings []string
	problems []string
	ignored  []string
}

func newRun(terms []string, contextChars int, extensions []string) *run {
	byTerm := make(map[string]int, len(terms))
	for _, t := range terms {
		byTerm[t] = 0
	}
	return &run{
		summary: domain.Summary{
			MatchCountByTerm:    byTerm,
			ContextChars:        contextChars,
			SupportedExtensions: extensions,
			SearchTerms:         append([]string{}, terms...),
		},
	}
}

func (r *run) merge(out FileOutcome) {
	r.findings = append(r.findings, out.Findings...)
	r.problems = append(r.problems, out.Problems...)
	r.results = append(r.results, out.Result)

	if out.Result.Status == domain.StatusError {
		r.summary.WithProblems++
		return
	}

	r.summary.Processed++
	r.summary.TotalMatches += out.Result.TotalMatchCount
	for _, m := range out.Result.Matches {
		r.summary.MatchCountByTerm[m.Term] += m.Count
	}
}

func (r *run) ignore(name string) {
	r.ignored = append(r.ignored, name)
	r.summary.Ignored++
}

func (r *run) finish() *domain.Report {
	sort.Strings(r.ignored)

	results := make([]domain.FileResult, 0, len(r.results))
	for _, res := range r.results {
		if res.TotalMatchCount > 0 || res.Status != domain.StatusSuccess {
			results = append(results, res)
		}
	}

	return &domain.Report{
		Text: renderText(r),
		Structured: domain.ReportSummary{
			Summary: r.summary,
			Results: results,
		},
	}
}
