package usecase

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"docsearch/internal/adapter/extractor"
	"docsearch/internal/adapter/fs"
	"docsearch/internal/domain"
)

func newReportUseCase(registry *extractor.Registry) *ReportUseCase {
	if registry == nil {
		registry = extractor.NewRegistry()
	}
	return NewReportUseCase(fs.NewWalker(nil, nil), NewFileProcessor(registry))
}

func TestGenerate_PlainTextScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "foo bar\n\nbar foo bar")

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"bar"}, 0)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, 1, sum.TotalFiles)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 3, sum.TotalMatches)
	assert.Equal(t, map[string]int{"bar": 3}, sum.MatchCountByTerm)

	require.Len(t, report.Structured.Results, 1)
	res := report.Structured.Results[0]
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, domain.FileTypeTXT, res.FileType)
	assert.Equal(t, 3, res.TotalMatchCount)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{
		"[line 1] >>>bar<<<",
		"[line 3] >>>bar<<<",
		"[line 3] >>>bar<<<",
	}, res.Matches[0].Snippets)

	assert.Contains(t, report.Text, "File: 'notes.txt' (TXT) - line 1 -> Found: 'bar'")
	assert.Contains(t, report.Text, "File: 'notes.txt' (TXT) - line 3 -> Found: 'bar'")
	assert.NotContains(t, report.Text, "line 2")
	assert.Contains(t, report.Text, "  └─ >>>bar<<<")
}

func TestGenerate_IgnoredFiles(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, dir, "match.docx", "the quarterly figures")
	writeFile(t, dir, "photo.jpg", "\xff\xd8\xff")
	writeFile(t, dir, "Archive.ZIP", "PK")

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"quarterly"}, 10)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, 3, sum.TotalFiles)
	assert.Equal(t, 2, sum.Ignored)
	assert.Equal(t, 1, sum.Processed)

	require.Len(t, report.Structured.Results, 1)
	assert.Equal(t, "match.docx", report.Structured.Results[0].FileName)

	assert.Contains(t, report.Text, "Total ignored files: 2\n\n- Archive.ZIP\n- photo.jpg")
}

func TestGenerate_CorruptedDocxDoesNotAbortRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-broken.docx", "definitely not a zip")
	writeFile(t, dir, "b-notes.txt", "needle in a haystack")

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"needle"}, 240)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, 1, sum.WithProblems)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.TotalMatches)

	require.Len(t, report.Structured.Results, 2)
	broken := report.Structured.Results[0]
	assert.Equal(t, "a-broken.docx", broken.FileName)
	assert.Equal(t, domain.StatusError, broken.Status)
	assert.Contains(t, broken.ErrorDetail, "not a valid zip file")
	assert.Zero(t, broken.TotalMatchCount)
	assert.Empty(t, broken.Matches)

	assert.Equal(t, domain.StatusSuccess, report.Structured.Results[1].Status)
	assert.Contains(t, report.Text, "File: 'a-broken.docx' -> ERROR: could not be processed as DOCX. Reason:")
}

func TestGenerate_EmptyPDF(t *testing.T) {
	dir := t.TempDir()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	require.NoError(t, pdf.OutputFileAndClose(filepath.Join(dir, "blank.pdf")))

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"anything"}, 240)
	require.NoError(t, err)

	require.Len(t, report.Structured.Results, 1)
	res := report.Structured.Results[0]
	assert.Equal(t, domain.StatusWarning, res.Status)
	assert.Zero(t, res.TotalMatchCount)
	assert.Empty(t, res.Matches)
	assert.Equal(t, "File is empty or has no extractable text.", res.ErrorDetail)

	assert.Equal(t, 1, report.Structured.Summary.Processed)
	assert.Contains(t, report.Text, "File: 'blank.pdf' (PDF) -> Warning: File is empty or has no extractable text.")
}

func TestGenerate_BlankWorkbook(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "B2", ""))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "blank.xlsx")))
	require.NoError(t, f.Close())

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"x"}, 240)
	require.NoError(t, err)

	require.Len(t, report.Structured.Results, 1)
	res := report.Structured.Results[0]
	assert.Equal(t, domain.StatusWarning, res.Status)
	assert.Equal(t, domain.FileTypeExcel, res.FileType)
	assert.Contains(t, res.ErrorDetail, "no data in any sheet")
}

func TestGenerate_SpreadsheetLabels(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "B7", "Invoice 42"))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "book.xlsx")))
	require.NoError(t, f.Close())

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"invoice"}, 0)
	require.NoError(t, err)

	require.Len(t, report.Structured.Results, 1)
	assert.Equal(t, []string{"[sheet 'Sheet1', cell B7] >>>Invoice<<<"}, report.Structured.Results[0].Matches[0].Snippets)
	assert.Contains(t, report.Text, "File: 'book.xlsx' (Excel) - sheet 'Sheet1', cell B7 -> Found: 'invoice'")
}

func TestGenerate_Conservation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha beta alpha\nBETA")
	writeFile(t, dir, "b.txt", "nothing here")
	writeFile(t, dir, "c.txt", "")
	writeDocx(t, dir, "d.docx", "Alpha and alphabet")

	terms := []string{"alpha", "beta", "gamma"}
	report, err := newReportUseCase(nil).Generate(context.Background(), dir, terms, 5)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, sum.TotalFiles, sum.Processed+sum.Ignored+sum.WithProblems)

	perTerm := map[string]int{}
	total := 0
	for _, res := range report.Structured.Results {
		fileTotal := 0
		for _, m := range res.Matches {
			fileTotal += m.Count
			perTerm[m.Term] += m.Count
			assert.Len(t, m.Snippets, m.Count)
		}
		assert.Equal(t, res.TotalMatchCount, fileTotal, res.FileName)
		total += fileTotal
	}
	assert.Equal(t, sum.TotalMatches, total)
	for _, term := range terms {
		assert.Equal(t, sum.MatchCountByTerm[term], perTerm[term], term)
	}

	assert.Equal(t, 0, sum.MatchCountByTerm["gamma"])
	assert.Equal(t, 4, sum.MatchCountByTerm["alpha"])
	assert.Equal(t, 2, sum.MatchCountByTerm["beta"])
	assert.Contains(t, report.Text, "  - 'gamma': 0")

	// b.txt succeeded without matches: counted but not listed
	for _, res := range report.Structured.Results {
		assert.NotEqual(t, "b.txt", res.FileName)
	}
	assert.Equal(t, 4, sum.Processed)
}

func TestGenerate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "repeat repeat")
	writeFile(t, dir, "two.txt", "Repeat once")
	writeFile(t, dir, "skip.png", "png")

	uc := newReportUseCase(nil)
	first, err := uc.Generate(context.Background(), dir, []string{"repeat"}, 3)
	require.NoError(t, err)
	second, err := uc.Generate(context.Background(), dir, []string{"repeat"}, 3)
	require.NoError(t, err)

	assert.Equal(t, first.Structured, second.Structured)
	assert.Equal(t, first.Text, second.Text)
}

func TestGenerate_TextLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "hello")

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"hello", "absent"}, 240)
	require.NoError(t, err)

	sections := []string{
		"CONTEXTUAL SEARCH REPORT",
		"Search terms: [hello, absent]",
		"Context characters: 240",
		"Supported file extensions: .pdf, .docx, .xlsx, .xls, .txt",
		"--- OCCURRENCES FOUND ---",
		"--- FILES WITH PROBLEMS OR WARNINGS ---",
		"All supported files were analysed without errors or significant warnings.",
		"--- UNSUPPORTED / IGNORED FILES ---",
		"No files with unsupported formats were found.",
		"FINAL SUMMARY",
		"Total matches found: 1",
		"  - 'hello': 1",
		"  - 'absent': 0",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(report.Text, s)
		require.GreaterOrEqual(t, idx, 0, "missing %q", s)
		assert.Greater(t, idx, last, "%q out of order", s)
		last = idx
	}

	lines := strings.Split(report.Text, "\n")
	assert.Len(t, lines[0], reportWidth)
	assert.Equal(t, strings.Repeat("=", reportWidth), lines[len(lines)-1])
}

func TestGenerate_NoOccurrences(t *testing.T) {
	dir := t.TempDir()

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"x"}, 240)
	require.NoError(t, err)

	assert.Contains(t, report.Text, "No occurrences of the search terms were found in the processed files.")
	assert.NotNil(t, report.Structured.Results)
	assert.Empty(t, report.Structured.Results)
}

func TestGenerate_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0755))
	writeFile(t, dir, "real.txt", "x")

	report, err := newReportUseCase(nil).Generate(context.Background(), dir, []string{"x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Structured.Summary.TotalFiles)
}

func TestGenerate_MissingDirectory(t *testing.T) {
	_, err := newReportUseCase(nil).Generate(context.Background(), filepath.Join(t.TempDir(), "gone"), []string{"x"}, 0)
	assert.ErrorIs(t, err, ErrDirectoryAccess)
}

func TestGenerate_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newReportUseCase(nil).Generate(ctx, dir, []string{"x"}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(string) ([]domain.TextUnit, error) { panic("decoder exploded") }
func (panickingExtractor) FileType() domain.FileType                 { return domain.FileTypeTXT }

func TestGenerate_RecoversPanics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "boom.txt", "x")
	writeDocx(t, dir, "fine.docx", "x marks the spot")

	registry := extractor.NewRegistry()
	registry.Register(".txt", panickingExtractor{})

	report, err := newReportUseCase(registry).Generate(context.Background(), dir, []string{"x"}, 0)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, 1, sum.WithProblems)
	assert.Equal(t, 1, sum.Processed)

	require.Len(t, report.Structured.Results, 2)
	boom := report.Structured.Results[0]
	assert.Equal(t, domain.StatusError, boom.Status)
	assert.Equal(t, domain.FileType(".txt"), boom.FileType)
	assert.Equal(t, "decoder exploded", boom.ErrorDetail)
	assert.Contains(t, report.Text, "File: 'boom.txt' -> CRITICAL ERROR: processing failed. Reason: decoder exploded")
}

func TestGenerateWithProgress(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "b.jpg", "x")

	var seen []string
	_, err := newReportUseCase(nil).GenerateWithProgress(context.Background(), dir, []string{"x"}, 0,
		func(done, total int, name string) {
			assert.Equal(t, 2, total)
			seen = append(seen, name)
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.jpg"}, seen)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func writeDocx(t *testing.T, dir, name, text string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)

	w := zip.NewWriter(f)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` +
		text + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}
