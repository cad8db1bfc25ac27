package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/adapter/extractor"
	"docsearch/internal/domain"
)

type stubExtractor struct {
	fileType domain.FileType
	units    []domain.TextUnit
	err      error
}

func (s stubExtractor) Extract(string) ([]domain.TextUnit, error) { return s.units, s.err }
func (s stubExtractor) FileType() domain.FileType                 { return s.fileType }

func TestProcess_WorkbookWithoutSheets(t *testing.T) {
	registry := extractor.NewRegistry()
	registry.Register(".xlsx", stubExtractor{fileType: domain.FileTypeExcel, err: extractor.ErrNoSheets})

	out := NewFileProcessor(registry).Process("/tmp/empty.xlsx", []string{"x"}, 240)

	assert.Equal(t, domain.StatusWarning, out.Result.Status)
	assert.Equal(t, domain.FileTypeExcel, out.Result.FileType)
	assert.Equal(t, "Excel file has no sheets.", out.Result.ErrorDetail)
	assert.Zero(t, out.Result.TotalMatchCount)
	assert.NotNil(t, out.Result.Matches)
	assert.Empty(t, out.Result.Matches)
	assert.Equal(t, []string{"File: 'empty.xlsx' (Excel) -> Warning: Excel file has no sheets."}, out.Problems)
	assert.Empty(t, out.Findings)
}

func TestGenerate_WorkbookWithoutSheets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nosheets.xls", "stub")

	registry := extractor.NewRegistry()
	registry.Register(".xls", stubExtractor{fileType: domain.FileTypeExcel, err: extractor.ErrNoSheets})

	report, err := newReportUseCase(registry).Generate(context.Background(), dir, []string{"x"}, 240)
	require.NoError(t, err)

	sum := report.Structured.Summary
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, sum.WithProblems)

	require.Len(t, report.Structured.Results, 1)
	assert.Equal(t, domain.StatusWarning, report.Structured.Results[0].Status)
	assert.Contains(t, report.Text, "File: 'nosheets.xls' (Excel) -> Warning: Excel file has no sheets.")
}

func TestWarningDetail(t *testing.T) {
	tests := []struct {
		fileType domain.FileType
		err      error
		want     string
		ok       bool
	}{
		{domain.FileTypeExcel, extractor.ErrNoSheets, "Excel file has no sheets.", true},
		{domain.FileTypeExcel, fmt.Errorf("wrapped: %w", extractor.ErrNoSheets), "Excel file has no sheets.", true},
		{domain.FileTypeExcel, extractor.ErrEmptyDocument, "Excel file has no data in any sheet.", true},
		{domain.FileTypeTXT, extractor.ErrEmptyDocument, "Text file is empty.", true},
		{domain.FileTypePDF, extractor.ErrEmptyDocument, "File is empty or has no extractable text.", true},
		{domain.FileTypeDOCX, extractor.ErrEmptyDocument, "File is empty or has no extractable text.", true},
		{domain.FileTypePDF, errors.New("bad xref"), "", false},
	}

	for _, tt := range tests {
		got, ok := warningDetail(tt.fileType, tt.err)
		assert.Equal(t, tt.ok, ok, "%s %v", tt.fileType, tt.err)
		assert.Equal(t, tt.want, got, "%s %v", tt.fileType, tt.err)
	}
}

func TestProcess_UnitsWithoutLabel(t *testing.T) {
	registry := extractor.NewRegistry()
	registry.Register(".docx", stubExtractor{
		fileType: domain.FileTypeDOCX,
		units:    []domain.TextUnit{{Content: "Alpha and alpha"}},
	})

	out := NewFileProcessor(registry).Process("/tmp/memo.docx", []string{"alpha"}, 0)

	assert.Equal(t, domain.StatusSuccess, out.Result.Status)
	assert.Equal(t, 2, out.Result.TotalMatchCount)
	require.Len(t, out.Result.Matches, 1)
	assert.Equal(t, []string{">>>Alpha<<<", ">>>alpha<<<"}, out.Result.Matches[0].Snippets)
}
