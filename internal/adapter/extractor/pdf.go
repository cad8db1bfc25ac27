package extractor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docsearch/internal/domain"
)

var disableConfigDir sync.Once

// PDFExtractor yields one text unit per page that carries text.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) FileType() domain.FileType {
	return domain.FileTypePDF
}

// Extract decodes the PDF and joins the text runs of each page with single
// spaces. Pages without text are skipped; a PDF with no text at all returns
// ErrEmptyDocument.
func (e *PDFExtractor) Extract(path string) ([]domain.TextUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, decodeError(domain.FileTypePDF, err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, pdfConfiguration())
	if err != nil {
		return nil, decodeError(domain.FileTypePDF, err)
	}

	fonts := make(map[int]*fontDecoder)
	return collectPages(ctx.PageCount, func(pageNr int) (string, error) {
		return pageText(ctx, pageNr, fonts)
	})
}

// collectPages turns pages 1..count into labelled units. Blank pages are
// skipped. It fails only when every page failed to decode.
func collectPages(count int, text func(pageNr int) (string, error)) ([]domain.TextUnit, error) {
	var (
		units   []domain.TextUnit
		failed  int
		lastErr error
	)
	for pageNr := 1; pageNr <= count; pageNr++ {
		content, err := text(pageNr)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		units = append(units, domain.TextUnit{
			Label:   fmt.Sprintf("page %d", pageNr),
			Content: content,
		})
	}

	if count > 0 && failed == count {
		return nil, decodeError(domain.FileTypePDF, fmt.Errorf("no page could be decoded: %w", lastErr))
	}
	if len(units) == 0 {
		return nil, ErrEmptyDocument
	}
	return units, nil
}

func pdfConfiguration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pageText returns the text runs of one page. A page without a content
// stream is blank; a content stream that cannot be read is an error.
func pageText(ctx *model.Context, pageNr int, fontCache map[int]*fontDecoder) (string, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", pageNr, err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", pageNr, err)
	}
	if len(data) == 0 {
		return "", nil
	}
	runs := textRuns(data, pageFonts(ctx, pageNr, fontCache))
	return strings.TrimSpace(strings.Join(runs, " ")), nil
}
