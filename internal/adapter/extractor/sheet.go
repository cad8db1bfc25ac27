package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"docsearch/internal/domain"
)

// SpreadsheetExtractor yields one text unit per non-blank cell, in sheet
// order then row-major order. .xls files go through the BIFF reader, every
// other extension through the OOXML reader.
type SpreadsheetExtractor struct {
	charset string
}

func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{charset: "utf-8"}
}

func (e *SpreadsheetExtractor) FileType() domain.FileType {
	return domain.FileTypeExcel
}

func (e *SpreadsheetExtractor) Extract(path string) ([]domain.TextUnit, error) {
	var (
		units  []domain.TextUnit
		sheets int
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		units, sheets, err = e.extractXLS(path)
	} else {
		units, sheets, err = extractXLSX(path)
	}
	if err != nil {
		return nil, decodeError(domain.FileTypeExcel, err)
	}

	if sheets == 0 {
		return nil, ErrNoSheets
	}
	if len(units) == 0 {
		return nil, ErrEmptyDocument
	}
	return units, nil
}

func extractXLSX(path string) ([]domain.TextUnit, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	names := f.GetSheetList()
	var units []domain.TextUnit
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, 0, fmt.Errorf("read sheet %q: %w", name, err)
		}
		for r, row := range rows {
			for c, value := range row {
				unit, ok, err := cellUnit(name, c, r, value)
				if err != nil {
					return nil, 0, err
				}
				if ok {
					units = append(units, unit)
				}
			}
		}
	}

	return units, len(names), nil
}

// extractXLS reads a legacy BIFF workbook. The reader panics on some
// malformed inputs, so panics are turned into errors here.
func (e *SpreadsheetExtractor) extractXLS(path string) (units []domain.TextUnit, sheets int, err error) {
	defer func() {
		if p := recover(); p != nil {
			units, sheets, err = nil, 0, fmt.Errorf("malformed xls: %v", p)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, e.charset)
	if err != nil {
		return nil, 0, err
	}
	if wb == nil {
		return nil, 0, fmt.Errorf("no Workbook stream")
	}

	sheets = wb.NumSheets()
	for i := 0; i < sheets; i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				unit, ok, err := cellUnit(sheet.Name, c, r, row.Col(c))
				if err != nil {
					return nil, 0, err
				}
				if ok {
					units = append(units, unit)
				}
			}
		}
	}

	return units, sheets, nil
}

// cellUnit builds the unit for a zero-based cell position; blank cells are skipped.
func cellUnit(sheet string, col, row int, value string) (domain.TextUnit, bool, error) {
	if strings.TrimSpace(value) == "" {
		return domain.TextUnit{}, false, nil
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return domain.TextUnit{}, false, err
	}
	return domain.TextUnit{
		Label:   fmt.Sprintf("sheet '%s', cell %s", sheet, ref),
		Content: value,
	}, true, nil
}
