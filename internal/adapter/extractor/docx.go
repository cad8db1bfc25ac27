package extractor

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"docsearch/internal/domain"
)

// maxXMLDepth bounds element nesting in document.xml.
const maxXMLDepth = 256

// DocxExtractor yields the raw visible text of a Word document as one unit.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) FileType() domain.FileType {
	return domain.FileTypeDOCX
}

func (e *DocxExtractor) Extract(path string) ([]domain.TextUnit, error) {
	text, err := docxRawText(path)
	if err != nil {
		return nil, decodeError(domain.FileTypeDOCX, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	return []domain.TextUnit{{Content: text}}, nil
}

// docxRawText reads word/document.xml and returns its paragraphs separated by
// blank lines. Only w:t runs contribute text; w:tab and w:br/w:cr become
// whitespace.
func docxRawText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		out       strings.Builder
		paragraph strings.Builder
		depth     int
		runDepth  int
		inText    bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", fmt.Errorf("document.xml exceeds nesting depth %d", maxXMLDepth)
			}
			// tab also names the tab stops of paragraph properties; only
			// tabs and breaks inside a run are content.
			switch t.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if runDepth > 0 {
					paragraph.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					paragraph.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}

		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				out.WriteString(paragraph.String())
				out.WriteString("\n\n")
				paragraph.Reset()
			}
		}
	}

	return out.String(), nil
}
