package parser

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"expenseindex/internal/apperr"
)

var officeMIMETypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
}

// OfficeParser extracts paragraphs from Word documents and flattens
// spreadsheet rows (tab-separated within a row, newline-separated between
// rows) from Excel documents.
type OfficeParser struct{}

func (p *OfficeParser) Supports(mimeType string) bool {
	return officeMIMETypes[mimeType]
}

func (p *OfficeParser) Parse(data []byte, mimeType, _ string) (Result, error) {
	switch mimeType {
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return p.parseDocx(data)
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return p.parseSpreadsheet(data)
	default:
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "unrecognised office mime type: "+mimeType, nil)
	}
}

// parseDocx shells out to a temp file because nguyenthenguyen/docx only
// reads from the filesystem or an io.ReaderAt with known size; a temp file
// is the simplest way to satisfy both without vendoring its zip-reading
// internals.
func (p *OfficeParser) parseDocx(data []byte) (Result, error) {
	tmp, err := os.CreateTemp("", "expenseindex-docx-*.docx")
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "create temp file for docx", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "write temp docx", err)
	}

	doc, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "open docx", err)
	}
	defer doc.Close()

	text := strings.TrimSpace(doc.Editable().GetContent())
	return Result{
		Text:             text,
		Pages:            []Page{{PageNumber: 1, Text: text, CharCount: len(text), ExtractionMethod: "docx_extraction"}},
		Metadata:         map[string]any{},
		ProcessingMethod: "docx",
	}, nil
}

func (p *OfficeParser) parseSpreadsheet(data []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "open spreadsheet", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	pages := make([]Page, 0, len(sheets))
	var all strings.Builder

	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		var sb strings.Builder
		for r, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			if r < len(rows)-1 {
				sb.WriteString("\n")
			}
		}
		sheetText := sb.String()
		pages = append(pages, Page{
			PageNumber:       i + 1,
			Text:             sheetText,
			CharCount:        len(sheetText),
			ExtractionMethod: "table_flatten",
		})
		if sheetText != "" {
			all.WriteString(sheetText)
			all.WriteString("\n\n")
		}
	}

	return Result{
		Text:             strings.TrimSpace(all.String()),
		Pages:            pages,
		Metadata:         map[string]any{"sheet_count": len(sheets)},
		ProcessingMethod: fmt.Sprintf("spreadsheet(%d sheets)", len(sheets)),
	}, nil
}
