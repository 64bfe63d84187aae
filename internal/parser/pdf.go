package parser

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"expenseindex/internal/apperr"
)

// PDFParser extracts text per page, falling back to raster+OCR on pages
// where direct text extraction yields nothing.
type PDFParser struct {
	ocr OCR
}

// WithOCR overrides the OCR backend used for pages with no extractable text.
func (p *PDFParser) WithOCR(ocr OCR) *PDFParser {
	p.ocr = ocr
	return p
}

func (p *PDFParser) ocrBackend() OCR {
	if p.ocr != nil {
		return p.ocr
	}
	return DefaultOCR
}

func (p *PDFParser) Supports(mimeType string) bool {
	return mimeType == "application/pdf"
}

func (p *PDFParser) Parse(data []byte, _ string, _ string) (Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "open pdf", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	pages := make([]Page, 0, numPages)
	var textBuilder strings.Builder

	for i := 0; i < numPages; i++ {
		pageText, _ := doc.Text(i)
		pageText = strings.TrimSpace(pageText)
		method := "text_extraction"
		confidence := 0.0

		if pageText == "" {
			img, imgErr := doc.Image(i)
			if imgErr == nil {
				recognized, conf := p.ocrBackend().Recognize(img)
				pageText = strings.TrimSpace(recognized)
				confidence = conf
				method = "ocr_fallback"
			}
		}

		pages = append(pages, Page{
			PageNumber:       i + 1,
			Text:             pageText,
			CharCount:        len(pageText),
			ExtractionMethod: method,
			OCRConfidence:    confidence,
		})
		if pageText != "" {
			textBuilder.WriteString(pageText)
			if i < numPages-1 {
				textBuilder.WriteString("\n\n")
			}
		}
	}

	return Result{
		Text:             strings.TrimSpace(textBuilder.String()),
		Pages:            pages,
		Metadata:         map[string]any{"page_count": numPages},
		ProcessingMethod: fmt.Sprintf("pdf(%d pages)", numPages),
	}, nil
}
