// Package parser decodes an opaque byte blob plus MIME type into
// normalised UTF-8 text, per-page metadata, and a detected document class.
package parser

import (
	"fmt"
	"strings"

	"expenseindex/internal/apperr"
	"expenseindex/internal/model"
)

// Page is one page (or sheet, for tabular formats) of extracted text.
type Page struct {
	PageNumber      int
	Text            string
	CharCount       int
	ExtractionMethod string
	OCRConfidence   float64
}

// Result is the parser's output: the canonical text downstream consumers
// read, plus traceability metadata.
type Result struct {
	Text             string
	Pages            []Page
	Metadata         map[string]any
	ProcessingMethod string
	Class            model.DocumentClass
}

// Parser decodes raw bytes of a known MIME type into text.
type Parser interface {
	// Supports reports whether this parser handles mimeType.
	Supports(mimeType string) bool
	// Parse extracts text and metadata. filenameHint, if non-empty, is used
	// only for document classification, never for format detection.
	Parse(data []byte, mimeType, filenameHint string) (Result, error)
}

// Registry dispatches to the first Parser that supports a MIME type.
type Registry struct {
	parsers []Parser
	pdf     *PDFParser
	img     *ImageParser
}

// NewRegistry builds a Registry with the default set of parsers: PDF,
// raster images, office documents, and plain text/CSV/JSON.
func NewRegistry() *Registry {
	pdf := &PDFParser{}
	img := &ImageParser{}
	return &Registry{
		parsers: []Parser{pdf, img, &OfficeParser{}, &TextParser{}},
		pdf:     pdf,
		img:     img,
	}
}

// WithOCR installs ocr as the backend for every OCR-capable parser in the
// registry: whole-image formats and the PDF raster fallback.
func (r *Registry) WithOCR(ocr OCR) *Registry {
	r.pdf.WithOCR(ocr)
	r.img.WithOCR(ocr)
	return r
}

// Supports reports whether any registered parser handles mimeType.
func (r *Registry) Supports(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, p := range r.parsers {
		if p.Supports(mimeType) {
			return true
		}
	}
	return false
}

// Parse routes data to the parser that supports mimeType, then classifies
// the resulting text into a DocumentClass.
func (r *Registry) Parse(data []byte, mimeType, filenameHint string) (Result, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, p := range r.parsers {
		if !p.Supports(mimeType) {
			continue
		}
		res, err := p.Parse(data, mimeType, filenameHint)
		if err != nil {
			return Result{}, err
		}
		res.Class = Classify(filenameHint, res.Text)
		return res, nil
	}
	return Result{}, apperr.Wrap(apperr.KindUnsupportedType,
		fmt.Sprintf("no parser registered for mime type %q", mimeType), nil)
}
