package parser

import (
	"strings"

	"github.com/gen2brain/go-fitz"

	"expenseindex/internal/apperr"
)

var rasterMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/tiff": true,
	"image/bmp":  true,
	"image/webp": true,
}

// ImageParser OCRs raster image formats via MuPDF's image decoding (go-fitz
// opens each of these formats as a single-page document) and the
// configured OCR backend.
type ImageParser struct {
	ocr OCR
}

func (p *ImageParser) WithOCR(ocr OCR) *ImageParser {
	p.ocr = ocr
	return p
}

func (p *ImageParser) ocrBackend() OCR {
	if p.ocr != nil {
		return p.ocr
	}
	return DefaultOCR
}

func (p *ImageParser) Supports(mimeType string) bool {
	return rasterMIMETypes[mimeType]
}

func (p *ImageParser) Parse(data []byte, _ string, _ string) (Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "decode image", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnsupportedType, "rasterize image", err)
	}

	text, confidence := p.ocrBackend().Recognize(img)
	text = strings.TrimSpace(text)

	return Result{
		Text: text,
		Pages: []Page{{
			PageNumber:       1,
			Text:             text,
			CharCount:        len(text),
			ExtractionMethod: "ocr",
			OCRConfidence:    confidence,
		}},
		Metadata:         map[string]any{"ocr_confidence": confidence},
		ProcessingMethod: "image_ocr",
	}, nil
}
