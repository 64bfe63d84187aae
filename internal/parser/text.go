package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var textMIMETypes = map[string]bool{
	"text/plain":       true,
	"text/csv":         true,
	"application/json": true,
}

// TextParser decodes plain text, CSV, and JSON bodies as UTF-8, falling
// back to Latin-1 when the bytes are not valid UTF-8.
type TextParser struct{}

func (p *TextParser) Supports(mimeType string) bool {
	return textMIMETypes[mimeType]
}

func (p *TextParser) Parse(data []byte, mimeType, _ string) (Result, error) {
	text, method := decodeText(data)
	return Result{
		Text:             strings.TrimSpace(text),
		Pages:            []Page{{PageNumber: 1, Text: text, CharCount: len(text), ExtractionMethod: method}},
		Metadata:         map[string]any{"decoding": method},
		ProcessingMethod: fmt.Sprintf("text(%s)", mimeType),
	}, nil
}

func decodeText(data []byte) (text string, method string) {
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), "utf-8"
	}
	return string(decoded), "latin-1"
}
