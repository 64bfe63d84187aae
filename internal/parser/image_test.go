package parser

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOCR returns a fixed text/confidence pair regardless of image content,
// so parser tests can assert on OCR wiring without a real recognition
// engine.
type stubOCR struct {
	text       string
	confidence float64
}

func (s stubOCR) Recognize(image.Image) (string, float64) {
	return s.text, s.confidence
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageParser_UsesInstalledOCRBackend(t *testing.T) {
	t.Parallel()

	p := (&ImageParser{}).WithOCR(stubOCR{text: "Total: $42.00", confidence: 0.95})
	result, err := p.Parse(samplePNG(t), "image/png", "")
	require.NoError(t, err)

	assert.Equal(t, "Total: $42.00", result.Text)
	require.Len(t, result.Pages, 1)
	assert.Equal(t, "ocr", result.Pages[0].ExtractionMethod)
	assert.Equal(t, 0.95, result.Pages[0].OCRConfidence)
}

func TestImageParser_EmptyOCRTextYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	// Without a real recognition engine installed, the offline heuristic
	// never extracts text: the parser must not fabricate content, leaving
	// the pipeline's zero-fragment check to fail the job.
	p := (&ImageParser{}).WithOCR(heuristicOCR{})
	result, err := p.Parse(samplePNG(t), "image/png", "")
	require.NoError(t, err)

	assert.Equal(t, "", result.Text)
}

func TestImageParser_SupportsKnownRasterTypes(t *testing.T) {
	t.Parallel()

	p := &ImageParser{}
	assert.True(t, p.Supports("image/jpeg"))
	assert.True(t, p.Supports("image/png"))
	assert.False(t, p.Supports("application/pdf"))
}
