package parser

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicOCR_NeverRecognisesText(t *testing.T) {
	t.Parallel()

	img := checkerboard(40, 40)
	text, confidence := heuristicOCR{}.Recognize(img)

	// Documents the known limitation: the offline fallback never produces
	// text, only a sharpness proxy. Any page routed through it alone ends
	// up with zero extracted text.
	assert.Equal(t, "", text)
	assert.Greater(t, confidence, 0.0)
}

func TestHeuristicOCR_EmptyImageYieldsZeroConfidence(t *testing.T) {
	t.Parallel()

	text, confidence := heuristicOCR{}.Recognize(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Equal(t, "", text)
	assert.Equal(t, 0.0, confidence)
}

func TestHeuristicOCR_NilImage(t *testing.T) {
	t.Parallel()

	text, confidence := heuristicOCR{}.Recognize(nil)
	assert.Equal(t, "", text)
	assert.Equal(t, 0.0, confidence)
}

// checkerboard builds a high-contrast test image so the sharpness proxy
// reports a non-zero confidence.
func checkerboard(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}
