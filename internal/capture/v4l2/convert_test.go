package v4l2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYUYVToRGBAProducesExpectedDimensions(t *testing.T) {
	width, height := 4, 2
	raw := make([]byte, width*height*2)
	for i := range raw {
		raw[i] = 128
	}
	img := yuyvToRGBA(raw, width, height)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestYUYVToRGBAFlatGrayInputYieldsNeutralPixels(t *testing.T) {
	// Y=128, U=128, V=128 decodes to an approximately neutral gray pixel.
	width, height := 2, 1
	raw := []byte{128, 128, 128, 128}
	img := yuyvToRGBA(raw, width, height)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.InDelta(t, r, g, 1<<9)
	assert.InDelta(t, g, b, 1<<9)
}

func TestToGrayConvertsRGBAImage(t *testing.T) {
	width, height := 3, 1
	raw := []byte{255, 255, 255, 255, 0, 0, 0, 0, 128, 128, 128, 128}
	src := yuyvToRGBA(raw, width, height)
	gray := toGray(src)
	assert.Equal(t, width, gray.Bounds().Dx())
	assert.Equal(t, height, gray.Bounds().Dy())
	// grayscale pixels must report equal R/G/B channels
	r, g, b, _ := gray.At(0, 0).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestYUVToRGBAWhiteAndBlack(t *testing.T) {
	white := yuvToRGBA(235, 128, 128)
	black := yuvToRGBA(16, 128, 128)
	assert.Greater(t, int(white.R), int(black.R))
}
