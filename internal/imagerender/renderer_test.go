package imagerender

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.RGBA{R: 200, A: 255})
			}
		}
	}
	return img
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 40, JPEGQuality(0.4))
	assert.Equal(t, 100, JPEGQuality(1))
	assert.Equal(t, 1, JPEGQuality(0))
	assert.Equal(t, 100, JPEGQuality(3))
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, w, h, err := EncodeJPEG(checker(64, 32), 0.65)
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, w, h), img.Bounds())
}

func TestBase64(t *testing.T) {
	enc := EncodeToBase64([]byte("abc"))
	assert.Equal(t, "YWJj", enc)
}
