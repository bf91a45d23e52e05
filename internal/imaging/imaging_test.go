package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 40, 40, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func TestProcessOutputsJPEG(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": encodeJPEG(t, 100, 80),
		"png":  encodePNG(t, 100, 80),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := Process(data)
			require.NoError(t, err)
			assert.Equal(t, "image/jpeg", res.MIME)
			assert.Equal(t, 100, res.Width)
			assert.Equal(t, 80, res.Height)
		})
	}
}

func TestProcessDownscalesPreservingAspect(t *testing.T) {
	res, err := Process(encodeJPEG(t, 2048, 1024))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, res.Width)
	assert.Equal(t, 512, res.Height)

	img, _, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
}

func TestProcessTallImage(t *testing.T) {
	res, err := Process(encodePNG(t, 300, 3000))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, res.Height)
	assert.Equal(t, 102, res.Width)
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, err := Process([]byte("GIF89a not really"))
	assert.ErrorContains(t, err, "unsupported image format")

	_, err = Process([]byte("plain text"))
	assert.Error(t, err)
}
