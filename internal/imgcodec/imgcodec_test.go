package imgcodec_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolin/travellog/backend/internal/imgcodec"
)

// pngImage renders a width×height PNG with a simple gradient so the JPEG
// encoder has real content to chew on.
func pngImage(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

// decodePayload strips the data-URL prefix and decodes the embedded JPEG.
func decodePayload(t *testing.T, payload string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(payload, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, prefix))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestEncodeJPEG_DownscalesWideImage(t *testing.T) {
	payload, err := imgcodec.EncodeJPEG(pngImage(t, 1600, 1200))
	require.NoError(t, err)

	img := decodePayload(t, payload)
	assert.Equal(t, imgcodec.MaxWidth, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy(), "aspect ratio preserved")
}

func TestEncodeJPEG_SmallImageNotUpscaled(t *testing.T) {
	payload, err := imgcodec.EncodeJPEG(pngImage(t, 320, 240))
	require.NoError(t, err)

	img := decodePayload(t, payload)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestEncodeJPEG_PortraitBoundedByWidth(t *testing.T) {
	payload, err := imgcodec.EncodeJPEG(pngImage(t, 1000, 2000))
	require.NoError(t, err)

	img := decodePayload(t, payload)
	assert.Equal(t, imgcodec.MaxWidth, img.Bounds().Dx())
	assert.Equal(t, 1600, img.Bounds().Dy())
}

func TestEncodeJPEG_GarbageInput(t *testing.T) {
	_, err := imgcodec.EncodeJPEG(strings.NewReader("not an image at all"))
	assert.Error(t, err)
}

func TestEncodeJPEG_TypicalPhotoFitsDocument(t *testing.T) {
	payload, err := imgcodec.EncodeJPEG(pngImage(t, 4000, 3000))
	require.NoError(t, err)

	assert.True(t, imgcodec.FitsDocument(payload))
}

func TestFitsDocument_Ceiling(t *testing.T) {
	assert.True(t, imgcodec.FitsDocument(strings.Repeat("a", imgcodec.MaxEncodedLen)))
	assert.False(t, imgcodec.FitsDocument(strings.Repeat("a", imgcodec.MaxEncodedLen+1)))
}
