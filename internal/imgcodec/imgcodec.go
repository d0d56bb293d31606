// Package imgcodec downsizes and re-encodes user-supplied raster images into
// small string payloads that fit inside a size-limited store document.
//
// The store caps documents at roughly 1 MB while phone camera originals run
// 3–5 MB, so every photo is scaled down and re-encoded as lossy JPEG before
// it gets anywhere near a document write.
package imgcodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"

	// Register decoders for the formats phone galleries actually produce.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// MaxWidth is the pixel width ceiling; taller-than-wide images keep
	// their aspect ratio and are bounded by width only.
	MaxWidth = 800

	// Quality is the JPEG quality factor used for re-encoding.
	Quality = 70

	// MaxEncodedLen is the largest encoded payload safe to store inside a
	// document. Exceeding it is not an encode error — whether to skip the
	// file is the caller's policy, checked via FitsDocument.
	MaxEncodedLen = 900_000

	payloadPrefix = "data:image/jpeg;base64,"
)

// EncodeJPEG decodes an arbitrary raster image from r, scales it to at most
// MaxWidth pixels wide preserving aspect ratio, and returns it as a
// base64 data-URL JPEG payload.
//
// The reader is fully consumed by the decode; callers that hand in an open
// file should close it as soon as EncodeJPEG returns, success or not, to
// bound peak memory across back-to-back uploads. Decode failures are
// returned as errors; this function never panics on malformed input.
func EncodeJPEG(r io.Reader) (string, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("imgcodec.EncodeJPEG: decode: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > MaxWidth {
		height = int(math.Round(float64(height) * MaxWidth / float64(width)))
		width = MaxWidth
	}

	// Re-draw even when no resize is needed so exotic source color models
	// (CMYK JPEG, paletted GIF) all funnel through one RGBA encode path.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return "", fmt.Errorf("imgcodec.EncodeJPEG: encode: %w", err)
	}

	return payloadPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FitsDocument reports whether an encoded payload is small enough to persist
// inside a single store document.
func FitsDocument(payload string) bool {
	return len(payload) <= MaxEncodedLen
}
