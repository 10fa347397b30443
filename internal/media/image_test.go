package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// noisyImage builds an image that compresses poorly, so its JPEG encoding
// lands well above small ceilings.
func noisyImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255})
		}
	}
	return img
}

func TestShrinkJPEG_RecompressesUnderCeiling(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, noisyImage(120, 120), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	src := buf.Bytes()

	ceiling := len(src) / 2
	out, err := shrinkJPEG(src, ceiling)
	if err != nil {
		t.Fatalf("shrinkJPEG: %v", err)
	}
	if len(out) > ceiling {
		t.Fatalf("result %d bytes over ceiling %d", len(out), ceiling)
	}
	if _, _, err := image.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("result not a decodable image: %v", err)
	}
}

func TestShrinkJPEG_AcceptsPNGSource(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := png.Encode(&buf, noisyImage(64, 64)); err != nil {
		t.Fatal(err)
	}
	src := buf.Bytes()

	out, err := shrinkJPEG(src, len(src)-1)
	if err != nil {
		t.Fatalf("shrinkJPEG: %v", err)
	}
	if len(out) >= len(src) {
		t.Fatalf("png source not re-encoded smaller: %d -> %d", len(src), len(out))
	}
}

func TestShrinkJPEG_RejectsGarbage(t *testing.T) {
	t.Parallel()
	if _, err := shrinkJPEG([]byte("not an image, definitely over the ceiling"), 4); err == nil {
		t.Fatal("want decode error")
	}
}
