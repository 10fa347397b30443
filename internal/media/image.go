package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // accept PNG sources, re-encode as JPEG

	"golang.org/x/image/draw"

	"github.com/peakform/trainsync/internal/errs"
)

// Recompression bounds. Each downscale shrinks both dimensions by
// scaleFactor and re-attempts the full quality ladder.
var qualityLadder = []int{85, 70, 55, 40, 25}

const (
	maxScaleAttempts = 4
	scaleNum         = 7
	scaleDen         = 10
)

// shrinkJPEG returns a JPEG payload no larger than ceiling, recompressing
// and downscaling as needed. Payloads already under the ceiling pass through
// untouched. errs.ErrMediaTooLarge is returned when the bounded attempts are
// exhausted.
func shrinkJPEG(data []byte, ceiling int) ([]byte, error) {
	if len(data) <= ceiling {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	for attempt := 0; attempt <= maxScaleAttempts; attempt++ {
		for _, q := range qualityLadder {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
				return nil, fmt.Errorf("encode image: %w", err)
			}
			if buf.Len() <= ceiling {
				return buf.Bytes(), nil
			}
		}
		if attempt == maxScaleAttempts {
			break
		}
		img = downscale(img)
		if img.Bounds().Dx() < 1 || img.Bounds().Dy() < 1 {
			break
		}
	}
	return nil, fmt.Errorf("%w: still over %d bytes after %d downscales", errs.ErrMediaTooLarge, ceiling, maxScaleAttempts)
}

func downscale(src image.Image) image.Image {
	b := src.Bounds()
	w := b.Dx() * scaleNum / scaleDen
	h := b.Dy() * scaleNum / scaleDen
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
