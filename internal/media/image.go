package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/mirror"
)

const (
	// DefaultMaxImageBytes is the destination's per-image upload ceiling.
	DefaultMaxImageBytes = 1_000_000

	qualityStart = 90
	qualityFloor = 10
	qualityStep  = 10
)

// ImageNormalizer brings an image buffer within the destination's byte and
// format budget. Already-acceptable jpeg/png buffers pass through untouched;
// everything else is re-encoded to jpeg on a descending quality ladder.
type ImageNormalizer struct {
	MaxBytes int
}

// NewImageNormalizer constructs a normalizer with the default byte budget.
func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{MaxBytes: DefaultMaxImageBytes}
}

// Normalize returns a buffer guaranteed to be at most MaxBytes and encoded
// as jpeg or png, or fails. It never returns an oversized buffer: when the
// quality floor still misses the budget the result is SizeUnsatisfiable.
func (n *ImageNormalizer) Normalize(data []byte) (mirror.NormalizedMedia, error) {
	max := n.MaxBytes
	if max <= 0 {
		max = DefaultMaxImageBytes
	}

	mime := detectMIME(data)
	if (mime == "image/jpeg" || mime == "image/png") && len(data) <= max {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaImage, Err: fmt.Errorf("decode config: %w", err)}
		}
		return mirror.NormalizedMedia{
			Kind:   mirror.MediaImage,
			Bytes:  data,
			MIME:   mime,
			Width:  int64(cfg.Width),
			Height: int64(cfg.Height),
		}, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaImage, Err: fmt.Errorf("decode %s: %w", mime, err)}
	}
	logutil.Debugf("re-encoding %s image (%d bytes) to jpeg", format, len(data))

	bounds := img.Bounds()
	lastSize := len(data)
	for quality := qualityStart; quality >= qualityFloor; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaImage, Err: fmt.Errorf("encode jpeg q=%d: %w", quality, err)}
		}
		lastSize = buf.Len()
		if lastSize > max {
			continue
		}
		logutil.Debugf("image fits at q=%d: %d bytes", quality, lastSize)
		return mirror.NormalizedMedia{
			Kind:   mirror.MediaImage,
			Bytes:  buf.Bytes(),
			MIME:   "image/jpeg",
			Width:  int64(bounds.Dx()),
			Height: int64(bounds.Dy()),
		}, nil
	}

	return mirror.NormalizedMedia{}, mirror.SizeUnsatisfiable{Kind: mirror.MediaImage, Size: lastSize, MaxBytes: max}
}

func detectMIME(data []byte) string {
	return http.DetectContentType(data)
}
