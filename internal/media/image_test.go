package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blacktop/skymirror/internal/mirror"
)

func noiseImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeSmallPNGPassesThroughUnmodified(t *testing.T) {
	data := encodePNG(t, noiseImage(10, 10))

	got, err := NewImageNormalizer().Normalize(data)
	require.NoError(t, err)
	require.Equal(t, "image/png", got.MIME)
	require.Equal(t, data, got.Bytes)
	require.EqualValues(t, 10, got.Width)
	require.EqualValues(t, 10, got.Height)
}

func TestNormalizeGIFReencodedToJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, noiseImage(16, 16), nil))

	got, err := NewImageNormalizer().Normalize(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", got.MIME)
	require.LessOrEqual(t, len(got.Bytes), DefaultMaxImageBytes)
}

func TestNormalizeQualityLadderFitsBudget(t *testing.T) {
	// A noisy jpeg at high quality blows a tight budget; the ladder has to
	// find a quality that fits.
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noiseImage(64, 64), &jpeg.Options{Quality: 100}))
	budget := buf.Len() * 6 / 10

	n := &ImageNormalizer{MaxBytes: budget}
	got, err := n.Normalize(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", got.MIME)
	require.LessOrEqual(t, len(got.Bytes), budget)
}

func TestNormalizeSizeUnsatisfiableAtFloor(t *testing.T) {
	data := encodePNG(t, noiseImage(64, 64))

	n := &ImageNormalizer{MaxBytes: 50} // below any jpeg's framing overhead
	_, err := n.Normalize(data)

	var unsat mirror.SizeUnsatisfiable
	require.ErrorAs(t, err, &unsat)
	require.Equal(t, mirror.MediaImage, unsat.Kind)
	require.Equal(t, 50, unsat.MaxBytes)
}

func TestNormalizeUndecodableInput(t *testing.T) {
	_, err := NewImageNormalizer().Normalize([]byte("definitely not an image"))

	var transcode mirror.TranscodeError
	require.ErrorAs(t, err, &transcode)
}
