package compose

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeJPEG produces JPEG bytes for a solid color image.
func encodeJPEG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, imaging.Encode(buf, imaging.New(w, h, c), imaging.JPEG, imaging.JPEGQuality(95)))
	return buf.Bytes()
}

func TestOverlaySize(t *testing.T) {
	w, h := OverlaySize(1000, 1333)
	assert.Equal(t, 300, w)
	assert.Equal(t, 399, h)
}

func TestCombine(t *testing.T) {
	blue := color.NRGBA{B: 200, A: 255}
	red := color.NRGBA{R: 200, A: 255}

	primary := encodeJPEG(t, 600, 800, blue)
	secondary := encodeJPEG(t, 600, 800, red)

	out, err := Combine(primary, secondary)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	t.Run("output is jpeg at primary resolution", func(t *testing.T) {
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 600, img.Bounds().Dx())
		assert.Equal(t, 800, img.Bounds().Dy())
	})

	overlayW, overlayH := OverlaySize(600, 800)

	t.Run("overlay center shows secondary", func(t *testing.T) {
		r, _, b, _ := img.At(PositionX+overlayW/2, PositionY+overlayH/2).RGBA()
		assert.Greater(t, r>>8, uint32(120), "expected red-dominant overlay pixel")
		assert.Less(t, b>>8, uint32(120))
	})

	t.Run("overlay corner shows black outline", func(t *testing.T) {
		// The mask cuts the secondary's square corner, leaving the
		// outline layer visible at the overlay's top-left pixel.
		r, g, b, _ := img.At(PositionX, PositionY).RGBA()
		assert.Less(t, r>>8, uint32(60))
		assert.Less(t, g>>8, uint32(60))
		assert.Less(t, b>>8, uint32(60))
	})

	t.Run("canvas outside overlay shows primary", func(t *testing.T) {
		_, _, b, _ := img.At(5, 5).RGBA()
		assert.Greater(t, b>>8, uint32(120), "expected blue-dominant primary pixel")
	})
}

func TestCombine_OversizedOverlayClips(t *testing.T) {
	// Secondary larger than the primary: no bounds error, drawing clips.
	primary := encodeJPEG(t, 100, 100, color.NRGBA{B: 200, A: 255})
	secondary := encodeJPEG(t, 1200, 1200, color.NRGBA{R: 200, A: 255})

	out, err := Combine(primary, secondary)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestCombine_Errors(t *testing.T) {
	good := encodeJPEG(t, 100, 100, color.NRGBA{A: 255})

	t.Run("bad primary", func(t *testing.T) {
		_, err := Combine([]byte("junk"), good)
		assert.ErrorIs(t, err, ErrComposition)
	})

	t.Run("bad secondary", func(t *testing.T) {
		_, err := Combine(good, []byte("junk"))
		assert.ErrorIs(t, err, ErrComposition)
	})
}
