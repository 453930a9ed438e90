// Package compose builds the combined picture-in-picture image from a
// primary/secondary pair, replicating the BeReal app's overlay layout: the
// secondary capture shrunk to ~30%, rounded corners, a black outline, pasted
// near the top-left corner of the primary.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/convert"
)

// Fixed layout parameters of the BeReal overlay.
const (
	// CornerRadius is the corner radius of the overlay in pixels.
	CornerRadius = 60
	// OutlineSize is the width of the black outline around the overlay.
	OutlineSize = 7
	// PositionX and PositionY are the top-left offset of the overlay
	// within the primary canvas.
	PositionX = 55
	PositionY = 55
)

// scaleDivisor shrinks the secondary image to roughly 30% linear size.
const scaleDivisor = 3.33333333

// ErrComposition is returned when a pair cannot be composed. The pair's
// individual images are kept; it is never fatal.
var ErrComposition = errors.New("image composition failed")

// OverlaySize returns the dimensions the secondary image is resized to
// before pasting.
func OverlaySize(secondaryW, secondaryH int) (int, int) {
	return int(float64(secondaryW) / scaleDivisor), int(float64(secondaryH) / scaleDivisor)
}

// Combine renders the secondary image over the primary and encodes the
// result as JPEG at quality 85.
//
// An overlay larger than the primary canvas is not an error; drawing clips
// at the canvas edge (accepted visual artifact from the original layout).
func Combine(primary, secondary []byte) ([]byte, error) {
	primImg, _, err := image.Decode(bytes.NewReader(primary))
	if err != nil {
		return nil, fmt.Errorf("%w: decode primary: %w", ErrComposition, err)
	}
	secImg, _, err := image.Decode(bytes.NewReader(secondary))
	if err != nil {
		return nil, fmt.Errorf("%w: decode secondary: %w", ErrComposition, err)
	}

	w, h := OverlaySize(secImg.Bounds().Dx(), secImg.Bounds().Dy())
	resized := imaging.Resize(secImg, w, h, imaging.Lanczos)

	canvas := imaging.Clone(primImg)

	// Outline first: a filled black rounded rectangle expanded by
	// OutlineSize on all sides, with a correspondingly larger radius.
	outlineRect := image.Rect(
		PositionX-OutlineSize,
		PositionY-OutlineSize,
		PositionX+w+OutlineSize,
		PositionY+h+OutlineSize,
	)
	fillRoundedRect(canvas, outlineRect, CornerRadius+OutlineSize, color.NRGBA{A: 255})

	// Then the masked secondary on top.
	mask := roundedMask(w, h, CornerRadius)
	overlayRect := image.Rect(PositionX, PositionY, PositionX+w, PositionY+h)
	draw.DrawMask(canvas, overlayRect, resized, image.Point{}, mask, image.Point{}, draw.Over)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, canvas, imaging.JPEG, imaging.JPEGQuality(convert.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrComposition, err)
	}
	return buf.Bytes(), nil
}

// roundedMask builds an alpha mask of the given size: opaque inside a
// rounded rectangle with the given corner radius, transparent outside.
func roundedMask(w, h, radius int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if insideRounded(x, y, w, h, radius) {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}

// fillRoundedRect paints a filled rounded rectangle onto dst. Pixels outside
// dst's bounds are silently dropped by Set.
func fillRoundedRect(dst *image.NRGBA, rect image.Rectangle, radius int, c color.NRGBA) {
	w := rect.Dx()
	h := rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if insideRounded(x, y, w, h, radius) {
				dst.SetNRGBA(rect.Min.X+x, rect.Min.Y+y, c)
			}
		}
	}
}

// insideRounded reports whether the point lies inside a w x h rounded
// rectangle with the given corner radius.
func insideRounded(x, y, w, h, radius int) bool {
	r := radius
	if r <= 0 {
		return true
	}

	// Clamp oversized radii the way a mask drawn at this size would.
	if 2*r > w {
		r = w / 2
	}
	if 2*r > h {
		r = h / 2
	}

	var cx, cy int
	switch {
	case x < r && y < r:
		cx, cy = r, r
	case x >= w-r && y < r:
		cx, cy = w-r-1, r
	case x < r && y >= h-r:
		cx, cy = r, h-r-1
	case x >= w-r && y >= h-r:
		cx, cy = w-r-1, h-r-1
	default:
		return true
	}

	dx := x - cx
	dy := y - cy
	return dx*dx+dy*dy <= r*r
}
