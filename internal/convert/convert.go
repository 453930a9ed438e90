// Package convert re-encodes still images from the export's WebP container
// into JPEG. Videos and images already in JPEG pass through untouched.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// JPEGQuality is the fixed quality used for every JPEG this tool writes.
const JPEGQuality = 85

// ErrConversion is returned when image bytes cannot be decoded or re-encoded.
// Callers log it and keep the original bytes; it is never fatal.
var ErrConversion = errors.New("image conversion failed")

// ToJPEG converts WebP image bytes to JPEG at quality 85.
//
// Images already in JPEG, and formats other than WebP, are returned unchanged
// with wasConverted=false. Alpha or palette channels are flattened to plain
// RGB; no explicit background color is applied, the encoder's default
// compositing is accepted.
func ToJPEG(data []byte, name string) ([]byte, bool, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false, fmt.Errorf("%w: decode %s: %w", ErrConversion, name, err)
	}

	if format != "webp" {
		return data, false, nil
	}

	// Clone normalizes any source color model (palette, alpha) to NRGBA;
	// the JPEG encoder then discards the alpha channel.
	flat := imaging.Clone(img)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, flat, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return data, false, fmt.Errorf("%w: encode %s: %w", ErrConversion, name, err)
	}

	return buf.Bytes(), true, nil
}
