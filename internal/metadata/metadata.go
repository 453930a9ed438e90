// Package metadata embeds capture metadata into output media: EXIF for
// images, container-level tags for videos. Both paths degrade to the
// unmodified input on failure; losing metadata is never worth losing media.
package metadata

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/manifest"
)

// Static provenance strings written to every output.
const (
	// SourceApp identifies the app that captured the media.
	SourceApp = "BeReal app"
	// OriginatingProgram identifies this tool.
	OriginatingProgram = "github/bereal-gdpr-photo-toolkit"
)

// exifTimeFormat is the timestamp layout EXIF mandates.
const exifTimeFormat = "2006:01:02 15:04:05"

// ErrMetadata is returned when metadata cannot be embedded. Callers keep the
// unmodified media bytes; it is never fatal.
var ErrMetadata = errors.New("metadata injection failed")

// Take carries the capture metadata of one manifest entry.
type Take struct {
	TakenAt  time.Time
	Location *manifest.Location
	Caption  string
}

// ISO6709 formats a coordinate pair in the compact ISO-6709 form used by
// QuickTime-style container tags: ±DD.DDDD±DDD.DDDD/
func ISO6709(lat, lon float64) string {
	return fmt.Sprintf("%+08.4f%+09.4f/", lat, lon)
}

// latRef returns the EXIF hemisphere reference for a latitude.
func latRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

// lonRef returns the EXIF hemisphere reference for a longitude.
func lonRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}

// dms splits a coordinate magnitude into degrees, minutes, and hundredths of
// seconds. Degrees and minutes truncate; the residual is scaled to seconds
// and rounded to two decimal digits, stored as an integer over 100.
func dms(v float64) (deg, min, secTimes100 uint32) {
	v = math.Abs(v)
	deg = uint32(v)
	rem := (v - float64(deg)) * 60
	min = uint32(rem)
	secTimes100 = uint32(math.Round((rem - float64(min)) * 60 * 100))
	return deg, min, secTimes100
}
