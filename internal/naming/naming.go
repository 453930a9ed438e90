// Package naming derives deterministic output filenames from capture
// timestamp, media role, and run settings.
//
// The engine performs no de-duplication: two entries captured at the same
// second with the same role produce the same name, and the later output
// overwrites the earlier one. That matches the original tool's behavior.
package naming

import (
	"path"
	"strings"
	"time"
)

// Role identifies which capture of an entry a file belongs to.
type Role string

const (
	// RolePrimary is the back-camera capture.
	RolePrimary Role = "primary"
	// RoleSecondary is the front-camera capture.
	RoleSecondary Role = "secondary"
	// RoleBTS is the behind-the-scenes video.
	RoleBTS Role = "bts"
	// RoleCombined is the composited picture-in-picture image.
	RoleCombined Role = "combined"
)

// timeLayout formats timestamps with hyphens instead of colons for
// filesystem safety.
const timeLayout = "2006-01-02T15-04-05"

// Filename derives the output name for one media file.
//
// With keepOriginalFilename the original basename is appended, its extension
// rewritten to .jpg when the file was converted. Otherwise the name is
// timestamp and role only, with .jpg whenever the file was converted or the
// run converts images globally, else the original extension.
func Filename(takenAt time.Time, role Role, originalName string, converted, convertToJPEG, keepOriginalFilename bool) string {
	ts := takenAt.Format(timeLayout)

	if keepOriginalFilename {
		base := path.Base(originalName)
		if converted {
			base = strings.TrimSuffix(base, path.Ext(base)) + ".jpg"
		}
		return ts + "_" + string(role) + "_" + base
	}

	if converted || convertToJPEG {
		return ts + "_" + string(role) + ".jpg"
	}
	return ts + "_" + string(role) + path.Ext(originalName)
}

// CombinedFilename derives the output name for a combined image.
func CombinedFilename(takenAt time.Time) string {
	return takenAt.Format(timeLayout) + "_combined.jpg"
}
