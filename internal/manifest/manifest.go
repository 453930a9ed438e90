// Package manifest parses the posts.json manifest of a BeReal GDPR export
// into typed entries. The loader is tolerant of missing optional fields
// (location, caption, BTS media) but strict about the required ones.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TimestampFormat is the only datetime format the export uses.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Static errors for manifest parsing.
var (
	// ErrManifest is returned when the manifest structure is malformed.
	// It is fatal to the whole run.
	ErrManifest = errors.New("malformed manifest")
	// ErrTimestamp is returned when an entry's takenAt value does not match
	// TimestampFormat. It rejects that entry only.
	ErrTimestamp = errors.New("invalid takenAt timestamp")
)

// MediaType classifies a media reference.
type MediaType string

const (
	// MediaTypeImage marks a still image (WebP or JPEG in practice).
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo marks a video container.
	MediaTypeVideo MediaType = "video"
)

// videoExts contains extensions treated as video when the manifest does not
// declare a media type.
var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
}

// MediaRef points at one media file declared by the manifest.
type MediaRef struct {
	Path      string
	MediaType MediaType
}

// Type returns the declared media type, falling back to extension-based
// inference when the manifest omitted it.
func (m MediaRef) Type() MediaType {
	if m.MediaType != "" {
		return m.MediaType
	}
	if videoExts[strings.ToLower(filepath.Ext(m.Path))] {
		return MediaTypeVideo
	}
	return MediaTypeImage
}

// Location is an optional GPS coordinate attached to an entry.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Entry is one captured moment: the paired primary/secondary media, an
// optional behind-the-scenes video, and capture metadata. Entries are
// immutable once loaded.
type Entry struct {
	Primary   MediaRef
	Secondary MediaRef
	BTS       *MediaRef
	TakenAt   time.Time
	Location  *Location
	Caption   string
}

// Rejected records an entry that failed per-entry validation (currently only
// timestamp parsing) along with its position in the manifest.
type Rejected struct {
	Index int
	Err   error
}

type rawMediaRef struct {
	Path      string `json:"path" validate:"required"`
	MediaType string `json:"mediaType"`
}

type rawLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rawEntry struct {
	Primary   *rawMediaRef `json:"primary" validate:"required"`
	Secondary *rawMediaRef `json:"secondary" validate:"required"`
	BTSMedia  *rawMediaRef `json:"btsMedia"`
	TakenAt   string       `json:"takenAt" validate:"required"`
	Location  *rawLocation `json:"location"`
	Caption   string       `json:"caption"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseEntries decodes the raw manifest JSON into ordered entries.
//
// A non-array top level or an element missing primary, secondary, or takenAt
// fails the whole parse with ErrManifest. An unparseable takenAt rejects only
// that entry; rejected entries are reported separately so the caller can log
// and count them without aborting the run. Entry order follows the manifest.
func ParseEntries(raw []byte) ([]Entry, []Rejected, error) {
	var rawEntries []rawEntry
	if err := json.Unmarshal(raw, &rawEntries); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	entries := make([]Entry, 0, len(rawEntries))
	var rejected []Rejected

	for i, re := range rawEntries {
		if err := validate.Struct(re); err != nil {
			return nil, nil, fmt.Errorf("%w: entry %d: %w", ErrManifest, i, err)
		}

		takenAt, err := time.Parse(TimestampFormat, re.TakenAt)
		if err != nil {
			rejected = append(rejected, Rejected{
				Index: i,
				Err:   fmt.Errorf("%w: entry %d: %q", ErrTimestamp, i, re.TakenAt),
			})
			continue
		}

		entry := Entry{
			Primary:   toMediaRef(re.Primary),
			Secondary: toMediaRef(re.Secondary),
			TakenAt:   takenAt,
			Caption:   re.Caption,
		}
		if re.BTSMedia != nil {
			bts := toMediaRef(re.BTSMedia)
			entry.BTS = &bts
		}
		if re.Location != nil {
			entry.Location = &Location{
				Latitude:  re.Location.Latitude,
				Longitude: re.Location.Longitude,
			}
		}
		entries = append(entries, entry)
	}

	return entries, rejected, nil
}

// toMediaRef converts a raw manifest media reference to the domain type.
func toMediaRef(raw *rawMediaRef) MediaRef {
	ref := MediaRef{Path: raw.Path}
	switch strings.ToLower(raw.MediaType) {
	case "image":
		ref.MediaType = MediaTypeImage
	case "video":
		ref.MediaType = MediaTypeVideo
	}
	return ref
}

// MediaCount returns the number of media references the entry declares.
func (e Entry) MediaCount() int {
	if e.BTS != nil {
		return 3
	}
	return 2
}
