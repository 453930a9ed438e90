package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var takenAt = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func TestFilename(t *testing.T) {
	tests := []struct {
		name                 string
		role                 Role
		original             string
		converted            bool
		convertToJPEG        bool
		keepOriginalFilename bool
		want                 string
	}{
		{
			name: "converted primary", role: RolePrimary,
			original: "Photos/post/aaa.webp", converted: true, convertToJPEG: true,
			want: "2024-03-01T12-30-00_primary.jpg",
		},
		{
			name: "global convert without per-file conversion", role: RoleSecondary,
			original: "bbb.webp", converted: false, convertToJPEG: true,
			want: "2024-03-01T12-30-00_secondary.jpg",
		},
		{
			name: "no conversion keeps extension", role: RolePrimary,
			original: "aaa.webp", converted: false, convertToJPEG: false,
			want: "2024-03-01T12-30-00_primary.webp",
		},
		{
			name: "video keeps extension", role: RoleBTS,
			original: "Photos/bts/clip.mp4", converted: false, convertToJPEG: false,
			want: "2024-03-01T12-30-00_bts.mp4",
		},
		{
			name: "keep original filename", role: RolePrimary,
			original: "Photos/post/aaa.webp", converted: false, convertToJPEG: false, keepOriginalFilename: true,
			want: "2024-03-01T12-30-00_primary_aaa.webp",
		},
		{
			name: "keep original filename with conversion rewrites extension", role: RoleSecondary,
			original: "Photos/post/bbb.webp", converted: true, convertToJPEG: true, keepOriginalFilename: true,
			want: "2024-03-01T12-30-00_secondary_bbb.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(takenAt, tt.role, tt.original, tt.converted, tt.convertToJPEG, tt.keepOriginalFilename)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCombinedFilename(t *testing.T) {
	assert.Equal(t, "2024-03-01T12-30-00_combined.jpg", CombinedFilename(takenAt))
}

func TestFilename_CollisionsOverwrite(t *testing.T) {
	// Same second, same role: identical names. Deliberate.
	a := Filename(takenAt, RolePrimary, "aaa.webp", true, true, false)
	b := Filename(takenAt, RolePrimary, "bbb.webp", true, true, false)
	assert.Equal(t, a, b)
}
