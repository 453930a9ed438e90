package metadata

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/manifest"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// createTestVideo creates a short silent test video using ffmpeg.
func createTestVideo(t *testing.T, path string) {
	t.Helper()
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=blue:s=64x64:d=1",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestInjectVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	runner := ffmpeg.NewRunner("", "")
	ctx := context.Background()

	src := filepath.Join(tmpDir, "src.mp4")
	createTestVideo(t, src)

	take := Take{
		TakenAt:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Location: &manifest.Location{Latitude: 48.8566, Longitude: 2.3522},
		Caption:  "hi",
	}

	dst := filepath.Join(tmpDir, "tagged.mp4")
	require.NoError(t, InjectVideo(ctx, runner, src, dst, take))

	result, err := runner.Probe(ctx, dst)
	require.NoError(t, err)

	t.Run("streams preserved", func(t *testing.T) {
		assert.True(t, result.HasVideo())
		for _, s := range result.Streams {
			if s.CodecType == "video" {
				assert.Equal(t, "h264", s.CodecName, "stream must be copied, not re-encoded")
			}
		}
	})

	t.Run("location tags written", func(t *testing.T) {
		iso := "+48.8566+002.3522/"
		assert.Equal(t, iso, result.Format.Tags["location"])
		assert.Equal(t, iso, result.Format.Tags["location-eng"])
	})

	t.Run("provenance and caption written", func(t *testing.T) {
		assert.Equal(t, "BeReal app", result.Format.Tags["artist"])
		assert.Equal(t, "hi", result.Format.Tags["comment"])
	})

	t.Run("missing source fails with ErrMetadata", func(t *testing.T) {
		err := InjectVideo(ctx, runner, filepath.Join(tmpDir, "nope.mp4"), filepath.Join(tmpDir, "out.mp4"), take)
		assert.ErrorIs(t, err, ErrMetadata)
	})
}
