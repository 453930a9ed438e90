package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/sources"
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

// createTestVideo creates a short test video, optionally with a silent
// audio track muxed in.
func createTestVideo(t *testing.T, path string, withAudio bool) {
	t.Helper()

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", "color=c=green:s=64x64:d=1",
	}
	if withAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", "anullsrc=r=44100:cl=mono:d=1",
			"-c:a", "aac",
			"-shortest",
		)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)
	cmd := exec.Command("ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

// loadVideoSources builds a source set with a paired capture: primary with
// an audio track, secondary silent.
func loadVideoSources(t *testing.T) *sources.Set {
	t.Helper()

	tmpDir := t.TempDir()
	primaryPath := filepath.Join(tmpDir, "primary.mp4")
	secondaryPath := filepath.Join(tmpDir, "secondary.mp4")
	createTestVideo(t, primaryPath, true)
	createTestVideo(t, secondaryPath, false)

	primary, err := os.ReadFile(primaryPath)
	require.NoError(t, err)
	secondary, err := os.ReadFile(secondaryPath)
	require.NoError(t, err)

	set := sources.NewSet()
	set.Add("primary.mp4", primary)
	set.Add("secondary.mp4", secondary)
	return set
}

// probeArtifact writes an artifact to disk and ffprobes it.
func probeArtifact(t *testing.T, a Artifact) *ffmpeg.ProbeResult {
	t.Helper()

	path := filepath.Join(t.TempDir(), a.Filename)
	require.NoError(t, os.WriteFile(path, a.Data, 0644))

	result, err := ffmpeg.NewRunner("", "").Probe(context.Background(), path)
	require.NoError(t, err)
	return result
}

const videoPairManifest = `[
  {
    "primary": {"path": "primary.mp4", "mediaType": "video"},
    "secondary": {"path": "secondary.mp4", "mediaType": "video"},
    "takenAt": "2024-03-01T12:30:00.000Z",
    "caption": "clip"
  }
]`

func TestRunPairedVideos(t *testing.T) {
	skipIfNoFFmpeg(t)

	o := newTestOrchestrator(t, Settings{ConvertToJPEG: true, SyncAudio: true})

	result, err := o.Run(context.Background(), []byte(videoPairManifest), loadVideoSources(t))
	require.NoError(t, err)

	// Videos keep their container extension regardless of the image
	// conversion flag.
	assert.Equal(t, []string{
		"2024-03-01T12-30-00_primary.mp4",
		"2024-03-01T12-30-00_secondary.mp4",
	}, result.Artifacts.Names())
	assert.Equal(t, 2, result.Stats.Processed)
	assert.Equal(t, 0, result.Stats.Converted)

	secondary, ok := result.Artifacts.Get("2024-03-01T12-30-00_secondary.mp4")
	require.True(t, ok)
	probed := probeArtifact(t, secondary)

	t.Run("silent secondary gains the primary's audio", func(t *testing.T) {
		assert.True(t, probed.HasAudio(), "secondary must carry the transplanted track")
		assert.True(t, probed.HasVideo())
		for _, s := range probed.Streams {
			switch s.CodecType {
			case "video":
				assert.Equal(t, "h264", s.CodecName, "video must be stream-copied")
			case "audio":
				assert.Equal(t, "aac", s.CodecName, "audio must be stream-copied")
			}
		}
	})

	t.Run("container tags survive the transplant", func(t *testing.T) {
		assert.Equal(t, "BeReal app", probed.Format.Tags["artist"])
		assert.Equal(t, "clip", probed.Format.Tags["comment"])
	})

	t.Run("primary keeps its own audio and tags", func(t *testing.T) {
		primary, ok := result.Artifacts.Get("2024-03-01T12-30-00_primary.mp4")
		require.True(t, ok)

		probed := probeArtifact(t, primary)
		assert.True(t, probed.HasAudio())
		assert.Equal(t, "BeReal app", probed.Format.Tags["artist"])
	})
}

func TestRunSilentPairStaysSilent(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	silentPath := filepath.Join(tmpDir, "silent.mp4")
	createTestVideo(t, silentPath, false)
	silent, err := os.ReadFile(silentPath)
	require.NoError(t, err)

	set := sources.NewSet()
	set.Add("primary.mp4", silent)
	set.Add("secondary.mp4", silent)

	o := newTestOrchestrator(t, Settings{SyncAudio: true})

	result, err := o.Run(context.Background(), []byte(videoPairManifest), set)
	require.NoError(t, err)

	secondary, ok := result.Artifacts.Get("2024-03-01T12-30-00_secondary.mp4")
	require.True(t, ok)

	probed := probeArtifact(t, secondary)
	assert.False(t, probed.HasAudio(), "no donor track exists, nothing to transplant")
	assert.True(t, probed.HasVideo())
}

func TestRunSyncAudioDisabledLeavesPairAlone(t *testing.T) {
	skipIfNoFFmpeg(t)

	o := newTestOrchestrator(t, Settings{SyncAudio: false})

	result, err := o.Run(context.Background(), []byte(videoPairManifest), loadVideoSources(t))
	require.NoError(t, err)

	secondary, ok := result.Artifacts.Get("2024-03-01T12-30-00_secondary.mp4")
	require.True(t, ok)

	probed := probeArtifact(t, secondary)
	assert.False(t, probed.HasAudio())
}
