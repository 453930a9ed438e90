package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratch(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		s, err := NewScratch(t.TempDir())
		require.NoError(t, err)

		path, err := s.SaveTemp(ctx, "primary.mp4", bytes.NewReader([]byte("video-bytes")))
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(path, ".mp4"), "extension must survive for ffmpeg: %s", path)

		data, err := s.LoadTemp(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []byte("video-bytes"), data)
	})

	t.Run("empty temp dir gets a default", func(t *testing.T) {
		s, err := NewScratch("")
		require.NoError(t, err)
		assert.NotEmpty(t, s.TempDir())
	})

	t.Run("temp path stays inside scratch dir", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewScratch(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "out.mp4"), s.TempPath("out.mp4"))
	})

	t.Run("cleanup tolerates missing files", func(t *testing.T) {
		s, err := NewScratch(t.TempDir())
		require.NoError(t, err)

		path, err := s.SaveTemp(ctx, "a.mp4", bytes.NewReader([]byte("x")))
		require.NoError(t, err)

		err = s.CleanupTemp(ctx, []string{path, filepath.Join(s.TempDir(), "never-existed.mp4")})
		assert.NoError(t, err)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("cancelled context rejected", func(t *testing.T) {
		s, err := NewScratch(t.TempDir())
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = s.SaveTemp(cancelled, "a.mp4", bytes.NewReader(nil))
		assert.ErrorIs(t, err, context.Canceled)

		_, err = s.LoadTemp(cancelled, "whatever")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDirSink(t *testing.T) {
	ctx := context.Background()

	t.Run("writes artifacts as files", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewDirSink(filepath.Join(dir, "library"))
		require.NoError(t, err)

		require.NoError(t, sink.Write(ctx, "2024-03-01T12-30-00_primary.jpg", []byte("jpeg")))

		data, err := os.ReadFile(filepath.Join(dir, "library", "2024-03-01T12-30-00_primary.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg"), data)
	})

	t.Run("later write wins", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewDirSink(dir)
		require.NoError(t, err)

		require.NoError(t, sink.Write(ctx, "a.jpg", []byte("first")))
		require.NoError(t, sink.Write(ctx, "a.jpg", []byte("second")))

		data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})
}
