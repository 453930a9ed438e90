package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Scratch is a local-disk staging area for video files while ffmpeg works on
// them. Images are processed fully in memory and never touch it.
type Scratch struct {
	tempDir string
}

// NewScratch creates a new Scratch.
// If tempDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewScratch(tempDir string) (*Scratch, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "bereal-export")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &Scratch{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *Scratch) TempDir() string {
	return s.tempDir
}

// SaveTemp saves data to a temporary file and returns the file path.
// The name is used as a base for the filename with a unique suffix; its
// extension is preserved so ffmpeg can pick the right demuxer.
func (s *Scratch) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	f, err := os.CreateTemp(s.tempDir, filepath.Base(base)+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp reads a temporary file back into memory.
func (s *Scratch) LoadTemp(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is produced by SaveTemp
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}

	return data, nil
}

// TempPath returns a fresh path inside the scratch directory without
// creating the file, for tools that write their own output.
func (s *Scratch) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *Scratch) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// DirSink writes artifacts as plain files under a directory.
type DirSink struct {
	dir string
}

// NewDirSink creates the output directory if needed and returns a sink
// writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Write stores one artifact, overwriting any previous file of the same name.
func (d *DirSink) Write(ctx context.Context, name string, data []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(d.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil { // #nosec G306 - library output meant to be readable
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
