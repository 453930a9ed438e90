// Package ffmpeg wraps the ffmpeg and ffprobe CLIs for the container-level
// operations the converter needs: stream probing, metadata rewrites, and
// audio stream copies. Video and audio payloads are never re-encoded here.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// ErrProbeExecution is returned when ffprobe command fails.
var ErrProbeExecution = errors.New("ffprobe execution failed")

// Runner executes ffmpeg and ffprobe commands.
type Runner struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewRunner creates a new Runner.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Run executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (r *Runner) Run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &Error{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// Error represents an error from running ffmpeg, including the stderr output.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stream describes a single stream inside a media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
}

// Format describes container-level information reported by ffprobe.
type Format struct {
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// ProbeResult holds the streams and container format reported by ffprobe
// for one file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// HasAudio reports whether the probed container carries an audio stream.
func (p *ProbeResult) HasAudio() bool {
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

// HasVideo reports whether the probed container carries a video stream.
func (p *ProbeResult) HasVideo() bool {
	for _, s := range p.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}

// Probe inspects the streams of a media file using ffprobe.
func (r *Runner) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-show_entries", "stream=index,codec_type,codec_name:format=format_name:format_tags",
		"-of", "json",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w, stderr: %s", ErrProbeExecution, err, stderr.String())
	}

	var result ProbeResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	return &result, nil
}
