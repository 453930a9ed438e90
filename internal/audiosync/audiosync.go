// Package audiosync detects audio-stream presence in paired videos and
// transplants the audio track from the one that has it onto its silent
// sibling. BeReal records sound on only one of the two cameras, so a pair
// with exactly one audio track is the expected case.
package audiosync

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
)

// ErrAudioSync is returned when probing or transplanting fails. The videos
// are kept unsynced; it is never fatal.
var ErrAudioSync = errors.New("audio synchronization failed")

// Plan describes what a pair evaluation decided.
type Plan string

const (
	// PlanNone means no transplant: both videos have audio, or neither does.
	PlanNone Plan = "none"
	// PlanPrimaryDonor means the primary's audio is copied onto the secondary.
	PlanPrimaryDonor Plan = "primary-donor"
	// PlanSecondaryDonor means the secondary's audio is copied onto the primary.
	PlanSecondaryDonor Plan = "secondary-donor"
)

// Synchronizer probes and repairs paired videos via ffmpeg.
type Synchronizer struct {
	runner *ffmpeg.Runner
}

// NewSynchronizer creates a Synchronizer using the given runner.
func NewSynchronizer(runner *ffmpeg.Runner) *Synchronizer {
	return &Synchronizer{runner: runner}
}

// Evaluate probes both videos of a pair and decides whether a transplant is
// needed. A pair where both or neither video carries audio is a logged no-op
// for the caller, not an error.
func (s *Synchronizer) Evaluate(ctx context.Context, primaryPath, secondaryPath string) (Plan, error) {
	primary, err := s.runner.Probe(ctx, primaryPath)
	if err != nil {
		return PlanNone, fmt.Errorf("%w: probe primary: %w", ErrAudioSync, err)
	}
	secondary, err := s.runner.Probe(ctx, secondaryPath)
	if err != nil {
		return PlanNone, fmt.Errorf("%w: probe secondary: %w", ErrAudioSync, err)
	}

	switch {
	case primary.HasAudio() && !secondary.HasAudio():
		return PlanPrimaryDonor, nil
	case !primary.HasAudio() && secondary.HasAudio():
		return PlanSecondaryDonor, nil
	default:
		return PlanNone, nil
	}
}

// Transplant copies the donor's audio stream onto the silent video without
// re-encoding either stream. Container metadata already written to the
// silent video (GPS, caption, timestamp) is preserved.
func (s *Synchronizer) Transplant(ctx context.Context, silentPath, donorPath, dstPath string) error {
	args := []string{
		"-y",
		"-i", silentPath,
		"-i", donorPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy", // stream copy both video and incoming audio
		"-map_metadata", "0",
		"-movflags", "use_metadata_tags",
		dstPath,
	}
	if err := s.runner.Run(ctx, args); err != nil {
		return fmt.Errorf("%w: transplant: %w", ErrAudioSync, err)
	}
	return nil
}
