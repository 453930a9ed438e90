package pipeline

import "github.com/Lettly/bereal-gdpr-photo-toolkit/internal/naming"

// State tracks one media item through its processing steps. Skipped is an
// absorbing state reachable from any prior one on a locator miss or an
// unrecoverable error; Emitted and Skipped are terminal.
type State string

const (
	// StateLocated means the declared path resolved to source bytes.
	StateLocated State = "located"
	// StateConverted means format conversion ran (possibly a pass-through).
	StateConverted State = "converted"
	// StateMetadataWritten means capture metadata was embedded.
	StateMetadataWritten State = "metadata-written"
	// StateNamed means the output filename was derived.
	StateNamed State = "named"
	// StateEmitted means the artifact is final.
	StateEmitted State = "emitted"
	// StateSkipped means the media item produced no output.
	StateSkipped State = "skipped"
)

// EntryOutcome summarizes how a whole entry fared. Media items within an
// entry are independent; one failing does not block its siblings.
type EntryOutcome string

const (
	// OutcomeEmitted means every media item of the entry was emitted.
	OutcomeEmitted EntryOutcome = "emitted"
	// OutcomePartiallyEmitted means some media items were emitted, some skipped.
	OutcomePartiallyEmitted EntryOutcome = "partially-emitted"
	// OutcomeSkipped means no media item of the entry was emitted.
	OutcomeSkipped EntryOutcome = "skipped"
)

// mediaResult is the terminal record of one media item.
type mediaResult struct {
	role      naming.Role
	state     State
	converted bool
	isImage   bool
	isVideo   bool
	artifact  Artifact
}

// entryResult collects the per-media results of one manifest entry.
type entryResult struct {
	media []mediaResult
	// cancelled marks an entry aborted mid-flight; its artifacts are not
	// published.
	cancelled bool
}

// outcome derives the entry-level outcome from the media states.
func (r entryResult) outcome() EntryOutcome {
	emitted := 0
	for _, m := range r.media {
		if m.state == StateEmitted {
			emitted++
		}
	}
	switch {
	case emitted == 0:
		return OutcomeSkipped
	case emitted == len(r.media):
		return OutcomeEmitted
	default:
		return OutcomePartiallyEmitted
	}
}

// Stats aggregates per-run counters. Combined is counted on top of the
// primary/secondary outputs, so it is not bounded by Processed.
type Stats struct {
	// Processed counts media files that produced an output artifact.
	Processed int
	// Converted counts images re-encoded from WebP to JPEG.
	Converted int
	// Combined counts composited picture-in-picture images.
	Combined int
	// Skipped counts media items (and rejected entries) that produced
	// no output.
	Skipped int
}
