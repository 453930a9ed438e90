package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
)

// InjectVideo rewrites a video's container metadata without touching its
// streams. Audio and video payloads are stream-copied verbatim.
//
// GPS is written in three redundant representations so players on different
// platforms pick it up: the QuickTime vendor tag, the generic location tag,
// and the location-eng variant, all carrying the same ISO-6709 string.
func InjectVideo(ctx context.Context, runner *ffmpeg.Runner, src, dst string, take Take) error {
	args := []string{
		"-y",
		"-i", src,
		"-c", "copy", // never re-encode for metadata
		"-map_metadata", "0",
		"-movflags", "use_metadata_tags",
		"-metadata", "creation_time=" + take.TakenAt.UTC().Format(time.RFC3339),
		"-metadata", "artist=" + SourceApp,
		"-metadata", "encoder=" + OriginatingProgram,
	}

	if take.Location != nil {
		iso := ISO6709(take.Location.Latitude, take.Location.Longitude)
		args = append(args,
			"-metadata", "com.apple.quicktime.location.ISO6709="+iso,
			"-metadata", "location="+iso,
			"-metadata", "location-eng="+iso,
		)
	}

	if take.Caption != "" {
		args = append(args, "-metadata", "comment="+take.Caption)
	}

	args = append(args, dst)

	if err := runner.Run(ctx, args); err != nil {
		return fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	return nil
}
