// Package storage provides the conversion run's scratch area for ffmpeg
// temporary files and the sinks that receive finished output artifacts.
// It defines the Sink interface (port) with local directory and S3
// implementations.
package storage

import "context"

// Sink receives finished output artifacts. Implementations must tolerate
// the same name being written twice; the later write wins.
type Sink interface {
	// Write stores one named artifact.
	Write(ctx context.Context, name string, data []byte) error
}
