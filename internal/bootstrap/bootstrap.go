// Package bootstrap provides dependency initialization for the export converter.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/config"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/pipeline"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/storage"
)

// Dependencies holds all initialized dependencies for a run.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	Sink         storage.Sink
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	scratch, err := storage.NewScratch(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create scratch area: %w", err)
	}

	runner := ffmpeg.NewRunner(cfg.FFmpegPath, cfg.FFprobePath)

	sink, err := initSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Orchestrator: pipeline.New(cfg.Settings(), scratch, runner, logger),
		Sink:         sink,
	}, nil
}

// initSink creates the appropriate artifact sink based on configuration.
func initSink(cfg *config.Config, logger *slog.Logger) (storage.Sink, error) {
	if cfg.S3Enabled() {
		s3Sink, err := storage.NewS3Sink(cfg.S3Config())
		if err != nil {
			return nil, fmt.Errorf("create S3 sink: %w", err)
		}
		logger.Info("S3 sink configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Sink, nil
	}

	dirSink, err := storage.NewDirSink(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create output directory sink: %w", err)
	}
	logger.Info("directory sink configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return dirSink, nil
}
