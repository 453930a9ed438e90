// Package main provides the entry point for the BeReal export converter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/bootstrap"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/config"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/sources"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment; flags override it.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flag.StringVar(&cfg.InputDir, "input", cfg.InputDir, "export directory containing the media files")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory the converted files are written to")
	flag.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "path to the posts manifest (defaults to <input>/posts.json)")
	flag.BoolVar(&cfg.ConvertToJPEG, "convert-to-jpeg", cfg.ConvertToJPEG, "convert WebP images to JPEG")
	flag.BoolVar(&cfg.KeepOriginalFilename, "keep-original-filename", cfg.KeepOriginalFilename, "append the original filename to output names")
	flag.BoolVar(&cfg.CreateCombinedImages, "combined-images", cfg.CreateCombinedImages, "composite each primary/secondary image pair")
	flag.BoolVar(&cfg.SyncAudio, "sync-audio", cfg.SyncAudio, "transplant audio between paired videos")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of entries processed concurrently")
	flag.Parse()

	if cfg.ManifestPath == "" && cfg.InputDir != "" {
		cfg.ManifestPath = filepath.Join(cfg.InputDir, "posts.json")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting export conversion",
		slog.String("input_dir", cfg.InputDir),
		slog.String("output_dir", cfg.OutputDir),
		slog.String("manifest", cfg.ManifestPath),
		slog.Bool("convert_to_jpeg", cfg.ConvertToJPEG),
		slog.Bool("create_combined_images", cfg.CreateCombinedImages),
		slog.Bool("sync_audio", cfg.SyncAudio),
		slog.Int("workers", cfg.Workers),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	raw, err := os.ReadFile(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	set, err := loadSources(cfg.InputDir)
	if err != nil {
		return fmt.Errorf("read input directory: %w", err)
	}

	// SIGINT/SIGTERM cancel the run; processed artifacts are still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := deps.Orchestrator.Run(ctx, raw, set)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	for _, name := range result.Artifacts.Names() {
		artifact, ok := result.Artifacts.Get(name)
		if !ok {
			continue
		}
		if err := deps.Sink.Write(context.Background(), name, artifact.Data); err != nil {
			logger.Error("writing artifact failed",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
		}
	}

	fmt.Printf("processed: %d\nconverted: %d\ncombined:  %d\nskipped:   %d\n",
		result.Stats.Processed,
		result.Stats.Converted,
		result.Stats.Combined,
		result.Stats.Skipped,
	)
	return nil
}

// loadSources reads the export directory into a name->bytes source set.
// The GDPR archive keeps media in one flat folder; nested declared paths
// resolve through the locator's basename fallback.
func loadSources(dir string) (*sources.Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	set := sources.NewSet()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		set.Add(entry.Name(), data)
	}
	return set, nil
}
