// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/pipeline"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/storage"
)

// Static errors for configuration validation.
var (
	// ErrInputDirRequired is returned when no input directory is configured.
	ErrInputDirRequired = errors.New("config: input directory is required")
	// ErrOutputDirRequired is returned when no output directory is configured.
	ErrOutputDirRequired = errors.New("config: output directory is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Export layout
	InputDir     string `env:"BEREAL_INPUT_DIR" json:"input_dir"`
	OutputDir    string `env:"BEREAL_OUTPUT_DIR" json:"output_dir"`
	ManifestPath string `env:"BEREAL_MANIFEST" json:"manifest_path"` // defaults to <input>/posts.json

	// Processing settings
	ConvertToJPEG        bool `env:"BEREAL_CONVERT_TO_JPEG, default=true" json:"convert_to_jpeg"`
	KeepOriginalFilename bool `env:"BEREAL_KEEP_ORIGINAL_FILENAME, default=false" json:"keep_original_filename"`
	CreateCombinedImages bool `env:"BEREAL_CREATE_COMBINED_IMAGES, default=true" json:"create_combined_images"`
	SyncAudio            bool `env:"BEREAL_SYNC_AUDIO, default=true" json:"sync_audio"`
	Workers              int  `env:"BEREAL_WORKERS, default=1" json:"workers"`

	// Tool paths
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/bereal-export" json:"temp_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 upload configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.ManifestPath == "" && cfg.InputDir != "" {
		cfg.ManifestPath = cfg.InputDir + "/posts.json"
	}

	return cfg, nil
}

// Validate checks that the run can actually start. It runs after CLI flag
// overrides have been applied.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrInputDirRequired
	}
	if c.OutputDir == "" && !c.S3Enabled() {
		return ErrOutputDirRequired
	}
	return nil
}

// Settings projects the configuration onto the pipeline's runtime settings.
func (c *Config) Settings() pipeline.Settings {
	return pipeline.Settings{
		ConvertToJPEG:        c.ConvertToJPEG,
		KeepOriginalFilename: c.KeepOriginalFilename,
		CreateCombinedImages: c.CreateCombinedImages,
		SyncAudio:            c.SyncAudio,
		Workers:              c.Workers,
	}
}

// S3Config projects the configuration onto the S3 sink settings.
func (c *Config) S3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Prefix:          c.S3Prefix,
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for piping.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{InputDir: %s, OutputDir: %s, ManifestPath: %s, ConvertToJPEG: %t, KeepOriginalFilename: %t, CreateCombinedImages: %t, SyncAudio: %t, Workers: %d, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.InputDir,
		c.OutputDir,
		c.ManifestPath,
		c.ConvertToJPEG,
		c.KeepOriginalFilename,
		c.CreateCombinedImages,
		c.SyncAudio,
		c.Workers,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
