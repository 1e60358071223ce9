// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/stitcher/internal/layout"
)

// Static errors for configuration validation.
var (
	// ErrInvalidConfig is returned when a value is out of range.
	ErrInvalidConfig = errors.New("config: invalid value")
	// ErrSamePath is returned when the output would overwrite one of the inputs.
	ErrSamePath = errors.New("config: output path must differ from input paths")
)

// Config holds all configuration for the application.
type Config struct {
	// Input and output paths
	MainClip       string `env:"MAIN_CLIP, default=main_clip.mp4" json:"main_clip" validate:"required"`
	BackgroundClip string `env:"BACKGROUND_CLIP, default=background_clip.mp4" json:"background_clip" validate:"required"`
	OutputPath     string `env:"OUTPUT_PATH, default=stitched_output.mp4" json:"output_path" validate:"required"`
	LayoutFile     string `env:"LAYOUT_FILE" json:"layout_file,omitempty"`

	// Encoder settings
	FFmpegPath   string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath  string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	EncodePreset string `env:"ENCODE_PRESET, default=medium" json:"encode_preset" validate:"oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow"`
	EncodeCRF    int    `env:"ENCODE_CRF, default=23" json:"encode_crf" validate:"gte=0,lte=51"`

	// Staging directory for the encode; empty means the output's directory
	TempDir string `env:"TEMP_DIR" json:"temp_dir,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL, default=warn" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and that the output does not alias an input.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	out := absPath(c.OutputPath)
	if out == absPath(c.MainClip) || out == absPath(c.BackgroundClip) {
		return ErrSamePath
	}
	return nil
}

// absPath resolves p against the working directory, falling back to its
// cleaned form.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Layout returns the layout from LayoutFile, or the default 1080x1920 layout.
func (c *Config) Layout() (layout.Spec, error) {
	if c.LayoutFile == "" {
		return layout.Default(), nil
	}
	return layout.LoadFile(c.LayoutFile)
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs. A nil w writes to stderr,
// leaving stdout to the console report.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{MainClip: %s, BackgroundClip: %s, OutputPath: %s, LayoutFile: %s, EncodePreset: %s, EncodeCRF: %d, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.MainClip,
		c.BackgroundClip,
		c.OutputPath,
		c.LayoutFile,
		c.EncodePreset,
		c.EncodeCRF,
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
		return slog.LevelWarn
	}
}
