// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPauseSeconds is returned when PAUSE_SECONDS is not positive.
	ErrInvalidPauseSeconds = errors.New("config: PAUSE_SECONDS must be positive")
	// ErrInvalidVolumeCap is returned when VOLUME_CAP is negative.
	ErrInvalidVolumeCap = errors.New("config: VOLUME_CAP must not be negative")
	// ErrInvalidMinTrackLength is returned when MIN_TRACK_LENGTH is negative.
	ErrInvalidMinTrackLength = errors.New("config: MIN_TRACK_LENGTH must not be negative")
	// ErrInvalidDeepScanStep is returned when DEEP_SCAN_STEP_MS is not positive.
	ErrInvalidDeepScanStep = errors.New("config: DEEP_SCAN_STEP_MS must be positive")
	// ErrInvalidMaxIterations is returned when CALIBRATION_MAX_ITERATIONS is not positive.
	ErrInvalidMaxIterations = errors.New("config: CALIBRATION_MAX_ITERATIONS must be positive")
	// ErrInvalidMaxConcurrentJobs is returned when MAX_CONCURRENT_JOBS is not positive.
	ErrInvalidMaxConcurrentJobs = errors.New("config: MAX_CONCURRENT_JOBS must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Storage settings
	TempDir   string `env:"TEMP_DIR, default=/tmp/findsilence" json:"temp_dir"`
	OutputDir string `env:"OUTPUT_DIR, default=./output" json:"output_dir"`

	// Split defaults
	PauseSeconds             float64 `env:"PAUSE_SECONDS, default=2" json:"pause_seconds"`
	VolumeCap                int     `env:"VOLUME_CAP, default=300" json:"volume_cap"`
	MinTrackLength           float64 `env:"MIN_TRACK_LENGTH, default=10" json:"min_track_length"`
	DeepScan                 bool    `env:"DEEP_SCAN, default=false" json:"deep_scan"`
	DeepScanStepMs           int     `env:"DEEP_SCAN_STEP_MS, default=10" json:"deep_scan_step_ms"`
	CalibrationMaxIterations int     `env:"CALIBRATION_MAX_ITERATIONS, default=64" json:"calibration_max_iterations"`

	// Decoding
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Job processing
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS, default=2" json:"max_concurrent_jobs"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DeepScanStep returns the deep scan step as a duration.
func (c *Config) DeepScanStep() time.Duration {
	return time.Duration(c.DeepScanStepMs) * time.Millisecond
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that split defaults and limits are usable.
func (c *Config) Validate() error {
	if c.PauseSeconds <= 0 {
		return ErrInvalidPauseSeconds
	}
	if c.VolumeCap < 0 {
		return ErrInvalidVolumeCap
	}
	if c.MinTrackLength < 0 {
		return ErrInvalidMinTrackLength
	}
	if c.DeepScanStepMs <= 0 {
		return ErrInvalidDeepScanStep
	}
	if c.CalibrationMaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidMaxConcurrentJobs
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, OutputDir: %s, PauseSeconds: %g, VolumeCap: %d, MinTrackLength: %g, DeepScan: %t, MaxConcurrentJobs: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.OutputDir,
		c.PauseSeconds,
		c.VolumeCap,
		c.MinTrackLength,
		c.DeepScan,
		c.MaxConcurrentJobs,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
