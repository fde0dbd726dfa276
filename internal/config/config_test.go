package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/findsilence", cfg.TempDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 2.0, cfg.PauseSeconds)
	assert.Equal(t, 300, cfg.VolumeCap)
	assert.Equal(t, 10.0, cfg.MinTrackLength)
	assert.False(t, cfg.DeepScan)
	assert.Equal(t, 10*time.Millisecond, cfg.DeepScanStep())
	assert.Equal(t, 64, cfg.CalibrationMaxIterations)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"PORT":                       "3000",
		"TEMP_DIR":                   "/custom/temp",
		"OUTPUT_DIR":                 "/srv/tracks",
		"PAUSE_SECONDS":              "1.5",
		"VOLUME_CAP":                 "120",
		"MIN_TRACK_LENGTH":           "30",
		"DEEP_SCAN":                  "true",
		"DEEP_SCAN_STEP_MS":          "25",
		"CALIBRATION_MAX_ITERATIONS": "16",
		"FFMPEG_PATH":                "/opt/ffmpeg/bin/ffmpeg",
		"MAX_CONCURRENT_JOBS":        "4",
		"S3_BUCKET":                  "my-bucket",
		"S3_REGION":                  "us-east-1",
		"S3_ENDPOINT":                "http://localhost:9000",
		"AWS_ACCESS_KEY_ID":          "access-key",
		"AWS_SECRET_ACCESS_KEY":      "secret-key",
		"LOG_FORMAT":                 "json",
		"LOG_LEVEL":                  "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/srv/tracks", cfg.OutputDir)
	assert.Equal(t, 1.5, cfg.PauseSeconds)
	assert.Equal(t, 120, cfg.VolumeCap)
	assert.Equal(t, 30.0, cfg.MinTrackLength)
	assert.True(t, cfg.DeepScan)
	assert.Equal(t, 25*time.Millisecond, cfg.DeepScanStep())
	assert.Equal(t, 16, cfg.CalibrationMaxIterations)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_ParseErrors(t *testing.T) {
	for _, env := range []map[string]string{
		{"PORT": "not-a-number"},
		{"PAUSE_SECONDS": "two"},
		{"DEEP_SCAN": "sometimes"},
	} {
		_, err := load(t, env)
		assert.Error(t, err, env)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want error
	}{
		{map[string]string{"PAUSE_SECONDS": "0"}, ErrInvalidPauseSeconds},
		{map[string]string{"VOLUME_CAP": "-1"}, ErrInvalidVolumeCap},
		{map[string]string{"MIN_TRACK_LENGTH": "-5"}, ErrInvalidMinTrackLength},
		{map[string]string{"DEEP_SCAN_STEP_MS": "0"}, ErrInvalidDeepScanStep},
		{map[string]string{"CALIBRATION_MAX_ITERATIONS": "0"}, ErrInvalidMaxIterations},
		{map[string]string{"MAX_CONCURRENT_JOBS": "-2"}, ErrInvalidMaxConcurrentJobs},
	}

	for _, tt := range tests {
		t.Run(tt.want.Error(), func(t *testing.T) {
			_, err := load(t, tt.env)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("VOLUME_CAP", "450")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 450, cfg.VolumeCap)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{S3Bucket: tt.bucket, S3Region: tt.region}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		TempDir:            "/tmp/test",
		OutputDir:          "/srv/out",
		PauseSeconds:       2,
		VolumeCap:          300,
		S3Bucket:           "bucket",
		AWSAccessKeyID:     "access-key-id",
		AWSSecretAccessKey: "secret-key",
	}

	str := cfg.String()
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "/srv/out")
	assert.Contains(t, str, "VolumeCap: 300")
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key-id")
}

func TestConfig_JSONMasksSecrets(t *testing.T) {
	cfg := &Config{AWSAccessKeyID: "access-key-id", AWSSecretAccessKey: "secret-key"}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")
	assert.NotContains(t, string(data), "access-key-id")
}

func TestConfig_NewLoggerTo(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "JSON", LogLevel: "info"}).NewLoggerTo(&buf)

		logger.Debug("hidden")
		logger.Info("track written", slog.Int("track", 3))

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"msg":"track written"`)
		assert.Contains(t, buf.String(), `"track":3`)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "text", LogLevel: "debug"}).NewLoggerTo(&buf)

		logger.Debug("silence interval", slog.Int("start", 10))

		assert.Contains(t, buf.String(), "msg=\"silence interval\"")
		assert.Contains(t, buf.String(), "start=10")
	})

	t.Run("stdout", func(t *testing.T) {
		assert.NotNil(t, (&Config{}).NewLogger())
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{PauseSeconds: 2, VolumeCap: 0, MinTrackLength: 0, DeepScanStepMs: 10, CalibrationMaxIterations: 64, MaxConcurrentJobs: 1}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.PauseSeconds = -1
	assert.ErrorIs(t, invalid.Validate(), ErrInvalidPauseSeconds)
}
