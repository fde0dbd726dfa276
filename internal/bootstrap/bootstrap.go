// Package bootstrap wires the findsilence services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/findsilence/internal/audio"
	"github.com/maauso/findsilence/internal/config"
	"github.com/maauso/findsilence/internal/job"
	"github.com/maauso/findsilence/internal/split"
	"github.com/maauso/findsilence/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Splitter       *split.Service
	Jobs           *job.Service
	Storage        storage.Storage
	PublishEnabled bool
}

// NewSplitter creates the split service: WAV files are decoded natively,
// every other container through ffmpeg, and tracks are written as WAV.
func NewSplitter(cfg *config.Config, logger *slog.Logger) *split.Service {
	return split.NewService(
		audio.NewOpener(cfg.FFmpegPath),
		audio.NewWAVEncoder(),
		split.WithLogger(logger),
		split.WithDeepStep(cfg.DeepScanStep()),
		split.WithMaxIterations(cfg.CalibrationMaxIterations),
	)
}

// NewDependencies creates and initializes all dependencies for the server.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	splitter := NewSplitter(cfg, logger)
	jobs := job.NewService(
		job.NewMemoryRepository(),
		splitter,
		store,
		cfg.OutputDir,
		job.WithLogger(logger),
		job.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
	)

	return &Dependencies{
		Splitter:       splitter,
		Jobs:           jobs,
		Storage:        store,
		PublishEnabled: cfg.S3Enabled(),
	}, nil
}

func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publication configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}
