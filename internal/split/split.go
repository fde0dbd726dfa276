// Package split wires silence detection, calibration and track splitting into
// the single blocking operation that turns one recording into track files.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/findsilence/internal/audio"
	"github.com/maauso/findsilence/internal/silence"
	"github.com/maauso/findsilence/internal/track"
)

// Conditions a split can end with, re-exported for callers.
var (
	ErrCancelled         = silence.ErrCancelled
	ErrNoSilence         = silence.ErrNoSilence
	ErrCalibrationFailed = silence.ErrCalibrationFailed
	ErrInvalidInput      = silence.ErrInvalidInput
)

// Defaults for a split request.
const (
	DefaultPauseSeconds    = 2.0
	DefaultVolumeCap       = 300
	DefaultMinTrackSeconds = 10.0
)

// Request describes one split operation.
type Request struct {
	// SourcePath is the recording to split.
	SourcePath string `validate:"required"`
	// DestDir receives the track files. It must already exist.
	DestDir string `validate:"required"`
	// PauseSeconds is the minimum pause length between tracks.
	PauseSeconds float64 `validate:"gt=0"`
	// VolumeCap is the RMS below which a window counts as silence.
	// Ignored when TargetTracks is set.
	VolumeCap int `validate:"gte=0"`
	// MinTrackSeconds drops shorter tracks, such as a needle drop.
	MinTrackSeconds float64 `validate:"gte=0"`
	// TargetTracks, when set, calibrates the cap to produce this many tracks.
	TargetTracks *int `validate:"omitempty,gte=1"`
	// DeepScan classifies every short step of the file instead of
	// scanning adaptively.
	DeepScan bool
}

// NewRequest returns a Request with default parameters.
func NewRequest(sourcePath, destDir string) Request {
	return Request{
		SourcePath:      sourcePath,
		DestDir:         destDir,
		PauseSeconds:    DefaultPauseSeconds,
		VolumeCap:       DefaultVolumeCap,
		MinTrackSeconds: DefaultMinTrackSeconds,
	}
}

// WrittenTrack describes one track file.
type WrittenTrack struct {
	// Number is the contiguous output number used in the file name.
	Number int
	// Index is the span position before short tracks were dropped.
	Index int
	// Path is the written file.
	Path string
	// StartFrame and EndFrame delimit the track in the source.
	StartFrame int
	EndFrame   int
	// Seconds is the track duration.
	Seconds float64
}

// Result summarizes a finished split.
type Result struct {
	// Metadata describes the source stream.
	Metadata audio.Metadata
	// Cap is the silence cap actually used.
	Cap int
	// Calibrated is true when Cap came from a target track count.
	Calibrated bool
	// Iterations is the number of calibration scans.
	Iterations int
	// Silence is the unified silence list.
	Silence []silence.Interval
	// Tracks lists the files written, in order.
	Tracks []WrittenTrack
}

// Service runs split operations.
type Service struct {
	decoder       audio.Decoder
	encoder       audio.Encoder
	validate      *validator.Validate
	logger        *slog.Logger
	deepStep      time.Duration
	maxIterations int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDeepStep sets the step used by deep scans.
func WithDeepStep(step time.Duration) Option {
	return func(s *Service) {
		if step > 0 {
			s.deepStep = step
		}
	}
}

// WithMaxIterations bounds threshold calibration.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// NewService creates a Service reading with decoder and writing with encoder.
func NewService(decoder audio.Decoder, encoder audio.Encoder, opts ...Option) *Service {
	s := &Service{
		decoder:       decoder,
		encoder:       encoder,
		validate:      validator.New(),
		logger:        slog.Default(),
		deepStep:      silence.DefaultDeepStep,
		maxIterations: silence.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split detects the pauses in req.SourcePath and writes every track long
// enough into req.DestDir as track_NN.wav. It blocks until done.
//
// hooks receives FramesTotal once the source is open, CurrentFrame while
// scanning and Done when Split returns. Tracks written before a cancellation
// are left on disk.
func (s *Service) Split(ctx context.Context, req Request, hooks silence.Hooks) (*Result, error) {
	defer hooks.NotifyDone()

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrCancelled, err)
	}

	src, err := s.decoder.Open(ctx, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	meta := audio.Describe(src)
	hooks.NotifyTotal(meta.TotalFrames)

	s.logger.Info("splitting recording",
		slog.String("source", req.SourcePath),
		slog.Int("frames", meta.TotalFrames),
		slog.Int("frame_rate", meta.FrameRate),
		slog.Int("channels", meta.Channels),
		slog.Int("sample_width", meta.SampleWidth),
		slog.Float64("pause_sec", req.PauseSeconds),
		slog.Bool("deep_scan", req.DeepScan),
	)

	scanner, err := silence.NewScanner(req.PauseSeconds,
		silence.WithHooks(hooks),
		silence.WithLogger(s.logger),
		silence.WithDeepScan(req.DeepScan),
		silence.WithDeepStep(s.deepStep),
	)
	if err != nil {
		return nil, err
	}

	result := &Result{Metadata: meta, Cap: req.VolumeCap}
	if req.TargetTracks != nil {
		calibrator, err := silence.NewCalibrator(scanner, req.MinTrackSeconds,
			silence.WithMaxIterations(s.maxIterations),
			silence.WithCalibratorLogger(s.logger),
		)
		if err != nil {
			return nil, err
		}
		cal, err := calibrator.Calibrate(ctx, src, *req.TargetTracks)
		if err != nil {
			return nil, err
		}
		result.Cap = cal.Cap
		result.Calibrated = true
		result.Iterations = cal.Iterations
		result.Silence = cal.Silence

		s.logger.Info("calibrated silence cap",
			slog.Int("cap", cal.Cap),
			slog.Int("tracks", cal.Tracks),
			slog.Int("iterations", cal.Iterations),
		)
	} else {
		result.Silence, err = scanner.Detect(ctx, src, req.VolumeCap)
		if err != nil {
			return nil, err
		}
	}

	tracks, err := track.Split(src, result.Silence, req.MinTrackSeconds)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		s.logger.Warn("no track is long enough",
			slog.Int("silence_intervals", len(result.Silence)),
			slog.Float64("min_track_sec", req.MinTrackSeconds),
		)
	}

	frameSize := meta.FrameSize()
	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(ErrCancelled, err)
		}

		path := filepath.Join(req.DestDir, track.FileName(t.Number))
		if err := s.write(path, meta, t.Data); err != nil {
			return nil, fmt.Errorf("write track %d: %w", t.Number, err)
		}

		wt := WrittenTrack{
			Number:     t.Number,
			Index:      t.Index,
			Path:       path,
			StartFrame: t.Span.Start,
			EndFrame:   t.Span.End,
			Seconds:    audio.Seconds(t.Frames(frameSize), meta.FrameRate),
		}
		result.Tracks = append(result.Tracks, wt)

		s.logger.Info("track written",
			slog.Int("track", wt.Number),
			slog.String("path", wt.Path),
			slog.Float64("duration_sec", wt.Seconds),
		)
	}

	return result, nil
}

func (s *Service) write(path string, meta audio.Metadata, data []byte) error {
	sink, err := s.encoder.Create(path, meta)
	if err != nil {
		return err
	}
	if err := sink.WriteFrames(data); err != nil {
		_ = sink.Close()
		return err
	}
	return sink.Close()
}
