package silence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/findsilence/internal/audio"
)

// DefaultMaxIterations bounds the calibration search.
const DefaultMaxIterations = 64

// measureWindowSeconds is the block length used to measure the amplitude range.
const measureWindowSeconds = 0.5

// Calibration is the outcome of a successful threshold search.
type Calibration struct {
	// Cap is the silence cap that produced Tracks tracks.
	Cap int
	// Silence is the unified silence list found with Cap.
	Silence []Interval
	// Tracks is the number of tracks Silence implies after the length filter.
	Tracks int
	// Iterations is the number of scans the search ran.
	Iterations int
	// MinRMS and MaxRMS bound the searched caps.
	MinRMS int
	MaxRMS int
}

// Calibrator searches for the silence cap that splits a stream into a
// requested number of tracks.
type Calibrator struct {
	scanner         *Scanner
	minTrackSeconds float64
	maxIterations   int
	logger          *slog.Logger
}

// CalibratorOption configures a Calibrator.
type CalibratorOption func(*Calibrator)

// WithMaxIterations bounds the number of scans. Non-positive values are ignored.
func WithMaxIterations(n int) CalibratorOption {
	return func(c *Calibrator) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithCalibratorLogger sets the logger.
func WithCalibratorLogger(logger *slog.Logger) CalibratorOption {
	return func(c *Calibrator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCalibrator creates a Calibrator that counts only tracks of at least
// minTrackSeconds.
func NewCalibrator(scanner *Scanner, minTrackSeconds float64, opts ...CalibratorOption) (*Calibrator, error) {
	if scanner == nil {
		return nil, fmt.Errorf("%w: scanner is required", ErrInvalidInput)
	}
	if minTrackSeconds < 0 {
		return nil, fmt.Errorf("%w: minimum track length must not be negative, got %g", ErrInvalidInput, minTrackSeconds)
	}
	c := &Calibrator{
		scanner:         scanner,
		minTrackSeconds: minTrackSeconds,
		maxIterations:   DefaultMaxIterations,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Calibrate binary-searches the cap between the quietest and loudest
// half-second block of src until the scan yields exactly target tracks.
//
// More tracks than requested lowers the upper bound, fewer raises the lower
// bound. The search stops with ErrCalibrationFailed once the bounds cross or
// the iteration limit is reached.
func (c *Calibrator) Calibrate(ctx context.Context, src audio.Source, target int) (*Calibration, error) {
	if target < 1 {
		return nil, fmt.Errorf("%w: target track count must be at least 1, got %d", ErrInvalidInput, target)
	}
	total := src.TotalFrames()
	minFrames := audio.FramesFor(c.minTrackSeconds, src.FrameRate())
	if minFrames > 0 && target > total/minFrames {
		return nil, fmt.Errorf("%w: %d tracks of %gs do not fit in %gs of audio",
			ErrInvalidInput, target, c.minTrackSeconds, audio.Seconds(total, src.FrameRate()))
	}

	minRMS, maxRMS, err := c.Range(ctx, src)
	if err != nil {
		return nil, err
	}
	if target > 1 && minRMS == maxRMS {
		return nil, fmt.Errorf("%w: constant loudness %d cannot be split into %d tracks", ErrInvalidInput, minRMS, target)
	}

	lo, hi := minRMS, maxRMS
	iterations := 0
	for iterations < c.maxIterations && lo <= hi {
		iterations++
		capValue := lo + (hi-lo)/2

		silence, tracks, err := c.Count(ctx, src, capValue)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("calibration step",
			slog.Int("iteration", iterations),
			slog.Int("cap", capValue),
			slog.Int("tracks", tracks),
			slog.Int("target", target),
		)

		switch {
		case tracks == target:
			return &Calibration{
				Cap:        capValue,
				Silence:    silence,
				Tracks:     tracks,
				Iterations: iterations,
				MinRMS:     minRMS,
				MaxRMS:     maxRMS,
			}, nil
		case tracks > target:
			hi = capValue - 1
		default:
			lo = capValue + 1
		}
	}

	return nil, fmt.Errorf("%w: no cap in [%d, %d] yields %d tracks after %d iterations",
		ErrCalibrationFailed, minRMS, maxRMS, target, iterations)
}

// Count scans src with silenceCap and returns the silence list together with
// the number of tracks it implies after the minimum length filter. A scan
// without silence counts as a single whole-stream track.
func (c *Calibrator) Count(ctx context.Context, src audio.Source, silenceCap int) ([]Interval, int, error) {
	if err := src.Rewind(); err != nil {
		return nil, 0, fmt.Errorf("rewind: %w", err)
	}

	silence, err := c.scanner.Detect(ctx, src, silenceCap)
	if err != nil && !errors.Is(err, ErrNoSilence) {
		return nil, 0, err
	}

	minFrames := audio.FramesFor(c.minTrackSeconds, src.FrameRate())
	return silence, CountTracks(silence, src.TotalFrames(), minFrames), nil
}

// Range returns the smallest and largest RMS of the half-second blocks of src.
// The stream is rewound afterwards.
func (c *Calibrator) Range(ctx context.Context, src audio.Source) (minRMS, maxRMS int, err error) {
	if src.TotalFrames() == 0 {
		return 0, 0, fmt.Errorf("%w: empty stream", ErrInvalidInput)
	}

	window := audio.FramesFor(measureWindowSeconds, src.FrameRate())
	if window < 1 {
		window = 1
	}
	if err := src.Rewind(); err != nil {
		return 0, 0, fmt.Errorf("rewind: %w", err)
	}

	width := src.SampleWidth()
	first := true
	for src.Tell() < src.TotalFrames() {
		if err := ctx.Err(); err != nil {
			return 0, 0, cancelled(err)
		}

		block, err := src.ReadFrames(window)
		if err != nil {
			return 0, 0, fmt.Errorf("read frames: %w", err)
		}
		if len(block) == 0 {
			break
		}

		v := audio.RMS(block, width)
		if first || v < minRMS {
			minRMS = v
		}
		if first || v > maxRMS {
			maxRMS = v
		}
		first = false
	}

	if err := src.Rewind(); err != nil {
		return 0, 0, fmt.Errorf("rewind: %w", err)
	}
	return minRMS, maxRMS, nil
}
