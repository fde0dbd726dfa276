package silence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/findsilence/internal/audio"
)

// afterloopFrames is the sub-step used to find where a detected silence ends.
const afterloopFrames = 20

// DefaultDeepStep is the window used by DeepScan.
const DefaultDeepStep = 10 * time.Millisecond

// Scanner finds silent ranges at least PauseSeconds long.
//
// A Scanner holds no per-stream state and can be reused, but a single
// Source must not be scanned concurrently.
type Scanner struct {
	pause    float64
	deep     bool
	deepStep time.Duration
	hooks    Hooks
	logger   *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithHooks sets the progress hooks used while scanning.
func WithHooks(h Hooks) ScannerOption {
	return func(s *Scanner) {
		s.hooks = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDeepScan makes Detect use DeepScan instead of Scan.
func WithDeepScan(enabled bool) ScannerOption {
	return func(s *Scanner) {
		s.deep = enabled
	}
}

// WithDeepStep sets the fixed window of DeepScan. Non-positive values are ignored.
func WithDeepStep(step time.Duration) ScannerOption {
	return func(s *Scanner) {
		if step > 0 {
			s.deepStep = step
		}
	}
}

// NewScanner creates a Scanner for pauses of at least pauseSeconds.
func NewScanner(pauseSeconds float64, opts ...ScannerOption) (*Scanner, error) {
	if pauseSeconds <= 0 {
		return nil, fmt.Errorf("%w: pause must be positive, got %g", ErrInvalidInput, pauseSeconds)
	}
	s := &Scanner{
		pause:    pauseSeconds,
		deepStep: DefaultDeepStep,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PauseSeconds returns the minimum pause length.
func (s *Scanner) PauseSeconds() float64 {
	return s.pause
}

// Hooks returns the progress hooks.
func (s *Scanner) Hooks() Hooks {
	return s.hooks
}

// Window returns the pause length in frames at rate.
func (s *Scanner) Window(rate int) int {
	return audio.FramesFor(s.pause, rate)
}

// Detect runs DeepScan when the scanner was built with WithDeepScan(true)
// and Scan otherwise.
func (s *Scanner) Detect(ctx context.Context, src audio.Source, silenceCap int) ([]Interval, error) {
	if s.deep {
		return s.DeepScan(ctx, src, silenceCap)
	}
	return s.Scan(ctx, src, silenceCap)
}

// Scan walks src from its current position in pause-sized windows. A window
// whose RMS is below silenceCap starts a silence interval, which is then
// extended in small sub-steps until the signal gets loud again or the stream
// ends. The main loop resumes after the loud sub-step without re-reading it.
//
// The stream is rewound afterwards. The result is unified; ErrNoSilence is
// returned when nothing was silent.
func (s *Scanner) Scan(ctx context.Context, src audio.Source, silenceCap int) ([]Interval, error) {
	window, err := s.window(src, silenceCap)
	if err != nil {
		return nil, err
	}

	width := src.SampleWidth()
	total := src.TotalFrames()
	i := src.Tell()
	prog := newProgress(s.hooks, total, i)

	var found []Interval
	for i < total {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		block, err := src.ReadFrames(window)
		if err != nil {
			return nil, fmt.Errorf("read frames at %d: %w", i, err)
		}
		if len(block) == 0 {
			break
		}

		if audio.RMS(block, width) < silenceCap {
			iv := Interval{Start: i, End: src.Tell()}
			for src.Tell() < total {
				block, err = src.ReadFrames(afterloopFrames)
				if err != nil {
					return nil, fmt.Errorf("read frames at %d: %w", src.Tell(), err)
				}
				if len(block) == 0 || audio.RMS(block, width) >= silenceCap {
					break
				}
				iv.End = src.Tell()
			}
			found = append(found, iv)

			s.logger.Debug("silence detected",
				slog.Int("start_frame", iv.Start),
				slog.Int("end_frame", iv.End),
				slog.Float64("start_sec", audio.Seconds(iv.Start, src.FrameRate())),
				slog.Float64("duration_sec", audio.Seconds(iv.Len(), src.FrameRate())),
			)
		}

		i = src.Tell()
		prog.update(i)
	}

	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrNoSilence
	}
	return Unify(found), nil
}

// DeepScan classifies every fixed-size step of the whole stream, unifies the
// silent steps and drops ranges shorter than the pause length. It costs more
// than Scan but does not miss short pauses straddling two coarse windows.
//
// The stream is rewound afterwards.
func (s *Scanner) DeepScan(ctx context.Context, src audio.Source, silenceCap int) ([]Interval, error) {
	window, err := s.window(src, silenceCap)
	if err != nil {
		return nil, err
	}

	step := audio.FramesFor(s.deepStep.Seconds(), src.FrameRate())
	if step < 1 {
		step = 1
	}

	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	width := src.SampleWidth()
	frameSize := width * src.Channels()
	total := src.TotalFrames()
	prog := newProgress(s.hooks, total, 0)

	var found []Interval
	pos := 0
	for pos < total {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		block, err := src.ReadFrames(step)
		if err != nil {
			return nil, fmt.Errorf("read frames at %d: %w", pos, err)
		}
		n := len(block) / frameSize
		if n == 0 {
			break
		}

		if audio.RMS(block, width) < silenceCap {
			found = append(found, Interval{Start: pos, End: pos + n})
		}
		pos += n
		prog.update(pos)
	}

	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	var result []Interval
	for _, iv := range Unify(found) {
		if iv.Len() >= window {
			result = append(result, iv)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoSilence
	}

	s.logger.Debug("deep scan finished",
		slog.Int("silent_steps", len(found)),
		slog.Int("intervals", len(result)),
	)
	return result, nil
}

// window validates the cap and returns the pause length in frames for src.
func (s *Scanner) window(src audio.Source, silenceCap int) (int, error) {
	if silenceCap < 0 {
		return 0, fmt.Errorf("%w: silence cap must not be negative, got %d", ErrInvalidInput, silenceCap)
	}
	window := s.Window(src.FrameRate())
	if window < 1 {
		return 0, fmt.Errorf("%w: pause of %gs is shorter than one frame at %d Hz", ErrInvalidInput, s.pause, src.FrameRate())
	}
	return window, nil
}
