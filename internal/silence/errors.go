// Package silence detects silent ranges in a PCM stream and derives track
// boundaries from them.
package silence

import "errors"

// Conditions raised by scanning, calibration and splitting.
var (
	// ErrCancelled is returned when the caller's context is done mid-scan.
	ErrCancelled = errors.New("silence: cancelled")
	// ErrNoSilence is returned when a scan finds no silent window at all.
	ErrNoSilence = errors.New("silence: no silence found")
	// ErrCalibrationFailed is returned when no cap yields the requested track count.
	ErrCalibrationFailed = errors.New("silence: calibration failed")
	// ErrInvalidInput is returned for parameters that can never produce a result.
	ErrInvalidInput = errors.New("silence: invalid input")
)

// cancelled wraps ctx.Err() so that both ErrCancelled and the context error match.
func cancelled(err error) error {
	return errors.Join(ErrCancelled, err)
}
