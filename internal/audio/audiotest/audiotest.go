// Package audiotest builds synthetic PCM signals with exactly known loudness.
package audiotest

import (
	"testing"

	"github.com/maauso/findsilence/internal/audio"
)

// Segment is a run of frames whose samples alternate between +Amplitude and
// -Amplitude, so its RMS is exactly Amplitude.
type Segment struct {
	Amplitude int
	Frames    int
}

// Loud returns a segment of the given amplitude and length.
func Loud(amplitude, frames int) Segment {
	return Segment{Amplitude: amplitude, Frames: frames}
}

// Quiet returns a segment of digital silence.
func Quiet(frames int) Segment {
	return Segment{Frames: frames}
}

// Build renders segments as interleaved PCM with the given layout.
func Build(width, channels int, segments ...Segment) []byte {
	total := 0
	for _, s := range segments {
		total += s.Frames
	}

	frameSize := width * channels
	data := make([]byte, total*frameSize)
	off := 0
	for _, s := range segments {
		for f := 0; f < s.Frames; f++ {
			v := s.Amplitude
			if f%2 == 1 {
				v = -v
			}
			for c := 0; c < channels; c++ {
				audio.PutSample(data[off:], width, v)
				off += width
			}
		}
	}
	return data
}

// Source builds a 16-bit mono MemorySource at rate from segments.
func Source(t testing.TB, rate int, segments ...Segment) *audio.MemorySource {
	t.Helper()
	src, err := audio.NewMemorySource(Build(2, 1, segments...), 2, 1, rate)
	if err != nil {
		t.Fatalf("build source: %v", err)
	}
	return src
}
