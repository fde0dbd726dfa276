// Package track cuts a PCM stream into tracks at detected silence.
package track

import (
	"fmt"
	"regexp"

	"github.com/maauso/findsilence/internal/audio"
	"github.com/maauso/findsilence/internal/silence"
)

var fileNameRe = regexp.MustCompile(`^track_\d{2,}\.wav$`)

// FileName returns the output file name for the track numbered n.
func FileName(n int) string {
	return fmt.Sprintf("track_%02d.wav", n)
}

// IsTrackFile reports whether name looks like a FileName result.
func IsTrackFile(name string) bool {
	return fileNameRe.MatchString(name)
}

// Track is one contiguous block of frames between two silences.
type Track struct {
	// Number is the output position, contiguous from 0 after filtering.
	Number int
	// Index is the position among all spans before filtering.
	Index int
	// Span is the frame range the track was read from.
	Span silence.Interval
	// Data holds the raw interleaved frames.
	Data []byte
}

// Frames returns the track length in frames for the given frame size.
func (t Track) Frames(frameSize int) int {
	if frameSize <= 0 {
		return 0
	}
	return len(t.Data) / frameSize
}

// Split reads the tracks delimited by the unified silence list from src,
// drops tracks shorter than minSeconds and renumbers the rest from 0.
// The stream is rewound afterwards.
func Split(src audio.Source, silenceList []silence.Interval, minSeconds float64) ([]Track, error) {
	raw, err := Read(src, silenceList)
	if err != nil {
		return nil, err
	}
	minFrames := audio.FramesFor(minSeconds, src.FrameRate())
	return Filter(raw, minFrames, src.Channels()*src.SampleWidth()), nil
}

// Read returns every non-empty span around the silence list as a raw track:
// the first starts at frame 0 and the last ends at the end of the stream.
// Number equals Index. The stream is rewound afterwards.
func Read(src audio.Source, silenceList []silence.Interval) ([]Track, error) {
	spans := silence.TrackSpans(silenceList, src.TotalFrames())
	tracks := make([]Track, 0, len(spans))

	for i, span := range spans {
		if err := src.Seek(span.Start); err != nil {
			return nil, fmt.Errorf("seek track %d: %w", i, err)
		}
		data, err := src.ReadFrames(span.Len())
		if err != nil {
			return nil, fmt.Errorf("read track %d: %w", i, err)
		}
		tracks = append(tracks, Track{Number: i, Index: i, Span: span, Data: data})
	}

	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	return tracks, nil
}

// Filter drops empty tracks and tracks shorter than minFrames, numbering the
// survivors 0, 1, 2... without gaps.
func Filter(raw []Track, minFrames, frameSize int) []Track {
	out := make([]Track, 0, len(raw))
	for _, t := range raw {
		n := t.Frames(frameSize)
		if n == 0 || n < minFrames {
			continue
		}
		t.Number = len(out)
		out = append(out, t)
	}
	return out
}
