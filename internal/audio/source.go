// Package audio provides the frame-addressable PCM stream abstraction used by
// silence detection, together with decoders and encoders for concrete formats.
package audio

import (
	"context"
	"errors"
)

// ErrInvalidPosition is returned when seeking outside [0, TotalFrames].
var ErrInvalidPosition = errors.New("audio: position out of range")

// Metadata describes a PCM stream. It is fixed when the stream is opened.
type Metadata struct {
	// SampleWidth is the number of bytes per sample.
	SampleWidth int
	// Channels is the number of interleaved channels.
	Channels int
	// FrameRate is the number of frames per second.
	FrameRate int
	// TotalFrames is the length of the stream in frames.
	TotalFrames int
}

// FrameSize returns the number of bytes in one frame.
func (m Metadata) FrameSize() int {
	return m.Channels * m.SampleWidth
}

// Seconds returns the stream duration in seconds.
func (m Metadata) Seconds() float64 {
	return Seconds(m.TotalFrames, m.FrameRate)
}

// Source is a seekable PCM stream addressed in frames.
//
// A Source keeps a single read cursor and is not safe for concurrent use.
type Source interface {
	// TotalFrames returns the length of the stream in frames.
	TotalFrames() int
	// FrameRate returns the number of frames per second.
	FrameRate() int
	// Channels returns the number of interleaved channels.
	Channels() int
	// SampleWidth returns the number of bytes per sample.
	SampleWidth() int

	// Tell returns the current frame position.
	Tell() int
	// Seek moves the cursor to the given frame position.
	Seek(pos int) error
	// Rewind is equivalent to Seek(0).
	Rewind() error
	// ReadFrames reads up to n frames and advances the cursor by the number
	// of frames read. It returns fewer than n frames only at end of stream,
	// and an empty block once the stream is exhausted.
	ReadFrames(n int) ([]byte, error)

	// Close releases the underlying resources.
	Close() error
}

// Describe collects the metadata of src.
func Describe(src Source) Metadata {
	return Metadata{
		SampleWidth: src.SampleWidth(),
		Channels:    src.Channels(),
		FrameRate:   src.FrameRate(),
		TotalFrames: src.TotalFrames(),
	}
}

// Decoder opens a Source for a file path.
type Decoder interface {
	Open(ctx context.Context, path string) (Source, error)
}

// Sink accepts raw frames for one output file. Close flushes the file.
type Sink interface {
	WriteFrames(frames []byte) error
	Close() error
}

// Encoder creates a Sink writing frames with the given layout to path.
// TotalFrames in meta is ignored.
type Encoder interface {
	Create(path string, meta Metadata) (Sink, error)
}
