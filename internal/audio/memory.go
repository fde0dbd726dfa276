package audio

import "fmt"

// MemorySource is a Source backed by an in-memory PCM buffer.
type MemorySource struct {
	meta Metadata
	data []byte
	pos  int
}

// NewMemorySource wraps interleaved PCM data with the given layout.
// TotalFrames is derived from the data length; a trailing partial frame is dropped.
func NewMemorySource(data []byte, sampleWidth, channels, frameRate int) (*MemorySource, error) {
	if sampleWidth < 1 || sampleWidth > 4 {
		return nil, fmt.Errorf("unsupported sample width %d", sampleWidth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if frameRate < 1 {
		return nil, fmt.Errorf("invalid frame rate %d", frameRate)
	}

	meta := Metadata{
		SampleWidth: sampleWidth,
		Channels:    channels,
		FrameRate:   frameRate,
	}
	meta.TotalFrames = len(data) / meta.FrameSize()

	return &MemorySource{
		meta: meta,
		data: data[:meta.TotalFrames*meta.FrameSize()],
	}, nil
}

// TotalFrames implements Source.
func (s *MemorySource) TotalFrames() int { return s.meta.TotalFrames }

// FrameRate implements Source.
func (s *MemorySource) FrameRate() int { return s.meta.FrameRate }

// Channels implements Source.
func (s *MemorySource) Channels() int { return s.meta.Channels }

// SampleWidth implements Source.
func (s *MemorySource) SampleWidth() int { return s.meta.SampleWidth }

// Tell implements Source.
func (s *MemorySource) Tell() int { return s.pos }

// Seek implements Source.
func (s *MemorySource) Seek(pos int) error {
	if pos < 0 || pos > s.meta.TotalFrames {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, pos, s.meta.TotalFrames)
	}
	s.pos = pos
	return nil
}

// Rewind implements Source.
func (s *MemorySource) Rewind() error {
	return s.Seek(0)
}

// ReadFrames implements Source. The returned block aliases the internal buffer
// and must not be modified.
func (s *MemorySource) ReadFrames(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative frame count %d", n)
	}
	end := s.pos + n
	if end > s.meta.TotalFrames {
		end = s.meta.TotalFrames
	}
	fs := s.meta.FrameSize()
	block := s.data[s.pos*fs : end*fs]
	s.pos = end
	return block, nil
}

// Close implements Source.
func (s *MemorySource) Close() error { return nil }

// Verify interface implementation at compile time.
var _ Source = (*MemorySource)(nil)
