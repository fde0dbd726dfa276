package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("audio: not a valid WAV file")

// 8-bit WAV samples are stored unsigned with silence at 128. Sources always
// hold signed samples.
const unsigned8Offset = 128

// WAVDecoder opens PCM WAV files as in-memory sources.
type WAVDecoder struct{}

// NewWAVDecoder creates a new WAVDecoder.
func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{}
}

// Open implements Decoder. The whole PCM chunk is loaded into memory.
func (d *WAVDecoder) Open(ctx context.Context, path string) (Source, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth%8 != 0 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, depth)
	}

	width := depth / 8
	data := make([]byte, len(buf.Data)*width)
	for i, v := range buf.Data {
		if width == 1 {
			v -= unsigned8Offset
		}
		PutSample(data[i*width:], width, v)
	}

	return NewMemorySource(data, width, buf.Format.NumChannels, buf.Format.SampleRate)
}

// WAVEncoder writes tracks as PCM WAV files.
type WAVEncoder struct{}

// NewWAVEncoder creates a new WAVEncoder.
func NewWAVEncoder() *WAVEncoder {
	return &WAVEncoder{}
}

// Create implements Encoder.
func (e *WAVEncoder) Create(path string, meta Metadata) (Sink, error) {
	if meta.SampleWidth < 1 || meta.SampleWidth > 4 {
		return nil, fmt.Errorf("unsupported sample width %d", meta.SampleWidth)
	}

	f, err := os.Create(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}

	return &wavSink{
		file: f,
		enc:  wav.NewEncoder(f, meta.FrameRate, meta.SampleWidth*8, meta.Channels, 1),
		meta: meta,
	}, nil
}

type wavSink struct {
	file *os.File
	enc  *wav.Encoder
	meta Metadata
}

// WriteFrames implements Sink.
func (s *wavSink) WriteFrames(frames []byte) error {
	width := s.meta.SampleWidth
	samples := make([]int, len(frames)/width)
	for i := range samples {
		samples[i] = Sample(frames[i*width:], width)
		if width == 1 {
			samples[i] += unsigned8Offset
		}
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: s.meta.Channels,
			SampleRate:  s.meta.FrameRate,
		},
		Data:           samples,
		SourceBitDepth: width * 8,
	}
	if err := s.enc.Write(buf); err != nil {
		return fmt.Errorf("write wav frames: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *wavSink) Close() error {
	if err := s.enc.Close(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close wav file: %w", err)
	}
	return nil
}

// Verify interface implementation at compile time.
var (
	_ Decoder = (*WAVDecoder)(nil)
	_ Encoder = (*WAVEncoder)(nil)
)
