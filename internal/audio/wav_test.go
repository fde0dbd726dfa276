package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAV_RoundTrip(t *testing.T) {
	for _, width := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("%d-byte samples", width), func(t *testing.T) {
			meta := Metadata{SampleWidth: width, Channels: 2, FrameRate: 8000}
			data := make([]byte, 100*meta.FrameSize())
			for i := 0; i < len(data)/width; i++ {
				v := (i*37)%200 - 100
				PutSample(data[i*width:], width, v)
			}

			path := filepath.Join(t.TempDir(), "roundtrip.wav")
			sink, err := NewWAVEncoder().Create(path, meta)
			require.NoError(t, err)
			require.NoError(t, sink.WriteFrames(data[:60*meta.FrameSize()]))
			require.NoError(t, sink.WriteFrames(data[60*meta.FrameSize():]))
			require.NoError(t, sink.Close())

			src, err := NewWAVDecoder().Open(context.Background(), path)
			require.NoError(t, err)
			defer func() { _ = src.Close() }()

			assert.Equal(t, 100, src.TotalFrames())
			assert.Equal(t, 8000, src.FrameRate())
			assert.Equal(t, 2, src.Channels())
			assert.Equal(t, width, src.SampleWidth())

			block, err := src.ReadFrames(100)
			require.NoError(t, err)
			assert.Equal(t, data, block)
		})
	}
}

func TestWAVDecoder_EightBitIsSigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eight.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	// Unsigned on disk: 128 is digital silence, 28/228 a +-100 square wave.
	raw := make([]int, 0, 16000)
	for i := 0; i < 8000; i++ {
		raw = append(raw, 128)
	}
	for i := 0; i < 8000; i++ {
		if i%2 == 0 {
			raw = append(raw, 228)
		} else {
			raw = append(raw, 28)
		}
	}

	enc := wav.NewEncoder(f, 8000, 8, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           raw,
		SourceBitDepth: 8,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	src, err := NewWAVDecoder().Open(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	quiet, err := src.ReadFrames(8000)
	require.NoError(t, err)
	loud, err := src.ReadFrames(8000)
	require.NoError(t, err)

	assert.Equal(t, 0, RMS(quiet, 1))
	assert.Equal(t, 100, RMS(loud, 1))

	// Writing the signed frames back restores the unsigned encoding.
	out := filepath.Join(t.TempDir(), "copy.wav")
	sink, err := NewWAVEncoder().Create(out, Describe(src))
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrames(quiet))
	require.NoError(t, sink.WriteFrames(loud))
	require.NoError(t, sink.Close())

	rf, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = rf.Close() }()
	buf, err := wav.NewDecoder(rf).FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, raw, buf.Data)
}

func TestWAVDecoder_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o600))

	_, err := NewWAVDecoder().Open(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWAV))
}

func TestWAVDecoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWAVDecoder().Open(ctx, "/some/path.wav")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWAVEncoder_UnsupportedWidth(t *testing.T) {
	_, err := NewWAVEncoder().Create(filepath.Join(t.TempDir(), "x.wav"), Metadata{SampleWidth: 8, Channels: 1, FrameRate: 8000})
	assert.Error(t, err)
}

func TestOpener_OpensWAVAndRegisteredDecoders(t *testing.T) {
	meta := Metadata{SampleWidth: 2, Channels: 1, FrameRate: 8000}
	path := filepath.Join(t.TempDir(), "UPPER.WAV")
	sink, err := NewWAVEncoder().Create(path, meta)
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrames(samples(2, 1, 2, 3, 4)))
	require.NoError(t, sink.Close())

	o := NewOpener("/non/existent/ffmpeg")
	src, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, src.TotalFrames())

	fake := &fakeDecoder{}
	o.Register(".FLAC", fake)
	_, err = o.Open(context.Background(), "/music/side-a.flac")
	require.NoError(t, err)
	assert.Equal(t, "/music/side-a.flac", fake.opened)
}

type fakeDecoder struct {
	opened string
}

func (f *fakeDecoder) Open(_ context.Context, path string) (Source, error) {
	f.opened = path
	return NewMemorySource(nil, 2, 1, 8000)
}
