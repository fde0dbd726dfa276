package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDecoder struct {
	name  string
	calls []string
}

func (d *stubDecoder) Open(_ context.Context, path string) (Source, error) {
	d.calls = append(d.calls, path)
	return nil, errors.New(d.name)
}

func TestOpener_PicksDecoderByExtension(t *testing.T) {
	wavDec := &stubDecoder{name: "wav"}
	flacDec := &stubDecoder{name: "flac"}
	fallback := &stubDecoder{name: "fallback"}

	o := &Opener{decoders: map[string]Decoder{".wav": wavDec}, fallback: fallback}
	o.Register(".FLAC", flacDec)

	tests := []struct {
		path string
		want string
	}{
		{path: "side_a.wav", want: "wav"},
		{path: "SIDE_B.WAV", want: "wav"},
		{path: "album.flac", want: "flac"},
		{path: "album.Flac", want: "flac"},
		{path: "album.mp3", want: "fallback"},
		{path: "no_extension", want: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := o.Open(context.Background(), tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	assert.Equal(t, []string{"side_a.wav", "SIDE_B.WAV"}, wavDec.calls)
	assert.Equal(t, []string{"album.mp3", "no_extension"}, fallback.calls)
}

func TestNewOpener_NativeWAV(t *testing.T) {
	o := NewOpener("")

	assert.IsType(t, &WAVDecoder{}, o.decoders[".wav"])
	assert.IsType(t, &WAVDecoder{}, o.decoders[".wave"])
	assert.IsType(t, &FFmpegDecoder{}, o.fallback)
}
