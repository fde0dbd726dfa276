package audio

import (
	"context"
	"path/filepath"
	"strings"
)

// Opener picks a Decoder by file extension. WAV files are read natively,
// everything else is handed to the fallback decoder.
type Opener struct {
	decoders map[string]Decoder
	fallback Decoder
}

// NewOpener creates an Opener with the native WAV decoder and an ffmpeg
// fallback. An empty ffmpegPath resolves ffmpeg from PATH.
func NewOpener(ffmpegPath string) *Opener {
	wavDec := NewWAVDecoder()
	return &Opener{
		decoders: map[string]Decoder{
			".wav":  wavDec,
			".wave": wavDec,
		},
		fallback: NewFFmpegDecoder(ffmpegPath),
	}
}

// Register binds a decoder to a file extension such as ".flac".
func (o *Opener) Register(ext string, dec Decoder) {
	o.decoders[strings.ToLower(ext)] = dec
}

// Open implements Decoder.
func (o *Opener) Open(ctx context.Context, path string) (Source, error) {
	if dec, ok := o.decoders[strings.ToLower(filepath.Ext(path))]; ok {
		return dec.Open(ctx, path)
	}
	return o.fallback.Open(ctx, path)
}

// Verify interface implementation at compile time.
var _ Decoder = (*Opener)(nil)
