package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkFFmpeg skips test if ffmpeg is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestFLAC encodes a sine tone with ffmpeg's lavfi source.
func createTestFLAC(t *testing.T, outputPath string, rate, channels int, durationSec string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration="+durationSec+":sample_rate=16000",
		"-ar", strconv.Itoa(rate), "-ac", strconv.Itoa(channels),
		outputPath,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to create test FLAC: %s", string(out))
}

func TestParseStreamInfo(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		wantRate     int
		wantChannels int
	}{
		{
			name:         "flac stereo",
			output:       "  Stream #0:0: Audio: flac, 44100 Hz, stereo, s16",
			wantRate:     44100,
			wantChannels: 2,
		},
		{
			name:         "mp3 mono",
			output:       "  Stream #0:0: Audio: mp3 (mp3float), 22050 Hz, mono, fltp, 64 kb/s",
			wantRate:     22050,
			wantChannels: 1,
		},
		{
			name:         "pcm with tag",
			output:       "  Stream #0:0: Audio: pcm_s16le ([1][0][0][0] / 0x0001), 48000 Hz, 5.1, s16, 4608 kb/s",
			wantRate:     48000,
			wantChannels: 6,
		},
		{
			name:         "explicit channel count",
			output:       "  Stream #0:0: Audio: pcm_s24le, 96000 Hz, 4 channels, s32",
			wantRate:     96000,
			wantChannels: 4,
		},
		{
			name:         "no audio stream",
			output:       "Invalid data found when processing input",
			wantRate:     defaultFFmpegRate,
			wantChannels: defaultFFmpegChannels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, channels := parseStreamInfo(tt.output)
			assert.Equal(t, tt.wantRate, rate)
			assert.Equal(t, tt.wantChannels, channels)
		})
	}
}

func TestNewFFmpegDecoder_DefaultPath(t *testing.T) {
	d := NewFFmpegDecoder("")
	assert.Equal(t, "ffmpeg", d.ffmpegPath)

	d = NewFFmpegDecoder("/opt/ffmpeg/bin/ffmpeg")
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", d.ffmpegPath)
}

func TestFFmpegDecoder_MissingFile(t *testing.T) {
	d := NewFFmpegDecoder("")
	_, err := d.Open(context.Background(), "/non/existent/file.flac")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFFmpegDecoder_DecodesFLAC(t *testing.T) {
	checkFFmpeg(t)

	inputPath := filepath.Join(t.TempDir(), "tone.flac")
	createTestFLAC(t, inputPath, 16000, 1, "2")

	src, err := NewFFmpegDecoder("").Open(context.Background(), inputPath)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, 16000, src.FrameRate())
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, 2, src.SampleWidth())
	assert.InDelta(t, 32000, src.TotalFrames(), 1600)

	block, err := src.ReadFrames(src.TotalFrames())
	require.NoError(t, err)
	assert.Greater(t, RMS(block, 2), 1000, "sine tone should not be silent")
}

func TestFFmpegDecoder_CorruptInput(t *testing.T) {
	checkFFmpeg(t)

	inputPath := filepath.Join(t.TempDir(), "broken.flac")
	require.NoError(t, os.WriteFile(inputPath, []byte("not audio at all"), 0o600))

	_, err := NewFFmpegDecoder("").Open(context.Background(), inputPath)
	require.Error(t, err)

	var ffErr *FFmpegError
	require.ErrorAs(t, err, &ffErr)
	assert.Equal(t, inputPath, ffErr.Path)
	assert.NotEmpty(t, ffErr.Stderr)
}

func TestFFmpegError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FFmpegError{Path: "a.mp3", Stderr: "Invalid data\n", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "ffmpeg decode a.mp3: exit status 1, stderr: Invalid data", err.Error())
}
