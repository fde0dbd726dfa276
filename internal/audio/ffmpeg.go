package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Fallback layout used when ffmpeg does not report the input stream layout.
const (
	defaultFFmpegRate     = 44100
	defaultFFmpegChannels = 2
)

var (
	streamRe   = regexp.MustCompile(`Audio:[^\n]*?(\d+) Hz, ([^,\n]+)`)
	channelsRe = regexp.MustCompile(`^(\d+) channels`)
)

// FFmpegDecoder decodes any container ffmpeg understands into 16-bit
// little-endian PCM, keeping the input frame rate and channel count.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

// Open implements Decoder by piping the decoded stream into memory.
func (d *FFmpegDecoder) Open(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	rate, channels, err := d.probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe stream: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, &FFmpegError{Path: path, Stderr: stderr.String(), Err: err}
	}

	return NewMemorySource(stdout.Bytes(), 2, channels, rate)
}

// probe reads the frame rate and channel count of the first audio stream.
func (d *FFmpegDecoder) probe(ctx context.Context, path string) (rate, channels int, err error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", path,
		"-hide_banner",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg exits with an error when no output is given; stream info is on stderr.
	_ = cmd.Run()
	if ctx.Err() != nil {
		return 0, 0, ctx.Err()
	}

	rate, channels = parseStreamInfo(stderr.String())
	return rate, channels, nil
}

// parseStreamInfo extracts "<rate> Hz, <layout>" from ffmpeg's input banner.
// Unknown values fall back to 44.1 kHz stereo.
func parseStreamInfo(output string) (rate, channels int) {
	rate, channels = defaultFFmpegRate, defaultFFmpegChannels

	m := streamRe.FindStringSubmatch(output)
	if len(m) < 3 {
		return rate, channels
	}

	if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
		rate = v
	}

	layout := strings.TrimSpace(m[2])
	switch {
	case layout == "mono":
		channels = 1
	case layout == "stereo":
		channels = 2
	case strings.HasPrefix(layout, "5.1"):
		channels = 6
	case strings.HasPrefix(layout, "7.1"):
		channels = 8
	default:
		if cm := channelsRe.FindStringSubmatch(layout); len(cm) > 1 {
			if v, err := strconv.Atoi(cm[1]); err == nil && v > 0 {
				channels = v
			}
		}
	}

	return rate, channels
}

// FFmpegError is returned when the ffmpeg process exits with an error.
type FFmpegError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg decode %s: %v, stderr: %s", e.Path, e.Err, strings.TrimSpace(e.Stderr))
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Verify interface implementation at compile time.
var _ Decoder = (*FFmpegDecoder)(nil)
