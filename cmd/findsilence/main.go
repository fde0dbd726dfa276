// Package main provides the findsilence command, which splits digitized
// records into one WAV file per track at the pauses between songs.
//
// Usage:
//
//	findsilence [options] input...
//
// With a single input the tracks are written straight into the output
// directory. With several inputs each one gets a sub-directory named after
// the input file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/maauso/findsilence/internal/bootstrap"
	"github.com/maauso/findsilence/internal/config"
	"github.com/maauso/findsilence/internal/silence"
	"github.com/maauso/findsilence/internal/split"
	"github.com/maauso/findsilence/internal/track"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitOverwrite = 2
	exitCancelled = 130
)

var errInvalidTarget = errors.New("target track count must be at least 1")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	output       string
	force        bool
	minSeconds   float64
	pauseSeconds float64
	volumeCap    int
	targetTracks int
	deep         bool
	verbose      bool
	quiet        bool
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet("findsilence", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: findsilence [options] input...")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.output, "o", cfg.OutputDir, "write tracks to `DIRECTORY`")
	fs.BoolVar(&opts.force, "f", false, "overwrite existing track files")
	fs.Float64Var(&opts.minSeconds, "m", cfg.MinTrackLength, "drop tracks shorter than `SECONDS`")
	fs.Float64Var(&opts.pauseSeconds, "p", cfg.PauseSeconds, "find pauses longer than `SECONDS`")
	fs.IntVar(&opts.volumeCap, "s", cfg.VolumeCap, "treat everything quieter than `VOLUME` as silence")
	fs.IntVar(&opts.targetTracks, "t", 0, "calibrate the silence volume to produce `TRACKS` tracks")
	fs.BoolVar(&opts.deep, "d", cfg.DeepScan, "deep scan: classify every short step of the recording")
	fs.BoolVar(&opts.verbose, "v", false, "log scanning details")
	fs.BoolVar(&opts.quiet, "q", false, "only log errors")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.targetTracks < 0 || (opts.targetTracks == 0 && flagSet(fs, "t")) {
		fmt.Fprintf(stderr, "error: -t must be at least 1, got %d\n", opts.targetTracks)
		return nil, nil, errInvalidTarget
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, nil, flag.ErrHelp
	}
	return opts, fs.Args(), nil
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	opts, inputs, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return exitFailure
	}

	switch {
	case opts.verbose:
		cfg.LogLevel = "debug"
	case opts.quiet:
		cfg.LogLevel = "error"
	}
	logger := cfg.NewLoggerTo(stderr)

	if _, err := os.Stat(opts.output); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(opts.output, 0750); err != nil {
			fmt.Fprintf(stderr, "error: create output directory: %v\n", err)
			return exitFailure
		}
	} else if !opts.force {
		clean, err := checkOverwrite(inputs, opts.output)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		if !clean {
			fmt.Fprintln(stderr, "Output directory contains files that may be overwritten. Use -f to force.")
			return exitOverwrite
		}
	}

	splitter := bootstrap.NewSplitter(cfg, logger)

	code := exitOK
	for _, input := range inputs {
		dest := opts.output
		if len(inputs) > 1 {
			dest = filepath.Join(opts.output, outputName(input))
			if err := os.MkdirAll(dest, 0750); err != nil {
				fmt.Fprintf(stderr, "error: create output directory: %v\n", err)
				return exitFailure
			}
		}

		req := split.Request{
			SourcePath:      input,
			DestDir:         dest,
			PauseSeconds:    opts.pauseSeconds,
			VolumeCap:       opts.volumeCap,
			MinTrackSeconds: opts.minSeconds,
			DeepScan:        opts.deep,
		}
		if opts.targetTracks > 0 {
			target := opts.targetTracks
			req.TargetTracks = &target
		}

		result, err := splitter.Split(ctx, req, progressHooks(logger, input))
		switch {
		case errors.Is(err, split.ErrCancelled):
			fmt.Fprintln(stdout, "Operation cancelled")
			return exitCancelled
		case errors.Is(err, split.ErrNoSilence):
			fmt.Fprintf(stdout, "No silence found in %s\n", input)
			code = exitFailure
			continue
		case err != nil:
			fmt.Fprintf(stderr, "error: %s: %v\n", input, err)
			code = exitFailure
			continue
		}

		fmt.Fprintf(stdout, "%s: %d tracks written to %s (silence volume %d)\n",
			input, len(result.Tracks), dest, result.Cap)
	}
	return code
}

// progressHooks logs scan progress at debug level.
func progressHooks(logger *slog.Logger, input string) silence.Hooks {
	total := 0
	return silence.Hooks{
		FramesTotal: func(n int) { total = n },
		CurrentFrame: func(pos int) {
			if total > 0 {
				logger.Debug("scanning",
					slog.String("input", input),
					slog.Int("percent", pos*100/total),
				)
			}
		},
	}
}

// checkOverwrite reports whether splitting inputs into output leaves every
// existing track file alone.
func checkOverwrite(inputs []string, output string) (bool, error) {
	if len(inputs) < 2 {
		return noTrackFiles(output)
	}
	for _, input := range inputs {
		ok, err := noTrackFiles(filepath.Join(output, outputName(input)))
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func noTrackFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read output directory: %w", err)
	}
	for _, e := range entries {
		if track.IsTrackFile(e.Name()) {
			return false, nil
		}
	}
	return true, nil
}

// outputName is the sub-directory name for input: its base name without extension.
func outputName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
