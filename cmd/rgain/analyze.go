//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/pcm"
	"github.com/farcloser/replaygain/internal/types"
)

const stdinPath = "-"

var (
	errNoInput         = errors.New("expected at least one argument: file path or \"-\" for stdin")
	errInvalidBitDepth = errors.New("must be 8, 16, 24, or 32")
	errFloatBitDepth   = errors.New("float samples are 32 bit")
	errMissingRate     = errors.New("--sample-rate is required for raw PCM input")
	errInvalidChannels = errors.New("must be between 1 and 255")
	errStdinUsedTwice  = errors.New("stdin can only be read once")
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Compute ReplayGain for raw PCM or WAV files, each argument being one track of an album",
		ArgsUsage: "<file | -> [file...]",
		Flags: append([]cli.Flag{
			// PCMFormat flags, for raw input. WAV files carry their own.
			&cli.IntFlag{
				Name:    "sample-rate",
				Aliases: []string{"s"},
				Usage:   "Sample rate in Hz (e.g., 44100, 48000, 96000)",
			},
			&cli.IntFlag{
				Name:    "bit-depth",
				Aliases: []string{"b"},
				Usage:   "Bit depth (8, 16, 24, or 32)",
				Value:   16,
			},
			&cli.IntFlag{
				Name:    "channels",
				Aliases: []string{"c"},
				Usage:   "Number of channels (1 = mono, 2 = stereo)",
				Value:   2,
			},
			&cli.BoolFlag{
				Name:  "float",
				Usage: "Samples are 32 bit IEEE float",
			},
		}, analysisFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errNoInput
			}

			var (
				format  types.PCMFormat
				haveRaw bool
			)

			for _, input := range cmd.Args().Slice() {
				if !isWAV(input) {
					haveRaw = true
				}
			}

			if haveRaw {
				var err error

				format, err = parsePCMFormat(cmd)
				if err != nil {
					return err
				}
			}

			tracks, err := localTracks(cmd.Args().Slice(), format)
			if err != nil {
				return err
			}

			return runAlbum(ctx, cmd, tracks)
		},
	}
}

// analysisFlags are shared by analyze and process.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "resample",
			Usage: "Convert unsupported sample rates to the nearest supported one instead of failing",
		},
		&cli.BoolFlag{
			Name:  "isolate-tracks",
			Usage: "Measure every track as an independent signal (analyzes tracks in parallel)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Number of concurrent workers with --isolate-tracks",
			Value:   runtime.NumCPU(),
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
		},
	}
}

func analysisOptions(cmd *cli.Command) replaygain.Options {
	opts := replaygain.DefaultOptions()
	opts.Resample = cmd.Bool("resample")
	opts.IsolateTracks = cmd.Bool("isolate-tracks")

	return opts
}

func parsePCMFormat(cmd *cli.Command) (types.PCMFormat, error) {
	sampleRate := cmd.Int("sample-rate")
	if sampleRate <= 0 {
		return types.PCMFormat{}, errMissingRate
	}

	channels := cmd.Int("channels")
	if channels < 1 || channels > replaygain.MaxChannels {
		return types.PCMFormat{}, fmt.Errorf("--channels %d: %w", channels, errInvalidChannels)
	}

	bitDepth, err := toBitDepth(cmd.Int("bit-depth"))
	if err != nil {
		return types.PCMFormat{}, fmt.Errorf("--bit-depth: %w", err)
	}

	encoding := types.EncodingSigned
	if cmd.Bool("float") {
		if bitDepth != types.Depth32 {
			return types.PCMFormat{}, fmt.Errorf("--bit-depth %d: %w", bitDepth, errFloatBitDepth)
		}

		encoding = types.EncodingFloat
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   uint(channels), //nolint:gosec // validated range
		Encoding:   encoding,
	}, nil
}

func toBitDepth(v int) (types.BitDepth, error) {
	switch v {
	case 8:
		return types.Depth8, nil
	case 16:
		return types.Depth16, nil
	case 24:
		return types.Depth24, nil
	case 32:
		return types.Depth32, nil
	default:
		return 0, errInvalidBitDepth
	}
}

func isWAV(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	return ext == ".wav" || ext == ".wave"
}

// localTracks describes raw PCM files, stdin and WAV files as album tracks.
func localTracks(inputs []string, raw types.PCMFormat) ([]replaygain.Track, error) {
	tracks := make([]replaygain.Track, 0, len(inputs))
	stdinSeen := false

	for _, input := range inputs {
		switch {
		case input == stdinPath:
			if stdinSeen {
				return nil, errStdinUsedTwice
			}

			stdinSeen = true

			tracks = append(tracks, stdinTrack(raw))
		case isWAV(input):
			track, err := wavTrack(input)
			if err != nil {
				return nil, err
			}

			tracks = append(tracks, track)
		default:
			// Verify the file exists upfront.
			if _, err := os.Stat(input); err != nil {
				return nil, fmt.Errorf("cannot access %s: %w", input, err)
			}

			tracks = append(tracks, rawTrack(input, raw))
		}
	}

	return tracks, nil
}

func stdinTrack(format types.PCMFormat) replaygain.Track {
	return replaygain.Track{
		Name:       stdinPath,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // validated range
		Open: func(_ context.Context) (replaygain.FrameSource, error) {
			return pcm.NewReader(os.Stdin, format)
		},
	}
}

func rawTrack(path string, format types.PCMFormat) replaygain.Track {
	return replaygain.Track{
		Name:       path,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // validated range
		Open: func(_ context.Context) (replaygain.FrameSource, error) {
			file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
			if err != nil {
				return nil, err
			}

			reader, err := pcm.NewReader(file, format)
			if err != nil {
				file.Close()

				return nil, err
			}

			return &closingSource{FrameSource: reader, Closer: file}, nil
		},
	}
}

func wavTrack(path string) (replaygain.Track, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return replaygain.Track{}, fmt.Errorf("cannot access %s: %w", path, err)
	}
	defer file.Close()

	reader, err := pcm.NewWAVReader(file)
	if err != nil {
		return replaygain.Track{}, fmt.Errorf("%s: %w", path, err)
	}

	format := reader.Format()

	return replaygain.Track{
		Name:       path,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // validated by the decoder
		Open: func(_ context.Context) (replaygain.FrameSource, error) {
			file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
			if err != nil {
				return nil, err
			}

			reader, err := pcm.NewWAVReader(file)
			if err != nil {
				file.Close()

				return nil, err
			}

			return &closingSource{FrameSource: reader, Closer: file}, nil
		},
	}, nil
}
