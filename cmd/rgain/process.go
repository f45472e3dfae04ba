//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/integration/ffmpeg"
	"github.com/farcloser/replaygain/internal/integration/ffprobe"
	"github.com/farcloser/replaygain/internal/pcm"
	"github.com/farcloser/replaygain/internal/types"
)

var errProcessArgs = errors.New("expected at least one argument: file path")

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Decode audio files with ffmpeg and compute ReplayGain, each file being one track of an album",
		ArgsUsage: "<file> [file...]",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index (0-based)",
				Value: 0,
			},
		}, analysisFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errProcessArgs
			}

			streamIndex := cmd.Int("stream")
			tracks := make([]replaygain.Track, 0, cmd.NArg())

			for _, filePath := range cmd.Args().Slice() {
				track, err := decodedTrack(ctx, filePath, streamIndex)
				if err != nil {
					return err
				}

				tracks = append(tracks, track)
			}

			return runAlbum(ctx, cmd, tracks)
		},
	}
}

// decodeFormat is the PCM ffmpeg is asked for: float samples, resampled by ffmpeg to the nearest rate the
// analysis supports.
func decodeFormat(stream *ffprobe.Stream) (types.PCMFormat, error) {
	format, err := stream.PCMFormat()
	if err != nil {
		return types.PCMFormat{}, err
	}

	format.SampleRate = replaygain.NearestSupportedRate(format.SampleRate)

	return format, nil
}

// decodedTrack probes filePath and describes it as a track decoded to float PCM by ffmpeg.
func decodedTrack(ctx context.Context, filePath string, streamIndex int) (replaygain.Track, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return replaygain.Track{}, fmt.Errorf("probing %s: %w", filePath, err)
	}

	stream, err := probeResult.AudioStream(streamIndex)
	if err != nil {
		return replaygain.Track{}, fmt.Errorf("%s: %w", filePath, err)
	}

	format, err := decodeFormat(stream)
	if err != nil {
		return replaygain.Track{}, fmt.Errorf("%s: %w", filePath, err)
	}

	return replaygain.Track{
		Name:       filePath,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // validated positive value
		Open: func(ctx context.Context) (replaygain.FrameSource, error) {
			decoded, err := ffmpeg.Stream(ctx, filePath, streamIndex, format)
			if err != nil {
				return nil, fmt.Errorf("extracting PCM: %w", err)
			}

			reader, err := pcm.NewReader(decoded, format)
			if err != nil {
				decoded.Close()

				return nil, err
			}

			return &closingSource{FrameSource: reader, Closer: decoded}, nil
		},
	}, nil
}
