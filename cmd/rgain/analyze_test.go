package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/types"
)

// parseFlags runs the analyze flag set over args and returns the parsed raw format.
func parseFlags(t *testing.T, args ...string) (types.PCMFormat, error) {
	t.Helper()

	var (
		format   types.PCMFormat
		parseErr error
	)

	cmd := &cli.Command{
		Name:  "analyze",
		Flags: analyzeCommand().Flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			format, parseErr = parsePCMFormat(cmd)

			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"analyze"}, args...)))

	return format, parseErr
}

func TestParsePCMFormat(t *testing.T) {
	t.Parallel()

	format, err := parseFlags(t, "--sample-rate", "48000")
	require.NoError(t, err)
	assert.Equal(t, types.PCMFormat{
		SampleRate: 48000,
		BitDepth:   types.Depth16,
		Channels:   2,
		Encoding:   types.EncodingSigned,
	}, format)

	format, err = parseFlags(t, "-s", "96000", "-b", "32", "-c", "1", "--float")
	require.NoError(t, err)
	assert.Equal(t, types.EncodingFloat, format.Encoding)
	assert.Equal(t, uint(1), format.Channels)
	assert.Equal(t, "f32le", format.Spec())

	_, err = parseFlags(t)
	require.ErrorIs(t, err, errMissingRate)

	_, err = parseFlags(t, "-s", "44100", "-b", "12")
	require.ErrorIs(t, err, errInvalidBitDepth)

	_, err = parseFlags(t, "-s", "44100", "--float")
	require.ErrorIs(t, err, errFloatBitDepth)

	_, err = parseFlags(t, "-s", "44100", "-c", "0")
	require.ErrorIs(t, err, errInvalidChannels)
}

func TestIsWAV(t *testing.T) {
	t.Parallel()

	assert.True(t, isWAV("a/b.wav"))
	assert.True(t, isWAV("B.WAVE"))
	assert.False(t, isWAV("b.pcm"))
	assert.False(t, isWAV(stdinPath))
}

func TestLocalTracks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

	// One second of a half-scale stereo tone.
	wavPath := filepath.Join(dir, "tone.wav")
	data := make([]int, 0, 2*48000)

	for i := range 48000 {
		v := int(math.Round(16383 * math.Sin(2*math.Pi*1000*float64(i)/48000)))
		data = append(data, v, v)
	}

	file, err := os.Create(wavPath)
	require.NoError(t, err)

	enc := wav.NewEncoder(file, 48000, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, file.Close())

	rawPath := filepath.Join(dir, "silence.pcm")
	require.NoError(t, os.WriteFile(rawPath, make([]byte, 44100*4), 0o600))

	tracks, err := localTracks([]string{wavPath, rawPath, stdinPath}, raw)
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, 48000, tracks[0].SampleRate)
	assert.Equal(t, 44100, tracks[1].SampleRate)
	assert.Equal(t, stdinPath, tracks[2].Name)

	opts := replaygain.DefaultOptions()
	opts.IsolateTracks = true

	report, err := replaygain.AnalyzeAlbum(context.Background(), tracks[:2], opts, 2)
	require.NoError(t, err)

	require.NoError(t, report.Tracks[0].Err)
	assert.InDelta(t, 0.5, report.Tracks[0].Result.Peak, 1e-3)

	require.NoError(t, report.Tracks[1].Err)
	assert.InDelta(t, replaygain.MaxGainDB, report.Tracks[1].Result.GainDB, 1e-12)

	_, err = localTracks([]string{stdinPath, stdinPath}, raw)
	require.ErrorIs(t, err, errStdinUsedTwice)

	_, err = localTracks([]string{filepath.Join(dir, "missing.pcm")}, raw)
	require.Error(t, err)
}
