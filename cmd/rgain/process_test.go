package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/replaygain/internal/integration/ffprobe"
	"github.com/farcloser/replaygain/internal/types"
)

func TestDecodeFormat(t *testing.T) {
	t.Parallel()

	for probed, want := range map[string]int{
		"44100":  44100,
		"37800":  37800,
		"44000":  44100,
		"50000":  48000,
		"384000": 192000,
	} {
		format, err := decodeFormat(&ffprobe.Stream{CodecType: "audio", SampleRate: probed, Channels: 2})
		require.NoError(t, err, probed)

		assert.Equal(t, want, format.SampleRate, probed)
		assert.Equal(t, types.EncodingFloat, format.Encoding)
		assert.Equal(t, uint(2), format.Channels)
	}

	_, err := decodeFormat(&ffprobe.Stream{CodecType: "audio", SampleRate: "N/A", Channels: 2})
	require.ErrorIs(t, err, ffprobe.ErrInvalidSampleRate)

	_, err = decodeFormat(&ffprobe.Stream{CodecType: "audio", SampleRate: "48000"})
	require.ErrorIs(t, err, ffprobe.ErrInvalidChannels)
}
