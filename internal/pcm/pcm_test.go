package pcm_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/replaygain/internal/pcm"
	"github.com/farcloser/replaygain/internal/types"
)

type frameReader interface {
	Read(dst [][]float64) (int, error)
}

func planar(channels, frames int) [][]float64 {
	dst := make([][]float64, channels)
	for ch := range dst {
		dst[ch] = make([]float64, frames)
	}

	return dst
}

// readAll drains a reader with a small block size and returns every channel.
func readAll(t *testing.T, reader frameReader, channels int) [][]float64 {
	t.Helper()

	out := make([][]float64, channels)
	dst := planar(channels, 3)

	for {
		n, err := reader.Read(dst)
		for ch := range channels {
			out[ch] = append(out[ch], dst[ch][:n]...)
		}

		if errors.Is(err, io.EOF) {
			return out
		}

		require.NoError(t, err)
	}
}

func le16(values ...int16) []byte {
	buf := make([]byte, 0, 2*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}

	return buf
}

func TestSigned16(t *testing.T) {
	t.Parallel()

	data := le16(0, 16384, math.MinInt16, -16384, 8192, 0)
	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	require.NoError(t, err)

	got := readAll(t, reader, 2)
	assert.Equal(t, []float64{0, -1, 0.25}, got[0])
	assert.Equal(t, []float64{0.5, -0.5, 0}, got[1])
}

func TestSigned24SignExtension(t *testing.T) {
	t.Parallel()

	data := []byte{
		0xFF, 0xFF, 0xFF, // -1
		0x00, 0x00, 0x80, // -2^23
		0x00, 0x00, 0x40, // 2^22
	}
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth24, Channels: 1}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	require.NoError(t, err)

	got := readAll(t, reader, 1)
	assert.Equal(t, []float64{-1 / pcm.MaxValue24, -1, 0.5}, got[0])
}

func TestSigned32(t *testing.T) {
	t.Parallel()

	var data []byte

	for _, v := range []int32{1 << 30, math.MinInt32, -(1 << 29)} {
		data = binary.LittleEndian.AppendUint32(data, uint32(v)) //nolint:gosec // two's complement
	}

	format := types.PCMFormat{SampleRate: 96000, BitDepth: types.Depth32, Channels: 1}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	require.NoError(t, err)

	got := readAll(t, reader, 1)
	assert.Equal(t, []float64{0.5, -1, -0.25}, got[0])
}

func TestFloat32(t *testing.T) {
	t.Parallel()

	var data []byte

	for _, v := range []float32{0.25, -0.75, 1, 0.125} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}

	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth32, Channels: 2, Encoding: types.EncodingFloat}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	require.NoError(t, err)

	got := readAll(t, reader, 2)
	assert.Equal(t, []float64{0.25, 1}, got[0])
	assert.Equal(t, []float64{-0.75, 0.125}, got[1])
}

func TestUnsigned8(t *testing.T) {
	t.Parallel()

	format := types.PCMFormat{SampleRate: 8000, BitDepth: types.Depth8, Channels: 1}

	reader, err := pcm.NewReader(bytes.NewReader([]byte{128, 0, 192}), format)
	require.NoError(t, err)

	got := readAll(t, reader, 1)
	assert.Equal(t, []float64{0, -1, 0.5}, got[0])
}

func TestFramesSplitAcrossReads(t *testing.T) {
	t.Parallel()

	values := make([]int16, 0, 2*50)
	for i := range 50 {
		values = append(values, int16(i*100), int16(-i*100))
	}

	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

	whole, err := pcm.NewReader(bytes.NewReader(le16(values...)), format)
	require.NoError(t, err)

	trickle, err := pcm.NewReader(iotest.OneByteReader(bytes.NewReader(le16(values...))), format)
	require.NoError(t, err)

	want := readAll(t, whole, 2)
	got := readAll(t, trickle, 2)

	assert.Len(t, got[0], 50)
	assert.Equal(t, want, got)
}

func TestTrailingPartialFrameIsDropped(t *testing.T) {
	t.Parallel()

	data := append(le16(100, 200, 300, 400), 0x01, 0x02, 0x03)
	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	require.NoError(t, err)

	got := readAll(t, reader, 2)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[1], 2)
}

func TestReadErrorIsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 1}

	reader, err := pcm.NewReader(iotest.ErrReader(boom), format)
	require.NoError(t, err)

	_, err = reader.Read(planar(1, 16))
	require.ErrorIs(t, err, boom)
}

func TestInvalidFormats(t *testing.T) {
	t.Parallel()

	for _, format := range []types.PCMFormat{
		{SampleRate: 44100, BitDepth: 12, Channels: 2},
		{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2, Encoding: types.EncodingFloat},
		{SampleRate: 44100, BitDepth: types.Depth16, Channels: 0},
	} {
		_, err := pcm.NewReader(bytes.NewReader(nil), format)
		require.ErrorIs(t, err, pcm.ErrInvalidFormat)
	}
}

func TestShortDestination(t *testing.T) {
	t.Parallel()

	format := types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

	reader, err := pcm.NewReader(bytes.NewReader(le16(1, 2)), format)
	require.NoError(t, err)

	_, err = reader.Read(planar(1, 8))
	require.ErrorIs(t, err, pcm.ErrShortBuffer)
}

func writeWAV(t *testing.T, rate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")

	file, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(file, rate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, file.Close())

	return path
}

func TestWAVReader(t *testing.T) {
	t.Parallel()

	data := make([]int, 0, 2*1000)
	for i := range 1000 {
		data = append(data, 16384, -8192+i%2)
	}

	path := writeWAV(t, 44100, 16, 2, data)

	file, err := os.Open(path)
	require.NoError(t, err)

	defer file.Close()

	reader, err := pcm.NewWAVReader(file)
	require.NoError(t, err)

	format := reader.Format()
	assert.Equal(t, 44100, format.SampleRate)
	assert.Equal(t, uint(2), format.Channels)
	assert.Equal(t, types.Depth16, format.BitDepth)

	got := readAll(t, reader, 2)
	require.Len(t, got[0], 1000)
	require.Len(t, got[1], 1000)

	for i := range 1000 {
		assert.Equal(t, 0.5, got[0][i])
		assert.Equal(t, float64(-8192+i%2)/pcm.MaxValue16, got[1][i])
	}
}

func TestWAVReader24Bit(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 96000, 24, 1, []int{-(1 << 23), 1 << 22, 0, -1})

	file, err := os.Open(path)
	require.NoError(t, err)

	defer file.Close()

	reader, err := pcm.NewWAVReader(file)
	require.NoError(t, err)

	got := readAll(t, reader, 1)
	assert.Equal(t, []float64{-1, 0.5, 0, -1 / pcm.MaxValue24}, got[0])
}

func TestInvalidWAV(t *testing.T) {
	t.Parallel()

	_, err := pcm.NewWAVReader(bytes.NewReader([]byte("definitely not a RIFF file")))
	require.ErrorIs(t, err, pcm.ErrInvalidWAV)
}
