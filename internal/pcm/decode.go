// Package pcm turns interleaved PCM byte streams and WAV files into planar float64 frames in [-1, 1].
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/primordium/fault"
	"github.com/tphakala/simd/f64"

	"github.com/farcloser/replaygain/internal/types"
)

const (
	MaxValue8  = 128.0        // 2^7, 8-bit PCM normalization divisor
	MaxValue16 = 32768.0      // 2^15, 16-bit signed PCM normalization divisor
	MaxValue24 = 8388608.0    // 2^23, 24-bit signed PCM normalization divisor
	MaxValue32 = 2147483648.0 // 2^31, 32-bit signed PCM normalization divisor

	// DefaultFrames is the block size readers are typically driven with.
	DefaultFrames = 4096
)

var (
	ErrInvalidFormat = errors.New("invalid PCM format")
	ErrShortBuffer   = errors.New("destination does not hold one buffer per channel")
)

type decodeFunc func(dst [][]float64, data []byte, frames, channels int)

// Reader decodes an interleaved little-endian PCM stream.
// A frame split across two reads of the underlying reader is carried over.
type Reader struct {
	r         io.Reader
	channels  int
	frameSize int
	decode    decodeFunc
	scale     float64
	buf       []byte
	carry     int
	err       error
}

// NewReader returns a Reader decoding r according to format.
func NewReader(r io.Reader, format types.PCMFormat) (*Reader, error) {
	decode, scale, err := decoderFor(format)
	if err != nil {
		return nil, err
	}

	if format.Channels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalidFormat)
	}

	channels := int(format.Channels) //nolint:gosec // channel counts are small
	bytesPerSample := int(format.BitDepth / 8)

	return &Reader{
		r:         r,
		channels:  channels,
		frameSize: bytesPerSample * channels,
		decode:    decode,
		scale:     scale,
	}, nil
}

// Read decodes up to len(dst[0]) frames into dst, one slice per channel, and returns the number of frames.
// It returns io.EOF once the stream is exhausted; a trailing incomplete frame is dropped.
func (d *Reader) Read(dst [][]float64) (int, error) {
	if len(dst) < d.channels {
		return 0, fmt.Errorf("%w: got %d, need %d", ErrShortBuffer, len(dst), d.channels)
	}

	capacity := frameCapacity(dst[:d.channels])
	if capacity == 0 {
		return 0, nil
	}

	want := capacity * d.frameSize
	if len(d.buf) < want {
		grown := make([]byte, want)
		copy(grown, d.buf[:d.carry])
		d.buf = grown
	}

	for {
		if d.err != nil {
			return 0, d.err
		}

		n, err := d.r.Read(d.buf[d.carry:want])
		total := d.carry + n
		frames := total / d.frameSize

		if err != nil {
			if errors.Is(err, io.EOF) {
				d.err = io.EOF
			} else {
				d.err = fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
			}
		}

		if frames == 0 {
			d.carry = total

			continue
		}

		used := frames * d.frameSize
		d.decode(dst, d.buf[:used], frames, d.channels)

		if d.scale != 1 {
			for ch := range d.channels {
				f64.Scale(dst[ch][:frames], dst[ch][:frames], d.scale)
			}
		}

		d.carry = copy(d.buf, d.buf[used:total])

		return frames, nil
	}
}

func frameCapacity(dst [][]float64) int {
	capacity := math.MaxInt
	for _, channel := range dst {
		capacity = min(capacity, len(channel))
	}

	return capacity
}

func decoderFor(format types.PCMFormat) (decodeFunc, float64, error) {
	if format.Encoding == types.EncodingFloat {
		if format.BitDepth != types.Depth32 {
			return nil, 0, fmt.Errorf("%w: float samples must be 32 bit, got %d", ErrInvalidFormat, format.BitDepth)
		}

		return decodeFloat32, 1, nil
	}

	switch format.BitDepth {
	case types.Depth8:
		return decode8, 1 / MaxValue8, nil
	case types.Depth16:
		return decode16, 1 / MaxValue16, nil
	case types.Depth24:
		return decode24, 1 / MaxValue24, nil
	case types.Depth32:
		return decode32, 1 / MaxValue32, nil
	}

	return nil, 0, fmt.Errorf("%w: bit depth %d", ErrInvalidFormat, format.BitDepth)
}

func decode8(dst [][]float64, data []byte, frames, channels int) {
	for f := range frames {
		for ch := range channels {
			dst[ch][f] = float64(int(data[f*channels+ch]) - 128)
		}
	}
}

func decode16(dst [][]float64, data []byte, frames, channels int) {
	frameSize := 2 * channels

	for f := range frames {
		i := f * frameSize
		for ch := range channels {
			dst[ch][f] = float64(int16(binary.LittleEndian.Uint16(data[i+ch*2:])))
		}
	}
}

func decode24(dst [][]float64, data []byte, frames, channels int) {
	frameSize := 3 * channels

	for f := range frames {
		for ch := range channels {
			i := f*frameSize + ch*3

			raw := int32(data[i]) | int32(data[i+1])<<8 | int32(data[i+2])<<16
			if raw&0x800000 != 0 {
				raw |= ^0xFFFFFF
			}

			dst[ch][f] = float64(raw)
		}
	}
}

func decode32(dst [][]float64, data []byte, frames, channels int) {
	frameSize := 4 * channels

	for f := range frames {
		i := f * frameSize
		for ch := range channels {
			dst[ch][f] = float64(int32(binary.LittleEndian.Uint32(data[i+ch*4:]))) //nolint:gosec // two's complement
		}
	}
}

func decodeFloat32(dst [][]float64, data []byte, frames, channels int) {
	frameSize := 4 * channels

	for f := range frames {
		i := f * frameSize
		for ch := range channels {
			dst[ch][f] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i+ch*4:])))
		}
	}
}
