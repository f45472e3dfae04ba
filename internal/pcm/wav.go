package pcm

import (
	"errors"
	"fmt"
	"io"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/simd/f64"

	"github.com/farcloser/replaygain/internal/types"
)

const wavFormatFloat = 3

var ErrInvalidWAV = errors.New("invalid or unsupported WAV file")

// WAVReader decodes integer PCM WAV files.
type WAVReader struct {
	dec      *wav.Decoder
	format   types.PCMFormat
	channels int
	scale    float64
	offset   float64
	samples  []int
	leftover int
	eof      bool
}

// NewWAVReader parses the WAV header of rs and positions the reader on the sample data.
func NewWAVReader(rs io.ReadSeeker) (*WAVReader, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
		}

		return nil, ErrInvalidWAV
	}

	if dec.WavAudioFormat == wavFormatFloat {
		return nil, fmt.Errorf("%w: float samples", ErrInvalidWAV)
	}

	info := dec.Format()
	bitDepth := types.BitDepth(dec.BitDepth)

	reader := &WAVReader{
		dec:      dec,
		channels: info.NumChannels,
		format: types.PCMFormat{
			SampleRate: info.SampleRate,
			BitDepth:   bitDepth,
			Channels:   uint(info.NumChannels), //nolint:gosec // validated by the decoder
		},
	}

	switch bitDepth {
	case types.Depth8:
		// 8 bit WAV is unsigned.
		reader.scale, reader.offset = 1/MaxValue8, -MaxValue8
	case types.Depth16:
		reader.scale = 1 / MaxValue16
	case types.Depth24:
		reader.scale = 1 / MaxValue24
	case types.Depth32:
		reader.scale = 1 / MaxValue32
	default:
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidWAV, bitDepth)
	}

	return reader, nil
}

// Format returns the PCM format of the file.
func (w *WAVReader) Format() types.PCMFormat {
	return w.format
}

// Read decodes up to len(dst[0]) frames into dst. It returns io.EOF once the data chunk is exhausted.
func (w *WAVReader) Read(dst [][]float64) (int, error) {
	if len(dst) < w.channels {
		return 0, fmt.Errorf("%w: got %d, need %d", ErrShortBuffer, len(dst), w.channels)
	}

	capacity := frameCapacity(dst[:w.channels])
	if capacity == 0 {
		return 0, nil
	}

	want := capacity * w.channels
	if len(w.samples) < want {
		grown := make([]int, want)
		copy(grown, w.samples[:w.leftover])
		w.samples = grown
	}

	available := w.leftover

	for available < w.channels {
		if w.eof {
			return 0, io.EOF
		}

		chunk := &audio.IntBuffer{Data: w.samples[available:want]}

		n, err := w.dec.PCMBuffer(chunk)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}

		if n == 0 {
			w.eof = true
		}

		available += n
	}

	frames := available / w.channels

	for f := range frames {
		for ch := range w.channels {
			dst[ch][f] = float64(w.samples[f*w.channels+ch]) + w.offset
		}
	}

	for ch := range w.channels {
		f64.Scale(dst[ch][:frames], dst[ch][:frames], w.scale)
	}

	w.leftover = copy(w.samples, w.samples[frames*w.channels:available])

	return frames, nil
}
