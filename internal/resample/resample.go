// Package resample adapts a planar frame source from one sample rate to another.
package resample

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tphakala/go-audio-resampler"

	"github.com/farcloser/replaygain/internal/pcm"
)

var ErrInvalidRate = errors.New("invalid resampling rate")

// FrameSource yields planar frames; see pcm.Reader.
type FrameSource interface {
	Read(dst [][]float64) (int, error)
}

// Source resamples every channel of an upstream source independently.
type Source struct {
	src        FrameSource
	resamplers []resampler.Resampler
	in         [][]float64
	out        [][]float64
	done       bool
}

// New returns a Source converting src, which has the given channel count, from rate `from` to rate `to`.
func New(src FrameSource, channels, from, to int) (*Source, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d Hz to %d Hz", ErrInvalidRate, from, to)
	}

	slog.Debug("resample.New", "from", from, "to", to, "channels", channels)

	source := &Source{
		src:        src,
		resamplers: make([]resampler.Resampler, channels),
		in:         make([][]float64, channels),
		out:        make([][]float64, channels),
	}

	for ch := range channels {
		conv, err := resampler.NewSimple(float64(from), float64(to))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRate, err)
		}

		source.resamplers[ch] = conv
		source.in[ch] = make([]float64, pcm.DefaultFrames)
	}

	return source, nil
}

// Read fills dst with resampled frames. It returns io.EOF once upstream is exhausted and flushed.
func (s *Source) Read(dst [][]float64) (int, error) {
	for s.buffered() == 0 {
		if s.done {
			return 0, io.EOF
		}

		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	frames := s.buffered()
	for ch := range s.out {
		frames = min(frames, len(dst[ch]))
	}

	for ch := range s.out {
		copy(dst[ch], s.out[ch][:frames])
		s.out[ch] = s.out[ch][:copy(s.out[ch], s.out[ch][frames:])]
	}

	return frames, nil
}

func (s *Source) buffered() int {
	frames := len(s.out[0])
	for _, channel := range s.out[1:] {
		frames = min(frames, len(channel))
	}

	return frames
}

func (s *Source) fill() error {
	n, err := s.src.Read(s.in)

	if n > 0 {
		for ch, conv := range s.resamplers {
			converted, convErr := conv.Process(s.in[ch][:n])
			if convErr != nil {
				return fmt.Errorf("resampling channel %d: %w", ch, convErr)
			}

			s.out[ch] = append(s.out[ch], converted...)
		}
	}

	if err == nil {
		return nil
	}

	if !errors.Is(err, io.EOF) {
		return err
	}

	for ch, conv := range s.resamplers {
		tail, flushErr := conv.Flush()
		if flushErr != nil {
			return fmt.Errorf("flushing channel %d: %w", ch, flushErr)
		}

		s.out[ch] = append(s.out[ch], tail...)
	}

	s.done = true

	return nil
}
