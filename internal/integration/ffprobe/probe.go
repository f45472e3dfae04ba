//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/replaygain/internal/integration/binary"
	"github.com/farcloser/replaygain/internal/types"
)

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the properties of one stream relevant to loudness analysis.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`               // flac
	CodecType     string `json:"codec_type"`               // audio
	SampleRate    string `json:"sample_rate,omitempty"`    // 44100
	Channels      int    `json:"channels,omitempty"`       // 2
	ChannelLayout string `json:"channel_layout,omitempty"` // stereo
	Duration      string `json:"duration,omitempty"`       // 310.666667
	BitRate       string `json:"bit_rate,omitempty"`       // 956821
	SampleFmt     string `json:"sample_fmt,omitempty"`     // s16, the format ffmpeg decodes to internally

	// Encoder delay, in samples, added at stream start by lossy codecs (MP3, AAC, Opus). Decoders skip these.
	InitialPadding int `json:"initial_padding,omitempty"`
}

// Format is the container-level information.
type Format struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"` // e.g. "flac", "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"`
	BitRate    string `json:"bit_rate,omitempty"`
	Size       string `json:"size,omitempty"`
	ProbeScore int    `json:"probe_score"` // 0-100, 100 = certain
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	var result Result
	if err = json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}

// AudioStream returns the n-th audio stream (0-based, counting audio streams only).
func (r *Result) AudioStream(n int) (*Stream, error) {
	count := 0

	for i := range r.Streams {
		if r.Streams[i].CodecType != codecTypeAudio {
			continue
		}

		if count == n {
			return &r.Streams[i], nil
		}

		count++
	}

	return nil, fmt.Errorf("%w: index %d, file has %d audio streams", ErrNoAudioStream, n, count)
}

// PCMFormat returns the format ffmpeg extraction of this stream yields: 32 bit float at the stream rate and
// channel count.
func (s *Stream) PCMFormat() (types.PCMFormat, error) {
	sampleRate, err := strconv.Atoi(s.SampleRate)
	if err != nil || sampleRate <= 0 {
		return types.PCMFormat{}, fmt.Errorf("%q: %w", s.SampleRate, ErrInvalidSampleRate)
	}

	if s.Channels <= 0 {
		return types.PCMFormat{}, fmt.Errorf("%d: %w", s.Channels, ErrInvalidChannels)
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   types.Depth32,
		Channels:   uint(s.Channels), //nolint:gosec // validated positive value
		Encoding:   types.EncodingFloat,
	}, nil
}
