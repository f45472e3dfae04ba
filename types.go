package replaygain

import (
	"errors"
	"time"

	"github.com/farcloser/replaygain/internal/filter"
	"github.com/farcloser/replaygain/internal/histogram"
	"github.com/farcloser/replaygain/internal/types"
)

const (
	// ReferenceLoudnessDB is the target loudness, in dB SPL, a gain brings a track to.
	ReferenceLoudnessDB = 89.0
	// Percentile selects the representative window loudness: only the loudest 5% of windows exceed it.
	Percentile = 0.95
	// WindowDuration is the length of one energy window.
	WindowDuration = 50 * time.Millisecond

	// HistogramStepDB is the loudness resolution.
	HistogramStepDB = histogram.StepDB
	// HistogramMinDB is the quietest loudness tracked.
	HistogramMinDB = histogram.MinDB
	// HistogramMaxDB is the loudest loudness tracked.
	HistogramMaxDB = histogram.MaxDB

	// MinGainDB and MaxGainDB bound reported gains.
	MinGainDB = -24.0
	MaxGainDB = 64.0

	// MaxChannels is the largest channel count a session accepts.
	MaxChannels = 255

	// Offset from the dBFS window loudness to the dB SPL scale of ReferenceLoudnessDB.
	splCalibrationDB = 111.46
)

var (
	// ErrUnsupportedSampleRate is returned when no filter exists for the requested sample rate.
	ErrUnsupportedSampleRate = filter.ErrUnsupportedSampleRate
	// ErrInvalidChannelCount is returned for a zero or too large channel count, and for blocks that do not
	// match the session channel count.
	ErrInvalidChannelCount = errors.New("invalid channel count")
	// ErrRaggedBlock is returned when the channels of a planar block have different lengths.
	ErrRaggedBlock = errors.New("channels of a block differ in length")
	// ErrEmptyTrack is returned when a track is finalized without a single complete window.
	ErrEmptyTrack = errors.New("track is undefined: no complete window was analyzed")
	// ErrEmptyAlbum is returned when an album is finalized without a single complete window.
	ErrEmptyAlbum = errors.New("album is undefined: no complete window was analyzed")
)

// Result is a ReplayGain value pair.
type Result struct {
	// GainDB is the adjustment bringing the material to the reference loudness.
	GainDB float64
	// Peak is the largest absolute sample value, linear.
	Peak float64
	// Windows is the number of 50 ms windows the gain was computed from.
	Windows uint64
}

// Options configures a Session.
type Options struct {
	// IsolateTracks resets the filter delay lines when a track is finalized, so every track is measured
	// as an independent signal. By default tracks are treated as one continuous (gapless) stream.
	IsolateTracks bool
	// Resample converts sources at an unsupported sample rate to the nearest supported one. It applies to
	// the reader-driven analysis functions; a Session only accepts supported rates.
	Resample bool
}

// PCMFormat describes a raw interleaved PCM stream.
type PCMFormat = types.PCMFormat

// DefaultOptions returns the default session options.
func DefaultOptions() Options {
	return Options{}
}

// SupportedSampleRates lists the sample rates a Session accepts, ascending.
func SupportedSampleRates() []int {
	return filter.SupportedRates()
}

// IsSupportedSampleRate reports whether a Session can be created at sampleRate.
func IsSupportedSampleRate(sampleRate int) bool {
	_, err := filter.For(sampleRate)

	return err == nil
}

// NearestSupportedRate returns the supported sample rate closest to sampleRate.
func NearestSupportedRate(sampleRate int) int {
	return filter.Nearest(sampleRate)
}

func gainFromLoudness(loudness float64) float64 {
	gain := ReferenceLoudnessDB - (loudness + splCalibrationDB)

	return max(MinGainDB, min(MaxGainDB, gain))
}
