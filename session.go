package replaygain

import (
	"fmt"
	"log/slog"

	"github.com/farcloser/replaygain/internal/energy"
	"github.com/farcloser/replaygain/internal/filter"
	"github.com/farcloser/replaygain/internal/histogram"
	"github.com/farcloser/replaygain/internal/peak"
)

/*
Usage:

session, err := replaygain.New(44100, 2)
for block := range blocks {
    if err := session.Feed(block); err != nil {
        return err
    }
}
track, err := session.FinalizeTrack()
if errors.Is(err, replaygain.ErrEmptyTrack) {
    // too short to measure
}

// after the last track
album, err := session.FinalizeAlbum()

// Tracks measured in parallel, one session each
album := replaygain.NewAlbum()
album.Merge(first)
album.Merge(second)
result, err := album.Result()
*/

// State of a Session.
type State int

const (
	StateIdle State = iota
	StateTrackActive
	StateTrackFinalized
	StateAlbumFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTrackActive:
		return "track active"
	case StateTrackFinalized:
		return "track finalized"
	case StateAlbumFinalized:
		return "album finalized"
	}

	return "unknown"
}

// Session measures a channel-synchronized stream, track by track. It is not safe for concurrent use.
type Session struct {
	sampleRate int
	channels   int
	opts       Options

	chains []*filter.Chain
	window *energy.Accumulator
	// Window energies are scaled to their two-channel equivalent.
	scale float64
	emit  func(float64)

	track     histogram.Histogram
	trackPeak peak.Tracker
	album     histogram.Histogram
	albumPeak peak.Tracker
	tracks    int

	state   State
	scratch [][]float64
	pending []float64
}

// New returns a session with default options.
func New(sampleRate, channels int) (*Session, error) {
	return NewWithOptions(sampleRate, channels, DefaultOptions())
}

// NewWithOptions returns a session for the given sample rate and channel count.
func NewWithOptions(sampleRate, channels int, opts Options) (*Session, error) {
	coeffs, err := filter.For(sampleRate)
	if err != nil {
		return nil, err
	}

	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelCount, channels)
	}

	session := &Session{
		sampleRate: sampleRate,
		channels:   channels,
		opts:       opts,
		chains:     make([]*filter.Chain, channels),
		window:     energy.New(sampleRate),
		scale:      2 / float64(channels),
		scratch:    make([][]float64, channels),
		pending:    make([]float64, 0, channels),
	}

	for ch := range channels {
		session.chains[ch] = filter.NewChain(coeffs)
	}

	session.emit = session.record

	return session, nil
}

// SampleRate returns the session sample rate.
func (s *Session) SampleRate() int {
	return s.sampleRate
}

// Channels returns the session channel count.
func (s *Session) Channels() int {
	return s.channels
}

// WindowFrames is the number of frames in one 50 ms energy window.
func (s *Session) WindowFrames() int {
	return s.window.Window()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Tracks returns the number of finalized tracks.
func (s *Session) Tracks() int {
	return s.tracks
}

// Feed analyzes a planar block: one slice per channel, all of the same length.
func (s *Session) Feed(block [][]float64) error {
	if len(block) != s.channels {
		return fmt.Errorf("%w: block has %d channels, session has %d", ErrInvalidChannelCount, len(block), s.channels)
	}

	frames := len(block[0])
	for ch, samples := range block[1:] {
		if len(samples) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d", ErrRaggedBlock, ch+1, len(samples), frames)
		}
	}

	s.feed(block, frames)

	return nil
}

// FeedInterleaved analyzes interleaved samples. A trailing incomplete frame is kept and completed by the
// next call.
func (s *Session) FeedInterleaved(samples []float64) {
	s.state = StateTrackActive

	carried := 0

	if len(s.pending) > 0 {
		need := s.channels - len(s.pending)
		if len(samples) < need {
			s.pending = append(s.pending, samples...)

			return
		}

		s.pending = append(s.pending, samples[:need]...)
		samples = samples[need:]
		carried = 1
	}

	frames := len(samples) / s.channels
	total := carried + frames

	if total > 0 {
		s.grow(total)

		if carried == 1 {
			for ch := range s.channels {
				s.scratch[ch][0] = s.pending[ch]
			}

			s.pending = s.pending[:0]
		}

		for f := range frames {
			base := f * s.channels
			for ch := range s.channels {
				s.scratch[ch][carried+f] = samples[base+ch]
			}
		}

		s.feed(s.scratch, total)
	}

	s.pending = append(s.pending, samples[frames*s.channels:]...)
}

// feed runs frames [0, frames) of block through the peak tracker and the loudness chain. block may be the
// scratch buffer itself.
func (s *Session) feed(block [][]float64, frames int) {
	s.state = StateTrackActive

	if frames == 0 {
		return
	}

	s.grow(frames)

	for ch, samples := range block {
		s.trackPeak.ObserveBlock(samples[:frames])
		s.chains[ch].ProcessBlock(s.scratch[ch][:frames], samples[:frames])
	}

	s.window.PushBlock(s.scratch, frames, s.emit)
}

func (s *Session) record(energy float64) {
	s.track.Record(energy * s.scale)
}

func (s *Session) grow(frames int) {
	if len(s.scratch[0]) >= frames {
		return
	}

	for ch := range s.scratch {
		grown := make([]float64, frames)
		copy(grown, s.scratch[ch])
		s.scratch[ch] = grown
	}
}

// FinalizeTrack ends the current track and returns its gain and peak. The track is folded into the album.
// A trailing partial window is discarded. Filter state carries over to the next track unless
// Options.IsolateTracks is set. A track without a single complete window returns ErrEmptyTrack.
func (s *Session) FinalizeTrack() (Result, error) {
	result, ok := measure(&s.track, &s.trackPeak)

	s.album.Merge(&s.track)
	s.albumPeak.Merge(&s.trackPeak)
	s.endTrack()

	if s.opts.IsolateTracks {
		s.ResetChannels()
	}

	s.tracks++

	slog.Debug("replaygain.FinalizeTrack", "track", s.tracks, "windows", result.Windows, "gain", result.GainDB)

	if !ok {
		return Result{}, fmt.Errorf("%w: track %d", ErrEmptyTrack, s.tracks)
	}

	return result, nil
}

// discardTrack drops the current track without folding it into the album. The filter delay lines hold
// the partial signal and are reset as well.
func (s *Session) discardTrack() {
	s.endTrack()
	s.ResetChannels()
}

func (s *Session) endTrack() {
	s.track.Reset()
	s.trackPeak.Reset()
	s.window.Reset()
	s.pending = s.pending[:0]
	s.state = StateTrackFinalized
}

// FinalizeAlbum returns the gain and peak of every finalized track together. Data fed since the last
// FinalizeTrack is not part of the album. Calling it again without finalizing more tracks returns the
// same result.
func (s *Session) FinalizeAlbum() (Result, error) {
	s.state = StateAlbumFinalized

	result, ok := measure(&s.album, &s.albumPeak)
	if !ok {
		return Result{}, ErrEmptyAlbum
	}

	slog.Debug("replaygain.FinalizeAlbum", "tracks", s.tracks, "windows", result.Windows, "gain", result.GainDB)

	return result, nil
}

// ResetChannels zeroes the filter delay lines, so the next sample is measured as the start of a new signal.
func (s *Session) ResetChannels() {
	for _, chain := range s.chains {
		chain.Reset()
	}
}

func measure(hist *histogram.Histogram, tracker *peak.Tracker) (Result, bool) {
	loudness, ok := hist.Percentile(Percentile)
	if !ok {
		return Result{}, false
	}

	return Result{
		GainDB:  gainFromLoudness(loudness),
		Peak:    tracker.Value(),
		Windows: hist.Total(),
	}, true
}
