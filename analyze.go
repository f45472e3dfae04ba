package replaygain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/farcloser/replaygain/internal/pcm"
	"github.com/farcloser/replaygain/internal/resample"
)

/*
Usage:

result, err := replaygain.AnalyzeTrack(ctx, factory, format, replaygain.DefaultOptions())
fmt.Printf("gain %.2f dB, peak %.6f\n", result.GainDB, result.Peak)

// Accept any sample rate by converting to the nearest supported one
opts := replaygain.DefaultOptions()
opts.Resample = true
result, err := replaygain.AnalyzeTrack(ctx, factory, format, opts)

// Album
report, err := replaygain.AnalyzeAlbum(ctx, tracks, opts, runtime.NumCPU())
for _, track := range report.Tracks {
    fmt.Println(track.Name, track.Result.GainDB, track.Err)
}
fmt.Println(report.Album.GainDB)
*/

// FrameSource yields planar frames: Read fills dst[ch][:n] for every channel and returns io.EOF once
// exhausted.
type FrameSource interface {
	Read(dst [][]float64) (int, error)
}

// ReaderFactory provides a fresh reader over raw PCM bytes.
type ReaderFactory func() (io.Reader, error)

// Track is one input of an album analysis.
type Track struct {
	Name       string
	SampleRate int
	Channels   int
	// Open returns the frames of the track. Sources implementing io.Closer are closed after analysis.
	Open func(ctx context.Context) (FrameSource, error)
}

// PCMTrack describes a track of raw interleaved PCM bytes.
func PCMTrack(name string, factory ReaderFactory, format PCMFormat) Track {
	return Track{
		Name:       name,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // channel counts are small
		Open: func(_ context.Context) (FrameSource, error) {
			r, err := factory()
			if err != nil {
				return nil, err
			}

			return pcm.NewReader(r, format)
		},
	}
}

// TrackReport is the outcome for one track of an album.
type TrackReport struct {
	Name   string
	Result Result
	Err    error
}

// AlbumReport is the outcome of AnalyzeAlbum. Tracks are in input order.
type AlbumReport struct {
	Tracks []TrackReport
	Album  Result
}

// Consume feeds src to the session until io.EOF. Frames are fed to the current track; it is not finalized.
func (s *Session) Consume(ctx context.Context, src FrameSource) error {
	block := make([][]float64, s.channels)
	for ch := range block {
		block[ch] = make([]float64, pcm.DefaultFrames)
	}

	view := make([][]float64, s.channels)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := src.Read(block)
		if n > 0 {
			for ch := range block {
				view[ch] = block[ch][:n]
			}

			if feedErr := s.Feed(view); feedErr != nil {
				return feedErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// AnalyzeSource measures one track read from src.
func AnalyzeSource(ctx context.Context, src FrameSource, sampleRate, channels int, opts Options) (Result, error) {
	src, sampleRate, err := adaptRate(src, sampleRate, channels, opts)
	if err != nil {
		return Result{}, err
	}

	session, err := NewWithOptions(sampleRate, channels, opts)
	if err != nil {
		return Result{}, err
	}

	if err = session.Consume(ctx, src); err != nil {
		return Result{}, err
	}

	return session.FinalizeTrack()
}

// AnalyzeTrack measures one track of raw interleaved PCM bytes.
func AnalyzeTrack(ctx context.Context, factory ReaderFactory, format PCMFormat, opts Options) (Result, error) {
	r, err := factory()
	if err != nil {
		return Result{}, err
	}

	reader, err := pcm.NewReader(r, format)
	if err != nil {
		return Result{}, err
	}

	//nolint:gosec // channel counts are small
	return AnalyzeSource(ctx, reader, format.SampleRate, int(format.Channels), opts)
}

// AnalyzeAlbum measures every track and the album they form.
//
// Without Options.IsolateTracks, tracks are one continuous signal: they are analyzed in order on a shared
// session, and filter state flows from each track into the next as long as the format does not change.
// With Options.IsolateTracks, every track gets its own session and up to `workers` tracks are analyzed
// concurrently.
//
// A failing track is reported in its TrackReport and left out of the album. The returned error is the
// context error, or ErrEmptyAlbum when no track produced a window.
func AnalyzeAlbum(ctx context.Context, tracks []Track, opts Options, workers int) (*AlbumReport, error) {
	report := &AlbumReport{Tracks: make([]TrackReport, len(tracks))}
	album := NewAlbum()

	if opts.IsolateTracks {
		analyzeParallel(ctx, tracks, opts, max(workers, 1), report, album)
	} else {
		analyzeSequential(ctx, tracks, opts, report, album)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	result, err := album.Result()
	if err != nil {
		return report, err
	}

	report.Album = result

	slog.Debug("replaygain.AnalyzeAlbum", "tracks", album.Tracks(), "gain", result.GainDB, "peak", result.Peak)

	return report, nil
}

func analyzeParallel(ctx context.Context, tracks []Track, opts Options, workers int, report *AlbumReport, album *Album) {
	sessions := make([]*Session, len(tracks))
	sem := make(chan struct{}, workers)

	var waitGroup sync.WaitGroup

	for idx := range tracks {
		waitGroup.Add(1)

		go func(idx int) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			track := tracks[idx]
			report.Tracks[idx].Name = track.Name

			session, err := analyzeOn(ctx, nil, track, opts)
			if session != nil {
				sessions[idx] = session
			}

			report.Tracks[idx].Result, report.Tracks[idx].Err = finalize(session, err)
		}(idx)
	}

	waitGroup.Wait()

	for _, session := range sessions {
		if session != nil {
			album.Merge(session)
		}
	}
}

func analyzeSequential(ctx context.Context, tracks []Track, opts Options, report *AlbumReport, album *Album) {
	var current *Session

	for idx, track := range tracks {
		if ctx.Err() != nil {
			break
		}

		report.Tracks[idx].Name = track.Name

		session, err := analyzeOn(ctx, current, track, opts)
		if current != nil && session != current {
			album.Merge(current)
		}

		if session != nil {
			current = session
		}

		report.Tracks[idx].Result, report.Tracks[idx].Err = finalize(session, err)
	}

	if current != nil {
		album.Merge(current)
	}
}

// analyzeOn feeds track to session, or to a new session when session is nil or runs at another format. It
// returns the session holding the track, nil when none could be created. A source whose Close fails, such as
// a decoder exiting with an error, fails the track.
func analyzeOn(ctx context.Context, session *Session, track Track, opts Options) (_ *Session, err error) {
	src, err := track.Open(ctx)
	if err != nil {
		return session, fmt.Errorf("%s: %w", track.Name, err)
	}

	if closer, ok := src.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("%s: %w", track.Name, closeErr)
			}
		}()
	}

	src, sampleRate, err := adaptRate(src, track.SampleRate, track.Channels, opts)
	if err != nil {
		return session, fmt.Errorf("%s: %w", track.Name, err)
	}

	if session == nil || session.SampleRate() != sampleRate || session.Channels() != track.Channels {
		fresh, newErr := NewWithOptions(sampleRate, track.Channels, opts)
		if newErr != nil {
			return session, fmt.Errorf("%s: %w", track.Name, newErr)
		}

		session = fresh
	}

	if err = session.Consume(ctx, src); err != nil {
		return session, fmt.Errorf("%s: %w", track.Name, err)
	}

	return session, nil
}

// finalize closes the track on session. A track that failed mid-stream is still finalized so that its
// partial data does not leak into the next track, but it is reported as failed.
func finalize(session *Session, err error) (Result, error) {
	if session == nil {
		return Result{}, err
	}

	if err != nil {
		session.discardTrack()

		return Result{}, err
	}

	return session.FinalizeTrack()
}

func adaptRate(src FrameSource, sampleRate, channels int, opts Options) (FrameSource, int, error) {
	if !opts.Resample || IsSupportedSampleRate(sampleRate) {
		return src, sampleRate, nil
	}

	target := NearestSupportedRate(sampleRate)

	converted, err := resample.New(src, channels, sampleRate, target)
	if err != nil {
		return nil, 0, err
	}

	return converted, target, nil
}
