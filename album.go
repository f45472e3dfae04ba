package replaygain

import (
	"log/slog"
	"sync"

	"github.com/farcloser/replaygain/internal/histogram"
	"github.com/farcloser/replaygain/internal/peak"
)

// Album aggregates the finalized tracks of independent sessions, typically one session per track analyzed
// on its own goroutine. It is safe for concurrent use.
type Album struct {
	mu     sync.Mutex
	hist   histogram.Histogram
	peak   peak.Tracker
	tracks int
}

// NewAlbum returns an empty album.
func NewAlbum() *Album {
	return &Album{}
}

// Merge adds every track finalized by session. Windows fed to session after its last FinalizeTrack are not
// included. Merge order does not affect the result.
func (a *Album) Merge(session *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.hist.Merge(&session.album)
	a.peak.Merge(&session.albumPeak)
	a.tracks += session.tracks

	slog.Debug("replaygain.Album.Merge", "tracks", session.tracks, "windows", session.album.Total())
}

// Tracks returns the number of tracks merged so far.
func (a *Album) Tracks() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.tracks
}

// Result returns the album gain and peak. It returns ErrEmptyAlbum when no window was merged.
func (a *Album) Result() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result, ok := measure(&a.hist, &a.peak)
	if !ok {
		return Result{}, ErrEmptyAlbum
	}

	return result, nil
}
