// Package output provides shared result serialization for rgain and rgain-report.
package output

import (
	"fmt"
	"math"

	"github.com/farcloser/replaygain"
)

// Tag names, as written by ReplayGain-aware taggers.
const (
	TagTrackGain = "REPLAYGAIN_TRACK_GAIN"
	TagTrackPeak = "REPLAYGAIN_TRACK_PEAK"
	TagAlbumGain = "REPLAYGAIN_ALBUM_GAIN"
	TagAlbumPeak = "REPLAYGAIN_ALBUM_PEAK"
)

// PeakDB converts a linear peak into dBFS. Silence is -Inf.
func PeakDB(peak float64) float64 {
	return 20 * math.Log10(peak)
}

// ClipRisk reports whether applying the gain would push the peak above full scale.
func ClipRisk(result replaygain.Result) bool {
	return result.Peak > 0 && result.GainDB+PeakDB(result.Peak) > 0
}

// FormatGain renders a gain the way tags carry it.
func FormatGain(gain float64) string {
	return fmt.Sprintf("%+.2f dB", gain)
}

// FormatPeak renders a linear peak the way tags carry it.
func FormatPeak(peak float64) string {
	return fmt.Sprintf("%.6f", peak)
}

// ResultToMap converts a result into the canonical map structure used for JSON and JSONL serialization.
func ResultToMap(result replaygain.Result) map[string]any {
	meta := map[string]any{
		"gain_db":   result.GainDB,
		"peak":      result.Peak,
		"windows":   result.Windows,
		"clip_risk": ClipRisk(result),
	}

	if result.Peak > 0 {
		meta["peak_db"] = PeakDB(result.Peak)
	}

	return meta
}

// Tags returns the tag values for a track, and for its album when album is not nil.
func Tags(track replaygain.Result, album *replaygain.Result) map[string]string {
	tags := map[string]string{
		TagTrackGain: FormatGain(track.GainDB),
		TagTrackPeak: FormatPeak(track.Peak),
	}

	if album != nil {
		tags[TagAlbumGain] = FormatGain(album.GainDB)
		tags[TagAlbumPeak] = FormatPeak(album.Peak)
	}

	return tags
}
