//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/output"
)

const albumObject = "album"

var errTracksFailed = errors.New("some tracks could not be analyzed")

// closingSource releases the underlying file or process once the frames are consumed.
type closingSource struct {
	replaygain.FrameSource
	io.Closer
}

func runAlbum(ctx context.Context, cmd *cli.Command, tracks []replaygain.Track) error {
	formatter, err := format.GetFormatter(cmd.String("format"))
	if err != nil {
		return err
	}

	report, albumErr := replaygain.AnalyzeAlbum(ctx, tracks, analysisOptions(cmd), max(cmd.Int("workers"), 1))
	if report == nil {
		return albumErr
	}

	var album *replaygain.Result
	if albumErr == nil {
		album = &report.Album
	}

	data := make([]*format.Data, 0, len(report.Tracks)+1)
	failed := 0

	for _, track := range report.Tracks {
		if track.Err != nil {
			failed++
		}

		data = append(data, &format.Data{
			Object: track.Name,
			Meta:   trackMeta(track, album),
		})
	}

	if album != nil && len(tracks) > 1 {
		data = append(data, &format.Data{
			Object: albumObject,
			Meta:   albumMeta(*album, len(report.Tracks)-failed),
		})
	}

	if err = formatter.PrintAll(data, os.Stdout); err != nil {
		return err
	}

	if albumErr != nil {
		return albumErr
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errTracksFailed, failed, len(tracks))
	}

	return nil
}

func trackMeta(track replaygain.TrackReport, album *replaygain.Result) map[string]any {
	if track.Err != nil {
		return map[string]any{"error": track.Err.Error()}
	}

	meta := map[string]any{
		"track_gain": output.FormatGain(track.Result.GainDB),
		"track_peak": output.FormatPeak(track.Result.Peak),
	}

	if album != nil {
		meta["album_gain"] = output.FormatGain(album.GainDB)
		meta["album_peak"] = output.FormatPeak(album.Peak)
	}

	if output.ClipRisk(track.Result) {
		meta["warning"] = fmt.Sprintf("applying the gain clips (peak %.2f dBFS)", output.PeakDB(track.Result.Peak))
	}

	return meta
}

func albumMeta(album replaygain.Result, tracks int) map[string]any {
	return map[string]any{
		"tracks":     tracks,
		"album_gain": output.FormatGain(album.GainDB),
		"album_peak": output.FormatPeak(album.Peak),
	}
}
