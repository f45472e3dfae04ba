//nolint:wrapcheck
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/integration/ffmpeg"
	"github.com/farcloser/replaygain/internal/integration/ffprobe"
	"github.com/farcloser/replaygain/internal/output"
	"github.com/farcloser/replaygain/internal/pcm"
)

const outputFile = "rgain-report.jsonl"

var (
	errNotDirectory = errors.New("not a directory")
	errNoAudioFiles = errors.New("no audio files found")
	errReportArgs   = errors.New("expected exactly one argument: folder path")
)

//nolint:gochecknoglobals
var audioExtensions = []string{".flac", ".m4a", ".mp3", ".ogg", ".opus", ".wav", ".aiff", ".wv"}

// fileResult is the outcome for one file. session is nil when the file could not be measured.
type fileResult struct {
	record  Record
	session *replaygain.Session
	track   replaygain.Result
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Scan a music collection and write a ReplayGain JSONL report, one album per directory",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errReportArgs
			}

			folder := cmd.Args().First()
			redact := cmd.Bool("redact-path")
			workers := cmd.Int("workers")

			workers = max(workers, 1)

			return runReport(ctx, folder, redact, workers)
		},
	}
}

func runReport(ctx context.Context, folder string, redact bool, workers int) error {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", folder, errNotDirectory)
	}

	// Collect audio files.
	files, err := collectAudioFiles(folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", folder, errNoAudioFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to analyze (%d workers)\n", len(files), workers)

	// Process files concurrently.
	startTime := time.Now()
	results := make([]fileResult, len(files))

	var progress atomic.Int64

	sem := make(chan struct{}, workers)

	var waitGroup sync.WaitGroup

	for idx, filePath := range files {
		waitGroup.Add(1)

		go func(idx int, filePath string) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			results[idx] = processFile(ctx, filePath)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)
		}(idx, filePath)
	}

	waitGroup.Wait()

	albums := applyAlbums(results)

	// Write results in file order.
	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalProbe, totalDecode, totalAnalyze time.Duration

	for idx := range results {
		record := &results[idx].record

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalProbe += millisToDuration(record.Timing.ProbeMs)
			totalDecode += millisToDuration(record.Timing.DecodeMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}

		if redact {
			record.File = ""
			record.Album = redactAlbum(record.Album)
			record.Probe = redactProbe(record.Probe)
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	// Compress.
	if err := compressFile(outputFile); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60

	fmt.Fprintf(os.Stderr, "\nDone: %d files, %d albums in %dm %ds (%d failed)\n",
		len(files), albums, minutes, seconds, failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", outputFile, outputFile)

	// Timing breakdown.
	analyzed := len(files) - failed
	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  ffprobe:     %s (cumulative)\n", totalProbe.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  ffmpeg:      %s (cumulative)\n", totalDecode.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  analysis:    %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	if analyzed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s (probe: %s, decode: %s, analyze: %s)\n",
			(totalProbe+totalDecode+totalAnalyze)/time.Duration(analyzed),
			totalProbe/time.Duration(analyzed),
			totalDecode/time.Duration(analyzed),
			totalAnalyze/time.Duration(analyzed),
		)
	}

	// Print digest summary.
	fmt.Fprintln(os.Stderr)

	return runDigest(outputFile, false)
}

func processFile(ctx context.Context, filePath string) fileResult {
	fileStart := time.Now()
	timing := &RecordTiming{}

	failed := func(format string, err error) fileResult {
		return fileResult{record: Record{File: filePath, Error: fmt.Sprintf(format, err), Timing: timing}}
	}

	// Probe.
	probeStart := time.Now()

	probeResult, err := ffprobe.Probe(ctx, filePath)

	timing.ProbeMs = durationMs(time.Since(probeStart))

	if err != nil {
		return failed("probe failed: %v", err)
	}

	stream, err := probeResult.AudioStream(0)
	if err != nil {
		return failed("no audio stream: %v", err)
	}

	pcmFormat, err := stream.PCMFormat()
	if err != nil {
		return failed("format error: %v", err)
	}

	// ffmpeg converts to the nearest rate the analysis supports.
	pcmFormat.SampleRate = replaygain.NearestSupportedRate(pcmFormat.SampleRate)

	// Extract PCM.
	decodeStart := time.Now()

	file, err := os.Open(filePath) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return failed("open failed: %v", err)
	}
	defer file.Close()

	var pcmBuf bytes.Buffer

	err = ffmpeg.ExtractStream(ctx, file, &pcmBuf, 0, pcmFormat)

	timing.DecodeMs = durationMs(time.Since(decodeStart))

	if err != nil {
		return failed("extraction failed: %v", err)
	}

	// Run analysis. Files are measured concurrently, so every track is an independent signal.
	analyzeStart := time.Now()

	session, result, err := analyzeTrack(ctx, pcmBuf.Bytes(), pcmFormat)

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return failed("analysis failed: %v", err)
	}

	// Build record.
	record := Record{
		File:       filePath,
		SampleRate: pcmFormat.SampleRate,
		Track:      output.ResultToMap(result),
		Tags:       output.Tags(result, nil),
		Timing:     timing,
	}

	probeJSON, err := json.Marshal(probeResult)
	if err == nil {
		record.Probe = probeJSON
	} else {
		record.ProbeError = "probe serialization failed"
	}

	return fileResult{record: record, session: session, track: result}
}

func analyzeTrack(
	ctx context.Context,
	data []byte,
	format replaygain.PCMFormat,
) (*replaygain.Session, replaygain.Result, error) {
	opts := replaygain.DefaultOptions()
	opts.IsolateTracks = true

	//nolint:gosec // channel counts are small
	session, err := replaygain.NewWithOptions(format.SampleRate, int(format.Channels), opts)
	if err != nil {
		return nil, replaygain.Result{}, err
	}

	reader, err := pcm.NewReader(bytes.NewReader(data), format)
	if err != nil {
		return nil, replaygain.Result{}, err
	}

	if err = session.Consume(ctx, reader); err != nil {
		return nil, replaygain.Result{}, err
	}

	result, err := session.FinalizeTrack()
	if err != nil {
		return nil, replaygain.Result{}, err
	}

	return session, result, nil
}

// applyAlbums groups measured tracks by directory, one album each, and completes their records with the
// album result. It returns the number of albums.
func applyAlbums(results []fileResult) int {
	albums := map[string]*replaygain.Album{}

	for idx := range results {
		res := &results[idx]
		res.record.Album = filepath.Dir(res.record.File)

		if res.session == nil {
			continue
		}

		album, ok := albums[res.record.Album]
		if !ok {
			album = replaygain.NewAlbum()
			albums[res.record.Album] = album
		}

		album.Merge(res.session)
	}

	for idx := range results {
		res := &results[idx]
		if res.session == nil {
			continue
		}

		albumResult, err := albums[res.record.Album].Result()
		if err != nil {
			continue
		}

		res.record.AlbumResult = output.ResultToMap(albumResult)
		res.record.Tags = output.Tags(res.track, &albumResult)
	}

	return len(albums)
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}

// redactAlbum keeps albums distinguishable without revealing the directory name.
func redactAlbum(dir string) string {
	if dir == "" {
		return ""
	}

	hash := fnv.New32a()
	_, _ = hash.Write([]byte(dir))

	return fmt.Sprintf("album-%08x", hash.Sum32())
}

func redactProbe(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}

	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return raw
	}

	// Strip format.filename.
	if format, ok := probe["format"].(map[string]any); ok {
		delete(format, "filename")
	}

	redacted, err := json.Marshal(probe)
	if err != nil {
		return raw
	}

	return redacted
}
