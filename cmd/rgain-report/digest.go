package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

var errDigestArgs = errors.New("expected exactly one argument: path to report.jsonl")

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a ReplayGain JSONL report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "clip",
				Usage: "List the tracks that would clip once their track gain is applied",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errDigestArgs
			}

			return runDigest(cmd.Args().First(), cmd.Bool("clip"))
		},
	}
}

func runDigest(reportPath string, listClip bool) error {
	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	printDigest(records)

	if listClip {
		printClipDetail(records)
	}

	return nil
}

func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	var records []digestRecord

	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)

	for scanner.Scan() {
		var rec digestRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

func gainBuckets() []*gainBucket {
	return []*gainBucket{
		{Label: "below -12 dB", Low: math.Inf(-1), High: -12},
		{Label: "-12 to -6 dB", Low: -12, High: -6},
		{Label: " -6 to  0 dB", Low: -6, High: 0},
		{Label: "  0 to +6 dB", Low: 0, High: 6},
		{Label: "+6 dB and up", Low: 6, High: math.Inf(1)},
	}
}

func printDigest(records []digestRecord) {
	total := len(records)
	errored := 0
	clipping := 0
	albums := map[string]struct{}{}
	buckets := gainBuckets()

	var sum float64

	var loudest, softest *digestRecord

	for idx := range records {
		rec := &records[idx]

		if rec.Error != "" || rec.Track == nil {
			errored++

			continue
		}

		if rec.Album != "" {
			albums[rec.Album] = struct{}{}
		}

		if rec.Track.ClipRisk {
			clipping++
		}

		gain := rec.Track.GainDB
		sum += gain

		for _, bucket := range buckets {
			if gain >= bucket.Low && gain < bucket.High {
				bucket.Count++

				break
			}
		}

		if loudest == nil || gain < loudest.Track.GainDB {
			loudest = rec
		}

		if softest == nil || gain > softest.Track.GainDB {
			softest = rec
		}
	}

	analyzed := total - errored

	fmt.Println("=== ReplayGain Report Digest ===")
	fmt.Println()
	fmt.Printf("Total tracks:  %d\n", total)
	fmt.Printf("Failed:        %d\n", errored)
	fmt.Printf("Analyzed:      %d\n", analyzed)
	fmt.Printf("Albums:        %d\n", len(albums))
	fmt.Println()

	if analyzed == 0 {
		return
	}

	fmt.Println("--- Track Gain ---")

	for _, bucket := range buckets {
		fmt.Printf("  %s:  %d\n", bucket.Label, bucket.Count)
	}

	fmt.Println()
	fmt.Printf("  average:  %+.2f dB\n", sum/float64(analyzed))
	fmt.Printf("  loudest:  %+.2f dB  %s\n", loudest.Track.GainDB, displayName(loudest))
	fmt.Printf("  softest:  %+.2f dB  %s\n", softest.Track.GainDB, displayName(softest))
	fmt.Println()

	fmt.Println("--- Clipping ---")

	line := fmt.Sprintf("  %d tracks would clip with track gain applied", clipping)
	if clipping > 0 {
		line = color.RedString(line)
	} else {
		line = color.GreenString(line)
	}

	fmt.Println(line)
}

func printClipDetail(records []digestRecord) {
	fmt.Println()

	var entries []*digestRecord

	for idx := range records {
		rec := &records[idx]
		if rec.Error == "" && rec.Track != nil && rec.Track.ClipRisk {
			entries = append(entries, rec)
		}
	}

	if len(entries) == 0 {
		fmt.Println("No track would clip")

		return
	}

	// Worst first.
	slices.SortFunc(entries, func(a, b *digestRecord) int {
		return cmp.Compare(headroom(a.Track), headroom(b.Track))
	})

	fmt.Printf("=== clipping: %d tracks ===\n\n", len(entries))

	for _, rec := range entries {
		fmt.Printf("  %s\n", displayName(rec))
		fmt.Printf("    gain: %+.2f dB  peak: %.6f  %s\n",
			rec.Track.GainDB, rec.Track.Peak, color.YellowString("over by %.2f dB", -headroom(rec.Track)))

		if rec.AlbumResult != nil {
			fmt.Printf("    album gain: %+.2f dB\n", rec.AlbumResult.GainDB)
		}

		fmt.Println()
	}
}

// headroom is the distance from the gained peak to full scale, negative when clipping.
func headroom(result *digestResult) float64 {
	if result.PeakDB == nil {
		return math.Inf(1)
	}

	return -(result.GainDB + *result.PeakDB)
}

func displayName(rec *digestRecord) string {
	if rec.File == "" {
		return "(redacted)"
	}

	return rec.File
}
