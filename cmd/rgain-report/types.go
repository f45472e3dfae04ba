//nolint:tagliatelle
package main

import "encoding/json"

// Record is a single line in the JSONL report file: one track.
type Record struct {
	File        string            `json:"file,omitempty"`
	Album       string            `json:"album,omitempty"`
	SampleRate  int               `json:"sample_rate,omitempty"`
	Track       map[string]any    `json:"track,omitempty"`
	AlbumResult map[string]any    `json:"album_result,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Probe       json.RawMessage   `json:"probe,omitempty"`
	ProbeError  string            `json:"probe_error,omitempty"`
	Error       string            `json:"error,omitempty"`
	Timing      *RecordTiming     `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	ProbeMs   float64 `json:"probe_ms"`
	DecodeMs  float64 `json:"decode_ms"`
	AnalyzeMs float64 `json:"analyze_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// digestRecord holds the typed fields needed by the digest command.
type digestRecord struct {
	File        string        `json:"file,omitempty"`
	Album       string        `json:"album,omitempty"`
	Track       *digestResult `json:"track,omitempty"`
	AlbumResult *digestResult `json:"album_result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type digestResult struct {
	GainDB   float64  `json:"gain_db"`
	Peak     float64  `json:"peak"`
	PeakDB   *float64 `json:"peak_db,omitempty"`
	ClipRisk bool     `json:"clip_risk"`
	Windows  uint64   `json:"windows"`
}

// gainBucket counts tracks whose gain falls in [Low, High).
type gainBucket struct {
	Label string
	Low   float64
	High  float64
	Count int
}
