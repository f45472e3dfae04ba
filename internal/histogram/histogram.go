// Package histogram implements the loudness histogram of window energies: 0.1 dB buckets over
// [-120, +20] dB, percentile queries from the loud end, and additive merging.
package histogram

import (
	"math"
)

const (
	// MinDB is the lowest representable loudness; quieter windows are clamped to it.
	MinDB = -120.0
	// MaxDB is the highest representable loudness; louder windows are clamped to it.
	MaxDB = 20.0
	// StepDB is the bucket resolution.
	StepDB = 0.1

	// Epsilon keeps log10 finite on digital silence.
	Epsilon = 1e-20

	stepsPerDB = 10
	minTenths  = -1200
	maxTenths  = 200

	// Buckets is the number of buckets.
	Buckets = maxTenths - minTenths + 1
)

// Histogram counts windows per loudness bucket. The zero value is an empty histogram.
type Histogram struct {
	counts [Buckets]uint64
	total  uint64
}

// Loudness converts a mean-square energy into dB.
func Loudness(energy float64) float64 {
	return 10 * math.Log10(energy+Epsilon)
}

// Bucket returns the bucket index for a loudness in dB, rounded to the nearest step and clamped.
func Bucket(loudness float64) int {
	if math.IsNaN(loudness) {
		return 0
	}

	tenths := math.Round(loudness * stepsPerDB)
	tenths = math.Max(minTenths, math.Min(maxTenths, tenths))

	return int(tenths) - minTenths
}

// Value returns the loudness in dB represented by a bucket index.
func Value(bucket int) float64 {
	return float64(bucket+minTenths) / stepsPerDB
}

// Record adds one window energy.
func (h *Histogram) Record(energy float64) {
	h.counts[Bucket(Loudness(energy))]++
	h.total++
}

// Count returns the number of windows in a bucket.
func (h *Histogram) Count(bucket int) uint64 {
	return h.counts[bucket]
}

// Total is the number of windows recorded.
func (h *Histogram) Total() uint64 {
	return h.total
}

// Empty reports whether no window was recorded.
func (h *Histogram) Empty() bool {
	return h.total == 0
}

// Percentile returns the loudness below which a fraction p of the windows fall, searching from the loudest
// bucket down: the first bucket at which the cumulative count reaches ceil((1-p) * total). The loudest
// qualifying bucket wins. p is clamped to [0, 1]. It returns false for an empty histogram.
func (h *Histogram) Percentile(p float64) (float64, bool) {
	if h.total == 0 {
		return 0, false
	}

	p = min(max(p, 0), 1)

	// The epsilon absorbs the representation error of 1-p (1-0.95 is slightly above 0.05).
	need := uint64(math.Ceil((1-p)*float64(h.total) - 1e-9))
	need = max(need, 1)

	var cumulative uint64

	for bucket := Buckets - 1; bucket >= 0; bucket-- {
		cumulative += h.counts[bucket]
		if cumulative >= need {
			return Value(bucket), true
		}
	}

	return Value(0), true
}

// Merge adds other's counts into h. other is not modified.
func (h *Histogram) Merge(other *Histogram) {
	for i, count := range other.counts {
		h.counts[i] += count
	}

	h.total += other.total
}

// Reset empties the histogram.
func (h *Histogram) Reset() {
	*h = Histogram{}
}
