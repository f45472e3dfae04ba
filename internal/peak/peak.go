// Package peak tracks the sample peak, the largest absolute sample value seen.
package peak

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tracker holds a running sample peak. The zero value is ready to use.
type Tracker struct {
	value float64
}

// Observe folds one sample in.
func (t *Tracker) Observe(sample float64) {
	if abs := math.Abs(sample); abs > t.value {
		t.value = abs
	}
}

// ObserveBlock folds a block of samples in.
func (t *Tracker) ObserveBlock(samples []float64) {
	if len(samples) == 0 {
		return
	}

	if hi := floats.Max(samples); hi > t.value {
		t.value = hi
	}

	if lo := -floats.Min(samples); lo > t.value {
		t.value = lo
	}
}

// Value returns the current peak.
func (t *Tracker) Value() float64 {
	return t.value
}

// Merge keeps the larger of both peaks.
func (t *Tracker) Merge(other *Tracker) {
	t.value = max(t.value, other.value)
}

// Reset clears the peak to zero.
func (t *Tracker) Reset() {
	t.value = 0
}
