// Package energy partitions filtered multi-channel audio into contiguous 50 ms windows and reports the
// mean-square energy of each window.
package energy

import (
	"github.com/tphakala/simd/f64"
)

// WindowsPerSecond sets the window length: sample_rate / WindowsPerSecond frames (50 ms).
const WindowsPerSecond = 20

// Accumulator sums squared samples across all channels until a window is full.
type Accumulator struct {
	window int
	total  float64
	count  int
}

// New returns an accumulator for the given sample rate.
func New(sampleRate int) *Accumulator {
	return &Accumulator{window: max(sampleRate/WindowsPerSecond, 1)}
}

// Window is the number of frames per window.
func (a *Accumulator) Window() int {
	return a.window
}

// Pending is the number of frames accumulated in the current, incomplete window.
func (a *Accumulator) Pending() int {
	return a.count
}

// Push adds one time-aligned frame (one sample per channel). It returns the window energy and true when the
// frame completes a window.
func (a *Accumulator) Push(frame []float64) (float64, bool) {
	for _, sample := range frame {
		a.total += sample * sample
	}

	a.count++

	return a.flush()
}

// PushBlock adds frames [0, frames) of a planar block, calling emit for every window it completes.
func (a *Accumulator) PushBlock(block [][]float64, frames int, emit func(energy float64)) {
	for offset := 0; offset < frames; {
		take := min(a.window-a.count, frames-offset)

		for _, channel := range block {
			segment := channel[offset : offset+take]
			a.total += f64.DotProduct(segment, segment)
		}

		a.count += take
		offset += take

		if energy, ok := a.flush(); ok {
			emit(energy)
		}
	}
}

// Reset drops the current partial window.
func (a *Accumulator) Reset() {
	a.total = 0
	a.count = 0
}

func (a *Accumulator) flush() (float64, bool) {
	if a.count < a.window {
		return 0, false
	}

	energy := a.total / float64(a.count)
	a.Reset()

	return energy, true
}
