// Package ring provides a fixed-capacity circular sample store addressed by
// lag into the past, with clamped fractional reads. It backs the granular
// engine's history window.
package ring

import (
	"fmt"

	"github.com/cwbudde/algo-dreamy/dsp/interp"
)

// Buffer is a lossy circular sample store. Push overwrites the oldest sample
// once full; reads address history by lag in samples behind the most recent
// write (lag 0 = newest). Out-of-range lags are clamped, never rejected, so
// reads are safe on the real-time path.
//
// Buffer is not thread-safe.
type Buffer struct {
	samples []float64
	write   int
}

// New returns a zero-filled buffer holding capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("ring capacity must be >= 2: %d", capacity)
	}
	return &Buffer{samples: make([]float64, capacity)}, nil
}

// Capacity returns the fixed sample capacity.
func (b *Buffer) Capacity() int {
	return len(b.samples)
}

// Push appends one sample, overwriting the oldest if full.
func (b *Buffer) Push(sample float64) {
	b.samples[b.write] = sample
	b.write++
	if b.write >= len(b.samples) {
		b.write = 0
	}
}

// At returns the sample at an integer lag behind the most recent write.
// Lags outside [0, Capacity()-1] are clamped.
func (b *Buffer) At(lag int) float64 {
	size := len(b.samples)
	if lag < 0 {
		lag = 0
	}
	if lag > size-1 {
		lag = size - 1
	}
	idx := b.write - 1 - lag
	if idx < 0 {
		idx += size
	}
	return b.samples[idx]
}

// ReadLag returns the linearly interpolated sample at a fractional lag.
// The lag is clamped to the valid window [0, Capacity()-1].
func (b *Buffer) ReadLag(lag float64) float64 {
	maxLag := float64(len(b.samples) - 1)
	if lag < 0 {
		lag = 0
	}
	if lag > maxLag {
		lag = maxLag
	}

	idx := int(lag)
	if idx > len(b.samples)-2 {
		idx = len(b.samples) - 2
	}
	frac := lag - float64(idx)

	return interp.Linear(b.At(idx), b.At(idx+1), frac)
}

// Reset clears all samples and rewinds the write cursor.
func (b *Buffer) Reset() {
	for i := range b.samples {
		b.samples[i] = 0
	}
	b.write = 0
}
