// Package spectrum provides FFT-based magnitude spectrum analysis for
// real-valued signals.
package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Analyzer computes magnitude spectra of fixed-size real frames.
//
// The input frame is Hann-windowed before the transform. All scratch memory
// is owned by the analyzer, so repeated calls do not allocate. An Analyzer
// is not safe for concurrent use.
type Analyzer struct {
	size   int
	plan   *algofft.Plan[complex128]
	window []float64
	frame  []complex128
	re     []float64
	im     []float64
	mags   []float64
}

// NewAnalyzer creates an analyzer for frames of the given FFT size.
// The size must be a power of two and at least 2.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum: fft size must be a power of two >= 2: %d", size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}

	bins := size/2 + 1
	return &Analyzer{
		size:   size,
		plan:   plan,
		window: window,
		frame:  make([]complex128, size),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		mags:   make([]float64, bins),
	}, nil
}

// Size returns the FFT size.
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of non-redundant spectrum bins, size/2 + 1.
func (a *Analyzer) Bins() int { return a.size/2 + 1 }

// Magnitude computes |X[k]| of the Hann-windowed input for bins 0..size/2
// into dst. samples must be exactly Size() long and dst exactly Bins() long.
func (a *Analyzer) Magnitude(dst, samples []float64) error {
	if len(samples) != a.size {
		return fmt.Errorf("spectrum: frame length %d does not match fft size %d", len(samples), a.size)
	}
	bins := a.Bins()
	if len(dst) != bins {
		return fmt.Errorf("spectrum: dst length %d does not match bin count %d", len(dst), bins)
	}

	for i, x := range samples {
		a.frame[i] = complex(x*a.window[i], 0)
	}
	if err := a.plan.Forward(a.frame, a.frame); err != nil {
		return fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	for k := 0; k < bins; k++ {
		a.re[k] = real(a.frame[k])
		a.im[k] = imag(a.frame[k])
	}
	vecmath.Magnitude(dst, a.re, a.im)
	return nil
}

// PeakBin returns the index of the strongest magnitude bin of the frame.
func (a *Analyzer) PeakBin(samples []float64) (int, error) {
	if err := a.Magnitude(a.mags, samples); err != nil {
		return 0, err
	}
	peak := 0
	for k, m := range a.mags {
		if m > a.mags[peak] {
			peak = k
		}
	}
	return peak, nil
}

// BinFrequency converts a bin index to its center frequency in hertz.
func (a *Analyzer) BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(a.size)
}
