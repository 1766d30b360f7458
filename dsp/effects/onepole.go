package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dreamy/dsp/core"
)

// OnePole is a first-order lowpass filter:
//
//	y[n] = y[n-1] + alpha * (x[n] - y[n-1])
//
// with alpha = 1 - exp(-2*pi*fc/fs), the exact impulse-invariant coefficient
// for the requested cutoff.
type OnePole struct {
	sampleRate float64
	cutoffHz   float64
	alpha      float64
	state      float64
}

// NewOnePole creates a lowpass with the given cutoff. The cutoff must lie in
// (0, sampleRate/2).
func NewOnePole(sampleRate, cutoffHz float64) (*OnePole, error) {
	f := &OnePole{sampleRate: sampleRate}
	if err := f.validate(sampleRate, cutoffHz); err != nil {
		return nil, err
	}
	f.cutoffHz = cutoffHz
	f.alpha = onePoleAlpha(sampleRate, cutoffHz)
	return f, nil
}

func (f *OnePole) validate(sampleRate, cutoffHz float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("onepole sample rate must be > 0: %f", sampleRate)
	}
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 || math.IsNaN(cutoffHz) {
		return fmt.Errorf("onepole cutoff must be in (0, %f): %f", sampleRate/2, cutoffHz)
	}
	return nil
}

func onePoleAlpha(sampleRate, cutoffHz float64) float64 {
	return 1 - math.Exp(-2*math.Pi*cutoffHz/sampleRate)
}

// Cutoff returns the cutoff frequency in Hz.
func (f *OnePole) Cutoff() float64 { return f.cutoffHz }

// Alpha returns the smoothing coefficient derived from the cutoff.
func (f *OnePole) Alpha() float64 { return f.alpha }

// SetCutoff updates the cutoff frequency, keeping filter state.
func (f *OnePole) SetCutoff(cutoffHz float64) error {
	if err := f.validate(f.sampleRate, cutoffHz); err != nil {
		return err
	}
	f.cutoffHz = cutoffHz
	f.alpha = onePoleAlpha(f.sampleRate, cutoffHz)
	return nil
}

// ProcessSample filters one sample.
func (f *OnePole) ProcessSample(input float64) float64 {
	f.state += f.alpha * (input - f.state)
	f.state = core.FlushDenormals(f.state)
	return f.state
}

// ProcessInPlace filters buf in place.
func (f *OnePole) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// Reset clears the filter state.
func (f *OnePole) Reset() {
	f.state = 0
}
