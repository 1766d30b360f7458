// Package aec implements an adaptive acoustic echo canceller based on the
// normalized least-mean-squares (NLMS) algorithm.
//
// The canceller models the speaker-to-microphone acoustic path with an
// adaptive FIR filter over a history of the speaker reference signal,
// predicts the echo component of each microphone sample, and returns the
// residual. Normalizing the update step by the instantaneous reference power
// keeps the learning rate stable across playback loudness; plain LMS would
// diverge on loud passages.
//
// Weight updates are expected to be gated externally by a voice activity
// detector: prediction always runs, adaptation only while the reference
// carries signal. See SetAdaptationEnabled.
package aec

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const defaultRegularization = 1e-6

// Canceller is a single-channel NLMS echo canceller.
// It is real-time safe (no allocations after construction) and not thread-safe.
type Canceller struct {
	weights []float64

	// history holds the reference signal twice over so that the most recent
	// filterLength samples are always one contiguous window. Each write lands
	// at pos and pos-filterLength, keeping history[pos-L+1 : pos+1] valid
	// without modular indexing in the dot-product hot path.
	history []float64
	pos     int

	stepSize       float64
	regularization float64
	adapt          bool
}

// New creates a canceller with filterLength taps and the given NLMS step
// size. Typical values: 512-2048 taps, step size 0.1-0.9.
func New(filterLength int, stepSize float64) (*Canceller, error) {
	return NewWithRegularization(filterLength, stepSize, defaultRegularization)
}

// NewWithRegularization creates a canceller with an explicit regularization
// constant added to the reference power before normalization.
func NewWithRegularization(filterLength int, stepSize, regularization float64) (*Canceller, error) {
	if filterLength <= 0 {
		return nil, fmt.Errorf("aec filter length must be > 0: %d", filterLength)
	}
	if stepSize <= 0 || stepSize > 2 || math.IsNaN(stepSize) {
		return nil, fmt.Errorf("aec step size must be in (0, 2]: %f", stepSize)
	}
	if regularization <= 0 || !core.IsFinite(regularization) {
		return nil, fmt.Errorf("aec regularization must be > 0: %f", regularization)
	}

	return &Canceller{
		weights:        make([]float64, filterLength),
		history:        make([]float64, 2*filterLength),
		pos:            filterLength - 1,
		stepSize:       stepSize,
		regularization: regularization,
		adapt:          true,
	}, nil
}

// FilterLength returns the number of adaptive taps.
func (c *Canceller) FilterLength() int {
	return len(c.weights)
}

// StepSize returns the NLMS step size.
func (c *Canceller) StepSize() float64 {
	return c.stepSize
}

// SetStepSize updates the NLMS step size.
func (c *Canceller) SetStepSize(stepSize float64) error {
	if stepSize <= 0 || stepSize > 2 || math.IsNaN(stepSize) {
		return fmt.Errorf("aec step size must be in (0, 2]: %f", stepSize)
	}
	c.stepSize = stepSize
	return nil
}

// SetAdaptationEnabled gates the weight-update step. Echo prediction always
// runs; with adaptation disabled the weights are frozen.
func (c *Canceller) SetAdaptationEnabled(enabled bool) {
	c.adapt = enabled
}

// AdaptationEnabled reports whether weight updates are currently applied.
func (c *Canceller) AdaptationEnabled() bool {
	return c.adapt
}

// Weights returns a copy of the adaptive filter weights.
func (c *Canceller) Weights() []float64 {
	w := make([]float64, len(c.weights))
	copy(w, c.weights)
	return w
}

// ProcessSample cancels the echo of reference from mic and returns the
// residual. reference is the sample most recently sent to the speakers.
//
// If the adaptive state has gone non-finite (misconfigured step size,
// pathological input), the weights are reset to zero and the microphone
// sample passes through unlearned, or silence if the sample itself is
// non-finite; the real-time path never fails and never emits NaN.
func (c *Canceller) ProcessSample(mic, reference float64) float64 {
	c.push(reference)

	window := c.window()
	estimate := vecmath.DotProduct(c.weights, window)
	residual := mic - estimate

	if !core.IsFinite(residual) {
		c.resetWeights()
		if !core.IsFinite(mic) {
			return 0
		}
		return mic
	}

	if c.adapt {
		power := vecmath.DotProduct(window, window) + c.regularization
		gain := c.stepSize * residual / power
		for i, r := range window {
			c.weights[i] += gain * r
		}
	}

	return residual
}

// ProcessBlock cancels a block of microphone samples against a reference
// block of equal length, writing residuals to dst. All slices must have the
// same length.
func (c *Canceller) ProcessBlock(dst, mic, reference []float64) {
	_ = dst[len(mic)-1]
	_ = reference[len(mic)-1]
	for i := range mic {
		dst[i] = c.ProcessSample(mic[i], reference[i])
	}
}

// EstimateEcho returns the current echo prediction for the stored reference
// history without consuming a sample. Useful for diagnostics and tests.
func (c *Canceller) EstimateEcho() float64 {
	return vecmath.DotProduct(c.weights, c.window())
}

// Reset clears the learned model and the reference history.
func (c *Canceller) Reset() {
	c.resetWeights()
	for i := range c.history {
		c.history[i] = 0
	}
	c.pos = len(c.weights) - 1
}

func (c *Canceller) push(sample float64) {
	length := len(c.weights)
	c.pos++
	if c.pos >= 2*length {
		c.pos = length
	}
	c.history[c.pos] = sample
	c.history[c.pos-length] = sample
}

// window returns the most recent filterLength reference samples in
// chronological order (oldest first).
func (c *Canceller) window() []float64 {
	length := len(c.weights)
	return c.history[c.pos-length+1 : c.pos+1]
}

func (c *Canceller) resetWeights() {
	for i := range c.weights {
		c.weights[i] = 0
	}
}
