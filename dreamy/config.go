// Package dreamy wires the echo canceller, granular engine, and effects
// chain into a block-based real-time processor.
package dreamy

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/dsp/effects"
)

// ErrConfig wraps all configuration validation failures.
var ErrConfig = errors.New("invalid configuration")

// Config enumerates every tunable of the processing pipeline. It is read
// once at construction and never mutated afterwards.
type Config struct {
	SampleRate float64
	BlockSize  int

	// Granular engine.
	RingBufferMs    float64
	MaxGrains       int
	GrainSizeMs     float64
	GrainDensity    float64
	PitchShift      float64
	PitchRandomness float64
	TimeRandomness  float64
	LookbackMs      float64
	Seed            int64

	// Echo canceller and its gate.
	FilterLength          int
	StepSize              float64
	RegularizationEpsilon float64
	VADThreshold          float64
	VADAttackMs           float64
	VADReleaseMs          float64

	// Effects chain.
	LowpassCutoffHz   float64
	ChorusRateHz      float64
	ChorusDepthMs     float64
	ChorusBaseDelayMs float64
	ChorusMix         float64
	ReverbTuning      effects.ReverbTuning
	ReverbWet         float64
	ReverbDry         float64
}

// DefaultConfig returns the dreamy preset tuning.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		BlockSize:  512,

		RingBufferMs:    2000,
		MaxGrains:       64,
		GrainSizeMs:     120,
		GrainDensity:    15,
		PitchShift:      0.92,
		PitchRandomness: 0.12,
		TimeRandomness:  0.6,
		LookbackMs:      1000,
		Seed:            1,

		FilterLength:          1024,
		StepSize:              0.5,
		RegularizationEpsilon: 1e-6,
		VADThreshold:          1e-4,
		VADAttackMs:           10,
		VADReleaseMs:          100,

		LowpassCutoffHz:   4000,
		ChorusRateHz:      0.5,
		ChorusDepthMs:     22,
		ChorusBaseDelayMs: 45,
		ChorusMix:         0.3,
		ReverbTuning:      effects.DefaultReverbTuning(),
		ReverbWet:         0.4,
		ReverbDry:         0.6,
	}
}

// Validate checks the configuration before any component is built. All
// failures wrap [ErrConfig].
func (c Config) Validate() error {
	if c.SampleRate <= 0 || !core.IsFinite(c.SampleRate) {
		return fmt.Errorf("%w: sample rate must be positive and finite: %v", ErrConfig, c.SampleRate)
	}
	if c.BlockSize < 1 {
		return fmt.Errorf("%w: block size must be >= 1: %d", ErrConfig, c.BlockSize)
	}
	if c.RingBufferMs <= 0 || !core.IsFinite(c.RingBufferMs) {
		return fmt.Errorf("%w: ring buffer duration must be positive and finite: %v", ErrConfig, c.RingBufferMs)
	}
	if c.MaxGrains < 1 {
		return fmt.Errorf("%w: max grains must be >= 1: %d", ErrConfig, c.MaxGrains)
	}
	if c.GrainSizeMs <= 0 || math.IsNaN(c.GrainSizeMs) {
		return fmt.Errorf("%w: grain size must be positive: %v", ErrConfig, c.GrainSizeMs)
	}
	if c.LookbackMs <= 0 || c.LookbackMs >= c.RingBufferMs {
		return fmt.Errorf("%w: lookback window %v ms must lie inside the %v ms ring buffer", ErrConfig, c.LookbackMs, c.RingBufferMs)
	}
	if c.GrainSizeMs > c.LookbackMs {
		return fmt.Errorf("%w: grain size %v ms exceeds lookback window %v ms", ErrConfig, c.GrainSizeMs, c.LookbackMs)
	}
	if c.GrainDensity <= 0 || !core.IsFinite(c.GrainDensity) {
		return fmt.Errorf("%w: grain density must be positive and finite: %v", ErrConfig, c.GrainDensity)
	}
	if c.PitchShift <= 0 || !core.IsFinite(c.PitchShift) {
		return fmt.Errorf("%w: pitch shift must be positive and finite: %v", ErrConfig, c.PitchShift)
	}
	if c.PitchRandomness < 0 || c.PitchRandomness > 1 || math.IsNaN(c.PitchRandomness) {
		return fmt.Errorf("%w: pitch randomness must be in [0, 1]: %v", ErrConfig, c.PitchRandomness)
	}
	if c.TimeRandomness < 0 || c.TimeRandomness > 1 || math.IsNaN(c.TimeRandomness) {
		return fmt.Errorf("%w: time randomness must be in [0, 1]: %v", ErrConfig, c.TimeRandomness)
	}
	if c.FilterLength < 1 {
		return fmt.Errorf("%w: filter length must be >= 1: %d", ErrConfig, c.FilterLength)
	}
	if c.StepSize <= 0 || c.StepSize > 2 || math.IsNaN(c.StepSize) {
		return fmt.Errorf("%w: step size must be in (0, 2]: %v", ErrConfig, c.StepSize)
	}
	if c.RegularizationEpsilon <= 0 || math.IsNaN(c.RegularizationEpsilon) {
		return fmt.Errorf("%w: regularization epsilon must be positive: %v", ErrConfig, c.RegularizationEpsilon)
	}
	if c.VADThreshold < 0 || !core.IsFinite(c.VADThreshold) {
		return fmt.Errorf("%w: vad threshold must be >= 0 and finite: %v", ErrConfig, c.VADThreshold)
	}
	if c.VADAttackMs <= 0 || c.VADReleaseMs <= 0 {
		return fmt.Errorf("%w: vad attack/release times must be positive: %v/%v ms", ErrConfig, c.VADAttackMs, c.VADReleaseMs)
	}
	if c.LowpassCutoffHz <= 0 || c.LowpassCutoffHz >= c.SampleRate/2 {
		return fmt.Errorf("%w: lowpass cutoff must be in (0, nyquist): %v", ErrConfig, c.LowpassCutoffHz)
	}
	if c.ChorusRateHz <= 0 || !core.IsFinite(c.ChorusRateHz) {
		return fmt.Errorf("%w: chorus rate must be positive and finite: %v", ErrConfig, c.ChorusRateHz)
	}
	if c.ChorusDepthMs < 0 || c.ChorusBaseDelayMs <= 0 || c.ChorusDepthMs > c.ChorusBaseDelayMs {
		return fmt.Errorf("%w: chorus depth %v ms must be in [0, base delay %v ms]", ErrConfig, c.ChorusDepthMs, c.ChorusBaseDelayMs)
	}
	if c.ChorusMix < 0 || c.ChorusMix > 1 || math.IsNaN(c.ChorusMix) {
		return fmt.Errorf("%w: chorus mix must be in [0, 1]: %v", ErrConfig, c.ChorusMix)
	}
	if c.ReverbWet < 0 || !core.IsFinite(c.ReverbWet) {
		return fmt.Errorf("%w: reverb wet gain must be >= 0 and finite: %v", ErrConfig, c.ReverbWet)
	}
	if c.ReverbDry < 0 || !core.IsFinite(c.ReverbDry) {
		return fmt.Errorf("%w: reverb dry gain must be >= 0 and finite: %v", ErrConfig, c.ReverbDry)
	}
	return nil
}
