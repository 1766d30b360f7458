// Package vad implements a simple envelope-follower voice activity detector.
//
// The detector tracks the input magnitude with asymmetric attack/release
// smoothing and reports activity whenever the envelope exceeds a fixed
// threshold. The echo canceller uses it to gate weight adaptation so the
// filter only learns while the speaker reference actually carries signal.
package vad

import (
	"fmt"
	"math"
)

const (
	defaultAttackMs  = 10.0
	defaultReleaseMs = 100.0
)

// Detector is a per-sample activity classifier. It is not thread-safe.
type Detector struct {
	threshold float64
	envelope  float64

	attackCoeff  float64
	releaseCoeff float64
}

// New creates a detector with the given threshold and the default
// 10 ms attack / 100 ms release smoothing.
func New(sampleRate, threshold float64) (*Detector, error) {
	return NewWithTimes(sampleRate, threshold, defaultAttackMs, defaultReleaseMs)
}

// NewWithTimes creates a detector with explicit attack/release times in ms.
func NewWithTimes(sampleRate, threshold, attackMs, releaseMs float64) (*Detector, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("vad sample rate must be > 0: %f", sampleRate)
	}
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("vad threshold must be >= 0: %f", threshold)
	}
	if attackMs <= 0 || releaseMs <= 0 {
		return nil, fmt.Errorf("vad attack/release must be > 0: %f/%f", attackMs, releaseMs)
	}

	return &Detector{
		threshold:    threshold,
		attackCoeff:  smoothingCoeff(sampleRate, attackMs),
		releaseCoeff: smoothingCoeff(sampleRate, releaseMs),
	}, nil
}

// smoothingCoeff converts a time constant in ms to a one-pole smoothing
// coefficient: envelope += coeff * (target - envelope).
func smoothingCoeff(sampleRate, timeMs float64) float64 {
	return 1 - math.Exp(-1/(sampleRate*timeMs/1000))
}

// Process updates the envelope from one sample and reports activity.
func (d *Detector) Process(sample float64) bool {
	target := math.Abs(sample)
	if target > d.envelope {
		d.envelope += d.attackCoeff * (target - d.envelope)
	} else {
		d.envelope += d.releaseCoeff * (target - d.envelope)
	}
	return d.envelope > d.threshold
}

// Active reports whether the current envelope exceeds the threshold.
func (d *Detector) Active() bool {
	return d.envelope > d.threshold
}

// Envelope returns the current smoothed magnitude estimate.
func (d *Detector) Envelope() float64 {
	return d.envelope
}

// Threshold returns the activity threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// SetThreshold updates the activity threshold.
func (d *Detector) SetThreshold(threshold float64) error {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return fmt.Errorf("vad threshold must be >= 0: %f", threshold)
	}
	d.threshold = threshold
	return nil
}

// Reset clears the envelope state.
func (d *Detector) Reset() {
	d.envelope = 0
}
