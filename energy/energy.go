// Package energy derives a single "excitement" scalar from microphone
// loudness and keyboard activity. The reactive and hybrid modes map this
// scalar onto synthesis parameters.
package energy

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dreamy/dsp/core"
)

const (
	// DefaultMicBoost scales raw block RMS into a useful 0..1 range for
	// typical microphone levels.
	DefaultMicBoost = 5.0

	// DefaultKeySensitivity is the level impulse added per keystroke.
	DefaultKeySensitivity = 0.2

	// keyDecay is applied once per Tick, so the key level halves in about
	// 13 ticks.
	keyDecay = 0.95
)

// Meter tracks microphone and keyboard levels. The microphone side is fed
// from the audio capture callback, the keyboard side from a raw-terminal
// reader goroutine, and consumers read combined levels from yet another
// goroutine, so all state is atomic.
type Meter struct {
	micBoost       float64
	keySensitivity float64
	micBits        atomic.Uint64
	keyBits        atomic.Uint64
}

// NewMeter creates a meter with the given microphone boost and per-key
// impulse.
func NewMeter(micBoost, keySensitivity float64) (*Meter, error) {
	if micBoost <= 0 || math.IsNaN(micBoost) || math.IsInf(micBoost, 0) {
		return nil, fmt.Errorf("energy meter mic boost must be positive and finite: %v", micBoost)
	}
	if keySensitivity <= 0 || keySensitivity > 1 || math.IsNaN(keySensitivity) {
		return nil, fmt.Errorf("energy meter key sensitivity must be in (0, 1]: %v", keySensitivity)
	}
	return &Meter{micBoost: micBoost, keySensitivity: keySensitivity}, nil
}

// ObserveInput updates the microphone level from one captured block.
func (m *Meter) ObserveInput(block []float64) {
	level := core.RMS(block) * m.micBoost
	m.micBits.Store(math.Float64bits(level))
}

// Keystroke adds an impulsive burst of keyboard energy.
func (m *Meter) Keystroke() {
	for {
		old := m.keyBits.Load()
		level := core.Clamp(math.Float64frombits(old)+m.keySensitivity, 0, 1)
		if m.keyBits.CompareAndSwap(old, math.Float64bits(level)) {
			return
		}
	}
}

// Tick decays the keyboard level. Call it on a fixed cadence (the CLI uses
// 50 ms).
func (m *Meter) Tick() {
	for {
		old := m.keyBits.Load()
		level := core.Clamp(math.Float64frombits(old)*keyDecay, 0, 1)
		if m.keyBits.CompareAndSwap(old, math.Float64bits(level)) {
			return
		}
	}
}

// MicLevel returns the boosted microphone level.
func (m *Meter) MicLevel() float64 {
	return math.Float64frombits(m.micBits.Load())
}

// KeyLevel returns the decaying keyboard level.
func (m *Meter) KeyLevel() float64 {
	return math.Float64frombits(m.keyBits.Load())
}

// Level returns the combined excitement scalar, mic plus key.
func (m *Meter) Level() float64 {
	return m.MicLevel() + m.KeyLevel()
}
