// Package drone synthesizes the energy-driven voices of the reactive and
// hybrid modes: a detuned saw drone that brightens with excitement, and a
// pentatonic arpeggio voice whose note choice and tempo follow the same
// scalar.
package drone

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/dsp/effects"
)

const (
	droneBaseHz     = 55.0 // low A
	droneDetune     = 1.01
	dronePitchMod   = 100.0
	droneCutoffMin  = 100.0
	droneCutoffMod  = 4000.0
	droneVolumeMin  = 0.2
	droneVolumeMod  = 2.0
	droneNoiseLevel = 0.05

	// maxControl caps the combined energy scalar so the modulated cutoff
	// and volume stay in sane ranges however hot the inputs run.
	maxControl = 2.0
)

// Voice is the reactive drone: two slightly detuned saw oscillators whose
// pitch, filter cutoff, and volume all rise with the control value, over a
// smoothed noise floor.
type Voice struct {
	sampleRate float64
	phase1     float64
	phase2     float64
	lowpass    *effects.OnePole
	rng        *rand.Rand
	noise      float64
}

// NewVoice creates a reactive drone voice.
func NewVoice(sampleRate float64) (*Voice, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("drone voice sample rate must be positive and finite: %v", sampleRate)
	}
	maxCutoff := droneCutoffMin + maxControl*droneCutoffMod
	if sampleRate/2 <= maxCutoff {
		return nil, fmt.Errorf("drone voice sample rate %v too low for a %v Hz cutoff sweep", sampleRate, maxCutoff)
	}

	lowpass, err := effects.NewOnePole(sampleRate, droneCutoffMin)
	if err != nil {
		return nil, err
	}
	return &Voice{
		sampleRate: sampleRate,
		lowpass:    lowpass,
		rng:        rand.New(rand.NewSource(1)),
	}, nil
}

// SetRandomSeed seeds the noise-floor generator for reproducible output.
func (v *Voice) SetRandomSeed(seed int64) {
	v.rng = rand.New(rand.NewSource(seed))
}

// Render fills dst, mapping control onto pitch, brightness, and volume.
// control is clamped to [0, 2]; 0 is the idle drone.
func (v *Voice) Render(dst []float64, control float64) {
	if math.IsNaN(control) {
		control = 0
	}
	control = core.Clamp(control, 0, maxControl)

	// Cutoff stays inside the validated range, so the setter cannot fail.
	_ = v.lowpass.SetCutoff(droneCutoffMin + control*droneCutoffMod)

	freq1 := droneBaseHz + control*dronePitchMod
	freq2 := droneBaseHz*droneDetune + control*dronePitchMod
	inc1 := freq1 / v.sampleRate
	inc2 := freq2 / v.sampleRate
	volume := droneVolumeMin + control*droneVolumeMod

	for i := range dst {
		oscs := sawSample(v.phase1) + sawSample(v.phase2)
		v.phase1 += inc1
		if v.phase1 >= 1 {
			v.phase1 -= 1
		}
		v.phase2 += inc2
		if v.phase2 >= 1 {
			v.phase2 -= 1
		}

		// Smoothed white noise as a soft texture floor.
		v.noise += 0.1 * (v.rng.Float64()*2 - 1 - v.noise)

		dst[i] = v.lowpass.ProcessSample(oscs)*volume + v.noise*droneNoiseLevel
	}
}

// Reset returns the voice to silence without reseeding the noise source.
func (v *Voice) Reset() {
	v.phase1 = 0
	v.phase2 = 0
	v.noise = 0
	v.lowpass.Reset()
}

func sawSample(phase float64) float64 {
	return 2*phase - 1
}
