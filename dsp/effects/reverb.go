package effects

import (
	"fmt"
	"math"
)

const (
	defaultReverbWet = 0.4
	defaultReverbDry = 0.6

	reverbTuningRate = 44100.0
)

// ReverbTuning describes the Schroeder network topology: parallel comb
// filters followed by serial allpass filters. Delay lengths are given in
// samples at 44.1 kHz and scaled to the construction sample rate.
type ReverbTuning struct {
	CombDelays      []int
	CombFeedback    float64
	CombDamp        float64
	AllpassDelays   []int
	AllpassFeedback float64
}

// DefaultReverbTuning returns the classic tuning: eight combs with
// prime-ish delay lengths to avoid resonance coincidence, four allpasses.
func DefaultReverbTuning() ReverbTuning {
	return ReverbTuning{
		CombDelays:      []int{1557, 1617, 1491, 1422, 1277, 1356, 1188, 1116},
		CombFeedback:    0.84,
		CombDamp:        0.2,
		AllpassDelays:   []int{225, 556, 441, 341},
		AllpassFeedback: 0.5,
	}
}

// Reverb is a Schroeder reverb: the input passes in parallel through damped
// comb filters, their averaged sum is diffused by serial allpass filters,
// and the result is blended as wet*reverb + dry*input. Wet and dry are
// independent gains and need not sum to 1.
type Reverb struct {
	wet float64
	dry float64

	combs     []reverbComb
	allpasses []reverbAllpass
}

type reverbComb struct {
	buffer      []float64
	index       int
	feedback    float64
	dampA       float64
	dampB       float64
	filterStore float64
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = output*c.dampB + c.filterStore*c.dampA
	if math.Abs(c.filterStore) < 1e-23 {
		c.filterStore = 0
	}
	c.buffer[c.index] = input + c.filterStore*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (c *reverbComb) reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
	c.filterStore = 0
}

type reverbAllpass struct {
	buffer   []float64
	index    int
	feedback float64
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	output := bufOut - input
	a.buffer[a.index] = input + bufOut*a.feedback
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}

func (a *reverbAllpass) reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.index = 0
}

// NewReverb creates a reverb with the default tuning and the dreamy
// 0.4 wet / 0.6 dry blend.
func NewReverb(sampleRate float64) (*Reverb, error) {
	return NewReverbWithTuning(sampleRate, DefaultReverbTuning(), defaultReverbWet, defaultReverbDry)
}

// NewReverbWithTuning creates a reverb from an explicit tuning and mix.
func NewReverbWithTuning(sampleRate float64, tuning ReverbTuning, wet, dry float64) (*Reverb, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0: %f", sampleRate)
	}
	if len(tuning.CombDelays) == 0 || len(tuning.AllpassDelays) == 0 {
		return nil, fmt.Errorf("reverb tuning needs comb and allpass delays: %d/%d",
			len(tuning.CombDelays), len(tuning.AllpassDelays))
	}
	if tuning.CombFeedback < 0 || tuning.CombFeedback >= 1 || math.IsNaN(tuning.CombFeedback) {
		return nil, fmt.Errorf("reverb comb feedback must be in [0, 1): %f", tuning.CombFeedback)
	}
	if tuning.CombDamp < 0 || tuning.CombDamp >= 1 || math.IsNaN(tuning.CombDamp) {
		return nil, fmt.Errorf("reverb comb damp must be in [0, 1): %f", tuning.CombDamp)
	}
	if tuning.AllpassFeedback < 0 || tuning.AllpassFeedback >= 1 || math.IsNaN(tuning.AllpassFeedback) {
		return nil, fmt.Errorf("reverb allpass feedback must be in [0, 1): %f", tuning.AllpassFeedback)
	}
	if math.IsNaN(wet) || math.IsInf(wet, 0) || math.IsNaN(dry) || math.IsInf(dry, 0) {
		return nil, fmt.Errorf("reverb wet/dry must be finite: %f/%f", wet, dry)
	}

	scale := sampleRate / reverbTuningRate

	r := &Reverb{
		wet:       wet,
		dry:       dry,
		combs:     make([]reverbComb, len(tuning.CombDelays)),
		allpasses: make([]reverbAllpass, len(tuning.AllpassDelays)),
	}

	for i, delay := range tuning.CombDelays {
		if delay <= 0 {
			return nil, fmt.Errorf("reverb comb delay must be > 0: %d", delay)
		}
		r.combs[i] = reverbComb{
			buffer:   make([]float64, scaledDelay(delay, scale)),
			feedback: tuning.CombFeedback,
			dampA:    tuning.CombDamp,
			dampB:    1 - tuning.CombDamp,
		}
	}
	for i, delay := range tuning.AllpassDelays {
		if delay <= 0 {
			return nil, fmt.Errorf("reverb allpass delay must be > 0: %d", delay)
		}
		r.allpasses[i] = reverbAllpass{
			buffer:   make([]float64, scaledDelay(delay, scale)),
			feedback: tuning.AllpassFeedback,
		}
	}

	return r, nil
}

func scaledDelay(delay int, scale float64) int {
	scaled := int(float64(delay) * scale)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// Wet returns the wet gain.
func (r *Reverb) Wet() float64 { return r.wet }

// Dry returns the dry gain.
func (r *Reverb) Dry() float64 { return r.dry }

// SetMix updates wet and dry gains independently.
func (r *Reverb) SetMix(wet, dry float64) error {
	if math.IsNaN(wet) || math.IsInf(wet, 0) || math.IsNaN(dry) || math.IsInf(dry, 0) {
		return fmt.Errorf("reverb wet/dry must be finite: %f/%f", wet, dry)
	}
	r.wet = wet
	r.dry = dry
	return nil
}

// ProcessSample processes one sample.
func (r *Reverb) ProcessSample(input float64) float64 {
	var combSum float64
	for i := range r.combs {
		combSum += r.combs[i].process(input)
	}
	combSum /= float64(len(r.combs))

	out := combSum
	for i := range r.allpasses {
		out = r.allpasses[i].process(out)
	}

	return r.wet*out + r.dry*input
}

// ProcessInPlace applies the reverb to buf in place.
func (r *Reverb) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = r.ProcessSample(buf[i])
	}
}

// Reset clears all delay and damping state.
func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.allpasses {
		r.allpasses[i].reset()
	}
}
