package effects

import "fmt"

const defaultLowpassCutoffHz = 4000.0

// Chain applies the dreamy effect series in fixed order:
// lowpass -> chorus -> reverb. The reverb blends wet/dry internally, which
// is why it sits last.
type Chain struct {
	lowpass *OnePole
	chorus  *Chorus
	reverb  *Reverb
}

// NewChain assembles a chain from its stages. All stages are required.
func NewChain(lowpass *OnePole, chorus *Chorus, reverb *Reverb) (*Chain, error) {
	if lowpass == nil || chorus == nil || reverb == nil {
		return nil, fmt.Errorf("chain requires all stages: lowpass=%v chorus=%v reverb=%v",
			lowpass != nil, chorus != nil, reverb != nil)
	}
	return &Chain{lowpass: lowpass, chorus: chorus, reverb: reverb}, nil
}

// NewDreamyChain builds a chain with the dreamy defaults: a dark 4 kHz
// lowpass, slow wide chorus, and a lush 0.4/0.6 reverb blend.
func NewDreamyChain(sampleRate float64) (*Chain, error) {
	lowpass, err := NewOnePole(sampleRate, defaultLowpassCutoffHz)
	if err != nil {
		return nil, err
	}
	chorus, err := NewChorus(sampleRate)
	if err != nil {
		return nil, err
	}
	reverb, err := NewReverb(sampleRate)
	if err != nil {
		return nil, err
	}
	return NewChain(lowpass, chorus, reverb)
}

// Lowpass returns the lowpass stage.
func (ch *Chain) Lowpass() *OnePole { return ch.lowpass }

// Chorus returns the chorus stage.
func (ch *Chain) Chorus() *Chorus { return ch.chorus }

// Reverb returns the reverb stage.
func (ch *Chain) Reverb() *Reverb { return ch.reverb }

// ProcessSample runs one sample through the full chain.
func (ch *Chain) ProcessSample(input float64) float64 {
	return ch.reverb.ProcessSample(ch.chorus.ProcessSample(ch.lowpass.ProcessSample(input)))
}

// ProcessInPlace runs buf through the chain in place.
func (ch *Chain) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = ch.ProcessSample(buf[i])
	}
}

// Reset clears all stage state.
func (ch *Chain) Reset() {
	ch.lowpass.Reset()
	ch.chorus.Reset()
	ch.reverb.Reset()
}
