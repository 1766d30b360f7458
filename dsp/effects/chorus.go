package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dreamy/dsp/interp"
)

const (
	defaultChorusRateHz      = 0.5
	defaultChorusDepthMs     = 22.0
	defaultChorusBaseDelayMs = 45.0
	defaultChorusMix         = 0.3
)

// Chorus is a single-voice modulated-delay chorus. The read offset swings
// sinusoidally around a base delay:
//
//	d(t) = baseDelay + depth * sin(2*pi*rate*t)
//
// and the output blends dry and delayed signal as
// (1-mix)*x + mix*delayed.
type Chorus struct {
	sampleRate  float64
	rateHz      float64
	depthMs     float64
	baseDelayMs float64
	mix         float64

	phase float64

	delayLine []float64
	write     int
	maxDelay  int
}

// NewChorus creates a chorus with the dreamy defaults (0.5 Hz LFO swinging
// ±22 ms around a 45 ms base delay, 30% wet).
func NewChorus(sampleRate float64) (*Chorus, error) {
	c := &Chorus{
		sampleRate:  sampleRate,
		rateHz:      defaultChorusRateHz,
		depthMs:     defaultChorusDepthMs,
		baseDelayMs: defaultChorusBaseDelayMs,
		mix:         defaultChorusMix,
	}
	if err := c.reconfigureDelayLine(); err != nil {
		return nil, err
	}
	return c, nil
}

// SampleRate returns the sample rate in Hz.
func (c *Chorus) SampleRate() float64 { return c.sampleRate }

// RateHz returns the LFO modulation rate.
func (c *Chorus) RateHz() float64 { return c.rateHz }

// DepthMs returns the modulation depth in milliseconds.
func (c *Chorus) DepthMs() float64 { return c.depthMs }

// BaseDelayMs returns the base delay in milliseconds.
func (c *Chorus) BaseDelayMs() float64 { return c.baseDelayMs }

// Mix returns the wet ratio in [0, 1].
func (c *Chorus) Mix() float64 { return c.mix }

// SetRateHz updates the LFO modulation rate.
func (c *Chorus) SetRateHz(rateHz float64) error {
	if rateHz <= 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		return fmt.Errorf("chorus rate must be > 0: %f", rateHz)
	}
	c.rateHz = rateHz
	return nil
}

// SetDepthMs updates the modulation depth. The depth must not exceed the
// base delay, or the modulated offset would swing negative.
func (c *Chorus) SetDepthMs(depthMs float64) error {
	if depthMs < 0 || depthMs > c.baseDelayMs || math.IsNaN(depthMs) {
		return fmt.Errorf("chorus depth must be in [0, %f]: %f", c.baseDelayMs, depthMs)
	}
	c.depthMs = depthMs
	return c.reconfigureDelayLine()
}

// SetBaseDelayMs updates the base delay.
func (c *Chorus) SetBaseDelayMs(baseDelayMs float64) error {
	if baseDelayMs <= 0 || baseDelayMs < c.depthMs || math.IsNaN(baseDelayMs) || math.IsInf(baseDelayMs, 0) {
		return fmt.Errorf("chorus base delay must be >= depth %f: %f", c.depthMs, baseDelayMs)
	}
	c.baseDelayMs = baseDelayMs
	return c.reconfigureDelayLine()
}

// SetMix updates the wet ratio in [0, 1].
func (c *Chorus) SetMix(mix float64) error {
	if mix < 0 || mix > 1 || math.IsNaN(mix) {
		return fmt.Errorf("chorus mix must be in [0, 1]: %f", mix)
	}
	c.mix = mix
	return nil
}

// Reset clears delay state and modulation phase.
func (c *Chorus) Reset() {
	for i := range c.delayLine {
		c.delayLine[i] = 0
	}
	c.write = 0
	c.phase = 0
}

// ProcessSample processes one sample.
func (c *Chorus) ProcessSample(input float64) float64 {
	c.delayLine[c.write] = input
	c.write++
	if c.write >= len(c.delayLine) {
		c.write = 0
	}

	baseSamples := c.baseDelayMs / 1000 * c.sampleRate
	depthSamples := c.depthMs / 1000 * c.sampleRate
	delay := baseSamples + depthSamples*math.Sin(c.phase)

	c.phase += 2 * math.Pi * c.rateHz / c.sampleRate
	if c.phase >= 2*math.Pi {
		c.phase -= 2 * math.Pi
	}

	wet := c.readFractional(delay)
	return (1-c.mix)*input + c.mix*wet
}

// ProcessInPlace applies the chorus to buf in place.
func (c *Chorus) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

func (c *Chorus) reconfigureDelayLine() error {
	if c.sampleRate <= 0 || math.IsNaN(c.sampleRate) || math.IsInf(c.sampleRate, 0) {
		return fmt.Errorf("chorus sample rate must be > 0: %f", c.sampleRate)
	}
	if c.baseDelayMs <= 0 || c.depthMs < 0 || c.depthMs > c.baseDelayMs {
		return fmt.Errorf("chorus delay range invalid: base %f ms, depth %f ms", c.baseDelayMs, c.depthMs)
	}

	needed := int(math.Ceil((c.baseDelayMs+c.depthMs)/1000*c.sampleRate)) + 3
	if needed < 4 {
		needed = 4
	}
	if needed != len(c.delayLine) {
		c.delayLine = make([]float64, needed)
		c.write = 0
	}
	c.maxDelay = needed - 3
	return nil
}

func (c *Chorus) readFractional(delay float64) float64 {
	if delay < 0 {
		delay = 0
	}
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	pm1 := p - 1
	if pm1 < 0 {
		pm1 = 0
	}
	return interp.Hermite4(t,
		c.readInt(pm1),
		c.readInt(p),
		c.readInt(p+1),
		c.readInt(p+2),
	)
}

func (c *Chorus) readInt(delay int) float64 {
	if delay < 0 || delay >= len(c.delayLine) {
		return 0
	}
	idx := c.write - 1 - delay
	if idx < 0 {
		idx += len(c.delayLine)
	}
	return c.delayLine[idx]
}
