// Package granular implements the granular synthesis engine at the heart of
// the dreamy processor: it smears recent input history into a cloud of
// overlapping, pitch- and time-randomized grains.
//
// Grains live in a fixed-capacity arena sized at construction, so the
// per-sample path never allocates. A spawn request that finds the arena full
// is silently dropped; it neither queues nor blocks.
package granular

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/dsp/ring"
)

const (
	defaultGrainSizeMs      = 100.0
	defaultDensity          = 20.0
	defaultPitchShift       = 1.0
	defaultPitchRandomness  = 0.05
	defaultTimeRandomness   = 0.3
	defaultLookbackFraction = 0.5
	defaultSeed             = 1

	// Grains shorter than this are inaudible clicks; the duration jitter
	// floor prevents degenerate zero-length grains.
	minGrainSamples = 2
)

// grain is one live voice in the arena. The read cursor lives in lag-space:
// it decreases as playback advances, because the ring buffer addresses
// history by distance into the past.
type grain struct {
	active bool
	lag    float64
	rate   float64
	age    int
	dur    int
}

// Engine schedules, advances, windows, and mixes grains read from a ring
// buffer of recent input. It is real-time safe after construction and not
// thread-safe.
type Engine struct {
	buf        *ring.Buffer
	grains     []grain
	sampleRate float64

	grainSizeMs     float64
	density         float64
	pitchShift      float64
	pitchRandomness float64
	timeRandomness  float64
	lookback        float64 // samples

	countdown float64

	// pendingShift counts pushes since the last rendered sample. Lags are
	// measured from the newest write, so every push moves in-flight grains
	// one sample deeper into the past; the shift is settled lazily at the
	// start of the next render step.
	pendingShift float64

	seed int64
	rng  *rand.Rand
}

// New creates an engine holding bufferMs of history with at most maxGrains
// simultaneous grains. The lookback window defaults to half the buffer,
// leaving margin for in-flight grains to keep reading valid history.
func New(sampleRate, bufferMs float64, maxGrains int) (*Engine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("granular sample rate must be > 0: %f", sampleRate)
	}
	if bufferMs <= 0 || math.IsNaN(bufferMs) || math.IsInf(bufferMs, 0) {
		return nil, fmt.Errorf("granular buffer duration must be > 0: %f", bufferMs)
	}
	if maxGrains <= 0 {
		return nil, fmt.Errorf("granular max grains must be > 0: %d", maxGrains)
	}

	capacity := int(bufferMs * sampleRate / 1000)
	buf, err := ring.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("granular history buffer: %w", err)
	}

	e := &Engine{
		buf:             buf,
		grains:          make([]grain, maxGrains),
		sampleRate:      sampleRate,
		grainSizeMs:     defaultGrainSizeMs,
		density:         defaultDensity,
		pitchShift:      defaultPitchShift,
		pitchRandomness: defaultPitchRandomness,
		timeRandomness:  defaultTimeRandomness,
		lookback:        float64(capacity) * defaultLookbackFraction,
		seed:            defaultSeed,
		rng:             rand.New(rand.NewSource(defaultSeed)),
	}
	return e, nil
}

// SampleRate returns the sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// MaxGrains returns the fixed arena capacity.
func (e *Engine) MaxGrains() int { return len(e.grains) }

// GrainSizeMs returns the nominal grain duration in milliseconds.
func (e *Engine) GrainSizeMs() float64 { return e.grainSizeMs }

// Density returns the spawn rate in grains per second.
func (e *Engine) Density() float64 { return e.density }

// PitchShift returns the nominal playback rate.
func (e *Engine) PitchShift() float64 { return e.pitchShift }

// PitchRandomness returns the per-grain pitch jitter amount in [0, 1].
func (e *Engine) PitchRandomness() float64 { return e.pitchRandomness }

// TimeRandomness returns the duration/interval jitter amount in [0, 1].
func (e *Engine) TimeRandomness() float64 { return e.timeRandomness }

// LookbackMs returns the spawn window depth in milliseconds.
func (e *Engine) LookbackMs() float64 { return e.lookback / e.sampleRate * 1000 }

// ActiveGrains returns the number of currently sounding grains.
func (e *Engine) ActiveGrains() int {
	n := 0
	for i := range e.grains {
		if e.grains[i].active {
			n++
		}
	}
	return n
}

// SetGrainSizeMs sets the nominal grain duration. It must not exceed the
// lookback window, or a freshly spawned grain could read past valid history.
func (e *Engine) SetGrainSizeMs(ms float64) error {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("granular grain size must be > 0: %f", ms)
	}
	if ms > e.LookbackMs() {
		return fmt.Errorf("granular grain size %f ms exceeds lookback window %f ms", ms, e.LookbackMs())
	}
	e.grainSizeMs = ms
	return nil
}

// SetDensity sets the spawn rate in grains per second.
func (e *Engine) SetDensity(density float64) error {
	if density <= 0 || math.IsNaN(density) || math.IsInf(density, 0) {
		return fmt.Errorf("granular density must be > 0: %f", density)
	}
	e.density = density
	return nil
}

// SetPitchShift sets the nominal playback rate (1 = unshifted).
func (e *Engine) SetPitchShift(pitch float64) error {
	if pitch <= 0 || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return fmt.Errorf("granular pitch shift must be > 0: %f", pitch)
	}
	e.pitchShift = pitch
	return nil
}

// SetPitchRandomness sets the per-grain pitch jitter in [0, 1].
func (e *Engine) SetPitchRandomness(amount float64) error {
	if amount < 0 || amount > 1 || math.IsNaN(amount) {
		return fmt.Errorf("granular pitch randomness must be in [0, 1]: %f", amount)
	}
	e.pitchRandomness = amount
	return nil
}

// SetTimeRandomness sets the duration and spawn-interval jitter in [0, 1].
func (e *Engine) SetTimeRandomness(amount float64) error {
	if amount < 0 || amount > 1 || math.IsNaN(amount) {
		return fmt.Errorf("granular time randomness must be in [0, 1]: %f", amount)
	}
	e.timeRandomness = amount
	return nil
}

// SetLookbackMs sets how far into stored history new grains may start.
// It must stay below the buffer capacity so the oldest in-flight grain still
// reads valid samples as the buffer keeps filling.
func (e *Engine) SetLookbackMs(ms float64) error {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("granular lookback must be > 0: %f", ms)
	}
	samples := ms * e.sampleRate / 1000
	if samples >= float64(e.buf.Capacity()) {
		return fmt.Errorf("granular lookback %f ms exceeds buffer capacity", ms)
	}
	if e.grainSizeMs > ms {
		return fmt.Errorf("granular lookback %f ms smaller than grain size %f ms", ms, e.grainSizeMs)
	}
	e.lookback = samples
	return nil
}

// SetRandomSeed seeds the scheduling/jitter RNG for reproducible output.
func (e *Engine) SetRandomSeed(seed int64) {
	e.seed = seed
	e.rng.Seed(seed)
}

// Write pushes one input sample into the history buffer.
func (e *Engine) Write(sample float64) {
	e.buf.Push(sample)
	e.pendingShift++
}

// ProcessSample advances the scheduler and all live grains by one sample and
// returns the normalized grain mix.
func (e *Engine) ProcessSample() float64 {
	if e.pendingShift > 0 {
		maxLag := float64(e.buf.Capacity() - 1)
		for i := range e.grains {
			if e.grains[i].active {
				e.grains[i].lag = math.Min(e.grains[i].lag+e.pendingShift, maxLag)
			}
		}
		e.pendingShift = 0
	}

	e.countdown--
	if e.countdown <= 0 {
		e.spawnGrain()
		interval := e.sampleRate / e.density
		if e.timeRandomness > 0 {
			interval += interval * e.timeRandomness * (e.rng.Float64()*2 - 1)
		}
		if interval < 1 {
			interval = 1
		}
		e.countdown = interval
	}

	var sum float64
	active := 0

	for i := range e.grains {
		g := &e.grains[i]
		if !g.active {
			continue
		}

		env := hannEnv(g.age, g.dur)
		sum += env * e.buf.ReadLag(g.lag)
		active++

		// Playback advances forward through the stored past by the playback
		// rate each sample. Clamp rather than kill grains that drift outside
		// the window.
		g.lag = core.Clamp(g.lag-g.rate, 0, float64(e.buf.Capacity()-1))

		g.age++
		if g.age >= g.dur {
			g.active = false
		}
	}

	if active > 0 {
		sum /= math.Sqrt(float64(active))
	}
	return sum
}

// Render fills dst with consecutive output samples.
func (e *Engine) Render(dst []float64) {
	for i := range dst {
		dst[i] = e.ProcessSample()
	}
}

// Reset clears history, kills all grains, and rewinds the RNG.
func (e *Engine) Reset() {
	e.buf.Reset()
	for i := range e.grains {
		e.grains[i] = grain{}
	}
	e.countdown = 0
	e.pendingShift = 0
	e.rng.Seed(e.seed)
}

func (e *Engine) spawnGrain() {
	slot := -1
	for i := range e.grains {
		if !e.grains[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		// Arena full: forfeit this grain.
		return
	}

	dur := e.grainSizeMs * e.sampleRate / 1000
	if e.timeRandomness > 0 {
		dur *= 1 + e.timeRandomness*(e.rng.Float64()*2-1)
	}
	durSamples := int(dur)
	if durSamples < minGrainSamples {
		durSamples = minGrainSamples
	}

	rate := e.pitchShift
	if e.pitchRandomness > 0 {
		rate *= 1 + e.pitchRandomness*(e.rng.Float64()*2-1)
	}

	e.grains[slot] = grain{
		active: true,
		lag:    e.rng.Float64() * e.lookback,
		rate:   rate,
		dur:    durSamples,
	}
}

// hannEnv evaluates the Hann window 0.5*(1-cos(2*pi*t)) at t = age/dur.
func hannEnv(age, dur int) float64 {
	if dur <= 1 {
		return 1
	}
	phase := 2 * math.Pi * float64(age) / float64(dur)
	return 0.5 * (1 - math.Cos(phase))
}
