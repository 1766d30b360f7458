package drone

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/dsp/effects"
)

const (
	arpRootHz = 130.81 // C3

	arpSlowHold = 250 * time.Millisecond
	arpFastHold = 50 * time.Millisecond
)

// Arpeggiator picks notes from a pentatonic minor scale. At low energy it
// walks an up-and-down pattern at a slow tempo; rising energy speeds the
// tempo up and makes random note and octave jumps increasingly likely.
type Arpeggiator struct {
	rootHz    float64
	intervals []int
	pattern   []int
	step      int
	rng       *rand.Rand
}

// NewArpeggiator creates an arpeggiator on the default pentatonic minor
// scale rooted at C3.
func NewArpeggiator() *Arpeggiator {
	return &Arpeggiator{
		rootHz:    arpRootHz,
		intervals: []int{0, 3, 5, 7, 10, 12, 14, 17, 19, 21, 24},
		pattern:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		rng:       rand.New(rand.NewSource(1)),
	}
}

// SetRandomSeed seeds the chaos source for reproducible sequences.
func (a *Arpeggiator) SetRandomSeed(seed int64) {
	a.rng = rand.New(rand.NewSource(seed))
}

// Next advances the sequence by one note. It returns the note frequency
// and how long to hold it before the next call.
func (a *Arpeggiator) Next(energy float64) (freqHz float64, hold time.Duration) {
	if math.IsNaN(energy) || energy < 0 {
		energy = 0
	}

	chaos := energy * 10

	noteIndex := a.pattern[a.step%len(a.pattern)]
	if a.rng.Float64() < chaos {
		noteIndex = a.rng.Intn(len(a.intervals))
	}

	octave := 0
	if a.rng.Float64() < chaos*0.5 {
		octave = 1
	}

	semitones := a.intervals[noteIndex] + octave*12
	freqHz = a.rootHz * math.Pow(2, float64(semitones)/12)

	hold = arpSlowHold
	if energy > 0.05 {
		factor := core.Clamp((energy-0.05)*2, 0, 1)
		ms := arpSlowHold.Seconds()*1000*(1-factor) + arpFastHold.Seconds()*1000*factor
		hold = time.Duration(ms) * time.Millisecond
	}

	a.step++
	return freqHz, hold
}

// SineVoice renders the arpeggio notes: a sine oscillator into a fixed
// 1 kHz lowpass at a conservative gain. The frequency is stored atomically
// so the sequencer goroutine can retune it while the audio callback
// renders.
type SineVoice struct {
	sampleRate float64
	freqBits   atomic.Uint64
	phase      float64
	lowpass    *effects.OnePole
	gain       float64
}

// NewSineVoice creates an arpeggio voice.
func NewSineVoice(sampleRate float64) (*SineVoice, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sine voice sample rate must be positive and finite: %v", sampleRate)
	}
	lowpass, err := effects.NewOnePole(sampleRate, 1000)
	if err != nil {
		return nil, err
	}
	v := &SineVoice{
		sampleRate: sampleRate,
		lowpass:    lowpass,
		gain:       0.2,
	}
	v.SetFrequency(arpRootHz)
	return v, nil
}

// SetFrequency retunes the oscillator. Non-positive or non-finite values
// are ignored. Safe to call concurrently with Render.
func (s *SineVoice) SetFrequency(hz float64) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) || hz >= s.sampleRate/2 {
		return
	}
	s.freqBits.Store(math.Float64bits(hz))
}

// Frequency returns the current oscillator frequency.
func (s *SineVoice) Frequency() float64 {
	return math.Float64frombits(s.freqBits.Load())
}

// Render fills dst with the voice output.
func (s *SineVoice) Render(dst []float64) {
	inc := s.Frequency() / s.sampleRate
	for i := range dst {
		sample := math.Sin(2 * math.Pi * s.phase)
		s.phase += inc
		if s.phase >= 1 {
			s.phase -= 1
		}
		dst[i] = s.lowpass.ProcessSample(sample) * s.gain
	}
}

// Reset returns the voice to silence at its current frequency.
func (s *SineVoice) Reset() {
	s.phase = 0
	s.lowpass.Reset()
}
