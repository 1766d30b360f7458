package drone

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dreamy/dsp/spectrum"
	"github.com/cwbudde/algo-dreamy/internal/testutil"
)

func TestNewVoiceRejectsInvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{0, -44100, 8000, math.NaN(), math.Inf(1)} {
		if _, err := NewVoice(rate); err == nil {
			t.Errorf("NewVoice(%v) expected error", rate)
		}
	}
	if _, err := NewVoice(44100); err != nil {
		t.Fatalf("NewVoice(44100) error = %v", err)
	}
}

func TestVoiceOutputIsFiniteAndBounded(t *testing.T) {
	v, err := NewVoice(44100)
	if err != nil {
		t.Fatalf("NewVoice() error = %v", err)
	}
	v.SetRandomSeed(3)

	out := make([]float64, 44100)
	for _, control := range []float64{0, 0.5, 1, 2, 5, math.NaN()} {
		v.Render(out, control)
		testutil.RequireFinite(t, out)
		for i, s := range out {
			if math.Abs(s) > 10 {
				t.Fatalf("control %v sample %d = %v, runaway output", control, i, s)
			}
		}
	}
}

// Higher control must open the filter: the share of spectral energy above
// the idle cutoff has to grow with control.
func TestVoiceBrightnessRisesWithControl(t *testing.T) {
	const (
		size       = 8192
		sampleRate = 44100.0
	)
	an, err := spectrum.NewAnalyzer(size)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	highShare := func(control float64) float64 {
		v, err := NewVoice(sampleRate)
		if err != nil {
			t.Fatalf("NewVoice() error = %v", err)
		}
		v.SetRandomSeed(9)

		out := make([]float64, 4*size)
		v.Render(out, control)

		mags := make([]float64, an.Bins())
		if err := an.Magnitude(mags, out[len(out)-size:]); err != nil {
			t.Fatalf("Magnitude() error = %v", err)
		}

		// Energy above ~500 Hz relative to the whole spectrum.
		split := size * 500 / 44100
		var high, total float64
		for k, m := range mags {
			p := m * m
			total += p
			if k >= split {
				high += p
			}
		}
		if total == 0 {
			t.Fatal("spectrum is empty")
		}
		return high / total
	}

	dark := highShare(0)
	mid := highShare(0.5)
	bright := highShare(1.5)
	if !(dark < mid && mid < bright) {
		t.Fatalf("brightness not monotone in control: %v, %v, %v", dark, mid, bright)
	}
}

func TestVoiceVolumeRisesWithControl(t *testing.T) {
	rms := func(control float64) float64 {
		v, err := NewVoice(44100)
		if err != nil {
			t.Fatalf("NewVoice() error = %v", err)
		}
		v.SetRandomSeed(9)
		out := make([]float64, 44100)
		v.Render(out, control)
		return testutil.RMS(out[22050:])
	}

	quiet := rms(0)
	loud := rms(1)
	if loud <= quiet {
		t.Fatalf("volume not rising with control: %v vs %v", quiet, loud)
	}
}

func TestArpeggiatorFollowsPatternAtZeroEnergy(t *testing.T) {
	a := NewArpeggiator()
	a.SetRandomSeed(1)

	// Zero energy means zero chaos, so two instances must agree and every
	// hold is the slow tempo.
	b := NewArpeggiator()
	b.SetRandomSeed(42)

	for i := 0; i < 40; i++ {
		fa, holdA := a.Next(0)
		fb, holdB := b.Next(0)
		if fa != fb {
			t.Fatalf("note %d: %v != %v despite zero chaos", i, fa, fb)
		}
		if holdA != arpSlowHold || holdB != arpSlowHold {
			t.Fatalf("note %d: hold %v/%v, want %v", i, holdA, holdB, arpSlowHold)
		}
	}
}

func TestArpeggiatorNotesStayOnScale(t *testing.T) {
	a := NewArpeggiator()
	a.SetRandomSeed(5)

	valid := map[int]bool{}
	for _, iv := range a.intervals {
		valid[iv] = true
		valid[iv+12] = true
	}

	for i := 0; i < 500; i++ {
		freq, hold := a.Next(0.8)
		semis := int(math.Round(12 * math.Log2(freq/arpRootHz)))
		if !valid[semis] {
			t.Fatalf("note %d: %v Hz (%d semitones) is off scale", i, freq, semis)
		}
		if hold < arpFastHold || hold > arpSlowHold {
			t.Fatalf("note %d: hold %v outside [%v, %v]", i, hold, arpFastHold, arpSlowHold)
		}
	}
}

func TestArpeggiatorTempoSpeedsUpWithEnergy(t *testing.T) {
	a := NewArpeggiator()
	_, slow := a.Next(0)
	_, fast := a.Next(1)
	if fast >= slow {
		t.Fatalf("hold at high energy %v not shorter than %v", fast, slow)
	}
	if fast != arpFastHold {
		t.Fatalf("hold at energy 1 = %v, want %v", fast, arpFastHold)
	}
}

func TestSineVoiceTracksFrequency(t *testing.T) {
	const size = 8192
	v, err := NewSineVoice(44100)
	if err != nil {
		t.Fatalf("NewSineVoice() error = %v", err)
	}
	an, err := spectrum.NewAnalyzer(size)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	target := an.BinFrequency(100, 44100)
	v.SetFrequency(target)

	out := make([]float64, 2*size)
	v.Render(out)
	peak, err := an.PeakBin(out[size:])
	if err != nil {
		t.Fatalf("PeakBin() error = %v", err)
	}
	if peak < 99 || peak > 101 {
		t.Fatalf("peak bin = %d, want ~100", peak)
	}
}

func TestSineVoiceIgnoresInvalidFrequencies(t *testing.T) {
	v, err := NewSineVoice(44100)
	if err != nil {
		t.Fatalf("NewSineVoice() error = %v", err)
	}

	v.SetFrequency(440)
	for _, hz := range []float64{0, -10, math.NaN(), math.Inf(1), 44100} {
		v.SetFrequency(hz)
		if got := v.Frequency(); got != 440 {
			t.Fatalf("SetFrequency(%v) changed frequency to %v", hz, got)
		}
	}
}
