package effects

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dreamy/internal/testutil"
)

func TestNewReverbRejectsInvalidArguments(t *testing.T) {
	if _, err := NewReverb(0); err == nil {
		t.Fatal("NewReverb(0) expected error")
	}

	tuning := DefaultReverbTuning()
	tuning.CombFeedback = 1.0
	if _, err := NewReverbWithTuning(44100, tuning, 1, 0); err == nil {
		t.Fatal("unity comb feedback expected error")
	}

	tuning = DefaultReverbTuning()
	tuning.CombDelays = nil
	if _, err := NewReverbWithTuning(44100, tuning, 1, 0); err == nil {
		t.Fatal("empty comb delays expected error")
	}

	tuning = DefaultReverbTuning()
	tuning.AllpassDelays = []int{0}
	if _, err := NewReverbWithTuning(44100, tuning, 1, 0); err == nil {
		t.Fatal("zero allpass delay expected error")
	}
}

func TestReverbImpulseEnergyDecays(t *testing.T) {
	// With wet=1, dry=0 and sub-unity feedback, the impulse response must
	// have finite energy and decay to near-zero.
	r, err := NewReverbWithTuning(44100, DefaultReverbTuning(), 1, 0)
	if err != nil {
		t.Fatalf("NewReverbWithTuning() error = %v", err)
	}

	const n = 8 * 44100
	in := testutil.Impulse(n, 0)
	out := make([]float64, n)
	for i, x := range in {
		out[i] = r.ProcessSample(x)
	}
	testutil.RequireFinite(t, out)

	total := testutil.Energy(out)
	if math.IsInf(total, 0) || total == 0 {
		t.Fatalf("impulse response energy = %v", total)
	}

	head := testutil.Energy(out[:44100])
	tail := testutil.Energy(out[n-44100:])
	if tail > head*1e-3 {
		t.Fatalf("tail energy %v not decayed vs head %v", tail, head)
	}
}

func TestReverbDryOnlyPassesInput(t *testing.T) {
	r, err := NewReverbWithTuning(44100, DefaultReverbTuning(), 0, 1)
	if err != nil {
		t.Fatalf("NewReverbWithTuning() error = %v", err)
	}

	in := testutil.DeterministicSine(440, 44100, 0.5, 1024)
	for _, x := range in {
		if got := r.ProcessSample(x); math.Abs(got-x) > 1e-12 {
			t.Fatalf("dry-only reverb altered signal: got %v, want %v", got, x)
		}
	}
}

func TestReverbProducesTail(t *testing.T) {
	r, err := NewReverb(44100)
	if err != nil {
		t.Fatalf("NewReverb() error = %v", err)
	}

	// 100 ms burst, then silence: the output after the burst must carry
	// reverberant energy.
	burst := testutil.DeterministicSine(440, 44100, 0.5, 4410)
	for _, x := range burst {
		r.ProcessSample(x)
	}

	var tailEnergy float64
	for i := 0; i < 44100; i++ {
		out := r.ProcessSample(0)
		tailEnergy += out * out
	}
	if tailEnergy < 1e-6 {
		t.Fatalf("no reverb tail after burst: energy = %v", tailEnergy)
	}
}

func TestReverbSampleRateScalesDelays(t *testing.T) {
	// At double the sample rate the first comb echo of an impulse should
	// arrive at roughly the same wall-clock time, i.e. twice the samples.
	arrival := func(sampleRate float64) int {
		r, err := NewReverbWithTuning(sampleRate, DefaultReverbTuning(), 1, 0)
		if err != nil {
			t.Fatalf("NewReverbWithTuning() error = %v", err)
		}
		for i := 0; i < int(sampleRate); i++ {
			x := 0.0
			if i == 0 {
				x = 1
			}
			if out := r.ProcessSample(x); math.Abs(out) > 1e-9 {
				return i
			}
		}
		t.Fatal("no impulse response observed")
		return 0
	}

	at44 := arrival(44100)
	at88 := arrival(88200)
	ratio := float64(at88) / float64(at44)
	if ratio < 1.9 || ratio > 2.1 {
		t.Fatalf("delay scaling ratio = %v (%d vs %d), want ~2", ratio, at44, at88)
	}
}

func TestReverbResetSilences(t *testing.T) {
	r, err := NewReverbWithTuning(44100, DefaultReverbTuning(), 1, 0)
	if err != nil {
		t.Fatalf("NewReverbWithTuning() error = %v", err)
	}

	for i := 0; i < 10000; i++ {
		r.ProcessSample(0.5)
	}
	r.Reset()

	for i := 0; i < 10000; i++ {
		if out := r.ProcessSample(0); out != 0 {
			t.Fatalf("sample %d after Reset = %v, want 0", i, out)
		}
	}
}
