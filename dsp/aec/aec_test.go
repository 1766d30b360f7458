package aec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-dreamy/internal/testutil"
)

func TestNewRejectsInvalidArguments(t *testing.T) {
	if _, err := New(0, 0.5); err == nil {
		t.Fatal("New(0, _) expected error")
	}
	if _, err := New(-8, 0.5); err == nil {
		t.Fatal("New(-8, _) expected error")
	}
	if _, err := New(128, 0); err == nil {
		t.Fatal("New(_, 0) expected error")
	}
	if _, err := New(128, 3); err == nil {
		t.Fatal("New(_, 3) expected error")
	}
	if _, err := NewWithRegularization(128, 0.5, 0); err == nil {
		t.Fatal("zero regularization expected error")
	}
}

func TestPassThroughWithoutEcho(t *testing.T) {
	c, err := New(128, 0.5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Zero reference: the estimate is zero and the mic passes through.
	if got := c.ProcessSample(1.0, 0.0); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("ProcessSample(1, 0) = %v, want 1", got)
	}
}

// simulateEchoPath plays reference through a known FIR room model and runs
// the canceller on the resulting "microphone" signal. Returns per-sample
// residuals.
func simulateEchoPath(c *Canceller, reference, room []float64) []float64 {
	delay := make([]float64, len(room))
	residuals := make([]float64, len(reference))

	for n, ref := range reference {
		copy(delay[1:], delay[:len(delay)-1])
		delay[0] = ref

		var mic float64
		for k, h := range room {
			mic += h * delay[k]
		}

		residuals[n] = c.ProcessSample(mic, ref)
	}
	return residuals
}

func TestConvergesOnSyntheticRoom(t *testing.T) {
	const taps = 64
	c, err := New(taps, 0.5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	room := []float64{0.6, 0, 0, -0.3, 0, 0.1, 0.05}
	reference := testutil.DeterministicNoise(42, 0.8, 40*taps)

	residuals := simulateEchoPath(c, reference, room)
	testutil.RequireFinite(t, residuals)

	// Average residual magnitude over windows must decrease and end small.
	window := 4 * taps
	first := testutil.MeanAbs(residuals[:window])
	mid := testutil.MeanAbs(residuals[len(residuals)/2 : len(residuals)/2+window])
	last := testutil.MeanAbs(residuals[len(residuals)-window:])

	if !(mid < first) || !(last < mid) {
		t.Fatalf("residual not decreasing: first=%v mid=%v last=%v", first, mid, last)
	}
	if last > 0.01 {
		t.Fatalf("residual after convergence = %v, want <= 0.01", last)
	}
}

func TestFrozenWeightsStayExactlyUnchanged(t *testing.T) {
	c, err := New(32, 0.5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Learn a little first so the weights are non-trivial.
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		ref := rng.Float64()*2 - 1
		c.ProcessSample(0.5*ref, ref)
	}

	before := c.Weights()
	c.SetAdaptationEnabled(false)

	for i := 0; i < 5000; i++ {
		ref := rng.Float64()*2 - 1
		c.ProcessSample(rng.Float64()*2-1, ref)
	}

	after := c.Weights()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("weight %d changed while frozen: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestPredictionStillRunsWhileFrozen(t *testing.T) {
	c, err := New(16, 0.9)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Echo path: mic hears the reference at half gain, no delay.
	ref := testutil.DeterministicNoise(3, 0.5, 4096)
	for _, r := range ref {
		c.ProcessSample(0.5*r, r)
	}

	c.SetAdaptationEnabled(false)

	// Frozen prediction should still remove most of the echo.
	var echoEnergy, residualEnergy float64
	more := testutil.DeterministicNoise(4, 0.5, 1024)
	for _, r := range more {
		mic := 0.5 * r
		res := c.ProcessSample(mic, r)
		echoEnergy += mic * mic
		residualEnergy += res * res
	}

	if residualEnergy > 0.05*echoEnergy {
		t.Fatalf("frozen prediction too weak: residual %v vs echo %v", residualEnergy, echoEnergy)
	}
}

func TestDivergenceSelfResets(t *testing.T) {
	c, err := New(8, 0.5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 100; i++ {
		c.ProcessSample(0.3, 0.3)
	}

	// A NaN microphone sample makes the residual non-finite; the canceller
	// must swallow it and emit silence, never the NaN itself.
	out := c.ProcessSample(math.NaN(), 0.3)
	if out != 0 {
		t.Fatalf("ProcessSample(NaN, _) = %v after divergence, want 0", out)
	}

	for _, w := range c.Weights() {
		if w != 0 {
			t.Fatalf("weights not reset after divergence: %v", c.Weights())
		}
	}

	// The canceller keeps running after self-recovery.
	out = c.ProcessSample(0.2, 0.1)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		t.Fatalf("canceller unusable after recovery: %v", out)
	}
}

func TestResetClearsModel(t *testing.T) {
	c, err := New(16, 0.5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 1000; i++ {
		c.ProcessSample(0.4, 0.4)
	}
	c.Reset()

	for _, w := range c.Weights() {
		if w != 0 {
			t.Fatal("Reset left non-zero weights")
		}
	}
	if got := c.EstimateEcho(); got != 0 {
		t.Fatalf("EstimateEcho after Reset = %v, want 0", got)
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	c1, _ := New(32, 0.5)
	c2, _ := New(32, 0.5)

	mic := testutil.DeterministicNoise(11, 0.5, 256)
	ref := testutil.DeterministicNoise(12, 0.5, 256)

	want := make([]float64, len(mic))
	for i := range mic {
		want[i] = c1.ProcessSample(mic[i], ref[i])
	}

	got := make([]float64, len(mic))
	c2.ProcessBlock(got, mic, ref)

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-15)
}
