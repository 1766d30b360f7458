package testutil

import (
	"math"
	"testing"
)

func TestMeanAbs(t *testing.T) {
	if got := MeanAbs(nil); got != 0 {
		t.Fatalf("MeanAbs(nil) = %v, want 0", got)
	}
	if got := MeanAbs([]float64{1, -1, 3, -3}); got != 2 {
		t.Fatalf("MeanAbs = %v, want 2", got)
	}
}

func TestRMSAndEnergy(t *testing.T) {
	data := []float64{3, 4}
	if got := Energy(data); got != 25 {
		t.Fatalf("Energy = %v, want 25", got)
	}
	want := math.Sqrt(12.5)
	if got := RMS(data); math.Abs(got-want) > 1e-15 {
		t.Fatalf("RMS = %v, want %v", got, want)
	}
}

func TestImpulsePlacement(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("Impulse[%d] = %v, want %v", i, v, want)
		}
	}

	// Out-of-range positions yield silence rather than panicking.
	RequireSliceNearlyEqual(t, Impulse(4, 9), Silence(4), 0)
}
