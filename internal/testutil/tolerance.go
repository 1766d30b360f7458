package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MeanAbs returns the mean absolute value of data, 0 for an empty slice.
func MeanAbs(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var acc float64
	for _, v := range data {
		acc += math.Abs(v)
	}
	return acc / float64(len(data))
}

// RMS returns the root-mean-square amplitude of data, 0 for an empty slice.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var acc float64
	for _, v := range data {
		acc += v * v
	}
	return math.Sqrt(acc / float64(len(data)))
}

// Energy returns the sum of squared samples.
func Energy(data []float64) float64 {
	var acc float64
	for _, v := range data {
		acc += v * v
	}
	return acc
}
