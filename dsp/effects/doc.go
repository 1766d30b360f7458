// Package effects provides the dreamy processor's effect kernels: a one-pole
// lowpass for warmth, a modulated-delay chorus for shimmer, and a Schroeder
// reverb for space, plus the Chain that applies them in series.
//
// All effects are real-time safe after construction (no allocations in the
// sample path) and support both single-sample and in-place block processing.
// None are thread-safe.
package effects
