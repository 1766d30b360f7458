// Package interp provides the fractional interpolation kernels used by the
// delay-based processors: linear for the granular ring reads and cubic
// Hermite for the chorus delay line.
package interp

// Linear interpolates between x0 and x1 at frac in [0, 1].
func Linear(x0, x1, frac float64) float64 {
	return x0 + frac*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}
