package geom

import "math"

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// SolveQuadratic returns the real roots of a·t² + b·t + c = 0 in ascending order.
// ok is false when a == 0 or the discriminant is negative.
func SolveQuadratic(a, b, c float64) (lo, hi float64, ok bool) {
	if a == 0 {
		return 0, 0, false
	}
	disc := b*b - 4*a*c
	if disc < 0 || math.IsNaN(disc) {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)

	// q = -(b + sign(b)·√D)/2 keeps both roots free of cancellation.
	var q float64
	if b >= 0 {
		q = -0.5 * (b + sq)
	} else {
		q = -0.5 * (b - sq)
	}
	if q == 0 {
		// b == 0 and D == 0, hence c == 0: double root at zero.
		return 0, 0, true
	}
	r1 := q / a
	r2 := c / q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return r1, r2, true
}

// NormalizeAngle wraps a finite angle into [0, 2π).
func NormalizeAngle(angle float64) float64 {
	const twoPi = 2 * math.Pi
	a := math.Mod(angle, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		a = 0
	}
	return a
}
