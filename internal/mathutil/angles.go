package mathutil

import "math"

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 {
	return r * 180 / math.Pi
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapDelta returns the signed shortest rotation from a to b in degrees,
// in the half-open range (-180, 180].
func WrapDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d < 0 {
		d += 360
	}
	if d > 180 {
		d -= 360
	}
	return d
}

// LerpAngle moves a toward b by fraction t along the shortest arc.
// The result is not normalized; yaw is allowed to grow without bound.
func LerpAngle(a, b, t float64) float64 {
	return a + WrapDelta(a, b)*t
}

// UnwrapNear returns the angle equivalent to a (mod 360) that lies within
// 180 degrees of ref.
func UnwrapNear(a, ref float64) float64 {
	return ref + WrapDelta(ref, a)
}

// AngleDist returns the shortest angular distance between two angles in degrees (0–180).
func AngleDist(a, b float64) float64 {
	return math.Abs(WrapDelta(a, b))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
