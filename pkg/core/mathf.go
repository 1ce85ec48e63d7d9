package core

import "math"

// KmhPerMs converts m/s to km/h.
const KmhPerMs = 3.6

// KmhToMs converts km/h to m/s.
func KmhToMs(kmh float64) float64 { return kmh / KmhPerMs }

// MsToKmh converts m/s to km/h.
func MsToKmh(ms float64) float64 { return ms * KmhPerMs }

// MoveTowards moves current toward target by at most maxDelta without overshooting.
func MoveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	return current + math.Copysign(maxDelta, target-current)
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

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Lerp interpolates between a and b with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 { return a + (b-a)*Clamp01(t) }

// InverseLerp returns where v lies between a and b, clamped to [0, 1].
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}
