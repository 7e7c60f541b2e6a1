package bed

import "math"

// Vector holds one normalized extent per actuator, indexed by
// ActuatorID. 0 is fully retracted, 1 is fully extended.
type Vector [NumActuators]float64

// Clamped returns a copy of v with every extent restricted to [0, 1].
func (v Vector) Clamped() Vector {
	var out Vector
	for i, x := range v {
		out[i] = clamp(x, 0, 1)
	}
	return out
}

// ApproxEqual reports whether v and other agree within tol on every
// channel.
func (v Vector) ApproxEqual(other Vector, tol float64) bool {
	for i := range v {
		if math.Abs(v[i]-other[i]) > tol {
			return false
		}
	}
	return true
}

// clamp restricts x to the range [min, max].
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
