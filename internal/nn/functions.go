// Package nn holds the numeric rules shared by propagation and learning:
// the sigmoid activation, clamping helpers, and the Hebbian weight update.
package nn

import "math"

// Sigmoid is the universal activation: 1 / (1 + e^-x), range (0,1).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Sat clamps value to [min, max].
func Sat(value, max, min float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// SatUnit clamps value to the activation domain [0, 1].
func SatUnit(value float64) float64 {
	return Sat(value, 1, 0)
}

// ScaleValue maps value from [min, max] to [-1, 1].
func ScaleValue(value, max, min float64) float64 {
	if max == min {
		return 0
	}
	return (value*2 - (max + min)) / (max - min)
}

// ThetaForConstant returns the bias that makes an input-free node settle at
// the constant activation value: sigmoid(0 - theta) = value.
func ThetaForConstant(value float64) float64 {
	const epsilon = 1e-9
	v := Sat(value, 1-epsilon, epsilon)
	return -math.Log(v / (1 - v))
}
