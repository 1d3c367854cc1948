package nn

import (
	"math"
	"testing"
)

func TestSigmoidReferenceValues(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0.5},
		{2.0, 0.8807970779778823},
		{-2.0, 0.11920292202211755},
	}
	for _, tc := range cases {
		if got := Sigmoid(tc.in); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Sigmoid(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSigmoidStaysInUnitInterval(t *testing.T) {
	for _, x := range []float64{-1e6, -50, -1, 0, 1, 50, 1e6} {
		got := Sigmoid(x)
		if got < 0 || got > 1 {
			t.Fatalf("Sigmoid(%v) = %v out of [0,1]", x, got)
		}
	}
}

func TestSat(t *testing.T) {
	cases := []struct {
		value, max, min, want float64
	}{
		{3, 2, 0, 2},
		{-1, 2, 0, 0},
		{1.5, 2, 0, 1.5},
	}
	for _, tc := range cases {
		if got := Sat(tc.value, tc.max, tc.min); got != tc.want {
			t.Fatalf("Sat(%v, %v, %v) = %v, want %v", tc.value, tc.max, tc.min, got, tc.want)
		}
	}
}

func TestThetaForConstant(t *testing.T) {
	for _, v := range []float64{0.1, 0.5, 0.9, 0.99} {
		theta := ThetaForConstant(v)
		if got := Sigmoid(0 - theta); math.Abs(got-v) > 1e-9 {
			t.Fatalf("sigmoid(-ThetaForConstant(%v)) = %v", v, got)
		}
	}
	// Saturated inputs stay finite.
	if theta := ThetaForConstant(1); math.IsInf(theta, 0) || math.IsNaN(theta) {
		t.Fatalf("ThetaForConstant(1) = %v", theta)
	}
}
