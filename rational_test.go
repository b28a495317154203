package avifhdr

import (
	"errors"
	"math"
	"testing"
)

func TestDoubleToFraction(t *testing.T) {
	for _, tc := range []struct {
		v    float64
		want Fraction
	}{
		{0, Fraction{N: 0, D: 1}},
		{0.5, Fraction{N: 1, D: 2}},
		{-1.25, Fraction{N: -5, D: 4}},
		{3, Fraction{N: 3, D: 1}},
	} {
		got, err := DoubleToFraction(tc.v)
		if err != nil {
			t.Fatalf("%v: %v", tc.v, err)
		}
		if got != tc.want {
			t.Errorf("%v: got %s, want %s", tc.v, got, tc.want)
		}
	}

	for _, v := range []float64{1.0 / 3, math.Pi, -math.Log2(10), 1e-6, 12345.678} {
		f, err := DoubleToFraction(v)
		if err != nil {
			t.Fatalf("%v: %v", v, err)
		}
		if math.Abs(f.Float64()-v) > 1e-6*math.Max(1, math.Abs(v)) {
			t.Errorf("%v approximated as %s", v, f)
		}
	}

	for _, v := range []float64{math.NaN(), 1e10, -1e10} {
		if _, err := DoubleToFraction(v); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%v: got %v", v, err)
		}
	}
}

func TestDoubleToUnsignedFraction(t *testing.T) {
	f, err := DoubleToUnsignedFraction(3.25)
	if err != nil || f != (UFraction{N: 13, D: 4}) {
		t.Fatalf("got %s, %v", f, err)
	}
	if _, err := DoubleToUnsignedFraction(-0.5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative: %v", err)
	}
	if (UFraction{N: 1, D: 0}).Float64() != 0 {
		t.Error("zero denominator must read as 0")
	}
}
