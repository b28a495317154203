package avifhdr

import (
	"fmt"
	"math"
)

// Fraction is a signed rational number.
type Fraction struct {
	N int32
	D uint32
}

// UFraction is an unsigned rational number.
type UFraction struct {
	N uint32
	D uint32
}

// Float64 returns the value of f, or 0 when the denominator is zero.
func (f Fraction) Float64() float64 {
	if f.D == 0 {
		return 0
	}
	return float64(f.N) / float64(f.D)
}

// Float64 returns the value of f, or 0 when the denominator is zero.
func (f UFraction) Float64() float64 {
	if f.D == 0 {
		return 0
	}
	return float64(f.N) / float64(f.D)
}

func (f Fraction) String() string  { return fmt.Sprintf("%d/%d", f.N, f.D) }
func (f UFraction) String() string { return fmt.Sprintf("%d/%d", f.N, f.D) }

// DoubleToFraction finds the best rational approximation of v with an int32 numerator.
func DoubleToFraction(v float64) (Fraction, error) {
	const maxInt32 = uint32(math.MaxInt32)
	num, den, ok := floatToUnsignedFractionImpl(math.Abs(v), maxInt32)
	if !ok {
		return Fraction{}, fmt.Errorf("%w: %v is not representable as a signed fraction", ErrInvalidArgument, v)
	}
	n := int32(num)
	if v < 0 {
		n = -n
	}
	return Fraction{N: n, D: den}, nil
}

// DoubleToUnsignedFraction finds the best rational approximation of v with a uint32 numerator.
func DoubleToUnsignedFraction(v float64) (UFraction, error) {
	num, den, ok := floatToUnsignedFractionImpl(v, math.MaxUint32)
	if !ok {
		return UFraction{}, fmt.Errorf("%w: %v is not representable as an unsigned fraction", ErrInvalidArgument, v)
	}
	return UFraction{N: num, D: den}, nil
}

// floatToUnsignedFractionImpl walks the continued fraction expansion of v, stopping at the
// last convergent whose numerator and denominator still fit.
func floatToUnsignedFractionImpl(v float64, maxNumerator uint32) (uint32, uint32, bool) {
	if math.IsNaN(v) || v < 0 || v > float64(maxNumerator) {
		return 0, 0, false
	}
	var maxD uint64
	if v <= 1 {
		maxD = math.MaxUint32
	} else {
		maxD = uint64(math.Floor(float64(maxNumerator) / v))
	}

	den := uint32(1)
	prevD := uint32(0)
	currentV := v - math.Floor(v)
	const maxIter = 39
	for iter := 0; iter < maxIter; iter++ {
		numeratorDouble := float64(den) * v
		if numeratorDouble > float64(maxNumerator) {
			return 0, 0, false
		}
		num := uint32(math.Round(numeratorDouble))
		if numeratorDouble == float64(num) || currentV == 0 {
			return num, den, true
		}
		currentV = 1.0 / currentV
		newD := float64(prevD) + math.Floor(currentV)*float64(den)
		if newD > float64(maxD) {
			return num, den, true
		}
		prevD = den
		if newD > math.MaxUint32 {
			return 0, 0, false
		}
		den = uint32(newD)
		currentV -= math.Floor(currentV)
	}
	num := uint32(math.Round(float64(den) * v))
	return num, den, true
}
