package avifhdr

import "math"

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }
func powf(v, e float32) float32 {
	return float32(math.Pow(float64(v), float64(e)))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max3(a, b, c float32) float32 {
	return max(a, max(b, c))
}
