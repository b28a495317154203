package avifhdr

import (
	"sync"
)

type rgb struct {
	r, g, b float32
}

// chromaticities are CIE 1931 xy coordinates of the primaries and white point.
type chromaticities struct {
	red, green, blue, white [2]float32
}

var (
	whiteD65 = [2]float32{0.3127, 0.3290}
	whiteC   = [2]float32{0.310, 0.316}
)

func primariesFor(cp ColorPrimaries) (chromaticities, bool) {
	switch cp {
	case ColorPrimariesBT709, ColorPrimariesUnspecified:
		return chromaticities{[2]float32{0.64, 0.33}, [2]float32{0.30, 0.60}, [2]float32{0.15, 0.06}, whiteD65}, true
	case ColorPrimariesBT470M:
		return chromaticities{[2]float32{0.67, 0.33}, [2]float32{0.21, 0.71}, [2]float32{0.14, 0.08}, whiteC}, true
	case ColorPrimariesBT470BG:
		return chromaticities{[2]float32{0.64, 0.33}, [2]float32{0.29, 0.60}, [2]float32{0.15, 0.06}, whiteD65}, true
	case ColorPrimariesBT601, ColorPrimariesSMPTE240:
		return chromaticities{[2]float32{0.630, 0.340}, [2]float32{0.310, 0.595}, [2]float32{0.155, 0.070}, whiteD65}, true
	case ColorPrimariesGenericFilm:
		return chromaticities{[2]float32{0.681, 0.319}, [2]float32{0.243, 0.692}, [2]float32{0.145, 0.049}, whiteC}, true
	case ColorPrimariesBT2020:
		return chromaticities{[2]float32{0.708, 0.292}, [2]float32{0.170, 0.797}, [2]float32{0.131, 0.046}, whiteD65}, true
	case ColorPrimariesXYZ:
		return chromaticities{[2]float32{1, 0}, [2]float32{0, 1}, [2]float32{0, 0}, [2]float32{1.0 / 3, 1.0 / 3}}, true
	case ColorPrimariesSMPTE431:
		return chromaticities{[2]float32{0.680, 0.320}, [2]float32{0.265, 0.690}, [2]float32{0.150, 0.060}, [2]float32{0.314, 0.351}}, true
	case ColorPrimariesSMPTE432:
		return chromaticities{[2]float32{0.680, 0.320}, [2]float32{0.265, 0.690}, [2]float32{0.150, 0.060}, whiteD65}, true
	case ColorPrimariesEBU3213:
		return chromaticities{[2]float32{0.630, 0.340}, [2]float32{0.295, 0.605}, [2]float32{0.155, 0.077}, whiteD65}, true
	}
	return chromaticities{}, false
}

type mat3 [3][3]float64

func (m mat3) mul(o mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

func (m mat3) inverse() (mat3, bool) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if det == 0 {
		return mat3{}, false
	}
	inv := 1 / det
	return mat3{
		{
			(m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv,
			(m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv,
			(m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv,
		},
		{
			(m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv,
			(m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv,
			(m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv,
		},
		{
			(m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv,
			(m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv,
			(m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv,
		},
	}, true
}

func xyY(c [2]float32) [3]float64 {
	x, y := float64(c[0]), float64(c[1])
	if y == 0 {
		return [3]float64{0, 0, 0}
	}
	return [3]float64{x / y, 1, (1 - x - y) / y}
}

// rgbToXYZMatrix derives the linear RGB to XYZ matrix from chromaticities.
func rgbToXYZMatrix(cp ColorPrimaries) (mat3, bool) {
	p, ok := primariesFor(cp)
	if !ok {
		return mat3{}, false
	}
	r, g, b := xyY(p.red), xyY(p.green), xyY(p.blue)
	m := mat3{
		{r[0], g[0], b[0]},
		{r[1], g[1], b[1]},
		{r[2], g[2], b[2]},
	}
	inv, ok := m.inverse()
	if !ok {
		return mat3{}, false
	}
	w := xyY(p.white)
	var s [3]float64
	for i := 0; i < 3; i++ {
		s[i] = inv[i][0]*w[0] + inv[i][1]*w[1] + inv[i][2]*w[2]
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] *= s[j]
		}
	}
	return m, true
}

type gamutKey struct {
	from, to ColorPrimaries
}

var gamutCache sync.Map

// gamutMatrix converts linear RGB between two sets of primaries.
type gamutMatrix struct {
	m        [3][3]float32
	identity bool
}

func newGamutMatrix(from, to ColorPrimaries) (gamutMatrix, bool) {
	if from == ColorPrimariesUnspecified {
		from = ColorPrimariesBT709
	}
	if to == ColorPrimariesUnspecified {
		to = ColorPrimariesBT709
	}
	if from == to {
		return gamutMatrix{identity: true}, true
	}
	key := gamutKey{from: from, to: to}
	if cached, ok := gamutCache.Load(key); ok {
		return cached.(gamutMatrix), true
	}
	src, ok := rgbToXYZMatrix(from)
	if !ok {
		return gamutMatrix{}, false
	}
	dst, ok := rgbToXYZMatrix(to)
	if !ok {
		return gamutMatrix{}, false
	}
	dstInv, ok := dst.inverse()
	if !ok {
		return gamutMatrix{}, false
	}
	m := dstInv.mul(src)
	var gm gamutMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			gm.m[i][j] = float32(m[i][j])
		}
	}
	gamutCache.Store(key, gm)
	return gm, true
}

func (g gamutMatrix) apply(v rgb) rgb {
	if g.identity {
		return v
	}
	return rgb{
		r: g.m[0][0]*v.r + g.m[0][1]*v.g + g.m[0][2]*v.b,
		g: g.m[1][0]*v.r + g.m[1][1]*v.g + g.m[1][2]*v.b,
		b: g.m[2][0]*v.r + g.m[2][1]*v.g + g.m[2][2]*v.b,
	}
}

// luminanceCoefficients returns the Y row of the RGB to XYZ matrix.
func luminanceCoefficients(cp ColorPrimaries) rgb {
	m, ok := rgbToXYZMatrix(cp)
	if !ok {
		m, _ = rgbToXYZMatrix(ColorPrimariesBT709)
	}
	return rgb{r: float32(m[1][0]), g: float32(m[1][1]), b: float32(m[1][2])}
}
