package avifhdr

import (
	"fmt"
	"math"
)

type yuvFamily int

const (
	familyStandard yuvFamily = iota
	familyIdentity
	familyYCgCo
	familyYCgCoRe
	familyYCgCoRo
)

// yuvMode is the closed set of matrix transforms the converter can run.
type yuvMode struct {
	family     yuvFamily
	kr, kg, kb float32
}

// lumaCoefficients returns Kr and Kb for the standard matrix families.
func lumaCoefficients(mc MatrixCoefficients, cp ColorPrimaries) (kr, kb float32, ok bool) {
	switch mc {
	case MatrixBT709:
		return 0.2126, 0.0722, true
	case MatrixFCC:
		return 0.30, 0.11, true
	case MatrixBT470BG, MatrixBT601, MatrixUnspecified:
		return 0.299, 0.114, true
	case MatrixSMPTE240:
		return 0.212, 0.087, true
	case MatrixBT2020NCL:
		return 0.2627, 0.0593, true
	case MatrixChromaDerivedNCL:
		return chromaDerivedCoefficients(cp)
	}
	return 0, 0, false
}

// chromaDerivedCoefficients computes Kr and Kb from the primaries chromaticities (H.273 equations 39-44).
func chromaDerivedCoefficients(cp ColorPrimaries) (kr, kb float32, ok bool) {
	p, ok := primariesFor(cp)
	if !ok {
		p, _ = primariesFor(ColorPrimariesBT709)
	}
	rX, rY := p.red[0], p.red[1]
	gX, gY := p.green[0], p.green[1]
	bX, bY := p.blue[0], p.blue[1]
	wX, wY := p.white[0], p.white[1]
	rZ := 1 - (rX + rY)
	gZ := 1 - (gX + gY)
	bZ := 1 - (bX + bY)
	wZ := 1 - (wX + wY)
	denom := wY * (rX*(gY*bZ-bY*gZ) + gX*(bY*rZ-rY*bZ) + bX*(rY*gZ-gY*rZ))
	if denom == 0 {
		return 0, 0, false
	}
	kr = rY * (wX*(gY*bZ-bY*gZ) + wY*(bX*gZ-gX*bZ) + wZ*(gX*bY-bX*gY)) / denom
	kb = bY * (wX*(rY*gZ-gY*rZ) + wY*(gX*rZ-rX*gZ) + wZ*(rX*gY-gX*rY)) / denom
	return kr, kb, true
}

func newYUVMode(mc MatrixCoefficients, cp ColorPrimaries) (yuvMode, error) {
	switch mc {
	case MatrixIdentity:
		return yuvMode{family: familyIdentity}, nil
	case MatrixYCgCo:
		return yuvMode{family: familyYCgCo}, nil
	case MatrixYCgCoRe:
		return yuvMode{family: familyYCgCoRe}, nil
	case MatrixYCgCoRo:
		return yuvMode{family: familyYCgCoRo}, nil
	}
	kr, kb, ok := lumaCoefficients(mc, cp)
	if !ok {
		return yuvMode{}, fmt.Errorf("%w: matrix coefficients %s", ErrNotImplemented, mc)
	}
	return yuvMode{family: familyStandard, kr: kr, kg: 1 - kr - kb, kb: kb}, nil
}

// check enforces the depth, range and layout constraints of the reversible and identity transforms.
func (m yuvMode) check(img *Image, rgbDepth int) error {
	switch m.family {
	case familyIdentity:
		if img.YUVFormat != PixelFormatYUV444 {
			return fmt.Errorf("%w: identity matrix requires 444, got %s", ErrInvalidArgument, img.YUVFormat)
		}
	case familyYCgCo:
		if img.YUVRange != RangeFull {
			return fmt.Errorf("%w: YCgCo requires full range", ErrInvalidArgument)
		}
	case familyYCgCoRe, familyYCgCoRo:
		delta := 2
		if m.family == familyYCgCoRo {
			delta = 1
		}
		if img.YUVRange != RangeFull {
			return fmt.Errorf("%w: %s requires full range", ErrInvalidArgument, img.MatrixCoefficients)
		}
		if img.Depth != rgbDepth+delta {
			return fmt.Errorf("%w: %s requires YUV depth %d for RGB depth %d, got %d",
				ErrInvalidArgument, img.MatrixCoefficients, rgbDepth+delta, rgbDepth, img.Depth)
		}
	}
	return nil
}

// quantizer maps normalized values to stored sample codes for one depth and range.
type quantizer struct {
	biasY, rangeY   float32
	biasUV, rangeUV float32
	max             float32
}

func newQuantizer(depth int, r Range) quantizer {
	maxV := float32(int(1)<<depth - 1)
	q := quantizer{max: maxV, biasUV: float32(int(1) << (depth - 1))}
	if r == RangeLimited {
		shift := depth - 8
		q.biasY = float32(int(16) << shift)
		q.rangeY = float32(int(219) << shift)
		q.rangeUV = float32(int(224) << shift)
		return q
	}
	q.rangeY = maxV
	q.rangeUV = maxV
	return q
}

// round is round-half-up, as the reference converters use.
func round(v float32) float32 {
	return float32(math.Floor(float64(v) + 0.5))
}

func (q quantizer) store(v float32) int {
	v = round(v)
	if v < 0 {
		return 0
	}
	if v > q.max {
		return int(q.max)
	}
	return int(v)
}
