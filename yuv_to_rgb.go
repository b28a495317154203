package avifhdr

import "fmt"

// ToRGB converts the YUV planes of img into rgb.
//
// When rgb has no pixel buffer it is sized from img and allocated with its own Depth and Format.
func (img *Image) ToRGB(rgb *RGBImage) error {
	if rgb == nil {
		return fmt.Errorf("%w: nil rgb image", ErrInvalidArgument)
	}
	if err := img.validate(); err != nil {
		return err
	}
	if !img.hasPlanes() {
		return fmt.Errorf("%w: image has no pixel planes", ErrInvalidArgument)
	}
	if rgb.Pixels == nil {
		rgb.Width, rgb.Height = img.Width, img.Height
		if err := rgb.Allocate(); err != nil {
			return err
		}
	}
	if err := rgb.validate(); err != nil {
		return err
	}
	if rgb.Width != img.Width || rgb.Height != img.Height {
		return fmt.Errorf("%w: rgb %dx%d does not match image %dx%d",
			ErrInvalidArgument, rgb.Width, rgb.Height, img.Width, img.Height)
	}
	mode, err := newYUVMode(img.MatrixCoefficients, img.ColorPrimaries)
	if err != nil {
		return err
	}
	if err := mode.check(img, rgb.Depth); err != nil {
		return err
	}

	mono := img.YUVFormat == PixelFormatYUV400
	var u, v []float32
	if !mono {
		if u, v, err = upsampleChroma(img, rgb.ChromaUpsampling); err != nil {
			return err
		}
	}

	q := newQuantizer(img.Depth, img.YUVRange)
	rgbMax := rgb.maxValue()
	alphaScale := float32(rgbMax) / float32(img.maxValue())

	parallelFor(img.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				yc := float32(img.Sample(PlaneY, x, y))
				uc, vc := q.biasUV, q.biasUV
				if !mono {
					uc, vc = u[y*img.Width+x], v[y*img.Width+x]
				}
				r, g, b := mode.inverse(q, yc, uc, vc, rgbMax)
				a := rgbMax
				if img.Alpha != nil {
					a = int(round(float32(sample(img.Alpha, img.AlphaRowBytes, img.Depth, x, y)) * alphaScale))
				}
				rgb.Set(x, y, r, g, b, a)
			}
		}
	})
	return nil
}

// inverse maps Y, U and V codes back to RGB samples in [0, rgbMax].
func (m yuvMode) inverse(q quantizer, y, u, v float32, rgbMax int) (r, g, b int) {
	if m.family == familyYCgCoRe || m.family == familyYCgCoRo {
		yi := int(round(y))
		cg := int(round(u - q.biasUV))
		co := int(round(v - q.biasUV))
		t := yi - cg>>1
		g = t + cg
		b = t - co>>1
		r = b + co
		return clampInt(r, rgbMax), clampInt(g, rgbMax), clampInt(b, rgbMax)
	}

	var rf, gf, bf float32
	if m.family == familyIdentity {
		gf = (y - q.biasY) / q.rangeY
		bf = (u - q.biasY) / q.rangeY
		rf = (v - q.biasY) / q.rangeY
	} else {
		yn := clampf((y-q.biasY)/q.rangeY, 0, 1)
		un := clampf((u-q.biasUV)/q.rangeUV, -0.5, 0.5)
		vn := clampf((v-q.biasUV)/q.rangeUV, -0.5, 0.5)
		if m.family == familyYCgCo {
			t := yn - un
			gf = yn + un
			bf = t - vn
			rf = t + vn
		} else {
			rf = yn + 2*(1-m.kr)*vn
			bf = yn + 2*(1-m.kb)*un
			gf = yn - 2*(m.kr*(1-m.kr)*vn+m.kb*(1-m.kb)*un)/m.kg
		}
	}
	maxF := float32(rgbMax)
	return int(round(clampf(rf, 0, 1) * maxF)), int(round(clampf(gf, 0, 1) * maxF)), int(round(clampf(bf, 0, 1) * maxF))
}

func clampInt(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
