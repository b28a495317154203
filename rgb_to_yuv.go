package avifhdr

import "fmt"

// SharpYUVAvailable reports whether ChromaDownsamplingSharpYUV is compiled in.
func SharpYUVAvailable() bool { return sharpYUVAvailable }

// FromRGB converts rgb into freshly allocated YUV planes of img.
//
// The image depth, format, range and CICP description select the conversion.
// Zero image dimensions are taken from rgb. An alpha plane is allocated when rgb has alpha.
// On failure img keeps its previous planes.
func (img *Image) FromRGB(rgb *RGBImage) error {
	if rgb == nil {
		return fmt.Errorf("%w: nil rgb image", ErrInvalidArgument)
	}
	if err := rgb.validate(); err != nil {
		return err
	}
	if img.Width == 0 && img.Height == 0 {
		img.Width, img.Height = rgb.Width, rgb.Height
	}
	if img.Width != rgb.Width || img.Height != rgb.Height {
		return fmt.Errorf("%w: rgb %dx%d does not match image %dx%d",
			ErrInvalidArgument, rgb.Width, rgb.Height, img.Width, img.Height)
	}
	if err := img.validate(); err != nil {
		return err
	}
	mode, err := newYUVMode(img.MatrixCoefficients, img.ColorPrimaries)
	if err != nil {
		return err
	}
	if err := mode.check(img, rgb.Depth); err != nil {
		return err
	}

	var ds chromaDownsampler
	if img.YUVFormat == PixelFormatYUV422 || img.YUVFormat == PixelFormatYUV420 {
		if ds, err = newChromaDownsampler(rgb.ChromaDownsampling, rgb, img, mode); err != nil {
			return err
		}
	}

	out := &Image{}
	out.copyMetadata(img)
	if err := out.AllocatePlanes(); err != nil {
		return err
	}
	if rgb.Format.HasAlpha() {
		if err := out.AllocateAlpha(); err != nil {
			return err
		}
	}

	Logger().Debug("rgb to yuv",
		"width", img.Width, "height", img.Height,
		"rgbDepth", rgb.Depth, "rgbFormat", rgb.Format.String(),
		"yuvDepth", img.Depth, "yuvFormat", img.YUVFormat.String(), "range", img.YUVRange.String(),
		"matrix", img.MatrixCoefficients.String(), "downsampling", rgb.ChromaDownsampling.String())

	switch {
	case mode.family == familyIdentity && img.YUVRange == RangeFull && img.Depth == rgb.Depth && !rgb.AvoidFastPath:
		out.identityCopy(rgb)
	default:
		chroma, err := out.fromRGBReference(rgb, mode, img.YUVFormat == PixelFormatYUV444)
		if err != nil {
			return err
		}
		if ds != nil {
			if err := ds.downsample(out, chroma); err != nil {
				return err
			}
		}
	}
	if out.Alpha != nil {
		out.importAlpha(rgb)
	}

	img.Planes, img.RowBytes = out.Planes, out.RowBytes
	img.Alpha, img.AlphaRowBytes = out.Alpha, out.AlphaRowBytes
	return nil
}

// identityCopy moves G, B and R into Y, U and V without arithmetic.
func (img *Image) identityCopy(rgb *RGBImage) {
	parallelFor(img.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := rgb.At(x, y)
				img.SetSample(PlaneY, x, y, g)
				img.SetSample(PlaneU, x, y, b)
				img.SetSample(PlaneV, x, y, r)
			}
		}
	})
}

// fromRGBReference writes Y and returns unrounded full resolution chroma codes.
// When direct is set (444) chroma is written straight into the planes instead.
func (img *Image) fromRGBReference(rgb *RGBImage, mode yuvMode, direct bool) (*fullResChroma, error) {
	q := newQuantizer(img.Depth, img.YUVRange)
	rgbMax := float32(rgb.maxValue())
	mono := img.YUVFormat == PixelFormatYUV400

	var c *fullResChroma
	if !direct && !mono {
		n := img.Width * img.Height
		u, err := allocFloats(n)
		if err != nil {
			return nil, err
		}
		v, err := allocFloats(n)
		if err != nil {
			return nil, err
		}
		c = &fullResChroma{u: u, v: v, w: img.Width, h: img.Height}
	}

	parallelFor(img.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := rgb.At(x, y)
				yy, u, v := mode.forward(q, r, g, b, rgbMax)
				img.SetSample(PlaneY, x, y, q.store(yy))
				switch {
				case mono:
				case c != nil:
					c.u[y*img.Width+x] = u
					c.v[y*img.Width+x] = v
				default:
					storeChroma(img, q, x, y, u, v)
				}
			}
		}
	})
	return c, nil
}

// forward maps one RGB sample to unrounded Y, U and V codes.
func (m yuvMode) forward(q quantizer, r, g, b int, rgbMax float32) (y, u, v float32) {
	switch m.family {
	case familyYCgCoRe, familyYCgCoRo:
		co := r - b
		t := b + co>>1
		cg := g - t
		return float32(t + cg>>1), float32(cg) + q.biasUV, float32(co) + q.biasUV
	case familyIdentity:
		return float32(g)/rgbMax*q.rangeY + q.biasY,
			float32(b)/rgbMax*q.rangeY + q.biasY,
			float32(r)/rgbMax*q.rangeY + q.biasY
	}

	rf, gf, bf := float32(r)/rgbMax, float32(g)/rgbMax, float32(b)/rgbMax
	var yn, un, vn float32
	if m.family == familyYCgCo {
		yn = 0.5*gf + 0.25*(rf+bf)
		un = 0.5*gf - 0.25*(rf+bf)
		vn = 0.5 * (rf - bf)
	} else {
		yn = m.kr*rf + m.kg*gf + m.kb*bf
		un = (bf - yn) / (2 * (1 - m.kb))
		vn = (rf - yn) / (2 * (1 - m.kr))
	}
	return yn*q.rangeY + q.biasY, un*q.rangeUV + q.biasUV, vn*q.rangeUV + q.biasUV
}

func (img *Image) importAlpha(rgb *RGBImage) {
	scale := float32(img.maxValue()) / float32(rgb.maxValue())
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			_, _, _, a := rgb.At(x, y)
			putSample(img.Alpha, img.AlphaRowBytes, img.Depth, x, y, int(round(float32(a)*scale)))
		}
	}
}
