package avifhdr

import "fmt"

// ScaleOptions controls Image.Scale.
type ScaleOptions struct {
	Interpolation Interpolation
	// KeepGainMapSize leaves the gain map image untouched instead of scaling it by the same factor.
	KeepGainMapSize bool
}

// Scale resizes all planes of the image in place.
//
// Samples are resampled in code values, chroma planes at their subsampled size and alpha at
// full size. The gain map image is scaled by the same ratio unless disabled.
func (img *Image) Scale(width, height int, opts ...func(o *ScaleOptions)) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: scale to %dx%d", ErrInvalidArgument, width, height)
	}
	if err := img.validate(); err != nil {
		return err
	}
	if !img.hasPlanes() {
		return fmt.Errorf("%w: image has no planes", ErrInvalidArgument)
	}

	opt := ScaleOptions{Interpolation: InterpolationBilinear}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}

	dst := &Image{}
	dst.copyMetadata(img)
	dst.Width, dst.Height = width, height
	if err := dst.scalePlanesFrom(img, opt.Interpolation); err != nil {
		return err
	}

	var gm *GainMap
	if img.GainMap != nil {
		gm = img.GainMap.Clone()
		if gm.Image != nil && !opt.KeepGainMapSize && gm.Image.hasPlanes() {
			gw := max(int(int64(gm.Image.Width)*int64(width)/int64(img.Width)), 1)
			gh := max(int(int64(gm.Image.Height)*int64(height)/int64(img.Height)), 1)
			if err := gm.Image.Scale(gw, gh, func(o *ScaleOptions) { o.Interpolation = opt.Interpolation }); err != nil {
				return fmt.Errorf("scale gain map: %w", err)
			}
		}
	}

	Logger().Debug("scaled image",
		"from", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"to", fmt.Sprintf("%dx%d", width, height))

	img.Width, img.Height = width, height
	img.Planes, img.RowBytes = dst.Planes, dst.RowBytes
	img.Alpha, img.AlphaRowBytes = dst.Alpha, dst.AlphaRowBytes
	img.GainMap = gm
	return nil
}

func (img *Image) scalePlanesFrom(src *Image, interp Interpolation) error {
	if err := img.AllocatePlanes(); err != nil {
		return err
	}
	def := kernelForInterpolation(interp)
	maxV := float32(src.maxValue())
	resample := func(buf []byte, rowBytes, sw, sh int, dst []byte, dstRowBytes, dw, dh int) error {
		plane, err := allocFloats(sw * sh)
		if err != nil {
			return err
		}
		for y := 0; y < sh; y++ {
			for x := 0; x < sw; x++ {
				plane[y*sw+x] = float32(sample(buf, rowBytes, src.Depth, x, y))
			}
		}
		out := resamplePlane(plane, sw, sh, dw, dh, def)
		for y := 0; y < dh; y++ {
			for x := 0; x < dw; x++ {
				putSample(dst, dstRowBytes, img.Depth, x, y, int(round(clampf(out[y*dw+x], 0, maxV))))
			}
		}
		return nil
	}

	for c := 0; c < src.PlaneCount(); c++ {
		err := resample(src.Planes[c], src.RowBytes[c], src.PlaneWidth(c), src.PlaneHeight(c),
			img.Planes[c], img.RowBytes[c], img.PlaneWidth(c), img.PlaneHeight(c))
		if err != nil {
			return err
		}
	}
	if src.Alpha != nil {
		if err := img.AllocateAlpha(); err != nil {
			return err
		}
		err := resample(src.Alpha, src.AlphaRowBytes, src.Width, src.Height,
			img.Alpha, img.AlphaRowBytes, img.Width, img.Height)
		if err != nil {
			return err
		}
	}
	return nil
}
