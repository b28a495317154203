package avifhdr

import (
	"fmt"
	"math"
)

// ApplyOptions tunes ApplyGainMap.
type ApplyOptions struct {
	// Interpolation is the kernel used to upsample the gain map to the base size.
	Interpolation Interpolation
}

// gainMapWeight is the signed fraction of the log gain to apply for a display headroom.
// It is negative when the alternate rendition has less headroom than the base.
func gainMapWeight(headroom float32, gm *GainMap) float32 {
	baseH := float32(gm.BaseHdrHeadroom.Float64())
	altH := float32(gm.AlternateHdrHeadroom.Float64())
	if baseH == altH {
		return 0
	}
	w := clampf((headroom-baseH)/(altH-baseH), 0, 1)
	if altH < baseH {
		return -w
	}
	return w
}

// ApplyGainMap renders base through gm for a display with the given headroom (log2 stops
// above SDR white) into out, using the requested output primaries and transfer curve.
//
// A headroom of 0 tone-maps to SDR. When clli is not nil and the output is not SDR it
// receives the light level of the result. out is allocated from base dimensions when it
// has no pixel buffer; its Depth and Format must be set.
func ApplyGainMap(base *Image, gm *GainMap, headroom float32, primaries ColorPrimaries,
	transfer TransferCharacteristics, out *RGBImage, clli *ContentLightLevel, opts ...func(o *ApplyOptions),
) error {
	if base == nil || out == nil {
		return fmt.Errorf("%w: missing base image or output", ErrInvalidArgument)
	}
	if err := gm.validate(); err != nil {
		return err
	}
	if headroom < 0 || math.IsNaN(float64(headroom)) {
		return fmt.Errorf("%w: headroom %v", ErrInvalidArgument, headroom)
	}
	opt := ApplyOptions{Interpolation: InterpolationBilinear}
	for _, o := range opts {
		o(&opt)
	}

	working := gm.workingPrimaries(base.ColorPrimaries)
	baseLin, err := base.toLinear(working)
	if err != nil {
		return fmt.Errorf("base to linear: %w", err)
	}
	gains, err := upsampleGainMap(gm.Image, base.Width, base.Height, opt.Interpolation)
	if err != nil {
		return fmt.Errorf("gain map upsampling: %w", err)
	}
	gamut, ok := newGamutMatrix(working, primaries)
	if !ok {
		return fmt.Errorf("%w: no gamut conversion from %s to %s", ErrNotImplemented, working, primaries)
	}

	dst := *out
	if dst.Pixels == nil {
		dst.Width, dst.Height = base.Width, base.Height
		if err := dst.Allocate(); err != nil {
			return err
		}
	}
	if err := dst.validate(); err != nil {
		return err
	}
	if dst.Width != base.Width || dst.Height != base.Height {
		return fmt.Errorf("%w: output %dx%d does not match base %dx%d",
			ErrInvalidArgument, dst.Width, dst.Height, base.Width, base.Height)
	}

	weight := gainMapWeight(headroom, gm)
	var p gainParams
	for c := 0; c < 3; c++ {
		p.min[c] = float32(gm.GainMapMin[c].Float64())
		p.max[c] = float32(gm.GainMapMax[c].Float64())
		p.invGamma[c] = float32(1 / gm.GainMapGamma[c].Float64())
		p.baseOff[c] = float32(gm.BaseOffset[c].Float64())
		p.altOff[c] = float32(gm.AlternateOffset[c].Float64())
	}

	tf := transferFor(transfer)
	outMax := float32(dst.maxValue())
	var alphaScale float32
	if base.Alpha != nil {
		alphaScale = outMax / float32(base.maxValue())
	}
	w, h := base.Width, base.Height
	peaks := make([]float32, h)
	sums := make([]float64, h)

	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			var rowPeak float32
			var rowSum float64
			for x := 0; x < w; x++ {
				i := y*w + x
				g := rgb{r: gains.plane[0][i], g: gains.plane[0][i], b: gains.plane[0][i]}
				if gains.channels == 3 {
					g.g, g.b = gains.plane[1][i], gains.plane[2][i]
				}
				v := gamut.apply(p.apply(baseLin.at(x, y), g, weight))
				if clli != nil {
					m := max3(v.r, v.g, v.b)
					rowPeak = max(rowPeak, m)
					rowSum += float64(max(m, 0))
				}
				a := int(outMax)
				if base.Alpha != nil {
					a = int(round(float32(sample(base.Alpha, base.AlphaRowBytes, base.Depth, x, y)) * alphaScale))
				}
				dst.Set(x, y,
					int(round(clampf(tf.fromLinear(v.r), 0, 1)*outMax)),
					int(round(clampf(tf.fromLinear(v.g), 0, 1)*outMax)),
					int(round(clampf(tf.fromLinear(v.b), 0, 1)*outMax)),
					a)
			}
			peaks[y], sums[y] = rowPeak, rowSum
		}
	})

	if clli != nil && headroom != 0 {
		var peak float32
		var sum float64
		for y := 0; y < h; y++ {
			peak = max(peak, peaks[y])
			sum += sums[y]
		}
		*clli = ContentLightLevel{
			MaxCLL:  nitsToUint16(float64(peak) * sdrWhiteNits),
			MaxPALL: nitsToUint16(sum / float64(w*h) * sdrWhiteNits),
		}
	}

	Logger().Debug("gain map applied",
		"headroom", headroom, "weight", weight,
		"primaries", primaries.String(), "transfer", transfer.String(), "depth", dst.Depth)
	*out = dst
	return nil
}

type gainParams struct {
	min, max, invGamma, baseOff, altOff [3]float32
}

// apply scales a linear base pixel by the weighted gain encoded in g.
func (p gainParams) apply(e, g rgb, weight float32) rgb {
	return rgb{
		r: p.channel(0, e.r, g.r, weight),
		g: p.channel(1, e.g, g.g, weight),
		b: p.channel(2, e.b, g.b, weight),
	}
}

func (p gainParams) channel(c int, v, g, weight float32) float32 {
	g = clampf(g, 0, 1)
	if p.invGamma[c] != 1 {
		g = powf(g, p.invGamma[c])
	}
	logGain := p.min[c]*(1-g) + p.max[c]*g
	return (v+p.baseOff[c])*exp2f(logGain*weight) - p.altOff[c]
}

func nitsToUint16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}

// gainPlanes are normalized gain values at base resolution.
type gainPlanes struct {
	channels int
	plane    [3][]float32
}

func upsampleGainMap(img *Image, w, h int, interp Interpolation) (*gainPlanes, error) {
	rgbImg := &RGBImage{Depth: rgbDepthFor(img), Format: RGBFormatRGB}
	if err := img.ToRGB(rgbImg); err != nil {
		return nil, err
	}
	channels := 3
	if img.YUVFormat == PixelFormatYUV400 {
		channels = 1
	}
	maxV := float32(rgbImg.maxValue())
	n := img.Width * img.Height
	var src [3][]float32
	for c := 0; c < channels; c++ {
		buf, err := allocFloats(n)
		if err != nil {
			return nil, err
		}
		src[c] = buf
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b, _ := rgbImg.At(x, y)
			i := y*img.Width + x
			src[0][i] = float32(r) / maxV
			if channels == 3 {
				src[1][i] = float32(g) / maxV
				src[2][i] = float32(b) / maxV
			}
		}
	}
	gp := &gainPlanes{channels: channels}
	def := kernelForInterpolation(interp)
	for c := 0; c < channels; c++ {
		gp.plane[c] = resamplePlane(src[c], img.Width, img.Height, w, h, def)
	}
	return gp, nil
}
