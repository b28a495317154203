package avifhdr

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

// ComputeOptions tunes ComputeGainMap.
type ComputeOptions struct {
	// Interpolation is the kernel used to downscale the gain map to its target size.
	Interpolation Interpolation
}

// ComputeGainMap fills gm from a base and an alternate rendition of the same picture.
//
// gm.Image describes the gain map to produce (size, depth, format); its planes are
// replaced. Offsets, gamma and UseBaseColorSpace already set on gm are honored.
// Headrooms are derived from the peak luminance of each rendition. The stored log ratio
// always runs from the rendition with less headroom to the one with more, ApplyGainMap
// signs the weight accordingly.
// On failure gm is left untouched.
func ComputeGainMap(base, alt *Image, gm *GainMap, opts ...func(o *ComputeOptions)) error {
	if base == nil || alt == nil || gm == nil {
		return fmt.Errorf("%w: missing base, alternate or gain map", ErrInvalidArgument)
	}
	if gm.Image == nil {
		return fmt.Errorf("%w: gain map image descriptor is missing", ErrInvalidArgument)
	}
	if base.Width <= 0 || base.Height <= 0 || base.Width != alt.Width || base.Height != alt.Height {
		return fmt.Errorf("%w: base %dx%d and alternate %dx%d dimensions are incompatible",
			ErrInvalidArgument, base.Width, base.Height, alt.Width, alt.Height)
	}
	gmDesc := gm.Image
	if gmDesc.Width <= 0 || gmDesc.Height <= 0 || gmDesc.Width > base.Width || gmDesc.Height > base.Height {
		return fmt.Errorf("%w: gain map size %dx%d for base %dx%d",
			ErrInvalidArgument, gmDesc.Width, gmDesc.Height, base.Width, base.Height)
	}
	if gmDesc.Depth != 8 && gmDesc.Depth != 10 && gmDesc.Depth != 12 {
		return fmt.Errorf("%w: gain map depth %d", ErrInvalidArgument, gmDesc.Depth)
	}

	opt := ComputeOptions{Interpolation: InterpolationBilinear}
	for _, o := range opts {
		o(&opt)
	}
	// Metadata is staged on a copy and committed at the end.
	out := gm.Clone()
	out.AltICC = append([]byte(nil), alt.ICC...)
	out.AltColorPrimaries = alt.ColorPrimaries
	out.AltTransferCharacteristics = alt.TransferCharacteristics
	out.AltMatrixCoefficients = alt.MatrixCoefficients
	out.AltYUVRange = alt.YUVRange
	out.AltDepth = alt.Depth
	out.AltPlaneCount = alt.PlaneCount()
	out.AltCLLI = alt.CLLI
	working := out.workingPrimaries(base.ColorPrimaries)

	for c := 0; c < 3; c++ {
		if out.GainMapGamma[c].D == 0 || out.GainMapGamma[c].N == 0 {
			out.GainMapGamma[c] = UFraction{N: 1, D: 1}
		}
		if out.BaseOffset[c].D == 0 {
			out.BaseOffset[c] = Fraction{N: 1, D: 64}
		}
		if out.AlternateOffset[c].D == 0 {
			out.AlternateOffset[c] = Fraction{N: 1, D: 64}
		}
	}

	baseLin, err := base.toLinear(working)
	if err != nil {
		return fmt.Errorf("base to linear: %w", err)
	}
	altLin, err := alt.toLinear(working)
	if err != nil {
		return fmt.Errorf("alternate to linear: %w", err)
	}

	channels := 3
	if gmDesc.YUVFormat == PixelFormatYUV400 {
		channels = 1
		for c := 1; c < 3; c++ {
			out.GainMapGamma[c] = out.GainMapGamma[0]
			out.BaseOffset[c] = out.BaseOffset[0]
			out.AlternateOffset[c] = out.AlternateOffset[0]
		}
	}

	lum := luminanceCoefficients(working)
	if out.BaseHdrHeadroom, err = contentHeadroom(baseLin, lum); err != nil {
		return err
	}
	if out.AlternateHdrHeadroom, err = contentHeadroom(altLin, lum); err != nil {
		return err
	}
	baseIsHDR := out.BaseHdrHeadroom.Float64() > out.AlternateHdrHeadroom.Float64()

	ratios, gainMin, gainMax, err := computeRatios(baseLin, altLin, out, channels, baseIsHDR)
	if err != nil {
		return err
	}
	for c := 0; c < 3; c++ {
		src := min(c, channels-1)
		if out.GainMapMin[c], err = DoubleToFraction(float64(gainMin[src])); err != nil {
			return fmt.Errorf("gain map min: %w", err)
		}
		if out.GainMapMax[c], err = DoubleToFraction(float64(gainMax[src])); err != nil {
			return fmt.Errorf("gain map max: %w", err)
		}
	}

	planes, err := encodeGainPlanes(ratios, base.Width, base.Height, channels, out, gmDesc, opt.Interpolation)
	if err != nil {
		return err
	}
	out.Image = planes

	Logger().Debug("gain map computed",
		"size", fmt.Sprintf("%dx%d", planes.Width, planes.Height),
		"channels", channels, "working", working.String(),
		"baseHeadroom", out.BaseHdrHeadroom.Float64(), "alternateHeadroom", out.AlternateHdrHeadroom.Float64())
	*gm = *out
	return nil
}

// computeRatios returns per pixel log2(hdr/sdr) with offsets, and per channel extremes.
// The alternate is the HDR rendition unless baseIsHDR is set.
func computeRatios(baseLin, altLin *linearImage, gm *GainMap, channels int, baseIsHDR bool) ([]float32, [3]float32, [3]float32, error) {
	var gainMin, gainMax [3]float32
	n := baseLin.w * baseLin.h
	ratios, err := allocFloats(n * channels)
	if err != nil {
		return nil, gainMin, gainMax, err
	}
	var baseOff, altOff [3]float32
	for c := 0; c < 3; c++ {
		baseOff[c] = float32(gm.BaseOffset[c].Float64())
		altOff[c] = float32(gm.AlternateOffset[c].Float64())
	}
	computeGain := func(base, alt, baseOff, altOff float32) float32 {
		if baseIsHDR {
			return log2f((base + baseOff) / (alt + altOff))
		}
		return log2f((alt + altOff) / (base + baseOff))
	}

	for c := 0; c < channels; c++ {
		gainMin[c] = math.MaxFloat32
		gainMax[c] = -math.MaxFloat32
	}
	for i := 0; i < n; i++ {
		b := clampRGB(rgb{r: baseLin.pix[i*3], g: baseLin.pix[i*3+1], b: baseLin.pix[i*3+2]})
		a := clampRGB(rgb{r: altLin.pix[i*3], g: altLin.pix[i*3+1], b: altLin.pix[i*3+2]})
		if channels == 1 {
			g := computeGain(max3(b.r, b.g, b.b), max3(a.r, a.g, a.b), baseOff[0], altOff[0])
			ratios[i] = g
			updateMinMax(gainMin[:1], gainMax[:1], g, g, g)
			continue
		}
		g0 := computeGain(b.r, a.r, baseOff[0], altOff[0])
		g1 := computeGain(b.g, a.g, baseOff[1], altOff[1])
		g2 := computeGain(b.b, a.b, baseOff[2], altOff[2])
		ratios[i*3], ratios[i*3+1], ratios[i*3+2] = g0, g1, g2
		updateMinMax(gainMin[:], gainMax[:], g0, g1, g2)
	}
	for c := 0; c < channels; c++ {
		if math.IsNaN(float64(gainMin[c])) || math.IsInf(float64(gainMax[c]), 0) {
			return nil, gainMin, gainMax, fmt.Errorf("%w: non-finite gain in channel %d", ErrUnknown, c)
		}
	}
	return ratios, gainMin, gainMax, nil
}

func clampRGB(v rgb) rgb {
	return rgb{r: max(v.r, 0), g: max(v.g, 0), b: max(v.b, 0)}
}

func updateMinMax(minv, maxv []float32, r, g, b float32) {
	vals := [3]float32{r, g, b}
	for c := range minv {
		minv[c] = min(minv[c], vals[c])
		maxv[c] = max(maxv[c], vals[c])
	}
}

// contentHeadroom is log2 of the brightest pixel luminance, never negative.
func contentHeadroom(l *linearImage, lum rgb) (UFraction, error) {
	var peak float32
	for i := 0; i < len(l.pix); i += 3 {
		y := lum.r*l.pix[i] + lum.g*l.pix[i+1] + lum.b*l.pix[i+2]
		peak = max(peak, y)
	}
	h := 0.0
	if peak > 1 {
		h = math.Log2(float64(peak))
	}
	f, err := DoubleToUnsignedFraction(h)
	if err != nil {
		return UFraction{}, fmt.Errorf("headroom: %w", err)
	}
	return f, nil
}

// affineMapGain normalizes a log2 gain into [0, 1] and applies the encoding gamma.
func affineMapGain(gainlog2, minlog2, maxlog2, gamma float32) float32 {
	denom := maxlog2 - minlog2
	if denom <= 0 {
		return 0
	}
	mapped := clampf((gainlog2-minlog2)/denom, 0, 1)
	if gamma != 1 {
		mapped = powf(mapped, gamma)
	}
	return mapped
}

// encodeGainPlanes normalizes, downscales and quantizes the log ratios into a gain map image.
func encodeGainPlanes(ratios []float32, w, h, channels int, gm *GainMap, desc *Image, interp Interpolation) (*Image, error) {
	var minv, maxv, gamma [3]float32
	for c := 0; c < 3; c++ {
		minv[c] = float32(gm.GainMapMin[c].Float64())
		maxv[c] = float32(gm.GainMapMax[c].Float64())
		gamma[c] = float32(gm.GainMapGamma[c].Float64())
	}

	rect := image.Rect(0, 0, w, h)
	var full image.Image
	if channels == 1 {
		g := image.NewGray16(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := affineMapGain(ratios[y*w+x], minv[0], maxv[0], gamma[0])
				g.SetGray16(x, y, color.Gray16{Y: uint16(round(v * 65535))})
			}
		}
		full = g
	} else {
		m := image.NewRGBA64(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				m.SetRGBA64(x, y, color.RGBA64{
					R: uint16(round(affineMapGain(ratios[i], minv[0], maxv[0], gamma[0]) * 65535)),
					G: uint16(round(affineMapGain(ratios[i+1], minv[1], maxv[1], gamma[1]) * 65535)),
					B: uint16(round(affineMapGain(ratios[i+2], minv[2], maxv[2], gamma[2]) * 65535)),
					A: 0xFFFF,
				})
			}
		}
		full = m
	}

	scaled := full
	if desc.Width != w || desc.Height != h {
		scaled = resize.Resize(uint(desc.Width), uint(desc.Height), full, nfntInterpolation(interp))
	}

	format := RGBFormatRGB
	if channels == 1 {
		format = RGBFormatGray
	}
	rgbImg, err := NewRGBImage(desc.Width, desc.Height, 16, format)
	if err != nil {
		return nil, err
	}
	b := scaled.Bounds()
	for y := 0; y < desc.Height; y++ {
		for x := 0; x < desc.Width; x++ {
			r, g, bl, _ := scaled.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rgbImg.Set(x, y, int(r), int(g), int(bl), 0xFFFF)
		}
	}

	out := &Image{}
	out.copyMetadata(desc)
	out.YUVRange = RangeFull
	out.ColorPrimaries = ColorPrimariesUnspecified
	out.TransferCharacteristics = TransferUnspecified
	out.MatrixCoefficients = MatrixBT601
	if channels == 3 && desc.YUVFormat == PixelFormatYUV444 {
		out.MatrixCoefficients = MatrixIdentity
	}
	if err := out.FromRGB(rgbImg); err != nil {
		return nil, fmt.Errorf("gain map to yuv: %w", err)
	}
	return out, nil
}

func nfntInterpolation(interp Interpolation) resize.InterpolationFunction {
	switch interp {
	case InterpolationNearest:
		return resize.NearestNeighbor
	case InterpolationBicubic:
		return resize.Bicubic
	case InterpolationMitchellNetravali:
		return resize.MitchellNetravali
	case InterpolationLanczos2:
		return resize.Lanczos2
	case InterpolationLanczos3:
		return resize.Lanczos3
	default:
		return resize.Bilinear
	}
}
