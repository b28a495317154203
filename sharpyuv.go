//go:build !nosharpyuv

package avifhdr

import (
	"fmt"
	"image"

	"github.com/deepteams/webp/sharpyuv"
)

const sharpYUVAvailable = true

// sharpDownsampler runs the iterative gamma-aware converter, which produces all three planes.
type sharpDownsampler struct {
	rgb  *RGBImage
	mode yuvMode
	tf   sharpyuv.TransferFunc
}

func newSharpDownsampler(rgb *RGBImage, img *Image, mode yuvMode) (chromaDownsampler, error) {
	if img.YUVFormat != PixelFormatYUV420 {
		return nil, fmt.Errorf("%w: sharp YUV supports 420 only, got %s", ErrNotImplemented, img.YUVFormat)
	}
	if rgb.Depth != 8 || img.Depth != 8 {
		return nil, fmt.Errorf("%w: sharp YUV supports 8-bit only, got %d to %d", ErrNotImplemented, rgb.Depth, img.Depth)
	}
	if mode.family != familyStandard {
		return nil, fmt.Errorf("%w: sharp YUV with matrix %s", ErrNotImplemented, img.MatrixCoefficients)
	}
	tf := sharpyuv.TransferFunc(img.TransferCharacteristics)
	if img.TransferCharacteristics == TransferUnspecified || img.TransferCharacteristics == TransferUnknown {
		tf = sharpyuv.TransferSRGB
	}
	return sharpDownsampler{rgb: rgb, mode: mode, tf: tf}, nil
}

func (s sharpDownsampler) downsample(dst *Image, _ *fullResChroma) error {
	w, h := s.rgb.Width, s.rgb.Height
	packed, err := allocBytes(w * h * 3)
	if err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := s.rgb.At(x, y)
			i := (y*w + x) * 3
			packed[i], packed[i+1], packed[i+2] = uint8(r), uint8(g), uint8(b)
		}
	}

	cs := sharpyuv.ColorSpace{Kr: float64(s.mode.kr), Kb: float64(s.mode.kb), BitDepth: 8, Range: sharpyuv.RangeFull}
	if dst.YUVRange == RangeLimited {
		cs.Range = sharpyuv.RangeLimited
	}
	out := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	opts := &sharpyuv.Options{
		Matrix:       sharpyuv.ComputeConversionMatrix(&cs),
		TransferType: s.tf,
		SharpEnabled: true,
	}
	if err := sharpyuv.Convert(packed, w, h, w*3, out, opts); err != nil {
		return fmt.Errorf("%w: sharpyuv: %v", ErrUnknown, err)
	}

	for y := 0; y < h; y++ {
		copy(dst.Planes[PlaneY][y*dst.RowBytes[PlaneY]:], out.Y[y*out.YStride:y*out.YStride+w])
	}
	cw, ch := dst.PlaneWidth(PlaneU), dst.PlaneHeight(PlaneU)
	for y := 0; y < ch; y++ {
		copy(dst.Planes[PlaneU][y*dst.RowBytes[PlaneU]:], out.Cb[y*out.CStride:y*out.CStride+cw])
		copy(dst.Planes[PlaneV][y*dst.RowBytes[PlaneV]:], out.Cr[y*out.CStride:y*out.CStride+cw])
	}
	Logger().Debug("sharp yuv conversion", "width", w, "height", h, "transfer", s.tf)
	return nil
}
