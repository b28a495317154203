package avifhdr

import (
	"fmt"
	"image"
	"image/color"
)

// RGBFromImage copies a standard library image into an RGBImage of the given depth.
// Gray images produce RGBFormatGray, images with any translucent pixel produce RGBFormatRGBA.
func RGBFromImage(m image.Image, depth int) (*RGBImage, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidArgument)
	}
	b := m.Bounds()
	format := RGBFormatRGB
	switch m.(type) {
	case *image.Gray, *image.Gray16:
		format = RGBFormatGray
	default:
		if o, ok := m.(interface{ Opaque() bool }); ok && !o.Opaque() {
			format = RGBFormatRGBA
		}
	}
	out, err := NewRGBImage(b.Dx(), b.Dy(), depth, format)
	if err != nil {
		return nil, err
	}
	maxV := uint32(out.maxValue())
	scale := func(v uint16) int { return int((uint32(v)*maxV + 32767) / 65535) }
	parallelFor(out.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBA64Model.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				out.Set(x, y, scale(c.R), scale(c.G), scale(c.B), scale(c.A))
			}
		}
	})
	return out, nil
}

// Image returns the pixels as a standard library image.
// Depth 8 maps to 8-bit images, deeper samples are widened to 16 bits.
func (r *RGBImage) Image() (image.Image, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, r.Width, r.Height)
	maxV := uint32(r.maxValue())
	wide := func(v int) uint16 { return uint16((uint32(v)*65535 + maxV/2) / maxV) }

	switch {
	case r.Format == RGBFormatGray && r.Depth == 8:
		out := image.NewGray(rect)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				_, g, _, _ := r.At(x, y)
				out.Pix[y*out.Stride+x] = uint8(g)
			}
		}
		return out, nil
	case r.Format == RGBFormatGray:
		out := image.NewGray16(rect)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				_, g, _, _ := r.At(x, y)
				out.SetGray16(x, y, color.Gray16{Y: wide(g)})
			}
		}
		return out, nil
	case r.Depth == 8:
		out := image.NewNRGBA(rect)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				red, g, b, a := r.At(x, y)
				out.SetNRGBA(x, y, color.NRGBA{R: uint8(red), G: uint8(g), B: uint8(b), A: uint8(a)})
			}
		}
		return out, nil
	default:
		out := image.NewNRGBA64(rect)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				red, g, b, a := r.At(x, y)
				out.SetNRGBA64(x, y, color.NRGBA64{R: wide(red), G: wide(g), B: wide(b), A: wide(a)})
			}
		}
		return out, nil
	}
}

// ImageFromHDR quantizes linear light into a 4:4:4 image with the given transfer and depth.
// Primaries follow the HDR image, the matrix is BT.709 for 8-bit output and BT.2020 NCL otherwise.
func ImageFromHDR(h *HDRImage, transfer TransferCharacteristics, depth int) (*Image, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hdr image", ErrInvalidArgument)
	}
	rgb, err := h.ToRGB(transfer, depth)
	if err != nil {
		return nil, err
	}
	img := NewImage(h.Width, h.Height, depth, PixelFormatYUV444)
	img.ColorPrimaries = h.Primaries
	img.TransferCharacteristics = transfer
	img.MatrixCoefficients = MatrixBT709
	if depth > 8 {
		img.MatrixCoefficients = MatrixBT2020NCL
	}
	if err := img.FromRGB(rgb); err != nil {
		return nil, err
	}
	return img, nil
}
