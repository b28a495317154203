package avifhdr

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
)

// HDRImage is interleaved linear-light RGB where 1.0 is SDR white.
// It implements hdr.Image so it can be handed to the Radiance encoder directly.
type HDRImage struct {
	Width     int
	Height    int
	Pix       []float32
	Primaries ColorPrimaries
}

// NewHDRImage allocates a black image in BT.709 primaries.
func NewHDRImage(w, h int) (*HDRImage, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: hdr dimensions %dx%d", ErrInvalidArgument, w, h)
	}
	pix, err := allocFloats(w * h * 3)
	if err != nil {
		return nil, err
	}
	return &HDRImage{Width: w, Height: h, Pix: pix, Primaries: ColorPrimariesBT709}, nil
}

func (h *HDRImage) rgbAt(x, y int) rgb {
	x, y = clampIndex(x, h.Width), clampIndex(y, h.Height)
	i := (y*h.Width + x) * 3
	return rgb{r: h.Pix[i], g: h.Pix[i+1], b: h.Pix[i+2]}
}

// ColorModel implements image.Image.
func (h *HDRImage) ColorModel() color.Model { return hdrcolor.RGBModel }

// Bounds implements image.Image.
func (h *HDRImage) Bounds() image.Rectangle { return image.Rect(0, 0, h.Width, h.Height) }

// At implements image.Image.
func (h *HDRImage) At(x, y int) color.Color { return h.HDRAt(x, y) }

// HDRAt implements hdr.Image.
func (h *HDRImage) HDRAt(x, y int) hdrcolor.Color {
	v := h.rgbAt(x, y)
	return hdrcolor.RGB{R: float64(v.r), G: float64(v.g), B: float64(v.b)}
}

// Size implements hdr.Image.
func (h *HDRImage) Size() int { return h.Width * h.Height }

// ToRGB encodes the image with a transfer curve at the given depth.
// Values above what the curve can carry are clipped.
func (h *HDRImage) ToRGB(transfer TransferCharacteristics, depth int) (*RGBImage, error) {
	out, err := NewRGBImage(h.Width, h.Height, depth, RGBFormatRGB)
	if err != nil {
		return nil, err
	}
	tf := transferFor(transfer)
	maxV := float32(out.maxValue())
	enc := func(v float32) int { return int(round(clampf(tf.fromLinear(max(v, 0)), 0, 1) * maxV)) }
	parallelFor(h.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < h.Width; x++ {
				v := h.rgbAt(x, y)
				out.Set(x, y, enc(v.r), enc(v.g), enc(v.b), int(maxV))
			}
		}
	})
	return out, nil
}

// PeakHeadroom is log2 of the brightest channel value, or 0 for SDR content.
func (h *HDRImage) PeakHeadroom() float64 {
	var peak float32
	for _, v := range h.Pix {
		peak = max(peak, v)
	}
	if peak <= 1 {
		return 0
	}
	return float64(log2f(peak))
}

// hdrFromImage copies any image into linear light, reading float samples when it is an hdr.Image.
func hdrFromImage(m image.Image, scale float32) (*HDRImage, error) {
	b := m.Bounds()
	out, err := NewHDRImage(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	hm, isHDR := m.(interface{ HDRAt(x, y int) hdrcolor.Color })
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			i := (y*out.Width + x) * 3
			if isHDR {
				r, g, bl, _ := hm.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = float32(r)*scale, float32(g)*scale, float32(bl)*scale
				continue
			}
			r, g, bl, _ := m.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[i] = float32(r) / 65535 * scale
			out.Pix[i+1] = float32(g) / 65535 * scale
			out.Pix[i+2] = float32(bl) / 65535 * scale
		}
	}
	return out, nil
}

// ToHDR decodes the transfer curve of rgb into linear light.
func (r *RGBImage) ToHDR(transfer TransferCharacteristics, primaries ColorPrimaries) (*HDRImage, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	out, err := NewHDRImage(r.Width, r.Height)
	if err != nil {
		return nil, err
	}
	out.Primaries = primaries
	tf := transferFor(transfer)
	maxV := float32(r.maxValue())
	parallelFor(r.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < r.Width; x++ {
				red, g, b, _ := r.At(x, y)
				i := (y*r.Width + x) * 3
				out.Pix[i] = tf.toLinear(float32(red) / maxV)
				out.Pix[i+1] = tf.toLinear(float32(g) / maxV)
				out.Pix[i+2] = tf.toLinear(float32(b) / maxV)
			}
		}
	})
	return out, nil
}
