package avifhdr

import "fmt"

// linearImage is interleaved linear-light RGB where 1.0 is SDR white.
type linearImage struct {
	w, h int
	pix  []float32
}

func (l *linearImage) at(x, y int) rgb {
	i := (y*l.w + x) * 3
	return rgb{r: l.pix[i], g: l.pix[i+1], b: l.pix[i+2]}
}

// rgbDepthFor is the RGB depth the matrix family round-trips at for a YUV depth.
func rgbDepthFor(img *Image) int {
	switch img.MatrixCoefficients {
	case MatrixYCgCoRe:
		return img.Depth - 2
	case MatrixYCgCoRo:
		return img.Depth - 1
	}
	return img.Depth
}

// toLinear decodes img, removes its transfer curve and converts it to the working primaries.
func (img *Image) toLinear(working ColorPrimaries) (*linearImage, error) {
	rgbImg := &RGBImage{Depth: rgbDepthFor(img), Format: RGBFormatRGB}
	if err := img.ToRGB(rgbImg); err != nil {
		return nil, err
	}
	gamut, ok := newGamutMatrix(img.ColorPrimaries, working)
	if !ok {
		return nil, fmt.Errorf("%w: no gamut conversion from %s to %s", ErrNotImplemented, img.ColorPrimaries, working)
	}
	pix, err := allocFloats(img.Width * img.Height * 3)
	if err != nil {
		return nil, err
	}
	tf := transferFor(img.TransferCharacteristics)
	maxV := float32(rgbImg.maxValue())
	parallelFor(img.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := rgbImg.At(x, y)
				v := gamut.apply(rgb{
					r: tf.toLinear(float32(r) / maxV),
					g: tf.toLinear(float32(g) / maxV),
					b: tf.toLinear(float32(b) / maxV),
				})
				i := (y*img.Width + x) * 3
				pix[i], pix[i+1], pix[i+2] = v.r, v.g, v.b
			}
		}
	})
	return &linearImage{w: img.Width, h: img.Height, pix: pix}, nil
}
