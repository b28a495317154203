package avifhdr

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/tiff"
)

// DecodeTIFF reads an 8 or 16-bit TIFF as linear light, removing the sRGB curve.
func DecodeTIFF(r io.Reader) (*HDRImage, error) {
	m, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: tiff: %v", ErrInvalidArgument, err)
	}
	out, err := hdrFromImage(m, 1)
	if err != nil {
		return nil, err
	}
	for i, v := range out.Pix {
		out.Pix[i] = srgbInvOetf(v)
	}
	return out, nil
}

// EncodeTIFF writes m as a deflate-compressed TIFF.
func EncodeTIFF(w io.Writer, m image.Image) error {
	if err := tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("%w: tiff: %v", ErrUnknown, err)
	}
	return nil
}
