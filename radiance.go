package avifhdr

import (
	"fmt"
	"io"

	"github.com/mdouchement/hdr/codec/rgbe"
)

// DecodeRadiance reads a Radiance RGBE (.hdr) image. Sample value 1.0 is taken as SDR white.
func DecodeRadiance(r io.Reader) (*HDRImage, error) {
	m, err := rgbe.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: radiance: %v", ErrInvalidArgument, err)
	}
	return hdrFromImage(m, 1)
}

// EncodeRadiance writes img as a Radiance RGBE image.
func EncodeRadiance(w io.Writer, img *HDRImage) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: empty hdr image", ErrInvalidArgument)
	}
	if err := rgbe.Encode(w, img); err != nil {
		return fmt.Errorf("%w: radiance: %v", ErrUnknown, err)
	}
	return nil
}
