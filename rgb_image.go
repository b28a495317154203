package avifhdr

import "fmt"

// RGBImage is a packed RGB buffer used as the conversion surface for Image.
// Samples deeper than 8 bits are little-endian uint16.
type RGBImage struct {
	Width  int
	Height int
	Depth  int
	Format RGBFormat

	ChromaDownsampling ChromaDownsampling
	ChromaUpsampling   ChromaUpsampling
	// AvoidFastPath forces the reference conversion path.
	AvoidFastPath bool

	Pixels   []byte
	RowBytes int
}

// NewRGBImage allocates a tightly packed RGB buffer.
func NewRGBImage(width, height, depth int, format RGBFormat) (*RGBImage, error) {
	rgb := &RGBImage{Width: width, Height: height, Depth: depth, Format: format}
	if err := rgb.Allocate(); err != nil {
		return nil, err
	}
	return rgb, nil
}

// PixelBytes is the size of one pixel in bytes.
func (r *RGBImage) PixelBytes() int {
	n := r.Format.Channels()
	if r.Depth > 8 {
		n *= 2
	}
	return n
}

// Allocate (re)allocates Pixels with a tightly packed stride.
func (r *RGBImage) Allocate() error {
	if err := r.validateShape(); err != nil {
		return err
	}
	r.RowBytes = r.Width * r.PixelBytes()
	buf, err := allocBytes(r.RowBytes * r.Height)
	if err != nil {
		return err
	}
	r.Pixels = buf
	return nil
}

func (r *RGBImage) validateShape() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: rgb dimensions %dx%d", ErrInvalidArgument, r.Width, r.Height)
	}
	if !validDepth(r.Depth) {
		return fmt.Errorf("%w: rgb depth %d", ErrInvalidArgument, r.Depth)
	}
	if _, _, _, _, ok := r.Format.offsets(); !ok {
		return fmt.Errorf("%w: rgb format %d", ErrUnknown, r.Format)
	}
	return nil
}

func (r *RGBImage) validate() error {
	if err := r.validateShape(); err != nil {
		return err
	}
	if r.RowBytes < r.Width*r.PixelBytes() || len(r.Pixels) < r.RowBytes*(r.Height-1)+r.Width*r.PixelBytes() {
		return fmt.Errorf("%w: rgb buffer too small", ErrInvalidArgument)
	}
	return nil
}

func (r *RGBImage) maxValue() int {
	return 1<<r.Depth - 1
}

// At returns channel samples of pixel (x, y). Alpha is max when the format has none.
func (r *RGBImage) At(x, y int) (red, green, blue, alpha int) {
	ro, gOff, bo, ao, _ := r.Format.offsets()
	ch := r.Format.Channels()
	red = r.channel(x*ch+ro, y)
	green = r.channel(x*ch+gOff, y)
	blue = r.channel(x*ch+bo, y)
	alpha = r.maxValue()
	if ao >= 0 {
		alpha = r.channel(x*ch+ao, y)
	}
	return red, green, blue, alpha
}

// Set stores a pixel. Gray formats store the green sample.
func (r *RGBImage) Set(x, y, red, green, blue, alpha int) {
	ro, gOff, bo, ao, _ := r.Format.offsets()
	ch := r.Format.Channels()
	if r.Format == RGBFormatGray {
		r.setChannel(x, y, green)
		return
	}
	r.setChannel(x*ch+ro, y, red)
	r.setChannel(x*ch+gOff, y, green)
	r.setChannel(x*ch+bo, y, blue)
	if ao >= 0 {
		r.setChannel(x*ch+ao, y, alpha)
	}
}

func (r *RGBImage) channel(i, y int) int {
	return sample(r.Pixels, r.RowBytes, r.Depth, i, y)
}

func (r *RGBImage) setChannel(i, y, v int) {
	putSample(r.Pixels, r.RowBytes, r.Depth, i, y, v)
}
