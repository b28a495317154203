// Package codec adapts AV1 (and lossless) encoders to avifhdr images.
package codec

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/vearutop/avifhdr"
)

// Encoder compresses the color planes of an image.
// Alpha is not part of the payload, it is coded as a separate monochrome image.
type Encoder interface {
	Encode(img *avifhdr.Image, o Options) ([]byte, error)
}

// Decoder restores planes into dst.
//
// dst carries the expected description (size, depth, format, range, CICP);
// planes are allocated by the decoder.
type Decoder interface {
	Decode(data []byte, dst *avifhdr.Image) error
}

// Codec is a named encoder and decoder pair.
type Codec interface {
	Name() string
	Encoder
	Decoder
}

// SpeedDefault leaves the backend speed preset untouched.
const SpeedDefault = -1

// Options control encoding.
type Options struct {
	// Quality in [0,100], 100 is visually lossless. Ignored when quantizers are set.
	Quality int
	// Speed in [0,10], slower is smaller. SpeedDefault keeps the backend preset.
	Speed int

	MinQuantizer int
	MaxQuantizer int

	// Threads is the encoder worker count, 0 means all CPUs.
	Threads int

	// Lossless requests mathematically lossless coding where the backend supports it.
	Lossless bool
}

// DefaultOptions are used by the command line tools.
func DefaultOptions() Options {
	return Options{
		Quality:      60,
		Speed:        6,
		MinQuantizer: -1,
		MaxQuantizer: -1,
	}
}

const (
	maxSpeed        = 10
	maxQuantizer    = 63
	qualityLossless = 100
)

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ClampedSpeed is the speed limited to [0,10], or SpeedDefault.
func (o Options) ClampedSpeed() int {
	if o.Speed == SpeedDefault {
		return SpeedDefault
	}
	return clamp(o.Speed, 0, maxSpeed)
}

// Quantizer maps quality [0,100] to an AV1 quantizer [0,63], lower is better.
func (o Options) Quantizer() int {
	q := clamp(o.Quality, 0, qualityLossless)
	return ((100-q)*maxQuantizer + 50) / 100
}

// QuantizerRange is the [min, max] quantizer pair after defaults and clamping.
func (o Options) QuantizerRange() (lo, hi int) {
	q := o.Quantizer()
	lo, hi = q, q
	if o.MinQuantizer >= 0 {
		lo = clamp(o.MinQuantizer, 0, maxQuantizer)
	}
	if o.MaxQuantizer >= 0 {
		hi = clamp(o.MaxQuantizer, 0, maxQuantizer)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// subsampleRatio maps a planar format to the standard library ratio.
// Monochrome is reported as 4:2:0 for backends without 4:0:0 support.
func subsampleRatio(f avifhdr.PixelFormat) (image.YCbCrSubsampleRatio, error) {
	switch f {
	case avifhdr.PixelFormatYUV444:
		return image.YCbCrSubsampleRatio444, nil
	case avifhdr.PixelFormatYUV422:
		return image.YCbCrSubsampleRatio422, nil
	case avifhdr.PixelFormatYUV420, avifhdr.PixelFormatYUV400:
		return image.YCbCrSubsampleRatio420, nil
	default:
		return 0, fmt.Errorf("%w: pixel format %d", avifhdr.ErrUnknown, f)
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

// Register makes a codec available by name, replacing any previous one.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns a registered codec.
func Lookup(name string) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: codec %q (available: %v)", avifhdr.ErrNotImplemented, name, names())
	}
	return c, nil
}

// Names lists registered codecs in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return names()
}

func names() []string {
	res := make([]string, 0, len(registry))
	for n := range registry {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// prepare checks dst and allocates its planes.
func prepare(dst *avifhdr.Image) error {
	if dst == nil || dst.Width <= 0 || dst.Height <= 0 {
		return fmt.Errorf("%w: decode target has no dimensions", avifhdr.ErrInvalidArgument)
	}
	return dst.AllocatePlanes()
}

// rgbDepth is the RGB depth used to pass img through an 8 or 16-bit image.Image.
// The reversible YCgCo transforms pin the RGB depth, which must then be 8 or 16.
func rgbDepth(img *avifhdr.Image) (int, error) {
	delta := 0
	switch img.MatrixCoefficients {
	case avifhdr.MatrixYCgCoRe:
		delta = 2
	case avifhdr.MatrixYCgCoRo:
		delta = 1
	default:
		if img.Depth > 8 {
			return 16, nil
		}
		return 8, nil
	}
	d := img.Depth - delta
	if d != 8 && d != 16 {
		return 0, fmt.Errorf("%w: %s at depth %d needs %d-bit RGB",
			avifhdr.ErrNotImplemented, img.MatrixCoefficients, img.Depth, d)
	}
	return d, nil
}

// toStdImage renders img to opaque RGB or gray for backends that only accept image.Image.
func toStdImage(img *avifhdr.Image) (image.Image, error) {
	format := avifhdr.RGBFormatRGB
	if img.YUVFormat == avifhdr.PixelFormatYUV400 {
		format = avifhdr.RGBFormatGray
	}
	depth, err := rgbDepth(img)
	if err != nil {
		return nil, err
	}
	rgb := &avifhdr.RGBImage{Width: img.Width, Height: img.Height, Depth: depth, Format: format}
	if err := img.ToRGB(rgb); err != nil {
		return nil, err
	}
	return rgb.Image()
}

// fromStdImage converts a decoded image into the color planes of dst.
func fromStdImage(m image.Image, dst *avifhdr.Image) error {
	b := m.Bounds()
	if b.Dx() != dst.Width || b.Dy() != dst.Height {
		return fmt.Errorf("%w: decoded %dx%d, expected %dx%d", avifhdr.ErrUnknown, b.Dx(), b.Dy(), dst.Width, dst.Height)
	}
	depth := 8
	switch m.(type) {
	case *image.NRGBA64, *image.RGBA64, *image.Gray16:
		depth = 16
	}
	if dst.MatrixCoefficients == avifhdr.MatrixYCgCoRe || dst.MatrixCoefficients == avifhdr.MatrixYCgCoRo {
		d, err := rgbDepth(dst)
		if err != nil {
			return err
		}
		depth = d
	}
	rgb, err := avifhdr.RGBFromImage(m, depth)
	if err != nil {
		return err
	}
	if err := prepare(dst); err != nil {
		return err
	}
	if err := dst.FromRGB(rgb); err != nil {
		return err
	}
	// Alpha travels as its own payload.
	dst.Alpha, dst.AlphaRowBytes = nil, 0
	return nil
}
