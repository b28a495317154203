package avifhdr

import (
	"fmt"
	"strings"
)

// PixelFormat is a YUV chroma layout.
type PixelFormat int

// Pixel formats.
const (
	PixelFormatNone PixelFormat = iota
	PixelFormatYUV444
	PixelFormatYUV422
	PixelFormatYUV420
	PixelFormatYUV400
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYUV444:
		return "444"
	case PixelFormatYUV422:
		return "422"
	case PixelFormatYUV420:
		return "420"
	case PixelFormatYUV400:
		return "400"
	default:
		return "none"
	}
}

// ParsePixelFormat accepts "444", "422", "420" or "400" (an optional "yuv" prefix is ignored).
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "yuv") {
	case "444":
		return PixelFormatYUV444, nil
	case "422":
		return PixelFormatYUV422, nil
	case "420":
		return PixelFormatYUV420, nil
	case "400":
		return PixelFormatYUV400, nil
	}
	return PixelFormatNone, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidArgument, s)
}

// chromaShift returns log2 of the horizontal and vertical chroma subsampling factors.
// Monochrome reports 4:2:0 shifts since its placeholder chroma planes are allocated at that size.
func (f PixelFormat) chromaShift() (sx, sy int, ok bool) {
	switch f {
	case PixelFormatYUV444:
		return 0, 0, true
	case PixelFormatYUV422:
		return 1, 0, true
	case PixelFormatYUV420, PixelFormatYUV400:
		return 1, 1, true
	}
	return 0, 0, false
}

// Range is the YUV quantization range.
type Range int

// Ranges.
const (
	RangeLimited Range = iota
	RangeFull
)

func (r Range) String() string {
	if r == RangeFull {
		return "full"
	}
	return "limited"
}

// RGBFormat is the channel order of packed RGB samples.
type RGBFormat int

// RGB formats.
const (
	RGBFormatRGB RGBFormat = iota
	RGBFormatRGBA
	RGBFormatARGB
	RGBFormatBGR
	RGBFormatBGRA
	RGBFormatABGR
	RGBFormatGray
)

// Channels returns the number of samples per pixel.
func (f RGBFormat) Channels() int {
	switch f {
	case RGBFormatRGB, RGBFormatBGR:
		return 3
	case RGBFormatGray:
		return 1
	default:
		return 4
	}
}

// HasAlpha reports whether the format carries an alpha channel.
func (f RGBFormat) HasAlpha() bool {
	return f.Channels() == 4
}

// offsets returns channel offsets of red, green, blue and alpha (-1 when absent).
func (f RGBFormat) offsets() (r, g, b, a int, ok bool) {
	switch f {
	case RGBFormatRGB:
		return 0, 1, 2, -1, true
	case RGBFormatRGBA:
		return 0, 1, 2, 3, true
	case RGBFormatARGB:
		return 1, 2, 3, 0, true
	case RGBFormatBGR:
		return 2, 1, 0, -1, true
	case RGBFormatBGRA:
		return 2, 1, 0, 3, true
	case RGBFormatABGR:
		return 3, 2, 1, 0, true
	case RGBFormatGray:
		return 0, 0, 0, -1, true
	}
	return 0, 0, 0, 0, false
}

func (f RGBFormat) String() string {
	switch f {
	case RGBFormatRGB:
		return "RGB"
	case RGBFormatRGBA:
		return "RGBA"
	case RGBFormatARGB:
		return "ARGB"
	case RGBFormatBGR:
		return "BGR"
	case RGBFormatBGRA:
		return "BGRA"
	case RGBFormatABGR:
		return "ABGR"
	case RGBFormatGray:
		return "Gray"
	}
	return "unknown"
}

// ChromaDownsampling selects how chroma is reduced when converting RGB to subsampled YUV.
type ChromaDownsampling int

// Chroma downsampling policies.
const (
	ChromaDownsamplingAutomatic ChromaDownsampling = iota
	ChromaDownsamplingFastest
	ChromaDownsamplingBestQuality
	ChromaDownsamplingAverage
	ChromaDownsamplingSharpYUV
)

func (c ChromaDownsampling) String() string {
	switch c {
	case ChromaDownsamplingAutomatic:
		return "automatic"
	case ChromaDownsamplingFastest:
		return "fastest"
	case ChromaDownsamplingBestQuality:
		return "best-quality"
	case ChromaDownsamplingAverage:
		return "average"
	case ChromaDownsamplingSharpYUV:
		return "sharpyuv"
	}
	return "unknown"
}

// ChromaUpsampling selects how chroma is expanded when converting subsampled YUV to RGB.
type ChromaUpsampling int

// Chroma upsampling policies.
const (
	ChromaUpsamplingAutomatic ChromaUpsampling = iota
	ChromaUpsamplingFastest
	ChromaUpsamplingBestQuality
	ChromaUpsamplingNearest
	ChromaUpsamplingBilinear
)

// ContentLightLevel holds CTA-861.3 light level information in nits.
type ContentLightLevel struct {
	MaxCLL  uint16
	MaxPALL uint16
}

// IsZero reports whether no light level is set.
func (c ContentLightLevel) IsZero() bool {
	return c.MaxCLL == 0 && c.MaxPALL == 0
}

func validDepth(d int) bool {
	return d == 8 || d == 10 || d == 12 || d == 16
}
