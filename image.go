package avifhdr

import (
	"encoding/binary"
	"fmt"
)

// Plane indices.
const (
	PlaneY = 0
	PlaneU = 1
	PlaneV = 2
)

// Image is a planar YUV still image with its color description and optional gain map.
//
// Samples deeper than 8 bits are stored as little-endian uint16.
// Planes are owned by the Image and are never shared with another Image.
type Image struct {
	Width     int
	Height    int
	Depth     int
	YUVFormat PixelFormat
	YUVRange  Range

	ColorPrimaries          ColorPrimaries
	TransferCharacteristics TransferCharacteristics
	MatrixCoefficients      MatrixCoefficients
	CLLI                    ContentLightLevel
	ICC                     []byte

	Planes   [3][]byte
	RowBytes [3]int

	// Alpha is optional, full resolution, same depth as the color planes, always full range.
	Alpha         []byte
	AlphaRowBytes int

	GainMap *GainMap
}

// NewImage returns an image description without planes.
func NewImage(width, height, depth int, format PixelFormat) *Image {
	return &Image{
		Width:                   width,
		Height:                  height,
		Depth:                   depth,
		YUVFormat:               format,
		YUVRange:                RangeFull,
		ColorPrimaries:          ColorPrimariesUnspecified,
		TransferCharacteristics: TransferUnspecified,
		MatrixCoefficients:      MatrixUnspecified,
	}
}

// PlaneCount is 1 for monochrome images and 3 otherwise.
func (img *Image) PlaneCount() int {
	if img.YUVFormat == PixelFormatYUV400 {
		return 1
	}
	return 3
}

func (img *Image) bytesPerSample() int {
	if img.Depth > 8 {
		return 2
	}
	return 1
}

func (img *Image) maxValue() int {
	return 1<<img.Depth - 1
}

// PlaneWidth returns the width of plane c in samples.
func (img *Image) PlaneWidth(c int) int {
	if c == PlaneY {
		return img.Width
	}
	sx, _, _ := img.YUVFormat.chromaShift()
	return (img.Width + sx) >> sx
}

// PlaneHeight returns the height of plane c in rows.
func (img *Image) PlaneHeight(c int) int {
	if c == PlaneY {
		return img.Height
	}
	_, sy, _ := img.YUVFormat.chromaShift()
	return (img.Height + sy) >> sy
}

func (img *Image) validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: image dimensions %dx%d", ErrInvalidArgument, img.Width, img.Height)
	}
	if !validDepth(img.Depth) {
		return fmt.Errorf("%w: image depth %d", ErrInvalidArgument, img.Depth)
	}
	if _, _, ok := img.YUVFormat.chromaShift(); !ok {
		return fmt.Errorf("%w: pixel format %d", ErrUnknown, img.YUVFormat)
	}
	return nil
}

// AllocatePlanes allocates tightly packed Y, U and V planes.
// Monochrome images get 4:2:0 sized chroma planes filled with mid-gray.
func (img *Image) AllocatePlanes() error {
	if err := img.validate(); err != nil {
		return err
	}
	var planes [3][]byte
	var rowBytes [3]int
	for c := 0; c < 3; c++ {
		rb := img.PlaneWidth(c) * img.bytesPerSample()
		buf, err := allocBytes(rb * img.PlaneHeight(c))
		if err != nil {
			return err
		}
		planes[c], rowBytes[c] = buf, rb
	}
	img.Planes, img.RowBytes = planes, rowBytes
	if img.YUVFormat == PixelFormatYUV400 {
		mid := 1 << (img.Depth - 1)
		img.fillPlane(PlaneU, mid)
		img.fillPlane(PlaneV, mid)
	}
	return nil
}

// AllocateAlpha allocates a full resolution alpha plane initialized to opaque.
func (img *Image) AllocateAlpha() error {
	if err := img.validate(); err != nil {
		return err
	}
	rb := img.Width * img.bytesPerSample()
	buf, err := allocBytes(rb * img.Height)
	if err != nil {
		return err
	}
	img.Alpha, img.AlphaRowBytes = buf, rb
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			putSample(img.Alpha, img.AlphaRowBytes, img.Depth, x, y, img.maxValue())
		}
	}
	return nil
}

// FreePlanes drops the pixel planes, keeping the description.
func (img *Image) FreePlanes() {
	img.Planes = [3][]byte{}
	img.RowBytes = [3]int{}
	img.Alpha = nil
	img.AlphaRowBytes = 0
}

func (img *Image) hasPlanes() bool {
	n := img.PlaneCount()
	for c := 0; c < n; c++ {
		if img.Planes[c] == nil || img.RowBytes[c] < img.PlaneWidth(c)*img.bytesPerSample() ||
			len(img.Planes[c]) < img.RowBytes[c]*(img.PlaneHeight(c)-1)+img.PlaneWidth(c)*img.bytesPerSample() {
			return false
		}
	}
	return true
}

func (img *Image) fillPlane(c, v int) {
	for y := 0; y < img.PlaneHeight(c); y++ {
		for x := 0; x < img.PlaneWidth(c); x++ {
			img.SetSample(c, x, y, v)
		}
	}
}

// Sample returns the value of plane c at (x, y).
func (img *Image) Sample(c, x, y int) int {
	return sample(img.Planes[c], img.RowBytes[c], img.Depth, x, y)
}

// SetSample stores v into plane c at (x, y).
func (img *Image) SetSample(c, x, y, v int) {
	putSample(img.Planes[c], img.RowBytes[c], img.Depth, x, y, v)
}

func sample(buf []byte, rowBytes, depth, x, y int) int {
	if depth > 8 {
		return int(binary.LittleEndian.Uint16(buf[y*rowBytes+2*x:]))
	}
	return int(buf[y*rowBytes+x])
}

func putSample(buf []byte, rowBytes, depth, x, y, v int) {
	if depth > 8 {
		binary.LittleEndian.PutUint16(buf[y*rowBytes+2*x:], uint16(v))
		return
	}
	buf[y*rowBytes+x] = uint8(v)
}

// copyMetadata copies everything but pixels and gain map from src.
func (img *Image) copyMetadata(src *Image) {
	img.Width, img.Height = src.Width, src.Height
	img.Depth = src.Depth
	img.YUVFormat = src.YUVFormat
	img.YUVRange = src.YUVRange
	img.ColorPrimaries = src.ColorPrimaries
	img.TransferCharacteristics = src.TransferCharacteristics
	img.MatrixCoefficients = src.MatrixCoefficients
	img.CLLI = src.CLLI
	img.ICC = append([]byte(nil), src.ICC...)
}

// Clone returns a deep copy of the image, including planes and gain map.
func (img *Image) Clone() *Image {
	c := &Image{}
	c.copyMetadata(img)
	for i := range img.Planes {
		c.Planes[i] = append([]byte(nil), img.Planes[i]...)
	}
	c.RowBytes = img.RowBytes
	c.Alpha = append([]byte(nil), img.Alpha...)
	c.AlphaRowBytes = img.AlphaRowBytes
	if img.GainMap != nil {
		c.GainMap = img.GainMap.Clone()
	}
	return c
}
