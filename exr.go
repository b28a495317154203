package avifhdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/mrjoshuak/go-openexr/half"
)

const exrMagic = 20000630

const (
	exrCompressionNone = 0
	exrCompressionZips = 2
	exrCompressionZip  = 3
)

const (
	exrPixelUint  = 0
	exrPixelHalf  = 1
	exrPixelFloat = 2
)

const (
	exrFlagTiled     = 0x200
	exrFlagDeep      = 0x800
	exrFlagMultipart = 0x1000
)

type exrChannel struct {
	name      string
	pixelType int32
	xSampling int32
	ySampling int32
	// targets are the RGB slots the channel feeds; Y feeds all three.
	targets []int
}

func (c exrChannel) bytesPerSample() int {
	if c.pixelType == exrPixelHalf {
		return 2
	}
	return 4
}

type exrHeader struct {
	channels       []exrChannel
	dataWindow     [4]int32
	compression    byte
	chromaticities *chromaticities
}

// DecodeEXR reads a single-part scanline OpenEXR image with no, ZIPS or ZIP compression.
// Half, float and uint channels named R, G, B or Y are read; others are skipped.
func DecodeEXR(data []byte) (*HDRImage, error) {
	r := bytes.NewReader(data)
	var pre [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &pre); err != nil {
		return nil, fmt.Errorf("%w: exr: %v", ErrInvalidArgument, err)
	}
	if pre[0] != exrMagic {
		return nil, fmt.Errorf("%w: not an OpenEXR file", ErrInvalidArgument)
	}
	if pre[1]&(exrFlagTiled|exrFlagDeep|exrFlagMultipart) != 0 {
		return nil, fmt.Errorf("%w: tiled, deep and multipart OpenEXR", ErrNotImplemented)
	}

	hdr, err := readEXRHeader(r)
	if err != nil {
		return nil, err
	}
	width := int(hdr.dataWindow[2]-hdr.dataWindow[0]) + 1
	height := int(hdr.dataWindow[3]-hdr.dataWindow[1]) + 1
	out, err := NewHDRImage(width, height)
	if err != nil {
		return nil, err
	}
	if hdr.chromaticities != nil {
		out.Primaries = matchPrimaries(*hdr.chromaticities)
	}

	blockLines := 1
	if hdr.compression == exrCompressionZip {
		blockLines = 16
	}
	offsets := make([]uint64, (height+blockLines-1)/blockLines)
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return nil, fmt.Errorf("%w: exr offsets: %v", ErrInvalidArgument, err)
	}

	for _, off := range offsets {
		if off == 0 {
			continue
		}
		if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: exr block: %v", ErrInvalidArgument, err)
		}
		var blockHead struct {
			Y    int32
			Size int32
		}
		if err := binary.Read(r, binary.LittleEndian, &blockHead); err != nil || blockHead.Size < 0 {
			return nil, fmt.Errorf("%w: exr block header", ErrInvalidArgument)
		}
		if int64(blockHead.Size) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: exr block of %d bytes exceeds input", ErrInvalidArgument, blockHead.Size)
		}
		raw, err := allocBytes(int(blockHead.Size))
		if err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("%w: exr block: %v", ErrInvalidArgument, err)
		}
		startY := int(blockHead.Y - hdr.dataWindow[1])
		if startY < 0 || startY >= height {
			return nil, fmt.Errorf("%w: exr scanline %d out of bounds", ErrInvalidArgument, blockHead.Y)
		}
		lines := min(blockLines, height-startY)
		expected := 0
		for _, ch := range hdr.channels {
			expected += width * lines * ch.bytesPerSample()
		}
		unpacked, err := exrDecompress(hdr.compression, raw, expected)
		if err != nil {
			return nil, err
		}
		if err := out.readEXRBlock(hdr.channels, startY, lines, unpacked); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readEXRHeader(r *bytes.Reader) (*exrHeader, error) {
	h := &exrHeader{}
	var hasWindow bool
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil || size < 0 || int64(size) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: exr attribute %q size", ErrInvalidArgument, name)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: exr attribute %q: %v", ErrInvalidArgument, name, err)
		}

		switch {
		case name == "channels" && typ == "chlist":
			if h.channels, err = parseEXRChannels(payload); err != nil {
				return nil, err
			}
		case name == "dataWindow" && typ == "box2i" && len(payload) == 16:
			for i := range h.dataWindow {
				h.dataWindow[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
			}
			hasWindow = true
		case name == "compression" && len(payload) == 1:
			h.compression = payload[0]
		case name == "chromaticities" && typ == "chromaticities" && len(payload) == 32:
			var c [8]float32
			for i := range c {
				c[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
			}
			h.chromaticities = &chromaticities{
				red: [2]float32{c[0], c[1]}, green: [2]float32{c[2], c[3]},
				blue: [2]float32{c[4], c[5]}, white: [2]float32{c[6], c[7]},
			}
		}
	}

	switch {
	case len(h.channels) == 0:
		return nil, fmt.Errorf("%w: exr has no R, G, B or Y channel", ErrInvalidArgument)
	case !hasWindow:
		return nil, fmt.Errorf("%w: exr missing dataWindow", ErrInvalidArgument)
	case h.compression != exrCompressionNone && h.compression != exrCompressionZips && h.compression != exrCompressionZip:
		return nil, fmt.Errorf("%w: exr compression %d", ErrNotImplemented, h.compression)
	}
	return h, nil
}

func parseEXRChannels(data []byte) ([]exrChannel, error) {
	r := bytes.NewReader(data)
	var channels []exrChannel
	hasColor := false
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		var desc struct {
			PixelType int32
			PLinear   uint8
			Reserved  [3]uint8
			XSampling int32
			YSampling int32
		}
		if err := binary.Read(r, binary.LittleEndian, &desc); err != nil {
			return nil, fmt.Errorf("%w: exr channel %q: %v", ErrInvalidArgument, name, err)
		}
		if desc.PixelType < exrPixelUint || desc.PixelType > exrPixelFloat {
			return nil, fmt.Errorf("%w: exr pixel type %d", ErrNotImplemented, desc.PixelType)
		}
		if desc.XSampling != 1 || desc.YSampling != 1 {
			return nil, fmt.Errorf("%w: subsampled exr channel %q", ErrNotImplemented, name)
		}
		ch := exrChannel{name: name, pixelType: desc.PixelType, xSampling: desc.XSampling, ySampling: desc.YSampling}
		switch strings.ToUpper(name) {
		case "R":
			ch.targets = []int{0}
		case "G":
			ch.targets = []int{1}
		case "B":
			ch.targets = []int{2}
		case "Y":
			ch.targets = []int{0, 1, 2}
		}
		hasColor = hasColor || len(ch.targets) > 0
		channels = append(channels, ch)
	}
	if !hasColor {
		return nil, nil
	}
	return channels, nil
}

func exrDecompress(compression byte, data []byte, expected int) ([]byte, error) {
	if compression == exrCompressionNone {
		if len(data) != expected {
			return nil, fmt.Errorf("%w: exr block is %d bytes, want %d", ErrInvalidArgument, len(data), expected)
		}
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: exr zip: %v", ErrInvalidArgument, err)
	}
	defer zr.Close()
	buf, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: exr zip: %v", ErrInvalidArgument, err)
	}
	if len(buf) != expected {
		return nil, fmt.Errorf("%w: exr block inflates to %d bytes, want %d", ErrInvalidArgument, len(buf), expected)
	}
	for i := 1; i < len(buf); i++ {
		buf[i] = byte(int(buf[i]) + int(buf[i-1]) - 128)
	}
	// Undo the byte interleave: first half holds even bytes, second half odd bytes.
	out := make([]byte, len(buf))
	mid := (len(buf) + 1) / 2
	for i := range out {
		if i%2 == 0 {
			out[i] = buf[i/2]
		} else {
			out[i] = buf[mid+i/2]
		}
	}
	return out, nil
}

func (h *HDRImage) readEXRBlock(channels []exrChannel, startY, lines int, data []byte) error {
	offset := 0
	for row := 0; row < lines; row++ {
		y := startY + row
		for _, ch := range channels {
			bpp := ch.bytesPerSample()
			lineBytes := h.Width * bpp
			if offset+lineBytes > len(data) {
				return fmt.Errorf("%w: exr block truncated", ErrInvalidArgument)
			}
			line := data[offset : offset+lineBytes]
			offset += lineBytes
			if len(ch.targets) == 0 {
				continue
			}
			for x := 0; x < h.Width; x++ {
				var v float32
				switch ch.pixelType {
				case exrPixelHalf:
					v = half.Half(binary.LittleEndian.Uint16(line[x*2:])).Float32()
				case exrPixelFloat:
					v = math.Float32frombits(binary.LittleEndian.Uint32(line[x*4:]))
				default:
					v = float32(binary.LittleEndian.Uint32(line[x*4:]))
				}
				i := (y*h.Width + x) * 3
				for _, t := range ch.targets {
					h.Pix[i+t] = v
				}
			}
		}
	}
	return nil
}

// EncodeEXR writes img as an uncompressed half-float RGB scanline OpenEXR file.
func EncodeEXR(w io.Writer, img *HDRImage) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: empty hdr image", ErrInvalidArgument)
	}
	var hdr bytes.Buffer
	le := binary.LittleEndian
	attr := func(name, typ string, payload []byte) {
		hdr.WriteString(name)
		hdr.WriteByte(0)
		hdr.WriteString(typ)
		hdr.WriteByte(0)
		_ = binary.Write(&hdr, le, int32(len(payload)))
		hdr.Write(payload)
	}

	var chlist bytes.Buffer
	for _, name := range []string{"B", "G", "R"} {
		chlist.WriteString(name)
		chlist.WriteByte(0)
		_ = binary.Write(&chlist, le, [4]int32{exrPixelHalf, 0, 1, 1})
	}
	chlist.WriteByte(0)

	box := func(v ...int32) []byte {
		b := make([]byte, 0, len(v)*4)
		for _, x := range v {
			b = le.AppendUint32(b, uint32(x))
		}
		return b
	}
	windowPayload := box(0, 0, int32(img.Width-1), int32(img.Height-1))
	attr("channels", "chlist", chlist.Bytes())
	attr("compression", "compression", []byte{exrCompressionNone})
	attr("dataWindow", "box2i", windowPayload)
	attr("displayWindow", "box2i", windowPayload)
	attr("lineOrder", "lineOrder", []byte{0})
	attr("pixelAspectRatio", "float", le.AppendUint32(nil, math.Float32bits(1)))
	attr("screenWindowCenter", "v2f", make([]byte, 8))
	attr("screenWindowWidth", "float", le.AppendUint32(nil, math.Float32bits(1)))
	hdr.WriteByte(0)

	lineBytes := img.Width * 2 * 3
	start := 8 + hdr.Len() + img.Height*8
	out := make([]byte, 0, start+img.Height*(8+lineBytes))
	out = le.AppendUint32(out, exrMagic)
	out = le.AppendUint32(out, 2)
	out = append(out, hdr.Bytes()...)
	for y := 0; y < img.Height; y++ {
		out = le.AppendUint64(out, uint64(start+y*(8+lineBytes)))
	}
	for y := 0; y < img.Height; y++ {
		out = le.AppendUint32(out, uint32(y))
		out = le.AppendUint32(out, uint32(lineBytes))
		for _, c := range []int{2, 1, 0} {
			for x := 0; x < img.Width; x++ {
				out = le.AppendUint16(out, uint16(half.FromFloat32(img.Pix[(y*img.Width+x)*3+c])))
			}
		}
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("%w: exr: %v", ErrUnknown, err)
	}
	return nil
}

func readNullString(r *bytes.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: exr string: %v", ErrInvalidArgument, err)
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

// matchPrimaries returns the CICP primaries closest to c, or BT.709.
func matchPrimaries(c chromaticities) ColorPrimaries {
	for _, cp := range []ColorPrimaries{ColorPrimariesBT709, ColorPrimariesBT2020, ColorPrimariesSMPTE432, ColorPrimariesSMPTE431} {
		p, _ := primariesFor(cp)
		if near(p.red, c.red) && near(p.green, c.green) && near(p.blue, c.blue) && near(p.white, c.white) {
			return cp
		}
	}
	return ColorPrimariesBT709
}

func near(a, b [2]float32) bool {
	return math.Abs(float64(a[0]-b[0])) < 0.002 && math.Abs(float64(a[1]-b[1])) < 0.002
}
