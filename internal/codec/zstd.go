package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vearutop/avifhdr"
)

func init() {
	Register(zstdCodec{})
}

var zstdMagic = []byte("AVZ1")

// zstdCodec stores tightly packed color planes compressed with zstd. It is lossless and
// keeps every format and depth, which makes it the reference backend in tests.
type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }

type zstdHeader struct {
	Width  uint32
	Height uint32
	Depth  uint8
	Format uint8
}

func zstdLevel(speed int) zstd.EncoderLevel {
	switch {
	case speed == SpeedDefault:
		return zstd.SpeedDefault
	case speed <= 2:
		return zstd.SpeedBestCompression
	case speed <= 5:
		return zstd.SpeedBetterCompression
	case speed <= 8:
		return zstd.SpeedDefault
	default:
		return zstd.SpeedFastest
	}
}

func (zstdCodec) Encode(img *avifhdr.Image, o Options) ([]byte, error) {
	if _, err := subsampleRatio(img.YUVFormat); err != nil {
		return nil, err
	}
	if img.Planes[avifhdr.PlaneY] == nil {
		return nil, fmt.Errorf("%w: image has no planes", avifhdr.ErrInvalidArgument)
	}

	bps := 1
	if img.Depth > 8 {
		bps = 2
	}
	var raw bytes.Buffer
	for c := 0; c < img.PlaneCount(); c++ {
		rb := img.PlaneWidth(c) * bps
		for y := 0; y < img.PlaneHeight(c); y++ {
			raw.Write(img.Planes[c][y*img.RowBytes[c] : y*img.RowBytes[c]+rb])
		}
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstdLevel(o.ClampedSpeed())),
		zstd.WithEncoderConcurrency(max(o.Threads, 1)))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", avifhdr.ErrUnknown, err)
	}
	defer enc.Close()

	var out bytes.Buffer
	out.Write(zstdMagic)
	hdr := zstdHeader{
		Width: uint32(img.Width), Height: uint32(img.Height),
		Depth: uint8(img.Depth), Format: uint8(img.YUVFormat),
	}
	if err := binary.Write(&out, binary.BigEndian, hdr); err != nil {
		return nil, fmt.Errorf("%w: zstd header: %v", avifhdr.ErrUnknown, err)
	}
	return enc.EncodeAll(raw.Bytes(), out.Bytes()), nil
}

func (zstdCodec) Decode(data []byte, dst *avifhdr.Image) error {
	if !bytes.HasPrefix(data, zstdMagic) {
		return fmt.Errorf("%w: not a zstd plane payload", avifhdr.ErrInvalidArgument)
	}
	r := bytes.NewReader(data[len(zstdMagic):])
	var hdr zstdHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return fmt.Errorf("%w: zstd header: %v", avifhdr.ErrInvalidArgument, err)
	}
	if dst.Width == 0 && dst.Height == 0 {
		dst.Width, dst.Height = int(hdr.Width), int(hdr.Height)
		dst.Depth, dst.YUVFormat = int(hdr.Depth), avifhdr.PixelFormat(hdr.Format)
	}
	if int(hdr.Width) != dst.Width || int(hdr.Height) != dst.Height ||
		int(hdr.Depth) != dst.Depth || avifhdr.PixelFormat(hdr.Format) != dst.YUVFormat {
		return fmt.Errorf("%w: payload is %dx%d %d-bit %s, expected %dx%d %d-bit %s", avifhdr.ErrInvalidArgument,
			hdr.Width, hdr.Height, hdr.Depth, avifhdr.PixelFormat(hdr.Format),
			dst.Width, dst.Height, dst.Depth, dst.YUVFormat)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("%w: zstd: %v", avifhdr.ErrUnknown, err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data[len(data)-r.Len():], nil)
	if err != nil {
		return fmt.Errorf("%w: zstd: %v", avifhdr.ErrInvalidArgument, err)
	}

	if err := prepare(dst); err != nil {
		return err
	}

	bps := 1
	if dst.Depth > 8 {
		bps = 2
	}
	off := 0
	take := func(plane []byte, rowBytes, w, h int) error {
		rb := w * bps
		if off+rb*h > len(raw) {
			return fmt.Errorf("%w: zstd payload truncated", avifhdr.ErrInvalidArgument)
		}
		for y := 0; y < h; y++ {
			copy(plane[y*rowBytes:y*rowBytes+rb], raw[off:off+rb])
			off += rb
		}
		return nil
	}
	for c := 0; c < dst.PlaneCount(); c++ {
		if err := take(dst.Planes[c], dst.RowBytes[c], dst.PlaneWidth(c), dst.PlaneHeight(c)); err != nil {
			return err
		}
	}
	if off != len(raw) {
		return fmt.Errorf("%w: zstd payload has %d trailing bytes", avifhdr.ErrInvalidArgument, len(raw)-off)
	}
	return nil
}
