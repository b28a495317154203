//go:build libheif

package codec

import (
	"fmt"
	"image"
	"os"

	"github.com/strukturag/libheif/go/heif"
	"github.com/vearutop/avifhdr"
)

func init() {
	Register(heifCodec{})
}

// heifCodec wraps libheif with its AV1 plugin.
//
// 8-bit 4:2:0 and 4:0:0 planes are handed over verbatim, other layouts go through 16-bit RGB
// (libheif stores those at 10 bits). Decoding copies planes when the layout matches dst.
type heifCodec struct{}

func (heifCodec) Name() string { return "heif" }

func (heifCodec) Encode(img *avifhdr.Image, o Options) ([]byte, error) {
	if _, err := subsampleRatio(img.YUVFormat); err != nil {
		return nil, err
	}

	var m image.Image
	switch {
	case img.Depth == 8 && img.YUVFormat == avifhdr.PixelFormatYUV400:
		g := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+img.Width], img.Planes[avifhdr.PlaneY][y*img.RowBytes[avifhdr.PlaneY]:])
		}
		m = g
	case img.Depth == 8 && img.YUVFormat == avifhdr.PixelFormatYUV420:
		m = &image.YCbCr{
			Y:              img.Planes[avifhdr.PlaneY],
			Cb:             img.Planes[avifhdr.PlaneU],
			Cr:             img.Planes[avifhdr.PlaneV],
			YStride:        img.RowBytes[avifhdr.PlaneY],
			CStride:        img.RowBytes[avifhdr.PlaneU],
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           image.Rect(0, 0, img.Width, img.Height),
		}
	default:
		rgb := &avifhdr.RGBImage{Width: img.Width, Height: img.Height, Depth: 16, Format: avifhdr.RGBFormatRGB}
		if err := img.ToRGB(rgb); err != nil {
			return nil, fmt.Errorf("heif: %w", err)
		}
		m64 := image.NewRGBA64(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, a := rgb.At(x, y)
				i := m64.PixOffset(x, y)
				// image.RGBA64 is alpha premultiplied.
				for k, v := range [4]int{r * a / 65535, g * a / 65535, b * a / 65535, a} {
					m64.Pix[i+2*k], m64.Pix[i+2*k+1] = byte(v>>8), byte(v)
				}
			}
		}
		m = m64
	}

	lossless := heif.LosslessModeDisabled
	if o.Lossless {
		lossless = heif.LosslessModeEnabled
	}
	ctx, err := heif.EncodeFromImage(m, heif.CompressionAV1, clamp(o.Quality, 0, 100), lossless, heif.LoggingLevelNone)
	if err != nil {
		return nil, fmt.Errorf("%w: heif encode: %v", avifhdr.ErrUnknown, err)
	}

	// The binding only writes to files.
	f, err := os.CreateTemp("", "avifhdr-*.heif")
	if err != nil {
		return nil, fmt.Errorf("%w: heif temp file: %v", avifhdr.ErrUnknown, err)
	}
	name := f.Name()
	defer os.Remove(name)
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: heif temp file: %v", avifhdr.ErrUnknown, err)
	}
	if err := ctx.WriteToFile(name); err != nil {
		return nil, fmt.Errorf("%w: heif write: %v", avifhdr.ErrUnknown, err)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: heif read back: %v", avifhdr.ErrUnknown, err)
	}
	return data, nil
}

func (heifCodec) Decode(data []byte, dst *avifhdr.Image) error {
	ctx, err := heif.NewContext()
	if err != nil {
		return fmt.Errorf("%w: heif context: %v", avifhdr.ErrOutOfMemory, err)
	}
	if err := ctx.ReadFromMemory(data); err != nil {
		return fmt.Errorf("%w: heif read: %v", avifhdr.ErrInvalidArgument, err)
	}
	handle, err := ctx.GetPrimaryImageHandle()
	if err != nil {
		return fmt.Errorf("%w: heif primary image: %v", avifhdr.ErrInvalidArgument, err)
	}
	himg, err := handle.DecodeImage(heif.ColorspaceUndefined, heif.ChromaUndefined, nil)
	if err != nil {
		return fmt.Errorf("%w: heif decode: %v", avifhdr.ErrInvalidArgument, err)
	}

	if ok, err := copyHeifPlanes(himg, dst); ok || err != nil {
		return err
	}
	m, err := himg.GetImage()
	if err != nil {
		return fmt.Errorf("%w: heif image: %v", avifhdr.ErrUnknown, err)
	}
	return fromStdImage(m, dst)
}

// copyHeifPlanes copies YCbCr planes when chroma layout and depth match dst.
func copyHeifPlanes(himg *heif.Image, dst *avifhdr.Image) (bool, error) {
	if himg.GetColorspace() != heif.ColorspaceYCbCr && himg.GetColorspace() != heif.ColorspaceMonochrome {
		return false, nil
	}
	want := map[avifhdr.PixelFormat]heif.Chroma{
		avifhdr.PixelFormatYUV444: heif.Chroma444,
		avifhdr.PixelFormatYUV422: heif.Chroma422,
		avifhdr.PixelFormatYUV420: heif.Chroma420,
		avifhdr.PixelFormatYUV400: heif.ChromaMonochrome,
	}[dst.YUVFormat]
	if himg.GetChromaFormat() != want || himg.GetBitsPerPixelRange(heif.ChannelY) != dst.Depth {
		return false, nil
	}
	if err := prepare(dst); err != nil {
		return false, err
	}
	channels := []heif.Channel{heif.ChannelY, heif.ChannelCb, heif.ChannelCr}
	for c := 0; c < dst.PlaneCount(); c++ {
		p, err := himg.GetPlane(channels[c])
		if err != nil {
			return false, fmt.Errorf("%w: heif plane %d: %v", avifhdr.ErrUnknown, c, err)
		}
		rowBytes := dst.RowBytes[c]
		for y := 0; y < dst.PlaneHeight(c); y++ {
			copy(dst.Planes[c][y*rowBytes:(y+1)*rowBytes], p.Plane[y*p.Stride:])
		}
	}
	return true, nil
}
