package container

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vearutop/avifhdr"
	"github.com/vearutop/avifhdr/internal/codec"
)

// Options control Write.
type Options struct {
	// Codec is a name registered in internal/codec.
	Codec   string
	Color   codec.Options
	Alpha   codec.Options
	GainMap codec.Options
}

// DefaultOptions encode with the avif codec at the codec defaults.
func DefaultOptions() Options {
	return Options{
		Codec:   "avif",
		Color:   codec.DefaultOptions(),
		Alpha:   codec.DefaultOptions(),
		GainMap: codec.DefaultOptions(),
	}
}

// Encode codes the image planes, alpha and gain map into a bundle.
func Encode(img *avifhdr.Image, opts ...func(o *Options)) (*Bundle, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", avifhdr.ErrInvalidArgument)
	}
	o := DefaultOptions()
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	c, err := codec.Lookup(o.Codec)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Format: BundleFormat, Codec: c.Name(), Image: describe(img)}
	if b.Payload, err = c.Encode(img, o.Color); err != nil {
		return nil, fmt.Errorf("encode color: %w", err)
	}
	if img.Alpha != nil {
		alpha, err := alphaImage(img)
		if err != nil {
			return nil, err
		}
		if b.Alpha, err = c.Encode(alpha, o.Alpha); err != nil {
			return nil, fmt.Errorf("encode alpha: %w", err)
		}
	}

	if gm := img.GainMap; gm != nil {
		if gm.Image == nil {
			return nil, fmt.Errorf("%w: gain map without image", avifhdr.ErrInvalidArgument)
		}
		meta, err := gm.MarshalISO()
		if err != nil {
			return nil, fmt.Errorf("encode gain map metadata: %w", err)
		}
		payload, err := c.Encode(gm.Image, o.GainMap)
		if err != nil {
			return nil, fmt.Errorf("encode gain map: %w", err)
		}
		b.GainMap = &GainMapEntry{
			Image:     describe(gm.Image),
			Payload:   payload,
			Metadata:  meta,
			Alternate: describeAlternate(gm),
		}
	}

	avifhdr.Logger().Info("bundle encoded",
		"codec", b.Codec, "width", img.Width, "height", img.Height,
		"bytes", b.PayloadSize(), "gainMap", b.GainMap != nil)
	return b, nil
}

// Decode restores the image described by b.
func Decode(b *Bundle) (*avifhdr.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	c, err := codec.Lookup(b.Codec)
	if err != nil {
		return nil, err
	}

	img, err := b.Image.image()
	if err != nil {
		return nil, err
	}
	if err := c.Decode(b.Payload, img); err != nil {
		return nil, fmt.Errorf("decode color: %w", err)
	}
	if len(b.Alpha) > 0 {
		alpha := avifhdr.NewImage(img.Width, img.Height, img.Depth, avifhdr.PixelFormatYUV400)
		if err := c.Decode(b.Alpha, alpha); err != nil {
			return nil, fmt.Errorf("decode alpha: %w", err)
		}
		img.Alpha, img.AlphaRowBytes = alpha.Planes[avifhdr.PlaneY], alpha.RowBytes[avifhdr.PlaneY]
	}

	if e := b.GainMap; e != nil {
		gm := avifhdr.NewGainMap()
		if err := gm.UnmarshalISO(e.Metadata); err != nil {
			return nil, fmt.Errorf("decode gain map metadata: %w", err)
		}
		if err := e.Alternate.applyTo(gm); err != nil {
			return nil, err
		}
		if gm.Image, err = e.Image.image(); err != nil {
			return nil, err
		}
		if err := c.Decode(e.Payload, gm.Image); err != nil {
			return nil, fmt.Errorf("decode gain map: %w", err)
		}
		img.GainMap = gm
	}
	return img, nil
}

// Write encodes img and writes the bundle manifest to w.
func Write(w io.Writer, img *avifhdr.Image, opts ...func(o *Options)) error {
	b, err := Encode(img, opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("%w: write bundle: %v", avifhdr.ErrUnknown, err)
	}
	return nil
}

// Inspect reads a bundle manifest without decoding pixels.
func Inspect(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: read bundle: %v", avifhdr.ErrInvalidArgument, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Read reads and decodes a bundle.
func Read(r io.Reader) (*avifhdr.Image, error) {
	b, err := Inspect(r)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// alphaImage wraps the alpha plane as a full range monochrome image.
func alphaImage(img *avifhdr.Image) (*avifhdr.Image, error) {
	a := avifhdr.NewImage(img.Width, img.Height, img.Depth, avifhdr.PixelFormatYUV400)
	a.MatrixCoefficients = avifhdr.MatrixBT601
	if err := a.AllocatePlanes(); err != nil {
		return nil, err
	}
	rb := a.RowBytes[avifhdr.PlaneY]
	for y := 0; y < img.Height; y++ {
		copy(a.Planes[avifhdr.PlaneY][y*rb:(y+1)*rb], img.Alpha[y*img.AlphaRowBytes:])
	}
	return a, nil
}
