package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vearutop/avifhdr"
	"github.com/vearutop/avifhdr/internal/codec"
	"github.com/vearutop/avifhdr/internal/container"
)

const bundleExt = ".avifhdr"

type encodeArgs struct {
	quality int
	speed   int
	codec   string
}

func addEncodeFlags(fs *flag.FlagSet) *encodeArgs {
	a := &encodeArgs{}
	fs.IntVar(&a.quality, "q", 60, "color and alpha quality (0-100)")
	fs.IntVar(&a.speed, "speed", 6, "encoder speed (0-10), -1 for the codec default")
	fs.StringVar(&a.codec, "codec", "avif", "codec name, one of "+strings.Join(codec.Names(), ", "))
	return a
}

type readArgs struct {
	depth int
	yuv   string
}

func addReadFlags(fs *flag.FlagSet) *readArgs {
	a := &readArgs{}
	fs.IntVar(&a.depth, "depth", 0, "image depth, 0 keeps the source depth")
	fs.StringVar(&a.yuv, "yuv", "444", "pixel format (444, 422, 420 or 400)")
	return a
}

func isBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), bundleExt)
}

// sniffBundle reports whether path holds a bundle regardless of its extension.
func sniffBundle(path string) bool {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false
	}
	defer f.Close()
	ok, _ := container.IsBundle(f)
	return ok
}

// load reads any supported input as a planar image, applying the CICP override when set.
// Pixel inputs are converted with the override, bundles are relabeled.
func (a *readArgs) load(path string, cicp string) (*avifhdr.Image, error) {
	var override *avifhdr.CICP
	if cicp != "" {
		c, err := avifhdr.ParseCICP(cicp)
		if err != nil {
			return nil, err
		}
		override = &c
	}

	if !isBundle(path) && !sniffBundle(path) {
		return a.loadPixels(path, override)
	}
	img, err := readBundle(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		img.ColorPrimaries, img.TransferCharacteristics, img.MatrixCoefficients =
			override.ColorPrimaries, override.TransferCharacteristics, override.MatrixCoefficients
	}
	return img, nil
}

func (a *readArgs) loadPixels(path string, override *avifhdr.CICP) (*avifhdr.Image, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", avifhdr.ErrInvalidArgument, err)
	}

	var (
		rgb       *avifhdr.RGBImage
		transfer  = avifhdr.TransferSRGB
		primaries = avifhdr.ColorPrimariesBT709
		hdr       *avifhdr.HDRImage
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		hdr, err = avifhdr.DecodeEXR(data)
		transfer = avifhdr.TransferPQ
	case ".hdr":
		hdr, err = avifhdr.DecodeRadiance(bytes.NewReader(data))
		transfer = avifhdr.TransferPQ
	case ".tif", ".tiff":
		hdr, err = avifhdr.DecodeTIFF(bytes.NewReader(data))
	default:
		var m image.Image
		if m, _, err = image.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", avifhdr.ErrInvalidArgument, path, err)
		}
		depth := 8
		switch m.(type) {
		case *image.NRGBA64, *image.RGBA64, *image.Gray16:
			depth = 16
		}
		rgb, err = avifhdr.RGBFromImage(m, depth)
	}
	if err != nil {
		return nil, err
	}
	if hdr != nil {
		primaries = hdr.Primaries
		if rgb, err = hdr.ToRGB(transfer, 16); err != nil {
			return nil, err
		}
	}

	format, err := avifhdr.ParsePixelFormat(a.yuv)
	if err != nil {
		return nil, err
	}
	depth := a.depth
	if depth == 0 {
		depth = rgb.Depth
	}
	img := avifhdr.NewImage(rgb.Width, rgb.Height, depth, format)
	img.ColorPrimaries = primaries
	img.TransferCharacteristics = transfer
	img.MatrixCoefficients = avifhdr.MatrixBT601
	if override != nil {
		img.ColorPrimaries, img.TransferCharacteristics, img.MatrixCoefficients =
			override.ColorPrimaries, override.TransferCharacteristics, override.MatrixCoefficients
	}
	if err := img.FromRGB(rgb); err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return img, nil
}

func readBundle(path string) (*avifhdr.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", avifhdr.ErrInvalidArgument, err)
	}
	defer f.Close()
	return container.Read(bufio.NewReader(f))
}

func writeBundle(path string, img *avifhdr.Image, a *encodeArgs, gainMapQuality int) error {
	if !isBundle(path) {
		return fmt.Errorf("%w: output %s must have the %s extension", avifhdr.ErrInvalidArgument, path, bundleExt)
	}
	var buf bytes.Buffer
	err := container.Write(&buf, img, func(o *container.Options) {
		o.Codec = a.codec
		o.Color.Quality, o.Color.Speed = a.quality, a.speed
		o.Alpha.Quality, o.Alpha.Speed = a.quality, a.speed
		o.GainMap.Quality, o.GainMap.Speed = gainMapQuality, a.speed
	})
	if err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// writeImage renders the base image without applying its gain map.
func writeImage(path string, img *avifhdr.Image, depth int) error {
	if depth != 8 {
		depth = 16
	}
	format := avifhdr.RGBFormatRGB
	if img.Alpha != nil {
		format = avifhdr.RGBFormatRGBA
	}
	rgb := &avifhdr.RGBImage{Width: img.Width, Height: img.Height, Depth: depth, Format: format}
	if err := img.ToRGB(rgb); err != nil {
		return err
	}
	return writeRGB(path, rgb, img.TransferCharacteristics, img.ColorPrimaries)
}

// writeApplied renders img through its gain map for the target headroom.
func writeApplied(path string, img *avifhdr.Image, headroom float32, depth int) error {
	ext := strings.ToLower(filepath.Ext(path))
	transfer := avifhdr.TransferSRGB
	if headroom > 0 || ext == ".hdr" || ext == ".exr" {
		transfer = avifhdr.TransferPQ
	}
	if depth != 8 || transfer == avifhdr.TransferPQ {
		depth = 16
	}
	primaries := img.ColorPrimaries
	if primaries == avifhdr.ColorPrimariesUnspecified {
		primaries = avifhdr.ColorPrimariesBT709
	}

	rgb := &avifhdr.RGBImage{Depth: depth, Format: avifhdr.RGBFormatRGB}
	var clli avifhdr.ContentLightLevel
	if err := avifhdr.ApplyGainMap(img, img.GainMap, headroom, primaries, transfer, rgb, &clli); err != nil {
		return fmt.Errorf("apply gain map: %w", err)
	}
	if !clli.IsZero() {
		fmt.Printf("Content light level: MaxCLL %d, MaxPALL %d\n", clli.MaxCLL, clli.MaxPALL)
	}
	return writeRGB(path, rgb, transfer, primaries)
}

func writeRGB(path string, rgb *avifhdr.RGBImage, transfer avifhdr.TransferCharacteristics, primaries avifhdr.ColorPrimaries) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hdr", ".exr":
		h, err := rgb.ToHDR(transfer, primaries)
		if err != nil {
			return err
		}
		if ext == ".hdr" {
			err = avifhdr.EncodeRadiance(&buf, h)
		} else {
			err = avifhdr.EncodeEXR(&buf, h)
		}
		if err != nil {
			return err
		}
	default:
		m, err := rgb.Image()
		if err != nil {
			return err
		}
		switch ext {
		case ".tif", ".tiff":
			err = avifhdr.EncodeTIFF(&buf, m)
		case ".jpg", ".jpeg":
			err = jpeg.Encode(&buf, m, &jpeg.Options{Quality: 95})
		case ".png":
			err = png.Encode(&buf, m)
		default:
			return fmt.Errorf("%w: unsupported output %s", avifhdr.ErrNotImplemented, path)
		}
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", avifhdr.ErrUnknown, path, err)
		}
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", avifhdr.ErrUnknown, err)
	}
	return nil
}

func printInfo(w io.Writer, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: %v", avifhdr.ErrInvalidArgument, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", avifhdr.ErrInvalidArgument, err)
	}
	b, err := container.Inspect(bufio.NewReader(f))
	if err != nil {
		return err
	}

	d := b.Image
	fmt.Fprintf(w, "File:      %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))
	fmt.Fprintf(w, "Codec:     %s\n", b.Codec)
	fmt.Fprintf(w, "Image:     %d x %d, %d-bit yuv%s, full range %v, CICP %s\n",
		d.Width, d.Height, d.Depth, d.YUVFormat, d.FullRange, d.CICP)
	if d.CLLI != nil {
		fmt.Fprintf(w, "CLLI:      %d, %d\n", d.CLLI.MaxCLL, d.CLLI.MaxPALL)
	}
	if len(d.ICC) > 0 {
		fmt.Fprintf(w, "ICC:       %s\n", humanize.Bytes(uint64(len(d.ICC))))
	}
	fmt.Fprintf(w, "Color:     %s\n", humanize.Bytes(uint64(len(b.Payload))))
	if len(b.Alpha) > 0 {
		fmt.Fprintf(w, "Alpha:     %s\n", humanize.Bytes(uint64(len(b.Alpha))))
	}

	if b.GainMap == nil {
		fmt.Fprintln(w, "Gain map:  none")
		return nil
	}
	gm := avifhdr.NewGainMap()
	if err := gm.UnmarshalISO(b.GainMap.Metadata); err != nil {
		return err
	}
	g := b.GainMap.Image
	fmt.Fprintf(w, "Gain map:  %d x %d, %d-bit yuv%s, %s\n",
		g.Width, g.Height, g.Depth, g.YUVFormat, humanize.Bytes(uint64(len(b.GainMap.Payload))))
	fmt.Fprintf(w, "Headroom:  base %s (%.3f), alternate %s (%.3f)\n",
		gm.BaseHdrHeadroom, gm.BaseHdrHeadroom.Float64(),
		gm.AlternateHdrHeadroom, gm.AlternateHdrHeadroom.Float64())
	for c := 0; c < 3; c++ {
		fmt.Fprintf(w, "Channel %d: min %s, max %s, gamma %s, offsets %s / %s\n", c,
			gm.GainMapMin[c], gm.GainMapMax[c], gm.GainMapGamma[c], gm.BaseOffset[c], gm.AlternateOffset[c])
	}
	alt := b.GainMap.Alternate
	fmt.Fprintf(w, "Alternate: CICP %s, %d-bit, %d planes, use base color space %v\n",
		alt.CICP, alt.Depth, alt.PlaneCount, gm.UseBaseColorSpace)
	return nil
}
