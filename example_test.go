package avifhdr_test

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/vearutop/avifhdr"
)

func ExampleParseCICP() {
	c, err := avifhdr.ParseCICP("9/16/9")
	if err != nil {
		return
	}
	fmt.Println(c.ColorPrimaries, c.TransferCharacteristics, c.MatrixCoefficients)
	// Output: BT.2020 PQ BT.2020 NCL
}

func ExampleImage_FromRGB() {
	rgb, err := avifhdr.NewRGBImage(1, 1, 8, avifhdr.RGBFormatRGB)
	if err != nil {
		return
	}
	rgb.Set(0, 0, 255, 0, 0, 255)

	img := avifhdr.NewImage(1, 1, 8, avifhdr.PixelFormatYUV444)
	img.MatrixCoefficients = avifhdr.MatrixBT601
	if err := img.FromRGB(rgb); err != nil {
		return
	}
	fmt.Println(img.Sample(avifhdr.PlaneY, 0, 0), img.Sample(avifhdr.PlaneU, 0, 0), img.Sample(avifhdr.PlaneV, 0, 0))
	// Output: 76 85 255
}

func ExampleDoubleToUnsignedFraction() {
	f, err := avifhdr.DoubleToUnsignedFraction(3.25)
	if err != nil {
		return
	}
	fmt.Println(f)
	// Output: 13/4
}

func ExampleComputeGainMap() {
	sdrFile, err := os.Open(filepath.FromSlash("testdata/sdr.png"))
	if err != nil {
		return
	}
	defer sdrFile.Close()
	m, err := png.Decode(sdrFile)
	if err != nil {
		return
	}
	rgb, err := avifhdr.RGBFromImage(m, 8)
	if err != nil {
		return
	}
	base := avifhdr.NewImage(rgb.Width, rgb.Height, 8, avifhdr.PixelFormatYUV420)
	base.ColorPrimaries, base.TransferCharacteristics, base.MatrixCoefficients =
		avifhdr.ColorPrimariesBT709, avifhdr.TransferSRGB, avifhdr.MatrixBT601
	if err := base.FromRGB(rgb); err != nil {
		return
	}

	data, err := os.ReadFile(filepath.FromSlash("testdata/hdr.exr"))
	if err != nil {
		return
	}
	h, err := avifhdr.DecodeEXR(data)
	if err != nil {
		return
	}
	alt, err := avifhdr.ImageFromHDR(h, avifhdr.TransferPQ, 12)
	if err != nil {
		return
	}

	gm := avifhdr.NewGainMap()
	gm.Image = avifhdr.NewImage((base.Width+1)/2, (base.Height+1)/2, 8, avifhdr.PixelFormatYUV400)
	if err := avifhdr.ComputeGainMap(base, alt, gm); err != nil {
		return
	}
	base.GainMap = gm

	out := &avifhdr.RGBImage{Depth: 16, Format: avifhdr.RGBFormatRGB}
	_ = avifhdr.ApplyGainMap(base, gm, 1.5, avifhdr.ColorPrimariesBT709, avifhdr.TransferPQ, out, nil)
}
