package avifhdr

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestRGBFromImage(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	m.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 128, B: 0, A: 255})
	m.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	rgb, err := RGBFromImage(m, 8)
	if err != nil {
		t.Fatal(err)
	}
	if rgb.Format != RGBFormatRGBA {
		t.Fatalf("format %s", rgb.Format)
	}
	if r, g, b, a := rgb.At(0, 0); r != 255 || g != 128 || b != 0 || a != 255 {
		t.Errorf("(0,0) = %d %d %d %d", r, g, b, a)
	}
	if r, g, b, a := rgb.At(1, 1); r != 10 || g != 20 || b != 30 || a != 40 {
		t.Errorf("(1,1) = %d %d %d %d", r, g, b, a)
	}

	back, err := rgb.Image()
	if err != nil {
		t.Fatal(err)
	}
	if got := back.(*image.NRGBA).NRGBAAt(1, 1); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 40}) {
		t.Errorf("back (1,1) = %v", got)
	}

	wide, err := RGBFromImage(m, 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, g, _, _ := wide.At(0, 0); g != 128*257 {
		t.Errorf("16-bit green %d", g)
	}
}

func TestRGBFromGrayImage(t *testing.T) {
	m := image.NewGray16(image.Rect(0, 0, 2, 2))
	m.SetGray16(1, 0, color.Gray16{Y: 1000})
	rgb, err := RGBFromImage(m, 16)
	if err != nil {
		t.Fatal(err)
	}
	if rgb.Format != RGBFormatGray {
		t.Fatalf("format %s", rgb.Format)
	}
	back, err := rgb.Image()
	if err != nil {
		t.Fatal(err)
	}
	if got := back.(*image.Gray16).Gray16At(1, 0).Y; got != 1000 {
		t.Errorf("gray %d", got)
	}
}

func hdrPattern(t *testing.T) *HDRImage {
	t.Helper()
	h, err := NewHDRImage(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range h.Pix {
		h.Pix[i] = float32(i%7+1) * 0.75
	}
	return h
}

func TestRadianceRoundTrip(t *testing.T) {
	h := hdrPattern(t)
	var buf bytes.Buffer
	if err := EncodeRadiance(&buf, h); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRadiance(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 4 || got.Height != 3 {
		t.Fatalf("size %dx%d", got.Width, got.Height)
	}
	for i, v := range h.Pix {
		if math.Abs(float64(got.Pix[i]-v)) > 0.05 {
			t.Fatalf("pix[%d] = %v, want %v", i, got.Pix[i], v)
		}
	}
	if p := got.PeakHeadroom(); math.Abs(p-math.Log2(5.25)) > 0.02 {
		t.Errorf("peak headroom %v", p)
	}
}

func TestTIFFDecodesToLinear(t *testing.T) {
	m := image.NewNRGBA64(image.Rect(0, 0, 2, 1))
	m.SetNRGBA64(0, 0, color.NRGBA64{R: 0xFFFF, G: 0x8000, B: 0, A: 0xFFFF})
	m.SetNRGBA64(1, 0, color.NRGBA64{A: 0xFFFF})
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, m); err != nil {
		t.Fatal(err)
	}
	h, err := DecodeTIFF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(h.Pix[0])-1) > 1e-4 || math.Abs(float64(h.Pix[1])-0.2140) > 1e-3 || h.Pix[2] != 0 || h.Pix[3] != 0 {
		t.Errorf("unexpected linear values %v", h.Pix)
	}
}

func TestImageFromHDRAndBack(t *testing.T) {
	h := hdrPattern(t)
	img, err := ImageFromHDR(h, TransferPQ, 12)
	if err != nil {
		t.Fatal(err)
	}
	if img.MatrixCoefficients != MatrixBT2020NCL || img.ColorPrimaries != ColorPrimariesBT709 {
		t.Fatalf("unexpected description %s %s", img.MatrixCoefficients, img.ColorPrimaries)
	}
	rgb := &RGBImage{Depth: 16, Format: RGBFormatRGB}
	if err := img.ToRGB(rgb); err != nil {
		t.Fatal(err)
	}
	got, err := rgb.ToHDR(TransferPQ, img.ColorPrimaries)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range h.Pix {
		if math.Abs(float64(got.Pix[i]-v)) > 0.03*float64(v) {
			t.Fatalf("pix[%d] = %v, want %v", i, got.Pix[i], v)
		}
	}
}
