package avifhdr

import (
	"errors"
	"testing"
)

func TestScale(t *testing.T) {
	img := computed(t, PixelFormatYUV400)
	if err := img.AllocateAlpha(); err != nil {
		t.Fatal(err)
	}
	want := img.Sample(PlaneY, 0, 0)

	if err := img.Scale(5, 3); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if img.Width != 5 || img.Height != 3 || img.PlaneWidth(PlaneU) != 5 {
		t.Fatalf("unexpected size %dx%d", img.Width, img.Height)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			if v := img.Sample(PlaneY, x, y); v != want {
				t.Fatalf("luma (%d,%d) = %d, want %d", x, y, v, want)
			}
			if a := sample(img.Alpha, img.AlphaRowBytes, img.Depth, x, y); a != 255 {
				t.Fatalf("alpha (%d,%d) = %d", x, y, a)
			}
		}
	}
	// Gain map dimensions follow the same factors, rounded down.
	if gm := img.GainMap.Image; gm.Width != 2 || gm.Height != 1 {
		t.Errorf("gain map scaled to %dx%d", gm.Width, gm.Height)
	}

	if err := img.Scale(10, 6, func(o *ScaleOptions) {
		o.Interpolation = InterpolationLanczos3
		o.KeepGainMapSize = true
	}); err != nil {
		t.Fatal(err)
	}
	if gm := img.GainMap.Image; gm.Width != 2 || gm.Height != 1 {
		t.Errorf("gain map resized to %dx%d despite KeepGainMapSize", gm.Width, gm.Height)
	}
}

func TestScaleSubsampled(t *testing.T) {
	src := patternRGB(t, 7, 5, 10, RGBFormatRGB)
	img := NewImage(7, 5, 10, PixelFormatYUV420)
	img.MatrixCoefficients = MatrixBT709
	if err := img.FromRGB(src); err != nil {
		t.Fatal(err)
	}
	if err := img.Scale(3, 3, func(o *ScaleOptions) { o.Interpolation = InterpolationNearest }); err != nil {
		t.Fatal(err)
	}
	if img.PlaneWidth(PlaneU) != 2 || img.PlaneHeight(PlaneV) != 2 || len(img.Planes[PlaneU]) != 2*2*2 {
		t.Fatalf("chroma plane %dx%d, %d bytes", img.PlaneWidth(PlaneU), img.PlaneHeight(PlaneU), len(img.Planes[PlaneU]))
	}
	if !img.hasPlanes() {
		t.Fatal("planes missing after scaling")
	}
}

func TestScaleInvalid(t *testing.T) {
	img := NewImage(4, 4, 8, PixelFormatYUV444)
	if err := img.Scale(2, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("no planes: %v", err)
	}
	if err := img.AllocatePlanes(); err != nil {
		t.Fatal(err)
	}
	if err := img.Scale(0, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero width: %v", err)
	}
	if img.Width != 4 {
		t.Error("image changed on failure")
	}
}
