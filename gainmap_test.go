package avifhdr

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// uniformImage quantizes a constant linear value into a 4:4:4 image.
func uniformImage(t *testing.T, w, h int, linear float32, transfer TransferCharacteristics, depth int) *Image {
	t.Helper()
	hdr, err := NewHDRImage(w, h)
	if err != nil {
		t.Fatal(err)
	}
	for i := range hdr.Pix {
		hdr.Pix[i] = linear
	}
	img, err := ImageFromHDR(hdr, transfer, depth)
	if err != nil {
		t.Fatalf("ImageFromHDR: %v", err)
	}
	return img
}

// sdrAndHDR returns an sRGB base and a PQ alternate where the alternate is 3.0 (about 609 nits).
func sdrAndHDR(t *testing.T) (base, alt *Image) {
	t.Helper()
	return uniformImage(t, 8, 6, 0.2158, TransferSRGB, 8), uniformImage(t, 8, 6, 3.0, TransferPQ, 16)
}

func computed(t *testing.T, format PixelFormat) *Image {
	t.Helper()
	base, alt := sdrAndHDR(t)
	gm := NewGainMap()
	gm.Image = NewImage(4, 3, 8, format)
	if err := ComputeGainMap(base, alt, gm); err != nil {
		t.Fatalf("ComputeGainMap: %v", err)
	}
	base.GainMap = gm
	return base
}

func TestGainMapWeight(t *testing.T) {
	up := &GainMap{BaseHdrHeadroom: UFraction{N: 0, D: 1}, AlternateHdrHeadroom: UFraction{N: 2, D: 1}}
	down := &GainMap{BaseHdrHeadroom: UFraction{N: 2, D: 1}, AlternateHdrHeadroom: UFraction{N: 0, D: 1}}
	flat := &GainMap{BaseHdrHeadroom: UFraction{N: 1, D: 1}, AlternateHdrHeadroom: UFraction{N: 1, D: 1}}

	for _, tc := range []struct {
		gm       *GainMap
		headroom float32
		want     float32
	}{
		{up, 0, 0},
		{up, 1, 0.5},
		{up, 2, 1},
		{up, 5, 1},
		{down, 0, -1},
		{down, 1, -0.5},
		{down, 2, 0},
		{down, 4, 0},
		{flat, 3, 0},
	} {
		if got := gainMapWeight(tc.headroom, tc.gm); got != tc.want {
			t.Errorf("base %s alt %s headroom %v: got %v, want %v",
				tc.gm.BaseHdrHeadroom, tc.gm.AlternateHdrHeadroom, tc.headroom, got, tc.want)
		}
	}
}

func TestComputeGainMap(t *testing.T) {
	for _, format := range []PixelFormat{PixelFormatYUV400, PixelFormatYUV444, PixelFormatYUV420} {
		img := computed(t, format)
		gm := img.GainMap
		if gm.Image.Width != 4 || gm.Image.Height != 3 || gm.Image.YUVFormat != format {
			t.Fatalf("%s: unexpected gain map %dx%d %s", format, gm.Image.Width, gm.Image.Height, gm.Image.YUVFormat)
		}
		if gm.BaseHdrHeadroom.Float64() != 0 {
			t.Errorf("%s: base headroom %s", format, gm.BaseHdrHeadroom)
		}
		if h := gm.AlternateHdrHeadroom.Float64(); math.Abs(h-math.Log2(3)) > 0.01 {
			t.Errorf("%s: alternate headroom %v", format, h)
		}
		want := math.Log2((3.0 + 1.0/64) / (0.2158 + 1.0/64))
		for c := 0; c < 3; c++ {
			if v := gm.GainMapMin[c].Float64(); math.Abs(v-want) > 0.02 {
				t.Errorf("%s: channel %d min %v, want %v", format, c, v, want)
			}
			if gm.GainMapMin[c] != gm.GainMapMax[c] {
				t.Errorf("%s: uniform input must give min == max, got %s and %s", format, gm.GainMapMin[c], gm.GainMapMax[c])
			}
		}
		if !gm.allChannelsIdentical() {
			t.Errorf("%s: channels differ for gray input", format)
		}
		if gm.AltTransferCharacteristics != TransferPQ || gm.AltDepth != 16 || gm.AltPlaneCount != 3 {
			t.Errorf("%s: alternate description %s, %d-bit, %d planes",
				format, gm.AltTransferCharacteristics, gm.AltDepth, gm.AltPlaneCount)
		}
	}
}

func TestComputeGainMapHDRBase(t *testing.T) {
	sdr, hdr := sdrAndHDR(t)
	gm := NewGainMap()
	gm.Image = NewImage(4, 3, 8, PixelFormatYUV400)
	if err := ComputeGainMap(hdr, sdr, gm); err != nil {
		t.Fatalf("ComputeGainMap: %v", err)
	}
	if gm.AlternateHdrHeadroom.Float64() != 0 || math.Abs(gm.BaseHdrHeadroom.Float64()-math.Log2(3)) > 0.01 {
		t.Fatalf("headrooms: base %s, alternate %s", gm.BaseHdrHeadroom, gm.AlternateHdrHeadroom)
	}
	if v := gm.GainMapMin[0].Float64(); v <= 0 {
		t.Errorf("log ratio must run from sdr to hdr, got min %v", v)
	}

	for _, tc := range []struct {
		name     string
		headroom float32
		transfer TransferCharacteristics
		depth    int
		ref      *Image
		maxDiff  int
	}{
		{"sdr", 0, TransferSRGB, 8, sdr, 2},
		{"base", float32(gm.BaseHdrHeadroom.Float64()), TransferPQ, 16, hdr, 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := &RGBImage{Depth: tc.depth, Format: RGBFormatRGB}
			if err := ApplyGainMap(hdr, gm, tc.headroom, ColorPrimariesBT709, tc.transfer, out, nil); err != nil {
				t.Fatal(err)
			}
			want := &RGBImage{Depth: tc.depth, Format: RGBFormatRGB}
			if err := tc.ref.ToRGB(want); err != nil {
				t.Fatal(err)
			}
			if d := maxRGBDiff(t, want, out); d > tc.maxDiff {
				t.Errorf("rendition at headroom %v differs by %d", tc.headroom, d)
			}
		})
	}
}

func TestWorkingPrimaries(t *testing.T) {
	for name, tc := range map[string]struct {
		alt     ColorPrimaries
		useBase bool
		want    ColorPrimaries
	}{
		"alternate":   {ColorPrimariesBT2020, false, ColorPrimariesBT2020},
		"use base":    {ColorPrimariesBT2020, true, ColorPrimariesBT709},
		"unspecified": {ColorPrimariesUnspecified, false, ColorPrimariesBT709},
		"unknown":     {ColorPrimariesUnknown, false, ColorPrimariesBT709},
	} {
		gm := NewGainMap()
		gm.AltColorPrimaries, gm.UseBaseColorSpace = tc.alt, tc.useBase
		if got := gm.workingPrimaries(ColorPrimariesBT709); got != tc.want {
			t.Errorf("%s: got %s, want %s", name, got, tc.want)
		}
	}

	// Compute records the alternate primaries it worked in, so apply picks the same space.
	img := computed(t, PixelFormatYUV444)
	_, alt := sdrAndHDR(t)
	if got := img.GainMap.workingPrimaries(img.ColorPrimaries); got != alt.ColorPrimaries {
		t.Errorf("working primaries %s, want %s", got, alt.ColorPrimaries)
	}
}

func TestComputeGainMapInvalid(t *testing.T) {
	base, alt := sdrAndHDR(t)
	small := uniformImage(t, 4, 4, 1, TransferSRGB, 8)

	for name, tc := range map[string]struct {
		alt *Image
		gm  *GainMap
	}{
		"size mismatch":   {small, &GainMap{Image: NewImage(2, 2, 8, PixelFormatYUV400)}},
		"no descriptor":   {alt, NewGainMap()},
		"gain map bigger": {alt, &GainMap{Image: NewImage(9, 6, 8, PixelFormatYUV400)}},
		"gain map depth":  {alt, &GainMap{Image: NewImage(2, 2, 16, PixelFormatYUV400)}},
	} {
		t.Run(name, func(t *testing.T) {
			before := *tc.gm
			if err := ComputeGainMap(base, tc.alt, tc.gm); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("got %v", err)
			}
			if tc.gm.Image != before.Image || tc.gm.AlternateHdrHeadroom != before.AlternateHdrHeadroom {
				t.Fatal("gain map modified on failure")
			}
		})
	}
}

func TestApplyGainMap(t *testing.T) {
	img := computed(t, PixelFormatYUV400)
	gm := img.GainMap
	_, alt := sdrAndHDR(t)

	t.Run("sdr", func(t *testing.T) {
		out := &RGBImage{Depth: 8, Format: RGBFormatRGB}
		var clli ContentLightLevel
		if err := ApplyGainMap(img, gm, 0, ColorPrimariesBT709, TransferSRGB, out, &clli); err != nil {
			t.Fatal(err)
		}
		ref := &RGBImage{Depth: 8, Format: RGBFormatRGB}
		if err := img.ToRGB(ref); err != nil {
			t.Fatal(err)
		}
		if d := maxRGBDiff(t, ref, out); d > 1 {
			t.Errorf("base rendition differs by %d", d)
		}
		if !clli.IsZero() {
			t.Errorf("light level computed for sdr output: %+v", clli)
		}
	})

	t.Run("alternate", func(t *testing.T) {
		out := &RGBImage{Depth: 16, Format: RGBFormatRGB}
		var clli ContentLightLevel
		headroom := float32(gm.AlternateHdrHeadroom.Float64())
		if err := ApplyGainMap(img, gm, headroom, ColorPrimariesBT709, TransferPQ, out, &clli); err != nil {
			t.Fatal(err)
		}
		ref := &RGBImage{Depth: 16, Format: RGBFormatRGB}
		if err := alt.ToRGB(ref); err != nil {
			t.Fatal(err)
		}
		if d := maxRGBDiff(t, ref, out); d > 16 {
			t.Errorf("alternate rendition differs by %d", d)
		}
		if clli.MaxCLL < 600 || clli.MaxCLL > 620 || clli.MaxPALL != clli.MaxCLL {
			t.Errorf("unexpected light level %+v", clli)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		out := &RGBImage{Depth: 8, Format: RGBFormatRGB}
		if err := ApplyGainMap(img, gm, -1, ColorPrimariesBT709, TransferSRGB, out, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("negative headroom: %v", err)
		}
		if err := ApplyGainMap(img, nil, 1, ColorPrimariesBT709, TransferSRGB, out, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("missing gain map: %v", err)
		}
		broken := gm.Clone()
		broken.GainMapGamma[1] = UFraction{N: 0, D: 1}
		if err := ApplyGainMap(img, broken, 1, ColorPrimariesBT709, TransferSRGB, out, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("zero gamma: %v", err)
		}
	})
}

func TestSwapBaseTwice(t *testing.T) {
	img := computed(t, PixelFormatYUV444)
	_, alt := sdrAndHDR(t)

	depth, format := SwapBaseDefaults(img)
	if depth != 16 || format != PixelFormatYUV444 {
		t.Fatalf("defaults: %d %s", depth, format)
	}

	hdr, err := SwapBase(img, depth, format)
	if err != nil {
		t.Fatalf("SwapBase: %v", err)
	}
	if hdr.TransferCharacteristics != TransferPQ || hdr.Depth != 16 {
		t.Fatalf("unexpected hdr base: %s, depth %d", hdr.TransferCharacteristics, hdr.Depth)
	}
	if hdr.CLLI.MaxCLL < 600 || hdr.CLLI.MaxCLL > 620 {
		t.Errorf("hdr base light level %+v", hdr.CLLI)
	}
	gm := hdr.GainMap
	if gm.BaseHdrHeadroom != img.GainMap.AlternateHdrHeadroom || gm.AlternateHdrHeadroom != img.GainMap.BaseHdrHeadroom {
		t.Error("headrooms not swapped")
	}
	if gm.AltTransferCharacteristics != img.TransferCharacteristics || gm.AltDepth != 8 || gm.AltPlaneCount != 3 {
		t.Errorf("alternate description not taken from the old base: %s %d %d",
			gm.AltTransferCharacteristics, gm.AltDepth, gm.AltPlaneCount)
	}
	if !gm.UseBaseColorSpace {
		t.Error("comparison color space must stay with the original alternate")
	}

	got := &RGBImage{Depth: 16, Format: RGBFormatRGB}
	want := &RGBImage{Depth: 16, Format: RGBFormatRGB}
	if err := hdr.ToRGB(got); err != nil {
		t.Fatal(err)
	}
	if err := alt.ToRGB(want); err != nil {
		t.Fatal(err)
	}
	if d := maxRGBDiff(t, want, got); d > 16 {
		t.Errorf("hdr base differs from alternate by %d", d)
	}

	sdr, err := SwapBase(hdr, 8, PixelFormatYUV444)
	if err != nil {
		t.Fatalf("SwapBase back: %v", err)
	}
	if sdr.TransferCharacteristics != TransferSRGB || !sdr.CLLI.IsZero() {
		t.Errorf("unexpected sdr base: %s %+v", sdr.TransferCharacteristics, sdr.CLLI)
	}
	got8 := &RGBImage{Depth: 8, Format: RGBFormatRGB}
	want8 := &RGBImage{Depth: 8, Format: RGBFormatRGB}
	if err := sdr.ToRGB(got8); err != nil {
		t.Fatal(err)
	}
	if err := img.ToRGB(want8); err != nil {
		t.Fatal(err)
	}
	if d := maxRGBDiff(t, want8, got8); d > 1 {
		t.Errorf("sdr base differs from original by %d", d)
	}
	if sdr.GainMap.BaseHdrHeadroom != img.GainMap.BaseHdrHeadroom || sdr.GainMap.UseBaseColorSpace {
		t.Error("metadata not restored after swapping twice")
	}
}

func TestSwapBaseWithoutGainMap(t *testing.T) {
	img := uniformImage(t, 2, 2, 0.5, TransferSRGB, 8)
	if _, err := SwapBase(img, 8, PixelFormatYUV444); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v", err)
	}
}

func TestCapHeadroom(t *testing.T) {
	gm := NewGainMap()
	gm.BaseHdrHeadroom = UFraction{N: 1, D: 2}
	gm.AlternateHdrHeadroom = UFraction{N: 13, D: 4}

	if err := gm.CapHeadroom(0); err != nil || gm.AlternateHdrHeadroom != (UFraction{N: 13, D: 4}) {
		t.Fatalf("zero cap changed headroom: %v %s", err, gm.AlternateHdrHeadroom)
	}
	if err := gm.CapHeadroom(2.5); err != nil {
		t.Fatal(err)
	}
	if gm.AlternateHdrHeadroom != (UFraction{N: 5, D: 2}) || gm.BaseHdrHeadroom != (UFraction{N: 1, D: 2}) {
		t.Errorf("got base %s, alternate %s", gm.BaseHdrHeadroom, gm.AlternateHdrHeadroom)
	}
	if err := gm.CapHeadroom(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative cap: %v", err)
	}
	// A cap no headroom reaches is never converted, even when it has no fraction form.
	if err := gm.CapHeadroom(5e9); err != nil || gm.AlternateHdrHeadroom != (UFraction{N: 5, D: 2}) {
		t.Errorf("unreached cap: %v %s", err, gm.AlternateHdrHeadroom)
	}
}

func TestISOMetadata(t *testing.T) {
	gm := NewGainMap()
	gm.BaseHdrHeadroom = UFraction{N: 0, D: 1}
	gm.AlternateHdrHeadroom = UFraction{N: 13, D: 4}
	gm.UseBaseColorSpace = true
	gm.GainMapMin = [3]Fraction{{N: -1, D: 3}, {N: -1, D: 4}, {N: 0, D: 1}}
	gm.GainMapMax = [3]Fraction{{N: 7, D: 2}, {N: 3, D: 1}, {N: 11, D: 4}}
	gm.GainMapGamma = [3]UFraction{{N: 1, D: 1}, {N: 2, D: 3}, {N: 1, D: 1}}

	payload, err := gm.MarshalISO()
	if err != nil {
		t.Fatal(err)
	}
	if payload[5]&isoIsMultiChannelMask == 0 || payload[5]&isoUseBaseColorMask == 0 || payload[5]&isoCommonDenomMask != 0 {
		t.Errorf("unexpected flags %08b", payload[5])
	}
	got := NewGainMap()
	if err := got.UnmarshalISO(payload); err != nil {
		t.Fatal(err)
	}
	if got.BaseHdrHeadroom != gm.BaseHdrHeadroom || got.AlternateHdrHeadroom != gm.AlternateHdrHeadroom ||
		got.GainMapMin != gm.GainMapMin || got.GainMapMax != gm.GainMapMax || got.GainMapGamma != gm.GainMapGamma ||
		got.BaseOffset != gm.BaseOffset || got.AlternateOffset != gm.AlternateOffset || !got.UseBaseColorSpace {
		t.Errorf("metadata differs after decoding: %+v", got)
	}

	single := NewGainMap()
	single.AlternateHdrHeadroom = UFraction{N: 3, D: 64}
	for c := 0; c < 3; c++ {
		single.GainMapMax[c] = Fraction{N: 192, D: 64}
	}
	short, err := single.MarshalISO()
	if err != nil {
		t.Fatal(err)
	}
	if short[5] != 0 {
		t.Errorf("single channel flags %08b", short[5])
	}
	if len(short) >= len(payload) {
		t.Errorf("single channel payload %d bytes is not shorter than %d", len(short), len(payload))
	}
	decoded := NewGainMap()
	if err := decoded.UnmarshalISO(short); err != nil {
		t.Fatal(err)
	}
	if decoded.GainMapMax[2] != single.GainMapMax[0] || decoded.AlternateHdrHeadroom != single.AlternateHdrHeadroom {
		t.Errorf("single channel values not replicated: %+v", decoded)
	}

	for name, in := range map[string][]byte{
		"empty":     nil,
		"truncated": payload[:len(payload)-1],
	} {
		if err := NewGainMap().UnmarshalISO(in); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: got %v", name, err)
		}
	}
	bad := bytes.Clone(payload)
	bad[0] = 1
	if err := NewGainMap().UnmarshalISO(bad); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("future version: got %v", err)
	}
}
