package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vearutop/avifhdr"
)

func TestOptionsTranslation(t *testing.T) {
	for _, tc := range []struct {
		quality, quantizer int
	}{
		{quality: 100, quantizer: 0},
		{quality: 0, quantizer: 63},
		{quality: 60, quantizer: 25},
		{quality: 150, quantizer: 0},
		{quality: -5, quantizer: 63},
	} {
		if got := (Options{Quality: tc.quality}).Quantizer(); got != tc.quantizer {
			t.Fatalf("quality %d: quantizer %d, want %d", tc.quality, got, tc.quantizer)
		}
	}

	if s := (Options{Speed: 42}).ClampedSpeed(); s != 10 {
		t.Fatalf("speed %d", s)
	}
	if s := (Options{Speed: -7}).ClampedSpeed(); s != 0 {
		t.Fatalf("speed %d", s)
	}
	if s := (Options{Speed: SpeedDefault}).ClampedSpeed(); s != SpeedDefault {
		t.Fatalf("speed %d", s)
	}

	lo, hi := Options{Quality: 60, MinQuantizer: 40, MaxQuantizer: 10}.QuantizerRange()
	if lo != 10 || hi != 40 {
		t.Fatalf("quantizers %d %d", lo, hi)
	}
	lo, hi = DefaultOptions().QuantizerRange()
	if lo != 25 || hi != 25 {
		t.Fatalf("default quantizers %d %d", lo, hi)
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("no-such-codec"); !errors.Is(err, avifhdr.ErrNotImplemented) {
		t.Fatalf("err = %v", err)
	}
	c, err := Lookup("zstd")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "zstd" {
		t.Fatalf("name %q", c.Name())
	}

	names := Names()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["zstd"] || !found["avif"] {
		t.Fatalf("names %v", names)
	}
}

func TestSubsampleRatioUnknownFormat(t *testing.T) {
	if _, err := subsampleRatio(avifhdr.PixelFormatNone); !errors.Is(err, avifhdr.ErrUnknown) {
		t.Fatalf("err = %v", err)
	}
	img := avifhdr.NewImage(4, 4, 8, avifhdr.PixelFormatNone)
	if _, err := (zstdCodec{}).Encode(img, DefaultOptions()); !errors.Is(err, avifhdr.ErrUnknown) {
		t.Fatalf("err = %v", err)
	}
}

func gradientImage(t *testing.T, w, h, depth int, format avifhdr.PixelFormat) *avifhdr.Image {
	t.Helper()
	img := avifhdr.NewImage(w, h, depth, format)
	if err := img.AllocatePlanes(); err != nil {
		t.Fatal(err)
	}
	maxV := 1<<depth - 1
	for c := 0; c < img.PlaneCount(); c++ {
		for y := 0; y < img.PlaneHeight(c); y++ {
			for x := 0; x < img.PlaneWidth(c); x++ {
				img.SetSample(c, x, y, (x*31+y*17+c*101)%(maxV+1))
			}
		}
	}
	return img
}

func TestZstdRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		depth  int
		format avifhdr.PixelFormat
	}{
		{"444-8", 8, avifhdr.PixelFormatYUV444},
		{"422-10", 10, avifhdr.PixelFormatYUV422},
		{"420-12-odd", 12, avifhdr.PixelFormatYUV420},
		{"400-16", 16, avifhdr.PixelFormatYUV400},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := gradientImage(t, 7, 5, tc.depth, tc.format)
			data, err := (zstdCodec{}).Encode(img, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}

			dst := avifhdr.NewImage(img.Width, img.Height, img.Depth, img.YUVFormat)
			if err := (zstdCodec{}).Decode(data, dst); err != nil {
				t.Fatal(err)
			}
			for c := 0; c < 3; c++ {
				if !bytes.Equal(dst.Planes[c], img.Planes[c]) {
					t.Fatalf("plane %d differs", c)
				}
			}
		})
	}
}

func TestZstdDecodeMismatch(t *testing.T) {
	img := gradientImage(t, 4, 4, 8, avifhdr.PixelFormatYUV420)
	data, err := (zstdCodec{}).Encode(img, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	dst := avifhdr.NewImage(4, 4, 10, avifhdr.PixelFormatYUV420)
	if err := (zstdCodec{}).Decode(data, dst); !errors.Is(err, avifhdr.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if err := (zstdCodec{}).Decode([]byte("garbage"), dst); !errors.Is(err, avifhdr.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestAVIFRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("libavif wasm is slow to start")
	}
	img := gradientImage(t, 16, 16, 8, avifhdr.PixelFormatYUV420)
	img.MatrixCoefficients = avifhdr.MatrixBT601

	c, err := Lookup("avif")
	if err != nil {
		t.Fatal(err)
	}
	data, err := c.Encode(img, Options{Quality: 90, Speed: 10, MinQuantizer: -1, MaxQuantizer: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty payload")
	}

	dst := avifhdr.NewImage(16, 16, 8, avifhdr.PixelFormatYUV420)
	dst.MatrixCoefficients = avifhdr.MatrixBT601
	if err := c.Decode(data, dst); err != nil {
		t.Fatal(err)
	}
	if dst.Planes[avifhdr.PlaneY] == nil {
		t.Fatal("no planes decoded")
	}
}

func TestStdImageReversibleYCgCo(t *testing.T) {
	src, err := avifhdr.NewRGBImage(6, 4, 8, avifhdr.RGBFormatRGB)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			src.Set(x, y, x*40, y*60+3, (x*y*23)%256, 255)
		}
	}
	img := avifhdr.NewImage(6, 4, 10, avifhdr.PixelFormatYUV444)
	img.MatrixCoefficients = avifhdr.MatrixYCgCoRe
	if err := img.FromRGB(src); err != nil {
		t.Fatal(err)
	}

	m, err := toStdImage(img)
	if err != nil {
		t.Fatal(err)
	}
	dst := avifhdr.NewImage(6, 4, 10, avifhdr.PixelFormatYUV444)
	dst.MatrixCoefficients = avifhdr.MatrixYCgCoRe
	if err := fromStdImage(m, dst); err != nil {
		t.Fatal(err)
	}
	for c := 0; c < 3; c++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 6; x++ {
				if got, want := dst.Sample(c, x, y), img.Sample(c, x, y); got != want {
					t.Fatalf("plane %d (%d,%d): got %d, want %d", c, x, y, got, want)
				}
			}
		}
	}

	for name, tc := range map[string]struct {
		depth  int
		matrix avifhdr.MatrixCoefficients
	}{
		"re 12-bit": {12, avifhdr.MatrixYCgCoRe},
		"ro 10-bit": {10, avifhdr.MatrixYCgCoRo},
	} {
		t.Run(name, func(t *testing.T) {
			img := gradientImage(t, 4, 4, tc.depth, avifhdr.PixelFormatYUV444)
			img.MatrixCoefficients = tc.matrix
			if _, err := toStdImage(img); !errors.Is(err, avifhdr.ErrNotImplemented) {
				t.Fatalf("got %v, want ErrNotImplemented", err)
			}
		})
	}
}
