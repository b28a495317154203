package avifhdr

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseCICP(t *testing.T) {
	c, err := ParseCICP("9/16/9")
	if err != nil {
		t.Fatal(err)
	}
	if c.ColorPrimaries != ColorPrimariesBT2020 || c.TransferCharacteristics != TransferPQ || c.MatrixCoefficients != MatrixBT2020NCL {
		t.Errorf("got %+v", c)
	}
	if c.String() != "9/16/9" {
		t.Errorf("String() = %s", c)
	}

	for _, s := range []string{"", "1/13", "1/13/6/0", "a/13/6", "1/13/300", "-1/1/1"} {
		if _, err := ParseCICP(s); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%q: got %v", s, err)
		}
	}
}

func TestParsePixelFormat(t *testing.T) {
	for s, want := range map[string]PixelFormat{
		"444": PixelFormatYUV444, "yuv422": PixelFormatYUV422, "YUV420": PixelFormatYUV420, "400": PixelFormatYUV400,
	} {
		got, err := ParsePixelFormat(s)
		if err != nil || got != want {
			t.Errorf("%q: got %s, %v", s, got, err)
		}
	}
	if _, err := ParsePixelFormat("411"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("got %v", err)
	}
}

func TestResultOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want Result
	}{
		{nil, ResultOK},
		{fmt.Errorf("stage: %w", ErrInvalidArgument), ResultInvalidArgument},
		{fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrOutOfMemory)), ResultOutOfMemory},
		{ErrNotImplemented, ResultNotImplemented},
		{errors.New("boom"), ResultUnknownError},
		{ErrUnknown, ResultUnknownError},
	} {
		if got := ResultOf(tc.err); got != tc.want {
			t.Errorf("%v: got %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestAllocationLimit(t *testing.T) {
	img := NewImage(1<<20, 1<<20, 16, PixelFormatYUV444)
	if err := img.AllocatePlanes(); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("got %v", err)
	}
}
