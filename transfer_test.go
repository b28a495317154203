package avifhdr

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func TestTransferRoundTrip(t *testing.T) {
	for _, tc := range []TransferCharacteristics{
		TransferSRGB, TransferBT709, TransferBT470M, TransferBT470BG, TransferSMPTE240,
		TransferLinear, TransferPQ, TransferHLG, TransferUnspecified,
	} {
		tf := transferFor(tc)
		for i := 1; i <= 20; i++ {
			v := float32(i) / 20
			if got := tf.fromLinear(tf.toLinear(v)); math.Abs(float64(got-v)) > 1e-3 {
				t.Errorf("%s: %v round trips to %v", tc, v, got)
			}
		}
	}
}

func TestTransferReferencePoints(t *testing.T) {
	if v := srgbInvOetf(0.5); math.Abs(float64(v)-0.21404) > 1e-4 {
		t.Errorf("sRGB 0.5 decodes to %v", v)
	}
	// 203 nits is SDR white for PQ and HLG.
	if v := transferFor(TransferPQ).fromLinear(1); math.Abs(float64(v)-0.5806) > 1e-3 {
		t.Errorf("PQ encodes SDR white as %v", v)
	}
	if v := transferFor(TransferPQ).toLinear(1); math.Abs(float64(v)-10000.0/203) > 0.01 {
		t.Errorf("PQ peak decodes to %v", v)
	}
	if !isHDRTransfer(TransferHLG) || isHDRTransfer(TransferSRGB) {
		t.Error("unexpected HDR classification")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	src := patternRGB(t, 4, 4, 8, RGBFormatRGB)
	img := NewImage(4, 4, 8, PixelFormatYUV420)
	img.MatrixCoefficients = MatrixBT601
	if err := img.FromRGB(src); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "rgb to yuv") {
		t.Errorf("missing conversion record in %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger must be silent")
	}
}
