package avifhdr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func TestEXRRoundTrip(t *testing.T) {
	img, err := NewHDRImage(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	values := []float32{0, 0.25, 0.5, 1, 2, 4.5, 8, 16, 0.125}
	for i := range img.Pix {
		img.Pix[i] = values[i%len(values)]
	}

	var buf bytes.Buffer
	if err := EncodeEXR(&buf, img); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEXR(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("size %dx%d", got.Width, got.Height)
	}
	for i := range img.Pix {
		if got.Pix[i] != img.Pix[i] {
			t.Fatalf("pix[%d] = %v, want %v", i, got.Pix[i], img.Pix[i])
		}
	}
}

func TestDecodeEXRRejectsGarbage(t *testing.T) {
	_, err := DecodeEXR([]byte("not an exr file"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestEXRDecompressZip(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i*37 + 11)
	}

	// Interleave and delta-encode the way OpenEXR writers do.
	half := (len(raw) + 1) / 2
	inter := make([]byte, len(raw))
	for i, b := range raw {
		if i%2 == 0 {
			inter[i/2] = b
		} else {
			inter[half+i/2] = b
		}
	}
	for i := len(inter) - 1; i > 0; i-- {
		inter[i] = byte(int(inter[i]) - int(inter[i-1]) + 128)
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(inter); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := exrDecompress(exrCompressionZips, z.Bytes(), len(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("got %v, want %v", got, raw)
	}

	if _, err := exrDecompress(exrCompressionZips, z.Bytes(), len(raw)+1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("size mismatch err = %v", err)
	}
}

func TestDecodeEXROversizedBlock(t *testing.T) {
	img, err := NewHDRImage(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := EncodeEXR(&buf, img); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	// The offset table sits right before the first block it points to.
	first := -1
	for p := 0; p+8 <= len(data); p++ {
		if binary.LittleEndian.Uint64(data[p:]) == uint64(p+8*img.Height) {
			first = p + 8*img.Height
			break
		}
	}
	if first < 0 || first+8 > len(data) {
		t.Fatal("offset table not found")
	}
	binary.LittleEndian.PutUint32(data[first+4:], 0x7fffffff)

	if _, err := DecodeEXR(data); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
