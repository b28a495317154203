//go:build libaom

package codec

import (
	"bytes"
	"fmt"

	avif "github.com/Kagami/go-avif"
	"github.com/vearutop/avifhdr"
)

func init() {
	Register(aomCodec{})
}

// aomCodec encodes with libaom through cgo. It produces 8-bit 4:2:0 only and cannot decode.
type aomCodec struct{}

func (aomCodec) Name() string { return "aom" }

func (aomCodec) Encode(img *avifhdr.Image, o Options) ([]byte, error) {
	ratio, err := subsampleRatio(img.YUVFormat)
	if err != nil {
		return nil, err
	}
	if img.Depth != 8 {
		return nil, fmt.Errorf("%w: aom encodes 8-bit images only, got %d", avifhdr.ErrNotImplemented, img.Depth)
	}
	m, err := toStdImage(img)
	if err != nil {
		return nil, fmt.Errorf("aom: %w", err)
	}

	speed := o.ClampedSpeed()
	if speed == SpeedDefault {
		speed = avif.DefaultOptions.Speed
	}
	// libaom presets stop at 8, faster requests saturate.
	speed = min(speed, avif.MaxSpeed)
	quantizer := o.Quantizer()
	if o.MaxQuantizer >= 0 {
		_, quantizer = o.QuantizerRange()
	}
	if o.Lossless {
		quantizer = avif.MinQuality
	}

	var buf bytes.Buffer
	err = avif.Encode(&buf, m, &avif.Options{
		Threads:        o.Threads,
		Speed:          speed,
		Quality:        clamp(quantizer, avif.MinQuality, avif.MaxQuality),
		SubsampleRatio: &ratio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: aom encode: %v", avifhdr.ErrUnknown, err)
	}
	return buf.Bytes(), nil
}

func (aomCodec) Decode([]byte, *avifhdr.Image) error {
	return fmt.Errorf("%w: aom codec is encode only", avifhdr.ErrNotImplemented)
}
