package codec

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/avif"
	"github.com/vearutop/avifhdr"
)

func init() {
	Register(libavifCodec{})
}

// libavifCodec runs libavif compiled to WebAssembly, no cgo required.
//
// The library takes and returns packed RGB, so planes pass through the
// color conversion engine at 8 or 16 bits per channel.
type libavifCodec struct{}

func (libavifCodec) Name() string { return "avif" }

func (libavifCodec) Encode(img *avifhdr.Image, o Options) ([]byte, error) {
	ratio, err := subsampleRatio(img.YUVFormat)
	if err != nil {
		return nil, err
	}
	m, err := toStdImage(img)
	if err != nil {
		return nil, fmt.Errorf("avif: %w", err)
	}

	quality := clamp(o.Quality, 0, 100)
	if o.Lossless {
		quality = 100
	}
	speed := o.ClampedSpeed()
	if speed == SpeedDefault {
		speed = 10
	}
	opts := avif.Options{
		Quality:           quality,
		QualityAlpha:      quality,
		Speed:             speed,
		ChromaSubsampling: ratio,
	}

	avifhdr.Logger().Debug("avif encode",
		"width", img.Width, "height", img.Height, "depth", img.Depth,
		"quality", quality, "speed", speed, "subsampling", ratio.String())

	var buf bytes.Buffer
	if err := avif.Encode(&buf, m, opts); err != nil {
		return nil, fmt.Errorf("%w: avif encode: %v", avifhdr.ErrUnknown, err)
	}
	return buf.Bytes(), nil
}

func (libavifCodec) Decode(data []byte, dst *avifhdr.Image) error {
	m, err := avif.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: avif decode: %v", avifhdr.ErrInvalidArgument, err)
	}
	return fromStdImage(m, dst)
}
