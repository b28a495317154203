//go:build nosharpyuv

package avifhdr

import "fmt"

const sharpYUVAvailable = false

func newSharpDownsampler(_ *RGBImage, _ *Image, _ yuvMode) (chromaDownsampler, error) {
	return nil, fmt.Errorf("%w: built without sharp YUV support", ErrNotImplemented)
}
