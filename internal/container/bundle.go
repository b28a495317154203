// Package container stores an image, its alpha and its gain map as one self-describing file.
//
// The file is a JSON manifest. Pixel payloads are produced by a codec from internal/codec and
// embedded base64-encoded, gain map metadata is embedded as an ISO 21496-1 payload.
package container

import (
	"fmt"

	"github.com/vearutop/avifhdr"
)

// BundleFormat identifies the manifest layout.
const BundleFormat = "avifhdr-bundle-1"

// Description is the geometry and color description of one coded image.
type Description struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Depth     int    `json:"depth"`
	YUVFormat string `json:"yuv_format"`
	FullRange bool   `json:"full_range"`
	CICP      string `json:"cicp"`

	CLLI *avifhdr.ContentLightLevel `json:"clli,omitempty"`
	ICC  []byte                     `json:"icc,omitempty"`
}

// Alternate describes the rendition the gain map leads to.
type Alternate struct {
	CICP       string                     `json:"cicp"`
	FullRange  bool                       `json:"full_range"`
	Depth      int                        `json:"depth"`
	PlaneCount int                        `json:"plane_count"`
	CLLI       *avifhdr.ContentLightLevel `json:"clli,omitempty"`
	ICC        []byte                     `json:"icc,omitempty"`
}

// GainMapEntry holds the coded gain map image and its metadata.
type GainMapEntry struct {
	Image     Description `json:"image"`
	Payload   []byte      `json:"payload"`
	Metadata  []byte      `json:"metadata"`
	Alternate Alternate   `json:"alternate"`
}

// Bundle is the manifest of a container file. Byte fields are base64-encoded in JSON.
type Bundle struct {
	Format  string        `json:"format"`
	Codec   string        `json:"codec"`
	Image   Description   `json:"image"`
	Payload []byte        `json:"payload"`
	Alpha   []byte        `json:"alpha,omitempty"`
	GainMap *GainMapEntry `json:"gain_map,omitempty"`
}

// Validate ensures the bundle has the fields needed to decode it.
func (b *Bundle) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: bundle is nil", avifhdr.ErrInvalidArgument)
	}
	if b.Format != BundleFormat {
		return fmt.Errorf("%w: unsupported bundle format %q", avifhdr.ErrInvalidArgument, b.Format)
	}
	if b.Codec == "" {
		return fmt.Errorf("%w: bundle missing codec", avifhdr.ErrInvalidArgument)
	}
	if len(b.Payload) == 0 {
		return fmt.Errorf("%w: bundle missing image payload", avifhdr.ErrInvalidArgument)
	}
	if b.GainMap != nil && (len(b.GainMap.Payload) == 0 || len(b.GainMap.Metadata) == 0) {
		return fmt.Errorf("%w: bundle missing gain map payload or metadata", avifhdr.ErrInvalidArgument)
	}
	return nil
}

// PayloadSize is the total size of coded pixel data.
func (b *Bundle) PayloadSize() int {
	n := len(b.Payload) + len(b.Alpha)
	if b.GainMap != nil {
		n += len(b.GainMap.Payload)
	}
	return n
}

func describe(img *avifhdr.Image) Description {
	d := Description{
		Width:     img.Width,
		Height:    img.Height,
		Depth:     img.Depth,
		YUVFormat: img.YUVFormat.String(),
		FullRange: img.YUVRange == avifhdr.RangeFull,
		CICP: avifhdr.CICP{
			ColorPrimaries:          img.ColorPrimaries,
			TransferCharacteristics: img.TransferCharacteristics,
			MatrixCoefficients:      img.MatrixCoefficients,
		}.String(),
		ICC: img.ICC,
	}
	if !img.CLLI.IsZero() {
		clli := img.CLLI
		d.CLLI = &clli
	}
	return d
}

// image returns an image without planes matching the description.
func (d Description) image() (*avifhdr.Image, error) {
	format, err := avifhdr.ParsePixelFormat(d.YUVFormat)
	if err != nil {
		return nil, err
	}
	cicp, err := avifhdr.ParseCICP(d.CICP)
	if err != nil {
		return nil, err
	}
	img := avifhdr.NewImage(d.Width, d.Height, d.Depth, format)
	img.YUVRange = rangeOf(d.FullRange)
	img.ColorPrimaries = cicp.ColorPrimaries
	img.TransferCharacteristics = cicp.TransferCharacteristics
	img.MatrixCoefficients = cicp.MatrixCoefficients
	img.ICC = d.ICC
	if d.CLLI != nil {
		img.CLLI = *d.CLLI
	}
	return img, nil
}

func rangeOf(full bool) avifhdr.Range {
	if full {
		return avifhdr.RangeFull
	}
	return avifhdr.RangeLimited
}

func describeAlternate(gm *avifhdr.GainMap) Alternate {
	a := Alternate{
		CICP: avifhdr.CICP{
			ColorPrimaries:          gm.AltColorPrimaries,
			TransferCharacteristics: gm.AltTransferCharacteristics,
			MatrixCoefficients:      gm.AltMatrixCoefficients,
		}.String(),
		FullRange:  gm.AltYUVRange == avifhdr.RangeFull,
		Depth:      gm.AltDepth,
		PlaneCount: gm.AltPlaneCount,
		ICC:        gm.AltICC,
	}
	if !gm.AltCLLI.IsZero() {
		clli := gm.AltCLLI
		a.CLLI = &clli
	}
	return a
}

func (a Alternate) applyTo(gm *avifhdr.GainMap) error {
	cicp, err := avifhdr.ParseCICP(a.CICP)
	if err != nil {
		return err
	}
	gm.AltColorPrimaries = cicp.ColorPrimaries
	gm.AltTransferCharacteristics = cicp.TransferCharacteristics
	gm.AltMatrixCoefficients = cicp.MatrixCoefficients
	gm.AltYUVRange = rangeOf(a.FullRange)
	gm.AltDepth = a.Depth
	gm.AltPlaneCount = a.PlaneCount
	gm.AltICC = a.ICC
	if a.CLLI != nil {
		gm.AltCLLI = *a.CLLI
	}
	return nil
}
