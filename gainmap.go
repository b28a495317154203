package avifhdr

import (
	"fmt"
	"math"
)

// GainMap describes how to turn the base rendition into the alternate one.
//
// Headrooms are log2 of the display peak relative to SDR white. Min, max, gamma and
// offsets are per channel; single-channel maps repeat channel 0.
type GainMap struct {
	Image *Image

	BaseHdrHeadroom      UFraction
	AlternateHdrHeadroom UFraction

	GainMapMin      [3]Fraction
	GainMapMax      [3]Fraction
	GainMapGamma    [3]UFraction
	BaseOffset      [3]Fraction
	AlternateOffset [3]Fraction

	UseBaseColorSpace bool

	AltICC                     []byte
	AltColorPrimaries          ColorPrimaries
	AltTransferCharacteristics TransferCharacteristics
	AltMatrixCoefficients      MatrixCoefficients
	AltYUVRange                Range
	AltDepth                   int
	AltPlaneCount              int
	AltCLLI                    ContentLightLevel
}

// NewGainMap returns a gain map with neutral metadata: unit gamma, zero gain range,
// 1/64 offsets and headrooms of 0 and 1.
func NewGainMap() *GainMap {
	gm := &GainMap{
		BaseHdrHeadroom:            UFraction{N: 0, D: 1},
		AlternateHdrHeadroom:       UFraction{N: 1, D: 1},
		AltColorPrimaries:          ColorPrimariesUnspecified,
		AltTransferCharacteristics: TransferUnspecified,
		AltMatrixCoefficients:      MatrixUnspecified,
		AltYUVRange:                RangeFull,
	}
	for c := 0; c < 3; c++ {
		gm.GainMapMin[c] = Fraction{N: 0, D: 1}
		gm.GainMapMax[c] = Fraction{N: 0, D: 1}
		gm.GainMapGamma[c] = UFraction{N: 1, D: 1}
		gm.BaseOffset[c] = Fraction{N: 1, D: 64}
		gm.AlternateOffset[c] = Fraction{N: 1, D: 64}
	}
	return gm
}

// Clone returns a deep copy of the gain map and its image.
func (gm *GainMap) Clone() *GainMap {
	c := *gm
	c.AltICC = append([]byte(nil), gm.AltICC...)
	if gm.Image != nil {
		c.Image = gm.Image.Clone()
	}
	return &c
}

// CapHeadroom lowers both headrooms to maxHeadroom when they exceed it.
// A zero cap leaves the headrooms untouched. The cap is converted to a fraction
// only when a headroom is actually clamped.
func (gm *GainMap) CapHeadroom(maxHeadroom float64) error {
	if maxHeadroom == 0 {
		return nil
	}
	if maxHeadroom < 0 || math.IsNaN(maxHeadroom) {
		return fmt.Errorf("%w: max headroom %v", ErrInvalidArgument, maxHeadroom)
	}
	base, alt := gm.BaseHdrHeadroom, gm.AlternateHdrHeadroom
	capBase, capAlt := exceeds(maxHeadroom, base), exceeds(maxHeadroom, alt)
	if !capBase && !capAlt {
		return nil
	}
	capped, err := DoubleToUnsignedFraction(maxHeadroom)
	if err != nil {
		return err
	}
	if capBase {
		base = capped
	}
	if capAlt {
		alt = capped
	}
	gm.BaseHdrHeadroom, gm.AlternateHdrHeadroom = base, alt
	return nil
}

// exceeds compares h against a cap by cross multiplication to stay exact.
func exceeds(maxHeadroom float64, h UFraction) bool {
	return maxHeadroom*float64(h.D) < float64(h.N)
}

// workingPrimaries is the color space gain map math runs in, for both compute and apply.
// An alternate without usable primaries falls back to the base.
func (gm *GainMap) workingPrimaries(base ColorPrimaries) ColorPrimaries {
	p := gm.AltColorPrimaries
	if gm.UseBaseColorSpace || p == ColorPrimariesUnspecified || p == ColorPrimariesUnknown {
		return base
	}
	return p
}

func (gm *GainMap) channelCount() int {
	if gm.allChannelsIdentical() {
		return 1
	}
	return 3
}

func (gm *GainMap) allChannelsIdentical() bool {
	for c := 1; c < 3; c++ {
		if gm.GainMapMin[c] != gm.GainMapMin[0] || gm.GainMapMax[c] != gm.GainMapMax[0] ||
			gm.GainMapGamma[c] != gm.GainMapGamma[0] || gm.BaseOffset[c] != gm.BaseOffset[0] ||
			gm.AlternateOffset[c] != gm.AlternateOffset[0] {
			return false
		}
	}
	return true
}

func (gm *GainMap) validate() error {
	if gm == nil || gm.Image == nil {
		return fmt.Errorf("%w: missing gain map", ErrInvalidArgument)
	}
	if gm.BaseHdrHeadroom.D == 0 || gm.AlternateHdrHeadroom.D == 0 {
		return fmt.Errorf("%w: gain map headroom with zero denominator", ErrInvalidArgument)
	}
	for c := 0; c < 3; c++ {
		if gm.GainMapMin[c].D == 0 || gm.GainMapMax[c].D == 0 || gm.GainMapGamma[c].D == 0 ||
			gm.BaseOffset[c].D == 0 || gm.AlternateOffset[c].D == 0 {
			return fmt.Errorf("%w: gain map channel %d has a zero denominator", ErrInvalidArgument, c)
		}
		if gm.GainMapGamma[c].N == 0 {
			return fmt.Errorf("%w: gain map channel %d has zero gamma", ErrInvalidArgument, c)
		}
	}
	return nil
}
