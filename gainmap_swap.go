package avifhdr

import "fmt"

// SwapBase renders the alternate rendition of img and returns it as the new base,
// carrying the same gain map with base and alternate roles exchanged.
//
// depth and format describe the new base planes. The original base description moves
// into the alternate fields of the returned gain map.
func SwapBase(img *Image, depth int, format PixelFormat) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidArgument)
	}
	gm := img.GainMap
	if err := gm.validate(); err != nil {
		return nil, err
	}

	swapped := &Image{}
	swapped.copyMetadata(img)
	swapped.Depth = depth
	swapped.YUVFormat = format

	headroom := float32(gm.AlternateHdrHeadroom.N) / float32(gm.AlternateHdrHeadroom.D)
	toneMappingToSDR := headroom == 0

	swapped.ColorPrimaries = gm.AltColorPrimaries
	if swapped.ColorPrimaries == ColorPrimariesUnspecified {
		swapped.ColorPrimaries = img.ColorPrimaries
	}
	swapped.TransferCharacteristics = gm.AltTransferCharacteristics
	if swapped.TransferCharacteristics == TransferUnspecified {
		swapped.TransferCharacteristics = TransferPQ
		if toneMappingToSDR {
			swapped.TransferCharacteristics = TransferSRGB
		}
	}
	swapped.MatrixCoefficients = gm.AltMatrixCoefficients
	if swapped.MatrixCoefficients == MatrixUnspecified {
		swapped.MatrixCoefficients = img.MatrixCoefficients
	}
	swapped.YUVRange = gm.AltYUVRange
	swapped.ICC = append([]byte(nil), gm.AltICC...)
	if err := swapped.validate(); err != nil {
		return nil, err
	}

	rgbImg := &RGBImage{Depth: rgbDepthFor(swapped), Format: RGBFormatRGB}
	if img.Alpha != nil {
		rgbImg.Format = RGBFormatRGBA
	}

	clli := gm.AltCLLI
	computeCLLI := !toneMappingToSDR && clli.IsZero()
	var clliOut *ContentLightLevel
	if computeCLLI {
		clliOut = &clli
	}
	if err := ApplyGainMap(img, gm, headroom, swapped.ColorPrimaries, swapped.TransferCharacteristics, rgbImg, clliOut); err != nil {
		return nil, fmt.Errorf("tone mapping: %w", err)
	}
	if err := swapped.FromRGB(rgbImg); err != nil {
		return nil, fmt.Errorf("converting to yuv: %w", err)
	}
	swapped.CLLI = clli

	sgm := gm.Clone()
	sgm.AltICC = append([]byte(nil), img.ICC...)
	sgm.AltColorPrimaries = img.ColorPrimaries
	sgm.AltTransferCharacteristics = img.TransferCharacteristics
	sgm.AltMatrixCoefficients = img.MatrixCoefficients
	sgm.AltYUVRange = img.YUVRange
	sgm.AltDepth = img.Depth
	sgm.AltPlaneCount = img.PlaneCount()
	sgm.AltCLLI = img.CLLI

	sgm.UseBaseColorSpace = !sgm.UseBaseColorSpace
	sgm.BaseHdrHeadroom, sgm.AlternateHdrHeadroom = sgm.AlternateHdrHeadroom, sgm.BaseHdrHeadroom
	sgm.BaseOffset, sgm.AlternateOffset = sgm.AlternateOffset, sgm.BaseOffset
	swapped.GainMap = sgm

	Logger().Debug("swapped base",
		"headroom", headroom, "depth", depth, "format", format.String(),
		"primaries", swapped.ColorPrimaries.String(), "transfer", swapped.TransferCharacteristics.String())
	return swapped, nil
}

// SwapBaseDefaults picks the depth and format SwapBase uses when the caller has no preference.
func SwapBaseDefaults(img *Image) (depth int, format PixelFormat) {
	if img == nil || img.GainMap == nil {
		return 0, PixelFormatNone
	}
	gm := img.GainMap
	depth = gm.AltDepth
	if depth == 0 {
		depth = img.Depth
		if gm.Image != nil {
			depth = max(depth, gm.Image.Depth)
		}
	}
	format = PixelFormatYUV444
	if gm.AltPlaneCount == 1 {
		format = PixelFormatYUV420
	}
	return depth, format
}
