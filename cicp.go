package avifhdr

import (
	"fmt"
	"strconv"
	"strings"
)

// ColorPrimaries is a CICP color primaries code (ITU-T H.273).
type ColorPrimaries uint16

// Color primaries.
const (
	ColorPrimariesUnknown     ColorPrimaries = 0
	ColorPrimariesBT709       ColorPrimaries = 1
	ColorPrimariesUnspecified ColorPrimaries = 2
	ColorPrimariesBT470M      ColorPrimaries = 4
	ColorPrimariesBT470BG     ColorPrimaries = 5
	ColorPrimariesBT601       ColorPrimaries = 6
	ColorPrimariesSMPTE240    ColorPrimaries = 7
	ColorPrimariesGenericFilm ColorPrimaries = 8
	ColorPrimariesBT2020      ColorPrimaries = 9
	ColorPrimariesXYZ         ColorPrimaries = 10
	ColorPrimariesSMPTE431    ColorPrimaries = 11
	ColorPrimariesSMPTE432    ColorPrimaries = 12 // Display P3.
	ColorPrimariesEBU3213     ColorPrimaries = 22
)

// TransferCharacteristics is a CICP transfer characteristics code.
type TransferCharacteristics uint16

// Transfer characteristics.
const (
	TransferUnknown     TransferCharacteristics = 0
	TransferBT709       TransferCharacteristics = 1
	TransferUnspecified TransferCharacteristics = 2
	TransferBT470M      TransferCharacteristics = 4
	TransferBT470BG     TransferCharacteristics = 5
	TransferBT601       TransferCharacteristics = 6
	TransferSMPTE240    TransferCharacteristics = 7
	TransferLinear      TransferCharacteristics = 8
	TransferLog100      TransferCharacteristics = 9
	TransferLog100Sqrt  TransferCharacteristics = 10
	TransferIEC61966    TransferCharacteristics = 11
	TransferBT1361      TransferCharacteristics = 12
	TransferSRGB        TransferCharacteristics = 13
	TransferBT2020_10   TransferCharacteristics = 14
	TransferBT2020_12   TransferCharacteristics = 15
	TransferPQ          TransferCharacteristics = 16 // SMPTE ST 2084.
	TransferSMPTE428    TransferCharacteristics = 17
	TransferHLG         TransferCharacteristics = 18
)

// MatrixCoefficients is a CICP matrix coefficients code.
type MatrixCoefficients uint16

// Matrix coefficients.
const (
	MatrixIdentity         MatrixCoefficients = 0
	MatrixBT709            MatrixCoefficients = 1
	MatrixUnspecified      MatrixCoefficients = 2
	MatrixFCC              MatrixCoefficients = 4
	MatrixBT470BG          MatrixCoefficients = 5
	MatrixBT601            MatrixCoefficients = 6
	MatrixSMPTE240         MatrixCoefficients = 7
	MatrixYCgCo            MatrixCoefficients = 8
	MatrixBT2020NCL        MatrixCoefficients = 9
	MatrixBT2020CL         MatrixCoefficients = 10
	MatrixSMPTE2085        MatrixCoefficients = 11
	MatrixChromaDerivedNCL MatrixCoefficients = 12
	MatrixChromaDerivedCL  MatrixCoefficients = 13
	MatrixICtCp            MatrixCoefficients = 14
	MatrixYCgCoRe          MatrixCoefficients = 16
	MatrixYCgCoRo          MatrixCoefficients = 17
)

func (p ColorPrimaries) String() string {
	switch p {
	case ColorPrimariesBT709:
		return "BT.709"
	case ColorPrimariesUnspecified:
		return "unspecified"
	case ColorPrimariesBT470M:
		return "BT.470M"
	case ColorPrimariesBT470BG:
		return "BT.470BG"
	case ColorPrimariesBT601:
		return "BT.601"
	case ColorPrimariesSMPTE240:
		return "SMPTE 240"
	case ColorPrimariesGenericFilm:
		return "generic film"
	case ColorPrimariesBT2020:
		return "BT.2020"
	case ColorPrimariesXYZ:
		return "XYZ"
	case ColorPrimariesSMPTE431:
		return "SMPTE 431"
	case ColorPrimariesSMPTE432:
		return "Display P3"
	case ColorPrimariesEBU3213:
		return "EBU 3213"
	default:
		return "primaries(" + strconv.Itoa(int(p)) + ")"
	}
}

func (t TransferCharacteristics) String() string {
	switch t {
	case TransferBT709:
		return "BT.709"
	case TransferUnspecified:
		return "unspecified"
	case TransferBT470M:
		return "BT.470M"
	case TransferBT470BG:
		return "BT.470BG"
	case TransferBT601:
		return "BT.601"
	case TransferSMPTE240:
		return "SMPTE 240"
	case TransferLinear:
		return "linear"
	case TransferLog100:
		return "log100"
	case TransferLog100Sqrt:
		return "log100 sqrt10"
	case TransferIEC61966:
		return "IEC 61966-2-4"
	case TransferBT1361:
		return "BT.1361"
	case TransferSRGB:
		return "sRGB"
	case TransferBT2020_10:
		return "BT.2020 10-bit"
	case TransferBT2020_12:
		return "BT.2020 12-bit"
	case TransferPQ:
		return "PQ"
	case TransferSMPTE428:
		return "SMPTE 428"
	case TransferHLG:
		return "HLG"
	default:
		return "transfer(" + strconv.Itoa(int(t)) + ")"
	}
}

func (m MatrixCoefficients) String() string {
	switch m {
	case MatrixIdentity:
		return "identity"
	case MatrixBT709:
		return "BT.709"
	case MatrixUnspecified:
		return "unspecified"
	case MatrixFCC:
		return "FCC"
	case MatrixBT470BG:
		return "BT.470BG"
	case MatrixBT601:
		return "BT.601"
	case MatrixSMPTE240:
		return "SMPTE 240"
	case MatrixYCgCo:
		return "YCgCo"
	case MatrixBT2020NCL:
		return "BT.2020 NCL"
	case MatrixBT2020CL:
		return "BT.2020 CL"
	case MatrixSMPTE2085:
		return "SMPTE 2085"
	case MatrixChromaDerivedNCL:
		return "chroma derived NCL"
	case MatrixChromaDerivedCL:
		return "chroma derived CL"
	case MatrixICtCp:
		return "ICtCp"
	case MatrixYCgCoRe:
		return "YCgCo-Re"
	case MatrixYCgCoRo:
		return "YCgCo-Ro"
	default:
		return "matrix(" + strconv.Itoa(int(m)) + ")"
	}
}

// CICP groups the three code points that describe a color space.
type CICP struct {
	ColorPrimaries          ColorPrimaries
	TransferCharacteristics TransferCharacteristics
	MatrixCoefficients      MatrixCoefficients
}

func (c CICP) String() string {
	return fmt.Sprintf("%d/%d/%d", c.ColorPrimaries, c.TransferCharacteristics, c.MatrixCoefficients)
}

// ParseCICP parses "P/T/M" where each part is a decimal CICP code.
func ParseCICP(s string) (CICP, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return CICP{}, fmt.Errorf("%w: cicp %q must be P/T/M", ErrInvalidArgument, s)
	}
	var v [3]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return CICP{}, fmt.Errorf("%w: cicp %q: %v", ErrInvalidArgument, s, err)
		}
		v[i] = uint16(n)
	}
	return CICP{
		ColorPrimaries:          ColorPrimaries(v[0]),
		TransferCharacteristics: TransferCharacteristics(v[1]),
		MatrixCoefficients:      MatrixCoefficients(v[2]),
	}, nil
}
