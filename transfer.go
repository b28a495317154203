package avifhdr

import "math"

const (
	sdrWhiteNits = 203.0
	pqMaxNits    = 10000.0
	hlgMaxNits   = 1000.0
)

// transferFunc converts between encoded signal and linear light where 1.0 is SDR diffuse white.
type transferFunc struct {
	toLinear   func(float32) float32
	fromLinear func(float32) float32
}

func transferFor(tc TransferCharacteristics) transferFunc {
	switch tc {
	case TransferBT709, TransferBT601, TransferBT2020_10, TransferBT2020_12, TransferBT1361, TransferIEC61966:
		return transferFunc{toLinear: bt709InvOetf, fromLinear: bt709Oetf}
	case TransferBT470M:
		return gammaTransfer(2.2)
	case TransferBT470BG:
		return gammaTransfer(2.8)
	case TransferSMPTE240:
		return transferFunc{toLinear: smpte240InvOetf, fromLinear: smpte240Oetf}
	case TransferLinear:
		return transferFunc{toLinear: func(v float32) float32 { return v }, fromLinear: func(v float32) float32 { return v }}
	case TransferLog100:
		return transferFunc{toLinear: log100InvOetf, fromLinear: log100Oetf}
	case TransferLog100Sqrt:
		return transferFunc{toLinear: log100SqrtInvOetf, fromLinear: log100SqrtOetf}
	case TransferPQ:
		return transferFunc{
			toLinear:   func(v float32) float32 { return pqEotf(v) * (pqMaxNits / sdrWhiteNits) },
			fromLinear: func(v float32) float32 { return pqInvEotf(v * (sdrWhiteNits / pqMaxNits)) },
		}
	case TransferSMPTE428:
		return transferFunc{toLinear: smpte428InvOetf, fromLinear: smpte428Oetf}
	case TransferHLG:
		return transferFunc{
			toLinear:   func(v float32) float32 { return hlgInvOetf(v) * (hlgMaxNits / sdrWhiteNits) },
			fromLinear: func(v float32) float32 { return hlgOetf(v * (sdrWhiteNits / hlgMaxNits)) },
		}
	default:
		return transferFunc{toLinear: srgbInvOetf, fromLinear: srgbOetf}
	}
}

// isHDRTransfer reports whether the curve can carry values above SDR white.
func isHDRTransfer(tc TransferCharacteristics) bool {
	return tc == TransferPQ || tc == TransferHLG || tc == TransferLinear
}

func srgbInvOetf(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return powf((v+0.055)/1.055, 2.4)
}

func srgbOetf(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*powf(v, 1.0/2.4) - 0.055
}

func bt709Oetf(v float32) float32 {
	if v < 0.018053968 {
		return 4.5 * v
	}
	return 1.0992968*powf(v, 0.45) - 0.0992968
}

func bt709InvOetf(v float32) float32 {
	if v < 0.08124286 {
		return v / 4.5
	}
	return powf((v+0.0992968)/1.0992968, 1/0.45)
}

func gammaTransfer(g float32) transferFunc {
	return transferFunc{
		toLinear:   func(v float32) float32 { return powf(max(v, 0), g) },
		fromLinear: func(v float32) float32 { return powf(max(v, 0), 1/g) },
	}
}

func smpte240Oetf(v float32) float32 {
	if v < 0.0228 {
		return 4 * v
	}
	return 1.1115*powf(v, 0.45) - 0.1115
}

func smpte240InvOetf(v float32) float32 {
	if v < 0.0913 {
		return v / 4
	}
	return powf((v+0.1115)/1.1115, 1/0.45)
}

func log100Oetf(v float32) float32 {
	if v < 0.01 {
		return 0
	}
	return 1 + float32(math.Log10(float64(v)))/2
}

func log100InvOetf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Pow(10, 2*float64(v-1)))
}

const log100SqrtMin = 0.0031622776 // sqrt(10) / 1000

func log100SqrtOetf(v float32) float32 {
	if v < log100SqrtMin {
		return 0
	}
	return 1 + float32(math.Log10(float64(v)))/2.5
}

func log100SqrtInvOetf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Pow(10, 2.5*float64(v-1)))
}

func smpte428Oetf(v float32) float32 {
	return powf(max(v, 0)*48/52.37, 1/2.6)
}

func smpte428InvOetf(v float32) float32 {
	return powf(max(v, 0), 2.6) * 52.37 / 48
}

const (
	pqM1 = 2610.0 / 16384
	pqM2 = 2523.0 / 4096 * 128
	pqC1 = 3424.0 / 4096
	pqC2 = 2413.0 / 4096 * 32
	pqC3 = 2392.0 / 4096 * 32
)

// pqEotf maps a PQ signal to linear light normalized to 10000 nits.
func pqEotf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	p := math.Pow(float64(v), 1/pqM2)
	n := math.Max(p-pqC1, 0)
	return float32(math.Pow(n/(pqC2-pqC3*p), 1/pqM1))
}

func pqInvEotf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	p := math.Pow(float64(v), pqM1)
	return float32(math.Pow((pqC1+pqC2*p)/(1+pqC3*p), pqM2))
}

const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

func hlgOetf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	if v <= 1.0/12 {
		return float32(math.Sqrt(3 * float64(v)))
	}
	return float32(hlgA*math.Log(12*float64(v)-hlgB) + hlgC)
}

func hlgInvOetf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v <= 0.5 {
		return v * v / 3
	}
	return float32((math.Exp((float64(v)-hlgC)/hlgA) + hlgB) / 12)
}
