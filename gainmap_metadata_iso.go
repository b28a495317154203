package avifhdr

import (
	"encoding/binary"
	"fmt"
)

const (
	isoIsMultiChannelMask = 1 << 7
	isoUseBaseColorMask   = 1 << 6
	isoCommonDenomMask    = 1 << 3
)

// MarshalISO encodes the gain map metadata as an ISO 21496-1 tone map payload.
// Rationals are written as stored, so a decode restores them bit for bit.
func (gm *GainMap) MarshalISO() ([]byte, error) {
	if gm == nil {
		return nil, fmt.Errorf("%w: gain map metadata missing", ErrInvalidArgument)
	}
	const (
		version       uint8  = 0
		minVersion    uint16 = 0
		writerVersion uint16 = 0
	)

	channelCount := gm.channelCount()
	flags := uint8(0)
	if channelCount == 3 {
		flags |= isoIsMultiChannelMask
	}
	if gm.UseBaseColorSpace {
		flags |= isoUseBaseColorMask
	}

	denom := gm.BaseHdrHeadroom.D
	useCommon := gm.AlternateHdrHeadroom.D == denom
	for c := 0; c < channelCount; c++ {
		if gm.GainMapMin[c].D != denom || gm.GainMapMax[c].D != denom || gm.GainMapGamma[c].D != denom ||
			gm.BaseOffset[c].D != denom || gm.AlternateOffset[c].D != denom {
			useCommon = false
		}
	}
	if useCommon {
		flags |= isoCommonDenomMask
	}

	out := make([]byte, 0, 128)
	writeU16 := func(v uint16) { out = binary.BigEndian.AppendUint16(out, v) }
	writeU32 := func(v uint32) { out = binary.BigEndian.AppendUint32(out, v) }
	writeS32 := func(v int32) { writeU32(uint32(v)) }

	out = append(out, version)
	writeU16(minVersion)
	writeU16(writerVersion)
	out = append(out, flags)

	if useCommon {
		writeU32(denom)
		writeU32(gm.BaseHdrHeadroom.N)
		writeU32(gm.AlternateHdrHeadroom.N)
		for c := 0; c < channelCount; c++ {
			writeS32(gm.GainMapMin[c].N)
			writeS32(gm.GainMapMax[c].N)
			writeU32(gm.GainMapGamma[c].N)
			writeS32(gm.BaseOffset[c].N)
			writeS32(gm.AlternateOffset[c].N)
		}
		return out, nil
	}

	writeU32(gm.BaseHdrHeadroom.N)
	writeU32(gm.BaseHdrHeadroom.D)
	writeU32(gm.AlternateHdrHeadroom.N)
	writeU32(gm.AlternateHdrHeadroom.D)
	for c := 0; c < channelCount; c++ {
		writeS32(gm.GainMapMin[c].N)
		writeU32(gm.GainMapMin[c].D)
		writeS32(gm.GainMapMax[c].N)
		writeU32(gm.GainMapMax[c].D)
		writeU32(gm.GainMapGamma[c].N)
		writeU32(gm.GainMapGamma[c].D)
		writeS32(gm.BaseOffset[c].N)
		writeU32(gm.BaseOffset[c].D)
		writeS32(gm.AlternateOffset[c].N)
		writeU32(gm.AlternateOffset[c].D)
	}
	return out, nil
}

// UnmarshalISO decodes an ISO 21496-1 tone map payload into the metadata fields of gm.
// The gain map image and alternate color description are not touched.
func (gm *GainMap) UnmarshalISO(in []byte) error {
	pos := 0
	errTruncated := fmt.Errorf("%w: iso metadata truncated", ErrInvalidArgument)
	need := func(n int) error {
		if pos+n > len(in) {
			return errTruncated
		}
		return nil
	}
	readU8 := func() (uint8, error) {
		if err := need(1); err != nil {
			return 0, err
		}
		v := in[pos]
		pos++
		return v, nil
	}
	readU16 := func() (uint16, error) {
		if err := need(2); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint16(in[pos:])
		pos += 2
		return v, nil
	}
	readU32 := func() (uint32, error) {
		if err := need(4); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint32(in[pos:])
		pos += 4
		return v, nil
	}
	readS32 := func() (int32, error) {
		v, err := readU32()
		return int32(v), err
	}

	version, err := readU8()
	if err != nil {
		return err
	}
	if version != 0 {
		return fmt.Errorf("%w: unsupported iso version %d", ErrNotImplemented, version)
	}
	minVer, err := readU16()
	if err != nil {
		return err
	}
	if minVer != 0 {
		return fmt.Errorf("%w: unsupported iso minimum version %d", ErrNotImplemented, minVer)
	}
	if _, err = readU16(); err != nil {
		return err
	}
	flags, err := readU8()
	if err != nil {
		return err
	}
	channelCount := 1
	if flags&isoIsMultiChannelMask != 0 {
		channelCount = 3
	}

	m := *gm
	m.UseBaseColorSpace = flags&isoUseBaseColorMask != 0

	if flags&isoCommonDenomMask != 0 {
		common, err := readU32()
		if err != nil {
			return err
		}
		if m.BaseHdrHeadroom.N, err = readU32(); err != nil {
			return err
		}
		if m.AlternateHdrHeadroom.N, err = readU32(); err != nil {
			return err
		}
		m.BaseHdrHeadroom.D, m.AlternateHdrHeadroom.D = common, common
		for c := 0; c < channelCount; c++ {
			if m.GainMapMin[c].N, err = readS32(); err != nil {
				return err
			}
			if m.GainMapMax[c].N, err = readS32(); err != nil {
				return err
			}
			if m.GainMapGamma[c].N, err = readU32(); err != nil {
				return err
			}
			if m.BaseOffset[c].N, err = readS32(); err != nil {
				return err
			}
			if m.AlternateOffset[c].N, err = readS32(); err != nil {
				return err
			}
			m.GainMapMin[c].D, m.GainMapMax[c].D, m.GainMapGamma[c].D = common, common, common
			m.BaseOffset[c].D, m.AlternateOffset[c].D = common, common
		}
	} else {
		for _, p := range []*uint32{
			&m.BaseHdrHeadroom.N, &m.BaseHdrHeadroom.D,
			&m.AlternateHdrHeadroom.N, &m.AlternateHdrHeadroom.D,
		} {
			if *p, err = readU32(); err != nil {
				return err
			}
		}
		for c := 0; c < channelCount; c++ {
			if m.GainMapMin[c].N, err = readS32(); err != nil {
				return err
			}
			if m.GainMapMin[c].D, err = readU32(); err != nil {
				return err
			}
			if m.GainMapMax[c].N, err = readS32(); err != nil {
				return err
			}
			if m.GainMapMax[c].D, err = readU32(); err != nil {
				return err
			}
			if m.GainMapGamma[c].N, err = readU32(); err != nil {
				return err
			}
			if m.GainMapGamma[c].D, err = readU32(); err != nil {
				return err
			}
			if m.BaseOffset[c].N, err = readS32(); err != nil {
				return err
			}
			if m.BaseOffset[c].D, err = readU32(); err != nil {
				return err
			}
			if m.AlternateOffset[c].N, err = readS32(); err != nil {
				return err
			}
			if m.AlternateOffset[c].D, err = readU32(); err != nil {
				return err
			}
		}
	}
	if channelCount == 1 {
		for c := 1; c < 3; c++ {
			m.GainMapMin[c], m.GainMapMax[c] = m.GainMapMin[0], m.GainMapMax[0]
			m.GainMapGamma[c] = m.GainMapGamma[0]
			m.BaseOffset[c], m.AlternateOffset[c] = m.BaseOffset[0], m.AlternateOffset[0]
		}
	}
	if m.BaseHdrHeadroom.D == 0 || m.AlternateHdrHeadroom.D == 0 {
		return fmt.Errorf("%w: iso metadata has a zero headroom denominator", ErrInvalidArgument)
	}
	*gm = m
	return nil
}
