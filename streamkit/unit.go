package streamkit

import (
	"strconv"
	"strings"
)

type UnitType int

// IEC and SI, auto scaled
const (
	UnitTypeDecimalBits = UnitType(iota)
	UnitTypeDecimalBytes
	UnitTypeBinaryBits
	UnitTypeBinaryBytes
)

type scale struct {
	factor float64
	suffix string
}

// Ascending; the first entry is used below the second one's factor.
var unitScales = map[UnitType][]scale{
	UnitTypeDecimalBits:  {{1, "bps"}, {1e3, "Kbps"}, {1e6, "Mbps"}, {1e9, "Gbps"}},
	UnitTypeDecimalBytes: {{1, "B/s"}, {1e3, "KB/s"}, {1e6, "MB/s"}, {1e9, "GB/s"}},
	UnitTypeBinaryBits:   {{1 << 10, "Kibps"}, {1 << 20, "Mibps"}, {1 << 30, "Gibps"}},
	UnitTypeBinaryBytes:  {{1 << 10, "KiB/s"}, {1 << 20, "MiB/s"}, {1 << 30, "GiB/s"}},
}

// ByteRate is a speed in bytes per second.
type ByteRate float64

var globalByteRateUnit = UnitTypeDecimalBytes

func (r ByteRate) String() string {
	return r.Byte(globalByteRateUnit)
}

// SetUnit sets the unit used by ByteRate.String.
func SetUnit(unit UnitType) {
	globalByteRateUnit = unit
}

// ParseUnit maps "bits", "bytes", "binary-bits" and "binary-bytes" to a
// UnitType. Anything else yields UnitTypeDecimalBytes.
func ParseUnit(str string) UnitType {
	switch strings.ToLower(str) {
	case "bits", "decimal-bits":
		return UnitTypeDecimalBits
	case "binary-bits", "ibits":
		return UnitTypeBinaryBits
	case "binary-bytes", "ibytes":
		return UnitTypeBinaryBytes
	default:
		return UnitTypeDecimalBytes
	}
}

// Byte formats the rate in the given unit family, scaled to the largest
// unit that keeps the printed value at or above one.
func (r ByteRate) Byte(unit UnitType) string {
	if r < 0 {
		return "N/A"
	}
	return format(float64(r), unit)
}

func format(byteRate float64, unit UnitType) string {
	scales, ok := unitScales[unit]
	if !ok {
		unit, scales = UnitTypeDecimalBytes, unitScales[UnitTypeDecimalBytes]
	}
	val := byteRate
	if unit == UnitTypeDecimalBits || unit == UnitTypeBinaryBits {
		val *= 8
	}
	s := scales[0]
	for _, next := range scales[1:] {
		if val < next.factor {
			break
		}
		s = next
	}
	return strconv.FormatFloat(val/s.factor, 'f', 2, 64) + " " + s.suffix
}
