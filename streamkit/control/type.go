package control

import "strings"

// Capability advertises which operations a stream supports.
type Capability int32

const CapabilityNone = 0

const (
	CanRead Capability = 1 << iota
	CanWrite
	CanSeek
	CanLength
	CanPosition
)

// CapabilityAll is what a fully random-access stream offers.
const CapabilityAll = CanRead | CanWrite | CanSeek | CanLength | CanPosition

// Assert reports whether every capability in c is present in p.
func (p Capability) Assert(c Capability) bool {
	return p&c == c
}

func (p Capability) String() string {
	if p == CapabilityNone {
		return "none"
	}
	var names []string
	for _, item := range []struct {
		c    Capability
		name string
	}{
		{CanRead, "read"},
		{CanWrite, "write"},
		{CanSeek, "seek"},
		{CanLength, "length"},
		{CanPosition, "position"},
	} {
		if p.Assert(item.c) {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, "|")
}

// Direction tells which side of a stream a decorator operates on.
type Direction int32

const (
	DirectionRead Direction = 1 << iota
	DirectionWrite
)

// ParseDirection maps "read", "write" or "both" (any case) to a Direction.
// Unknown input yields DirectionRead.
func ParseDirection(str string) Direction {
	switch strings.ToLower(str) {
	case "write":
		return DirectionWrite
	case "both", "rw":
		return DirectionRead | DirectionWrite
	default:
		return DirectionRead
	}
}

func (d Direction) Assert(other Direction) bool {
	return d&other == other
}

func (d Direction) String() string {
	switch d {
	case DirectionRead:
		return "read"
	case DirectionWrite:
		return "write"
	case DirectionRead | DirectionWrite:
		return "both"
	default:
		return "none"
	}
}
