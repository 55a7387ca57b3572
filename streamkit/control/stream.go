package control

import "io"

// TransferFunc moves up to count bytes between buf[offset:offset+count]
// and some backing store. It may move fewer bytes than requested, never
// more and never a negative amount.
type TransferFunc func(buf []byte, offset, count int) (int, error)

// ExitPredicate decides, from the bytes moved by a sub-call and a reference
// value, whether a decorated operation ends early. It must be pure.
type ExitPredicate func(moved, reference int) bool

// NeverExit never ends an operation early.
func NeverExit(int, int) bool { return false }

// ExitOnShort ends an operation once a sub-call moved less than reference.
func ExitOnShort(moved, reference int) bool { return moved < reference }

// Stream is a random-access byte stream. Implementations advertise what
// they support through Capabilities and fail the remaining methods with an
// unsupported-operation error.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	Capabilities() Capability
	Len() int64
	SetLength(value int64) error
	Position() int64
	SetPosition(pos int64) error
}

// ReaderFunc adapts an io.Reader to a TransferFunc.
func ReaderFunc(r io.Reader) TransferFunc {
	return func(buf []byte, offset, count int) (int, error) {
		return r.Read(buf[offset : offset+count])
	}
}

// WriterFunc adapts an io.Writer to a TransferFunc.
func WriterFunc(w io.Writer) TransferFunc {
	return func(buf []byte, offset, count int) (int, error) {
		return w.Write(buf[offset : offset+count])
	}
}
