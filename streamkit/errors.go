package streamkit

import (
	"errors"
	"fmt"
)

var (
	// ErrBounds reports a buffer window that does not fit its slice.
	ErrBounds = errors.New("streamkit: buffer window out of bounds")
	// ErrCapacity reports growth of a store that cannot grow.
	ErrCapacity = errors.New("streamkit: capacity exceeded")
	// ErrOutOfRange reports a segment count beyond MaxSegments. It matches
	// ErrCapacity as well.
	ErrOutOfRange = fmt.Errorf("streamkit: segment count out of range: %w", ErrCapacity)
	// ErrInvalidPosition reports a seek or length that would be negative.
	ErrInvalidPosition = errors.New("streamkit: invalid position")
	// ErrUnsupported reports an operation the stream does not advertise.
	ErrUnsupported = errors.New("streamkit: unsupported operation")
	// ErrClosed reports use of a closed store.
	ErrClosed = errors.New("streamkit: stream closed")
	// ErrUnknownCompression reports an unknown compression algorithm name.
	ErrUnknownCompression = errors.New("streamkit: unknown compression algorithm")
)

func checkWindow(buf []byte, offset, count int) error {
	if offset < 0 || count < 0 || offset+count > len(buf) || offset+count < 0 {
		return fmt.Errorf("%w: buffer holds %d bytes, offset %d count %d", ErrBounds, len(buf), offset, count)
	}
	return nil
}
