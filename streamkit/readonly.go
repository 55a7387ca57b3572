package streamkit

import (
	"fmt"
	"io"

	"github.com/showwin/streamkit/streamkit/control"
)

// ReadOnlyStream is a seekable stream over a byte slice it never modifies.
type ReadOnlyStream struct {
	data     []byte
	position int64
}

func NewReadOnlyStream(data []byte) *ReadOnlyStream {
	return &ReadOnlyStream{data: data}
}

func (r *ReadOnlyStream) Capabilities() control.Capability {
	return control.CanRead | control.CanSeek | control.CanLength | control.CanPosition
}

func (r *ReadOnlyStream) Len() int64 { return int64(len(r.data)) }

func (r *ReadOnlyStream) Position() int64 { return r.position }

func (r *ReadOnlyStream) SetPosition(pos int64) error {
	_, err := r.Seek(pos, io.SeekStart)
	return err
}

func (r *ReadOnlyStream) Read(p []byte) (int, error) {
	if r.position >= int64(len(r.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.data[r.position:])
	r.position += int64(n)
	return n, nil
}

// Seek uses the same end-relative convention as ChunkStore.
func (r *ReadOnlyStream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.position + offset
	case io.SeekEnd:
		pos = int64(len(r.data)) - offset
	default:
		return r.position, fmt.Errorf("%w: unknown whence %d", ErrInvalidPosition, whence)
	}
	if pos < 0 {
		return r.position, fmt.Errorf("%w: seek to %d", ErrInvalidPosition, pos)
	}
	r.position = pos
	return pos, nil
}

func (r *ReadOnlyStream) Write([]byte) (int, error) {
	return 0, fmt.Errorf("%w: write on read-only stream", ErrUnsupported)
}

func (r *ReadOnlyStream) SetLength(int64) error {
	return fmt.Errorf("%w: set length on read-only stream", ErrUnsupported)
}

func (r *ReadOnlyStream) Close() error { return nil }
