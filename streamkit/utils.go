package streamkit

import (
	"bytes"
	"errors"
	"io"
)

// DefaultBufferSize is the buffer used when copying between streams.
const DefaultBufferSize = 1024

// ReadAll reads r until EOF into a ChunkStore and returns its contents.
func ReadAll(r io.Reader) ([]byte, error) {
	store := NewChunkStore(nil, 0)
	defer store.Close()
	if _, err := WriteAllTo(r, store); err != nil {
		return nil, err
	}
	return store.ToArray(), nil
}

// ReadString reads r until EOF and returns the content as a string.
func ReadString(r io.Reader) (string, error) {
	b, err := ReadAll(r)
	return string(b), err
}

// WriteAllTo copies r to w through a DefaultBufferSize buffer until r is
// exhausted and returns the number of bytes copied.
func WriteAllTo(r io.Reader, w io.Writer) (int64, error) {
	buf := make([]byte, DefaultBufferSize)
	var written int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m < n {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

const repeatChunkSize = 1024 * 32 // 32 KBytes

// RepeatReader yields ContentLength bytes of a fixed bit pattern. It is a
// cheap data source for exercising a pipeline.
type RepeatReader struct {
	ContentLength int64
	rs            []byte
	n             int64
}

func NewRepeatReader(size int64) *RepeatReader {
	if size < 0 {
		size = 0
	}
	seqChunk := bytes.Repeat([]byte{0xAA}, repeatChunkSize) // uniformly distributed sequence of bits
	return &RepeatReader{rs: seqChunk, ContentLength: size, n: size}
}

func (r *RepeatReader) Read(b []byte) (n int, err error) {
	if r.n <= 0 {
		return 0, io.EOF
	}
	if r.n < int64(len(r.rs)) {
		n = copy(b, r.rs[:r.n])
	} else {
		n = copy(b, r.rs)
	}
	r.n -= int64(n)
	return n, nil
}
