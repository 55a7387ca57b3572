package streamkit

import (
	"fmt"
	"io"
	"math"

	"github.com/showwin/streamkit/streamkit/control"
	"go.uber.org/zap"
)

// MaxSegments is the largest number of segments a ChunkStore can address.
const MaxSegments = math.MaxInt32

// ChunkStore is an in-memory random-access stream built from fixed-size
// segments taken from a SegmentPool. Segments are only acquired when a
// read or write first touches them, so the store never needs one large
// contiguous allocation and growing it copies no data.
//
// Regions that were never written read back as zeros.
//
// A ChunkStore is not safe for concurrent use.
type ChunkStore struct {
	pool      *SegmentPool
	chunkSize int
	segments  [][]byte // nil entries are not materialized yet
	capacity  int64
	position  int64
	fixedSize bool
	closed    bool
	logger    *zap.Logger
}

// StoreOption configures a ChunkStore.
type StoreOption func(*ChunkStore)

// WithFixedSize forbids the store to allocate more segments than it was
// created with.
func WithFixedSize() StoreOption {
	return func(cs *ChunkStore) {
		cs.fixedSize = true
	}
}

// WithStoreLogger sets the logger of a ChunkStore.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(cs *ChunkStore) {
		cs.logger = l
	}
}

// NewChunkStore creates an empty store with room for numberOfChunks
// segments of pool.ChunkSize() bytes. A nil pool gets a private pool of
// DefaultChunkSize segments.
func NewChunkStore(pool *SegmentPool, numberOfChunks int, opts ...StoreOption) *ChunkStore {
	if pool == nil {
		pool = NewSegmentPool(DefaultChunkSize)
	}
	if numberOfChunks <= 0 {
		numberOfChunks = DefaultNumberOfChunks
	}
	cs := &ChunkStore{
		pool:      pool,
		chunkSize: pool.ChunkSize(),
		segments:  pool.getIndex(numberOfChunks),
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

func (cs *ChunkStore) log() *zap.Logger {
	if cs.logger != nil {
		return cs.logger
	}
	return debugLogger()
}

func (cs *ChunkStore) Capabilities() control.Capability {
	return control.CapabilityAll
}

// Len returns the logical length of the store.
func (cs *ChunkStore) Len() int64 { return cs.capacity }

func (cs *ChunkStore) Position() int64 { return cs.position }

func (cs *ChunkStore) SetPosition(pos int64) error {
	_, err := cs.Seek(pos, io.SeekStart)
	return err
}

// ChunkSize returns the segment size in bytes.
func (cs *ChunkStore) ChunkSize() int { return cs.chunkSize }

// Segments returns the number of segment slots, materialized or not.
func (cs *ChunkStore) Segments() int { return len(cs.segments) }

// Read implements io.Reader. It returns io.EOF once the position is at or
// past the end of the store.
func (cs *ChunkStore) Read(p []byte) (int, error) {
	if cs.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := cs.ReadRange(p, 0, len(p))
	if err == nil && n == 0 {
		return 0, io.EOF
	}
	return n, err
}

// ReadRange copies up to count bytes from the current position into
// buf[offset:]. Fewer bytes are returned when the store ends first.
func (cs *ChunkStore) ReadRange(buf []byte, offset, count int) (int, error) {
	if cs.closed {
		return 0, ErrClosed
	}
	if err := checkWindow(buf, offset, count); err != nil {
		return 0, err
	}
	if remaining := cs.capacity - cs.position; int64(count) > remaining {
		count = int(max(remaining, 0))
	}
	read := 0
	cs.forEachSlice(cs.position, int64(count), func(seg []byte) {
		n := copy(buf[offset:], seg)
		read += n
		offset += n
		cs.position += int64(n)
	})
	return read, nil
}

// Write implements io.Writer.
func (cs *ChunkStore) Write(p []byte) (int, error) {
	if err := cs.WriteRange(p, 0, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteRange copies buf[offset:offset+count] to the current position,
// growing the store when the write runs past its end.
func (cs *ChunkStore) WriteRange(buf []byte, offset, count int) error {
	if cs.closed {
		return ErrClosed
	}
	if err := checkWindow(buf, offset, count); err != nil {
		return err
	}
	if end := cs.position + int64(count); end > cs.capacity {
		if err := cs.SetLength(end); err != nil {
			return err
		}
	}
	cs.forEachSlice(cs.position, int64(count), func(seg []byte) {
		n := copy(seg, buf[offset:offset+count])
		offset += n
		count -= n
		cs.position += int64(n)
	})
	return nil
}

// Seek implements io.Seeker. With io.SeekEnd the offset is subtracted from
// the length, so Seek(2, io.SeekEnd) lands two bytes before the end.
// Seeking never allocates; a later write past the end grows the store.
func (cs *ChunkStore) Seek(offset int64, whence int) (int64, error) {
	if cs.closed {
		return 0, ErrClosed
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = cs.position + offset
	case io.SeekEnd:
		pos = cs.capacity - offset
	default:
		return cs.position, fmt.Errorf("%w: unknown whence %d", ErrInvalidPosition, whence)
	}
	if pos < 0 {
		return cs.position, fmt.Errorf("%w: seek to %d", ErrInvalidPosition, pos)
	}
	cs.position = pos
	return pos, nil
}

// SetLength changes the logical length. Growing past the allocated
// segment slots enlarges the slot array unless the store has a fixed size.
func (cs *ChunkStore) SetLength(value int64) error {
	if cs.closed {
		return ErrClosed
	}
	if value < 0 {
		return fmt.Errorf("%w: length %d", ErrInvalidPosition, value)
	}
	needed := (value + int64(cs.chunkSize) - 1) / int64(cs.chunkSize)
	if needed > int64(len(cs.segments)) {
		if err := cs.growSegments(needed); err != nil {
			return err
		}
	}
	if value > cs.capacity {
		cs.zeroRange(cs.capacity, value)
	}
	cs.capacity = value
	return nil
}

func (cs *ChunkStore) growSegments(needed int64) error {
	if cs.fixedSize {
		return fmt.Errorf("%w: fixed-size store holds %d segments, %d needed", ErrCapacity, len(cs.segments), needed)
	}
	if needed > MaxSegments {
		return fmt.Errorf("%w: %d segments requested", ErrOutOfRange, needed)
	}
	size := max(needed, 2*int64(len(cs.segments)))
	size = min(size, MaxSegments)
	grown := cs.pool.getIndex(int(size))
	copy(grown, cs.segments)
	cs.pool.putIndex(cs.segments)
	cs.segments = grown
	cs.log().Debug("chunk store grown", zap.Int64("segments", size), zap.Int("chunk_size", cs.chunkSize))
	return nil
}

// zeroRange clears bytes in [from, to) of segments that already exist.
// A shrink followed by a grow would otherwise expose stale content.
func (cs *ChunkStore) zeroRange(from, to int64) {
	for from < to {
		idx := from / int64(cs.chunkSize)
		inner := from % int64(cs.chunkSize)
		n := min(int64(cs.chunkSize)-inner, to-from)
		if seg := cs.segments[idx]; seg != nil {
			clear(seg[inner : inner+n])
		}
		from += n
	}
}

// ToArray returns a contiguous copy of the whole store.
func (cs *ChunkStore) ToArray() []byte {
	out := make([]byte, 0, cs.capacity)
	if cs.closed {
		return out
	}
	cs.forEachSlice(0, cs.capacity, func(seg []byte) {
		out = append(out, seg...)
	})
	return out
}

// WriteTo implements io.WriterTo. It writes everything from the current
// position to the end, segment by segment, and advances the position.
func (cs *ChunkStore) WriteTo(w io.Writer) (int64, error) {
	if cs.closed {
		return 0, ErrClosed
	}
	var written int64
	var err error
	remaining := max(cs.capacity-cs.position, 0)
	cs.forEachSlice(cs.position, remaining, func(seg []byte) {
		if err != nil {
			return
		}
		var n int
		n, err = w.Write(seg)
		written += int64(n)
	})
	cs.position += written
	return written, err
}

// Close returns every segment and the slot array to the pool. Closing a
// closed store is a no-op.
func (cs *ChunkStore) Close() error {
	if cs.closed {
		return nil
	}
	for i, seg := range cs.segments {
		if seg != nil {
			cs.pool.Put(seg)
			cs.segments[i] = nil
		}
	}
	cs.pool.putIndex(cs.segments)
	cs.segments = nil
	cs.capacity, cs.position = 0, 0
	cs.closed = true
	return nil
}

func (cs *ChunkStore) segment(idx int64) []byte {
	if cs.segments[idx] == nil {
		cs.segments[idx] = cs.pool.Get()
	}
	return cs.segments[idx]
}

// forEachSlice translates the logical range [offset, offset+length) into
// segment slices and hands them to fn in order, materializing segments on
// first touch.
func (cs *ChunkStore) forEachSlice(offset, length int64, fn func(seg []byte)) {
	if length <= 0 {
		return
	}
	size := int64(cs.chunkSize)
	startSeg, startOff := offset/size, offset%size
	endSeg, endOff := (offset+length-1)/size, (offset+length-1)%size

	if startSeg == endSeg {
		fn(cs.segment(startSeg)[startOff : endOff+1])
		return
	}
	fn(cs.segment(startSeg)[startOff:size])
	for idx := startSeg + 1; idx < endSeg; idx++ {
		fn(cs.segment(idx)[:size])
	}
	fn(cs.segment(endSeg)[:endOff+1])
}
