package streamkit

import (
	"sync"
	"sync/atomic"
)

const (
	DefaultChunkSize      = 4096
	DefaultNumberOfChunks = 128
)

// SegmentPool hands out fixed-size segments to ChunkStores. A pool may be
// shared by any number of stores, also across goroutines; a segment belongs
// to exactly one store between Get and Put.
type SegmentPool struct {
	segments sync.Pool
	indexes  sync.Pool
	size     int
	inUse    atomic.Int64

	mu   sync.Mutex
	held map[*byte]struct{}
}

// NewSegmentPool creates a pool of segments of chunkSize bytes. A
// non-positive size is treated as 1.
func NewSegmentPool(chunkSize int) *SegmentPool {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	p := &SegmentPool{size: chunkSize, held: make(map[*byte]struct{})}
	p.segments.New = func() any {
		buf := make([]byte, chunkSize)
		return &buf
	}
	return p
}

// ChunkSize returns the size of the segments this pool hands out.
func (p *SegmentPool) ChunkSize() int { return p.size }

// InUse returns the number of segments currently held by stores.
func (p *SegmentPool) InUse() int64 { return p.inUse.Load() }

// Get returns a zero-filled segment.
func (p *SegmentPool) Get() []byte {
	buf := *p.segments.Get().(*[]byte)
	clear(buf)
	p.mu.Lock()
	p.held[&buf[0]] = struct{}{}
	p.mu.Unlock()
	p.inUse.Add(1)
	return buf
}

// Put returns a segment to the pool. Only segments handed out by Get and
// not yet returned are accepted; anything else is ignored.
func (p *SegmentPool) Put(buf []byte) {
	if len(buf) != p.size {
		return
	}
	p.mu.Lock()
	_, ok := p.held[&buf[0]]
	delete(p.held, &buf[0])
	p.mu.Unlock()
	if !ok {
		return
	}
	p.inUse.Add(-1)
	p.segments.Put(&buf)
}

func (p *SegmentPool) getIndex(n int) [][]byte {
	if v, ok := p.indexes.Get().(*[][]byte); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([][]byte, n)
}

// putIndex clears the index array so no segment stays reachable from it.
func (p *SegmentPool) putIndex(index [][]byte) {
	if index == nil {
		return
	}
	clear(index[:cap(index)])
	index = index[:0]
	p.indexes.Put(&index)
}
