package streamkit

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/showwin/streamkit/streamkit/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func createBuffer(capacity int) []byte {
	buf := make([]byte, capacity)
	for i := range buf {
		buf[i] = byte(i % 256)
	}
	return buf
}

func newStore(t *testing.T, numberOfChunks, chunkSize int, opts ...StoreOption) *ChunkStore {
	t.Helper()
	cs := NewChunkStore(NewSegmentPool(chunkSize), numberOfChunks, opts...)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestChunkStoreReadClampsToStoredBytes(t *testing.T) {
	buf := createBuffer(4)
	cs := newStore(t, 1, 2)
	require.NoError(t, cs.WriteRange(buf, 0, 4))
	require.NoError(t, cs.SetPosition(0))

	out := make([]byte, 10)
	n, err := cs.ReadRange(out, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, buf, out[:4])
}

func TestChunkStoreSequentialReads(t *testing.T) {
	buf := createBuffer(16)
	cs := newStore(t, 1, 256)
	require.NoError(t, cs.WriteRange(buf, 0, 16))
	require.NoError(t, cs.SetPosition(0))

	first := make([]byte, 10)
	n, err := cs.ReadRange(first, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, buf[:10], first)

	second := make([]byte, 10)
	n, err = cs.ReadRange(second, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, buf[10:16], second[:6])
}

func TestChunkStoreFullyUtilized(t *testing.T) {
	buf := createBuffer(256)
	cs := newStore(t, 16, 16)
	require.NoError(t, cs.WriteRange(buf, 0, 256))
	require.NoError(t, cs.SetPosition(0))

	out := make([]byte, 256)
	n, err := cs.ReadRange(out, 0, 256)
	require.NoError(t, err)
	assert.Equal(t, 256, n)
	assert.Equal(t, buf, out)
}

func TestChunkStoreToArrayAcrossChunkBoundaries(t *testing.T) {
	cs := newStore(t, 10, 2)
	require.NoError(t, cs.WriteRange([]byte{1, 2, 3, 4, 5}, 0, 5))
	require.NoError(t, cs.WriteRange([]byte{6, 7, 8, 9, 10}, 0, 5))

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, cs.ToArray())
}

func TestChunkStoreWriteGrowsSegments(t *testing.T) {
	buf := createBuffer(128)
	cs := newStore(t, 1, 2)
	require.NoError(t, cs.WriteRange(buf, 0, len(buf)))

	assert.Equal(t, buf, cs.ToArray())
	assert.GreaterOrEqual(t, cs.Segments()*cs.ChunkSize(), int(cs.Len()))
}

func TestChunkStoreFixedSize(t *testing.T) {
	t.Run("FitsExactly", func(t *testing.T) {
		cs := newStore(t, 16, 16, WithFixedSize())
		require.NoError(t, cs.WriteRange(createBuffer(256), 0, 256))
		assert.Equal(t, createBuffer(256), cs.ToArray())
	})

	t.Run("GrowthRejected", func(t *testing.T) {
		cs := newStore(t, 16, 16, WithFixedSize())
		err := cs.WriteRange(createBuffer(512), 0, 512)
		assert.ErrorIs(t, err, ErrCapacity)
		assert.Equal(t, int64(0), cs.Len())
		assert.Equal(t, int64(0), cs.Position())
	})

	t.Run("ShrinkAndRegrowWithinSegments", func(t *testing.T) {
		cs := newStore(t, 2, 4, WithFixedSize())
		require.NoError(t, cs.SetLength(8))
		require.NoError(t, cs.SetLength(1))
		assert.ErrorIs(t, cs.SetLength(9), ErrCapacity)
	})
}

func TestChunkStoreBounds(t *testing.T) {
	testData := []struct {
		name          string
		size          int
		offset, count int
	}{
		{"CountExceedsBuffer", 256, 0, 512},
		{"WindowShiftedPastEnd", 256, 1, 256},
		{"NegativeOffset", 16, -1, 4},
		{"NegativeCount", 16, 0, -1},
	}
	for _, v := range testData {
		t.Run(v.name, func(t *testing.T) {
			cs := newStore(t, 16, 16, WithFixedSize())
			err := cs.WriteRange(createBuffer(v.size), v.offset, v.count)
			assert.ErrorIs(t, err, ErrBounds)

			_, err = cs.ReadRange(createBuffer(v.size), v.offset, v.count)
			assert.ErrorIs(t, err, ErrBounds)
		})
	}
}

func TestChunkStoreSeek(t *testing.T) {
	cs := newStore(t, 4, 4)
	_, err := cs.Write(createBuffer(10))
	require.NoError(t, err)

	pos, err := cs.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	pos, err = cs.Seek(3, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	pos, err = cs.Seek(4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	_, err = cs.Seek(-7, io.SeekCurrent)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	assert.Equal(t, int64(6), cs.Position())

	_, err = cs.Seek(0, 42)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	segments := cs.Segments()
	pos, err = cs.Seek(1<<20, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), pos)
	assert.Equal(t, int64(10), cs.Len())
	assert.Equal(t, segments, cs.Segments())
}

func TestChunkStoreReadPastEnd(t *testing.T) {
	cs := newStore(t, 4, 4)
	_, err := cs.Write([]byte("abc"))
	require.NoError(t, err)

	out := make([]byte, 8)
	n, err := cs.Read(out)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = cs.Seek(10, io.SeekStart)
	require.NoError(t, err)
	n, err = cs.ReadRange(out, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestChunkStoreGrownRegionsReadZero(t *testing.T) {
	cs := newStore(t, 1, 4)
	_, err := cs.Write(bytes.Repeat([]byte{0xFF}, 10))
	require.NoError(t, err)

	require.NoError(t, cs.SetLength(3))
	require.NoError(t, cs.SetLength(10))
	assert.Equal(t, append(bytes.Repeat([]byte{0xFF}, 3), make([]byte, 7)...), cs.ToArray())

	_, err = cs.Seek(14, io.SeekStart)
	require.NoError(t, err)
	_, err = cs.Write([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, int64(15), cs.Len())
	assert.Equal(t, make([]byte, 4), cs.ToArray()[10:14])
}

func TestChunkStoreSetLengthErrors(t *testing.T) {
	cs := newStore(t, 1, 1)
	assert.ErrorIs(t, cs.SetLength(-1), ErrInvalidPosition)

	err := cs.SetLength(int64(MaxSegments) + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, int64(0), cs.Len())
}

func TestChunkStoreLazySegments(t *testing.T) {
	pool := NewSegmentPool(8)
	cs := NewChunkStore(pool, 16)

	_, err := cs.Seek(40, io.SeekStart)
	require.NoError(t, err)
	_, err = cs.Write([]byte{7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pool.InUse())

	require.NoError(t, cs.Close())
	assert.Equal(t, int64(0), pool.InUse())
}

func TestChunkStoreClose(t *testing.T) {
	pool := NewSegmentPool(4)
	cs := NewChunkStore(pool, 2)
	_, err := cs.Write(createBuffer(20))
	require.NoError(t, err)
	assert.Equal(t, int64(5), pool.InUse())

	require.NoError(t, cs.Close())
	assert.Equal(t, int64(0), pool.InUse())
	require.NoError(t, cs.Close())

	_, err = cs.Write([]byte{1})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = cs.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = cs.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, cs.SetLength(1), ErrClosed)
	assert.Empty(t, cs.ToArray())

	_, err = cs.Read(nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, int64(0), cs.Len())
	assert.Equal(t, int64(0), cs.Position())
}

func TestSegmentPoolIgnoresUnknownSegments(t *testing.T) {
	pool := NewSegmentPool(4)
	seg := pool.Get()
	assert.Equal(t, int64(1), pool.InUse())

	pool.Put(make([]byte, 4))
	pool.Put(make([]byte, 8))
	assert.Equal(t, int64(1), pool.InUse())

	pool.Put(seg)
	assert.Equal(t, int64(0), pool.InUse())
	pool.Put(seg)
	assert.Equal(t, int64(0), pool.InUse())
}

func TestChunkStoresShareOnePool(t *testing.T) {
	pool := NewSegmentPool(4)
	a := NewChunkStore(pool, 1)
	b := NewChunkStore(pool, 1)
	defer a.Close()
	defer b.Close()

	_, err := a.Write([]byte("aaaaaaaa"))
	require.NoError(t, err)
	_, err = b.Write([]byte("bbbbbbbb"))
	require.NoError(t, err)

	assert.Equal(t, "aaaaaaaa", string(a.ToArray()))
	assert.Equal(t, "bbbbbbbb", string(b.ToArray()))
	assert.Equal(t, int64(4), pool.InUse())
}

func TestChunkStoreWriteTo(t *testing.T) {
	cs := newStore(t, 2, 3)
	data := createBuffer(11)
	_, err := cs.Write(data)
	require.NoError(t, err)
	_, err = cs.Seek(2, io.SeekStart)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := cs.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, data[2:], out.Bytes())
	assert.Equal(t, int64(11), cs.Position())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestChunkStoreWriteToError(t *testing.T) {
	cs := newStore(t, 2, 3)
	_, err := cs.Write(createBuffer(9))
	require.NoError(t, err)
	require.NoError(t, cs.SetPosition(0))

	n, err := cs.WriteTo(failingWriter{})
	assert.EqualError(t, err, "boom")
	assert.Zero(t, n)
}

func TestChunkStoreDefaults(t *testing.T) {
	cs := NewChunkStore(nil, 0)
	defer cs.Close()
	assert.Equal(t, DefaultChunkSize, cs.ChunkSize())
	assert.Equal(t, DefaultNumberOfChunks, cs.Segments())
	assert.Equal(t, control.CapabilityAll, cs.Capabilities())

	assert.Equal(t, 1, NewSegmentPool(0).ChunkSize())
}

func TestChunkStoreRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chunkSize := rapid.IntRange(1, 64).Draw(rt, "chunkSize")
		chunks := rapid.IntRange(1, 8).Draw(rt, "chunks")
		data := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(rt, "data")

		pool := NewSegmentPool(chunkSize)
		cs := NewChunkStore(pool, chunks)

		written := 0
		for written < len(data) {
			piece := rapid.IntRange(1, len(data)-written).Draw(rt, "piece")
			if err := cs.WriteRange(data, written, piece); err != nil {
				rt.Fatalf("write: %v", err)
			}
			written += piece
		}
		if _, err := cs.Seek(0, io.SeekStart); err != nil {
			rt.Fatalf("seek: %v", err)
		}
		out := make([]byte, len(data)+8)
		n, err := cs.ReadRange(out, 0, len(out))
		if err != nil {
			rt.Fatalf("read: %v", err)
		}
		if n != len(data) || !bytes.Equal(out[:n], data) {
			rt.Fatalf("round trip mismatch: got %d bytes, want %d", n, len(data))
		}
		if !bytes.Equal(cs.ToArray(), data) {
			rt.Fatalf("ToArray mismatch")
		}
		_ = cs.Close()
		if pool.InUse() != 0 {
			rt.Fatalf("%d segments leaked", pool.InUse())
		}
	})
}

func TestChunkStoreTruncatedReadProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(0, 256).Draw(rt, "size")
		pos := rapid.IntRange(0, 300).Draw(rt, "pos")
		count := rapid.IntRange(0, 300).Draw(rt, "count")

		cs := NewChunkStore(NewSegmentPool(7), 1)
		defer cs.Close()
		if _, err := cs.Write(createBuffer(size)); err != nil {
			rt.Fatalf("write: %v", err)
		}
		if _, err := cs.Seek(int64(pos), io.SeekStart); err != nil {
			rt.Fatalf("seek: %v", err)
		}
		n, err := cs.ReadRange(make([]byte, count), 0, count)
		if err != nil {
			rt.Fatalf("read: %v", err)
		}
		want := min(count, max(size-pos, 0))
		if n != want {
			rt.Fatalf("read %d bytes, want %d", n, want)
		}
	})
}

func BenchmarkChunkStoreWrite(b *testing.B) {
	pool := NewSegmentPool(DefaultChunkSize)
	data := createBuffer(64 * 1024)
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		cs := NewChunkStore(pool, 0)
		_, _ = cs.Write(data)
		_ = cs.Close()
	}
}
