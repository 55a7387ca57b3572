package streamkit

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = iota // Fastest, lower ratio
	CompressionDefault                         // Balanced
	CompressionBest                            // Best ratio, slower
)

const (
	CompressionNone = ""
	CompressionGzip = "gzip"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Compress returns a writer that compresses into w with the named
// algorithm. Closing it flushes the compressor but leaves w open. An empty
// algorithm writes through unchanged.
func Compress(w io.Writer, algorithm string, level CompressionLevel) (io.WriteCloser, error) {
	switch strings.ToLower(algorithm) {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		lvl := gzip.DefaultCompression
		switch level {
		case CompressionFast:
			lvl = gzip.BestSpeed
		case CompressionBest:
			lvl = gzip.BestCompression
		}
		zw, err := gzip.NewWriterLevel(w, lvl)
		if err != nil {
			return nil, err
		}
		return zw, nil
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		lvl := lz4.Level4
		switch level {
		case CompressionFast:
			lvl = lz4.Fast
		case CompressionBest:
			lvl = lz4.Level9
		}
		if err := zw.Apply(lz4.CompressionLevelOption(lvl)); err != nil {
			return nil, err
		}
		return zw, nil
	case CompressionZstd:
		lvl := zstd.SpeedDefault
		switch level {
		case CompressionFast:
			lvl = zstd.SpeedFastest
		case CompressionBest:
			lvl = zstd.SpeedBestCompression
		}
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(lvl))
		if err != nil {
			return nil, err
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, algorithm)
	}
}

// Decompress returns a reader that decompresses r with the named
// algorithm. Closing it releases the decoder but leaves r open.
func Decompress(r io.Reader, algorithm string) (io.ReadCloser, error) {
	switch strings.ToLower(algorithm) {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, algorithm)
	}
}
