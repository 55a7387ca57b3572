package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/showwin/streamkit/streamkit"
)

type outputTime time.Time

func (t outputTime) MarshalJSON() ([]byte, error) {
	stamp := fmt.Sprintf("\"%s\"", time.Time(t).Format("2006-01-02 15:04:05.000"))
	return []byte(stamp), nil
}

type outputDuration time.Duration

func (d outputDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d outputDuration) String() string {
	return time.Duration(d).Round(time.Millisecond).String()
}

// JSON renders a result as one line of JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// WriteText prints a human readable report of a result.
func (r *Result) WriteText(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("Buffered: %d bytes in %d segments", r.Bytes, r.Segments),
		fmt.Sprintf("Ingest:   %s in %s (adapted chunk %d)", streamkit.ByteRate(r.IngestSpeed), r.IngestTime, r.ChunkSizeIngest),
		fmt.Sprintf("Drain:    %s in %s (adapted chunk %d)", streamkit.ByteRate(r.DrainSpeed), r.DrainTime, r.ChunkSizeDrain),
	}
	if r.Limit > 0 {
		lines = append(lines, fmt.Sprintf("Limit:    %s", streamkit.ByteRate(r.Limit)))
	}
	if r.Compression != "" {
		lines = append(lines, fmt.Sprintf("Output:   %d bytes (%s)", r.OutputBytes, r.Compression))
	}
	if s := r.IngestSummary; s.Samples > 0 {
		lines = append(lines, fmt.Sprintf("Samples:  %d, mean %s, jitter %s, stable %t",
			s.Samples, streamkit.ByteRate(s.Mean), streamkit.ByteRate(s.StandardDeviation), s.Stable))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
