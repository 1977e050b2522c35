// Package flushio adapts writers for output that is buffered between
// flush points, such as the transcript and command record streams.
package flushio

import (
	"bufio"
	"io"
)

// WriteFlusher is an io.Writer whose output may be held until Flush.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// NewWriteFlusher returns w itself if it already flushes. In-memory
// buffers and io.Discard gain a no-op Flush; anything else is wrapped in a
// bufio.Writer.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	if wf, ok := w.(WriteFlusher); ok {
		return wf
	}
	if w == io.Discard {
		return nopFlusher{w}
	}

	// as implemented by bytes.Buffer and strings.Builder
	type buffer interface {
		io.Writer
		Len() int
		Grow(n int)
		Reset()
	}
	if _, ok := w.(buffer); ok {
		return nopFlusher{w}
	}
	return bufio.NewWriter(w)
}

type nopFlusher struct{ io.Writer }

func (nopFlusher) Flush() error { return nil }
