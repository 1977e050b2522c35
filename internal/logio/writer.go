package logio

import (
	"bytes"
	"sync"
)

// Writer is an io.Writer that passes each complete line to Logf, for
// routing other packages' output through a Logger.
type Writer struct {
	Logf func(mess string, args ...interface{})

	mu  sync.Mutex
	buf bytes.Buffer
}

// Write buffers p, logging any lines it completes.
func (lw *Writer) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	lw.flushLines(false)
	return len(p), nil
}

// Close logs any final partial line.
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.flushLines(true)
	return nil
}

func (lw *Writer) flushLines(all bool) {
	for lw.buf.Len() > 0 {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		switch {
		case i >= 0:
			lw.Logf("%s", lw.buf.Next(i))
			lw.buf.Next(1)
		case all:
			lw.Logf("%s", lw.buf.Next(lw.buf.Len()))
		default:
			return
		}
	}
}
