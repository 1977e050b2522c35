package quetzal

import (
	"errors"
	"io"
)

// Buffer is a memory-backed seekable stream; writes past the end grow it.
type Buffer struct {
	data []byte
	off  int64
}

// NewBuffer returns a Buffer reading from (and owning) data.
func NewBuffer(data []byte) *Buffer { return &Buffer{data: data} }

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the size of the buffer.
func (b *Buffer) Len() int { return len(b.data) }

func (b *Buffer) Read(p []byte) (int, error) {
	if b.off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += int64(n)
	return n, nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.off + int64(len(p))
	if oldLen := int64(len(b.data)); end > oldLen {
		if end > int64(cap(b.data)) {
			data := make([]byte, end, 2*end)
			copy(data, b.data)
			b.data = data
		} else {
			b.data = b.data[:end]
		}
		for i := oldLen; i < b.off; i++ {
			b.data[i] = 0
		}
	}
	copy(b.data[b.off:], p)
	b.off = end
	return len(p), nil
}

var errNegativeSeek = errors.New("quetzal: seek to negative offset")

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		offset += b.off
	case io.SeekEnd:
		offset += int64(len(b.data))
	}
	if offset < 0 {
		return b.off, errNegativeSeek
	}
	b.off = offset
	return offset, nil
}
