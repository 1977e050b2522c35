package quetzal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jcorbin/zvm/internal/diag"
)

// Chunk IDs used in save files.
const (
	IDForm   = "FORM"
	IDIFZS   = "IFZS"
	IDIFhd   = "IFhd"
	IDCMem   = "CMem"
	IDUMem   = "UMem"
	IDStks   = "Stks"
	IDIntD   = "IntD"
	idLength = 4
)

// Chunk is one tagged IFF record.
type Chunk struct {
	ID   string
	Data []byte
}

// Find returns the first chunk with the given id.
func Find(chunks []Chunk, id string) (Chunk, bool) {
	for _, ch := range chunks {
		if ch.ID == id {
			return ch, true
		}
	}
	return Chunk{}, false
}

func chunkSize(ch Chunk) int64 {
	n := int64(8 + len(ch.Data))
	return n + n&1
}

// WriteForm writes a FORM container holding chunks in order, each padded to
// an even length.
func WriteForm(w io.Writer, formType string, chunks ...Chunk) error {
	size := int64(idLength)
	for _, ch := range chunks {
		if len(ch.ID) != idLength {
			return fmt.Errorf("invalid chunk id %q", ch.ID)
		}
		size += chunkSize(ch)
	}
	if err := writeHeader(w, IDForm, uint32(size)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, formType); err != nil {
		return err
	}
	for _, ch := range chunks {
		if err := writeHeader(w, ch.ID, uint32(len(ch.Data))); err != nil {
			return err
		}
		if _, err := w.Write(ch.Data); err != nil {
			return err
		}
		if len(ch.Data)&1 != 0 {
			if _, err := w.Write([]byte{0}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHeader(w io.Writer, id string, size uint32) error {
	var hdr [8]byte
	copy(hdr[:4], id)
	binary.BigEndian.PutUint32(hdr[4:], size)
	_, err := w.Write(hdr[:])
	return err
}

// ReadForm reads a FORM container, returning its type and chunks. The
// declared FORM length must fit within the stream.
func ReadForm(r io.ReadSeeker) (formType string, chunks []Chunk, err error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", nil, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return "", nil, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return "", nil, err
	}

	id, size, err := readHeader(r)
	if err != nil {
		return "", nil, err
	}
	if id != IDForm {
		return "", nil, diag.Errorf(diag.Save, "not an IFF file: %q", id)
	}
	if int64(size)+8 > end-start || size < idLength {
		return "", nil, diag.Errorf(diag.Corrupt, "FORM length %d does not fit %d byte file", size, end-start)
	}
	var typ [idLength]byte
	if _, err := io.ReadFull(r, typ[:]); err != nil {
		return "", nil, err
	}
	formType = string(typ[:])

	for remain := int64(size) - idLength; remain > 0; {
		if remain < 8 {
			return "", nil, diag.Errorf(diag.Corrupt, "trailing %d bytes in FORM", remain)
		}
		id, n, err := readHeader(r)
		if err != nil {
			return "", nil, err
		}
		ch := Chunk{ID: id}
		if int64(n)+8 > remain {
			return "", nil, diag.Errorf(diag.Corrupt, "chunk %q length %d overruns FORM", id, n)
		}
		ch.Data = make([]byte, n)
		if _, err := io.ReadFull(r, ch.Data); err != nil {
			return "", nil, err
		}
		if n&1 != 0 && remain > int64(n)+8 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return "", nil, err
			}
		}
		remain -= chunkSize(ch)
		chunks = append(chunks, ch)
	}
	return formType, chunks, nil
}

func readHeader(r io.Reader) (string, uint32, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return "", 0, diag.Errorf(diag.Corrupt, "truncated chunk header")
		}
		return "", 0, err
	}
	return string(hdr[:4]), binary.BigEndian.Uint32(hdr[4:]), nil
}
