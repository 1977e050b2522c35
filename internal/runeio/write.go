package runeio

import (
	"io"
	"strings"
)

// WriteRune writes one rune of story text to a host terminal:
//   - newline and tab are written as is
//   - other C0 and C1 controls are written in caret form, so story text
//     can never drive the terminal
//   - all other runes are written in utf8 form
func WriteRune(w io.Writer, r rune) (n int, err error) {
	if r == '\n' || r == '\t' {
		if bw, ok := w.(io.ByteWriter); ok {
			return 1, bw.WriteByte(byte(r))
		}
		return w.Write([]byte{byte(r)})
	}
	if caret := CaretForm(r); caret != "" {
		return io.WriteString(w, caret)
	}
	return io.WriteString(w, string(r))
}

// WriteString writes a string using WriteRune for each rune.
func WriteString(w io.Writer, s string) (n int, err error) {
	if !strings.ContainsFunc(s, isControl) {
		return io.WriteString(w, s)
	}
	for _, r := range s {
		m, err := WriteRune(w, r)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func isControl(r rune) bool {
	return (r < 0x20 && r != '\n' && r != '\t') || (r >= 0x7f && r <= 0x9f)
}
