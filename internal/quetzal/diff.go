// Package quetzal implements the Quetzal state format: memory deltas, the
// stack frame record encoding, and the IFF container that carries them.
package quetzal

import "github.com/jcorbin/zvm/internal/diag"

// RunLength selects how runs of identical bytes are counted in a delta.
type RunLength uint8

const (
	// Base128 encodes run length-1 as a little-endian varint with a high
	// continuation bit; compact for long runs, used for undo history.
	Base128 RunLength = iota

	// Base256 encodes run length-1 as a single byte, splitting longer runs;
	// this is the CMem interchange encoding.
	Base256
)

// Diff computes a delta that turns a into b. Identical runs become a zero
// byte followed by the run length; differing bytes become a XOR b. Both
// buffers must have the same length.
func Diff(a, b []byte, rl RunLength) []byte {
	if len(a) != len(b) {
		panic("quetzal: diff of unequal length buffers")
	}
	var out []byte
	for i := 0; i < len(b); {
		if x := a[i] ^ b[i]; x != 0 {
			out = append(out, x)
			i++
			continue
		}
		j := i + 1
		for j < len(b) && a[j] == b[j] {
			j++
		}
		out = appendRun(out, j-i, rl)
		i = j
	}
	return out
}

func appendRun(out []byte, run int, rl RunLength) []byte {
	if rl == Base256 {
		for run > 0 {
			n := run
			if n > 256 {
				n = 256
			}
			out = append(out, 0, byte(n-1))
			run -= n
		}
		return out
	}
	out = append(out, 0)
	v := run - 1
	for v >= 0x80 {
		out = append(out, byte(v)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}

// Undiff applies delta to a copy of base. Bytes past the end of the delta
// stream are unchanged. It fails if the stream describes more bytes than
// base holds, or ends inside a run marker.
func Undiff(base, delta []byte, rl RunLength) ([]byte, error) {
	out := append([]byte(nil), base...)
	i := 0
	for p := 0; p < len(delta); {
		c := delta[p]
		p++
		if c != 0 {
			if i >= len(out) {
				return nil, diag.Errorf(diag.Corrupt, "delta overruns %d byte memory", len(out))
			}
			out[i] ^= c
			i++
			continue
		}
		run, n, err := readRun(delta[p:], rl)
		if err != nil {
			return nil, err
		}
		p += n
		if i+run > len(out) {
			return nil, diag.Errorf(diag.Corrupt, "delta run of %d overruns %d byte memory at %d", run, len(out), i)
		}
		i += run
	}
	return out, nil
}

func readRun(b []byte, rl RunLength) (run, n int, err error) {
	if rl == Base256 {
		if len(b) < 1 {
			return 0, 0, diag.Errorf(diag.Corrupt, "delta ends inside run marker")
		}
		return int(b[0]) + 1, 1, nil
	}
	var v int
	for shift := uint(0); ; shift += 7 {
		if n >= len(b) {
			return 0, 0, diag.Errorf(diag.Corrupt, "delta ends inside run marker")
		}
		if shift > 28 {
			return 0, 0, diag.Errorf(diag.Corrupt, "delta run length too long")
		}
		c := b[n]
		n++
		v |= int(c&0x7f) << shift
		if c&0x80 == 0 {
			return v + 1, n, nil
		}
	}
}
