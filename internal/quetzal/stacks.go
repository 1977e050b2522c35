package quetzal

import (
	"encoding/binary"

	"github.com/hashicorp/go-multierror"
	"github.com/jcorbin/zvm/internal/diag"
)

// Frame is one routine activation as recorded in a Stks chunk.
type Frame struct {
	ReturnPC uint32
	Discard  bool
	Result   uint8
	Args     uint8
	Locals   []uint16
	Eval     []uint16
}

const (
	frameHeaderSize = 8
	flagDiscard     = 0x10
	flagLocals      = 0x0f
)

// EncodeStacks serializes frames, outermost first.
func EncodeStacks(frames []Frame) ([]byte, error) {
	var size int
	for _, f := range frames {
		size += frameHeaderSize + 2*(len(f.Locals)+len(f.Eval))
	}
	out := make([]byte, 0, size)
	for i, f := range frames {
		if len(f.Locals) > 15 {
			return nil, diag.Errorf(diag.Save, "frame %d has %d locals", i, len(f.Locals))
		}
		if f.Args > 7 {
			return nil, diag.Errorf(diag.Save, "frame %d has %d arguments", i, f.Args)
		}
		if len(f.Eval) > 0xffff {
			return nil, diag.Errorf(diag.Save, "frame %d evaluation stack too deep", i)
		}
		flags := uint8(len(f.Locals))
		result := f.Result
		if f.Discard {
			flags |= flagDiscard
			result = 0
		}
		out = append(out,
			byte(f.ReturnPC>>16), byte(f.ReturnPC>>8), byte(f.ReturnPC),
			flags, result, byte(1<<f.Args-1),
			byte(len(f.Eval)>>8), byte(len(f.Eval)))
		for _, w := range f.Locals {
			out = append(out, byte(w>>8), byte(w))
		}
		for _, w := range f.Eval {
			out = append(out, byte(w>>8), byte(w))
		}
	}
	return out, nil
}

// DecodeStacks parses a Stks chunk. Every record must be well formed and
// fully present; problems within otherwise complete records are collected.
func DecodeStacks(data []byte) ([]Frame, error) {
	var (
		frames []Frame
		errs   *multierror.Error
	)
	for p := 0; p < len(data); {
		if len(data)-p < frameHeaderSize {
			return nil, diag.Errorf(diag.Corrupt, "stack chunk truncated in frame %d header", len(frames))
		}
		hdr := data[p : p+frameHeaderSize]
		p += frameHeaderSize

		var f Frame
		f.ReturnPC = uint32(hdr[0])<<16 | uint32(hdr[1])<<8 | uint32(hdr[2])
		flags := hdr[3]
		if flags&0xe0 != 0 {
			errs = multierror.Append(errs, diag.Errorf(diag.Save,
				"frame %d flags %#02x has reserved bits set", len(frames), flags))
		}
		f.Discard = flags&flagDiscard != 0
		f.Result = hdr[4]
		if args, ok := argCount(hdr[5]); ok {
			f.Args = args
		} else {
			errs = multierror.Append(errs, diag.Errorf(diag.Save,
				"frame %d invalid argument pattern %#02x", len(frames), hdr[5]))
		}
		numLocals := int(flags & flagLocals)
		numEval := int(binary.BigEndian.Uint16(hdr[6:]))

		need := 2 * (numLocals + numEval)
		if len(data)-p < need {
			return nil, diag.Errorf(diag.Corrupt,
				"stack chunk declares %d bytes for frame %d but only %d remain",
				need, len(frames), len(data)-p)
		}
		f.Locals = readWords(data[p:], numLocals)
		p += 2 * numLocals
		f.Eval = readWords(data[p:], numEval)
		p += 2 * numEval

		frames = append(frames, f)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return frames, nil
}

func argCount(pattern uint8) (uint8, bool) {
	for n := uint8(0); n <= 7; n++ {
		if pattern == 1<<n-1 {
			return n, true
		}
	}
	return 0, false
}

func readWords(b []byte, n int) []uint16 {
	if n == 0 {
		return nil
	}
	words := make([]uint16, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return words
}
