package zmachine

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
	"github.com/jcorbin/zvm/internal/quetzal"
	"github.com/jcorbin/zvm/internal/ztext"
	"github.com/stretchr/testify/require"
)

// Test story layout.
const (
	sbGlobals = 0x040
	sbText    = 0x240
	sbParse   = 0x2c0
	sbObjects = 0x300
	sbProps   = 0x600
	sbDict    = 0x800
	sbTerms   = 0x8f0
	sbTable   = 0x900
	sbStatic  = 0x1000
	sbSize    = 0x4000
)

// storyBuilder assembles minimal story images: a header, globals, an empty
// dictionary and code starting at the base of static memory.
type storyBuilder struct {
	version uint8
	b       []byte
	pc      uint32
}

func newStory(version uint8) *storyBuilder {
	sb := &storyBuilder{version: version, b: make([]byte, sbSize), pc: sbStatic}
	sb.b[mem.HdVersion] = version
	sb.word(mem.HdRelease, 7)
	copy(sb.b[mem.HdSerial:], "260101")
	sb.word(mem.HdGlobals, sbGlobals)
	sb.word(mem.HdObjects, sbObjects)
	sb.word(mem.HdDictionary, sbDict)
	sb.word(mem.HdStaticBase, sbStatic)
	sb.word(mem.HdInitialPC, sbStatic)
	sb.word(mem.HdLength, uint16(sbSize/sb.scale()))
	sb.dictionary(',')
	return sb
}

func (sb *storyBuilder) scale() uint32 {
	switch {
	case sb.version <= 3:
		return 2
	case sb.version <= 5:
		return 4
	default:
		return 8
	}
}

func (sb *storyBuilder) word(addr uint32, val uint16) {
	binary.BigEndian.PutUint16(sb.b[addr:], val)
}

func (sb *storyBuilder) global(n uint8, val uint16) { sb.word(sbGlobals+2*uint32(n), val) }

// dictionary writes a sorted dictionary of words with 3 data bytes each.
func (sb *storyBuilder) dictionary(sep byte, words ...string) {
	codec := ztext.New(nil, sb.version, 0, ztext.Tables{}, nil)
	entryLen := codec.KeyLen() + 3
	sb.b[sbDict] = 1
	sb.b[sbDict+1] = sep
	sb.b[sbDict+2] = byte(entryLen)
	sb.word(sbDict+3, uint16(len(words)))
	for i, w := range words {
		copy(sb.b[sbDict+5+uint32(i*entryLen):], codec.Encode([]byte(w)))
	}
}

func dictEntry(sb *storyBuilder, i int) uint16 {
	entryLen := uint32(sb.b[sbDict+2])
	return uint16(sbDict + 5 + uint32(i)*entryLen)
}

// code appends instructions, returning their address.
func (sb *storyBuilder) code(parts ...[]byte) uint32 {
	addr := sb.pc
	for _, p := range parts {
		copy(sb.b[sb.pc:], p)
		sb.pc += uint32(len(p))
	}
	return addr
}

// routine aligns and starts a routine with the given local defaults,
// returning its packed address.
func (sb *storyBuilder) routine(locals ...uint16) uint16 {
	for sb.pc%sb.scale() != 0 {
		sb.pc++
	}
	addr := sb.pc
	sb.b[sb.pc] = byte(len(locals))
	sb.pc++
	if sb.version <= 4 {
		for _, l := range locals {
			sb.word(sb.pc, l)
			sb.pc += 2
		}
	}
	return uint16(addr / sb.scale())
}

// object writes a record and its property table: a short name of name
// followed by properties given as number and data.
func (sb *storyBuilder) object(n uint8, parent, sibling, child uint8, props uint32, name []byte, properties ...prop) {
	recSize, base := uint32(9), uint32(sbObjects+2*31)
	if sb.version >= 4 {
		recSize, base = 14, sbObjects+2*63
	}
	rec := base + uint32(n-1)*recSize
	if sb.version >= 4 {
		sb.word(rec+6, uint16(parent))
		sb.word(rec+8, uint16(sibling))
		sb.word(rec+10, uint16(child))
		sb.word(rec+12, uint16(props))
	} else {
		sb.b[rec+4], sb.b[rec+5], sb.b[rec+6] = parent, sibling, child
		sb.word(rec+7, uint16(props))
	}
	sb.b[props] = byte(len(name) / 2)
	p := props + 1
	p += uint32(copy(sb.b[p:], name))
	for _, pr := range properties {
		if sb.version <= 3 {
			sb.b[p] = byte(32*(len(pr.data)-1)) | pr.num
			p++
		} else if len(pr.data) <= 2 {
			sb.b[p] = pr.num
			if len(pr.data) == 2 {
				sb.b[p] |= 0x40
			}
			p++
		} else {
			sb.b[p], sb.b[p+1] = 0x80|pr.num, 0x80|byte(len(pr.data))
			p += 2
		}
		p += uint32(copy(sb.b[p:], pr.data))
	}
	sb.b[p] = 0
}

type prop struct {
	num  uint8
	data []byte
}

// Operand encodings.
type operand struct {
	ty  uint8
	val uint16
}

func sm(v uint8) operand  { return operand{typeSmall, uint16(v)} }
func lg(v uint16) operand { return operand{typeLarge, v} }
func vr(n uint8) operand  { return operand{typeVariable, uint16(n)} }

func (o operand) bytes() []byte {
	if o.ty == typeLarge {
		return []byte{byte(o.val >> 8), byte(o.val)}
	}
	return []byte{byte(o.val)}
}

// varOp encodes a variable form instruction; 2OP operations use their
// 0xc0 based opcode.
func varOp(opcode byte, ops ...operand) []byte {
	out := []byte{opcode, 0xff}
	for i, o := range ops {
		shift := 6 - 2*uint(i)
		out[1] = out[1]&^(3<<shift) | o.ty<<shift
		out = append(out, o.bytes()...)
	}
	return out
}

func extOp(num byte, ops ...operand) []byte {
	return append([]byte{0xbe, num}, varOp(0, ops...)[1:]...)
}

func op1(num byte, o operand) []byte {
	return append([]byte{0x80 | o.ty<<4 | num}, o.bytes()...)
}

func op0(num byte) []byte { return []byte{0xb0 | num} }

func st(n uint8) []byte { return []byte{n} }

// br encodes a short branch; offsets 0 and 1 return false and true.
func br(cond bool, offset uint8) []byte {
	b := 0x40 | offset&0x3f
	if cond {
		b |= 0x80
	}
	return []byte{b}
}

var quit = op0(0x0a)

// zstr encodes lower case text and spaces as a Z-string.
func zstr(s string) []byte {
	var zs []byte
	for _, r := range s {
		switch {
		case r == ' ':
			zs = append(zs, 0)
		case r >= 'a' && r <= 'z':
			zs = append(zs, byte(r-'a'+6))
		default:
			panic("zstr: unsupported character")
		}
	}
	for len(zs) == 0 || len(zs)%3 != 0 {
		zs = append(zs, 5)
	}
	out := make([]byte, 0, 2*len(zs)/3)
	for i := 0; i < len(zs); i += 3 {
		w := uint16(zs[i])<<10 | uint16(zs[i+1])<<5 | uint16(zs[i+2])
		if i+3 == len(zs) {
			w |= 0x8000
		}
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

// testTerm is a scripted terminal. Lines of "<timeout>" time out.
type testTerm struct {
	out     strings.Builder
	lines   []string
	keys    []rune
	saved   *quetzal.Buffer
	status  []string
	timeout []time.Duration
}

const scriptTimeout = "<timeout>"

func (tt *testTerm) Print(s string) error {
	tt.out.WriteString(s)
	return nil
}

func (tt *testTerm) ReadLine(ctx context.Context, initial string, maxLen int, timeout time.Duration) (string, error) {
	tt.timeout = append(tt.timeout, timeout)
	if len(tt.lines) == 0 {
		return "", io.EOF
	}
	line := tt.lines[0]
	tt.lines = tt.lines[1:]
	if line == scriptTimeout {
		return initial, ErrTimeout
	}
	return initial + line, nil
}

func (tt *testTerm) ReadChar(ctx context.Context, timeout time.Duration) (rune, error) {
	if len(tt.keys) == 0 {
		return 0, io.EOF
	}
	r := tt.keys[0]
	tt.keys = tt.keys[1:]
	if r < 0 {
		return 0, ErrTimeout
	}
	return r, nil
}

func (tt *testTerm) OpenSave(ctx context.Context, name string) (io.WriteCloser, error) {
	tt.saved = quetzal.NewBuffer(nil)
	return nopCloser{tt.saved}, nil
}

func (tt *testTerm) OpenRestore(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	if tt.saved == nil {
		return nil, errors.New("nothing saved")
	}
	if _, err := tt.saved.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return nopCloser{tt.saved}, nil
}

func (tt *testTerm) ShowStatus(location string, a, b int, timeGame bool) {
	tt.status = append(tt.status, location)
}

type nopCloser struct{ *quetzal.Buffer }

func (nopCloser) Close() error { return nil }

type reportLog []diag.Report

func (rl reportLog) count(lvl diag.Level, cat diag.Category) int {
	n := 0
	for _, rep := range rl {
		if rep.Level == lvl && rep.Category == cat {
			n++
		}
	}
	return n
}

// load builds a VM for the story with reports collected.
func (sb *storyBuilder) load(t *testing.T, term Terminal, opts ...Option) (*VM, *reportLog) {
	var reps reportLog
	if term == nil {
		term = &testTerm{}
	}
	opts = append([]Option{
		WithTerminal(term),
		WithDiagnostics(func(rep diag.Report) { reps = append(reps, rep) }, diag.LevelWarn),
		WithSeed(1),
	}, opts...)
	vm, err := New(sb.b, opts...)
	require.NoError(t, err)
	return vm, &reps
}

// run loads and runs the story until it quits.
func (sb *storyBuilder) run(t *testing.T, term Terminal, opts ...Option) (*VM, reportLog) {
	vm, reps := sb.load(t, term, opts...)
	require.NoError(t, vm.Run(context.Background()))
	return vm, *reps
}

func readGlobal(vm *VM, n uint8) uint16 { return vm.mem.ReadWord(sbGlobals + 2*uint32(n)) }
