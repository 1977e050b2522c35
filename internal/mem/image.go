// Package mem implements the story memory image: a single byte buffer split
// into dynamic, static and high regions, with bounds-checked access.
package mem

import (
	"encoding/binary"

	"github.com/hashicorp/go-multierror"
	"github.com/jcorbin/zvm/internal/diag"
)

// HeaderHooks receive side effects of story writes to Flags 2.
type HeaderHooks struct {
	Transcript func(on bool)
	FixedFont  func(on bool)
}

// Image is a loaded story's memory. Reads are checked against TotalSize,
// writes against DynamicSize; violations are reported and yield 0 or are
// dropped.
type Image struct {
	DynamicSize uint32
	GameSize    uint32
	TotalSize   uint32
	InitialPC   uint32

	Hooks    HeaderHooks
	Reporter *diag.Reporter

	bytes []byte
	story []byte
}

// Validate checks a story header without allocating an image. All problems
// found are returned together.
func Validate(story []byte) error {
	if len(story) < HeaderSize {
		return diag.Errorf(diag.Corrupt, "story of %d bytes is shorter than its header", len(story))
	}
	version := story[HdVersion]
	if version < 1 || version > 8 {
		return diag.Errorf(diag.Version, "unsupported story version %d", version)
	}

	var errs *multierror.Error
	dynamicSize, gameSize, totalSize := sizes(story)
	if dynamicSize < HeaderSize {
		errs = multierror.Append(errs, diag.Errorf(diag.Corrupt,
			"dynamic memory size %d smaller than header", dynamicSize))
	}
	if dynamicSize > gameSize {
		errs = multierror.Append(errs, diag.Errorf(diag.Corrupt,
			"dynamic memory size %d past game size %d", dynamicSize, gameSize))
	}
	if gameSize > totalSize {
		errs = multierror.Append(errs, diag.Errorf(diag.Corrupt,
			"game size %d past end of story file %d", gameSize, totalSize))
	}
	if pc := initialPC(story); pc < HeaderSize || pc > gameSize {
		errs = multierror.Append(errs, diag.Errorf(diag.Corrupt,
			"initial PC %#x outside of story", pc))
	}
	return errs.ErrorOrNil()
}

func sizes(story []byte) (dynamicSize, gameSize, totalSize uint32) {
	totalSize = uint32(len(story))
	dynamicSize = uint32(headerWord(story, HdStaticBase))
	gameSize = uint32(headerWord(story, HdLength)) * granularity(story[HdVersion])
	if gameSize == 0 {
		gameSize = totalSize
	}
	return dynamicSize, gameSize, totalSize
}

func initialPC(story []byte) uint32 {
	pc := uint32(headerWord(story, HdInitialPC))
	if story[HdVersion] == 6 {
		// v6 starts by calling a packed main routine
		pc = unpack(6, uint16(pc), uint32(headerWord(story, HdRoutineOffset)))
	}
	return pc
}

// Load validates the story header and builds its memory image; the story
// slice is copied and retained as the pristine reference for restart,
// verification and save deltas.
func Load(story []byte, rep *diag.Reporter) (*Image, error) {
	if err := Validate(story); err != nil {
		return nil, err
	}
	m := &Image{Reporter: rep}
	m.DynamicSize, m.GameSize, m.TotalSize = sizes(story)
	m.InitialPC = initialPC(story)
	m.story = append([]byte(nil), story...)
	m.bytes = append([]byte(nil), story...)
	return m, nil
}

// Story returns the pristine story bytes; callers must not modify them.
func (m *Image) Story() []byte { return m.story }

// Dynamic returns the live dynamic memory region.
func (m *Image) Dynamic() []byte { return m.bytes[:m.DynamicSize] }

// OriginalDynamic returns the dynamic region as loaded.
func (m *Image) OriginalDynamic() []byte { return m.story[:m.DynamicSize] }

// SetDynamic replaces dynamic memory wholesale, as on restore.
func (m *Image) SetDynamic(data []byte) {
	copy(m.bytes[:m.DynamicSize], data)
}

// Restart restores dynamic memory from the story, keeping the transcript
// and fixed font bits of Flags 2.
func (m *Image) Restart() {
	keep := m.bytes[HdFlags2+1] & (Flags2Transcript | Flags2FixedFont)
	copy(m.bytes[:m.DynamicSize], m.story)
	m.bytes[HdFlags2+1] = m.bytes[HdFlags2+1]&^(Flags2Transcript|Flags2FixedFont) | keep
}

// Checksum sums the story bytes after the header, as the verify opcode does.
func (m *Image) Checksum() uint16 {
	var sum uint16
	for _, b := range m.story[HeaderSize:m.GameSize] {
		sum += uint16(b)
	}
	return sum
}

// ReadByte returns the byte at addr, or 0 if addr is past the end of memory.
func (m *Image) ReadByte(addr uint32) uint8 {
	if addr >= m.TotalSize {
		m.Reporter.Error(diag.Memory, "attempt to read past end of memory", addr)
		return 0
	}
	return m.bytes[addr]
}

// ReadWord returns the big-endian word at addr, or 0 if out of range.
func (m *Image) ReadWord(addr uint32) uint16 {
	if addr+1 >= m.TotalSize || addr+1 < addr {
		m.Reporter.Error(diag.Memory, "attempt to read word past end of memory", addr)
		return 0
	}
	return binary.BigEndian.Uint16(m.bytes[addr:])
}

// WriteByte stores val at addr if addr is in dynamic memory; header writes
// are limited to the fields a story may change.
func (m *Image) WriteByte(addr uint32, val uint8) {
	if addr >= m.DynamicSize {
		m.Reporter.Error(diag.Memory, "attempt to write outside dynamic memory", addr)
		return
	}
	if addr < HeaderSize {
		m.writeHeader(addr, val)
		return
	}
	m.bytes[addr] = val
}

// WriteWord stores a big-endian word at addr, with the same checks as WriteByte.
func (m *Image) WriteWord(addr uint32, val uint16) {
	if addr+1 >= m.DynamicSize || addr+1 < addr {
		m.Reporter.Error(diag.Memory, "attempt to write word outside dynamic memory", addr)
		return
	}
	if addr < HeaderSize {
		m.writeHeader(addr, uint8(val>>8))
		m.writeHeader(addr+1, uint8(val))
		return
	}
	binary.BigEndian.PutUint16(m.bytes[addr:], val)
}

func (m *Image) writeHeader(addr uint32, val uint8) {
	if !headerWritable[addr] {
		if m.bytes[addr] != val {
			m.Reporter.Error(diag.Memory, "attempt to write to read-only header field", addr)
		}
		return
	}
	old := m.bytes[addr]
	m.bytes[addr] = val
	if addr != HdFlags2+1 {
		return
	}
	changed := old ^ val
	if changed&Flags2Transcript != 0 && m.Hooks.Transcript != nil {
		m.Hooks.Transcript(val&Flags2Transcript != 0)
	}
	if changed&Flags2FixedFont != 0 && m.Hooks.FixedFont != nil {
		m.Hooks.FixedFont(val&Flags2FixedFont != 0)
	}
}

// UnpackRoutine converts a packed routine address to a byte address.
func (m *Image) UnpackRoutine(packed uint16) uint32 {
	return unpack(m.Version(), packed, uint32(headerWord(m.bytes, HdRoutineOffset)))
}

// UnpackString converts a packed string address to a byte address.
func (m *Image) UnpackString(packed uint16) uint32 {
	return unpack(m.Version(), packed, uint32(headerWord(m.bytes, HdStringOffset)))
}

func unpack(version uint8, packed uint16, offset uint32) uint32 {
	switch version {
	case 1, 2, 3:
		return 2 * uint32(packed)
	case 4, 5:
		return 4 * uint32(packed)
	case 6, 7:
		return 4*uint32(packed) + 8*offset
	default:
		return 8 * uint32(packed)
	}
}
