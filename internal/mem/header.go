package mem

import "encoding/binary"

// Header field addresses.
const (
	HdVersion       = 0x00
	HdFlags1        = 0x01
	HdRelease       = 0x02
	HdHighMem       = 0x04
	HdInitialPC     = 0x06
	HdDictionary    = 0x08
	HdObjects       = 0x0a
	HdGlobals       = 0x0c
	HdStaticBase    = 0x0e
	HdFlags2        = 0x10
	HdSerial        = 0x12
	HdAbbrevs       = 0x18
	HdLength        = 0x1a
	HdChecksum      = 0x1c
	HdInterpNumber  = 0x1e
	HdInterpVersion = 0x1f
	HdScreenRows    = 0x20
	HdScreenCols    = 0x21
	HdScreenWidth   = 0x22
	HdScreenHeight  = 0x24
	HdFontWidth     = 0x26
	HdFontHeight    = 0x27
	HdRoutineOffset = 0x28
	HdStringOffset  = 0x2a
	HdDefaultBG     = 0x2c
	HdDefaultFG     = 0x2d
	HdTerminators   = 0x2e
	HdStream3Width  = 0x30
	HdStandard      = 0x32
	HdAlphabet      = 0x34
	HdExtension     = 0x36

	HeaderSize = 0x40
)

// Flags 2 bits, as seen in the low byte at HdFlags2+1.
const (
	Flags2Transcript = 1 << 0
	Flags2FixedFont  = 1 << 1
)

// Extension table word numbers.
const (
	ExtMouseX       = 1
	ExtMouseY       = 2
	ExtUnicodeTable = 3
)

// headerWritable lists the header bytes a story may change at run time.
var headerWritable = [HeaderSize]bool{
	HdFlags2:     true,
	HdFlags2 + 1: true,
}

func headerWord(b []byte, addr int) uint16 { return binary.BigEndian.Uint16(b[addr:]) }

// Version returns the story format version.
func (m *Image) Version() uint8 { return m.bytes[HdVersion] }

// Flags1 returns the first flags byte.
func (m *Image) Flags1() uint8 { return m.bytes[HdFlags1] }

// Flags2 returns the flags 2 word.
func (m *Image) Flags2() uint16 { return headerWord(m.bytes, HdFlags2) }

// Release returns the release number.
func (m *Image) Release() uint16 { return headerWord(m.bytes, HdRelease) }

// Serial returns the 6 byte serial code.
func (m *Image) Serial() (serial [6]byte) {
	copy(serial[:], m.bytes[HdSerial:HdSerial+6])
	return serial
}

// HeaderChecksum returns the checksum recorded in the header.
func (m *Image) HeaderChecksum() uint16 { return headerWord(m.bytes, HdChecksum) }

// Dictionary returns the address of the standard dictionary.
func (m *Image) Dictionary() uint32 { return uint32(headerWord(m.bytes, HdDictionary)) }

// ObjectTable returns the address of the property defaults table, which
// begins the object table.
func (m *Image) ObjectTable() uint32 { return uint32(headerWord(m.bytes, HdObjects)) }

// Globals returns the address of the global variable table.
func (m *Image) Globals() uint32 { return uint32(headerWord(m.bytes, HdGlobals)) }

// Abbreviations returns the address of the abbreviations table.
func (m *Image) Abbreviations() uint32 { return uint32(headerWord(m.bytes, HdAbbrevs)) }

// AlphabetTable returns the address of a custom alphabet table, or 0.
func (m *Image) AlphabetTable() uint32 {
	if m.Version() < 5 {
		return 0
	}
	return uint32(headerWord(m.bytes, HdAlphabet))
}

// TerminatorTable returns the address of the terminating characters table, or 0.
func (m *Image) TerminatorTable() uint32 {
	if m.Version() < 5 {
		return 0
	}
	return uint32(headerWord(m.bytes, HdTerminators))
}

// ExtensionWord returns word n of the header extension table, or 0 if the
// story does not have one that long.
func (m *Image) ExtensionWord(n uint16) uint16 {
	if m.Version() < 5 {
		return 0
	}
	ext := uint32(headerWord(m.bytes, HdExtension))
	if ext == 0 || m.ReadWord(ext) < n {
		return 0
	}
	return m.ReadWord(ext + 2*uint32(n))
}

// SetHeaderByte sets an interpreter-owned header byte, bypassing the write
// filter applied to story writes.
func (m *Image) SetHeaderByte(addr uint32, val uint8) {
	if addr < HeaderSize {
		m.bytes[addr] = val
	}
}

// SetHeaderWord sets an interpreter-owned header word.
func (m *Image) SetHeaderWord(addr uint32, val uint16) {
	if addr+1 < HeaderSize {
		binary.BigEndian.PutUint16(m.bytes[addr:], val)
	}
}

// granularity returns the packed address and file length multiplier.
func granularity(version uint8) uint32 {
	switch {
	case version <= 3:
		return 2
	case version <= 5:
		return 4
	default:
		return 8
	}
}
