package quetzal

import "github.com/jcorbin/zvm/internal/diag"

// IdentSize is the length of an IFhd chunk.
const IdentSize = 13

// Ident is the IFhd record tying a save to its story, plus the PC at which
// the saved state resumes.
type Ident struct {
	Release  uint16
	Serial   [6]byte
	Checksum uint16
	PC       uint32
}

// MarshalBinary encodes the 13 byte IFhd form.
func (id Ident) MarshalBinary() ([]byte, error) {
	b := make([]byte, IdentSize)
	b[0], b[1] = byte(id.Release>>8), byte(id.Release)
	copy(b[2:8], id.Serial[:])
	b[8], b[9] = byte(id.Checksum>>8), byte(id.Checksum)
	b[10], b[11], b[12] = byte(id.PC>>16), byte(id.PC>>8), byte(id.PC)
	return b, nil
}

// UnmarshalBinary decodes an IFhd chunk.
func (id *Ident) UnmarshalBinary(b []byte) error {
	if len(b) < IdentSize {
		return diag.Errorf(diag.Corrupt, "IFhd chunk of %d bytes too short", len(b))
	}
	id.Release = uint16(b[0])<<8 | uint16(b[1])
	copy(id.Serial[:], b[2:8])
	id.Checksum = uint16(b[8])<<8 | uint16(b[9])
	id.PC = uint32(b[10])<<16 | uint32(b[11])<<8 | uint32(b[12])
	return nil
}

// Matches reports whether other identifies the same story.
func (id Ident) Matches(other Ident) bool {
	return id.Release == other.Release &&
		id.Serial == other.Serial &&
		id.Checksum == other.Checksum
}

// platformID is written as the IntD chunk.
var platformID = []byte{
	'U', 'N', 'I', 'X', // operating system
	0x00,               // flags
	0x00,               // contents id
	0x00, 0x00,         // reserved
	'Z', 'V', 'M', ' ', // interpreter
}
