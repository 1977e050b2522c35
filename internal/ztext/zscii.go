// Package ztext converts between packed Z-strings, ZSCII and unicode, and
// implements dictionary lookup and tokenisation of player input.
package ztext

import "github.com/jcorbin/zvm/internal/diag"

// Memory is the addressed storage strings and dictionaries live in.
type Memory interface {
	ReadByte(addr uint32) uint8
	ReadWord(addr uint32) uint16
	WriteByte(addr uint32, val uint8)
	WriteWord(addr uint32, val uint16)
}

// ZSCII codes with special meaning.
const (
	ZNull    = 0
	ZDelete  = 8
	ZTab     = 9
	ZSpace   = 32
	ZNewline = 13
	ZEscape  = 27
	ZFirstEx = 155
)

var defaultUnicode = []rune("äöüÄÖÜß»«ëïÿËÏáéíóúýÁÉÍÓÚÝàèìòùÀÈÌÒÙâêîôûÂÊÎÔÛåÅøØãñõÃÑÕæÆçÇþðÞÐ£œŒ¡¿")

var defaultAlphabets = [3]string{
	"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	" \r0123456789.,!?_#'\"/\\-:()",
}

const v1Alphabet2 = " 0123456789.,!?_#'\"/\\<-:()"

// Tables locates the story's optional text tables; zero means absent.
type Tables struct {
	Abbreviations uint32
	Alphabet      uint32
	Unicode       uint32
}

// Codec decodes and encodes text for one story.
type Codec struct {
	Version  uint8
	Reporter *diag.Reporter

	mem      Memory
	size     uint32
	abbrevs  uint32
	alphabet [3][26]byte
	unicode  []rune
}

// New builds a codec over mem, whose first size bytes are addressable,
// reading custom alphabet and unicode tables when given.
func New(mem Memory, version uint8, size uint32, tables Tables, rep *diag.Reporter) *Codec {
	c := &Codec{
		Version:  version,
		Reporter: rep,
		mem:      mem,
		size:     size,
		abbrevs:  tables.Abbreviations,
		unicode:  defaultUnicode,
	}
	for i, s := range defaultAlphabets {
		if i == 2 && version == 1 {
			s = v1Alphabet2
		}
		copy(c.alphabet[i][:], s)
	}
	if version >= 5 && tables.Alphabet != 0 {
		for i := range c.alphabet {
			for j := range c.alphabet[i] {
				c.alphabet[i][j] = mem.ReadByte(tables.Alphabet + uint32(26*i+j))
			}
		}
	}
	if tables.Unicode != 0 {
		n := uint32(mem.ReadByte(tables.Unicode))
		c.unicode = make([]rune, n)
		for i := uint32(0); i < n; i++ {
			c.unicode[i] = rune(mem.ReadWord(tables.Unicode + 1 + 2*i))
		}
	}
	return c
}

// Rune translates a ZSCII output code; ok is false for codes with no
// printable meaning.
func (c *Codec) Rune(z uint16) (r rune, ok bool) {
	switch {
	case z == ZNewline:
		return '\n', true
	case z == ZTab, z == 11:
		return ' ', true
	case z >= 32 && z <= 126:
		return rune(z), true
	case z >= ZFirstEx && int(z-ZFirstEx) < len(c.unicode):
		return c.unicode[z-ZFirstEx], true
	}
	return 0, false
}

// ZSCII translates a unicode character from input.
func (c *Codec) ZSCII(r rune) (z uint8, ok bool) {
	switch {
	case r == '\n' || r == '\r':
		return ZNewline, true
	case r == '\b' || r == 0x7f:
		return ZDelete, true
	case r == 0x1b:
		return ZEscape, true
	case r >= 32 && r <= 126:
		return uint8(r), true
	}
	for i, u := range c.unicode {
		if u == r && ZFirstEx+i <= 251 {
			return uint8(ZFirstEx + i), true
		}
	}
	return '?', false
}

// String renders decoded ZSCII, dropping unprintable codes.
func (c *Codec) String(zs []uint16) string {
	rs := make([]rune, 0, len(zs))
	for _, z := range zs {
		if r, ok := c.Rune(z); ok {
			rs = append(rs, r)
		}
	}
	return string(rs)
}
