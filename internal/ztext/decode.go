package ztext

import "github.com/jcorbin/zvm/internal/diag"

type decoder struct {
	out   []uint16
	lock  int // shift-locked alphabet, v1-2 only
	shift int // alphabet of the next z-char; -1 for none
	abbr  int // pending abbreviation bank 1-3
	esc   int // 10-bit escape: 1 awaits the high half, 2 the low
	hi    uint16
}

// Decode decodes the Z-string at addr, returning its ZSCII codes and the
// address just past its final word.
func (c *Codec) Decode(addr uint32) ([]uint16, uint32) {
	d := decoder{shift: -1}
	next := c.zchars(addr, func(z byte) { c.step(&d, z, false) })
	return d.out, next
}

// DecodeString decodes the Z-string at addr to unicode.
func (c *Codec) DecodeString(addr uint32) string {
	zs, _ := c.Decode(addr)
	return c.String(zs)
}

// zchars feeds each 5-bit z-char of the string at addr to emit.
func (c *Codec) zchars(addr uint32, emit func(z byte)) uint32 {
	for {
		if addr+1 >= c.size || addr+1 < addr {
			c.Reporter.Error(diag.String, "unterminated string", addr)
			return addr
		}
		w := c.mem.ReadWord(addr)
		addr += 2
		emit(byte(w >> 10 & 0x1f))
		emit(byte(w >> 5 & 0x1f))
		emit(byte(w & 0x1f))
		if w&0x8000 != 0 {
			return addr
		}
	}
}

func (c *Codec) step(d *decoder, z byte, nested bool) {
	switch {
	case d.esc == 1:
		d.hi, d.esc = uint16(z), 2
		return
	case d.esc == 2:
		d.out = append(d.out, d.hi<<5|uint16(z))
		d.esc = 0
		return
	case d.abbr != 0:
		idx := 32*(d.abbr-1) + int(z)
		d.abbr = 0
		c.abbreviation(d, idx, nested)
		return
	}

	alpha := d.lock
	if d.shift >= 0 {
		alpha, d.shift = d.shift, -1
	}
	switch {
	case z == 0:
		d.out = append(d.out, ZSpace)
	case z == 1 && c.Version == 1:
		d.out = append(d.out, ZNewline)
	case z <= 3 && (c.Version >= 3 || z == 1):
		d.abbr = int(z)
	case z <= 3:
		d.shift = (d.lock + int(z) - 1) % 3
	case z <= 5 && c.Version <= 2:
		d.lock = (d.lock + int(z) - 3) % 3
	case z <= 5:
		d.shift = int(z) - 3
	case alpha == 2 && z == 6:
		d.esc = 1
	case alpha == 2 && z == 7 && c.Version >= 2:
		d.out = append(d.out, ZNewline)
	default:
		d.out = append(d.out, uint16(c.alphabet[alpha][z-6]))
	}
}

func (c *Codec) abbreviation(d *decoder, idx int, nested bool) {
	if nested {
		c.Reporter.Error(diag.String, "abbreviation used within abbreviation", uint32(idx))
		return
	}
	if c.abbrevs == 0 {
		c.Reporter.Error(diag.String, "abbreviation without an abbreviation table", uint32(idx))
		return
	}
	addr := 2 * uint32(c.mem.ReadWord(c.abbrevs+2*uint32(idx)))
	inner := decoder{shift: -1}
	c.zchars(addr, func(z byte) { c.step(&inner, z, true) })
	d.out = append(d.out, inner.out...)
}
