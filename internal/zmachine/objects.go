package zmachine

import (
	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
)

// objectTable is the object tree stored in story memory. Its layout is
// fixed by version: 9 byte records with 31 attributes and byte links up to
// v3, 14 byte records with 47 attributes and word links after.
type objectTable struct {
	mem *mem.Image
	rep *diag.Reporter
	v4  bool

	defaults  uint32 // property defaults table
	base      uint32 // address of the nonexistent object 0
	recSize   uint32
	attrCount uint16
	propMask  uint8
	numProps  uint16

	count uint16 // objects before the first property table
	limit uint16 // objects that fit in dynamic memory
}

const (
	offParent = iota
	offSibling
	offChild
	offProps
)

func (ot *objectTable) init(m *mem.Image, rep *diag.Reporter) {
	*ot = objectTable{mem: m, rep: rep, v4: m.Version() >= 4}
	if ot.v4 {
		ot.recSize, ot.attrCount, ot.propMask, ot.numProps = 14, 47, 0x3f, 63
	} else {
		ot.recSize, ot.attrCount, ot.propMask, ot.numProps = 9, 31, 0x1f, 31
	}
	ot.defaults = m.ObjectTable()
	if ot.defaults < mem.HeaderSize {
		return
	}
	ot.base = ot.defaults + 2*uint32(ot.numProps) - ot.recSize
	if ot.base+ot.recSize <= m.DynamicSize {
		n := (m.DynamicSize - ot.base) / ot.recSize
		if n > 0xffff {
			n = 0xffff
		}
		if !ot.v4 && n > 0xff {
			n = 0xff
		}
		ot.limit = uint16(n)
	}

	// objects end where the first property table begins
	first := m.DynamicSize
	for n := uint16(1); n <= ot.limit && ot.addr(n)+ot.recSize <= first; n++ {
		if p := ot.props(n); p < first {
			first = p
		}
		ot.count = n
	}
}

func (ot *objectTable) addr(obj uint16) uint32 { return ot.base + uint32(obj)*ot.recSize }

// valid reports whether obj may be used. Numbers past the counted objects
// only warn, since stories can place objects there.
func (ot *objectTable) valid(obj uint16) bool {
	switch {
	case obj == 0:
		ot.rep.Error(diag.Object, "reference to object 0", 0)
		return false
	case obj > ot.limit:
		ot.rep.Error(diag.Object, "object number too large", uint32(obj))
		return false
	case obj > ot.count:
		ot.rep.Warn(diag.Object, "object number probably too large", uint32(obj))
	}
	return true
}

func (ot *objectTable) link(obj uint16, which int) uint16 {
	if ot.v4 {
		return ot.mem.ReadWord(ot.addr(obj) + 6 + 2*uint32(which))
	}
	return uint16(ot.mem.ReadByte(ot.addr(obj) + 4 + uint32(which)))
}

func (ot *objectTable) setLink(obj uint16, which int, val uint16) {
	if ot.v4 {
		ot.mem.WriteWord(ot.addr(obj)+6+2*uint32(which), val)
	} else {
		ot.mem.WriteByte(ot.addr(obj)+4+uint32(which), uint8(val))
	}
}

func (ot *objectTable) parent(obj uint16) uint16  { return ot.link(obj, offParent) }
func (ot *objectTable) sibling(obj uint16) uint16 { return ot.link(obj, offSibling) }
func (ot *objectTable) child(obj uint16) uint16   { return ot.link(obj, offChild) }

func (ot *objectTable) props(obj uint16) uint32 {
	if ot.v4 {
		return uint32(ot.mem.ReadWord(ot.addr(obj) + 12))
	}
	return uint32(ot.mem.ReadWord(ot.addr(obj) + 7))
}

func (ot *objectTable) attrValid(n uint16) bool {
	if n >= ot.attrCount {
		ot.rep.Error(diag.Object, "attempt to access illegal attribute", uint32(n))
		return false
	}
	return true
}

// attr bits are numbered from the top bit of the first byte.
func (ot *objectTable) attr(obj, n uint16) bool {
	if !ot.valid(obj) || !ot.attrValid(n) {
		return false
	}
	return ot.mem.ReadByte(ot.addr(obj)+uint32(n>>3))&(0x80>>(n&7)) != 0
}

func (ot *objectTable) setAttr(obj, n uint16, on bool) {
	if !ot.valid(obj) || !ot.attrValid(n) {
		return
	}
	addr := ot.addr(obj) + uint32(n>>3)
	b := ot.mem.ReadByte(addr)
	if on {
		b |= 0x80 >> (n & 7)
	} else {
		b &^= 0x80 >> (n & 7)
	}
	ot.mem.WriteByte(addr, b)
}

// insert makes obj the first child of dest.
func (ot *objectTable) insert(obj, dest uint16) {
	if !ot.valid(obj) || !ot.valid(dest) {
		return
	}
	for p, n := dest, 0; p != 0; p, n = ot.parent(p), n+1 {
		if p == obj {
			ot.rep.Error(diag.Object, "attempt to place an object inside itself", uint32(obj))
			return
		}
		if n > int(ot.limit) {
			ot.rep.Error(diag.Object, "found objects inside themselves", uint32(dest))
			return
		}
	}
	ot.remove(obj)
	ot.setLink(obj, offParent, dest)
	ot.setLink(obj, offSibling, ot.child(dest))
	ot.setLink(dest, offChild, obj)
}

// remove detaches obj from its parent, leaving its children with it.
func (ot *objectTable) remove(obj uint16) {
	if !ot.valid(obj) {
		return
	}
	parent := ot.parent(obj)
	if parent == 0 || !ot.valid(parent) {
		return
	}
	if next := ot.child(parent); next == obj {
		ot.setLink(parent, offChild, ot.sibling(obj))
	} else {
		for n := 0; ; n++ {
			if next == 0 || !ot.valid(next) {
				ot.rep.Error(diag.Object, "object missing from its parent's children", uint32(obj))
				return
			}
			if n > int(ot.limit) {
				ot.rep.Error(diag.Object, "looped sibling list", uint32(parent))
				return
			}
			sib := ot.sibling(next)
			if sib == obj {
				ot.setLink(next, offSibling, ot.sibling(obj))
				break
			}
			next = sib
		}
	}
	ot.setLink(obj, offParent, 0)
	ot.setLink(obj, offSibling, 0)
}

// shortName returns the address of obj's name, or 0 for a nameless one.
func (ot *objectTable) shortName(obj uint16) uint32 {
	if !ot.valid(obj) {
		return 0
	}
	p := ot.props(obj)
	if ot.mem.ReadByte(p) == 0 {
		return 0
	}
	return p + 1
}

// property is one entry of a property list.
type property struct {
	num    uint8
	data   uint32
	length uint16
	next   uint32
}

// propAt reads the entry whose size byte is at addr; num is 0 at the end of
// the list.
func (ot *objectTable) propAt(addr uint32) property {
	b := ot.mem.ReadByte(addr)
	p := property{num: b & ot.propMask, data: addr + 1}
	switch {
	case !ot.v4:
		p.length = uint16(b>>5) + 1
	case b&0x80 != 0:
		p.length = uint16(ot.mem.ReadByte(addr+1) & 0x3f)
		if p.length == 0 {
			p.length = 64
		}
		p.data++
	case b&0x40 != 0:
		p.length = 2
	default:
		p.length = 1
	}
	p.next = p.data + uint32(p.length)
	return p
}

// eachProp calls fn with each property of obj until it returns false. The
// walk is bounded by memory size, so a corrupt list cannot loop forever.
func (ot *objectTable) eachProp(obj uint16, fn func(property) bool) {
	t := ot.props(obj)
	addr := t + 1 + 2*uint32(ot.mem.ReadByte(t))
	for steps := uint32(0); ; steps++ {
		if steps > ot.mem.TotalSize || addr >= ot.mem.TotalSize {
			ot.rep.Error(diag.Object, "unterminated property list", uint32(obj))
			return
		}
		p := ot.propAt(addr)
		if p.num == 0 || !fn(p) {
			return
		}
		addr = p.next
	}
}

func (ot *objectTable) findProp(obj uint16, num uint16) (property, bool) {
	var found property
	ok := false
	ot.eachProp(obj, func(p property) bool {
		if uint16(p.num) == num {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}

func (ot *objectTable) propNumValid(num uint16) bool {
	if num == 0 || num > ot.numProps {
		ot.rep.Error(diag.Object, "invalid property number", uint32(num))
		return false
	}
	return true
}

// getProp returns the value of property num of obj, falling back to the
// default table when obj does not have it.
func (ot *objectTable) getProp(obj, num uint16) uint16 {
	if !ot.valid(obj) || !ot.propNumValid(num) {
		return 0
	}
	p, ok := ot.findProp(obj, num)
	if !ok {
		return ot.mem.ReadWord(ot.defaults + 2*uint32(num-1))
	}
	switch p.length {
	case 1:
		return uint16(ot.mem.ReadByte(p.data))
	case 2:
	default:
		ot.rep.Port(diag.Object, "get_prop on property with bad length", uint32(num))
	}
	return ot.mem.ReadWord(p.data)
}

func (ot *objectTable) getPropAddr(obj, num uint16) uint32 {
	if !ot.valid(obj) {
		return 0
	}
	if p, ok := ot.findProp(obj, num); ok {
		return p.data
	}
	return 0
}

// propLen returns the length of the property whose data starts at addr.
func (ot *objectTable) propLen(addr uint32) uint16 {
	if addr == 0 {
		return 0
	}
	if addr <= mem.HeaderSize {
		ot.rep.Error(diag.Object, "get property length in header", addr)
		return 0
	}
	b := ot.mem.ReadByte(addr - 1)
	switch {
	case !ot.v4:
		return uint16(b>>5) + 1
	case b&0x80 != 0:
		if n := uint16(b & 0x3f); n != 0 {
			return n
		}
		return 64
	case b&0x40 != 0:
		return 2
	default:
		return 1
	}
}

// nextProp returns the number of the property after num, or the first
// property when num is 0.
func (ot *objectTable) nextProp(obj, num uint16) uint16 {
	if !ot.valid(obj) {
		return 0
	}
	var next uint16
	found := num == 0
	ot.eachProp(obj, func(p property) bool {
		if found {
			next = uint16(p.num)
			return false
		}
		found = uint16(p.num) == num
		return true
	})
	if !found {
		ot.rep.Error(diag.Object, "get_next_prop on nonexistent property", uint32(num))
	}
	return next
}

func (ot *objectTable) putProp(obj, num, val uint16) {
	if !ot.valid(obj) {
		return
	}
	p, ok := ot.findProp(obj, num)
	if !ok {
		ot.rep.Error(diag.Object, "put_prop on nonexistent property", uint32(num))
		return
	}
	switch p.length {
	case 1:
		ot.mem.WriteByte(p.data, uint8(val))
		return
	case 2:
	default:
		ot.rep.Port(diag.Object, "put_prop on property with bad length", uint32(num))
	}
	ot.mem.WriteWord(p.data, val)
}
