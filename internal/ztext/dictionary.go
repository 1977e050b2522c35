package ztext

import "bytes"

// Dictionary is a story word list: separator characters followed by
// fixed-length entries keyed by encoded words. A negative entry count marks
// an unsorted dictionary, as tokenise allows for custom ones.
type Dictionary struct {
	Addr       uint32
	Separators []byte
	EntryLen   uint32
	Count      int
	Sorted     bool

	mem     Memory
	keyLen  int
	entries uint32
}

// LoadDictionary reads the dictionary header at addr.
func (c *Codec) LoadDictionary(addr uint32) *Dictionary {
	d := &Dictionary{Addr: addr, mem: c.mem, keyLen: c.KeyLen()}
	n := uint32(c.mem.ReadByte(addr))
	d.Separators = make([]byte, n)
	for i := range d.Separators {
		d.Separators[i] = c.mem.ReadByte(addr + 1 + uint32(i))
	}
	p := addr + 1 + n
	d.EntryLen = uint32(c.mem.ReadByte(p))
	count := int16(c.mem.ReadWord(p + 1))
	d.Count, d.Sorted = int(count), true
	if count < 0 {
		d.Count, d.Sorted = -int(count), false
	}
	d.entries = p + 3
	return d
}

// Entry returns the address of the i-th entry.
func (d *Dictionary) Entry(i int) uint32 { return d.entries + uint32(i)*d.EntryLen }

func (d *Dictionary) key(i int) []byte {
	k := make([]byte, d.keyLen)
	addr := d.Entry(i)
	for j := range k {
		k[j] = d.mem.ReadByte(addr + uint32(j))
	}
	return k
}

// Lookup returns the address of the entry for an encoded word, or 0.
func (d *Dictionary) Lookup(key []byte) uint32 {
	if d.EntryLen < uint32(d.keyLen) || len(key) != d.keyLen {
		return 0
	}
	if !d.Sorted {
		for i := 0; i < d.Count; i++ {
			if bytes.Equal(d.key(i), key) {
				return d.Entry(i)
			}
		}
		return 0
	}
	lo, hi := 0, d.Count
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch cmp := bytes.Compare(d.key(mid), key); {
		case cmp == 0:
			return d.Entry(mid)
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Word is one token of input text.
type Word struct {
	Pos  int
	Text []byte
}

// Split breaks input at spaces, which are dropped, and at separators,
// which become words of their own.
func Split(text, separators []byte) []Word {
	var words []Word
	start := -1
	for i, ch := range text {
		sep := bytes.IndexByte(separators, ch) >= 0
		if ch == ZSpace || sep {
			if start >= 0 {
				words = append(words, Word{Pos: start, Text: text[start:i]})
				start = -1
			}
			if sep {
				words = append(words, Word{Pos: i, Text: text[i : i+1]})
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, Word{Pos: start, Text: text[start:]})
	}
	return words
}

// Tokenise parses the text buffer at text into the parse buffer at parse,
// looking words up in dict. With skipUnknown, entries for words not in the
// dictionary are left as they were.
func (c *Codec) Tokenise(text, parse uint32, dict *Dictionary, skipUnknown bool) {
	start := text + 1
	var input []byte
	if c.Version >= 5 {
		n := uint32(c.mem.ReadByte(text + 1))
		start = text + 2
		for i := uint32(0); i < n; i++ {
			input = append(input, c.mem.ReadByte(start+i))
		}
	} else {
		size := uint32(c.mem.ReadByte(text))
		for i := uint32(0); i < size; i++ {
			ch := c.mem.ReadByte(start + i)
			if ch == 0 {
				break
			}
			input = append(input, ch)
		}
	}

	maxWords := int(c.mem.ReadByte(parse))
	count := 0
	for _, w := range Split(input, dict.Separators) {
		if count >= maxWords {
			break
		}
		entry := parse + 2 + 4*uint32(count)
		count++
		addr := dict.Lookup(c.Encode(w.Text))
		if addr == 0 && skipUnknown {
			continue
		}
		c.mem.WriteWord(entry, uint16(addr))
		c.mem.WriteByte(entry+2, uint8(len(w.Text)))
		c.mem.WriteByte(entry+3, uint8(start-text)+uint8(w.Pos))
	}
	c.mem.WriteByte(parse+1, uint8(count))
}
