package ztext

// KeyLen returns the encoded length in bytes of a dictionary word.
func (c *Codec) KeyLen() int {
	if c.Version <= 3 {
		return 4
	}
	return 6
}

// Encode encodes ZSCII text as a dictionary word, truncating or padding
// to 6 z-chars (v1-3) or 9 (v4+).
func (c *Codec) Encode(text []byte) []byte {
	n := 3 * c.KeyLen() / 2
	zs := make([]byte, 0, n+4)
	for _, ch := range text {
		if len(zs) >= n {
			break
		}
		zs = c.appendZchars(zs, ch)
	}
	for len(zs) < n {
		zs = append(zs, 5)
	}
	zs = zs[:n]

	out := make([]byte, 0, c.KeyLen())
	for i := 0; i < n; i += 3 {
		w := uint16(zs[i])<<10 | uint16(zs[i+1])<<5 | uint16(zs[i+2])
		if i+3 == n {
			w |= 0x8000
		}
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

func (c *Codec) appendZchars(zs []byte, ch byte) []byte {
	if ch == ZSpace {
		return append(zs, 0)
	}
	for alpha := range c.alphabet {
		for i, a := range c.alphabet[alpha] {
			if alpha == 2 && (i == 0 || i == 1 && c.Version >= 2) {
				continue
			}
			if a == ch {
				if alpha > 0 {
					zs = append(zs, c.shiftChar(alpha))
				}
				return append(zs, byte(i+6))
			}
		}
	}
	return append(zs, c.shiftChar(2), 6, ch>>5, ch&0x1f)
}

func (c *Codec) shiftChar(alpha int) byte {
	if c.Version <= 2 {
		return byte(alpha + 1)
	}
	return byte(alpha + 3)
}
