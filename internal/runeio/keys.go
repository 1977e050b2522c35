// Package runeio names the keys a story can read and renders story text
// safely onto a host terminal.
package runeio

import (
	"errors"
	"strconv"
	"strings"
)

// Key is a named ZSCII input code.
type Key struct {
	Name string
	Code uint8
}

// ZSCII input codes for keys beyond the printable characters.
const (
	KeyDelete   = 8
	KeyNewline  = 13
	KeyEscape   = 27
	KeyUp       = 129
	KeyDown     = 130
	KeyLeft     = 131
	KeyRight    = 132
	KeyF1       = 133
	KeyF12      = 144
	KeyPad0     = 145
	KeyPad9     = 154
	KeyMenu     = 252
	KeyDblClick = 253
	KeyClick    = 254
	KeyAnyFunc  = 255 // terminator table entry matching every function key
)

// Keys lists every key name; the first name for a code is its canonical one.
var Keys = func() []Key {
	keys := []Key{
		{"<DEL>", KeyDelete},
		{"<BS>", KeyDelete},
		{"<TAB>", 9},
		{"<CR>", KeyNewline},
		{"<NL>", KeyNewline},
		{"<ESC>", KeyEscape},
		{"<UP>", KeyUp},
		{"<DOWN>", KeyDown},
		{"<LEFT>", KeyLeft},
		{"<RIGHT>", KeyRight},
	}
	for i := 0; i < 12; i++ {
		keys = append(keys, Key{"<F" + strconv.Itoa(i+1) + ">", uint8(KeyF1 + i)})
	}
	for i := 0; i < 10; i++ {
		keys = append(keys, Key{"<KP" + strconv.Itoa(i) + ">", uint8(KeyPad0 + i)})
	}
	return append(keys,
		Key{"<MENU>", KeyMenu},
		Key{"<DCLICK>", KeyDblClick},
		Key{"<CLICK>", KeyClick},
	)
}()

var (
	keyCodes = make(map[string]uint8, 2*len(Keys))
	keyNames = make(map[uint8]string, len(Keys))
)

func init() {
	for _, key := range Keys {
		keyCodes[key.Name] = key.Code
		keyCodes[strings.ToLower(key.Name)] = key.Code
		if _, dup := keyNames[key.Code]; !dup {
			keyNames[key.Code] = key.Name
		}
	}
}

// KeyCode returns the code of a key name like "<F1>", in either case.
func KeyCode(name string) (uint8, bool) {
	code, ok := keyCodes[name]
	return code, ok
}

// KeyName returns the canonical name of code, or "" if it has none.
func KeyName(code uint8) string { return keyNames[code] }

// IsFunctionKey reports whether code may terminate input in place of
// newline: the cursor, function and keypad keys and mouse clicks.
func IsFunctionKey(code uint8) bool {
	return (code >= KeyUp && code <= KeyPad9) || (code >= KeyMenu && code <= KeyClick)
}

// SplitKey splits a trailing key name from line, as scripts write a line
// ended by a function key.
func SplitKey(line string) (string, uint8, bool) {
	if !strings.HasSuffix(line, ">") {
		return line, 0, false
	}
	i := strings.LastIndexByte(line, '<')
	if i < 0 {
		return line, 0, false
	}
	code, ok := KeyCode(line[i:])
	if !ok {
		return line, 0, false
	}
	return line[:i], code, true
}

// CaretForm computes the ^-escaped printable form of a C0 or C1 control
// rune, or "" for any other rune.
func CaretForm(r rune) string {
	if r < 0x20 || r == 0x7f {
		return "^" + string(r^0x40)
	} else if 0x80 <= r && r <= 0x9f {
		return "^[" + string(r^0xc0)
	}
	return ""
}

var errInvalidKey = errors.New(`key must be "<NAME>" "^X" or 'X'`)

// ParseKey parses a key as written in configuration: a key name, the caret
// form of a control character, or a quoted character.
func ParseKey(token string) (rune, error) {
	if code, ok := KeyCode(token); ok {
		return rune(code), nil
	}
	if len(token) == 2 && token[0] == '^' && token[1] >= '?' && token[1] <= '_' {
		return rune(token[1] ^ 0x40), nil
	}
	runes := []rune(token)
	if len(runes) < 3 || runes[0] != '\'' || runes[len(runes)-1] != '\'' {
		return 0, errInvalidKey
	}
	value, _, tail, err := strconv.UnquoteChar(token[1:len(token)-1], '\'')
	if err != nil {
		return 0, err
	}
	if tail != "" {
		return 0, errInvalidKey
	}
	return value, nil
}
