package zmachine

import (
	"unicode"

	"github.com/jcorbin/zvm/internal/diag"
)

// windower returns the terminal's screen model, flushing text buffered for
// the current window first.
func (vm *VM) windower() (Windower, bool) {
	w, ok := vm.term.(Windower)
	if ok {
		vm.flush()
	}
	return w, ok
}

func opSplitWindow(vm *VM, in *Instruction) {
	if w, ok := vm.windower(); ok {
		w.SplitWindow(int(in.Operands[0]))
	}
}

func opSetWindow(vm *VM, in *Instruction) {
	win := int(in.signed(0))
	vm.flush()
	vm.streams.window = win
	if w, ok := vm.term.(Windower); ok {
		w.SetWindow(win)
	}
}

func opEraseWindow(vm *VM, in *Instruction) {
	win := int(in.signed(0))
	if win == -1 {
		vm.streams.window = 0
	}
	if w, ok := vm.windower(); ok {
		w.EraseWindow(win)
	}
}

func opEraseLine(vm *VM, in *Instruction) {
	if in.Operands[0] != 1 {
		return
	}
	if w, ok := vm.windower(); ok {
		w.EraseLine()
	}
}

func opSetCursor(vm *VM, in *Instruction) {
	if w, ok := vm.windower(); ok {
		w.SetCursor(int(in.signed(0)), int(in.signed(1)))
	}
}

func opGetCursor(vm *VM, in *Instruction) {
	line, col := 1, 1
	if w, ok := vm.windower(); ok {
		line, col = w.Cursor()
	}
	array := uint32(in.Operands[0])
	vm.mem.WriteWord(array, uint16(line))
	vm.mem.WriteWord(array+2, uint16(col))
}

func opSetTextStyle(vm *VM, in *Instruction) {
	if w, ok := vm.windower(); ok {
		w.SetTextStyle(int(in.Operands[0]))
	}
}

func opSetColour(vm *VM, in *Instruction) {
	if w, ok := vm.windower(); ok {
		w.SetColour(int(in.signed(0)), int(in.signed(1)))
	}
}

func opBufferMode(vm *VM, in *Instruction) {
	if w, ok := vm.windower(); ok {
		w.SetBufferMode(in.Operands[0] != 0)
	}
}

// opPrintTable prints a rectangle of ZSCII text, each row skip bytes
// apart. Rows after the first start under the first one's column when the
// terminal has a cursor; otherwise on a new line.
func opPrintTable(vm *VM, in *Instruction) {
	text := uint32(in.Operands[0])
	width := uint32(in.Operands[1])
	height := uint32(in.Arg(2, 1))
	skip := uint32(in.Arg(3, 0))
	w, cursor := vm.term.(Windower)
	line, col := 0, 0
	if cursor {
		vm.flush()
		line, col = w.Cursor()
	}
	for row := uint32(0); row < height; row++ {
		if row > 0 {
			if cursor {
				vm.flush()
				w.SetCursor(line+int(row), col)
			} else {
				vm.printZSCII(13)
			}
		}
		addr := text + row*(width+skip)
		for i := uint32(0); i < width; i++ {
			vm.printZSCII(uint16(vm.mem.ReadByte(addr + i)))
		}
	}
}

// opSetFont switches fonts, storing the previous one, or 0 if the font is
// unavailable. Font 0 queries without switching.
func opSetFont(vm *VM, in *Instruction) {
	switch font := in.Operands[0]; font {
	case 0:
		vm.store(vm.font)
	case 1, 3, 4:
		prev := vm.font
		vm.font = font
		vm.store(prev)
	default:
		vm.store(0)
	}
}

func opPrintUnicode(vm *VM, in *Instruction) {
	r := rune(in.Operands[0])
	if len(vm.streams.tables) > 0 {
		z, _ := vm.text.ZSCII(r)
		vm.printZSCII(uint16(z))
		return
	}
	if !unicode.IsPrint(r) {
		vm.rep.Warn(diag.Output, "print_unicode of unprintable character", uint32(r))
		return
	}
	vm.screenRune(r)
}

// opCheckUnicode stores bit 0 if the character can be printed and bit 1
// if it can be typed.
func opCheckUnicode(vm *VM, in *Instruction) {
	r := rune(in.Operands[0])
	var res uint16
	if unicode.IsPrint(r) {
		res |= 1
	}
	if _, ok := vm.text.ZSCII(r); ok {
		res |= 2
	}
	vm.store(res)
}
