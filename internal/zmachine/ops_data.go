package zmachine

import (
	"github.com/jcorbin/zvm/internal/diag"
)

func opJin(vm *VM, in *Instruction) {
	obj := in.Operands[0]
	if !vm.objects.valid(obj) {
		vm.branch(false)
		return
	}
	vm.branch(vm.objects.parent(obj) == in.Operands[1])
}

func opTestAttr(vm *VM, in *Instruction) {
	vm.branch(vm.objects.attr(in.Operands[0], in.Operands[1]))
}

func opGetSibling(vm *VM, in *Instruction) {
	var next uint16
	if obj := in.Operands[0]; vm.objects.valid(obj) {
		next = vm.objects.sibling(obj)
	}
	vm.store(next)
	vm.branch(next != 0)
}

func opGetChild(vm *VM, in *Instruction) {
	var next uint16
	if obj := in.Operands[0]; vm.objects.valid(obj) {
		next = vm.objects.child(obj)
	}
	vm.store(next)
	vm.branch(next != 0)
}

func opGetParent(vm *VM, in *Instruction) {
	var parent uint16
	if obj := in.Operands[0]; vm.objects.valid(obj) {
		parent = vm.objects.parent(obj)
	}
	vm.store(parent)
}

func opPrintObj(vm *VM, in *Instruction) {
	if addr := vm.objects.shortName(in.Operands[0]); addr != 0 {
		vm.printString(addr)
	}
}

// Table addresses wrap at 16 bits, so negative indexes reach back from
// the array base.
func wordAddr(base, index uint16) uint32 { return uint32(base + 2*index) }
func byteAddr(base, index uint16) uint32 { return uint32(base + index) }

func opLoadw(vm *VM, in *Instruction) {
	vm.store(vm.mem.ReadWord(wordAddr(in.Operands[0], in.Operands[1])))
}

func opLoadb(vm *VM, in *Instruction) {
	vm.store(uint16(vm.mem.ReadByte(byteAddr(in.Operands[0], in.Operands[1]))))
}

func opStorew(vm *VM, in *Instruction) {
	vm.mem.WriteWord(wordAddr(in.Operands[0], in.Operands[1]), in.Operands[2])
}

func opStoreb(vm *VM, in *Instruction) {
	vm.mem.WriteByte(byteAddr(in.Operands[0], in.Operands[1]), uint8(in.Operands[2]))
}

// opScanTable searches len entries of a table for x. The form operand's
// top bit selects words, and its low bits give the entry size.
func opScanTable(vm *VM, in *Instruction) {
	x := in.Operands[0]
	table := uint32(in.Operands[1])
	n := in.Operands[2]
	form := in.Arg(3, 0x82)
	size := uint32(form & 0x7f)
	words := form&0x80 != 0
	if size == 0 {
		vm.rep.Error(diag.Instruction, "scan_table with zero entry size", uint32(form))
		vm.store(0)
		vm.branch(false)
		return
	}
	for i := uint16(0); i < n; i++ {
		addr := table + uint32(i)*size
		var val uint16
		if words {
			val = vm.mem.ReadWord(addr)
		} else {
			val = uint16(vm.mem.ReadByte(addr))
		}
		if val == x {
			vm.store(uint16(addr))
			vm.branch(true)
			return
		}
	}
	vm.store(0)
	vm.branch(false)
}

// opCopyTable copies size bytes from first to second, or zeroes first when
// second is 0. A negative size forces a forward copy even when the tables
// overlap.
func opCopyTable(vm *VM, in *Instruction) {
	first, second := uint32(in.Operands[0]), uint32(in.Operands[1])
	size := in.signed(2)
	if second == 0 {
		n := uint32(size)
		if size < 0 {
			n = uint32(-int32(size))
		}
		for i := uint32(0); i < n; i++ {
			vm.mem.WriteByte(first+i, 0)
		}
		return
	}
	forward := size < 0 || first > second || first+uint32(size) <= second
	n := uint32(size)
	if size < 0 {
		n = uint32(-int32(size))
	}
	if forward {
		for i := uint32(0); i < n; i++ {
			vm.mem.WriteByte(second+i, vm.mem.ReadByte(first+i))
		}
		return
	}
	for i := n; i > 0; i-- {
		vm.mem.WriteByte(second+i-1, vm.mem.ReadByte(first+i-1))
	}
}

func opTokenise(vm *VM, in *Instruction) {
	dict := vm.dict
	if addr := in.Arg(2, 0); addr != 0 {
		dict = vm.text.LoadDictionary(uint32(addr))
	}
	vm.text.Tokenise(uint32(in.Operands[0]), uint32(in.Operands[1]), dict, in.Arg(3, 0) != 0)
}

// opEncodeText encodes a word from a ZSCII buffer into dictionary form.
func opEncodeText(vm *VM, in *Instruction) {
	text := uint32(in.Operands[0])
	n := uint32(in.Operands[1])
	from := uint32(in.Operands[2])
	coded := uint32(in.Operands[3])
	word := make([]byte, n)
	for i := range word {
		word[i] = vm.mem.ReadByte(text + from + uint32(i))
	}
	for i, b := range vm.text.Encode(word) {
		vm.mem.WriteByte(coded+uint32(i), b)
	}
}
