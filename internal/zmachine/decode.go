package zmachine

import (
	"fmt"
	"strings"
)

// Instruction is one decoded instruction. Store and branch bytes follow
// the operands and are consumed by the handler.
type Instruction struct {
	Addr     uint32
	Opcode   uint8
	Ext      uint8 // extended opcode number, when Opcode is 0xBE
	Op       Op
	Operands [8]uint16
	Count    int
}

// Args returns the operands actually given.
func (in *Instruction) Args() []uint16 { return in.Operands[:in.Count] }

// Arg returns operand i, or def if it was omitted.
func (in *Instruction) Arg(i int, def uint16) uint16 {
	if i < in.Count {
		return in.Operands[i]
	}
	return def
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	if in.Op == OpIllegal {
		fmt.Fprintf(&sb, "[%#02x]", in.Opcode)
	}
	for _, arg := range in.Args() {
		fmt.Fprintf(&sb, " %#x", arg)
	}
	return sb.String()
}

// Operand types.
const (
	typeLarge = iota
	typeSmall
	typeVariable
	typeOmitted
)

func (vm *VM) fetchByte() uint8 {
	b := vm.mem.ReadByte(vm.pc)
	vm.pc++
	return b
}

func (vm *VM) fetchWord() uint16 {
	w := vm.mem.ReadWord(vm.pc)
	vm.pc += 2
	return w
}

func (vm *VM) operand(ty uint8) uint16 {
	switch ty {
	case typeLarge:
		return vm.fetchWord()
	case typeSmall:
		return uint16(vm.fetchByte())
	default:
		return vm.getVar(vm.fetchByte())
	}
}

// operands reads operands described by type bytes, stopping at the first
// omitted one.
func (vm *VM) operands(in *Instruction, types ...uint8) {
	for _, ty := range types {
		for shift := 6; shift >= 0; shift -= 2 {
			t := ty >> shift & 3
			if t == typeOmitted {
				return
			}
			in.Operands[in.Count] = vm.operand(t)
			in.Count++
		}
	}
}

// decode reads the instruction at pc, leaving pc at its store or branch
// bytes, if any.
func (vm *VM) decode(in *Instruction) {
	in.Addr = vm.pc
	in.Count = 0
	in.Ext = 0
	op := vm.fetchByte()
	in.Opcode = op
	switch {
	case op == 0xbe && vm.version >= 5:
		in.Ext = vm.fetchByte()
		in.Op = vm.ops.ext[in.Ext]
		vm.operands(in, vm.fetchByte())

	case op < 0x80:
		// long form: bits 6 and 5 pick small constant or variable
		in.Op = vm.ops.byByte[op]
		in.Operands[0] = vm.operand(typeSmall + op>>6&1)
		in.Operands[1] = vm.operand(typeSmall + op>>5&1)
		in.Count = 2

	case op < 0xc0:
		in.Op = vm.ops.byByte[op]
		if ty := op >> 4 & 3; ty != typeOmitted {
			in.Operands[0] = vm.operand(ty)
			in.Count = 1
		}

	default:
		in.Op = vm.ops.byByte[op]
		types := vm.fetchByte()
		if in.Op == OpCallVs2 || in.Op == OpCallVn2 {
			vm.operands(in, types, vm.fetchByte())
		} else {
			vm.operands(in, types)
		}
	}
}

// store writes a result to the variable named by the next byte.
func (vm *VM) store(val uint16) { vm.setVar(vm.fetchByte(), val) }

// branch reads a branch offset and takes it if cond matches its sense.
// Offsets 0 and 1 return false and true from the current routine.
func (vm *VM) branch(cond bool) {
	b := vm.fetchByte()
	offset := int32(b & 0x3f)
	if b&0x40 == 0 {
		offset = offset<<8 | int32(vm.fetchByte())
		if offset&0x2000 != 0 {
			offset -= 0x4000
		}
	}
	if cond != (b&0x80 != 0) {
		return
	}
	switch offset {
	case 0:
		vm.ret(0)
	case 1:
		vm.ret(1)
	default:
		vm.pc = uint32(int32(vm.pc) + offset - 2)
	}
}

// skipBranch consumes a branch offset without taking it.
func (vm *VM) skipBranch() {
	if b := vm.fetchByte(); b&0x40 == 0 {
		vm.fetchByte()
	}
}
