package zmachine

import (
	"github.com/jcorbin/zvm/internal/diag"
)

type handler func(vm *VM, in *Instruction)

// handlers is indexed by Op; it is filled in by init since handlers refer
// back to the VM methods that dispatch through it.
var handlers [numOps]handler

func init() {
	handlers = [numOps]handler{
		OpIllegal: opIllegal,

		OpJe:          opJe,
		OpJl:          func(vm *VM, in *Instruction) { vm.branch(in.signed(0) < in.signed(1)) },
		OpJg:          func(vm *VM, in *Instruction) { vm.branch(in.signed(0) > in.signed(1)) },
		OpDecChk:      opDecChk,
		OpIncChk:      opIncChk,
		OpJin:         opJin,
		OpTest:        func(vm *VM, in *Instruction) { vm.branch(in.Operands[0]&in.Operands[1] == in.Operands[1]) },
		OpOr:          func(vm *VM, in *Instruction) { vm.store(in.Operands[0] | in.Operands[1]) },
		OpAnd:         func(vm *VM, in *Instruction) { vm.store(in.Operands[0] & in.Operands[1]) },
		OpTestAttr:    opTestAttr,
		OpSetAttr:     func(vm *VM, in *Instruction) { vm.objects.setAttr(in.Operands[0], in.Operands[1], true) },
		OpClearAttr:   func(vm *VM, in *Instruction) { vm.objects.setAttr(in.Operands[0], in.Operands[1], false) },
		OpStore:       func(vm *VM, in *Instruction) { vm.storeVar(uint8(in.Operands[0]), in.Operands[1]) },
		OpInsertObj:   func(vm *VM, in *Instruction) { vm.objects.insert(in.Operands[0], in.Operands[1]) },
		OpLoadw:       opLoadw,
		OpLoadb:       opLoadb,
		OpGetProp:     func(vm *VM, in *Instruction) { vm.store(vm.objects.getProp(in.Operands[0], in.Operands[1])) },
		OpGetPropAddr: func(vm *VM, in *Instruction) { vm.store(uint16(vm.objects.getPropAddr(in.Operands[0], in.Operands[1]))) },
		OpGetNextProp: func(vm *VM, in *Instruction) { vm.store(vm.objects.nextProp(in.Operands[0], in.Operands[1])) },
		OpAdd:         func(vm *VM, in *Instruction) { vm.store(uint16(in.signed(0) + in.signed(1))) },
		OpSub:         func(vm *VM, in *Instruction) { vm.store(uint16(in.signed(0) - in.signed(1))) },
		OpMul:         func(vm *VM, in *Instruction) { vm.store(uint16(in.signed(0) * in.signed(1))) },
		OpDiv:         opDiv,
		OpMod:         opMod,
		OpCall2s:      opCall,
		OpCall2n:      opCall,
		OpSetColour:   opSetColour,
		OpThrow:       func(vm *VM, in *Instruction) { vm.throw(in.Operands[0], in.Operands[1]) },

		OpJz:         func(vm *VM, in *Instruction) { vm.branch(in.Operands[0] == 0) },
		OpGetSibling: opGetSibling,
		OpGetChild:   opGetChild,
		OpGetParent:  opGetParent,
		OpGetPropLen: func(vm *VM, in *Instruction) { vm.store(vm.objects.propLen(uint32(in.Operands[0]))) },
		OpInc:        func(vm *VM, in *Instruction) { vm.adjustVar(uint8(in.Operands[0]), 1) },
		OpDec:        func(vm *VM, in *Instruction) { vm.adjustVar(uint8(in.Operands[0]), -1) },
		OpPrintAddr:  func(vm *VM, in *Instruction) { vm.printString(uint32(in.Operands[0])) },
		OpCall1s:     opCall,
		OpRemoveObj:  func(vm *VM, in *Instruction) { vm.objects.remove(in.Operands[0]) },
		OpPrintObj:   opPrintObj,
		OpRet:        func(vm *VM, in *Instruction) { vm.ret(in.Operands[0]) },
		OpJump:       func(vm *VM, in *Instruction) { vm.pc = uint32(int32(vm.pc) + int32(in.signed(0)) - 2) },
		OpPrintPaddr: func(vm *VM, in *Instruction) { vm.printString(vm.mem.UnpackString(in.Operands[0])) },
		OpLoad:       func(vm *VM, in *Instruction) { vm.store(vm.loadVar(uint8(in.Operands[0]))) },
		OpNot:        func(vm *VM, in *Instruction) { vm.store(^in.Operands[0]) },
		OpCall1n:     opCall,

		OpRtrue:         func(vm *VM, in *Instruction) { vm.ret(1) },
		OpRfalse:        func(vm *VM, in *Instruction) { vm.ret(0) },
		OpPrint:         func(vm *VM, in *Instruction) { vm.pc = vm.printString(vm.pc) },
		OpPrintRet:      opPrintRet,
		OpNop:           func(vm *VM, in *Instruction) {},
		OpSaveBranch:    (*VM).opSave,
		OpSaveStore:     (*VM).opSave,
		OpRestoreBranch: (*VM).opRestore,
		OpRestoreStore:  (*VM).opRestore,
		OpRestart:       func(vm *VM, in *Instruction) { vm.restart() },
		OpRetPopped:     func(vm *VM, in *Instruction) { vm.ret(vm.pop()) },
		OpPop:           func(vm *VM, in *Instruction) { vm.pop() },
		OpCatch:         func(vm *VM, in *Instruction) { vm.store(vm.catch()) },
		OpQuit:          func(vm *VM, in *Instruction) { vm.quit() },
		OpNewLine:       func(vm *VM, in *Instruction) { vm.printZSCII(13) },
		OpShowStatus:    opShowStatus,
		OpVerify:        func(vm *VM, in *Instruction) { vm.branch(vm.mem.Checksum() == vm.mem.HeaderChecksum()) },
		OpPiracy:        func(vm *VM, in *Instruction) { vm.branch(true) },

		OpCallVs:        opCall,
		OpStorew:        opStorew,
		OpStoreb:        opStoreb,
		OpPutProp:       func(vm *VM, in *Instruction) { vm.objects.putProp(in.Operands[0], in.Operands[1], in.Operands[2]) },
		OpSread:         (*VM).readLine,
		OpAread:         (*VM).readLine,
		OpPrintChar:     func(vm *VM, in *Instruction) { vm.printZSCII(in.Operands[0]) },
		OpPrintNum:      func(vm *VM, in *Instruction) { vm.printNumber(in.signed(0)) },
		OpRandom:        func(vm *VM, in *Instruction) { vm.store(vm.opRandom(in.signed(0))) },
		OpPush:          func(vm *VM, in *Instruction) { vm.push(in.Operands[0]) },
		OpPull:          opPull,
		OpPullStack:     opPullStack,
		OpSplitWindow:   opSplitWindow,
		OpSetWindow:     opSetWindow,
		OpCallVs2:       opCall,
		OpEraseWindow:   opEraseWindow,
		OpEraseLine:     opEraseLine,
		OpSetCursor:     opSetCursor,
		OpGetCursor:     opGetCursor,
		OpSetTextStyle:  opSetTextStyle,
		OpBufferMode:    opBufferMode,
		OpOutputStream:  func(vm *VM, in *Instruction) { vm.selectStream(in.signed(0), uint32(in.Arg(1, 0))) },
		OpInputStream:   opInputStream,
		OpSoundEffect:   opSoundEffect,
		OpReadChar:      (*VM).readChar,
		OpScanTable:     opScanTable,
		OpCallVn:        opCall,
		OpCallVn2:       opCall,
		OpTokenise:      opTokenise,
		OpEncodeText:    opEncodeText,
		OpCopyTable:     opCopyTable,
		OpPrintTable:    opPrintTable,
		OpCheckArgCount: func(vm *VM, in *Instruction) { vm.branch(in.Operands[0] <= uint16(vm.top().args)) },

		OpSaveTable:     (*VM).opSave,
		OpRestoreTable:  (*VM).opRestore,
		OpLogShift:      opLogShift,
		OpArtShift:      opArtShift,
		OpSetFont:       opSetFont,
		OpSaveUndo:      (*VM).opSaveUndo,
		OpRestoreUndo:   (*VM).opRestoreUndo,
		OpPrintUnicode:  opPrintUnicode,
		OpCheckUnicode:  opCheckUnicode,
		OpSetTrueColour: func(vm *VM, in *Instruction) {},
		OpPopStack:      opPopStack,
		OpPushStack:     opPushStack,

		OpDrawPicture:  opUnsupported,
		OpPictureData:  opUnsupported,
		OpErasePicture: opUnsupported,
		OpSetMargins:   opUnsupported,
		OpMoveWindow:   opUnsupported,
		OpWindowSize:   opUnsupported,
		OpWindowStyle:  opUnsupported,
		OpGetWindProp:  opUnsupported,
		OpScrollWindow: opUnsupported,
		OpReadMouse:    opUnsupported,
		OpMouseWindow:  opUnsupported,
		OpPutWindProp:  opUnsupported,
		OpPrintForm:    opUnsupported,
		OpMakeMenu:     opUnsupported,
		OpPictureTable: opUnsupported,
		OpBufferScreen: opUnsupported,
	}
}

// signed returns operand i as a signed number.
func (in *Instruction) signed(i int) int16 { return int16(in.Operands[i]) }

func opIllegal(vm *VM, in *Instruction) {
	val := uint32(in.Opcode)
	if in.Opcode == 0xbe {
		val = 0xbe00 | uint32(in.Ext)
	}
	vm.rep.Error(diag.Instruction, "unknown opcode", val)
}

// opUnsupported handles operations of the v6 screen model, which has no
// host support: it reports and gives a failing result.
func opUnsupported(vm *VM, in *Instruction) {
	vm.rep.Warn(diag.Version, "unsupported opcode "+in.Op.String(), uint32(in.Opcode))
	if in.Op.Stores() {
		vm.store(0)
	}
	if in.Op.Branches() {
		vm.branch(false)
	}
}

func opJe(vm *VM, in *Instruction) {
	if in.Count < 2 {
		vm.rep.Error(diag.Instruction, "je with only one operand", 0)
		vm.branch(false)
		return
	}
	for _, b := range in.Operands[1:in.Count] {
		if b == in.Operands[0] {
			vm.branch(true)
			return
		}
	}
	vm.branch(false)
}

// adjustVar adds delta to a variable in place, returning the new value.
func (vm *VM) adjustVar(n uint8, delta int16) int16 {
	val := int16(vm.loadVar(n)) + delta
	vm.storeVar(n, uint16(val))
	return val
}

func opDecChk(vm *VM, in *Instruction) {
	vm.branch(vm.adjustVar(uint8(in.Operands[0]), -1) < in.signed(1))
}

func opIncChk(vm *VM, in *Instruction) {
	vm.branch(vm.adjustVar(uint8(in.Operands[0]), 1) > in.signed(1))
}

func opDiv(vm *VM, in *Instruction) {
	if in.Operands[1] == 0 {
		vm.rep.Error(diag.Math, "division by zero", uint32(in.Operands[0]))
		vm.store(0x7fff)
		return
	}
	vm.store(uint16(in.signed(0) / in.signed(1)))
}

func opMod(vm *VM, in *Instruction) {
	if in.Operands[1] == 0 {
		vm.rep.Error(diag.Math, "modulo by zero", uint32(in.Operands[0]))
		vm.store(0)
		return
	}
	vm.store(uint16(in.signed(0) % in.signed(1)))
}

func opLogShift(vm *VM, in *Instruction) {
	places := in.signed(1)
	switch {
	case places > 15 || places < -15:
		vm.store(0)
	case places >= 0:
		vm.store(in.Operands[0] << places)
	default:
		vm.store(in.Operands[0] >> -places)
	}
}

func opArtShift(vm *VM, in *Instruction) {
	places := in.signed(1)
	val := in.signed(0)
	switch {
	case places > 15:
		vm.store(0)
	case places >= 0:
		vm.store(uint16(val << places))
	case places < -15:
		vm.store(uint16(val >> 15))
	default:
		vm.store(uint16(val >> -places))
	}
}

// opCall handles every call variant; the Op says whether a result is
// stored.
func opCall(vm *VM, in *Instruction) {
	result := resultDiscard
	if in.Op.Stores() {
		result = int(vm.fetchByte())
	}
	if in.Count == 0 {
		vm.rep.Error(diag.Instruction, "call without a routine", 0)
		vm.storeResult(result, 0)
		return
	}
	packed := in.Operands[0]
	if packed == 0 {
		vm.storeResult(result, 0)
		return
	}
	vm.call(vm.mem.UnpackRoutine(packed), in.Operands[1:in.Count], result)
}

func opPrintRet(vm *VM, in *Instruction) {
	vm.pc = vm.printString(vm.pc)
	vm.printZSCII(13)
	vm.ret(1)
}

func opPull(vm *VM, in *Instruction) {
	val := vm.pop()
	vm.storeVar(uint8(in.Operands[0]), val)
}

// opPullStack is the v6 pull, from a user stack when one is given.
func opPullStack(vm *VM, in *Instruction) {
	if stack := in.Arg(0, 0); stack != 0 {
		vm.store(vm.pullUserStack(uint32(stack)))
		return
	}
	vm.store(vm.pop())
}

func opPopStack(vm *VM, in *Instruction) {
	n := in.Operands[0]
	if stack := in.Arg(1, 0); stack != 0 {
		vm.popUserStack(uint32(stack), n)
		return
	}
	for i := uint16(0); i < n; i++ {
		vm.pop()
	}
}

func opPushStack(vm *VM, in *Instruction) {
	vm.branch(vm.pushUserStack(uint32(in.Operands[1]), in.Operands[0]))
}

func opSoundEffect(vm *VM, in *Instruction) {
	switch n := in.Arg(0, 1); n {
	case 1, 2:
		// bleeps are not sounded
	default:
		vm.rep.Warn(diag.Sound, "sound effects are not supported", uint32(n))
	}
}

func opInputStream(vm *VM, in *Instruction) {
	if n := in.Operands[0]; n != 0 {
		vm.rep.Warn(diag.Output, "input stream not supported", uint32(n))
	}
}

func opShowStatus(vm *VM, in *Instruction) {
	if vm.version <= 3 {
		vm.showStatus()
	}
}
