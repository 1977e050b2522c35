package zmachine

import (
	"github.com/hashicorp/go-multierror"
	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/quetzal"
)

// Result slot designators besides plain variables 0-255.
const (
	resultDiscard = -1
	resultTimer   = -2
)

const (
	initialStackWords = 1024
	initialFrames     = 64
	maxLocals         = 15
	maxArgs           = 7
)

// frame is one routine activation. Its locals and evaluation stack occupy
// vm.stack from start up to the next frame's start, or the stack top.
// Frame 0 is the outer sentinel frame.
type frame struct {
	returnPC uint32
	start    int
	locals   uint8
	args     uint8
	result   int
}

func (f frame) evalBase() int { return f.start + int(f.locals) }

func (vm *VM) resetStack() {
	if vm.stack == nil {
		vm.stack = make([]uint16, 0, initialStackWords)
		vm.frames = make([]frame, 0, initialFrames)
	}
	vm.stack = vm.stack[:0]
	vm.frames = append(vm.frames[:0], frame{result: resultDiscard})
}

func (vm *VM) top() *frame { return &vm.frames[len(vm.frames)-1] }

// Depth returns the number of routine frames above the sentinel.
func (vm *VM) Depth() int { return len(vm.frames) - 1 }

func (vm *VM) push(val uint16) {
	if len(vm.stack) == cap(vm.stack) {
		size := max(2*cap(vm.stack), initialStackWords)
		vm.rep.Port(diag.Stack, "evaluation stack grown", uint32(size))
		stack := make([]uint16, len(vm.stack), size)
		copy(stack, vm.stack)
		vm.stack = stack
	}
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() uint16 {
	if len(vm.stack) <= vm.top().evalBase() {
		vm.rep.Error(diag.Stack, "stack underflow", 0)
		return 0
	}
	val := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return val
}

func (vm *VM) peek() uint16 {
	if len(vm.stack) <= vm.top().evalBase() {
		vm.rep.Error(diag.Stack, "read of empty stack", 0)
		return 0
	}
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) poke(val uint16) {
	if len(vm.stack) <= vm.top().evalBase() {
		vm.rep.Error(diag.Stack, "write to empty stack", 0)
		return
	}
	vm.stack[len(vm.stack)-1] = val
}

func (vm *VM) globalAddr(n uint8) uint32 { return vm.mem.Globals() + 2*uint32(n-16) }

// getVar reads variable n: 0 pops the stack, 1-15 are locals and the rest
// globals.
func (vm *VM) getVar(n uint8) uint16 {
	switch {
	case n == 0:
		return vm.pop()
	case n < 16:
		f := vm.top()
		if n > f.locals {
			vm.rep.Error(diag.Stack, "read of nonexistent local variable", uint32(n))
			return 0
		}
		return vm.stack[f.start+int(n)-1]
	default:
		return vm.mem.ReadWord(vm.globalAddr(n))
	}
}

// setVar writes variable n; 0 pushes.
func (vm *VM) setVar(n uint8, val uint16) {
	switch {
	case n == 0:
		vm.push(val)
	case n < 16:
		f := vm.top()
		if n > f.locals {
			vm.rep.Error(diag.Stack, "write to nonexistent local variable", uint32(n))
			return
		}
		vm.stack[f.start+int(n)-1] = val
	default:
		vm.mem.WriteWord(vm.globalAddr(n), val)
	}
}

// loadVar and storeVar are the indirect forms used by opcodes that name a
// variable operand; variable 0 is the stack top, in place.
func (vm *VM) loadVar(n uint8) uint16 {
	if n == 0 {
		return vm.peek()
	}
	return vm.getVar(n)
}

func (vm *VM) storeVar(n uint8, val uint16) {
	if n == 0 {
		vm.poke(val)
		return
	}
	vm.setVar(n, val)
}

func (vm *VM) storeResult(result int, val uint16) {
	switch result {
	case resultDiscard:
	case resultTimer:
		vm.timerResult = val
		vm.acts[len(vm.acts)-1].exit = true
	default:
		vm.setVar(uint8(result), val)
	}
}

// call enters the routine at addr, returning false if it was not entered.
// Address 0 is a call to nothing that returns false.
func (vm *VM) call(addr uint32, args []uint16, result int) bool {
	if addr == 0 {
		vm.storeResult(result, 0)
		return false
	}
	n := vm.mem.ReadByte(addr)
	if n > maxLocals {
		vm.rep.Error(diag.Instruction, "routine declares too many locals", uint32(n))
		vm.storeResult(result, 0)
		return false
	}
	if vm.stackLimit > 0 && len(vm.frames) > vm.stackLimit {
		vm.rep.Fatal(diag.Stack, "call depth limit exceeded", uint32(len(vm.frames)))
	}
	if len(vm.frames) == cap(vm.frames) {
		size := max(2*cap(vm.frames), initialFrames)
		vm.rep.Port(diag.Stack, "frame stack grown", uint32(size))
		frames := make([]frame, len(vm.frames), size)
		copy(frames, vm.frames)
		vm.frames = frames
	}

	f := frame{
		returnPC: vm.pc,
		start:    len(vm.stack),
		locals:   n,
		args:     uint8(len(args)),
		result:   result,
	}
	if len(args) > maxArgs {
		f.args = maxArgs
	}
	pc := addr + 1
	for i := 0; i < int(n); i++ {
		var val uint16
		if vm.version <= 4 {
			val = vm.mem.ReadWord(pc)
			pc += 2
		}
		if i < len(args) {
			val = args[i]
		}
		vm.push(val)
	}
	vm.frames = append(vm.frames, f)
	vm.pc = pc
	return true
}

// ret returns from the current routine.
func (vm *VM) ret(val uint16) {
	if len(vm.frames) <= 1 {
		vm.rep.Error(diag.Stack, "return from main routine", uint32(val))
		vm.quit()
		return
	}
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:f.start]
	vm.pc = f.returnPC
	if vm.version == 6 && len(vm.frames) == 1 {
		vm.quit()
		return
	}
	vm.storeResult(f.result, val)
}

// catch returns the current frame number for a later throw.
func (vm *VM) catch() uint16 { return uint16(len(vm.frames) - 1) }

// throw returns val from the frame numbered depth, discarding every frame
// above it.
func (vm *VM) throw(val, depth uint16) {
	cur := len(vm.frames) - 1
	if depth == 0 || int(depth) > cur {
		vm.rep.Error(diag.Stack, "throw to nonexistent frame", uint32(depth))
		return
	}
	for _, f := range vm.frames[depth+1:] {
		if f.result == resultTimer {
			vm.rep.Error(diag.Stack, "throw out of timer routine", uint32(depth))
			return
		}
	}
	vm.frames = vm.frames[:depth+1]
	vm.ret(val)
}

// Verify checks the frame stack's invariants, returning every violation.
func (vm *VM) Verify() error {
	var errs *multierror.Error
	prev := 0
	for i, f := range vm.frames {
		if f.start < prev || f.start > len(vm.stack) {
			errs = multierror.Append(errs, diag.Errorf(diag.Stack,
				"frame %d starts at %d outside of stack [%d, %d]", i, f.start, prev, len(vm.stack)))
		}
		if f.returnPC > vm.mem.TotalSize {
			errs = multierror.Append(errs, diag.Errorf(diag.Stack,
				"frame %d returns to %#x past end of memory", i, f.returnPC))
		}
		if f.locals > maxLocals {
			errs = multierror.Append(errs, diag.Errorf(diag.Stack,
				"frame %d has %d locals", i, f.locals))
		}
		if f.result < resultTimer || f.result > 255 {
			errs = multierror.Append(errs, diag.Errorf(diag.Stack,
				"frame %d has invalid result slot %d", i, f.result))
		}
		prev = f.evalBase()
	}
	return errs.ErrorOrNil()
}

// quetzalFrames converts the stack to Quetzal frame records. Except in v6
// the sentinel frame is written as the dummy first record.
func (vm *VM) quetzalFrames() ([]quetzal.Frame, error) {
	out := make([]quetzal.Frame, 0, len(vm.frames))
	for i, f := range vm.frames {
		if i == 0 && vm.version == 6 {
			continue
		}
		if f.result == resultTimer {
			return nil, diag.Errorf(diag.Save, "cannot save state within a timer routine")
		}
		end := len(vm.stack)
		if i+1 < len(vm.frames) {
			end = vm.frames[i+1].start
		}
		qf := quetzal.Frame{
			ReturnPC: f.returnPC,
			Args:     f.args,
			Locals:   append([]uint16(nil), vm.stack[f.start:f.evalBase()]...),
			Eval:     append([]uint16(nil), vm.stack[f.evalBase():end]...),
		}
		switch {
		case i == 0:
		case f.result == resultDiscard:
			qf.Discard = true
		default:
			qf.Result = uint8(f.result)
		}
		out = append(out, qf)
	}
	return out, nil
}

// setFrames replaces the stack with decoded Quetzal frames. Nothing changes
// unless every frame is acceptable.
func (vm *VM) setFrames(qfs []quetzal.Frame) error {
	if vm.version == 6 {
		qfs = append([]quetzal.Frame{{}}, qfs...)
	}
	if len(qfs) == 0 {
		return diag.Errorf(diag.Corrupt, "saved stack has no frames")
	}
	if vm.stackLimit > 0 && len(qfs) > vm.stackLimit+1 {
		return diag.Errorf(diag.Save, "saved stack is %d frames deep", len(qfs))
	}

	words := 0
	for _, qf := range qfs {
		words += len(qf.Locals) + len(qf.Eval)
	}
	stack := make([]uint16, 0, max(words, cap(vm.stack)))
	frames := make([]frame, 0, max(len(qfs), cap(vm.frames)))
	for i, qf := range qfs {
		f := frame{
			returnPC: qf.ReturnPC,
			start:    len(stack),
			locals:   uint8(len(qf.Locals)),
			args:     qf.Args,
			result:   int(qf.Result),
		}
		if i == 0 {
			f.returnPC, f.args = 0, 0
		}
		if i == 0 || qf.Discard {
			f.result = resultDiscard
		}
		if f.locals > maxLocals {
			return diag.Errorf(diag.Corrupt, "saved frame %d has %d locals", i, f.locals)
		}
		if f.returnPC >= vm.mem.TotalSize {
			return diag.Errorf(diag.Corrupt, "saved frame %d returns to %#x past end of memory", i, f.returnPC)
		}
		stack = append(stack, qf.Locals...)
		stack = append(stack, qf.Eval...)
		frames = append(frames, f)
	}
	vm.stack, vm.frames = stack, frames
	return nil
}

// pushUserStack and popUserStack implement v6 stacks in memory: a word
// counting free slots followed by the slots, filled from the top down.
func (vm *VM) pushUserStack(stack uint32, val uint16) bool {
	free := vm.mem.ReadWord(stack)
	if free == 0 {
		return false
	}
	vm.mem.WriteWord(stack+2*uint32(free), val)
	vm.mem.WriteWord(stack, free-1)
	return true
}

func (vm *VM) popUserStack(stack uint32, n uint16) {
	vm.mem.WriteWord(stack, vm.mem.ReadWord(stack)+n)
}

func (vm *VM) pullUserStack(stack uint32) uint16 {
	free := vm.mem.ReadWord(stack) + 1
	val := vm.mem.ReadWord(stack + 2*uint32(free))
	vm.mem.WriteWord(stack, free)
	return val
}
