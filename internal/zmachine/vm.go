// Package zmachine executes Z-machine stories, versions 1 through 8.
package zmachine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
	"github.com/jcorbin/zvm/internal/panicerr"
	"github.com/jcorbin/zvm/internal/undo"
	"github.com/jcorbin/zvm/internal/ztext"
)

// Interpreter identity written into the header.
const (
	interpNumber   = 6 // IBM PC
	interpVersion  = 'Z'
	standardMajor  = 1
	standardMinor  = 0
	cancelInterval = 1024
)

// VM is one loaded story and all of its execution state. It runs on a single
// goroutine; nothing in it is safe for concurrent use.
type VM struct {
	logging

	mem     *mem.Image
	text    *ztext.Codec
	dict    *ztext.Dictionary
	rep     diag.Reporter
	version uint8
	ops     *opTable
	in      Instruction

	pc    uint32
	oldPC uint32

	stack      []uint16
	frames     []frame
	stackLimit int

	objects objectTable

	acts        []activation
	timerResult uint16
	readAbort   bool
	quitting    bool

	term        Terminal
	streams     outputStreams
	terminators []byte
	font        uint16
	rows, cols  int

	rand random

	undo         *undo.Manager
	undoSlots    int
	undoBytes    int
	autoUndo     bool
	skipAutoUndo bool

	ctx     context.Context
	steps   uint
	closers []io.Closer
}

// activation is one running instance of the decode loop; timer routines run
// in an activation of their own above the interrupted read.
type activation struct {
	exit bool
}

// New loads a story. Header problems are returned as errors wrapping
// diag.Report, and no VM is built; any streams given as options are then
// closed.
func New(story []byte, opts ...Option) (*VM, error) {
	vm := &VM{ctx: context.Background()}
	vm.apply(opts...)
	vm.rep.PC = func() uint32 { return vm.oldPC }
	vm.rep.Halt = func(rep diag.Report) { vm.halt(rep) }

	image, err := mem.Load(story, &vm.rep)
	if err != nil {
		vm.closeStreams()
		return nil, fmt.Errorf("loading story: %w", err)
	}
	vm.mem = image
	vm.version = image.Version()
	vm.mem.Hooks = mem.HeaderHooks{
		Transcript: vm.setTranscript,
		FixedFont:  func(bool) {},
	}
	vm.ops = newOpTable(vm.version)
	vm.text = ztext.New(image, vm.version, image.TotalSize, ztext.Tables{
		Abbreviations: image.Abbreviations(),
		Alphabet:      image.AlphabetTable(),
		Unicode:       uint32(image.ExtensionWord(mem.ExtUnicodeTable)),
	}, &vm.rep)
	vm.dict = vm.text.LoadDictionary(image.Dictionary())
	vm.objects.init(image, &vm.rep)
	vm.loadTerminators()

	vm.undo = undo.New(image.Dynamic())
	vm.undo.MaxSlots, vm.undo.MaxBytes = vm.undoSlots, vm.undoBytes
	vm.rand.reseed()
	vm.font = 1
	vm.reset()
	return vm, nil
}

// Close flushes output and closes any streams handed to the VM.
func (vm *VM) Close() (err error) {
	err = vm.flushOutput()
	if cerr := vm.closeStreams(); err == nil {
		err = cerr
	}
	return err
}

func (vm *VM) closeStreams() (err error) {
	for i := len(vm.closers) - 1; i >= 0; i-- {
		if cerr := vm.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	vm.closers = nil
	return err
}

// Run executes the story until it quits, ctx is done, or a fatal error.
func (vm *VM) Run(ctx context.Context) error {
	err := panicerr.Recover("zmachine", func() error {
		vm.ctx = ctx
		vm.execute()
		return vm.flushOutput()
	})
	var he panicerr.HaltError
	if errors.As(err, &he) {
		err = he.Err
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// PC returns the address of the next instruction.
func (vm *VM) PC() uint32 { return vm.pc }

// Memory returns the story memory image.
func (vm *VM) Memory() *mem.Image { return vm.mem }

// Reporter returns the VM's diagnostic reporter.
func (vm *VM) Reporter() *diag.Reporter { return &vm.rep }

// reset puts the machine in its initial state: empty stack, initial PC and
// interpreter header fields. Dynamic memory is left alone.
func (vm *VM) reset() {
	vm.resetStack()
	vm.pc = vm.mem.InitialPC
	vm.oldPC = vm.pc
	vm.streams.reset()
	vm.setHeader()
	if vm.version == 6 {
		// v6 starts by calling main, whose return quits
		vm.pc = 0
		vm.call(vm.mem.InitialPC, nil, resultDiscard)
	}
}

func (vm *VM) setHeader() {
	m := vm.mem
	flags1 := m.Flags1()
	_, windows := vm.term.(Windower)
	if vm.version <= 3 {
		const (
			noStatus   = 1 << 4
			splitAvail = 1 << 5
		)
		flags1 &^= noStatus | splitAvail
		if _, ok := vm.term.(StatusLiner); !ok {
			flags1 |= noStatus
		}
		if windows {
			flags1 |= splitAvail
		}
	} else {
		const (
			colours   = 1 << 0
			bold      = 1 << 2
			italic    = 1 << 3
			fixed     = 1 << 4
			timedKeys = 1 << 7
		)
		flags1 = timedKeys
		if windows {
			flags1 |= colours | bold | italic | fixed
		}
	}
	m.SetHeaderByte(mem.HdFlags1, flags1)
	m.SetHeaderByte(mem.HdInterpNumber, interpNumber)
	m.SetHeaderByte(mem.HdInterpVersion, interpVersion)
	m.SetHeaderByte(mem.HdScreenRows, uint8(vm.rows))
	m.SetHeaderByte(mem.HdScreenCols, uint8(vm.cols))
	if vm.version >= 5 {
		m.SetHeaderWord(mem.HdScreenWidth, uint16(vm.cols))
		m.SetHeaderWord(mem.HdScreenHeight, uint16(vm.rows))
		m.SetHeaderByte(mem.HdFontWidth, 1)
		m.SetHeaderByte(mem.HdFontHeight, 1)
		m.SetHeaderByte(mem.HdDefaultBG, 2)
		m.SetHeaderByte(mem.HdDefaultFG, 9)
	}
	m.SetHeaderByte(mem.HdStandard, standardMajor)
	m.SetHeaderByte(mem.HdStandard+1, standardMinor)
}

func (vm *VM) loadTerminators() {
	addr := vm.mem.TerminatorTable()
	if addr == 0 {
		return
	}
	for ; ; addr++ {
		b := vm.mem.ReadByte(addr)
		if b == 0 || addr >= vm.mem.TotalSize {
			return
		}
		vm.terminators = append(vm.terminators, b)
	}
}

// execute runs the outermost activation until it exits.
func (vm *VM) execute() {
	vm.acts = append(vm.acts[:0], activation{})
	vm.quitting, vm.readAbort = false, false
	vm.loop()
	vm.acts = vm.acts[:0]
}

// loop runs the top activation until its exit flag is set, which is its only
// way out short of a halt.
func (vm *VM) loop() {
	act := len(vm.acts) - 1
	for !vm.acts[act].exit {
		if vm.steps++; vm.steps%cancelInterval == 0 {
			if err := vm.ctx.Err(); err != nil {
				vm.halt(err)
			}
		}
		vm.step()
	}
}

func (vm *VM) step() {
	vm.oldPC = vm.pc
	in := &vm.in
	vm.decode(in)
	if vm.logfn != nil {
		vm.logf(len(vm.acts), '@', "%05x %v", in.Addr, in)
	}
	handlers[in.Op](vm, in)
}

func (vm *VM) inTimer() bool { return len(vm.acts) > 1 }

// unwindTimers ends any timer activations after their state has been
// replaced, aborting the read they interrupted.
func (vm *VM) unwindTimers() {
	if !vm.inTimer() {
		return
	}
	for i := 1; i < len(vm.acts); i++ {
		vm.acts[i].exit = true
	}
	vm.readAbort = true
}

func (vm *VM) quit() {
	for i := range vm.acts {
		vm.acts[i].exit = true
	}
	vm.quitting = true
}

// callTimer runs a timer routine to completion in a new activation,
// returning its result.
func (vm *VM) callTimer(routine uint16) uint16 {
	if routine == 0 {
		return 0
	}
	pc, oldPC := vm.pc, vm.oldPC
	vm.timerResult = 0
	if !vm.call(vm.mem.UnpackRoutine(routine), nil, resultTimer) {
		return vm.timerResult
	}
	vm.acts = append(vm.acts, activation{})
	vm.logf(len(vm.acts), '>', "timer %#05x", vm.pc)
	vm.loop()
	vm.logf(len(vm.acts), '<', "timer result %v", vm.timerResult)
	vm.acts = vm.acts[:len(vm.acts)-1]
	if !vm.readAbort && !vm.quitting {
		vm.pc, vm.oldPC = pc, oldPC
	}
	vm.flush()
	return vm.timerResult
}

func (vm *VM) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if ferr := vm.flushOutput(); err == nil {
			err = ferr
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		vm.logf(len(vm.acts), '#', "halt error: %v", err)
	}()

	panicerr.Halt(err)
}

func (vm *VM) inlineDiagnostic(rep diag.Report) {
	if d, ok := vm.term.(Diagnoser); ok {
		vm.flush()
		d.Diagnostic(rep)
		return
	}
	vm.screenString(rep.Inline() + "\n")
}
