package zmachine

import (
	"fmt"
	"io"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
	"github.com/jcorbin/zvm/internal/quetzal"
	"github.com/jcorbin/zvm/internal/undo"
)

// ident identifies the running story in a save, resuming at pc.
func (vm *VM) ident(pc uint32) quetzal.Ident {
	return quetzal.Ident{
		Release:  vm.mem.Release(),
		Serial:   vm.mem.Serial(),
		Checksum: vm.mem.HeaderChecksum(),
		PC:       pc,
	}
}

func (vm *VM) encodeStacks() ([]byte, error) {
	frames, err := vm.quetzalFrames()
	if err != nil {
		return nil, err
	}
	return quetzal.EncodeStacks(frames)
}

// restoreState installs saved memory and stacks, resuming at pc. Nothing
// changes unless the stacks are acceptable. The interpreter's own header
// fields and the transcript and fixed font bits survive.
func (vm *VM) restoreState(memory, stacks []byte, pc uint32) error {
	if pc >= vm.mem.TotalSize {
		return diag.Errorf(diag.Corrupt, "saved PC %#x past end of memory", pc)
	}
	if len(memory) != int(vm.mem.DynamicSize) {
		return diag.Errorf(diag.Corrupt, "saved memory of %d bytes, expected %d",
			len(memory), vm.mem.DynamicSize)
	}
	frames, err := quetzal.DecodeStacks(stacks)
	if err != nil {
		return err
	}
	if err := vm.setFrames(frames); err != nil {
		return err
	}
	const keep = mem.Flags2Transcript | mem.Flags2FixedFont
	flags2 := vm.mem.Flags2()
	vm.mem.SetDynamic(memory)
	vm.mem.SetHeaderWord(mem.HdFlags2, vm.mem.Flags2()&^keep|flags2&keep)
	vm.setHeader()
	vm.pc, vm.oldPC = pc, pc
	vm.unwindTimers()
	return nil
}

// saveUndo records the current state as an undo slot resuming at pc.
func (vm *VM) saveUndo(pc uint32, mid, auto bool) error {
	stacks, err := vm.encodeStacks()
	if err != nil {
		return err
	}
	vm.undo.Save(undo.State{
		Memory: vm.mem.Dynamic(),
		Stack:  stacks,
		PC:     pc,
		OldPC:  vm.oldPC,
		Mid:    mid,
	}, auto)
	return nil
}

// restoreUndo returns to the undo slot in direction dir. A slot saved by
// save_undo resumes by reporting success from it.
func (vm *VM) restoreUndo(dir undo.Direction) error {
	return vm.undo.Restore(dir, func(st undo.State) error {
		if err := vm.restoreState(st.Memory, st.Stack, st.PC); err != nil {
			return err
		}
		vm.oldPC = st.OldPC
		if st.Mid {
			vm.store(2)
		}
		return nil
	})
}

// saveFile writes a Quetzal save through the terminal, resuming at the
// current pc, which is at the save instruction's branch or store bytes.
func (vm *VM) saveFile() error {
	stacks, err := vm.encodeStacks()
	if err != nil {
		return err
	}
	vm.flush()
	w, err := vm.term.OpenSave(vm.ctx, "")
	if err != nil {
		return err
	}
	err = quetzal.Write(w, quetzal.Save{
		Ident:  vm.ident(vm.pc),
		Memory: vm.mem.Dynamic(),
		Stacks: stacks,
	}, vm.mem.OriginalDynamic())
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// restoreFile reads a Quetzal save through the terminal, leaving pc at the
// saving instruction's branch or store bytes.
func (vm *VM) restoreFile() error {
	vm.flush()
	r, err := vm.term.OpenRestore(vm.ctx, "")
	if err != nil {
		return err
	}
	defer r.Close()
	save, err := quetzal.Read(r, vm.mem.OriginalDynamic())
	if err != nil {
		return err
	}
	if id := vm.ident(0); !save.Ident.Matches(id) {
		return diag.Errorf(diag.Save, "save file is for release %d serial %q, not release %d serial %q",
			save.Ident.Release, save.Ident.Serial[:], id.Release, id.Serial[:])
	}
	return vm.restoreState(save.Memory, save.Stacks, save.Ident.PC)
}

// saveResult reports a save or restore outcome in the instruction's own
// way: a branch up to v3, a store after.
func (vm *VM) saveResult(in *Instruction, ok bool, stored uint16) {
	if in.Op.Branches() {
		vm.branch(ok)
		return
	}
	if !ok {
		stored = 0
	}
	vm.store(stored)
}

func (vm *VM) opSave(in *Instruction) {
	if in.Op == OpSaveTable && in.Count > 0 {
		vm.saveResult(in, vm.saveTable(in) == nil, 1)
		return
	}
	if err := vm.saveFile(); err != nil {
		vm.rep.Warn(diag.Save, fmt.Sprintf("save failed: %v", err), 0)
		vm.saveResult(in, false, 0)
		return
	}
	vm.saveResult(in, true, 1)
}

func (vm *VM) opRestore(in *Instruction) {
	if in.Op == OpRestoreTable && in.Count > 0 {
		n, err := vm.restoreTable(in)
		vm.saveResult(in, err == nil, n)
		return
	}
	if err := vm.restoreFile(); err != nil {
		vm.rep.Warn(diag.Save, fmt.Sprintf("restore failed: %v", err), 0)
		vm.saveResult(in, false, 0)
		return
	}
	// pc is now within the saving instruction
	vm.saveResult(in, true, 2)
}

// tableName reads the optional filename operand of table save and restore,
// a length-prefixed string.
func (vm *VM) tableName(in *Instruction) string {
	addr := uint32(in.Arg(2, 0))
	if addr == 0 {
		return ""
	}
	n := uint32(vm.mem.ReadByte(addr))
	name := make([]byte, n)
	for i := range name {
		name[i] = vm.mem.ReadByte(addr + 1 + uint32(i))
	}
	return string(name)
}

// saveTable writes a raw range of memory to a file.
func (vm *VM) saveTable(in *Instruction) error {
	table, size := uint32(in.Arg(0, 0)), uint32(in.Arg(1, 0))
	if table+size > vm.mem.TotalSize {
		vm.rep.Error(diag.Save, "saved table extends past end of memory", table+size)
		return diag.Errorf(diag.Save, "table out of range")
	}
	vm.flush()
	w, err := vm.term.OpenSave(vm.ctx, vm.tableName(in))
	if err != nil {
		return err
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = vm.mem.ReadByte(table + uint32(i))
	}
	_, err = w.Write(data)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// restoreTable reads at most the table's size from a file, returning the
// number of bytes read.
func (vm *VM) restoreTable(in *Instruction) (uint16, error) {
	table, size := uint32(in.Arg(0, 0)), uint32(in.Arg(1, 0))
	vm.flush()
	r, err := vm.term.OpenRestore(vm.ctx, vm.tableName(in))
	if err != nil {
		return 0, err
	}
	defer r.Close()
	data := make([]byte, size)
	n, err := io.ReadFull(r, data)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}
	for i, b := range data[:n] {
		vm.mem.WriteByte(table+uint32(i), b)
	}
	return uint16(n), nil
}

func (vm *VM) opSaveUndo(in *Instruction) {
	if err := vm.saveUndo(vm.pc, true, false); err != nil {
		vm.rep.Warn(diag.Save, fmt.Sprintf("save_undo failed: %v", err), 0)
		vm.store(0)
		return
	}
	vm.store(1)
}

// opRestoreUndo returns to the latest slot the story saved. Slots the
// interpreter took on its own are not the story's to restore.
func (vm *VM) opRestoreUndo(in *Instruction) {
	if !vm.undo.Checkpointed() {
		vm.rep.Warn(diag.Save, "restore_undo without save_undo", 0)
		vm.store(0)
		return
	}
	if err := vm.restoreUndo(undo.Current); err != nil {
		vm.rep.Warn(diag.Save, fmt.Sprintf("restore_undo failed: %v", err), 0)
		vm.store(0)
	}
}

// restart reloads dynamic memory and starts over.
func (vm *VM) restart() {
	vm.flush()
	vm.mem.Restart()
	vm.unwindTimers()
	vm.font = 1
	vm.reset()
}
