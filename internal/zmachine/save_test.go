package zmachine

import (
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveRestoreStory saves, changes global 0 and restores with the given
// extended opcodes. A restored save reports 2 and jumps to the final quit.
func saveRestoreStory(save, restore byte) *storyBuilder {
	sb := newStory(5)
	sb.code(
		varOp(0xcd, sm(16), sm(1)),
		extOp(save), st(17),
		varOp(0xc1, vr(17), sm(2)), br(true, 11),
		varOp(0xcd, sm(16), sm(5)),
		extOp(restore), st(18),
		quit,
		quit,
	)
	return sb
}

func Test_saveFile(t *testing.T) {
	term := &testTerm{}
	vm, reps := saveRestoreStory(0x00, 0x01).run(t, term)
	assert.Empty(t, reps)
	require.NotNil(t, term.saved)
	assert.Equal(t, "FORM", string(term.saved.Bytes()[:4]))
	assert.Equal(t, uint16(1), readGlobal(vm, 0), "memory restored")
	assert.Equal(t, uint16(2), readGlobal(vm, 1), "save reports restoration")
	assert.Equal(t, uint16(0), readGlobal(vm, 2))
}

func Test_restoreFile_otherStory(t *testing.T) {
	term := &testTerm{}
	sb := newStory(5)
	sb.code(extOp(0x00), st(16), quit)
	sb.run(t, term)
	require.NotNil(t, term.saved)

	other := newStory(5)
	copy(other.b[mem.HdSerial:], "260102")
	other.global(0, 0xaaaa)
	other.code(extOp(0x01), st(16), quit)
	vm, reps := other.run(t, term)
	assert.Equal(t, uint16(0), readGlobal(vm, 0), "restore failed")
	assert.Equal(t, 1, reps.count(diag.LevelWarn, diag.Save))
}

func Test_restoreFile_nothingSaved(t *testing.T) {
	sb := newStory(3)
	sb.code(
		op0(0x06), br(true, 6), // restore
		varOp(0xcd, sm(16), sm(7)),
		quit,
	)
	vm, reps := sb.run(t, nil)
	assert.Equal(t, uint16(7), readGlobal(vm, 0))
	assert.Equal(t, 1, reps.count(diag.LevelWarn, diag.Save))
}

func Test_saveTable(t *testing.T) {
	sb := newStory(5)
	copy(sb.b[sbTable:], []byte{1, 2, 3, 4})
	sb.code(
		extOp(0x00, lg(sbTable), sm(4)), st(16),
		extOp(0x01, lg(sbTable+8), sm(6)), st(17),
		quit,
	)
	term := &testTerm{}
	vm, reps := sb.run(t, term)
	assert.Empty(t, reps)
	assert.Equal(t, []byte{1, 2, 3, 4}, term.saved.Bytes())
	assert.Equal(t, uint16(1), readGlobal(vm, 0))
	assert.Equal(t, uint16(4), readGlobal(vm, 1), "bytes read")
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0}, vm.mem.Dynamic()[sbTable+8:sbTable+14])
}

func Test_saveUndo(t *testing.T) {
	vm, reps := saveRestoreStory(0x09, 0x0a).run(t, nil)
	assert.Empty(t, reps)
	assert.Equal(t, uint16(1), readGlobal(vm, 0))
	assert.Equal(t, uint16(2), readGlobal(vm, 1))
	assert.Equal(t, 1, vm.undo.Len())
}

func Test_restoreUndo_withoutSave(t *testing.T) {
	sb := newStory(5)
	sb.global(0, 0xffff)
	sb.code(extOp(0x0a), st(16), quit)
	vm, reps := sb.run(t, nil)
	assert.Equal(t, uint16(0), readGlobal(vm, 0))
	assert.Equal(t, 1, reps.count(diag.LevelWarn, diag.Save))
}

func Test_restart(t *testing.T) {
	sb := newStory(5)
	sb.code(quit)
	vm, _ := sb.load(t, nil)
	vm.mem.WriteWord(sbGlobals, 42)
	vm.push(1)
	vm.pc = sbStatic + 1
	vm.font = 3

	vm.restart()
	assert.Equal(t, uint16(0), readGlobal(vm, 0))
	assert.Empty(t, vm.stack)
	assert.Equal(t, 0, vm.Depth())
	assert.Equal(t, uint32(sbStatic), vm.pc)
	assert.Equal(t, uint16(1), vm.font)
}
