package zmachine

import (
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/quetzal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func framesStory() (*storyBuilder, uint32, uint32) {
	sb := newStory(5)
	sb.code(quit)
	two := uint32(sb.routine(0, 0)) * sb.scale()
	sb.code(quit)
	none := uint32(sb.routine()) * sb.scale()
	sb.code(quit)
	return sb, two, none
}

func Test_frames_roundtrip(t *testing.T) {
	sb, two, none := framesStory()
	vm, reps := sb.load(t, nil)

	vm.push(1)
	vm.pc = sbStatic + 0x10
	require.True(t, vm.call(two, []uint16{5}, 16))
	vm.push(9)
	vm.pc = sbStatic + 0x20
	require.True(t, vm.call(none, nil, resultDiscard))
	require.NoError(t, vm.Verify())
	assert.Equal(t, 2, vm.Depth())
	assert.Equal(t, []uint16{1, 5, 0, 9}, vm.stack)

	qfs, err := vm.quetzalFrames()
	require.NoError(t, err)
	require.Len(t, qfs, 3)
	assert.Equal(t, []uint16{1}, qfs[0].Eval)
	assert.Equal(t, uint32(sbStatic+0x10), qfs[1].ReturnPC)
	assert.Equal(t, uint8(16), qfs[1].Result)
	assert.Equal(t, uint8(1), qfs[1].Args)
	assert.True(t, qfs[2].Discard)

	data, err := quetzal.EncodeStacks(qfs)
	require.NoError(t, err)
	decoded, err := quetzal.DecodeStacks(data)
	require.NoError(t, err)

	vm2, _ := sb.load(t, nil)
	require.NoError(t, vm2.setFrames(decoded))
	assert.Equal(t, vm.stack, vm2.stack)
	assert.Equal(t, vm.frames, vm2.frames)
	assert.NoError(t, vm2.Verify())
	assert.Empty(t, *reps)
}

func Test_frames_timer(t *testing.T) {
	sb, _, none := framesStory()
	vm, _ := sb.load(t, nil)
	require.True(t, vm.call(none, nil, resultTimer))
	_, err := vm.quetzalFrames()
	require.Error(t, err)
	cat, ok := diag.CategoryOf(err)
	assert.True(t, ok)
	assert.Equal(t, diag.Save, cat)
}

func Test_frames_rejected(t *testing.T) {
	sb, two, _ := framesStory()
	vm, _ := sb.load(t, nil)
	require.True(t, vm.call(two, nil, 0))
	stack := append([]uint16(nil), vm.stack...)

	for name, qfs := range map[string][]quetzal.Frame{
		"empty":       nil,
		"many locals": {{}, {Locals: make([]uint16, 16)}},
		"bad pc":      {{}, {ReturnPC: sbSize}},
	} {
		t.Run(name, func(t *testing.T) {
			require.Error(t, vm.setFrames(qfs))
			assert.Equal(t, stack, vm.stack, "stack unchanged")
			assert.Equal(t, 1, vm.Depth())
		})
	}
}

func Test_frames_verify(t *testing.T) {
	sb, two, _ := framesStory()
	vm, _ := sb.load(t, nil)
	require.True(t, vm.call(two, nil, 0))
	require.NoError(t, vm.Verify())

	vm.frames[1].start = 5
	vm.frames[1].result = 300
	err := vm.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of stack")
	assert.Contains(t, err.Error(), "invalid result slot")
}

func Test_frames_stackUnderflow(t *testing.T) {
	sb, two, _ := framesStory()
	vm, reps := sb.load(t, nil)
	vm.push(7)
	require.True(t, vm.call(two, nil, 0))
	assert.Equal(t, uint16(0), vm.pop(), "caller's stack is not visible")
	assert.Equal(t, 1, reps.count(diag.LevelError, diag.Stack))
	vm.setVar(3, 1)
	assert.Equal(t, 2, reps.count(diag.LevelError, diag.Stack), "routine has two locals")
}

func Test_userStack(t *testing.T) {
	sb := newStory(5)
	sb.code(quit)
	sb.word(sbTable, 2)
	vm, _ := sb.load(t, nil)

	assert.True(t, vm.pushUserStack(sbTable, 10))
	assert.True(t, vm.pushUserStack(sbTable, 20))
	assert.False(t, vm.pushUserStack(sbTable, 30), "full")
	assert.Equal(t, uint16(20), vm.pullUserStack(sbTable))
	vm.popUserStack(sbTable, 1)
	assert.Equal(t, uint16(2), vm.mem.ReadWord(sbTable))
}
