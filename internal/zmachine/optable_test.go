package zmachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_newOpTable(t *testing.T) {
	for _, tc := range []struct {
		version uint8
		opcode  byte
		ext     bool
		want    Op
	}{
		{3, 0x14, false, OpAdd},
		{3, 0x54, false, OpAdd},
		{3, 0xd4, false, OpAdd},
		{3, 0xb5, false, OpSaveBranch},
		{4, 0xb5, false, OpSaveStore},
		{5, 0xb5, false, OpIllegal},
		{3, 0xb6, false, OpRestoreBranch},
		{4, 0xb6, false, OpRestoreStore},
		{3, 0xb9, false, OpPop},
		{5, 0xb9, false, OpCatch},
		{3, 0x8f, false, OpNot},
		{5, 0x8f, false, OpCall1n},
		{3, 0xe4, false, OpSread},
		{5, 0xe4, false, OpAread},
		{5, 0xe9, false, OpPull},
		{6, 0xe9, false, OpPullStack},
		{3, 0xf8, false, OpIllegal},
		{5, 0xf8, false, OpNot},
		{3, 0x98, false, OpIllegal},
		{4, 0x98, false, OpCall1s},
		{3, 0xbc, false, OpShowStatus},
		{2, 0xbc, false, OpIllegal},
		{3, 0xbe, false, OpIllegal},
		{5, 0xbf, false, OpPiracy},
		{5, 0x09, true, OpSaveUndo},
		{5, 0x0b, true, OpPrintUnicode},
		{5, 0x0e, true, OpIllegal},
		{5, 0x05, true, OpIllegal},
		{6, 0x05, true, OpDrawPicture},
		{5, 0x1e, true, OpIllegal},
	} {
		ops := newOpTable(tc.version)
		got := ops.byByte[tc.opcode]
		if tc.ext {
			got = ops.ext[tc.opcode]
		}
		assert.Equal(t, tc.want, got, "v%d opcode %#02x ext:%v", tc.version, tc.opcode, tc.ext)
	}
}

func Test_Op_info(t *testing.T) {
	assert.Equal(t, "get_sibling", OpGetSibling.String())
	assert.True(t, OpGetSibling.Stores())
	assert.True(t, OpGetSibling.Branches())
	assert.False(t, OpSaveBranch.Stores())
	assert.True(t, OpSaveStore.Stores())
	assert.Equal(t, "Op(250)", Op(250).String())
	for op := Op(0); op < numOps; op++ {
		assert.NotEmpty(t, op.String(), "op %d", op)
		assert.NotNil(t, handlers[op], "handler for %v", op)
	}
}
