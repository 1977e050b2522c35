package quetzal_test

import (
	"math/rand"
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/quetzal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFrames(rng *rand.Rand) []quetzal.Frame {
	frames := make([]quetzal.Frame, 1+rng.Intn(8))
	for i := range frames {
		f := &frames[i]
		f.ReturnPC = uint32(rng.Intn(1 << 19))
		f.Discard = rng.Intn(3) == 0
		if !f.Discard {
			f.Result = uint8(rng.Intn(256))
		}
		f.Args = uint8(rng.Intn(8))
		if n := rng.Intn(16); n > 0 {
			f.Locals = make([]uint16, n)
			for j := range f.Locals {
				f.Locals[j] = uint16(rng.Intn(1 << 16))
			}
		}
		if n := rng.Intn(6); n > 0 {
			f.Eval = make([]uint16, n)
			for j := range f.Eval {
				f.Eval[j] = uint16(rng.Intn(1 << 16))
			}
		}
	}
	return frames
}

func Test_Stacks_roundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		frames := randomFrames(rng)
		data, err := quetzal.EncodeStacks(frames)
		require.NoError(t, err)

		back, err := quetzal.DecodeStacks(data)
		require.NoError(t, err)
		assert.Equal(t, frames, back)

		again, err := quetzal.EncodeStacks(back)
		require.NoError(t, err)
		require.Equal(t, data, again, "reserialized bytes must be identical")
	}
}

func Test_Stacks_format(t *testing.T) {
	data, err := quetzal.EncodeStacks([]quetzal.Frame{
		{Eval: []uint16{0x0102}},
		{ReturnPC: 0x012345, Result: 0x10, Args: 2, Locals: []uint16{0xaaaa, 0xbbbb, 0xcccc}},
		{ReturnPC: 0x000500, Discard: true, Result: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0x00, 0, 0x00, 0, 1, 0x01, 0x02,
		0x01, 0x23, 0x45, 0x03, 0x10, 0x03, 0, 0, 0xaa, 0xaa, 0xbb, 0xbb, 0xcc, 0xcc,
		0x00, 0x05, 0x00, 0x10, 0x00, 0x00, 0, 0,
	}, data)
}

func Test_Stacks_corrupt(t *testing.T) {
	good, err := quetzal.EncodeStacks([]quetzal.Frame{
		{Eval: []uint16{1, 2}},
		{ReturnPC: 0x100, Locals: []uint16{3, 4}},
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		name string
		data func() []byte
		cat  diag.Category
	}{
		{"truncated header", func() []byte { return good[:len(good)-8] }, diag.Corrupt},
		{"truncated words", func() []byte { return good[:len(good)-1] }, diag.Corrupt},
		{"bad arg pattern", func() []byte {
			b := append([]byte(nil), good...)
			b[5] = 0x05
			return b
		}, diag.Save},
		{"reserved flags", func() []byte {
			b := append([]byte(nil), good...)
			b[3] = 0x80
			return b
		}, diag.Save},
	} {
		t.Run(tc.name, func(t *testing.T) {
			frames, err := quetzal.DecodeStacks(tc.data())
			require.Error(t, err)
			assert.Nil(t, frames)
			cat, ok := diag.CategoryOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.cat, cat)
		})
	}

	_, err = quetzal.EncodeStacks([]quetzal.Frame{{Locals: make([]uint16, 16)}})
	assert.Error(t, err)
	_, err = quetzal.EncodeStacks([]quetzal.Frame{{Args: 8}})
	assert.Error(t, err)
}
