package quetzal_test

import (
	"math/rand"
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/quetzal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runLengths = []struct {
	name string
	rl   quetzal.RunLength
}{
	{"base128", quetzal.Base128},
	{"base256", quetzal.Base256},
}

func Test_Diff_roundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, rl := range runLengths {
		t.Run(rl.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				size := rng.Intn(2000)
				a := make([]byte, size)
				rng.Read(a)
				b := append([]byte(nil), a...)
				// sparse mutations leave long identical runs
				for n := rng.Intn(20); n > 0 && size > 0; n-- {
					b[rng.Intn(size)] = byte(rng.Intn(256))
				}
				delta := quetzal.Diff(a, b, rl.rl)
				got, err := quetzal.Undiff(a, delta, rl.rl)
				require.NoError(t, err, "case %d", i)
				require.Equal(t, b, got, "case %d", i)

				back, err := quetzal.Undiff(b, delta, rl.rl)
				require.NoError(t, err, "case %d", i)
				require.Equal(t, a, back, "XOR deltas apply in both directions")
			}
		})
	}
}

func Test_Diff_identical(t *testing.T) {
	a := make([]byte, 1000)
	for i := range a {
		a[i] = byte(i)
	}

	delta := quetzal.Diff(a, a, quetzal.Base128)
	assert.Equal(t, []byte{0, 0xe7, 0x07}, delta, "one run of 1000 = 999 as varint")
	got, err := quetzal.Undiff(a, delta, quetzal.Base128)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	delta = quetzal.Diff(a, a, quetzal.Base256)
	assert.Equal(t, []byte{0, 255, 0, 255, 0, 255, 0, 231}, delta)
	got, err = quetzal.Undiff(a, delta, quetzal.Base256)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func Test_Diff_encoding(t *testing.T) {
	a := []byte{1, 2, 3, 4, 5, 6}
	b := []byte{1, 2, 7, 4, 5, 6}
	assert.Equal(t, []byte{0, 1, 3 ^ 7, 0, 2}, quetzal.Diff(a, b, quetzal.Base128))
	assert.Equal(t, []byte{0, 1, 3 ^ 7, 0, 2}, quetzal.Diff(a, b, quetzal.Base256))
}

func Test_Undiff_corrupt(t *testing.T) {
	base := make([]byte, 8)
	for _, tc := range []struct {
		name  string
		delta []byte
		rl    quetzal.RunLength
	}{
		{"literal overrun", []byte{0, 7, 1}, quetzal.Base128},
		{"run overrun", []byte{0, 8}, quetzal.Base128},
		{"run overrun 256", []byte{1, 0, 7}, quetzal.Base256},
		{"truncated marker", []byte{1, 0}, quetzal.Base256},
		{"truncated varint", []byte{0, 0x81}, quetzal.Base128},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := quetzal.Undiff(base, tc.delta, tc.rl)
			require.Error(t, err)
			cat, _ := diag.CategoryOf(err)
			assert.Equal(t, diag.Corrupt, cat)
		})
	}

	t.Run("short stream keeps tail", func(t *testing.T) {
		got, err := quetzal.Undiff([]byte{1, 2, 3, 4}, []byte{0, 0, 5}, quetzal.Base256)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2 ^ 5, 3, 4}, got)
	})
}
