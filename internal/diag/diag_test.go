package diag_test

import (
	"fmt"
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Reporter(t *testing.T) {
	var got []diag.Report
	r := &diag.Reporter{
		Emit: func(rep diag.Report) { got = append(got, rep) },
		PC:   func() uint32 { return 0x1234 },
	}

	r.Warn(diag.Object, "object number probably too large", 300)
	r.Error(diag.Math, "division by zero", 0)
	r.Port(diag.Stack, "deep recursion", 256)

	require.Len(t, got, 3)
	assert.Equal(t, diag.LevelWarn, got[0].Level)
	assert.Equal(t, diag.Object, got[0].Category)
	assert.Equal(t, uint32(300), got[0].Value)
	assert.Equal(t, uint32(0x1234), got[1].PC)
	assert.Equal(t, "[** Error: Math: division by zero (0) @0x1234 **]", got[1].Inline())
	assert.Equal(t, 1, r.Count(diag.LevelPort))
}

func Test_Reporter_minLevel(t *testing.T) {
	var got []diag.Report
	r := &diag.Reporter{
		Emit:     func(rep diag.Report) { got = append(got, rep) },
		MinLevel: diag.LevelError,
	}
	r.Warn(diag.Object, "quiet", 1)
	r.Error(diag.Object, "loud", 2)
	require.Len(t, got, 1)
	assert.Equal(t, "loud", got[0].Message)
	assert.Equal(t, 1, r.Count(diag.LevelWarn), "filtered reports still count")
}

func Test_Reporter_latch(t *testing.T) {
	var r diag.Reporter
	var depth int
	r.Emit = func(rep diag.Report) {
		depth++
		// reporting from within the sink must not recurse
		r.Error(diag.Output, "sink failed", 0)
	}
	r.Error(diag.Memory, "out of range", 0x10000)
	assert.Equal(t, 1, depth)
	assert.Equal(t, 2, r.Count(diag.LevelError))
}

func Test_Reporter_fatal(t *testing.T) {
	t.Run("halt", func(t *testing.T) {
		var halted diag.Report
		r := diag.Reporter{Halt: func(rep diag.Report) {
			halted = rep
			panic(fmt.Errorf("halted: %w", rep))
		}}
		assert.PanicsWithError(t, "halted: Stack Fatal: recursed deeper than allowed (1024)", func() {
			r.Fatal(diag.Stack, "recursed deeper than allowed", 1024)
		})
		assert.Equal(t, diag.Stack, halted.Category)
	})

	t.Run("reentrant", func(t *testing.T) {
		var r diag.Reporter
		r.Emit = func(rep diag.Report) {
			if rep.Level == diag.LevelFatal {
				r.Fatal(diag.Output, "cannot print", 0)
			}
		}
		defer func() {
			rep, ok := recover().(diag.Report)
			require.True(t, ok, "expected a report panic")
			assert.Equal(t, diag.System, rep.Category)
		}()
		r.Fatal(diag.Memory, "out of memory", 0)
	})
}

func Test_CategoryOf(t *testing.T) {
	err := fmt.Errorf("loading story: %w", diag.Errorf(diag.Corrupt, "dynamic size %d past game size %d", 9000, 4000))
	cat, ok := diag.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.Corrupt, cat)
	assert.EqualError(t, err, "loading story: Corrupt Error: dynamic size 9000 past game size 4000")

	_, ok = diag.CategoryOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func Test_ParseLevel(t *testing.T) {
	for name, want := range map[string]diag.Level{
		"warn":        diag.LevelWarn,
		"Warning":     diag.LevelWarn,
		"PORT":        diag.LevelPort,
		"portability": diag.LevelPort,
		"error":       diag.LevelError,
		"fatal":       diag.LevelFatal,
	} {
		lvl, err := diag.ParseLevel(name)
		require.NoError(t, err, "level %q", name)
		assert.Equal(t, want, lvl, "level %q", name)
	}
	_, err := diag.ParseLevel("loud")
	assert.Error(t, err)
}
