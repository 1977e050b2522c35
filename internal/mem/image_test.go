package mem_test

import (
	"encoding/binary"
	"testing"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStory builds a blank story of the given version and sizes.
func testStory(version uint8, dynamicSize, size int) []byte {
	story := make([]byte, size)
	story[mem.HdVersion] = version
	binary.BigEndian.PutUint16(story[mem.HdInitialPC:], uint16(dynamicSize))
	binary.BigEndian.PutUint16(story[mem.HdStaticBase:], uint16(dynamicSize))
	scale := map[uint8]int{1: 2, 2: 2, 3: 2, 4: 4, 5: 4, 6: 8, 7: 8, 8: 8}[version]
	binary.BigEndian.PutUint16(story[mem.HdLength:], uint16(size/scale))
	return story
}

type reportLog []diag.Report

func (rl *reportLog) reporter() *diag.Reporter {
	return &diag.Reporter{Emit: func(rep diag.Report) { *rl = append(*rl, rep) }}
}

func Test_Load(t *testing.T) {
	for _, tc := range []struct {
		name  string
		story func() []byte
		cat   diag.Category
	}{
		{"short", func() []byte { return make([]byte, 10) }, diag.Corrupt},
		{"bad version", func() []byte {
			s := testStory(3, 0x100, 0x200)
			s[0] = 9
			return s
		}, diag.Version},
		{"dynamic past game size", func() []byte {
			s := testStory(3, 0x100, 0x200)
			binary.BigEndian.PutUint16(s[mem.HdStaticBase:], 0x300)
			return s
		}, diag.Corrupt},
		{"game size past file", func() []byte {
			s := testStory(5, 0x100, 0x200)
			binary.BigEndian.PutUint16(s[mem.HdLength:], 0x100)
			return s
		}, diag.Corrupt},
		{"pc in header", func() []byte {
			s := testStory(5, 0x100, 0x200)
			binary.BigEndian.PutUint16(s[mem.HdInitialPC:], 0x10)
			return s
		}, diag.Corrupt},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := mem.Load(tc.story(), nil)
			require.Error(t, err)
			assert.Nil(t, m, "no image must be allocated")
			cat, ok := diag.CategoryOf(err)
			require.True(t, ok, "expected a categorized error, got %v", err)
			assert.Equal(t, tc.cat, cat)
		})
	}

	t.Run("valid", func(t *testing.T) {
		m, err := mem.Load(testStory(3, 0x100, 0x200), nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x100), m.DynamicSize)
		assert.Equal(t, uint32(0x200), m.GameSize)
		assert.Equal(t, uint32(0x200), m.TotalSize)
		assert.Equal(t, uint32(0x100), m.InitialPC)
		assert.Equal(t, uint8(3), m.Version())
	})

	t.Run("zero length word", func(t *testing.T) {
		s := testStory(3, 0x100, 0x180)
		binary.BigEndian.PutUint16(s[mem.HdLength:], 0)
		m, err := mem.Load(s, nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x180), m.GameSize)
	})
}

func Test_Image_access(t *testing.T) {
	var reports reportLog
	m, err := mem.Load(testStory(5, 0x100, 0x200), reports.reporter())
	require.NoError(t, err)

	m.WriteWord(0x80, 0xbeef)
	assert.Equal(t, uint16(0xbeef), m.ReadWord(0x80))
	assert.Equal(t, uint8(0xbe), m.ReadByte(0x80))
	assert.Empty(t, reports)

	m.WriteByte(0x100, 1)
	assert.Equal(t, uint8(0), m.ReadByte(0x100), "static memory must not change")
	m.WriteWord(0xff, 0x1234)
	assert.Equal(t, uint8(0), m.ReadByte(0xff), "straddling word write must be rejected")

	assert.Equal(t, uint8(0), m.ReadByte(0x200))
	assert.Equal(t, uint16(0), m.ReadWord(0x1ff))

	require.Len(t, reports, 4)
	for _, rep := range reports {
		assert.Equal(t, diag.Memory, rep.Category)
		assert.Equal(t, diag.LevelError, rep.Level)
	}
}

func Test_Image_header(t *testing.T) {
	var reports reportLog
	m, err := mem.Load(testStory(5, 0x100, 0x200), reports.reporter())
	require.NoError(t, err)

	var transcript, fixed []bool
	m.Hooks = mem.HeaderHooks{
		Transcript: func(on bool) { transcript = append(transcript, on) },
		FixedFont:  func(on bool) { fixed = append(fixed, on) },
	}

	m.WriteByte(mem.HdRelease, 7)
	assert.Equal(t, uint16(0), m.Release(), "release is read-only")
	require.Len(t, reports, 1)

	m.WriteWord(mem.HdFlags2, mem.Flags2Transcript)
	m.WriteWord(mem.HdFlags2, mem.Flags2Transcript|mem.Flags2FixedFont)
	m.WriteWord(mem.HdFlags2, 0)
	assert.Equal(t, []bool{true, false}, transcript)
	assert.Equal(t, []bool{true, false}, fixed)
	assert.Len(t, reports, 1)

	m.SetHeaderByte(mem.HdInterpNumber, 6)
	assert.Equal(t, uint8(6), m.ReadByte(mem.HdInterpNumber))
}

func Test_Image_restart(t *testing.T) {
	m, err := mem.Load(testStory(5, 0x100, 0x200), nil)
	require.NoError(t, err)
	m.WriteByte(0x90, 42)
	m.WriteWord(mem.HdFlags2, mem.Flags2Transcript)
	m.Restart()
	assert.Equal(t, uint8(0), m.ReadByte(0x90))
	assert.Equal(t, uint16(mem.Flags2Transcript), m.Flags2())
}

func Test_Image_unpack(t *testing.T) {
	for _, tc := range []struct {
		version       uint8
		routine, str  uint32
		routineOffset uint16
		stringOffset  uint16
	}{
		{3, 0x2468, 0x2468, 0, 0},
		{5, 0x48d0, 0x48d0, 0, 0},
		{7, 0x48d0 + 8*0x10, 0x48d0 + 8*0x20, 0x10, 0x20},
		{8, 0x91a0, 0x91a0, 0, 0},
	} {
		story := testStory(tc.version, 0x100, 0x400)
		binary.BigEndian.PutUint16(story[mem.HdRoutineOffset:], tc.routineOffset)
		binary.BigEndian.PutUint16(story[mem.HdStringOffset:], tc.stringOffset)
		m, err := mem.Load(story, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.routine, m.UnpackRoutine(0x1234), "v%d routine", tc.version)
		assert.Equal(t, tc.str, m.UnpackString(0x1234), "v%d string", tc.version)
	}
}

func Test_Image_checksum(t *testing.T) {
	story := testStory(3, 0x100, 0x200)
	story[0x40] = 0xff
	story[0x1ff] = 0x02
	m, err := mem.Load(story, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x101), m.Checksum())
}
