package fileinput

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedReader struct {
	*strings.Reader
	name   string
	closed bool
}

func (nr *namedReader) Name() string { return nr.name }
func (nr *namedReader) Close() error { nr.closed = true; return nil }

func TestInput(t *testing.T) {
	a := &namedReader{Reader: strings.NewReader("look\r\n// comment\nnorth\n"), name: "a"}
	b := &namedReader{Reader: strings.NewReader("inventory"), name: "b"}
	in := Input{Queue: []io.Reader{a, b}}

	var lines []string
	var locs []string
	for {
		line, err := in.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
		locs = append(locs, in.Last.String())
	}
	assert.Equal(t, []string{"look", "north", "inventory"}, lines)
	assert.Equal(t, []string{"a:1", "a:3", "b:1"}, locs)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, in.Pending())
}

func TestInput_close(t *testing.T) {
	a := &namedReader{Reader: strings.NewReader("x\n"), name: "a"}
	in := Input{Queue: []io.Reader{a}}
	require.True(t, in.Pending())
	require.NoError(t, in.Close())
	assert.True(t, a.closed)
	assert.False(t, in.Pending())
}
