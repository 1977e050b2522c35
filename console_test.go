package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/flushio"
	"github.com/jcorbin/zvm/internal/runeio"
	"github.com/jcorbin/zvm/internal/zmachine"
)

type namedReader struct {
	*strings.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func testConsole(keyboard string, scripts ...string) (*console, *bytes.Buffer) {
	var out bytes.Buffer
	con := newConsole(strings.NewReader(keyboard), flushio.NewWriteFlusher(&out))
	for i, script := range scripts {
		con.script.Queue = append(con.script.Queue, namedReader{strings.NewReader(script), "script" + string(rune('0'+i))})
	}
	return con, &out
}

func TestConsole_readLine(t *testing.T) {
	ctx := context.Background()
	con, out := testConsole("go west\n", "// setup\nlook\n", "north<F1>\n")

	for _, want := range []string{"look", "north<F1>", "go west"} {
		line, err := con.ReadLine(ctx, "", 20, 0)
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := con.ReadLine(ctx, "", 20, 0)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "look\nnorth<F1>\n", out.String(), "script lines are echoed")
}

func TestConsole_readLine_limits(t *testing.T) {
	for _, tc := range []struct {
		name    string
		initial string
		line    string
		maxLen  int
		want    string
	}{
		{"fits", "", "look", 10, "look"},
		{"truncated", "", "inventory", 4, "inve"},
		{"initial", "nor", "th", 10, "north"},
		{"key kept", "", "northwest<UP>", 5, "north<UP>"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			con, _ := testConsole(tc.line + "\n")
			line, err := con.ReadLine(context.Background(), tc.initial, tc.maxLen, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, line)
		})
	}
}

func TestConsole_readLine_timeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	con := newConsole(pr, flushio.NewWriteFlusher(&out))

	line, err := con.ReadLine(context.Background(), "nor", 10, 10*time.Millisecond)
	assert.Equal(t, zmachine.ErrTimeout, err)
	assert.Equal(t, "nor", line)

	go io.WriteString(pw, "th\n")
	line, err = con.ReadLine(context.Background(), "nor", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "north", line, "input typed after a timeout goes to the next read")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = con.ReadLine(ctx, "", 10, 0)
	assert.Equal(t, context.Canceled, err)
}

func TestConsole_readChar(t *testing.T) {
	con, _ := testConsole("<UP>\nyes\n\n^[\n'>'\n")
	var keys []rune
	for {
		r, err := con.ReadChar(context.Background(), 0)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		keys = append(keys, r)
	}
	assert.Equal(t, []rune{runeio.KeyUp, 'y', 'e', 's', '\r', '\r', 0x1b, '>'}, keys)
}

func TestConsole_print(t *testing.T) {
	con, out := testConsole("")
	require.NoError(t, con.Print("bell\a\tend\n"))
	assert.Equal(t, "bell^G\tend\n", out.String())
}

func TestConsole_status(t *testing.T) {
	con, out := testConsole("")
	con.cols = 40
	con.ShowStatus("West of House", 10, 3, false)
	con.ShowStatus("Hall", 9, 5, true)
	con.cols = 20
	con.ShowStatus("Hall", -1, 0, false)
	assert.Equal(t, ""+
		" West of House      Score: 10  Moves: 3 \n"+
		" Hall                        Time: 9:05 \n"+
		" Hall Score: -1  Moves: 0 \n",
		out.String())
}

func TestConsole_diagnostic(t *testing.T) {
	con, out := testConsole("")
	con.Diagnostic(diag.Report{
		Level:    diag.LevelError,
		Category: diag.Object,
		Message:  "no such object",
		PC:       0x1234,
	})
	assert.Equal(t, "[** Error: Object: no such object (0) @0x1234 **]\n", out.String())
}

func TestConsole_saveFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	named := filepath.Join(dir, "table.aux")
	prompted := filepath.Join(dir, "game.qzl")

	con, out := testConsole("", prompted+"\n", "\n")
	con.saveName = filepath.Join(dir, "default.qzl")

	w, err := con.OpenSave(ctx, named)
	require.NoError(t, err)
	_, err = io.WriteString(w, "aux")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = con.OpenSave(ctx, "")
	require.NoError(t, err)
	_, err = io.WriteString(w, "FORM")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Contains(t, out.String(), "Save to [")

	r, err := con.OpenRestore(ctx, "")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "FORM", string(data), "empty answer keeps the last name")

	data, err = os.ReadFile(named)
	require.NoError(t, err)
	assert.Equal(t, "aux", string(data))

	require.NoError(t, con.script.Close())
	r, err = con.OpenRestore(ctx, "")
	require.NoError(t, err, "non-interactive restore uses the last name")
	require.NoError(t, r.Close())
	require.NoError(t, con.Close())
}
