package flushio

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriteFlusher(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWriteFlusher(&buf)
	_, _ = io.WriteString(wf, "direct")
	assert.Equal(t, "direct", buf.String(), "buffers are written through")
	assert.NoError(t, wf.Flush())

	var sb strings.Builder
	assert.IsType(t, nopFlusher{}, NewWriteFlusher(&sb))
	assert.IsType(t, nopFlusher{}, NewWriteFlusher(io.Discard))

	bw := bufio.NewWriter(&buf)
	assert.Equal(t, WriteFlusher(bw), NewWriteFlusher(bw))

	f, err := os.Create(filepath.Join(t.TempDir(), "transcript"))
	require.NoError(t, err)
	defer f.Close()
	wf = NewWriteFlusher(f)
	_, _ = io.WriteString(wf, "held")
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "files are buffered")
	require.NoError(t, wf.Flush())
	info, err = f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size())
}
