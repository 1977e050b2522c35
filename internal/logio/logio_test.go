package logio

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestLogger(t *testing.T) {
	var out strings.Builder
	log := New(&out)
	log.Printf("warn", "odd value %d", 7)
	log.Printf("", "bare\n")
	assert.Equal(t, 0, log.ExitCode())

	log.ErrorIf(nil)
	log.ErrorIf(errors.New("bad story"))
	log.Style = func(level string) string { return "<" + level + ">" }
	log.Leveledf("trace")("step")
	assert.Equal(t, "warn: odd value 7\nbare\nERROR: bad story\n<trace>: step\n", out.String())
	assert.Equal(t, 1, log.ExitCode())

	log.SetOutput(failWriter{})
	log.Printf("warn", "lost")
	assert.Equal(t, 2, log.ExitCode())
	log.Errorf("also lost")
	assert.Equal(t, 2, log.ExitCode(), "exit status only rises")
}

func TestWriter(t *testing.T) {
	var lines []string
	w := &Writer{Logf: func(mess string, args ...interface{}) {
		lines = append(lines, string(args[0].([]byte)))
	}}
	_, _ = w.Write([]byte("one\ntw"))
	assert.Equal(t, []string{"one"}, lines)
	_, _ = w.Write([]byte("o\nthree"))
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.NoError(t, w.Close())
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}
