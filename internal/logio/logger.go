// Package logio writes leveled log lines for the command line host and
// keeps the process exit status in step with what was logged.
package logio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Logger writes "level: message" lines to an output stream. It is safe for
// use from multiple goroutines.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	buf      bytes.Buffer
	exitCode int

	// Style, if set, decorates the level prefix of each line.
	Style func(level string) string
}

// New returns a Logger writing to out.
func New(out io.Writer) *Logger { return &Logger{out: out} }

// SetOutput replaces the output stream.
func (log *Logger) SetOutput(out io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.out = out
}

// ExitCode returns a status for os.Exit: 1 after any error line, 2 if
// writing a line failed, 0 otherwise.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

// Leveledf returns a printf-style function logging at level.
func (log *Logger) Leveledf(level string) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { log.Printf(level, mess, args...) }
}

// ErrorIf logs err if it is not nil.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%v", err)
	}
}

// Errorf logs at level "ERROR" and makes the exit status non-zero.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.setExit(1)
	log.print("ERROR", mess, args...)
}

// Printf logs one line at level; an empty level writes the bare message.
func (log *Logger) Printf(level, mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.print(level, mess, args...)
}

func (log *Logger) setExit(code int) {
	if code > log.exitCode {
		log.exitCode = code
	}
}

func (log *Logger) print(level, mess string, args ...interface{}) {
	if log.out == nil {
		return
	}
	log.buf.Reset()
	if level != "" {
		if log.Style != nil {
			log.buf.WriteString(log.Style(level))
		} else {
			log.buf.WriteString(level)
		}
		log.buf.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&log.buf, mess, args...)
	} else {
		log.buf.WriteString(mess)
	}
	if b := log.buf.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		log.buf.WriteByte('\n')
	}
	if _, err := log.buf.WriteTo(log.out); err != nil {
		log.setExit(2)
	}
}
