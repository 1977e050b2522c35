package zmachine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jcorbin/zvm/internal/diag"
)

// ErrTimeout is returned by Terminal reads whose timeout elapsed before
// input was complete.
var ErrTimeout = errors.New("input timed out")

var errNoFiles = errors.New("terminal does not support save files")

// Terminal is the host side of a running story.
type Terminal interface {
	// Print displays story text.
	Print(s string) error

	// ReadLine reads a line of at most maxLen characters, starting with
	// initial already typed. A non-zero timeout that elapses returns the
	// partial line with ErrTimeout. A line ended by a function key carries
	// that key's name, like "<F1>", at its end.
	ReadLine(ctx context.Context, initial string, maxLen int, timeout time.Duration) (string, error)

	// ReadChar reads one key, returning ErrTimeout like ReadLine. Keys
	// with no character are returned as their ZSCII input codes.
	ReadChar(ctx context.Context, timeout time.Duration) (rune, error)

	// OpenSave and OpenRestore open save files; name is a suggestion,
	// possibly empty.
	OpenSave(ctx context.Context, name string) (io.WriteCloser, error)
	OpenRestore(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// Windower is implemented by terminals that support the screen model
// opcodes. Lines and columns count from 1.
type Windower interface {
	SplitWindow(lines int)
	SetWindow(window int)
	EraseWindow(window int)
	EraseLine()
	SetCursor(line, column int)
	Cursor() (line, column int)
	SetTextStyle(style int)
	SetColour(foreground, background int)
	SetBufferMode(buffered bool)
}

// StatusLiner is implemented by terminals that can show the v1-3 status line.
type StatusLiner interface {
	ShowStatus(location string, a, b int, timeGame bool)
}

// Diagnoser is implemented by terminals that render inline diagnostics
// themselves.
type Diagnoser interface {
	Diagnostic(rep diag.Report)
}

type nullTerminal struct{}

func (nullTerminal) Print(string) error { return nil }

func (nullTerminal) ReadLine(context.Context, string, int, time.Duration) (string, error) {
	return "", io.EOF
}

func (nullTerminal) ReadChar(context.Context, time.Duration) (rune, error) {
	return 0, io.EOF
}

func (nullTerminal) OpenSave(context.Context, string) (io.WriteCloser, error) {
	return nil, errNoFiles
}

func (nullTerminal) OpenRestore(context.Context, string) (io.ReadSeekCloser, error) {
	return nil, errNoFiles
}
