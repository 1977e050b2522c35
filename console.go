package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/fileinput"
	"github.com/jcorbin/zvm/internal/flushio"
	"github.com/jcorbin/zvm/internal/runeio"
	"github.com/jcorbin/zvm/internal/zmachine"
)

// console is a line oriented zmachine.Terminal over standard streams.
// Script lines are consumed before the keyboard and echoed as if typed.
type console struct {
	out    flushio.WriteFlusher
	script fileinput.Input

	in       io.Reader
	readOnce sync.Once
	lines    chan inputLine

	keys []rune

	color       bool
	interactive bool
	saveName    string
	cols        int

	logf func(mess string, args ...interface{})
}

type inputLine struct {
	text string
	err  error
}

func newConsole(in io.Reader, out flushio.WriteFlusher) *console {
	return &console{
		in:          in,
		out:         out,
		interactive: isTerminal(in),
		saveName:    "story.qzl",
		cols:        80,
	}
}

func isTerminal(f interface{}) bool {
	fd, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(fd.Fd()) || isatty.IsCygwinTerminal(fd.Fd())
}

// Close flushes output and closes any unread scripts.
func (con *console) Close() error {
	err := con.out.Flush()
	if serr := con.script.Close(); err == nil {
		err = serr
	}
	return err
}

func (con *console) Print(s string) error {
	_, err := runeio.WriteString(con.out, s)
	return err
}

func (con *console) ReadLine(ctx context.Context, initial string, maxLen int, timeout time.Duration) (string, error) {
	con.keys = nil
	line, err := con.readLine(ctx, timeout)
	if err != nil {
		return initial, err
	}
	line = initial + line
	if n := utf8.RuneCountInString(line); n > maxLen {
		if body, code, ok := runeio.SplitKey(line); ok {
			return truncate(body, maxLen) + runeio.KeyName(code), nil
		}
		line = truncate(line, maxLen)
	}
	return line, nil
}

func truncate(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// ReadChar takes keys from a whole line: a line holding one key in a form
// runeio.ParseKey accepts, like "<UP>" or "^H", reads as that key, and any
// other line as its characters then return.
func (con *console) ReadChar(ctx context.Context, timeout time.Duration) (rune, error) {
	if len(con.keys) == 0 {
		line, err := con.readLine(ctx, timeout)
		if err != nil {
			return 0, err
		}
		if r, err := runeio.ParseKey(line); err == nil {
			return r, nil
		}
		con.keys = append([]rune(line), '\r')
	}
	r := con.keys[0]
	con.keys = con.keys[1:]
	return r, nil
}

func (con *console) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	if err := con.out.Flush(); err != nil {
		return "", err
	}
	if con.script.Pending() {
		line, err := con.script.ReadLine()
		if err == nil {
			if con.logf != nil {
				con.logf("< %v: %q", con.script.Last, line)
			}
			con.Print(line + "\n")
			return line, nil
		} else if err != io.EOF {
			return "", err
		}
	}

	con.readOnce.Do(con.startReader)
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", zmachine.ErrTimeout
	case il, ok := <-con.lines:
		if !ok {
			return "", io.EOF
		}
		return il.text, il.err
	}
}

// startReader reads the keyboard on its own goroutine so that reads may
// time out; a line typed after a timeout goes to the next read.
func (con *console) startReader() {
	lines := make(chan inputLine)
	con.lines = lines
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(con.in)
		for sc.Scan() {
			lines <- inputLine{text: strings.TrimRight(sc.Text(), "\r")}
		}
		if err := sc.Err(); err != nil {
			lines <- inputLine{err: err}
		}
	}()
}

func (con *console) OpenSave(ctx context.Context, name string) (io.WriteCloser, error) {
	path, err := con.savePath(ctx, "Save to", name)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (con *console) OpenRestore(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	path, err := con.savePath(ctx, "Restore from", name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// savePath names a save file. A story supplied name is used as is;
// otherwise an interactive player is asked, with the last name as default.
func (con *console) savePath(ctx context.Context, prompt, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if con.interactive || con.script.Pending() {
		con.Print(fmt.Sprintf("%s [%s]: ", prompt, con.saveName))
		line, err := con.readLine(ctx, 0)
		if err != nil {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			con.saveName = line
		}
	}
	return con.saveName, nil
}

// ShowStatus prints the v1-3 status line above the next prompt.
func (con *console) ShowStatus(location string, a, b int, timeGame bool) {
	right := fmt.Sprintf("Score: %d  Moves: %d", a, b)
	if timeGame {
		right = fmt.Sprintf("Time: %d:%02d", a, b)
	}
	pad := con.cols - utf8.RuneCountInString(location) - utf8.RuneCountInString(right) - 2
	line := " " + location + strings.Repeat(" ", max(pad, 1)) + right + " "
	if con.color {
		line = color.New(color.ReverseVideo).Sprint(line)
	}
	fmt.Fprintln(con.out, line)
}

// Diagnostic shows a report inline, colored by level.
func (con *console) Diagnostic(rep diag.Report) {
	s := rep.Inline()
	if con.color {
		s = levelColor(rep.Level).Sprint(s)
	}
	fmt.Fprintln(con.out, s)
}

func levelColor(lvl diag.Level) *color.Color {
	switch lvl {
	case diag.LevelWarn:
		return color.New(color.FgYellow)
	case diag.LevelPort:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}
