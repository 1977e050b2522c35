// Package fileinput reads player commands from a queue of script files.
package fileinput

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Location names a line in an Input file.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// Input reads lines through a Queue of one or more script streams, moving to
// the next stream at the end of each. Lines starting with "//" are comments
// and are skipped.
type Input struct {
	Queue []io.Reader
	Last  Location

	br   *bufio.Reader
	cur  io.Reader
	scan Location
}

// ReadLine returns the next script line without its line ending, and
// io.EOF once every stream is exhausted.
func (in *Input) ReadLine() (string, error) {
	for {
		if in.br == nil && !in.nextIn() {
			return "", io.EOF
		}
		line, err := in.br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("%v: %w", in.scan, err)
		}
		if line == "" && err == io.EOF {
			in.closeIn()
			continue
		}
		in.scan.Line++
		in.Last = in.scan
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "//") {
			continue
		}
		return line, nil
	}
}

// Pending reports whether any script input may remain.
func (in *Input) Pending() bool { return in.br != nil || len(in.Queue) > 0 }

// Close closes every remaining stream.
func (in *Input) Close() (err error) {
	in.closeIn()
	for _, r := range in.Queue {
		if cl, ok := r.(io.Closer); ok {
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
	}
	in.Queue = nil
	return err
}

func (in *Input) closeIn() {
	if cl, ok := in.cur.(io.Closer); ok {
		cl.Close()
	}
	in.cur, in.br = nil, nil
}

func (in *Input) nextIn() bool {
	in.closeIn()
	if len(in.Queue) == 0 {
		return false
	}
	in.cur = in.Queue[0]
	in.Queue = in.Queue[1:]
	in.br = bufio.NewReader(in.cur)
	in.scan = Location{Name: nameOf(in.cur)}
	return true
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
