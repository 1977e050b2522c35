package zmachine

import (
	"fmt"
	"strings"
)

type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

// logf writes a trace line under a mark naming its kind: '@' for an
// instruction, '>' and '<' around a timer routine, '#' for a halt. The mark
// repeats once per activation, so timer routines nest under the read that
// called them, and is padded to the widest mark seen so messages line up.
func (log *logging) logf(depth int, mark byte, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	marks := strings.Repeat(string(mark), max(depth, 1))
	if n := len(marks); n > log.markWidth {
		log.markWidth = n
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%-*s %v", log.markWidth, marks, mess)
}
