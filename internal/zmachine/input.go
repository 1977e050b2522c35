package zmachine

import (
	"errors"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/runeio"
	"github.com/jcorbin/zvm/internal/undo"
	"github.com/jcorbin/zvm/internal/ztext"
)

// Meta-commands are typed at a read and handled by the interpreter rather
// than the story.
const (
	metaUndo = "#undo"
	metaRedo = "#redo"
)

// timerInterval converts a timed input interval, in tenths of a second.
func timerInterval(tenths, routine uint16) time.Duration {
	if tenths == 0 || routine == 0 {
		return 0
	}
	return time.Duration(tenths) * 100 * time.Millisecond
}

// readLine implements sread and aread.
func (vm *VM) readLine(in *Instruction) {
	text := uint32(in.Arg(0, 0))
	parse := uint32(in.Arg(1, 0))
	routine := in.Arg(3, 0)
	timeout := timerInterval(in.Arg(2, 0), routine)
	stores := in.Op.Stores()

	if vm.inTimer() {
		vm.rep.Error(diag.Output, "input requested within a timer routine", 0)
		if stores {
			vm.store(0)
		}
		return
	}
	if vm.version <= 3 {
		vm.showStatus()
	}

	// v1-4 count the terminating zero in the buffer size
	size := int(vm.mem.ReadByte(text))
	start := text + 1
	initial := ""
	if vm.version <= 4 {
		size--
	} else {
		start = text + 2
		if n := int(vm.mem.ReadByte(text + 1)); n <= size {
			zs := make([]uint16, n)
			for i := range zs {
				zs[i] = uint16(vm.mem.ReadByte(start + uint32(i)))
			}
			initial = vm.text.String(zs)
		}
	}
	if size < 0 {
		size = 0
	}

	vm.autoCheckpoint()
	vm.flush()

	for {
		line, err := vm.term.ReadLine(vm.ctx, initial, size, timeout)
		if errors.Is(err, ErrTimeout) {
			initial = line
			res := vm.callTimer(routine)
			if vm.readAbort || vm.quitting {
				vm.readAbort = false
				return
			}
			if res == 0 {
				continue
			}
			vm.finishRead(text, start, parse, size, line, 0, stores)
			return
		}
		if err != nil {
			vm.halt(err)
		}

		if handled, over := vm.metaCommand(line); over {
			return
		} else if handled {
			continue
		}

		term := uint8(ztext.ZNewline)
		if rest, code, ok := runeio.SplitKey(line); ok && vm.isTerminator(code) {
			line, term = rest, code
		}
		vm.transcribeInput(line)
		vm.recordCommand(line)
		vm.finishRead(text, start, parse, size, line, term, stores)
		return
	}
}

// finishRead stores the typed line, tokenises it and gives the result.
func (vm *VM) finishRead(text, start, parse uint32, size int, line string, term uint8, stores bool) {
	buf := make([]byte, 0, len(line))
	for _, r := range line {
		if len(buf) >= size {
			break
		}
		z, ok := vm.text.ZSCII(unicode.ToLower(r))
		if !ok {
			vm.rep.Warn(diag.Output, "input character has no ZSCII form", uint32(r))
		}
		buf = append(buf, z)
	}
	for i, z := range buf {
		vm.mem.WriteByte(start+uint32(i), z)
	}
	if vm.version <= 4 {
		vm.mem.WriteByte(start+uint32(len(buf)), 0)
	} else {
		vm.mem.WriteByte(text+1, uint8(len(buf)))
	}
	if parse != 0 {
		vm.text.Tokenise(text, parse, vm.dict, false)
	}
	if stores {
		vm.store(uint16(term))
	}
}

// isTerminator reports whether the story accepts code as ending input.
func (vm *VM) isTerminator(code uint8) bool {
	for _, t := range vm.terminators {
		if t == code || (t == runeio.KeyAnyFunc && runeio.IsFunctionKey(code)) {
			return true
		}
	}
	return false
}

// metaCommand handles interpreter commands typed at a read. A handled
// command never reaches the story: when undo or redo restores another
// turn the read is over, and when it fails the read asks again.
func (vm *VM) metaCommand(line string) (handled, over bool) {
	var dir undo.Direction
	switch strings.ToLower(strings.TrimSpace(line)) {
	case metaUndo:
		dir = undo.Back
	case metaRedo:
		dir = undo.Forward
	default:
		return false, false
	}
	if err := vm.restoreUndo(dir); err != nil {
		vm.screenString("[" + err.Error() + ".]\n")
		vm.flush()
		return true, false
	}
	vm.skipAutoUndo = true
	return true, true
}

// autoCheckpoint takes an undo slot before input for stories that never
// save undo state themselves. The slot resumes at the read instruction.
func (vm *VM) autoCheckpoint() {
	if vm.skipAutoUndo {
		vm.skipAutoUndo = false
		return
	}
	if !vm.autoUndo || vm.undo.Checkpointed() || vm.inTimer() {
		return
	}
	if err := vm.saveUndo(vm.oldPC, false, true); err != nil {
		vm.rep.Warn(diag.Save, "automatic undo checkpoint failed", 0)
	}
}

// transcribeInput copies player input to the transcript, where the
// terminal's own echo does not reach.
func (vm *VM) transcribeInput(line string) {
	s := &vm.streams
	if !s.transcriptOn || s.transcript == nil {
		return
	}
	if _, err := io.WriteString(s.transcript, line+"\n"); err != nil {
		vm.rep.Error(diag.Output, "transcript write failed", 0)
		vm.setTranscript(false)
	}
}

// readChar implements read_char.
func (vm *VM) readChar(in *Instruction) {
	if in.Arg(0, 1) != 1 {
		vm.rep.Warn(diag.Output, "read_char from unknown device", uint32(in.Arg(0, 1)))
	}
	if vm.inTimer() {
		vm.rep.Error(diag.Output, "input requested within a timer routine", 0)
		vm.store(0)
		return
	}
	routine := in.Arg(2, 0)
	timeout := timerInterval(in.Arg(1, 0), routine)
	vm.flush()
	for {
		r, err := vm.term.ReadChar(vm.ctx, timeout)
		if errors.Is(err, ErrTimeout) {
			res := vm.callTimer(routine)
			if vm.readAbort || vm.quitting {
				vm.readAbort = false
				return
			}
			if res == 0 {
				continue
			}
			vm.store(0)
			return
		}
		if err != nil {
			vm.halt(err)
		}
		z := vm.keyZSCII(r)
		vm.recordKey(uint16(z))
		vm.store(uint16(z))
		return
	}
}

// keyZSCII translates a key from the terminal. Keys with no character
// arrive as their ZSCII input codes.
func (vm *VM) keyZSCII(r rune) uint8 {
	if r > 0 && r <= 0xff && (runeio.IsFunctionKey(uint8(r)) || r == runeio.KeyDelete || r == runeio.KeyEscape) {
		return uint8(r)
	}
	z, _ := vm.text.ZSCII(r)
	return z
}

// showStatus updates the v1-3 status line from the first three globals.
func (vm *VM) showStatus() {
	sl, ok := vm.term.(StatusLiner)
	if !ok {
		return
	}
	loc := vm.mem.ReadWord(vm.globalAddr(16))
	name := ""
	if loc != 0 {
		if addr := vm.objects.shortName(loc); addr != 0 {
			name = vm.text.DecodeString(addr)
		}
	}
	a := int16(vm.mem.ReadWord(vm.globalAddr(17)))
	b := int16(vm.mem.ReadWord(vm.globalAddr(18)))
	timeGame := vm.version == 3 && vm.mem.Flags1()&0x02 != 0
	vm.flush()
	sl.ShowStatus(name, int(a), int(b), timeGame)
}
