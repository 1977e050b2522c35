package zmachine

import (
	"strconv"
	"strings"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/flushio"
	"github.com/jcorbin/zvm/internal/mem"
)

const maxTableNesting = 16

// outputStreams holds the state of the four output streams. Screen text is
// buffered until the next read or flush; stream 3 captures all output while
// any table is selected.
type outputStreams struct {
	screen bool

	transcriptOn bool
	transcript   flushio.WriteFlusher

	recordOn bool
	record   flushio.WriteFlusher

	tables []memTable
	window int

	buf strings.Builder
}

// memTable is one selected stream 3 table: a count word followed by the
// characters written so far.
type memTable struct {
	addr uint32
	n    uint16
}

func (s *outputStreams) reset() {
	s.screen = true
	s.tables = s.tables[:0]
	s.window = 0
}

// font3 maps the character graphics font onto plain text.
const font3 = "" +
	" <>/\\ --||||--\\/" +
	"\\//\\/\\@    ||-- " +
	"   /\\/\\         " +
	"    ####  X+udb*" +
	"?abcdefghijklmno" +
	"pqrstuvwxyzUDB?"

// printZSCII sends one ZSCII character to the selected streams.
func (vm *VM) printZSCII(z uint16) {
	s := &vm.streams
	if n := len(s.tables); n > 0 {
		t := &s.tables[n-1]
		if (z < 32 && z != 13) || (z >= 127 && z <= 159) || z > 255 {
			z = '?'
		}
		vm.mem.WriteByte(t.addr+2+uint32(t.n), uint8(z))
		t.n++
		vm.mem.WriteWord(t.addr, t.n)
		return
	}
	if vm.font == 3 && z >= 32 && z <= 126 {
		z = uint16(font3[z-32])
	}
	r, ok := vm.text.Rune(z)
	if !ok {
		if z != 0 {
			vm.rep.Warn(diag.Output, "print of unprintable ZSCII character", uint32(z))
		}
		return
	}
	vm.screenRune(r)
}

// printText sends decoded ZSCII to the selected streams.
func (vm *VM) printText(zs []uint16) {
	for _, z := range zs {
		vm.printZSCII(z)
	}
}

// printString prints the Z-string at addr, returning the address after it.
func (vm *VM) printString(addr uint32) uint32 {
	zs, end := vm.text.Decode(addr)
	vm.printText(zs)
	return end
}

// printASCII prints interpreter generated text, such as numbers.
func (vm *VM) printASCII(s string) {
	for i := 0; i < len(s); i++ {
		vm.printZSCII(uint16(s[i]))
	}
}

func (vm *VM) printNumber(n int16) { vm.printASCII(strconv.Itoa(int(n))) }

func (vm *VM) screenRune(r rune) {
	s := &vm.streams
	if s.screen {
		s.buf.WriteRune(r)
	}
	if s.transcriptOn && s.transcript != nil && s.window == 0 {
		if _, err := s.transcript.Write([]byte(string(r))); err != nil {
			vm.rep.Error(diag.Output, "transcript write failed", 0)
			vm.setTranscript(false)
		}
	}
}

// screenString writes text directly to the screen streams, bypassing
// stream 3.
func (vm *VM) screenString(str string) {
	for _, r := range str {
		vm.screenRune(r)
	}
}

// flushOutput hands buffered screen text to the terminal and flushes the
// file streams.
func (vm *VM) flushOutput() error {
	s := &vm.streams
	if s.buf.Len() > 0 {
		text := s.buf.String()
		s.buf.Reset()
		if err := vm.term.Print(text); err != nil {
			return err
		}
	}
	for _, wf := range []flushio.WriteFlusher{s.transcript, s.record} {
		if wf != nil {
			if err := wf.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flush is flushOutput for use within execution; failure halts.
func (vm *VM) flush() {
	if err := vm.flushOutput(); err != nil {
		vm.halt(err)
	}
}

// setTranscript turns stream 2 on or off, keeping the Flags 2 bit in step.
// It is also the header hook called when the story writes that bit.
func (vm *VM) setTranscript(on bool) {
	s := &vm.streams
	if on && s.transcript == nil {
		vm.rep.Warn(diag.Output, "no transcript file available", 0)
		on = false
	}
	s.transcriptOn = on
	flags2 := vm.mem.Flags2() &^ mem.Flags2Transcript
	if on {
		flags2 |= mem.Flags2Transcript
	}
	vm.mem.SetHeaderWord(mem.HdFlags2, flags2)
}

// recordCommand writes one line of player input to stream 4.
func (vm *VM) recordCommand(line string) {
	s := &vm.streams
	if !s.recordOn || s.record == nil {
		return
	}
	if _, err := s.record.Write([]byte(line + "\n")); err != nil {
		vm.rep.Error(diag.Output, "command record write failed", 0)
		s.recordOn = false
	}
}

// recordKey writes one read_char key to stream 4, in brackets as it is not
// a line of text.
func (vm *VM) recordKey(z uint16) {
	vm.recordCommand("[" + strconv.Itoa(int(z)) + "]")
}

// selectStream implements output_stream: positive n selects a stream and
// negative n deselects it.
func (vm *VM) selectStream(n int16, table uint32) {
	s := &vm.streams
	switch n {
	case 0:
	case 1:
		s.screen = true
	case -1:
		s.screen = false
	case 2:
		vm.setTranscript(true)
	case -2:
		vm.setTranscript(false)
	case 3:
		if len(s.tables) >= maxTableNesting {
			vm.rep.Error(diag.Output, "nesting stream 3 too deeply", uint32(len(s.tables)))
			return
		}
		vm.mem.WriteWord(table, 0)
		s.tables = append(s.tables, memTable{addr: table})
	case -3:
		if len(s.tables) == 0 {
			vm.rep.Error(diag.Output, "stream 3 unnested too many times", 0)
			return
		}
		s.tables = s.tables[:len(s.tables)-1]
	case 4:
		if s.record == nil {
			vm.rep.Warn(diag.Output, "no command record file available", 0)
			return
		}
		s.recordOn = true
	case -4:
		s.recordOn = false
	default:
		if n < 0 {
			vm.rep.Error(diag.Output, "unknown stream deselected", uint32(-n))
		} else {
			vm.rep.Error(diag.Output, "unknown stream selected", uint32(n))
		}
	}
}
