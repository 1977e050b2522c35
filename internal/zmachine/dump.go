package zmachine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jcorbin/zvm/internal/mem"
)

// Dump writes the machine state for post-mortem debugging: registers, every
// call frame innermost first, and the dynamic memory rows that differ from
// the story file.
func (vm *VM) Dump(w io.Writer) {
	vmDumper{vm: vm, out: w}.dump()
}

type vmDumper struct {
	vm  *VM
	out io.Writer
}

func (dump vmDumper) dump() {
	vm := dump.vm
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  version: %v\n", vm.version)
	fmt.Fprintf(dump.out, "  pc: %#05x\n", vm.pc)
	fmt.Fprintf(dump.out, "  last: %#05x %v\n", vm.oldPC, &vm.in)
	if len(vm.acts) > 1 {
		fmt.Fprintf(dump.out, "  timers: %v\n", len(vm.acts)-1)
	}
	dump.dumpFrames()
	dump.dumpMem()
}

func (dump vmDumper) dumpFrames() {
	vm := dump.vm
	fmt.Fprintf(dump.out, "# Frames\n")
	end := len(vm.stack)
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		start, base := clamp(f.start, end), clamp(f.evalBase(), end)
		fmt.Fprintf(dump.out, "  %v: return=%#05x args=%v locals=%v stack=%v",
			i, f.returnPC, f.args, vm.stack[start:base], vm.stack[base:end])
		switch f.result {
		case resultDiscard:
			fmt.Fprintf(dump.out, " discard\n")
		case resultTimer:
			fmt.Fprintf(dump.out, " timer\n")
		default:
			fmt.Fprintf(dump.out, " store=%v\n", f.result)
		}
		end = start
	}
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}

const dumpRowSize = 16

func (dump vmDumper) dumpMem() {
	m := dump.vm.mem
	cur, orig := m.Dynamic(), m.OriginalDynamic()
	globals := m.Globals()

	fmt.Fprintf(dump.out, "# Changed Memory\n")
	var buf bytes.Buffer
	section := ""
	for addr := 0; addr < len(cur); addr += dumpRowSize {
		end := min(addr+dumpRowSize, len(cur))
		if bytes.Equal(cur[addr:end], orig[addr:end]) {
			continue
		}

		name := "dynamic"
		switch {
		case addr < mem.HeaderSize:
			name = "header"
		case uint32(addr)+dumpRowSize > globals && uint32(addr) < globals+2*240:
			name = "globals"
		}
		if name != section {
			section = name
			fmt.Fprintf(&buf, "  ## %v\n", name)
		}

		fmt.Fprintf(&buf, "  @%#05x", addr)
		for i := addr; i < end; i++ {
			if cur[i] == orig[i] {
				buf.WriteString(" ..")
			} else {
				fmt.Fprintf(&buf, " %02x", cur[i])
			}
		}
		buf.WriteByte('\n')
		buf.WriteTo(dump.out)
	}
}
