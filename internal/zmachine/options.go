package zmachine

import (
	"io"

	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/flushio"
)

// Option configures a VM under New.
type Option interface{ apply(vm *VM) }

var defaults = []Option{
	WithTerminal(nullTerminal{}),
	WithUndoLimits(32, 0),
	WithAutoUndo(true),
	WithScreenSize(25, 80),
}

func (vm *VM) apply(opts ...Option) {
	for _, opt := range defaults {
		opt.apply(vm)
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

// WithLogf enables instruction tracing through logfn.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithTerminal sets the host terminal.
func WithTerminal(term Terminal) Option { return terminalOption{term} }

// WithTranscript sets where output stream 2 writes.
func WithTranscript(w io.Writer) Option { return transcriptOption{w} }

// WithCommandRecord sets where output stream 4 writes.
func WithCommandRecord(w io.Writer) Option { return recordOption{w} }

// WithDiagnostics routes reports at or above minLevel to emit.
func WithDiagnostics(emit func(diag.Report), minLevel diag.Level) Option {
	return diagnosticsOption{emit, minLevel}
}

// WithInlineDiagnostics shows reports at or above minLevel in the story output.
func WithInlineDiagnostics(minLevel diag.Level) Option {
	return diagnosticsOption{nil, minLevel}
}

// WithUndoLimits bounds undo history by slot count and bytes; 0 is unbounded.
func WithUndoLimits(slots, bytes int) Option { return undoLimitsOption{slots, bytes} }

// WithAutoUndo controls the undo checkpoint taken before input for stories
// that do not make their own.
func WithAutoUndo(enabled bool) Option { return autoUndoOption(enabled) }

// WithStackLimit sets the call depth past which the VM halts; 0 is unbounded.
func WithStackLimit(frames int) Option { return stackLimitOption(frames) }

// WithSeed makes the random number generator deterministic.
func WithSeed(seed int64) Option { return seedOption(seed) }

// WithScreenSize sets the screen dimensions reported in the header.
func WithScreenSize(rows, cols int) Option { return screenOption{rows, cols} }

type withLogfn func(mess string, args ...interface{})
type terminalOption struct{ Terminal }
type transcriptOption struct{ io.Writer }
type recordOption struct{ io.Writer }
type undoLimitsOption struct{ slots, bytes int }
type autoUndoOption bool
type stackLimitOption int
type seedOption int64
type screenOption struct{ rows, cols int }

type diagnosticsOption struct {
	emit     func(diag.Report)
	minLevel diag.Level
}

func (logfn withLogfn) apply(vm *VM) { vm.logfn = logfn }

func (o terminalOption) apply(vm *VM) { vm.term = o.Terminal }

func (o transcriptOption) apply(vm *VM) {
	vm.streams.transcript = flushio.NewWriteFlusher(o.Writer)
	if c, ok := o.Writer.(io.Closer); ok {
		vm.closers = append(vm.closers, c)
	}
}

func (o recordOption) apply(vm *VM) {
	vm.streams.record = flushio.NewWriteFlusher(o.Writer)
	if c, ok := o.Writer.(io.Closer); ok {
		vm.closers = append(vm.closers, c)
	}
}

func (o diagnosticsOption) apply(vm *VM) {
	vm.rep.MinLevel = o.minLevel
	if o.emit != nil {
		vm.rep.Emit = o.emit
	} else {
		vm.rep.Emit = vm.inlineDiagnostic
	}
}

func (o undoLimitsOption) apply(vm *VM) {
	vm.undoSlots, vm.undoBytes = o.slots, o.bytes
}

func (enabled autoUndoOption) apply(vm *VM) { vm.autoUndo = bool(enabled) }

func (frames stackLimitOption) apply(vm *VM) { vm.stackLimit = int(frames) }

func (seed seedOption) apply(vm *VM) {
	vm.rand.fixed = true
	vm.rand.seed = int64(seed)
}

func (o screenOption) apply(vm *VM) { vm.rows, vm.cols = o.rows, o.cols }
