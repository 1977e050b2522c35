// Package diag implements the interpreter's fault taxonomy and the reporting
// paths used to surface recoverable faults while execution continues.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies the subsystem a fault originated in.
type Category uint8

// Fault categories.
const (
	Instruction Category = iota
	Object
	Stack
	Memory
	Math
	String
	Output
	Sound
	System
	Version
	Corrupt
	Save
	Debug
)

var categoryNames = [...]string{
	Instruction: "Instruction",
	Object:      "Object",
	Stack:       "Stack",
	Memory:      "Memory",
	Math:        "Math",
	String:      "String",
	Output:      "Output",
	Sound:       "Sound",
	System:      "System",
	Version:     "Version",
	Corrupt:     "Corrupt",
	Save:        "Save",
	Debug:       "Debug",
}

func (cat Category) String() string {
	if int(cat) < len(categoryNames) {
		return categoryNames[cat]
	}
	return fmt.Sprintf("Category(%d)", uint8(cat))
}

// Level is the severity of a report.
type Level uint8

// Severity levels, in increasing order.
const (
	LevelWarn Level = iota
	LevelPort
	LevelError
	LevelFatal
	numLevels
)

var levelNames = [...]string{
	LevelWarn:  "Warning",
	LevelPort:  "Portability",
	LevelError: "Error",
	LevelFatal: "Fatal",
}

func (lvl Level) String() string {
	if lvl < numLevels {
		return levelNames[lvl]
	}
	return fmt.Sprintf("Level(%d)", uint8(lvl))
}

// ParseLevel parses a level name, such as "warn" or "Error", in any case.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "warn", "warning":
		return LevelWarn, nil
	case "port", "portability":
		return LevelPort, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return 0, fmt.Errorf("unknown diagnostic level %q", name)
}

// Report describes a single fault; it doubles as an error value.
type Report struct {
	Level    Level
	Category Category
	Message  string
	Value    uint32
	PC       uint32
}

func (rep Report) Error() string {
	if rep.Value != 0 {
		return fmt.Sprintf("%v %v: %v (%v)", rep.Category, rep.Level, rep.Message, rep.Value)
	}
	return fmt.Sprintf("%v %v: %v", rep.Category, rep.Level, rep.Message)
}

// Inline renders the report the way it is interleaved with story output.
func (rep Report) Inline() string {
	return fmt.Sprintf("[** %v: %v: %v (%d) @%#x **]", rep.Level, rep.Category, rep.Message, rep.Value, rep.PC)
}

// Errorf creates an error-level report for use as a Go error.
func Errorf(cat Category, format string, args ...interface{}) error {
	return Report{
		Level:    LevelError,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
	}
}

// CategoryOf returns the category of the first Report wrapped by err.
func CategoryOf(err error) (Category, bool) {
	var rep Report
	if errors.As(err, &rep) {
		return rep.Category, true
	}
	return 0, false
}

// Reporter routes reports to an Emit function. Each level has its own latch
// so that a fault raised while that path is already reporting is dropped
// rather than recursing. A reentrant fatal report halts immediately.
type Reporter struct {
	// Emit receives every report at or above MinLevel; nil discards.
	Emit func(Report)

	// PC supplies the program counter recorded in reports.
	PC func() uint32

	// Halt is called after a fatal report has been emitted; it must not
	// return. When nil, the report is panicked.
	Halt func(Report)

	// MinLevel filters emitted reports; counts are kept regardless.
	MinLevel Level

	counts  [numLevels]int
	latched [numLevels]bool
}

// Count returns how many reports of the given level have been made.
func (r *Reporter) Count(lvl Level) int {
	if r == nil || lvl >= numLevels {
		return 0
	}
	return r.counts[lvl]
}

// Warn reports a suspicious but probably harmless condition.
func (r *Reporter) Warn(cat Category, mess string, val uint32) {
	r.report(LevelWarn, cat, mess, val)
}

// Port reports behavior that other interpreters may not support.
func (r *Reporter) Port(cat Category, mess string, val uint32) {
	r.report(LevelPort, cat, mess, val)
}

// Error reports a fault the caller recovers from locally.
func (r *Reporter) Error(cat Category, mess string, val uint32) {
	r.report(LevelError, cat, mess, val)
}

// Fatal reports an unrecoverable fault; it does not return.
func (r *Reporter) Fatal(cat Category, mess string, val uint32) {
	r.report(LevelFatal, cat, mess, val)
	rep := r.makeReport(LevelFatal, cat, mess, val)
	if r != nil && r.Halt != nil {
		r.Halt(rep)
	}
	panic(rep)
}

func (r *Reporter) makeReport(lvl Level, cat Category, mess string, val uint32) Report {
	rep := Report{Level: lvl, Category: cat, Message: mess, Value: val}
	if r != nil && r.PC != nil {
		rep.PC = r.PC()
	}
	return rep
}

func (r *Reporter) report(lvl Level, cat Category, mess string, val uint32) {
	if r == nil {
		return
	}
	r.counts[lvl]++
	if r.latched[lvl] {
		if lvl == LevelFatal {
			panic(Report{Level: lvl, Category: System, Message: "fatal error while reporting fatal error"})
		}
		return
	}
	if lvl < r.MinLevel || r.Emit == nil {
		return
	}
	r.latched[lvl] = true
	defer func() { r.latched[lvl] = false }()
	r.Emit(r.makeReport(lvl, cat, mess, val))
}
