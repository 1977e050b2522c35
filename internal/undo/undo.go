// Package undo keeps a turn-granular history of machine states as deltas
// against a moving baseline, rather than full memory images per turn.
package undo

import (
	"errors"

	"github.com/jcorbin/zvm/internal/quetzal"
)

// Direction selects the slot a Restore returns to.
type Direction int

const (
	// Current returns to the most recently saved (or restored) slot.
	Current Direction = iota
	// Back undoes one slot.
	Back
	// Forward redoes one slot.
	Forward
)

func (dir Direction) String() string {
	switch dir {
	case Current:
		return "current"
	case Back:
		return "undo"
	case Forward:
		return "redo"
	}
	return "invalid"
}

// Errors returned by Restore.
var (
	ErrNoHistory = errors.New("no saved state")
	ErrNoUndo    = errors.New("nothing to undo")
	ErrNoRedo    = errors.New("nothing to redo")
)

// State is one restorable machine state.
type State struct {
	Memory []byte // dynamic memory
	Stack  []byte // serialized frame stack
	PC     uint32 // resume address
	OldPC  uint32 // start of the saving instruction
	Mid    bool   // saved by an instruction that must report success on resume
}

type slot struct {
	delta []byte
	stack []byte
	pc    uint32
	oldPC uint32
	mid   bool
	auto  bool
}

func (s slot) size() int { return len(s.delta) + len(s.stack) }

// Manager holds the slot history. The baseline always equals the memory of
// the slot at the cursor, and each slot's delta leads from the previous
// slot's memory to its own.
type Manager struct {
	// MaxSlots bounds the number of slots kept; 0 is unbounded.
	MaxSlots int
	// MaxBytes bounds the bytes held by deltas and stacks; 0 is unbounded.
	MaxBytes int

	slots    []slot
	cursor   int
	baseline []byte
	bytes    int
	sawReal  bool
}

// New creates a Manager whose initial baseline is a copy of memory.
func New(memory []byte) *Manager {
	var m Manager
	m.Reset(memory)
	return &m
}

// Reset discards all history, rebasing on memory.
func (m *Manager) Reset(memory []byte) {
	m.slots = nil
	m.cursor = -1
	m.baseline = append(m.baseline[:0], memory...)
	m.bytes = 0
	m.sawReal = false
}

// Len returns the number of slots held.
func (m *Manager) Len() int { return len(m.slots) }

// Cursor returns the index of the current slot, or -1.
func (m *Manager) Cursor() int { return m.cursor }

// Bytes returns the storage held by slots.
func (m *Manager) Bytes() int { return m.bytes }

// Checkpointed reports whether a non-auto save has been made since the
// last Reset.
func (m *Manager) Checkpointed() bool { return m.sawReal }

// Save records st as the newest slot, dropping any redo slots past the
// cursor. Auto saves are those taken by the interpreter before input; one
// taken before the story's first real save is replaced by that save.
func (m *Manager) Save(st State, auto bool) {
	for len(m.slots) > m.cursor+1 {
		m.bytes -= m.slots[len(m.slots)-1].size()
		m.slots = m.slots[:len(m.slots)-1]
	}
	if !auto && !m.sawReal && m.cursor >= 0 && m.slots[m.cursor].auto {
		m.dropCurrent()
	}
	if !auto {
		m.sawReal = true
	}

	s := slot{
		delta: quetzal.Diff(m.baseline, st.Memory, quetzal.Base128),
		stack: append([]byte(nil), st.Stack...),
		pc:    st.PC,
		oldPC: st.OldPC,
		mid:   st.Mid,
		auto:  auto,
	}
	m.slots = append(m.slots, s)
	m.bytes += s.size()
	m.cursor = len(m.slots) - 1
	copy(m.baseline, st.Memory)

	for m.overLimit() && m.Reclaim() {
	}
}

func (m *Manager) overLimit() bool {
	return (m.MaxSlots > 0 && len(m.slots) > m.MaxSlots) ||
		(m.MaxBytes > 0 && m.bytes > m.MaxBytes)
}

// dropCurrent removes the newest slot, which must be the cursor, rolling
// the baseline back to its predecessor.
func (m *Manager) dropCurrent() {
	s := m.slots[m.cursor]
	if prev, err := quetzal.Undiff(m.baseline, s.delta, quetzal.Base128); err == nil {
		m.baseline = prev
	}
	m.bytes -= s.size()
	m.slots = m.slots[:m.cursor]
	m.cursor--
}

// Restore reconstructs the state in direction dir and passes it to apply.
// Only if apply succeeds does the cursor move; otherwise the history is
// left as it was.
func (m *Manager) Restore(dir Direction, apply func(State) error) error {
	if m.cursor < 0 {
		return ErrNoHistory
	}
	target, memory := m.cursor, m.baseline
	switch dir {
	case Back:
		if m.cursor == 0 {
			return ErrNoUndo
		}
		target--
		prev, err := quetzal.Undiff(m.baseline, m.slots[m.cursor].delta, quetzal.Base128)
		if err != nil {
			return err
		}
		memory = prev
	case Forward:
		if m.cursor+1 >= len(m.slots) {
			return ErrNoRedo
		}
		target++
		next, err := quetzal.Undiff(m.baseline, m.slots[target].delta, quetzal.Base128)
		if err != nil {
			return err
		}
		memory = next
	}

	s := m.slots[target]
	if err := apply(State{
		Memory: append([]byte(nil), memory...),
		Stack:  s.stack,
		PC:     s.pc,
		OldPC:  s.oldPC,
		Mid:    s.mid,
	}); err != nil {
		return err
	}
	m.cursor = target
	if dir != Current {
		m.baseline = memory
	}
	return nil
}

// Reclaim frees one slot to relieve memory pressure: the oldest one unless
// it is current, in which case the newest redo slot goes. The last slot is
// never freed. Reports whether anything was freed.
func (m *Manager) Reclaim() bool {
	if len(m.slots) <= 1 {
		return false
	}
	if m.cursor == 0 {
		last := len(m.slots) - 1
		m.bytes -= m.slots[last].size()
		m.slots = m.slots[:last]
		return true
	}
	m.bytes -= m.slots[0].size()
	m.slots = append(m.slots[:0], m.slots[1:]...)
	m.cursor--
	return true
}
