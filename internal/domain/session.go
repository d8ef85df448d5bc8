package domain

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
)

// Errors returned by Session operations. Play failures wrap ErrRejected
// together with the precise cause.
var (
	ErrRejected     = errors.New("move rejected")
	ErrInvalidIndex = errors.New("invalid move index")
)

// Session holds one game's history of snapshots, the pointer into it and
// the move list display order. It is not safe for concurrent use.
type Session struct {
	history  []Snapshot
	current  int
	reversed bool
}

// NewSession returns a session at the empty board with X to move.
func NewSession() *Session {
	return &Session{history: []Snapshot{{}}}
}

// Current returns the snapshot at the pointer.
func (s *Session) Current() Snapshot { return s.history[s.current] }

// Pointer returns the index of the current snapshot.
func (s *Session) Pointer() int { return s.current }

// Len returns the number of snapshots in history, including the start.
func (s *Session) Len() int { return len(s.history) }

// Reversed reports whether the move list is shown newest first.
func (s *Session) Reversed() bool { return s.reversed }

// At returns the snapshot after move i.
func (s *Session) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(s.history) {
		return Snapshot{}, false
	}
	return s.history[i], true
}

// Status evaluates the current snapshot.
func (s *Session) Status() Status {
	return StatusOf(s.Current(), NextMarker(s.current))
}

// Play places the next marker at cell. Moving from an earlier pointer
// discards every later snapshot before appending the new one.
// A rejected move leaves the session untouched.
func (s *Session) Play(cell int) (Snapshot, Status, error) {
	cur := s.Current()
	if cell < 0 || cell >= Cells {
		return cur, s.Status(), fmt.Errorf("%w: cell %d: %w", ErrRejected, cell, ErrOutOfBounds)
	}
	if st := s.Status(); st.Over() {
		return cur, st, fmt.Errorf("%w: %w", ErrRejected, ErrGameOver)
	}
	if cur[cell] != Empty {
		return cur, s.Status(), fmt.Errorf("%w: cell %d: %w", ErrRejected, cell, ErrOccupied)
	}

	next := cur.With(cell, NextMarker(s.current))
	s.history = append(s.history[:s.current+1:s.current+1], next)
	s.current = len(s.history) - 1
	return next, s.Status(), nil
}

// JumpTo moves the pointer to move. History is left as is so a later Play
// can branch from there.
func (s *Session) JumpTo(move int) error {
	if move < 0 || move >= len(s.history) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidIndex, move, len(s.history))
	}
	s.current = move
	return nil
}

// ToggleOrder flips the move list display order.
func (s *Session) ToggleOrder() { s.reversed = !s.reversed }

// Move describes one navigable history entry.
type Move struct {
	Number  int
	Current bool
}

// Jumpable reports whether the entry should be offered as a jump target.
// The start is always offered, any other current move is not.
func (m Move) Jumpable() bool { return !m.Current || m.Number == 0 }

// Label is the text shown for the entry in a move list.
func (m Move) Label() string {
	switch {
	case m.Number == 0:
		return "Go to game start"
	case m.Current:
		return "You are at move # " + strconv.Itoa(m.Number)
	default:
		return "Go to move #" + strconv.Itoa(m.Number)
	}
}

// Moves yields one descriptor per history entry, ascending or, when the
// order is toggled, descending. It is computed fresh on every call.
func (s *Session) Moves() iter.Seq[Move] {
	n, cur, rev := len(s.history), s.current, s.reversed
	return func(yield func(Move) bool) {
		for i := range n {
			num := i
			if rev {
				num = n - 1 - i
			}
			if !yield(Move{Number: num, Current: num == cur}) {
				return
			}
		}
	}
}
