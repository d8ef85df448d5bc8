package domain

import "errors"

// Marker represents what occupies a board cell.
type Marker uint8

const (
	Empty Marker = iota
	X
	O
)

func (m Marker) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Cells is the number of cells on the 3x3 board.
const Cells = 9

// Snapshot is one board state stored row-major (row*3+col).
// It is an array, so assignment copies it.
type Snapshot [Cells]Marker

// With returns a copy of s with cell set to m.
func (s Snapshot) With(cell int, m Marker) Snapshot {
	s[cell] = m
	return s
}

// Errors returned by board and session operations.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrGameOver    = errors.New("game over")
)

// Lines lists every winning triple in scan order: rows, columns, diagonals.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// WinningLine returns the first line in scan order held entirely by one marker.
func WinningLine(s Snapshot) ([3]int, bool) {
	for _, ln := range Lines {
		a := s[ln[0]]
		if a != Empty && a == s[ln[1]] && a == s[ln[2]] {
			return ln, true
		}
	}
	return [3]int{}, false
}

// Winner returns the marker owning the first complete line, or Empty.
func Winner(s Snapshot) Marker {
	ln, ok := WinningLine(s)
	if !ok {
		return Empty
	}
	return s[ln[0]]
}

// IsFull reports whether no empty cell remains.
func IsFull(s Snapshot) bool {
	for _, c := range s {
		if c == Empty {
			return false
		}
	}
	return true
}

// NextMarker returns whose turn it is at the given history index.
// X always moves from even indices.
func NextMarker(pointer int) Marker {
	if pointer%2 == 0 {
		return X
	}
	return O
}

// StatusKind classifies a position.
type StatusKind uint8

const (
	Ongoing StatusKind = iota
	Won
	Draw
)

// Status is the outcome of a position. Marker is the side to move while
// Ongoing, the winner when Won and Empty on a Draw.
type Status struct {
	Kind   StatusKind
	Marker Marker
}

// Over reports whether the position is terminal.
func (s Status) Over() bool { return s.Kind != Ongoing }

func (s Status) String() string {
	switch s.Kind {
	case Won:
		return "Winner: " + s.Marker.String()
	case Draw:
		return "Cats Game"
	default:
		return "Next player: " + s.Marker.String()
	}
}

// StatusOf evaluates s. A win takes priority over a full board.
func StatusOf(s Snapshot, next Marker) Status {
	if w := Winner(s); w != Empty {
		return Status{Kind: Won, Marker: w}
	}
	if IsFull(s) {
		return Status{Kind: Draw}
	}
	return Status{Kind: Ongoing, Marker: next}
}
