// Package term draws games on a terminal and drives them from text commands.
package term

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jaminalder/tictactoe-history/internal/app"
	"github.com/jaminalder/tictactoe-history/internal/domain"
)

// Renderer formats game views for a terminal.
type Renderer struct {
	out *termenv.Output
}

// NewRenderer detects the colour profile of w unless opts override it.
func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, opts...)}
}

func (r *Renderer) marker(m domain.Marker, win bool) string {
	s := r.out.String(m.String())
	switch m {
	case domain.X:
		s = s.Foreground(termenv.ANSIRed)
	case domain.O:
		s = s.Foreground(termenv.ANSIBlue)
	}
	if win {
		s = s.Bold().Underline()
	}
	return s.String()
}

// Board draws the grid. Empty cells show their index faintly.
func (r *Renderer) Board(v app.GameView) string {
	var b strings.Builder
	for row := range 3 {
		if row > 0 {
			b.WriteString("---+---+---\n")
		}
		for col := range 3 {
			i := row*3 + col
			if col > 0 {
				b.WriteString("|")
			}
			b.WriteString(" ")
			if m := v.Board[i]; m != domain.Empty {
				b.WriteString(r.marker(m, v.HasWin && slices.Contains(v.WinLine[:], i)))
			} else {
				b.WriteString(r.out.String(strconv.Itoa(i)).Faint().String())
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Status draws the status line.
func (r *Renderer) Status(st domain.Status) string {
	s := r.out.String(st.String())
	if st.Over() {
		s = s.Bold().Foreground(termenv.ANSIGreen)
	}
	return s.String()
}

// Moves draws the move list; the current entry is marked and not offered
// as a jump target.
func (r *Renderer) Moves(moves []domain.Move) string {
	var b strings.Builder
	for _, m := range moves {
		if m.Jumpable() {
			b.WriteString("  ")
			b.WriteString(r.out.String("[" + strconv.Itoa(m.Number) + "]").Faint().String())
			b.WriteString(" ")
			b.WriteString(m.Label())
		} else {
			b.WriteString("> ")
			b.WriteString(r.out.String(m.Label()).Bold().String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Render draws the full screen for v.
func (r *Renderer) Render(v app.GameView) string {
	var b strings.Builder
	b.WriteString(r.Status(v.Status))
	b.WriteString("\n\n")
	b.WriteString(r.Board(v))
	b.WriteString("\n")
	b.WriteString(r.Moves(v.Moves))
	return b.String()
}
