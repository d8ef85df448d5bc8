package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/app"
	"github.com/jaminalder/tictactoe-history/internal/domain"
)

const help = "commands: <cell> | play <cell> | jump <move> | reverse | new | help | quit"

// Loop reads commands from in and redraws the game on out after each one.
type Loop struct {
	svc *app.Service
	r   *Renderer
	out io.Writer
	log *zap.Logger
	id  string
}

// NewLoop binds a loop to svc, writing to out through r.
func NewLoop(svc *app.Service, r *Renderer, out io.Writer, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{svc: svc, r: r, out: out, log: log.Named("term")}
}

// Run plays until in is exhausted, "quit" is read or ctx is done. Lines
// are read on a separate goroutine so cancellation does not wait for input.
func (l *Loop) Run(ctx context.Context, in io.Reader) error {
	if err := l.newGame(); err != nil {
		return err
	}
	defer func() { l.svc.Delete(l.id) }()

	lines, readErr := readLines(ctx, in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(l.out, "> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return <-readErr
			}
			quit, err := l.exec(strings.Fields(line))
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// readLines feeds lines from in until it ends or ctx is done. The error
// channel yields the scanner's error once lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

// newGame drops the loop's previous game first so it never counts
// against the service cap.
func (l *Loop) newGame() error {
	if l.id != "" {
		l.svc.Delete(l.id)
	}
	v, err := l.svc.CreateGame()
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	l.id = v.ID
	l.draw(v, "")
	return nil
}

func (l *Loop) draw(v *app.GameView, msg string) {
	fmt.Fprint(l.out, l.r.Render(*v))
	if msg != "" {
		fmt.Fprintln(l.out, msg)
	}
}

// exec runs one command. Only service failures other than rejections
// are returned.
func (l *Loop) exec(args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]
	if _, err := strconv.Atoi(cmd); err == nil {
		cmd, rest = "play", args
	}

	var (
		v   *app.GameView
		err error
		msg string
	)
	switch cmd {
	case "quit", "q", "exit":
		return true, nil
	case "help", "h", "?":
		fmt.Fprintln(l.out, help)
		return false, nil
	case "new", "n":
		return false, l.newGame()
	case "reverse", "r":
		v, err = l.svc.ToggleOrder(l.id)
	case "play", "p", "jump", "j":
		n, convErr := argInt(rest)
		if convErr != nil {
			fmt.Fprintln(l.out, convErr)
			return false, nil
		}
		if cmd == "play" || cmd == "p" {
			v, err = l.svc.Play(l.id, n)
			msg = playMessage(err)
		} else {
			v, err = l.svc.JumpTo(l.id, n)
			if errors.Is(err, domain.ErrInvalidIndex) {
				msg = fmt.Sprintf("no move #%d", n)
			}
		}
	default:
		fmt.Fprintf(l.out, "unknown command %q\n%s\n", cmd, help)
		return false, nil
	}

	if errors.Is(err, app.ErrNotFound) || v == nil {
		return false, fmt.Errorf("game %s: %w", l.id, err)
	}
	if err != nil {
		l.log.Debug("command rejected", zap.String("cmd", cmd), zap.Error(err))
	}
	l.draw(v, msg)
	return false, nil
}

func argInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[0])
	}
	return n, nil
}

func playMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrOccupied):
		return "cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "no such cell"
	case errors.Is(err, domain.ErrGameOver):
		return "game is over"
	default:
		return "invalid move"
	}
}
