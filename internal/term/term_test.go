package term

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/app"
)

func newPlain(w *bytes.Buffer) *Renderer {
	return NewRenderer(w, termenv.WithProfile(termenv.Ascii))
}

func TestRenderFreshGame(t *testing.T) {
	svc := app.NewService(zap.NewNop())
	v, err := svc.CreateGame()
	require.NoError(t, err)

	out := newPlain(&bytes.Buffer{}).Render(*v)

	want := "Next player: X\n\n" +
		" 0 | 1 | 2 \n---+---+---\n" +
		" 3 | 4 | 5 \n---+---+---\n" +
		" 6 | 7 | 8 \n\n" +
		"  [0] Go to game start\n"
	assert.Equal(t, want, out)
}

func TestRenderMovesMarksCurrent(t *testing.T) {
	svc := app.NewService(zap.NewNop())
	v, _ := svc.CreateGame()
	_, err := svc.Play(v.ID, 4)
	require.NoError(t, err)
	v, err = svc.ToggleOrder(v.ID)
	require.NoError(t, err)

	out := newPlain(&bytes.Buffer{}).Render(*v)

	assert.Contains(t, out, " 3 | X | 5 ")
	assert.Contains(t, out, "> You are at move # 1\n  [0] Go to game start\n")
}

func TestRenderUsesColourWhenSupported(t *testing.T) {
	svc := app.NewService(zap.NewNop())
	v, _ := svc.CreateGame()
	v, _ = svc.Play(v.ID, 0)

	r := NewRenderer(&bytes.Buffer{}, termenv.WithProfile(termenv.ANSI))

	assert.Contains(t, r.Board(*v), "\x1b[")
}

func runLoop(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	l := NewLoop(app.NewService(zap.NewNop()), newPlain(&out), &out, zap.NewNop())
	require.NoError(t, l.Run(context.Background(), strings.NewReader(input)))
	return out.String()
}

func TestLoopPlaysToWin(t *testing.T) {
	out := runLoop(t, "0\nplay 1\n4\np 2\n8\n5\nquit\n")

	assert.Contains(t, out, "Winner: X")
	assert.Contains(t, out, "game is over")
}

func TestLoopJumpAndBranch(t *testing.T) {
	out := runLoop(t, "0\n1\n2\njump 1\n5\n")

	last := out[strings.LastIndex(out, "Next player:"):]
	assert.Contains(t, last, "Next player: X")
	assert.Contains(t, last, " X | 1 | 2 ")
	assert.Contains(t, last, " 3 | 4 | O ")
	assert.NotContains(t, last, "move #3")
}

func TestLoopRejections(t *testing.T) {
	out := runLoop(t, "4\n4\n12\njump 9\nplay\nplay x\nfly\n")

	assert.Contains(t, out, "cell is occupied")
	assert.Contains(t, out, "no such cell")
	assert.Contains(t, out, "no move #9")
	assert.Contains(t, out, "expected one number")
	assert.Contains(t, out, `not a number: "x"`)
	assert.Contains(t, out, `unknown command "fly"`)
}

func TestLoopNewGameAndHelp(t *testing.T) {
	out := runLoop(t, "4\nnew\nhelp\n")

	last := out[strings.LastIndex(out, "Next player:"):]
	assert.Contains(t, last, "Next player: X")
	assert.Contains(t, last, " 3 | 4 | 5 ")
	assert.Contains(t, out, help)
}

func TestLoopStopsOnCancelledContext(t *testing.T) {
	var out bytes.Buffer
	l := NewLoop(app.NewService(zap.NewNop()), newPlain(&out), &out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Run(ctx, strings.NewReader("4\n"))

	require.ErrorIs(t, err, context.Canceled)
}

func TestLoopCancelWhileWaitingForInput(t *testing.T) {
	var out syncBuffer
	svc := app.NewService(zap.NewNop())
	l := NewLoop(svc, NewRenderer(&out, termenv.WithProfile(termenv.Ascii)), &out, nil)
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, pr) }()

	// one command goes through, then the loop sits waiting for input
	_, err := io.WriteString(pw, "4\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Next player: O")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancel")
	}
}

func TestLoopDeletesReplacedGames(t *testing.T) {
	// Given: a service with room for two games, one of them someone else's
	svc := app.NewService(zap.NewNop(), app.WithMaxGames(2))
	other, err := svc.CreateGame()
	require.NoError(t, err)
	var out bytes.Buffer
	l := NewLoop(svc, newPlain(&out), &out, nil)

	// When: the loop starts over twice
	require.NoError(t, l.Run(context.Background(), strings.NewReader("new\nnew\n4\n")))

	// Then: the other game was never evicted and the loop left nothing behind
	_, ok := svc.Get(other.ID)
	assert.True(t, ok)
	_, ok = svc.Get(l.id)
	assert.False(t, ok)
}

// syncBuffer is a bytes.Buffer safe to read while the loop writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
