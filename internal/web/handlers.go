package web

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/app"
	"github.com/jaminalder/tictactoe-history/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *zap.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(v app.GameView, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(v, errMsg))
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.index, "base", nil))
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.game, "base", newBoardData(*gs, "")))
}

// cellFromForm accepts either a cell index or a row/column pair.
func cellFromForm(r *http.Request) (int, error) {
	if v := r.Form.Get("cell"); v != "" {
		return strconv.Atoi(v)
	}
	row, err := strconv.Atoi(r.Form.Get("r"))
	if err != nil {
		return 0, err
	}
	col, err := strconv.Atoi(r.Form.Get("c"))
	if err != nil {
		return 0, err
	}
	if row < 0 || row > 2 || col < 0 || col > 2 {
		return 0, domain.ErrOutOfBounds
	}
	return row*3 + col, nil
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	cell, err := cellFromForm(r)
	if err != nil {
		h.respond(w, r, id, nil, "Invalid move")
		return
	}
	gs, err := h.svc.Play(id, cell)
	h.respond(w, r, id, gs, playMessage(err))
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	move, err := strconv.Atoi(r.Form.Get("move"))
	if err != nil {
		h.respond(w, r, id, nil, "Invalid move number")
		return
	}
	gs, err := h.svc.JumpTo(id, move)
	var errMsg string
	if err != nil {
		errMsg = "Invalid move number"
	}
	h.respond(w, r, id, gs, errMsg)
}

func (h *handlers) reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, _ := h.svc.ToggleOrder(id)
	h.respond(w, r, id, gs, "")
}

func playMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

// respond writes the board fragment. Rejections still answer 200 with the
// unchanged board and a message; only unknown games are 404.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id string, gs *app.GameView, errMsg string) {
	if gs == nil {
		g, ok := h.svc.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		gs = g
	}
	writeHTML(w, http.StatusOK, h.renderBoard(*gs, errMsg))
}

// writeEvent frames payload as one SSE event, prefixing every line.
func writeEvent(w io.Writer, event string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	sc := bufio.NewScanner(bytes.NewReader(payload))
	sc.Buffer(make([]byte, 0, 4096), len(payload)+1)
	for sc.Scan() {
		_, _ = fmt.Fprintf(w, "data: %s\n", sc.Bytes())
	}
	_, _ = io.WriteString(w, "\n")
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	// non-EventSource requests only get the headers
	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				h.log.Debug("subscriber closed", zap.String("game", id))
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}
