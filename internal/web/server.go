package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/app"
)

const defaultHeartbeat = 15 * time.Second

// Option configures the HTTP handler.
type Option func(*handlers)

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer wires routes and returns an http.Handler. It also installs the
// board fragment as the service's broadcast renderer.
func NewServer(s *app.Service, log *zap.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{svc: s, tpl: loadTemplates(), log: log.Named("web"), heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	s.SetRenderer(func(v app.GameView) []byte { return h.renderBoard(v, "") })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/healthz", h.healthz)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/jump", h.jump)
		r.Post("/reverse", h.reverse)
		r.Get("/events", h.events)
	})
	return r
}

// requestLogger logs one line per request once the handler returns.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
