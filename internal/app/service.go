package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/domain"
)

// Errors exposed by the service layer.
var ErrNotFound = errors.New("game not found")

// GameView is a consistent copy of one game taken under the service lock.
type GameView struct {
	ID       string
	Board    domain.Snapshot
	Status   domain.Status
	Pointer  int
	Length   int
	Moves    []domain.Move
	Reversed bool
	WinLine  [3]int
	HasWin   bool
	Created  time.Time
	Updated  time.Time
}

// game is the in-memory state tracked per game.
type game struct {
	id      string
	session *domain.Session
	created time.Time
	updated time.Time
}

func (g *game) view() GameView {
	v := GameView{
		ID:       g.id,
		Board:    g.session.Current(),
		Status:   g.session.Status(),
		Pointer:  g.session.Pointer(),
		Length:   g.session.Len(),
		Moves:    slices.Collect(g.session.Moves()),
		Reversed: g.session.Reversed(),
		Created:  g.created,
		Updated:  g.updated,
	}
	v.WinLine, v.HasWin = domain.WinningLine(v.Board)
	return v
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Renderer turns a view into the payload pushed to subscribers.
type Renderer func(GameView) []byte

func noRender(GameView) []byte { return nil }

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the broadcast renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.render = r
		}
	}
}

// WithMaxGames caps the number of live games; the least recently updated
// game is evicted to make room. Zero means no cap.
func WithMaxGames(n int) Option {
	return func(s *Service) { s.maxGames = n }
}

// Service owns every game session and serializes all access to them.
type Service struct {
	mu       sync.Mutex
	games    map[string]*game
	subs     map[string]map[*subscriber]struct{}
	render   Renderer
	maxGames int
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates an empty service.
func NewService(log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		games:  make(map[string]*game),
		subs:   make(map[string]map[*subscriber]struct{}),
		render: noRender,
		log:    log.Named("app"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = noRender
	}
	s.render = r
}

// CreateGame starts a new session at the empty board. When the cap is
// reached the least recently updated game is evicted first.
func (s *Service) CreateGame() (*GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxGames > 0 && len(s.games) >= s.maxGames {
		s.evictOldestLocked()
	}
	now := s.now()
	g := &game{id: uuid.NewString(), session: domain.NewSession(), created: now, updated: now}
	s.games[g.id] = g
	s.log.Info("game created", zap.String("game", g.id), zap.Int("games", len(s.games)))
	v := g.view()
	return &v, nil
}

func (s *Service) evictOldestLocked() {
	var oldest *game
	for _, g := range s.games {
		if oldest == nil || g.updated.Before(oldest.updated) {
			oldest = g
		}
	}
	if oldest == nil {
		return
	}
	s.removeLocked(oldest.id)
	s.log.Info("game evicted", zap.String("game", oldest.id), zap.Time("updated", oldest.updated))
}

// removeLocked drops a game and closes its subscribers.
func (s *Service) removeLocked(id string) {
	delete(s.games, id)
	for sub := range s.subs[id] {
		sub.close()
	}
	delete(s.subs, id)
}

// Delete removes a game. Unknown ids are ignored.
func (s *Service) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; ok {
		s.removeLocked(id)
	}
}

// Get returns a view of the game if present.
func (s *Service) Get(id string) (*GameView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, false
	}
	v := g.view()
	return &v, true
}

// Play places the next marker at cell. A rejected move returns the
// unchanged view along with the error.
func (s *Service) Play(id string, cell int) (*GameView, error) {
	return s.apply(id, "play", func(sess *domain.Session) error {
		_, _, err := sess.Play(cell)
		return err
	})
}

// JumpTo moves the game's pointer to move.
func (s *Service) JumpTo(id string, move int) (*GameView, error) {
	return s.apply(id, "jump", func(sess *domain.Session) error {
		return sess.JumpTo(move)
	})
}

// ToggleOrder flips the game's move list order.
func (s *Service) ToggleOrder(id string) (*GameView, error) {
	return s.apply(id, "reverse", func(sess *domain.Session) error {
		sess.ToggleOrder()
		return nil
	})
}

// apply runs op and, on success, broadcasts the new view, all under the lock.
func (s *Service) apply(id, name string, op func(*domain.Session) error) (*GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := op(g.session); err != nil {
		v := g.view()
		s.log.Debug("operation rejected", zap.String("game", id), zap.String("op", name), zap.Error(err))
		return &v, err
	}
	g.updated = s.now()
	v := g.view()
	s.broadcastLocked(id, s.render(v))
	return &v, nil
}

// broadcastLocked fans out payload without blocking. Subscribers whose
// buffer is full are dropped. Channels are only closed with s.mu held, so
// no send here can hit a closed channel.
func (s *Service) broadcastLocked(id string, payload []byte) {
	set := s.subs[id]
	dropped := 0
	for sub := range set {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			delete(set, sub)
			dropped++
		}
	}
	if len(set) == 0 {
		delete(s.subs, id)
	}
	if dropped > 0 {
		s.log.Warn("dropped slow subscribers", zap.String("game", id), zap.Int("count", dropped))
	}
}

// Subscribe registers a subscriber for a game. The channel is closed when
// ctx ends, when unsubscribe is called, when the subscriber falls behind or
// when the game is removed.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, func() {}, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	done := make(chan struct{})
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			close(done)
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			sub.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-done:
		}
	}()
	return sub.ch, unsub, nil
}
