// Package session holds the bearer token of one tenant area and turns 401 responses into a
// single, observable invalidation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Area identifies a tenant area. Each area persists its token under its own key.
type Area string

const (
	AreaBusOperator Area = "bus_operator"
	AreaOffice      Area = "office"
)

// StorageKey returns the key the token is persisted under.
func (a Area) StorageKey() string {
	return string(a) + "_token"
}

// BasePath returns the route prefix of the area's pages.
func (a Area) BasePath() string {
	switch a {
	case AreaBusOperator:
		return "/bus-operator"
	case AreaOffice:
		return "/office"
	default:
		return ""
	}
}

// LoginPath returns where the user is sent after invalidation.
func (a Area) LoginPath() string {
	return a.BasePath() + "/login"
}

// ParseArea validates a configured area name.
func ParseArea(value string) (Area, error) {
	switch Area(value) {
	case AreaBusOperator, AreaOffice:
		return Area(value), nil
	}
	return "", fmt.Errorf("session: unknown area %q", value)
}

// EventType distinguishes session events.
type EventType string

const (
	EventSignedIn    EventType = "signed_in"
	EventSignedOut   EventType = "signed_out"
	EventInvalidated EventType = "invalidated"
)

// Event is published on every session transition.
type Event struct {
	Type       EventType `json:"type"`
	Area       Area      `json:"area"`
	Generation uint64    `json:"generation"`
	Reason     string    `json:"reason,omitempty"`
	Redirect   string    `json:"redirect,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TokenStore persists tokens by storage key.
type TokenStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, token string) error
	Delete(ctx context.Context, key string) error
}

// Options configures a Session.
type Options struct {
	Area   Area
	Store  TokenStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Session encapsulates the token of one area. Every request-issuing component reads the
// token through it, and every 401 goes through Invalidate.
type Session struct {
	area   Area
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	token      string
	generation uint64

	subMu    sync.RWMutex
	subs     map[int]chan Event
	handlers map[int]func(Event)
	next     int
}

// ErrNoToken is returned by Restore when nothing is persisted.
var ErrNoToken = errors.New("session: no token stored")

// New builds a session. Call Restore to load a persisted token.
func New(opts Options) *Session {
	if opts.Area == "" {
		opts.Area = AreaOffice
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		area:     opts.Area,
		store:    opts.Store,
		logger:   opts.Logger,
		now:      opts.Now,
		subs:     make(map[int]chan Event),
		handlers: make(map[int]func(Event)),
	}
}

// Area returns the tenant area.
func (s *Session) Area() Area { return s.area }

// Restore loads the persisted token for the area.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Load(ctx, s.area.StorageKey())
	if err != nil {
		return fmt.Errorf("session: load token: %w", err)
	}
	if token == "" {
		return ErrNoToken
	}
	s.mu.Lock()
	s.token = token
	s.generation++
	s.mu.Unlock()
	return nil
}

// Token returns the current token (possibly empty) and the generation it belongs to.
// Requests pass the generation back to Invalidate when they receive a 401.
func (s *Session) Token() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.generation
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	token, _ := s.Token()
	return token != ""
}

// SetToken stores a new token and starts a new generation.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session: token is empty")
	}
	if err := s.store.Save(ctx, s.area.StorageKey(), token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.publish(Event{Type: EventSignedIn, Area: s.area, Generation: gen, OccurredAt: s.now()})
	return nil
}

// Invalidate clears the token if it still belongs to generation. Only the first caller for
// a generation wins; later callers (other concurrent 401s) get false and cause no side
// effects. Exactly one Invalidated event is published per generation.
func (s *Session) Invalidate(ctx context.Context, generation uint64, reason string) bool {
	s.mu.Lock()
	if s.token == "" || s.generation != generation {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.generation++
	gen := s.generation
	if err := s.store.Delete(ctx, s.area.StorageKey()); err != nil {
		s.logger.Warn("session: delete token failed", "area", s.area, "error", err)
	}
	s.mu.Unlock()

	s.logger.Info("session: invalidated", "area", s.area, "reason", reason)
	s.publish(Event{
		Type:       EventInvalidated,
		Area:       s.area,
		Generation: gen,
		Reason:     reason,
		Redirect:   s.area.LoginPath(),
		OccurredAt: s.now(),
	})
	return true
}

// Logout clears the token on user request.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return nil
	}
	s.token = ""
	s.generation++
	gen := s.generation
	err := s.store.Delete(ctx, s.area.StorageKey())
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	s.publish(Event{Type: EventSignedOut, Area: s.area, Generation: gen, Redirect: s.area.LoginPath(), OccurredAt: s.now()})
	return nil
}

// Subscribe returns a buffered channel of events and a cancel func.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.next
	s.next++
	ch := make(chan Event, 8)
	s.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// OnInvalidated registers fn to run synchronously for every invalidation, e.g. to perform
// the redirect. It returns an unregister func.
func (s *Session) OnInvalidated(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.next
	s.next++
	s.handlers[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.handlers, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(event Event) {
	s.subMu.RLock()
	handlers := make([]func(Event), 0, len(s.handlers))
	if event.Type == EventInvalidated {
		for _, fn := range s.handlers {
			handlers = append(handlers, fn)
		}
	}
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
	s.subMu.RUnlock()
	for _, fn := range handlers {
		fn(event)
	}
}
