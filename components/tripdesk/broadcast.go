package tripdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

const subscriberBuffer = 16

// BroadcastHook pushes change events to open dashboard views. A view subscribes to the
// kinds it lists; session events reach every subscriber since they end every view.
type BroadcastHook struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	next    int
	dropped atomic.Uint64
}

type subscriber struct {
	kinds map[ResourceKind]struct{}
	ch    chan ChangeEvent
}

func (s *subscriber) wants(event ChangeEvent) bool {
	if len(s.kinds) == 0 || event.Kind == "" {
		return true
	}
	_, ok := s.kinds[event.Kind]
	return ok
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]*subscriber)}
}

// RecordChanged satisfies ChangeHook. Slow subscribers miss events rather than block writers.
func (h *BroadcastHook) RecordChanged(_ context.Context, event ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe returns a channel of change events for kinds (all kinds when none are given)
// and a cancel func.
func (h *BroadcastHook) Subscribe(kinds ...ResourceKind) (<-chan ChangeEvent, func()) {
	sub := &subscriber{ch: make(chan ChangeEvent, subscriberBuffer)}
	if len(kinds) > 0 {
		sub.kinds = make(map[ResourceKind]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events skipped because a subscriber's buffer was full.
func (h *BroadcastHook) Dropped() uint64 { return h.dropped.Load() }

// KindsFromQuery reads a comma separated kind list ("bookings,buses"). Unknown names are skipped.
func KindsFromQuery(value string) []ResourceKind {
	var kinds []ResourceKind
	for _, part := range strings.Split(value, ",") {
		if kind, ok := ParseKind(part); ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams the events of the kinds named in the
// "kinds" query parameter as JSON.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(KindsFromQuery(r.URL.Query().Get("kinds"))...)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams the same events as Server-Sent Events, named by event type.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(KindsFromQuery(r.URL.Query().Get("kinds"))...)
	defer cancel()
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + event.Type + "\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
