// Package activity describes audit events emitted when back-office records change and
// the hooks that deliver them to sinks.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultChannel tags events that do not set one.
const DefaultChannel = "tripdesk"

// Event is a normalized activity entry.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Hook receives activity events.
type Hook interface {
	Notify(ctx context.Context, evt Event) error
}

// HookFunc adapts a function into a Hook.
type HookFunc func(ctx context.Context, evt Event) error

// Notify implements Hook.
func (f HookFunc) Notify(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Hooks fans events out. Invalid events (no verb or object) are skipped.
type Hooks []Hook

// Notify normalizes evt and delivers it to every hook, joining errors.
func (hooks Hooks) Notify(ctx context.Context, evt Event) error {
	evt = NormalizeEvent(evt)
	if !valid(evt) {
		return nil
	}
	var errs []error
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if err := h.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers and clones mutable fields so hooks cannot alias the caller's data.
func NormalizeEvent(evt Event) Event {
	evt.Verb = strings.TrimSpace(evt.Verb)
	evt.ActorID = strings.TrimSpace(evt.ActorID)
	evt.UserID = strings.TrimSpace(evt.UserID)
	evt.TenantID = strings.TrimSpace(evt.TenantID)
	evt.ObjectType = strings.TrimSpace(evt.ObjectType)
	evt.ObjectID = strings.TrimSpace(evt.ObjectID)
	evt.Channel = strings.TrimSpace(evt.Channel)
	if evt.Metadata != nil {
		meta := make(map[string]any, len(evt.Metadata))
		for k, v := range evt.Metadata {
			meta[k] = v
		}
		evt.Metadata = meta
	}
	if evt.Recipients != nil {
		evt.Recipients = append([]string(nil), evt.Recipients...)
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	return evt
}

func valid(evt Event) bool {
	return evt.Verb != "" && evt.ObjectType != "" && evt.ObjectID != ""
}

// Config toggles emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter applies Config defaults before notifying hooks.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter builds an emitter. It is disabled when no hooks are configured.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Emitter{hooks: hooks, cfg: cfg}
}

// Enabled reports whether Emit will deliver anything.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit delivers evt when enabled.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(evt.Channel) == "" {
		evt.Channel = e.cfg.Channel
	}
	return e.hooks.Notify(ctx, evt)
}

// CaptureHook stores events in memory, mostly for tests.
type CaptureHook struct {
	Events []Event
}

// Notify implements Hook.
func (h *CaptureHook) Notify(_ context.Context, evt Event) error {
	h.Events = append(h.Events, evt)
	return nil
}
