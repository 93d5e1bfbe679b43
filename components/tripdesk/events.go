package tripdesk

import (
	"context"
	"time"
)

// Event reasons.
const (
	EventCreated            = "record.created"
	EventTransitioned       = "record.transitioned"
	EventDeleted            = "record.deleted"
	EventSessionInvalidated = "session.invalidated"
)

// ChangeEvent describes a mutation or session change pushed to live views.
type ChangeEvent struct {
	Type       string       `json:"type"`
	Kind       ResourceKind `json:"kind,omitempty"`
	RecordID   string       `json:"record_id,omitempty"`
	Action     Action       `json:"action,omitempty"`
	Status     Status       `json:"status,omitempty"`
	Redirect   string       `json:"redirect,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ChangeHook receives change events after they happened.
type ChangeHook interface {
	RecordChanged(ctx context.Context, event ChangeEvent) error
}

type noopChangeHook struct{}

func (noopChangeHook) RecordChanged(context.Context, ChangeEvent) error { return nil }

// ChangeHooks fans an event out to several hooks, returning the first error.
type ChangeHooks []ChangeHook

// RecordChanged implements ChangeHook.
func (hooks ChangeHooks) RecordChanged(ctx context.Context, event ChangeEvent) error {
	var first error
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if err := h.RecordChanged(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
