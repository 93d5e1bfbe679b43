package activity

import (
	"context"
	"testing"
)

type recordingHook struct {
	events []Event
}

func (h *recordingHook) Notify(_ context.Context, evt Event) error {
	h.events = append(h.events, evt)
	return nil
}

func TestEmitterDefaultsChannelAndEmits(t *testing.T) {
	hook := &recordingHook{}
	em := NewEmitter(Hooks{hook}, Config{Enabled: true})
	if !em.Enabled() {
		t.Fatalf("expected emitter enabled")
	}
	err := em.Emit(context.Background(), Event{
		Verb:       "booking.confirm",
		ObjectType: "bookings",
		ObjectID:   "booking-2",
	})
	if err != nil {
		t.Fatalf("emit returned error: %v", err)
	}
	if len(hook.events) != 1 {
		t.Fatalf("expected event emitted, got %d", len(hook.events))
	}
	if hook.events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel tripdesk, got %q", hook.events[0].Channel)
	}
}

func TestEmitterKeepsConfiguredChannel(t *testing.T) {
	hook := &recordingHook{}
	em := NewEmitter(Hooks{hook}, Config{Enabled: true, Channel: "operators"})
	if err := em.Emit(context.Background(), Event{Verb: "bus.maintain", ObjectType: "buses", ObjectID: "bus-1"}); err != nil {
		t.Fatalf("emit returned error: %v", err)
	}
	if len(hook.events) != 1 || hook.events[0].Channel != "operators" {
		t.Fatalf("expected channel operators, got %+v", hook.events)
	}
}

func TestEmitterDisabledByConfig(t *testing.T) {
	hook := &recordingHook{}
	em := NewEmitter(Hooks{hook}, Config{Enabled: false})
	if em.Enabled() {
		t.Fatalf("expected emitter disabled")
	}
	_ = em.Emit(context.Background(), Event{Verb: "booking.cancel", ObjectType: "bookings", ObjectID: "booking-1"})
	if len(hook.events) != 0 {
		t.Fatalf("expected no events, got %d", len(hook.events))
	}
}

func TestEmitterDisabledWithoutHooks(t *testing.T) {
	em := NewEmitter(nil, Config{Enabled: true})
	if em.Enabled() {
		t.Fatalf("expected emitter disabled without hooks")
	}
}
