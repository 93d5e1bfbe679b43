package gorouter

import (
	"context"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
)

// BridgeSession forwards session invalidations to hook so connected views redirect to the
// login page. It returns a func that stops forwarding.
func BridgeSession(sess *session.Session, hook tripdesk.ChangeHook) func() {
	if sess == nil || hook == nil {
		return func() {}
	}
	return sess.OnInvalidated(func(ev session.Event) {
		_ = hook.RecordChanged(context.Background(), tripdesk.ChangeEvent{
			Type:       tripdesk.EventSessionInvalidated,
			Redirect:   ev.Redirect,
			OccurredAt: ev.OccurredAt,
		})
	})
}
