package gorouter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/executor missing")
	}
}

func TestDefaultRouteConfig(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Chart: "/:resource/stats"})
	assert.Equal(t, "/:resource", routes.List)
	assert.Equal(t, "/:resource/stats", routes.Chart)
	assert.Equal(t, "/:resource/:id/:action", routes.Transition)
	assert.Equal(t, "/events", routes.WebSocket)
}

func TestParseKind(t *testing.T) {
	kind, err := parseKind("bookings")
	require.NoError(t, err)
	assert.Equal(t, tripdesk.KindBookings, kind)

	_, err = parseKind("widgets")
	var unknown *tripdesk.UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, tripdesk.ResourceKind("widgets"), unknown.Kind)
}

func TestNoteFrom(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"   ":                        "",
		`{"note":"  missing scan "}`: "missing scan",
		`not json`:                   "",
	}
	for body, want := range cases {
		if got := noteFrom([]byte(body)); got != want {
			t.Fatalf("noteFrom(%q) = %q, want %q", body, got, want)
		}
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	if got := parseAcceptLanguage("ar-SA,ar;q=0.9,en;q=0.8"); got != "ar-sa" {
		t.Fatalf("expected ar-sa, got %q", got)
	}
	if got := parseAcceptLanguage(""); got != "" {
		t.Fatalf("expected empty locale, got %q", got)
	}
}

func TestBridgeSessionBroadcastsInvalidation(t *testing.T) {
	sess := session.New(session.Options{Area: session.AreaBusOperator})
	require.NoError(t, sess.SetToken(context.Background(), "tok"))
	hook := tripdesk.NewBroadcastHook()
	events, cancel := hook.Subscribe()
	defer cancel()

	stop := BridgeSession(sess, hook)
	defer stop()

	_, gen := sess.Token()
	require.True(t, sess.Invalidate(context.Background(), gen, "401"))
	require.False(t, sess.Invalidate(context.Background(), gen, "401"))

	select {
	case ev := <-events:
		assert.Equal(t, tripdesk.EventSessionInvalidated, ev.Type)
		assert.Equal(t, "/bus-operator/login", ev.Redirect)
	case <-time.After(time.Second):
		t.Fatalf("expected invalidation event")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}
