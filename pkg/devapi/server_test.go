package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
	"github.com/goliatone/go-tripdesk/pkg/api"
)

type harness struct {
	server  *Server
	http    *httptest.Server
	session *session.Session
	store   *session.MemoryStore
	client  *api.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv, err := New(Config{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	store := session.NewMemoryStore()
	sess := session.New(session.Options{Area: session.AreaOffice, Store: store})
	client, err := api.NewClient(api.Config{
		BaseURL: ts.URL + "/api",
		Session: sess,
		Retry:   api.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	require.NoError(t, err)
	return &harness{server: srv, http: ts, session: sess, store: store, client: client}
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	body, _ := json.Marshal(loginRequest{Email: email, Password: "secret"})
	resp, err := http.Post(h.http.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NoError(t, h.session.SetToken(context.Background(), env.Data.Token))
}

func bookings(t *testing.T, h *harness) *api.Resource[tripdesk.Booking] {
	t.Helper()
	res, err := api.NewResource[tripdesk.Booking](h.client, api.Endpoint{Kind: tripdesk.KindBookings})
	require.NoError(t, err)
	return res
}

func ids[T tripdesk.Record](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RecordID())
	}
	return out
}

func TestListRequiresToken(t *testing.T) {
	h := newHarness(t)
	_, err := bookings(t, h).List(context.Background(), tripdesk.DefaultFilter())
	require.Error(t, err)
	assert.Equal(t, tripdesk.ErrorUnauthorized, api.KindOf(err))
}

func TestListScopesByOwnerAndFiltersByStatus(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	res := bookings(t, h)
	ctx := context.Background()

	all, err := res.List(ctx, tripdesk.DefaultFilter())
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"booking-1", "booking-2", "booking-3", "booking-4"}, ids(all.Data)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}

	confirmed, err := res.List(ctx, tripdesk.FilterDescriptor{Status: tripdesk.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, []string{"booking-1"}, ids(confirmed.Data))
	assert.Equal(t, 1, confirmed.Total)
}

func TestPaginationMetadata(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	page, err := bookings(t, h).List(context.Background(), tripdesk.FilterDescriptor{Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 4, page.From)
	assert.Equal(t, 4, page.To)
}

func TestTransitionEnforcesMachine(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	res := bookings(t, h)
	ctx := context.Background()

	updated, err := res.Transition(ctx, "booking-2", tripdesk.ActionConfirm, "")
	require.NoError(t, err)
	assert.Equal(t, tripdesk.StatusConfirmed, updated.Status)
	assert.Equal(t, "Yusuf Karim", updated.CustomerName)

	_, err = res.Transition(ctx, "booking-3", tripdesk.ActionConfirm, "")
	assert.Equal(t, tripdesk.ErrorConflict, api.KindOf(err))
}

func TestStatusFieldTransition(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	docs, err := api.NewResource[tripdesk.Document](h.client, api.Endpoint{
		Kind:            tripdesk.KindDocuments,
		TransitionStyle: api.TransitionStatusField,
	})
	require.NoError(t, err)
	doc, err := docs.Transition(context.Background(), "document-2", tripdesk.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, tripdesk.StatusApproved, doc.Status)
}

func TestDeleteConflictEchoesMessage(t *testing.T) {
	h := newHarness(t)
	h.login(t, "operator@tripdesk.test")
	buses, err := api.NewResource[tripdesk.Bus](h.client, api.Endpoint{Kind: tripdesk.KindBuses})
	require.NoError(t, err)

	err = buses.Delete(context.Background(), "bus-1")
	require.Error(t, err)
	assert.Equal(t, tripdesk.ErrorConflict, api.KindOf(err))
	assert.Equal(t, "Cannot delete bus with active trips", tripdesk.NotificationFor(err, "en").Message)

	require.NoError(t, buses.Delete(context.Background(), "bus-3"))
}

func TestCreateValidatesPayload(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	res := bookings(t, h)

	_, err := res.Create(context.Background(), map[string]any{"customer_name": "Omar"})
	require.Error(t, err)
	assert.Equal(t, tripdesk.ErrorValidation, api.KindOf(err))

	created, err := res.Create(context.Background(), map[string]any{
		"customer_name": "Omar",
		"trip_name":     "Taif Day Trip",
		"seats":         2,
	})
	require.NoError(t, err)
	assert.Equal(t, tripdesk.StatusPending, created.Status)
	assert.Equal(t, "office-1", created.OfficeID)
	assert.NotEmpty(t, created.ID)
}

func TestCreateMultipart(t *testing.T) {
	h := newHarness(t)
	h.login(t, "operator@tripdesk.test")
	buses, err := api.NewResource[tripdesk.Bus](h.client, api.Endpoint{Kind: tripdesk.KindBuses})
	require.NoError(t, err)

	form := api.NewForm().
		Set("plate_number", "KSA-9000").
		Set("model", "Irizar i6").
		Set("capacity", "50").
		Add("features", "wifi", "ac").
		AddFile("images", api.FormFile{Name: "side.jpg", Content: bytes.NewReader([]byte("img"))})
	bus, err := buses.CreateMultipart(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, 50, bus.Capacity)
	assert.Equal(t, []string{"wifi", "ac"}, bus.Features)
	assert.Equal(t, []string{"/uploads/side.jpg"}, bus.Images)
	assert.Equal(t, "operator-1", bus.OperatorID)
}

func TestRevokedTokenInvalidatesSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	token, _ := h.session.Token()
	claims, err := h.server.Issuer().Verify(token)
	require.NoError(t, err)
	h.server.Issuer().Revoke(claims.ID)

	events, cancel := h.session.Subscribe()
	defer cancel()

	_, err = bookings(t, h).List(context.Background(), tripdesk.DefaultFilter())
	assert.Equal(t, tripdesk.ErrorUnauthorized, api.KindOf(err))
	assert.False(t, h.session.Authenticated())
	assert.Equal(t, 1, h.store.Deletes())

	select {
	case ev := <-events:
		assert.Equal(t, session.EventInvalidated, ev.Type)
		assert.Equal(t, "/office/login", ev.Redirect)
	case <-time.After(time.Second):
		t.Fatalf("expected invalidation event")
	}
}

func TestFaultInjection(t *testing.T) {
	h := newHarness(t)
	h.login(t, "office@tripdesk.test")
	h.server.Faults().Set("/api/bookings", Fault{StatusCode: http.StatusServiceUnavailable, Rate: 1})

	_, err := bookings(t, h).List(context.Background(), tripdesk.DefaultFilter())
	assert.Equal(t, tripdesk.ErrorServer, api.KindOf(err))

	h.server.Faults().Clear()
	_, err = bookings(t, h).List(context.Background(), tripdesk.DefaultFilter())
	assert.NoError(t, err)
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewIssuer("k", time.Minute, DefaultAccounts(), clock)
	token, _, err := issuer.Login("office@tripdesk.test", "secret")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestArrayField(t *testing.T) {
	cases := map[string]struct {
		name string
		ok   bool
	}{
		"images[0]":    {"images", true},
		"features[12]": {"features", true},
		"plain":        {"", false},
		"bad[x]":       {"", false},
		"[0]":          {"", false},
	}
	for key, want := range cases {
		name, ok := arrayField(key)
		if name != want.name || ok != want.ok {
			t.Fatalf("arrayField(%q) = %q, %v; want %q, %v", key, name, ok, want.name, want.ok)
		}
	}
}
