package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
)

func envelope(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  status < 300,
		"code":    status,
		"message": http.StatusText(status),
		"data":    data,
	})
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource, ttl time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL, Session: tokens, Retry: fastRetry(), CacheTTL: ttl})
	require.NoError(t, err)
	return client
}

func newBookings(t *testing.T, client *Client, ep Endpoint) *Resource[tripdesk.Booking] {
	t.Helper()
	if ep.Kind == "" {
		ep.Kind = tripdesk.KindBookings
	}
	res, err := NewResource[tripdesk.Booking](client, ep)
	require.NoError(t, err)
	return res
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}

func TestListDecodesEnvelopeAndSendsHeaders(t *testing.T) {
	store := session.NewMemoryStore()
	sess := session.New(session.Options{Area: session.AreaOffice, Store: store})
	require.NoError(t, sess.SetToken(context.Background(), "secret"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected request id")
		}
		if got := r.URL.Query().Get("status"); got != "confirmed" {
			t.Errorf("expected status query, got %q", got)
		}
		envelope(t, w, http.StatusOK, tripdesk.Paginated[tripdesk.Booking]{
			Data:        []tripdesk.Booking{{ID: "booking-1", Status: tripdesk.StatusConfirmed}},
			CurrentPage: 1, LastPage: 1, PerPage: 15, Total: 1, From: 1, To: 1,
		})
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, sess, 0), Endpoint{})
	page, err := res.List(context.Background(), tripdesk.FilterDescriptor{Status: tripdesk.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "booking-1", page.Data[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestListWithoutTokenStillSends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header")
		}
		_ = json.NewEncoder(w).Encode([]tripdesk.Booking{{ID: "b1"}, {ID: "b2"}})
	}))
	t.Cleanup(server.Close)

	sess := session.New(session.Options{})
	res := newBookings(t, newTestClient(t, server.URL, sess, 0), Endpoint{})
	page, err := res.List(context.Background(), tripdesk.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Total)
}

func TestEnvelopeFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":false,"code":422,"message":"seats must be positive","data":null,"errors":{"seats":["must be positive"]}}`)
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
	_, err := res.Create(context.Background(), map[string]any{"seats": 0})
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, ErrValidation))
	assert.Equal(t, tripdesk.ErrorValidation, KindOf(err))

	var apiErr *APIError
	require.True(t, cerrors.As(err, &apiErr))
	assert.Equal(t, []string{"must be positive"}, apiErr.Fields["seats"])
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   tripdesk.ErrorKind
		is     error
	}{
		{http.StatusUnauthorized, `{"message":"expired"}`, tripdesk.ErrorUnauthorized, ErrUnauthorized},
		{http.StatusUnprocessableEntity, `{"message":"bad","errors":{"name":["required"]}}`, tripdesk.ErrorValidation, ErrValidation},
		{http.StatusBadRequest, `{"message":"bad","errors":{"name":["required"]}}`, tripdesk.ErrorValidation, ErrValidation},
		{http.StatusBadRequest, `{"message":"bad"}`, tripdesk.ErrorRequest, ErrRequest},
		{http.StatusConflict, `{"message":"Cannot delete bus with active trips"}`, tripdesk.ErrorConflict, ErrConflict},
		{http.StatusNotFound, `{"message":"missing"}`, tripdesk.ErrorNotFound, ErrNotFound},
		{http.StatusBadGateway, `upstream down`, tripdesk.ErrorServer, ErrServer},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			t.Cleanup(server.Close)

			res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
			err := res.Delete(context.Background(), "bus-1")
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.True(t, cerrors.Is(err, tc.is), "expected %v to match sentinel", err)
		})
	}
}

func TestConflictMessageIsVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"Cannot delete bus with active trips"}`)
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{Kind: tripdesk.KindBuses})
	err := res.Delete(context.Background(), "bus-1")
	note := tripdesk.NotificationFor(err, "en")
	assert.Equal(t, "Cannot delete bus with active trips", note.Message)
}

func TestNetworkErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	res := newBookings(t, newTestClient(t, url, nil, 0), Endpoint{})
	_, err := res.Get(context.Background(), "booking-1")
	require.Error(t, err)
	assert.Equal(t, tripdesk.ErrorNetwork, KindOf(err))
	assert.True(t, cerrors.Is(err, ErrNetwork))
}

func TestReadsRetryTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		envelope(t, w, http.StatusOK, tripdesk.Booking{ID: "booking-1"})
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
	rec, err := res.Get(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", rec.ID)
	assert.Equal(t, int32(3), hits.Load())
}

func TestReadsStopAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
	_, err := res.List(context.Background(), tripdesk.DefaultFilter())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, ErrServer))
	assert.Equal(t, int32(3), hits.Load())
}

func TestReadsDoNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
	_, err := res.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMutationsAreNeverRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	res := newBookings(t, newTestClient(t, server.URL, nil, 0), Endpoint{})
	_, err := res.Transition(context.Background(), "booking-2", tripdesk.ActionConfirm, "")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConcurrentUnauthorizedInvalidatesOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Unauthenticated."}`)
	}))
	t.Cleanup(server.Close)

	store := session.NewMemoryStore()
	sess := session.New(session.Options{Area: session.AreaBusOperator, Store: store})
	require.NoError(t, sess.SetToken(context.Background(), "stale"))

	var redirects atomic.Int32
	var target string
	sess.OnInvalidated(func(ev session.Event) {
		redirects.Add(1)
		target = ev.Redirect
	})

	res := newBookings(t, newTestClient(t, server.URL, sess, 0), Endpoint{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := res.Get(context.Background(), fmt.Sprintf("booking-%d", i))
			if KindOf(err) != tripdesk.ErrorUnauthorized {
				t.Errorf("expected unauthorized, got %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Deletes())
	assert.Equal(t, int32(1), redirects.Load())
	assert.Equal(t, "/bus-operator/login", target)
	assert.False(t, sess.Authenticated())
}

func TestCacheInvalidatedAfterMutation(t *testing.T) {
	var lists atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			lists.Add(1)
			envelope(t, w, http.StatusOK, tripdesk.PaginateSlice([]tripdesk.Booking{{ID: "booking-2", Status: tripdesk.StatusPending}}, 1, 15))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/confirm"):
			envelope(t, w, http.StatusOK, tripdesk.Booking{ID: "booking-2", Status: tripdesk.StatusConfirmed})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil, time.Minute)
	res := newBookings(t, client, Endpoint{})
	ctx := context.Background()

	_, err := res.List(ctx, tripdesk.DefaultFilter())
	require.NoError(t, err)
	_, err = res.List(ctx, tripdesk.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int32(1), lists.Load())
	assert.Equal(t, 1, client.Cache().Len())

	updated, err := res.Transition(ctx, "booking-2", tripdesk.ActionConfirm, "")
	require.NoError(t, err)
	assert.Equal(t, tripdesk.StatusConfirmed, updated.Status)
	assert.Equal(t, 0, client.Cache().Len())

	_, err = res.List(ctx, tripdesk.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int32(2), lists.Load())
}

func TestTransitionStyles(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		envelope(t, w, http.StatusOK, map[string]any{"id": "camp-1", "status": "featured"})
	}))
	t.Cleanup(server.Close)
	client := newTestClient(t, server.URL, nil, 0)

	campaigns, err := NewResource[tripdesk.Campaign](client, Endpoint{Kind: tripdesk.KindCampaigns})
	require.NoError(t, err)
	_, err = campaigns.Transition(context.Background(), "camp-1", tripdesk.ActionFeature, "")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/campaigns/camp-1/featured", gotPath)

	docs, err := NewResource[tripdesk.Document](client, Endpoint{
		Kind:            tripdesk.KindDocuments,
		Path:            "/office/documents",
		TransitionStyle: TransitionStatusField,
	})
	require.NoError(t, err)
	_, err = docs.Transition(context.Background(), "doc-1", tripdesk.ActionReject, "blurry scan")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/office/documents/doc-1/status", gotPath)
	assert.Equal(t, "rejected", gotBody["status"])
	assert.Equal(t, "blurry scan", gotBody["note"])
}

func TestEndpointRejectsUnknownUpdateMethod(t *testing.T) {
	client := newTestClient(t, "http://example.test", nil, 0)
	_, err := NewResource[tripdesk.Bus](client, Endpoint{Kind: tripdesk.KindBuses, UpdateMethod: "GET"})
	if err == nil {
		t.Fatalf("expected error for GET update method")
	}
}

func TestReadOvertakenByMutationIsNotCached(t *testing.T) {
	var gets atomic.Int32
	gate := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			if gets.Add(1) == 1 {
				select {
				case <-gate:
				case <-r.Context().Done():
					return
				}
				envelope(t, w, http.StatusOK, tripdesk.PaginateSlice([]tripdesk.Booking{{ID: "booking-2", Status: tripdesk.StatusPending}}, 1, 15))
				return
			}
			envelope(t, w, http.StatusOK, tripdesk.PaginateSlice([]tripdesk.Booking{{ID: "booking-2", Status: tripdesk.StatusConfirmed}}, 1, 15))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/confirm"):
			envelope(t, w, http.StatusOK, tripdesk.Booking{ID: "booking-2", Status: tripdesk.StatusConfirmed})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil, time.Minute)
	res := newBookings(t, client, Endpoint{})
	ctx := context.Background()

	first := make(chan tripdesk.Paginated[tripdesk.Booking], 1)
	go func() {
		page, err := res.List(ctx, tripdesk.DefaultFilter())
		assert.NoError(t, err)
		first <- page
	}()
	require.Eventually(t, func() bool { return gets.Load() == 1 }, 2*time.Second, time.Millisecond)

	_, err := res.Transition(ctx, "booking-2", tripdesk.ActionConfirm, "")
	require.NoError(t, err)
	close(gate)
	<-first

	assert.Equal(t, 0, client.Cache().Len(), "a payload fetched before the mutation must not be cached")
	page, err := res.List(ctx, tripdesk.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, tripdesk.StatusConfirmed, page.Data[0].Status)
	assert.Equal(t, int32(2), gets.Load())
}

func TestSharedReadSurvivesCancelledCaller(t *testing.T) {
	var gets atomic.Int32
	gate := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
		envelope(t, w, http.StatusOK, tripdesk.PaginateSlice([]tripdesk.Booking{{ID: "booking-1", Status: tripdesk.StatusConfirmed}}, 1, 15))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, nil, time.Minute)
	res := newBookings(t, client, Endpoint{})

	leaving, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := res.List(leaving, tripdesk.DefaultFilter())
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return gets.Load() == 1 }, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	second := make(chan error, 1)
	var page tripdesk.Paginated[tripdesk.Booking]
	go func() {
		var err error
		page, err = res.List(context.Background(), tripdesk.DefaultFilter())
		second <- err
	}()
	close(gate)
	require.NoError(t, <-second)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "booking-1", page.Data[0].ID)
	assert.Equal(t, int32(1), gets.Load(), "the second caller must reuse the request the first one started")
}

func TestUpdateUsesEndpointMethod(t *testing.T) {
	cases := []struct {
		configured string
		want       string
	}{
		{"", http.MethodPut},
		{"put", http.MethodPut},
		{"patch", http.MethodPatch},
		{"POST", http.MethodPost},
	}
	for _, tc := range cases {
		t.Run(tc.want+"/"+tc.configured, func(t *testing.T) {
			var gotMethod, gotPath string
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod, gotPath = r.Method, r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				envelope(t, w, http.StatusOK, tripdesk.Bus{ID: "bus-7", PlateNumber: "KSA-7070"})
			}))
			t.Cleanup(server.Close)

			client := newTestClient(t, server.URL, nil, 0)
			buses, err := NewResource[tripdesk.Bus](client, Endpoint{
				Kind:         tripdesk.KindBuses,
				Path:         "/operator/buses/",
				UpdateMethod: tc.configured,
			})
			require.NoError(t, err)

			bus, err := buses.Update(context.Background(), "bus-7", map[string]any{"plate_number": "KSA-7070"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, gotMethod)
			assert.Equal(t, "/operator/buses/bus-7", gotPath)
			assert.Equal(t, "KSA-7070", gotBody["plate_number"])
			assert.Equal(t, "bus-7", bus.ID)
		})
	}
}
