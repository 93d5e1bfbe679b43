package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
	run   func(T)
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	if s.run != nil && s.err == nil {
		s.run(msg)
	}
	return s.err
}

type stubQuerier[I, O any] struct {
	last  I
	calls int
	out   O
	err   error
}

func (s *stubQuerier[I, O]) Query(ctx context.Context, in I) (O, error) {
	s.last = in
	s.calls++
	return s.out, s.err
}

type classified struct {
	kind tripdesk.ErrorKind
	msg  string
}

func (c classified) Error() string                    { return c.msg }
func (c classified) ErrorKind() tripdesk.ErrorKind    { return c.kind }
func (c classified) ServerMessage() string            { return c.msg }
func (c classified) FieldErrors() map[string][]string { return nil }

func newMux(exec *CommandExecutor) *http.ServeMux {
	mux := http.NewServeMux()
	(&Handlers{API: exec}).Mount(mux, "/office")
	return mux
}

func TestHandleListDecodesFilter(t *testing.T) {
	browse := &stubQuerier[tripdesk.BrowseRequest, tripdesk.ListView]{
		out: tripdesk.ListView{Kind: tripdesk.KindBookings, UsingFallback: true},
	}
	mux := newMux(&CommandExecutor{BrowseQuery: browse})

	req := httptest.NewRequest(http.MethodGet, "/office/bookings?status=confirmed&page=2&locale=ar", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tripdesk.StatusConfirmed, browse.last.Filter.Status)
	assert.Equal(t, 2, browse.last.Filter.Page)
	assert.Equal(t, "ar", browse.last.Locale)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["using_fallback"])
}

func TestHandleListUnknownKind(t *testing.T) {
	mux := newMux(&CommandExecutor{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/office/widgets", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTransition(t *testing.T) {
	transition := &stubCommander[commands.TransitionRecordInput]{}
	transition.run = func(in commands.TransitionRecordInput) {
		in.Result.Record = tripdesk.Booking{ID: in.ID, Status: tripdesk.StatusConfirmed}
	}
	mux := newMux(&CommandExecutor{TransitionCommand: transition})

	body := bytes.NewBufferString(`{"note":"paid at desk"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/office/bookings/booking-2/confirm", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, transition.calls)
	assert.Equal(t, "booking-2", transition.last.ID)
	assert.Equal(t, tripdesk.ActionConfirm, transition.last.Action)
	assert.Equal(t, "paid at desk", transition.last.Note)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
}

func TestHandleTransitionRejectsUnknownAction(t *testing.T) {
	transition := &stubCommander[commands.TransitionRecordInput]{}
	mux := newMux(&CommandExecutor{TransitionCommand: transition})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/office/bookings/booking-2/teleport", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if transition.calls != 0 {
		t.Fatalf("command should not run")
	}
}

func TestHandleDeleteConflictEchoesServerMessage(t *testing.T) {
	del := &stubCommander[commands.DeleteRecordInput]{
		err: classified{kind: tripdesk.ErrorConflict, msg: "Cannot delete bus with active trips"},
	}
	mux := newMux(&CommandExecutor{DeleteCommand: del})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/office/buses/bus-1", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Cannot delete bus with active trips", body.Notification.Message)
	assert.Equal(t, "bus-1", del.last.ID)
}

func TestHandleCreate(t *testing.T) {
	create := &stubCommander[commands.CreateRecordInput]{}
	create.run = func(in commands.CreateRecordInput) {
		in.Result.Record = tripdesk.Campaign{ID: "campaign-9", Status: tripdesk.StatusPending}
	}
	mux := newMux(&CommandExecutor{CreateCommand: create})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/office/campaigns", bytes.NewBufferString(`{"title":"Ramadan"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ramadan", create.last.Payload["title"])
	assert.Equal(t, tripdesk.KindCampaigns, create.last.Kind)
}

func TestHandleLogout(t *testing.T) {
	logout := &stubCommander[commands.LogoutInput]{}
	mux := newMux(&CommandExecutor{LogoutCommand: logout})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/office/session/logout", nil))
	if rec.Code != http.StatusNoContent || logout.calls != 1 {
		t.Fatalf("expected logout, got %d calls=%d", rec.Code, logout.calls)
	}
}

func TestHandleChart(t *testing.T) {
	chart := &stubQuerier[tripdesk.StatusChartRequest, string]{out: "<div id=\"chart\"></div>"}
	mux := newMux(&CommandExecutor{ChartQuery: chart})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/office/payments/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tripdesk.KindPayments, chart.last.Kind)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{&tripdesk.UnknownKindError{Kind: "x"}, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", tripdesk.ErrIllegalTransition), http.StatusConflict},
		{classified{kind: tripdesk.ErrorValidation}, http.StatusUnprocessableEntity},
		{classified{kind: tripdesk.ErrorUnauthorized}, http.StatusUnauthorized},
		{classified{kind: tripdesk.ErrorNetwork}, http.StatusBadGateway},
		{classified{kind: tripdesk.ErrorRequest}, http.StatusBadRequest},
		{errNotConfigured, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMountStreamsChangeEvents(t *testing.T) {
	hook := tripdesk.NewBroadcastHook()
	mux := http.NewServeMux()
	(&Handlers{API: &CommandExecutor{}, Broadcast: hook}).Mount(mux, "/office")
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/office/events/stream?kinds=documents", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	_ = hook.RecordChanged(context.Background(), tripdesk.ChangeEvent{
		Type: tripdesk.EventTransitioned, Kind: tripdesk.KindDocuments, RecordID: "doc-4", Status: tripdesk.StatusApproved,
	})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: "+tripdesk.EventTransitioned, strings.TrimSpace(line))
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"record_id":"doc-4"`)
}

func TestMountSkipsEventsWithoutBroadcast(t *testing.T) {
	browse := &stubQuerier[tripdesk.BrowseRequest, tripdesk.ListView]{}
	mux := newMux(&CommandExecutor{BrowseQuery: browse})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/office/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "events is not a resource kind")
	assert.Zero(t, browse.calls)
}
