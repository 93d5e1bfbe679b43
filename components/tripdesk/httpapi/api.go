package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
)

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	API Executor
	// Actor resolves who issued the request. Optional.
	Actor func(*http.Request) commands.ActorInput
	// Broadcast, when set, serves live change events on base/events (WebSocket) and
	// base/events/stream (Server-Sent Events).
	Broadcast *tripdesk.BroadcastHook
}

// Mount registers the handlers on mux under base (e.g. "/office").
func (h *Handlers) Mount(mux *http.ServeMux, base string) {
	base = strings.TrimRight(base, "/")
	mux.HandleFunc("POST "+base+"/session/logout", h.HandleLogout)
	if h.Broadcast != nil {
		mux.HandleFunc("GET "+base+"/events", h.Broadcast.ServeWebSocket)
		mux.HandleFunc("GET "+base+"/events/stream", h.Broadcast.ServeSSE)
	}
	mux.HandleFunc("GET "+base+"/{resource}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleList(w, r, r.PathValue("resource"))
	})
	mux.HandleFunc("GET "+base+"/{resource}/chart", func(w http.ResponseWriter, r *http.Request) {
		h.HandleChart(w, r, r.PathValue("resource"))
	})
	mux.HandleFunc("POST "+base+"/{resource}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleCreate(w, r, r.PathValue("resource"))
	})
	mux.HandleFunc("POST "+base+"/{resource}/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleTransition(w, r, r.PathValue("resource"), r.PathValue("id"), r.PathValue("action"))
	})
	mux.HandleFunc("DELETE "+base+"/{resource}/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleDelete(w, r, r.PathValue("resource"), r.PathValue("id"))
	})
}

func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request, resource string) {
	kind, ok := tripdesk.ParseKind(resource)
	if !ok {
		writeError(w, http.StatusNotFound, &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(resource)}, "")
		return
	}
	actor := h.actor(r)
	view, err := h.API.Browse(r.Context(), tripdesk.BrowseRequest{
		Kind:   kind,
		Filter: tripdesk.FilterFromQuery(r.URL.Query().Get),
		Locale: actor.Locale,
	})
	if err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request, resource string) {
	kind, ok := tripdesk.ParseKind(resource)
	if !ok {
		writeError(w, http.StatusNotFound, &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(resource)}, "")
		return
	}
	actor := h.actor(r)
	html, err := h.API.Chart(r.Context(), tripdesk.StatusChartRequest{
		Kind:   kind,
		Filter: tripdesk.FilterFromQuery(r.URL.Query().Get),
		Locale: actor.Locale,
	})
	if err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request, resource string) {
	kind, ok := tripdesk.ParseKind(resource)
	if !ok {
		writeError(w, http.StatusNotFound, &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(resource)}, "")
		return
	}
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	actor := h.actor(r)
	created, err := h.API.Create(r.Context(), commands.CreateRecordInput{ActorInput: actor, Kind: kind, Payload: payload})
	if err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) HandleTransition(w http.ResponseWriter, r *http.Request, resource, id, action string) {
	kind, ok := tripdesk.ParseKind(resource)
	if !ok {
		writeError(w, http.StatusNotFound, &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(resource)}, "")
		return
	}
	act, ok := tripdesk.ParseAction(action)
	if !ok {
		writeError(w, http.StatusBadRequest, tripdesk.ErrUnknownAction, "")
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	actor := h.actor(r)
	updated, err := h.API.Transition(r.Context(), commands.TransitionRecordInput{
		ActorInput: actor,
		Kind:       kind,
		ID:         id,
		Action:     act,
		Note:       body.Note,
	})
	if err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":       updated,
		"notification": tripdesk.NotificationFor(nil, actor.Locale),
	})
}

func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request, resource, id string) {
	kind, ok := tripdesk.ParseKind(resource)
	if !ok {
		writeError(w, http.StatusNotFound, &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(resource)}, "")
		return
	}
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, errors.New("httpapi: record id is required"), "")
		return
	}
	actor := h.actor(r)
	if err := h.API.Delete(r.Context(), commands.DeleteRecordInput{ActorInput: actor, Kind: kind, ID: id}); err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(r)
	if err := h.API.Logout(r.Context(), commands.LogoutInput{ActorInput: actor, Reason: "user"}); err != nil {
		writeError(w, StatusFor(err), err, actor.Locale)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) actor(r *http.Request) commands.ActorInput {
	var actor commands.ActorInput
	if h.Actor != nil {
		actor = h.Actor(r)
	}
	if actor.Locale == "" {
		actor.Locale = r.URL.Query().Get("locale")
	}
	return actor
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error, locale string) {
	writeJSON(w, status, NewErrorBody(err, locale))
}
