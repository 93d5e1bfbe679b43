package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// TransitionStyle selects how a status change is sent upstream.
type TransitionStyle int

const (
	// TransitionSubPath posts to Path/{id}/{action segment}.
	TransitionSubPath TransitionStyle = iota
	// TransitionStatusField puts {status, note} to Path/{id}/status.
	TransitionStatusField
)

// Endpoint describes the REST surface of one kind.
type Endpoint struct {
	Kind            tripdesk.ResourceKind
	Path            string
	UpdateMethod    string
	TransitionStyle TransitionStyle
	// ActionPaths overrides the path segment of an action.
	ActionPaths map[tripdesk.Action]string
}

func (e Endpoint) normalize() (Endpoint, error) {
	if e.Kind == "" {
		return e, fmt.Errorf("api: endpoint kind is required")
	}
	if e.Path == "" {
		e.Path = "/" + string(e.Kind)
	}
	e.Path = "/" + strings.Trim(e.Path, "/")
	switch strings.ToUpper(e.UpdateMethod) {
	case "":
		e.UpdateMethod = http.MethodPut
	case http.MethodPut, http.MethodPatch, http.MethodPost:
		e.UpdateMethod = strings.ToUpper(e.UpdateMethod)
	default:
		return e, fmt.Errorf("api: unsupported update method %q", e.UpdateMethod)
	}
	return e, nil
}

func (e Endpoint) recordPath(id string) string {
	return e.Path + "/" + url.PathEscape(id)
}

func (e Endpoint) segment(action tripdesk.Action) string {
	if seg, ok := e.ActionPaths[action]; ok && seg != "" {
		return seg
	}
	return action.PathSegment()
}

// Resource is the typed client of one kind.
type Resource[T tripdesk.Record] struct {
	client   *Client
	endpoint Endpoint
}

var _ tripdesk.RemoteResource[tripdesk.Booking] = (*Resource[tripdesk.Booking])(nil)

// NewResource binds endpoint to client.
func NewResource[T tripdesk.Record](client *Client, endpoint Endpoint) (*Resource[T], error) {
	if client == nil {
		return nil, fmt.Errorf("api: resource requires client")
	}
	ep, err := endpoint.normalize()
	if err != nil {
		return nil, err
	}
	return &Resource[T]{client: client, endpoint: ep}, nil
}

// Endpoint returns the normalized endpoint.
func (r *Resource[T]) Endpoint() Endpoint { return r.endpoint }

// List fetches one page. A bare array payload is treated as a single page.
func (r *Resource[T]) List(ctx context.Context, filter tripdesk.FilterDescriptor) (tripdesk.Paginated[T], error) {
	var raw json.RawMessage
	err := r.client.read(ctx, request{
		kind:   r.endpoint.Kind,
		method: http.MethodGet,
		path:   r.endpoint.Path,
		query:  filter.Query(),
	}, &raw)
	if err != nil {
		return tripdesk.Paginated[T]{}, err
	}
	return decodePage[T](raw, filter.Normalize())
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.client.read(ctx, request{
		kind:   r.endpoint.Kind,
		method: http.MethodGet,
		path:   r.endpoint.recordPath(id),
	}, &out)
	return out, err
}

// Create posts a JSON payload.
func (r *Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	var out T
	err := r.client.write(ctx, request{
		kind:    r.endpoint.Kind,
		method:  http.MethodPost,
		path:    r.endpoint.Path,
		payload: payload,
	}, &out)
	return out, err
}

// CreateMultipart posts form as multipart/form-data.
func (r *Resource[T]) CreateMultipart(ctx context.Context, form *Form) (T, error) {
	var out T
	body, contentType, err := form.Encode()
	if err != nil {
		return out, err
	}
	err = r.client.write(ctx, request{
		kind:        r.endpoint.Kind,
		method:      http.MethodPost,
		path:        r.endpoint.Path,
		body:        bytes.NewReader(body),
		contentType: contentType,
	}, &out)
	return out, err
}

// Update sends payload with the endpoint's update method.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) (T, error) {
	var out T
	err := r.client.write(ctx, request{
		kind:    r.endpoint.Kind,
		method:  r.endpoint.UpdateMethod,
		path:    r.endpoint.recordPath(id),
		payload: payload,
	}, &out)
	return out, err
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.write(ctx, request{
		kind:   r.endpoint.Kind,
		method: http.MethodDelete,
		path:   r.endpoint.recordPath(id),
	}, nil)
}

// Transition requests a status change and returns the updated record.
func (r *Resource[T]) Transition(ctx context.Context, id string, action tripdesk.Action, note string) (T, error) {
	var out T
	req := request{kind: r.endpoint.Kind, method: http.MethodPost}
	switch r.endpoint.TransitionStyle {
	case TransitionStatusField:
		machine := tripdesk.MachineFor(r.endpoint.Kind)
		if machine == nil {
			return out, fmt.Errorf("api: no state machine for %s", r.endpoint.Kind)
		}
		target, ok := machine.Target(action)
		if !ok {
			return out, fmt.Errorf("api: %s: %w", action, tripdesk.ErrUnknownAction)
		}
		req.method = http.MethodPut
		req.path = r.endpoint.recordPath(id) + "/status"
		req.payload = statusChange{Status: string(target), Note: note}
	default:
		req.path = r.endpoint.recordPath(id) + "/" + r.endpoint.segment(action)
		if note != "" {
			req.payload = statusChange{Note: note}
		}
	}
	err := r.client.write(ctx, req, &out)
	return out, err
}

type statusChange struct {
	Status string `json:"status,omitempty"`
	Note   string `json:"note,omitempty"`
}

func decodePage[T any](raw json.RawMessage, filter tripdesk.FilterDescriptor) (tripdesk.Paginated[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return tripdesk.Paginated[T]{}, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return tripdesk.Paginated[T]{}, fmt.Errorf("api: decode list: %w", err)
		}
		page := tripdesk.PaginateSlice(items, 1, len(items))
		page.PerPage = filter.PerPage
		return page, nil
	}
	var page tripdesk.Paginated[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return tripdesk.Paginated[T]{}, fmt.Errorf("api: decode page: %w", err)
	}
	if page.Data == nil {
		return page, nil
	}
	if page.PerPage == 0 {
		page.PerPage = filter.PerPage
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = filter.Page
	}
	if page.LastPage == 0 {
		page.LastPage = 1
	}
	return page, nil
}
