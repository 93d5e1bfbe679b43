package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// MockResource implements tripdesk.RemoteResource in memory for tests and local demos.
// Failures and latency can be injected to exercise the fallback path.
type MockResource[T tripdesk.Record] struct {
	kind    tripdesk.ResourceKind
	machine *tripdesk.StateMachine

	mu      sync.RWMutex
	records []T
	failure error
	delay   time.Duration
	calls   map[string]int
}

var _ tripdesk.RemoteResource[tripdesk.Booking] = (*MockResource[tripdesk.Booking])(nil)

// NewMockResource seeds a mock with records.
func NewMockResource[T tripdesk.Record](kind tripdesk.ResourceKind, records []T) *MockResource[T] {
	return &MockResource[T]{
		kind:    kind,
		machine: tripdesk.MachineFor(kind),
		records: cloneSlice(records),
		calls:   map[string]int{},
	}
}

// FailWith makes every call return err until cleared with nil.
func (m *MockResource[T]) FailWith(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
}

// FailWithStatus injects a classified error as if the upstream answered with status.
func (m *MockResource[T]) FailWithStatus(status int, message string) {
	m.FailWith(newAPIError(http.MethodGet, "/"+string(m.kind), status, message, nil))
}

// Delay sleeps d before answering, honouring context cancellation.
func (m *MockResource[T]) Delay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Calls returns how often op was invoked.
func (m *MockResource[T]) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Records returns a copy of the stored records.
func (m *MockResource[T]) Records() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSlice(m.records)
}

// List filters by status, payment status and search, then paginates.
func (m *MockResource[T]) List(ctx context.Context, filter tripdesk.FilterDescriptor) (tripdesk.Paginated[T], error) {
	if err := m.enter(ctx, "list"); err != nil {
		return tripdesk.Paginated[T]{}, err
	}
	filter = filter.Normalize()
	m.mu.RLock()
	matched := tripdesk.FilterRecords(m.records, tripdesk.MatchFilter[T](filter))
	m.mu.RUnlock()
	return tripdesk.PaginateSlice(cloneSlice(matched), filter.Page, filter.PerPage), nil
}

// Get returns the record with id.
func (m *MockResource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := m.enter(ctx, "get"); err != nil {
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.RecordID() == id {
			return cloneOne(r), nil
		}
	}
	return zero, newAPIError(http.MethodGet, "/"+string(m.kind)+"/"+id, http.StatusNotFound, "record not found", nil)
}

// Create decodes payload into T through JSON and prepends it.
func (m *MockResource[T]) Create(ctx context.Context, payload any) (T, error) {
	var out T
	if err := m.enter(ctx, "create"); err != nil {
		return out, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("api: encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, newAPIError(http.MethodPost, "/"+string(m.kind), http.StatusUnprocessableEntity, err.Error(), nil)
	}
	if out.RecordID() == "" {
		return out, newAPIError(http.MethodPost, "/"+string(m.kind), http.StatusUnprocessableEntity,
			"id is required", map[string][]string{"id": {"required"}})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.RecordID() == out.RecordID() {
			return out, newAPIError(http.MethodPost, "/"+string(m.kind), http.StatusConflict, "record already exists", nil)
		}
	}
	m.records = append([]T{out}, m.records...)
	return cloneOne(out), nil
}

// Delete removes the record with id.
func (m *MockResource[T]) Delete(ctx context.Context, id string) error {
	if err := m.enter(ctx, "delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.RecordID() == id {
			m.records = append(m.records[:i:i], m.records[i+1:]...)
			return nil
		}
	}
	return newAPIError(http.MethodDelete, "/"+string(m.kind)+"/"+id, http.StatusNotFound, "record not found", nil)
}

// Transition applies the kind's state machine.
func (m *MockResource[T]) Transition(ctx context.Context, id string, action tripdesk.Action, _ string) (T, error) {
	var zero T
	if err := m.enter(ctx, "transition"); err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := "/" + string(m.kind) + "/" + id + "/" + action.PathSegment()
	for i, r := range m.records {
		if r.RecordID() != id {
			continue
		}
		if m.machine == nil {
			return zero, newAPIError(http.MethodPost, path, http.StatusBadRequest, "no transitions", nil)
		}
		to, err := m.machine.Next(r.RecordStatus(), action)
		if err != nil {
			return zero, newAPIError(http.MethodPost, path, http.StatusConflict, err.Error(), nil)
		}
		updated, err := tripdesk.WithStatus(r, to, time.Now())
		if err != nil {
			return zero, err
		}
		m.records[i] = updated
		return cloneOne(updated), nil
	}
	return zero, newAPIError(http.MethodPost, path, http.StatusNotFound, "record not found", nil)
}

func (m *MockResource[T]) enter(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	delay, failure := m.delay, m.failure
	m.mu.Unlock()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

func cloneOne[T any](item T) T {
	var out T
	if err := copier.CopyWithOption(&out, &item, copier.Option{DeepCopy: true}); err != nil {
		return item
	}
	return out
}

func cloneSlice[T any](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, cloneOne(item))
	}
	return out
}
