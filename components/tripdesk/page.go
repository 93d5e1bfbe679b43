package tripdesk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrStaleResponse is returned by Load when a newer load or Close superseded it.
	ErrStaleResponse = errors.New("tripdesk: response discarded, page moved on")
	// ErrRecordNotFound is returned when a mutation targets an id the page does not show.
	ErrRecordNotFound = errors.New("tripdesk: record not found")
	// ErrNoData is recorded when the API answered successfully but carried no data array.
	ErrNoData        = errors.New("tripdesk: remote returned no data")
	errMissingRemote = errors.New("tripdesk: remote resource not configured")
)

// PageOptions configures a Page.
type PageOptions[T Record] struct {
	Kind     ResourceKind
	Remote   RemoteResource[T]
	Fallback *FallbackStore[T]
	// Machine guards transitions. Defaults to MachineFor(Kind).
	Machine *StateMachine
	Filter  FilterDescriptor
	// AppendCreated appends created records instead of prepending them.
	AppendCreated bool
	Telemetry     Telemetry
	Logger        *slog.Logger
}

// PageView is what presentation code renders.
type PageView[T Record] struct {
	Kind          ResourceKind
	Records       []T
	Meta          PageMeta
	UsingFallback bool
	Filter        FilterDescriptor
	Err           error
}

// Page is one list view's lifetime: filter state, loaded records, and a cancellation scope.
// Responses that arrive after Close or after a newer load are discarded.
type Page[T Record] struct {
	opts    PageOptions[T]
	filters *FilterState
	items   *Collection[T]

	scope  context.Context
	cancel context.CancelFunc

	seq      atomic.Uint64
	inflight sync.WaitGroup

	mu      sync.RWMutex
	settled bool
	meta    PageMeta
	lastErr error

	unsubscribe func()
}

// NewPage opens a page scoped to parent. Filter changes that alter server parameters
// trigger an asynchronous reload.
func NewPage[T Record](parent context.Context, opts PageOptions[T]) *Page[T] {
	if parent == nil {
		parent = context.Background()
	}
	if opts.Machine == nil {
		opts.Machine = MachineFor(opts.Kind)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	scope, cancel := context.WithCancel(parent)
	p := &Page[T]{
		opts:    opts,
		filters: NewFilterState(opts.Filter),
		items:   NewCollection[T](nil),
		scope:   scope,
		cancel:  cancel,
	}
	p.unsubscribe = p.filters.Subscribe(func(change FilterChange) {
		if change.Refetch {
			p.reloadAsync()
		}
	})
	return p
}

// Filters exposes the page's filter state.
func (p *Page[T]) Filters() *FilterState { return p.filters }

// Items exposes the loaded remote records (before client-side filtering).
func (p *Page[T]) Items() *Collection[T] { return p.items }

// Done is closed when the page is closed or its parent is cancelled.
func (p *Page[T]) Done() <-chan struct{} { return p.scope.Done() }

// Close ends the page scope. In-flight loads are cancelled and their results dropped.
func (p *Page[T]) Close() {
	p.cancel()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// Settle blocks until reloads triggered by filter changes have finished.
func (p *Page[T]) Settle() {
	p.inflight.Wait()
}

// Load fetches the current filter's page from the remote API. Failures are recorded and
// surface as fallback data in View rather than as an error; the error is still returned
// so callers can log it.
func (p *Page[T]) Load(ctx context.Context) error {
	if p.opts.Remote == nil {
		p.record(0, nil, errMissingRemote)
		return errMissingRemote
	}
	seq := p.seq.Add(1)
	ctx, release := p.bind(ctx)
	defer release()

	filter := p.filters.Descriptor()
	page, err := p.opts.Remote.List(ctx, filter)
	if err == nil && page.Data == nil {
		err = ErrNoData
	}
	if err != nil {
		if !p.record(seq, nil, err) {
			return p.stale(seq)
		}
		p.opts.Telemetry.Record(ctx, "tripdesk.page.fallback", map[string]any{
			"kind":  string(p.opts.Kind),
			"error": err.Error(),
		})
		return err
	}
	if !p.record(seq, &page, nil) {
		return p.stale(seq)
	}
	p.opts.Telemetry.Record(ctx, "tripdesk.page.load", map[string]any{
		"kind":  string(p.opts.Kind),
		"total": page.Total,
	})
	return nil
}

func (p *Page[T]) stale(seq uint64) error {
	p.opts.Logger.Debug("tripdesk: dropping late response", "kind", p.opts.Kind, "seq", seq)
	return ErrStaleResponse
}

// Refresh is the manual retry. It is Load under another name so pages read naturally.
func (p *Page[T]) Refresh(ctx context.Context) error {
	return p.Load(ctx)
}

// View resolves what the page shows right now: remote records when the last load
// succeeded, otherwise the fallback dataset narrowed by the same predicate and by owner.
func (p *Page[T]) View() PageView[T] {
	filter := p.filters.Descriptor()
	pred := MatchFilter[T](filter)
	var fallback []T
	if p.opts.Fallback != nil {
		fallback = p.opts.Fallback.Snapshot()
	}
	res := ResolveWithFallback(p.scope, p.snapshot, fallback, pred, MatchOwner[T](filter.OwnerID))
	return PageView[T]{
		Kind:          p.opts.Kind,
		Records:       res.Records,
		Meta:          res.Meta,
		UsingFallback: res.UsingFallback,
		Filter:        filter,
		Err:           res.Err,
	}
}

// Transition applies action to the record with id. The current status is checked against
// the state machine before any request is sent. Only the matching record is replaced.
func (p *Page[T]) Transition(ctx context.Context, id string, action Action, note string) (T, error) {
	var zero T
	if p.opts.Remote == nil {
		return zero, errMissingRemote
	}
	current, ok := p.lookup(id)
	if !ok {
		return zero, ErrRecordNotFound
	}
	if p.opts.Machine != nil {
		if _, err := p.opts.Machine.Next(current.RecordStatus(), action); err != nil {
			return zero, err
		}
	}
	updated, err := p.opts.Remote.Transition(ctx, id, action, note)
	if err != nil {
		return zero, err
	}
	p.items.ReplaceByID(updated)
	p.opts.Telemetry.Record(ctx, "tripdesk.record.transition", map[string]any{
		"kind":   string(p.opts.Kind),
		"id":     id,
		"action": string(action),
		"status": string(updated.RecordStatus()),
	})
	return updated, nil
}

// Create submits payload and inserts the new record into the list.
func (p *Page[T]) Create(ctx context.Context, payload any) (T, error) {
	var zero T
	if p.opts.Remote == nil {
		return zero, errMissingRemote
	}
	created, err := p.opts.Remote.Create(ctx, payload)
	if err != nil {
		return zero, err
	}
	if p.opts.AppendCreated {
		p.items.Append(created)
	} else {
		p.items.Prepend(created)
	}
	return created, nil
}

// Delete removes the record remotely and then filters it out of the list.
func (p *Page[T]) Delete(ctx context.Context, id string) error {
	if p.opts.Remote == nil {
		return errMissingRemote
	}
	if err := p.opts.Remote.Delete(ctx, id); err != nil {
		return err
	}
	p.items.RemoveByID(id)
	return nil
}

func (p *Page[T]) lookup(id string) (T, bool) {
	if rec, ok := p.items.Find(id); ok {
		return rec, true
	}
	if p.opts.Fallback != nil {
		for _, rec := range p.opts.Fallback.Snapshot() {
			if rec.RecordID() == id {
				return rec, true
			}
		}
	}
	var zero T
	return zero, false
}

func (p *Page[T]) snapshot(context.Context) (Paginated[T], error) {
	p.mu.RLock()
	settled, meta, lastErr := p.settled, p.meta, p.lastErr
	p.mu.RUnlock()
	if lastErr != nil {
		return Paginated[T]{}, lastErr
	}
	if !settled {
		return Paginated[T]{}, nil
	}
	data := p.items.Items()
	if data == nil {
		data = []T{}
	}
	return Paginated[T]{
		Data:        data,
		CurrentPage: meta.CurrentPage,
		LastPage:    meta.LastPage,
		PerPage:     meta.PerPage,
		Total:       meta.Total,
		From:        meta.From,
		To:          meta.To,
	}, nil
}

// record stores the outcome of load seq. It reports false, storing nothing, when a newer
// load started or the page closed. seq 0 skips the check.
func (p *Page[T]) record(seq uint64, page *Paginated[T], err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != 0 && (seq != p.seq.Load() || p.scope.Err() != nil) {
		return false
	}
	if err != nil {
		p.lastErr = err
		return true
	}
	p.items.Reset(page.Data)
	p.meta = page.Meta()
	p.lastErr = nil
	p.settled = true
	return true
}

func (p *Page[T]) reloadAsync() {
	if p.scope.Err() != nil {
		return
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.Load(p.scope); err != nil && !errors.Is(err, ErrStaleResponse) {
			p.opts.Logger.Debug("tripdesk: reload failed, serving fallback", "kind", p.opts.Kind, "error", err)
		}
	}()
}

func (p *Page[T]) bind(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.scope, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
