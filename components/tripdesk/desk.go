package tripdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ListView is the kind-agnostic result of browsing a resource.
type ListView struct {
	Kind          ResourceKind        `json:"kind"`
	Records       []Record            `json:"records"`
	Pagination    PageMeta            `json:"pagination"`
	UsingFallback bool                `json:"using_fallback"`
	Banner        string              `json:"banner"`
	Filter        FilterDescriptor    `json:"filter"`
	StatusCounts  map[Status]int      `json:"status_counts"`
	Actions       map[string][]Action `json:"actions,omitempty"`
}

// Resource is the type-erased surface the Service and transports work with.
type Resource interface {
	Kind() ResourceKind
	Machine() *StateMachine
	Browse(ctx context.Context, filter FilterDescriptor) (ListView, error)
	Get(ctx context.Context, id string) (Record, error)
	Transition(ctx context.Context, id string, action Action, note string) (Record, error)
	Create(ctx context.Context, payload map[string]any) (Record, error)
	Delete(ctx context.Context, id string) error
}

// DeskOptions configures a Desk.
type DeskOptions[T Record] struct {
	Kind      ResourceKind
	Remote    RemoteResource[T]
	Fallback  *FallbackStore[T]
	Machine   *StateMachine
	Validator PayloadValidator
	Telemetry Telemetry
	Logger    *slog.Logger
}

// Desk binds one record type to its remote client, fallback dataset, and state machine.
type Desk[T Record] struct {
	opts DeskOptions[T]
}

var _ Resource = (*Desk[Booking])(nil)

// NewDesk builds a desk with defaults for the machine, validator, and telemetry.
func NewDesk[T Record](opts DeskOptions[T]) *Desk[T] {
	if opts.Machine == nil {
		opts.Machine = MachineFor(opts.Kind)
	}
	if opts.Validator == nil {
		opts.Validator = noopPayloadValidator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fallback == nil {
		opts.Fallback = NewFallbackStore[T](opts.Kind, nil)
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Desk[T]{opts: opts}
}

// Kind implements Resource.
func (d *Desk[T]) Kind() ResourceKind { return d.opts.Kind }

// Machine implements Resource.
func (d *Desk[T]) Machine() *StateMachine { return d.opts.Machine }

// Fallback returns the local dataset backing the desk.
func (d *Desk[T]) Fallback() *FallbackStore[T] { return d.opts.Fallback }

// OpenPage starts a page lifetime bound to ctx.
func (d *Desk[T]) OpenPage(ctx context.Context, filter FilterDescriptor) *Page[T] {
	return NewPage(ctx, PageOptions[T]{
		Kind:      d.opts.Kind,
		Remote:    d.opts.Remote,
		Fallback:  d.opts.Fallback,
		Machine:   d.opts.Machine,
		Filter:    filter,
		Telemetry: d.opts.Telemetry,
		Logger:    d.opts.Logger,
	})
}

// Browse loads one page and resolves it. Remote failures never surface as errors here.
func (d *Desk[T]) Browse(ctx context.Context, filter FilterDescriptor) (ListView, error) {
	page := d.OpenPage(ctx, filter)
	defer page.Close()
	if err := page.Load(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		d.opts.Logger.Warn("tripdesk: remote list failed, using fallback",
			"kind", d.opts.Kind, "error", err)
	}
	view := page.View()
	return d.erase(view), nil
}

// Get fetches a single record from the API, falling back to the dataset on failure.
func (d *Desk[T]) Get(ctx context.Context, id string) (Record, error) {
	rec, err := d.current(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Transition fetches the current record, checks the machine, then calls the endpoint.
func (d *Desk[T]) Transition(ctx context.Context, id string, action Action, note string) (Record, error) {
	if d.opts.Remote == nil {
		return nil, errMissingRemote
	}
	if strings.TrimSpace(id) == "" {
		return nil, errMissingRecordID
	}
	current, err := d.opts.Remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.opts.Machine != nil {
		if _, err := d.opts.Machine.Next(current.RecordStatus(), action); err != nil {
			return nil, err
		}
	}
	updated, err := d.opts.Remote.Transition(ctx, id, action, note)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Create validates payload against the kind's schema and submits it.
func (d *Desk[T]) Create(ctx context.Context, payload map[string]any) (Record, error) {
	if d.opts.Remote == nil {
		return nil, errMissingRemote
	}
	if err := d.opts.Validator.Validate(d.opts.Kind, payload); err != nil {
		return nil, err
	}
	created, err := d.opts.Remote.Create(ctx, payload)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete removes a record remotely.
func (d *Desk[T]) Delete(ctx context.Context, id string) error {
	if d.opts.Remote == nil {
		return errMissingRemote
	}
	if strings.TrimSpace(id) == "" {
		return errMissingRecordID
	}
	return d.opts.Remote.Delete(ctx, id)
}

func (d *Desk[T]) current(ctx context.Context, id string) (T, error) {
	var zero T
	if d.opts.Remote != nil {
		rec, err := d.opts.Remote.Get(ctx, id)
		if err == nil {
			return rec, nil
		}
		d.opts.Logger.Debug("tripdesk: remote get failed, checking fallback", "kind", d.opts.Kind, "id", id, "error", err)
	}
	for _, rec := range d.opts.Fallback.Snapshot() {
		if rec.RecordID() == id {
			return rec, nil
		}
	}
	return zero, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, d.opts.Kind, id)
}

func (d *Desk[T]) erase(view PageView[T]) ListView {
	out := ListView{
		Kind:          view.Kind,
		Records:       make([]Record, len(view.Records)),
		Pagination:    view.Meta,
		UsingFallback: view.UsingFallback,
		Filter:        view.Filter,
		StatusCounts:  CountStatuses(view.Records),
		Actions:       make(map[string][]Action, len(view.Records)),
	}
	for i, rec := range view.Records {
		out.Records[i] = rec
		if d.opts.Machine != nil {
			out.Actions[rec.RecordID()] = d.opts.Machine.Allowed(rec.RecordStatus())
		}
	}
	return out
}

// CountStatuses tallies records per status.
func CountStatuses[T Record](records []T) map[Status]int {
	counts := make(map[Status]int)
	for _, rec := range records {
		counts[rec.RecordStatus()]++
	}
	return counts
}
