package tripdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-tripdesk/pkg/activity"
)

var (
	errMissingKind     = errors.New("tripdesk: resource kind is required")
	errMissingRecordID = errors.New("tripdesk: record id is required")
	errMissingAction   = errors.New("tripdesk: action is required")
)

// UnknownKindError is returned for kinds that were never registered.
type UnknownKindError struct {
	Kind ResourceKind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("tripdesk: resource %q is not registered", e.Kind)
}

// Actor identifies who performs an operation, for activity records and localization.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
	Locale   string
}

type actorKey struct{}

// WithActor stores the actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the actor from ctx, if present.
func ActorFrom(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

// Options configures the Service. Collaborators are interfaces so transports and tests
// can swap them.
type Options struct {
	Resources      *Registry
	ChangeHook     ChangeHook
	ActivityHooks  activity.Hooks
	ActivityConfig activity.Config
	Translator     TranslationService
	ChartCache     *ChartCache
	Telemetry      Telemetry
	Logger         *slog.Logger
	Now            func() time.Time
	// OwnerID scopes fallback records when neither the filter nor the actor names a tenant.
	OwnerID string
}

// Service is the kind-agnostic entry point used by commands and transports.
type Service struct {
	opts     Options
	activity *activity.Emitter
}

// NewService builds a Service with safe defaults.
func NewService(opts Options) *Service {
	if opts.Resources == nil {
		opts.Resources = NewRegistry()
	}
	if opts.ChangeHook == nil {
		opts.ChangeHook = noopChangeHook{}
	}
	if opts.ChartCache == nil {
		opts.ChartCache = NewChartCache(30 * time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
	}
}

// Registry exposes the resource registry.
func (s *Service) Registry() *Registry { return s.opts.Resources }

// BrowseRequest asks for one resolved page of a resource.
type BrowseRequest struct {
	Kind   ResourceKind
	Filter FilterDescriptor
	Locale string
}

// Browse resolves a list view with its connectivity banner.
func (s *Service) Browse(ctx context.Context, req BrowseRequest) (ListView, error) {
	res, err := s.resource(req.Kind)
	if err != nil {
		return ListView{}, err
	}
	if req.Filter.OwnerID == "" {
		req.Filter.OwnerID = firstNonEmpty(ActorFrom(ctx).TenantID, s.opts.OwnerID)
	}
	view, err := res.Browse(ctx, req.Filter)
	if err != nil {
		return ListView{}, err
	}
	view.Banner = s.banner(ctx, view.UsingFallback, s.locale(ctx, req.Locale))
	s.opts.Telemetry.Record(ctx, "tripdesk.browse", map[string]any{
		"kind":           string(req.Kind),
		"using_fallback": view.UsingFallback,
		"records":        len(view.Records),
	})
	return view, nil
}

// TransitionRequest applies a status action to one record.
type TransitionRequest struct {
	Kind   ResourceKind `json:"kind"`
	ID     string       `json:"id"`
	Action Action       `json:"action"`
	Note   string       `json:"note,omitempty"`
}

// Transition runs a status mutation and notifies hooks on success.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (Record, error) {
	res, err := s.resource(req.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, errMissingRecordID
	}
	if req.Action == "" {
		return nil, errMissingAction
	}
	updated, err := res.Transition(ctx, req.ID, req.Action, req.Note)
	if err != nil {
		s.opts.Logger.Warn("tripdesk: transition failed",
			"kind", req.Kind, "id", req.ID, "action", req.Action, "error", err)
		return nil, err
	}
	event := ChangeEvent{
		Type:       EventTransitioned,
		Kind:       req.Kind,
		RecordID:   req.ID,
		Action:     req.Action,
		Status:     updated.RecordStatus(),
		OccurredAt: s.opts.Now(),
	}
	s.afterMutation(ctx, event, map[string]any{"note": req.Note, "action": string(req.Action)})
	return updated, nil
}

// CreateRequest submits a new record.
type CreateRequest struct {
	Kind    ResourceKind   `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// Create validates and submits a record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Record, error) {
	res, err := s.resource(req.Kind)
	if err != nil {
		return nil, err
	}
	created, err := res.Create(ctx, req.Payload)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, ChangeEvent{
		Type:       EventCreated,
		Kind:       req.Kind,
		RecordID:   created.RecordID(),
		Status:     created.RecordStatus(),
		OccurredAt: s.opts.Now(),
	}, nil)
	return created, nil
}

// DeleteRequest removes a record.
type DeleteRequest struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

// Delete removes a record. Conflicts (e.g. existing bookings) are returned untouched so
// callers can show the server's message.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	res, err := s.resource(req.Kind)
	if err != nil {
		return err
	}
	if err := res.Delete(ctx, req.ID); err != nil {
		return err
	}
	s.afterMutation(ctx, ChangeEvent{
		Type:       EventDeleted,
		Kind:       req.Kind,
		RecordID:   req.ID,
		OccurredAt: s.opts.Now(),
	}, nil)
	return nil
}

// NotifyChange pushes an event to change hooks without a mutation, e.g. session invalidation.
func (s *Service) NotifyChange(ctx context.Context, event ChangeEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.opts.Now()
	}
	return s.opts.ChangeHook.RecordChanged(ctx, event)
}

// Notification translates an operation outcome into a toast for the actor's locale.
func (s *Service) Notification(ctx context.Context, err error, locale string) Notification {
	return NotificationFor(err, s.locale(ctx, locale))
}

func (s *Service) afterMutation(ctx context.Context, event ChangeEvent, meta map[string]any) {
	s.opts.ChartCache.InvalidateKind(event.Kind)
	if err := s.opts.ChangeHook.RecordChanged(ctx, event); err != nil {
		s.opts.Logger.Warn("tripdesk: change hook failed", "type", event.Type, "error", err)
	}
	actor := ActorFrom(ctx)
	metadata := map[string]any{"status": string(event.Status)}
	for k, v := range meta {
		if v != "" && v != nil {
			metadata[k] = v
		}
	}
	if err := s.activity.Emit(ctx, activity.Event{
		Verb:       "tripdesk." + strings.TrimPrefix(event.Type, "record."),
		ActorID:    actor.ActorID,
		UserID:     actor.UserID,
		TenantID:   actor.TenantID,
		ObjectType: string(event.Kind),
		ObjectID:   event.RecordID,
		Metadata:   metadata,
		OccurredAt: event.OccurredAt,
	}); err != nil {
		s.opts.Logger.Warn("tripdesk: activity emit failed", "type", event.Type, "error", err)
	}
	s.opts.Telemetry.Record(ctx, "tripdesk."+event.Type, map[string]any{
		"kind": string(event.Kind),
		"id":   event.RecordID,
	})
}

func (s *Service) resource(kind ResourceKind) (Resource, error) {
	if kind == "" {
		return nil, errMissingKind
	}
	res, ok := s.opts.Resources.Resource(kind)
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	return res, nil
}

func (s *Service) banner(ctx context.Context, usingFallback bool, locale string) string {
	key := MsgBannerConnected
	if usingFallback {
		key = MsgBannerFallback
	}
	return translateOrFallback(ctx, s.opts.Translator, key, locale, nil)
}

func (s *Service) locale(ctx context.Context, requested string) string {
	if requested != "" {
		return requested
	}
	return ActorFrom(ctx).Locale
}
