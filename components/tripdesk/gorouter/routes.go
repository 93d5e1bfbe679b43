package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
	"github.com/goliatone/go-tripdesk/components/tripdesk/httpapi"
)

// ActorResolver converts a router.Context into the actor issuing the request.
type ActorResolver func(router.Context) commands.ActorInput

// Config wires go-router with the tripdesk controller, executor, and broadcast hook.
type Config[T any] struct {
	Router        router.Router[T]
	Controller    *tripdesk.Controller
	API           httpapi.Executor
	Broadcast     *tripdesk.BroadcastHook
	ActorResolver ActorResolver
	BasePath      string
	Routes        RouteConfig
}

// RouteConfig customizes the relative paths of the dashboard endpoints.
type RouteConfig struct {
	List       string
	View       string
	Chart      string
	Create     string
	Transition string
	Delete     string
	Logout     string
	WebSocket  string
}

// Register mounts the tripdesk routes (JSON, HTML, mutations, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/office"
	}
	resolver := cfg.ActorResolver
	if resolver == nil {
		resolver = defaultActorResolver
	}

	group := cfg.Router.Group(base)

	// Fixed paths go first so ":resource" does not shadow them.
	group.Post(routes.Logout, router.WrapHandler(func(ctx router.Context) error {
		actor := resolver(ctx)
		if err := cfg.API.Logout(ctx.Context(), commands.LogoutInput{ActorInput: actor, Reason: "user"}); err != nil {
			return respondError(ctx, err, actor.Locale)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "signed_out"})
	}))
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	group.Get(routes.List, router.WrapHandler(func(ctx router.Context) error {
		kind, err := kindParam(ctx)
		if err != nil {
			return respondError(ctx, err, "")
		}
		actor := resolver(ctx)
		view, err := cfg.API.Browse(ctx.Context(), tripdesk.BrowseRequest{
			Kind:   kind,
			Filter: filterFrom(ctx),
			Locale: actor.Locale,
		})
		if err != nil {
			return respondError(ctx, err, actor.Locale)
		}
		return ctx.JSON(http.StatusOK, view)
	}))

	if cfg.Controller != nil {
		group.Get(routes.View, router.WrapHandler(func(ctx router.Context) error {
			kind, err := kindParam(ctx)
			if err != nil {
				return respondError(ctx, err, "")
			}
			actor := resolver(ctx)
			var buf bytes.Buffer
			if err := cfg.Controller.RenderList(ctx.Context(), tripdesk.BrowseRequest{
				Kind:   kind,
				Filter: filterFrom(ctx),
				Locale: actor.Locale,
			}, &buf); err != nil {
				return respondError(ctx, err, actor.Locale)
			}
			ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
			return ctx.Send(buf.Bytes())
		}))
	}

	group.Get(routes.Chart, router.WrapHandler(func(ctx router.Context) error {
		kind, err := kindParam(ctx)
		if err != nil {
			return respondError(ctx, err, "")
		}
		actor := resolver(ctx)
		html, err := cfg.API.Chart(ctx.Context(), tripdesk.StatusChartRequest{
			Kind:   kind,
			Filter: filterFrom(ctx),
			Locale: actor.Locale,
		})
		if err != nil {
			return respondError(ctx, err, actor.Locale)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send([]byte(html))
	}))

	group.Post(routes.Create, router.WrapHandler(func(ctx router.Context) error {
		kind, err := kindParam(ctx)
		if err != nil {
			return respondError(ctx, err, "")
		}
		var payload map[string]any
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		actor := resolver(ctx)
		created, err := cfg.API.Create(ctx.Context(), commands.CreateRecordInput{ActorInput: actor, Kind: kind, Payload: payload})
		if err != nil {
			return respondError(ctx, err, actor.Locale)
		}
		return ctx.JSON(http.StatusCreated, created)
	}))

	group.Post(routes.Transition, router.WrapHandler(func(ctx router.Context) error {
		input, err := transitionInput(ctx)
		if err != nil {
			return respondError(ctx, err, "")
		}
		input.ActorInput = resolver(ctx)
		updated, err := cfg.API.Transition(ctx.Context(), input)
		if err != nil {
			return respondError(ctx, err, input.Locale)
		}
		return ctx.JSON(http.StatusOK, map[string]any{
			"record":       updated,
			"notification": tripdesk.NotificationFor(nil, input.Locale),
		})
	}))

	group.Delete(routes.Delete, router.WrapHandler(func(ctx router.Context) error {
		kind, err := kindParam(ctx)
		if err != nil {
			return respondError(ctx, err, "")
		}
		id := strings.TrimSpace(ctx.Param("id"))
		if id == "" {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "record id is required"})
		}
		actor := resolver(ctx)
		if err := cfg.API.Delete(ctx.Context(), commands.DeleteRecordInput{ActorInput: actor, Kind: kind, ID: id}); err != nil {
			return respondError(ctx, err, actor.Locale)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}))

	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *tripdesk.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func kindParam(ctx router.Context) (tripdesk.ResourceKind, error) {
	return parseKind(ctx.Param("resource"))
}

func parseKind(value string) (tripdesk.ResourceKind, error) {
	kind, ok := tripdesk.ParseKind(value)
	if !ok {
		return "", &tripdesk.UnknownKindError{Kind: tripdesk.ResourceKind(value)}
	}
	return kind, nil
}

func transitionInput(ctx router.Context) (commands.TransitionRecordInput, error) {
	kind, err := kindParam(ctx)
	if err != nil {
		return commands.TransitionRecordInput{}, err
	}
	action, ok := tripdesk.ParseAction(ctx.Param("action"))
	if !ok {
		return commands.TransitionRecordInput{}, tripdesk.ErrUnknownAction
	}
	input := commands.TransitionRecordInput{Kind: kind, ID: ctx.Param("id"), Action: action}
	input.Note = noteFrom(ctx.Body())
	return input, nil
}

func noteFrom(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		Note string `json:"note"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Note)
}

func filterFrom(ctx router.Context) tripdesk.FilterDescriptor {
	return tripdesk.FilterFromQuery(func(key string) string { return ctx.Query(key) })
}

func defaultActorResolver(ctx router.Context) commands.ActorInput {
	var actor commands.ActorInput
	if v, ok := ctx.Locals("user_id").(string); ok {
		actor.UserID = v
	}
	if v, ok := ctx.Locals("tenant_id").(string); ok {
		actor.TenantID = v
	}
	actor.ActorID = actor.UserID
	actor.Locale = inferLocale(ctx)
	return actor
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return parseAcceptLanguage(ctx.Header("Accept-Language"))
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, err error, locale string) error {
	status := httpapi.StatusFor(err)
	if errors.Is(err, tripdesk.ErrUnknownAction) {
		status = http.StatusBadRequest
	}
	return ctx.JSON(status, httpapi.NewErrorBody(err, locale))
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.List == "" {
		routes.List = "/:resource"
	}
	if routes.View == "" {
		routes.View = "/:resource/view"
	}
	if routes.Chart == "" {
		routes.Chart = "/:resource/chart"
	}
	if routes.Create == "" {
		routes.Create = "/:resource"
	}
	if routes.Transition == "" {
		routes.Transition = "/:resource/:id/:action"
	}
	if routes.Delete == "" {
		routes.Delete = "/:resource/:id"
	}
	if routes.Logout == "" {
		routes.Logout = "/session/logout"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/events"
	}
	return routes
}
