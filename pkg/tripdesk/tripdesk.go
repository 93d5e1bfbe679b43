// Package tripdesk assembles the dashboard from configuration: session, remote client,
// fallback datasets, desks, service, commands, and the live event hook.
package tripdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	core "github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
	"github.com/goliatone/go-tripdesk/components/tripdesk/gorouter"
	"github.com/goliatone/go-tripdesk/components/tripdesk/httpapi"
	"github.com/goliatone/go-tripdesk/components/tripdesk/queries"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
	"github.com/goliatone/go-tripdesk/pkg/activity"
	"github.com/goliatone/go-tripdesk/pkg/api"
	"github.com/goliatone/go-tripdesk/pkg/config"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

// Service exposes the underlying components/tripdesk.Service type.
type Service = core.Service

// NewService proxies to the internal constructor.
func NewService(opts core.Options) *Service {
	return core.NewService(opts)
}

// Options customizes how an App is built beyond what the config file covers.
type Options struct {
	// Store overrides the token store chosen from session.store_path.
	Store session.TokenStore
	// HTTPClient overrides the transport of the remote client.
	HTTPClient *http.Client
	// Offline serves every kind from in-memory mock resources seeded with the fixtures
	// instead of the upstream API.
	Offline       bool
	ActivityHooks activity.Hooks
	Logger        *slog.Logger
}

// App is a fully wired dashboard for one tenant area.
type App struct {
	Config     *config.Config
	Session    *session.Session
	Client     *api.Client
	Data       *fixtures.Set
	Registry   *core.Registry
	Service    *Service
	Controller *core.Controller
	Broadcast  *core.BroadcastHook
	Executor   *httpapi.CommandExecutor

	stop []func()
}

// New builds an App from cfg. A persisted token is restored when present.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	telemetry := core.LogTelemetry{Logger: logger}

	store, err := tokenStore(cfg, opts.Store)
	if err != nil {
		return nil, err
	}
	sess := session.New(session.Options{Area: cfg.Area(), Store: store, Logger: logger})
	if err := sess.Restore(ctx); err != nil && !errors.Is(err, session.ErrNoToken) {
		logger.Warn("tripdesk: restore session failed", "error", err)
	}

	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Session:    sess,
		HTTPClient: opts.HTTPClient,
		Timeout:    cfg.API.Timeout,
		Retry: api.RetryPolicy{
			MaxAttempts:     cfg.API.Retry.MaxAttempts,
			InitialInterval: cfg.API.Retry.InitialInterval,
			MaxInterval:     cfg.API.Retry.MaxInterval,
		},
		CacheTTL:  cfg.API.CacheTTL,
		Telemetry: telemetry,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("tripdesk: build client: %w", err)
	}

	data, err := fixtures.Load(cfg.Fallback.Dir)
	if err != nil {
		return nil, fmt.Errorf("tripdesk: load fallback data: %w", err)
	}

	validator := core.NewJSONSchemaValidator(core.DefaultSchemas())
	registry := core.NewRegistry()
	if err := RegisterDesks(registry, DeskSources{
		Client:    client,
		Data:      data,
		Offline:   opts.Offline,
		Validator: validator,
		Telemetry: telemetry,
		Logger:    logger,
	}); err != nil {
		return nil, err
	}

	broadcast := core.NewBroadcastHook()
	service := core.NewService(core.Options{
		Resources:     registry,
		ChangeHook:    broadcast,
		ActivityHooks: opts.ActivityHooks,
		ActivityConfig: activity.Config{
			Enabled: cfg.Activity.Enabled,
			Channel: cfg.Activity.Channel,
		},
		Telemetry: telemetry,
		Logger:    logger,
		OwnerID:   cfg.Server.OwnerID,
	})

	renderer, err := core.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("tripdesk: build renderer: %w", err)
	}
	controller := core.NewController(core.ControllerOptions{Service: service, Renderer: renderer})

	app := &App{
		Config:     cfg,
		Session:    sess,
		Client:     client,
		Data:       data,
		Registry:   registry,
		Service:    service,
		Controller: controller,
		Broadcast:  broadcast,
		Executor: &httpapi.CommandExecutor{
			BrowseQuery:       queries.NewBrowseQuery(service),
			ChartQuery:        queries.NewChartQuery(service),
			TransitionCommand: commands.NewTransitionRecordCommand(service, telemetry),
			CreateCommand:     commands.NewCreateRecordCommand(service, telemetry),
			DeleteCommand:     commands.NewDeleteRecordCommand(service, telemetry),
			LogoutCommand:     commands.NewLogoutCommand(sessionLogout{client: client, session: sess}, telemetry),
		},
	}
	app.stop = append(app.stop, gorouter.BridgeSession(sess, broadcast))
	return app, nil
}

// Login authenticates against the upstream API and stores the token in the session.
func (a *App) Login(ctx context.Context, email, password string) (api.LoginResult, error) {
	result, err := a.Client.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return result, err
	}
	if err := a.Session.SetToken(ctx, result.Token); err != nil {
		return result, err
	}
	a.Client.Cache().Clear()
	return result, nil
}

// Logout revokes the token upstream (best effort) and clears the session.
func (a *App) Logout(ctx context.Context) error {
	return sessionLogout{client: a.Client, session: a.Session}.Logout(ctx)
}

// Close detaches session listeners.
func (a *App) Close() {
	for _, fn := range a.stop {
		fn()
	}
	a.stop = nil
}

type sessionLogout struct {
	client  *api.Client
	session *session.Session
}

func (s sessionLogout) Logout(ctx context.Context) error {
	if s.session.Authenticated() {
		if err := s.client.Logout(ctx); err != nil {
			slog.Default().Debug("tripdesk: upstream logout failed", "error", err)
		}
	}
	return s.session.Logout(ctx)
}

func tokenStore(cfg *config.Config, override session.TokenStore) (session.TokenStore, error) {
	if override != nil {
		return override, nil
	}
	path := cfg.Session.StorePath
	if path == "" {
		var err error
		if path, err = session.DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	return session.NewFileStore(path), nil
}
