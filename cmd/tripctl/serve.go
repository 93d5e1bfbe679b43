package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-tripdesk/components/tripdesk/gorouter"
	"github.com/goliatone/go-tripdesk/components/tripdesk/httpapi"
	"github.com/goliatone/go-tripdesk/pkg/activity"
	"github.com/goliatone/go-tripdesk/pkg/tripdesk"
)

type serveCmd struct {
	Addr    string `help:"Listen address (overrides server.addr)."`
	Offline bool   `help:"Serve every resource from in-memory mocks instead of the upstream API."`
	// The http transport also serves the Server-Sent Events stream, which needs a
	// flushing net/http writer.
	Transport string `enum:"fiber,http" default:"fiber" help:"Server stack: fiber (go-router) or http (net/http with SSE)."`
}

func (cmd *serveCmd) Run(ctx context.Context, root *cli) error {
	cfg, logger, closeLog, err := root.load()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hooks activity.Hooks
	if cfg.Activity.Enabled {
		hooks = activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) error {
			logger.Info("activity", "verb", evt.Verb, "object", evt.ObjectType, "id", evt.ObjectID, "channel", evt.Channel)
			return nil
		})}
	}
	app, err := tripdesk.New(ctx, cfg, tripdesk.Options{Offline: cmd.Offline, ActivityHooks: hooks, Logger: logger})
	if err != nil {
		return err
	}
	defer app.Close()

	addr := cfg.Server.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}
	if cmd.Transport == "http" {
		return serveHTTP(ctx, logger, addr, newHTTPHandler(app))
	}
	return serveFiber(ctx, logger, addr, app)
}

func serveFiber(ctx context.Context, logger *slog.Logger, addr string, app *tripdesk.App) error {
	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: app.Controller,
		API:        app.Executor,
		Broadcast:  app.Broadcast,
		BasePath:   app.Session.Area().BasePath(),
	}); err != nil {
		return fmt.Errorf("tripctl: register routes: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", addr, "area", app.Session.Area(), "transport", "fiber")
		errCh <- server.Serve(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("tripctl: serve: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}

// newHTTPHandler mounts the JSON API and the live event endpoints on a net/http mux.
func newHTTPHandler(app *tripdesk.App) http.Handler {
	mux := http.NewServeMux()
	handlers := &httpapi.Handlers{API: app.Executor, Broadcast: app.Broadcast}
	handlers.Mount(mux, app.Session.Area().BasePath())
	return mux
}

func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", addr, "transport", "http")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("tripctl: serve: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
