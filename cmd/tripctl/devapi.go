package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-tripdesk/pkg/devapi"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

type devAPICmd struct {
	Addr     string        `help:"Listen address (overrides devapi.addr)."`
	Latency  time.Duration `help:"Delay added to every response."`
	FailRate float64       `name:"fail-rate" help:"Share of list reads answered with 503, between 0 and 1."`
}

func (cmd *devAPICmd) Run(ctx context.Context, root *cli) error {
	cfg, logger, closeLog, err := root.load()
	if err != nil {
		return err
	}
	defer closeLog()

	data, err := fixtures.Load(cfg.Fallback.Dir)
	if err != nil {
		return fmt.Errorf("tripctl: load datasets: %w", err)
	}
	latency := cfg.DevAPI.Latency
	if cmd.Latency > 0 {
		latency = cmd.Latency
	}
	failRate := cfg.DevAPI.FailRate
	if cmd.FailRate > 0 {
		failRate = cmd.FailRate
	}
	handler, err := devapi.New(devapi.Config{
		Secret:   cfg.DevAPI.Secret,
		TokenTTL: cfg.DevAPI.TokenTTL,
		Accounts: cfg.DevAPI.Accounts,
		Latency:  latency,
		FailRate: failRate,
		Data:     data,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	addr := cfg.DevAPI.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devapi listening", "addr", addr, "accounts", len(cfg.DevAPI.Accounts))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("tripctl: devapi: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
