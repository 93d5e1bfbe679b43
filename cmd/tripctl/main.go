package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/pkg/config"
)

type cli struct {
	Config string `short:"c" type:"path" env:"TRIPDESK_CONFIG" help:"Path to a YAML config file."`

	Serve      serveCmd      `cmd:"" help:"Serve the dashboard pages, JSON API, and live events."`
	DevAPI     devAPICmd     `cmd:"" name:"devapi" help:"Run the local upstream API seeded with the fallback datasets."`
	Login      loginCmd      `cmd:"" help:"Sign in and persist the bearer token for the configured area."`
	Logout     logoutCmd     `cmd:"" help:"Revoke the stored token and clear the session."`
	List       listCmd       `cmd:"" help:"List records of a resource with the current filter."`
	Transition transitionCmd `cmd:"" help:"Apply a status action to one record."`
	Dataset    datasetCmd    `cmd:"" help:"Work with fallback dataset files."`
}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Name("tripctl"),
		kong.Description("Operate the tripdesk bus-operator and Umrah-office dashboard."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.Bind(&root),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// load reads the config and installs the process logger. The returned func closes it.
func (c *cli) load() (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tripctl: setup logger: %w", err)
	}
	return cfg, log.Logger, func() { _ = log.Close() }, nil
}

// parseKind accepts "Bookings", "gallery-images" style input and maps it to a known kind.
func parseKind(value string) (tripdesk.ResourceKind, error) {
	normalized := strcase.ToSnake(strings.TrimSpace(value))
	if kind, ok := tripdesk.ParseKind(normalized); ok {
		return kind, nil
	}
	if kind, ok := tripdesk.ParseKind(strings.ReplaceAll(normalized, "_", "")); ok {
		return kind, nil
	}
	return "", fmt.Errorf("tripctl: unknown resource %q (known: %s)", value, knownKinds())
}

func parseAction(value string) (tripdesk.Action, error) {
	if action, ok := tripdesk.ParseAction(strcase.ToSnake(strings.TrimSpace(value))); ok {
		return action, nil
	}
	return "", fmt.Errorf("tripctl: unknown action %q", value)
}

func knownKinds() string {
	kinds := tripdesk.Kinds()
	out := make([]string, len(kinds))
	for i, kind := range kinds {
		out[i] = string(kind)
	}
	return strings.Join(out, ", ")
}
