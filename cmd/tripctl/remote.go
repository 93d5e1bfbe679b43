package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
	facade "github.com/goliatone/go-tripdesk/pkg/tripdesk"
)

type loginCmd struct {
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TRIPDESK_PASSWORD" help:"Account password."`
}

func (cmd *loginCmd) Run(ctx context.Context, root *cli) error {
	app, done, err := root.app(ctx)
	if err != nil {
		return err
	}
	defer done()
	result, err := app.Login(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Signed in as %s (%s, owner %s)\n", result.Account.Email, result.Account.Area, result.Account.OwnerID)
	return nil
}

type logoutCmd struct{}

func (cmd *logoutCmd) Run(ctx context.Context, root *cli) error {
	app, done, err := root.app(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "✓ Signed out")
	return nil
}

type listCmd struct {
	Resource      string `arg:"" help:"Resource kind (bookings, buses, campaigns, packages, payments, documents, gallery)."`
	Status        string `default:"all" help:"Status filter."`
	PaymentStatus string `name:"payment-status" help:"Payment status filter (bookings)."`
	Search        string `help:"Free-text search applied locally."`
	Page          int    `default:"1" help:"Page number."`
	PerPage       int    `name:"per-page" help:"Page size."`
	JSON          bool   `name:"json" help:"Print the list view as JSON."`
}

func (cmd *listCmd) Run(ctx context.Context, root *cli) error {
	kind, err := parseKind(cmd.Resource)
	if err != nil {
		return err
	}
	app, done, err := root.app(ctx)
	if err != nil {
		return err
	}
	defer done()

	filter := tripdesk.FilterDescriptor{
		Status:        tripdesk.Status(cmd.Status),
		PaymentStatus: cmd.PaymentStatus,
		Search:        cmd.Search,
		Page:          cmd.Page,
		PerPage:       cmd.PerPage,
	}.Normalize()
	view, err := app.Executor.Browse(ctx, tripdesk.BrowseRequest{Kind: kind, Filter: filter, Locale: app.Config.Server.Locale})
	if err != nil {
		return err
	}
	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return printView(os.Stdout, view)
}

type transitionCmd struct {
	Resource string `arg:"" help:"Resource kind."`
	ID       string `arg:"" help:"Record id."`
	Action   string `arg:"" help:"Action (confirm, cancel, approve, reject, feature, ...)."`
	Note     string `help:"Optional note sent with the status change."`
}

func (cmd *transitionCmd) Run(ctx context.Context, root *cli) error {
	kind, err := parseKind(cmd.Resource)
	if err != nil {
		return err
	}
	action, err := parseAction(cmd.Action)
	if err != nil {
		return err
	}
	app, done, err := root.app(ctx)
	if err != nil {
		return err
	}
	defer done()

	record, err := app.Executor.Transition(ctx, commands.TransitionRecordInput{
		ActorInput: commands.ActorInput{TenantID: app.Config.Server.OwnerID, Locale: app.Config.Server.Locale},
		Kind:       kind,
		ID:         cmd.ID,
		Action:     action,
		Note:       cmd.Note,
	})
	if err != nil {
		note := app.Service.Notification(ctx, err, app.Config.Server.Locale)
		return fmt.Errorf("%s: %w", note.Message, err)
	}
	fmt.Fprintf(os.Stdout, "✓ %s %s is now %s\n", kind, cmd.ID, record.RecordStatus())
	return nil
}

func (c *cli) app(ctx context.Context) (*facade.App, func(), error) {
	cfg, logger, closeLog, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	app, err := facade.New(ctx, cfg, facade.Options{Logger: logger})
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return app, func() {
		app.Close()
		closeLog()
	}, nil
}

func printView(w io.Writer, view tripdesk.ListView) error {
	if view.Banner != "" {
		fmt.Fprintln(w, view.Banner)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tACTIONS")
	for _, rec := range view.Records {
		actions := view.Actions[rec.RecordID()]
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\n", rec.RecordID(), rec.RecordStatus(), names)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	meta := view.Pagination
	fmt.Fprintf(w, "page %d/%d, %d total\n", meta.CurrentPage, meta.LastPage, meta.Total)
	return nil
}
