package goadmin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ettle/strcase"

	core "github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
)

// MenuBuilder ensures desk entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures desk link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the tripdesk service into an admin shell.
type Config struct {
	EnableDesks bool
	MenuCode    string
	MenuBuilder MenuBuilder
	Service     *core.Service
	// Area selects the route prefix, /office or /bus-operator.
	Area session.Area
	// Icons overrides the icon per kind.
	Icons map[core.ResourceKind]string
	// Kinds restricts the seeded entries. Empty seeds every registered kind.
	Kinds []core.ResourceKind
}

var defaultIcons = map[core.ResourceKind]string{
	core.KindBookings:  "ticket",
	core.KindBuses:     "bus",
	core.KindCampaigns: "megaphone",
	core.KindPackages:  "map",
	core.KindPayments:  "credit-card",
	core.KindDocuments: "file-check",
	core.KindGallery:   "image",
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed desk menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableDesks && cfg.Service == nil {
		return nil, errors.New("goadmin: tripdesk service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.Area == "" {
		cfg.Area = session.AreaOffice
	}
	return &Admin{cfg: cfg}, nil
}

// Service exposes the configured service when desks are enabled.
func (a *Admin) Service() *core.Service {
	if !a.cfg.EnableDesks {
		return nil
	}
	return a.cfg.Service
}

// MenuItems lists one entry per desk, ordered by kind.
func (a *Admin) MenuItems() []MenuItem {
	if !a.cfg.EnableDesks {
		return nil
	}
	kinds := a.cfg.Kinds
	if len(kinds) == 0 {
		kinds = a.cfg.Service.Registry().Kinds()
	}
	kinds = append([]core.ResourceKind(nil), kinds...)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	prefix := strings.TrimSuffix(a.cfg.Area.BasePath(), "/")
	items := make([]MenuItem, 0, len(kinds))
	for i, kind := range kinds {
		icon := a.cfg.Icons[kind]
		if icon == "" {
			icon = defaultIcons[kind]
		}
		if icon == "" {
			icon = "list"
		}
		items = append(items, MenuItem{
			Label:    strcase.ToCase(string(kind), strcase.TitleCase, ' '),
			Route:    fmt.Sprintf("%s/%s/view", prefix, kind),
			Icon:     icon,
			Position: (i + 1) * 10,
		})
	}
	return items
}

// Bootstrap seeds menu entries when desk support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableDesks || a.cfg.MenuBuilder == nil {
		return nil
	}
	for _, item := range a.MenuItems() {
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: seed %s: %w", item.Label, err)
		}
	}
	return nil
}
