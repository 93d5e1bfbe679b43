package tripdesk

import (
	"fmt"
	"log/slog"
	"net/http"

	core "github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/pkg/api"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

// Endpoints returns the upstream endpoint of every resource kind. Documents and payments
// change status through the status field, the rest through action sub-paths.
func Endpoints() map[core.ResourceKind]api.Endpoint {
	return map[core.ResourceKind]api.Endpoint{
		core.KindBookings:  {Kind: core.KindBookings},
		core.KindBuses:     {Kind: core.KindBuses, UpdateMethod: http.MethodPost},
		core.KindCampaigns: {Kind: core.KindCampaigns},
		core.KindPackages:  {Kind: core.KindPackages, UpdateMethod: http.MethodPatch},
		core.KindPayments:  {Kind: core.KindPayments, TransitionStyle: api.TransitionStatusField},
		core.KindDocuments: {Kind: core.KindDocuments, TransitionStyle: api.TransitionStatusField},
		core.KindGallery:   {Kind: core.KindGallery},
	}
}

// DeskSources are the collaborators every desk is built from.
type DeskSources struct {
	Client    *api.Client
	Data      *fixtures.Set
	Offline   bool
	Validator core.PayloadValidator
	Telemetry core.Telemetry
	Logger    *slog.Logger
}

// RegisterDesks registers one desk per resource kind on reg.
func RegisterDesks(reg *core.Registry, src DeskSources) error {
	if src.Data == nil {
		data, err := fixtures.Default()
		if err != nil {
			return err
		}
		src.Data = data
	}
	endpoints := Endpoints()
	steps := []func() error{
		func() error { return registerDesk(reg, src, endpoints[core.KindBookings], src.Data.Bookings) },
		func() error { return registerDesk(reg, src, endpoints[core.KindBuses], src.Data.Buses) },
		func() error { return registerDesk(reg, src, endpoints[core.KindCampaigns], src.Data.Campaigns) },
		func() error { return registerDesk(reg, src, endpoints[core.KindPackages], src.Data.Packages) },
		func() error { return registerDesk(reg, src, endpoints[core.KindPayments], src.Data.Payments) },
		func() error { return registerDesk(reg, src, endpoints[core.KindDocuments], src.Data.Documents) },
		func() error { return registerDesk(reg, src, endpoints[core.KindGallery], src.Data.Gallery) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func registerDesk[T core.Record](reg *core.Registry, src DeskSources, endpoint api.Endpoint, seed []T) error {
	var remote core.RemoteResource[T]
	if src.Offline || src.Client == nil {
		remote = api.NewMockResource(endpoint.Kind, seed)
	} else {
		res, err := api.NewResource[T](src.Client, endpoint)
		if err != nil {
			return fmt.Errorf("tripdesk: %s endpoint: %w", endpoint.Kind, err)
		}
		remote = res
	}
	return reg.Register(core.NewDesk(core.DeskOptions[T]{
		Kind:      endpoint.Kind,
		Remote:    remote,
		Fallback:  core.NewFallbackStore(endpoint.Kind, seed),
		Validator: src.Validator,
		Telemetry: src.Telemetry,
		Logger:    src.Logger,
	}))
}
