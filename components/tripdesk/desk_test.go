package tripdesk

import (
	"context"
	"errors"
	"testing"
)

type failingGetRemote struct {
	*fakeRemote
}

func (f failingGetRemote) Get(context.Context, string) (Booking, error) {
	return Booking{}, errUnreachable
}

func TestDeskGetFallsBackToDataset(t *testing.T) {
	desk := NewDesk(DeskOptions[Booking]{
		Kind:     KindBookings,
		Remote:   failingGetRemote{newFakeRemote(nil)},
		Fallback: NewFallbackStore(KindBookings, sampleBookings()),
	})
	rec, err := desk.Get(context.Background(), "booking-3")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.RecordStatus() != StatusCancelled {
		t.Fatalf("record = %+v", rec)
	}
	if _, err := desk.Get(context.Background(), "booking-99"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeskMutationsRequireRemote(t *testing.T) {
	desk := NewDesk(DeskOptions[Booking]{Kind: KindBookings, Fallback: NewFallbackStore(KindBookings, sampleBookings())})
	ctx := context.Background()
	if _, err := desk.Transition(ctx, "booking-2", ActionConfirm, ""); !errors.Is(err, errMissingRemote) {
		t.Fatalf("Transition err = %v", err)
	}
	if _, err := desk.Create(ctx, map[string]any{}); !errors.Is(err, errMissingRemote) {
		t.Fatalf("Create err = %v", err)
	}
	if err := desk.Delete(ctx, "booking-2"); !errors.Is(err, errMissingRemote) {
		t.Fatalf("Delete err = %v", err)
	}
	if desk.Machine() != MachineFor(KindBookings) {
		t.Fatalf("desk should default to the kind's machine")
	}
}

func TestDeskBrowseReportsActionsPerRecord(t *testing.T) {
	desk := NewDesk(DeskOptions[Booking]{Kind: KindBookings, Remote: newFakeRemote(sampleBookings())})
	view, err := desk.Browse(context.Background(), DefaultFilter())
	if err != nil {
		t.Fatalf("Browse returned error: %v", err)
	}
	if view.UsingFallback || len(view.Records) != 5 {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Actions["booking-4"]) != 0 {
		t.Fatalf("completed bookings have no actions, got %v", view.Actions["booking-4"])
	}
	if view.StatusCounts[StatusPending] != 2 {
		t.Fatalf("status counts = %v", view.StatusCounts)
	}
}
