package tripdesk

import (
	"net/url"
	"testing"
)

func TestFilterNormalizeFillsDefaults(t *testing.T) {
	got := FilterDescriptor{Status: " Confirmed ", PaymentStatus: "ALL", Page: -2}.Normalize()
	if got.Status != StatusConfirmed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.PaymentStatus != "" {
		t.Fatalf("payment status all should clear the filter, got %q", got.PaymentStatus)
	}
	if got.Page != 1 || got.PerPage != DefaultPerPage {
		t.Fatalf("pagination = %d/%d", got.Page, got.PerPage)
	}
}

func TestFilterQueryKeepsSearchAndOwnerLocal(t *testing.T) {
	q := FilterDescriptor{Status: StatusPending, Search: "yusuf", OwnerID: "office-1", Page: 2, PerPage: 5}.Query()
	if q.Get("status") != "pending" || q.Get("page") != "2" || q.Get("per_page") != "5" {
		t.Fatalf("unexpected query %v", q.Encode())
	}
	if q.Has("search") || q.Has("owner_id") {
		t.Fatalf("search and owner must not be sent upstream: %v", q.Encode())
	}
	if DefaultFilter().Query().Has("status") {
		t.Fatalf("status all must not be sent upstream")
	}
}

func TestFilterFromQueryRoundTrip(t *testing.T) {
	in := FilterDescriptor{Status: StatusCancelled, PaymentStatus: "refunded", FromDate: "2026-01-01", Page: 3, PerPage: 10}.Normalize()
	q := in.Query()
	q.Set("search", "taif")
	got := FilterFromQuery(url.Values(q).Get)
	in.Search = "taif"
	if got != in {
		t.Fatalf("FilterFromQuery = %+v, want %+v", got, in)
	}
}

func TestFilterStateSetStatusIsIdempotent(t *testing.T) {
	state := NewFilterState(DefaultFilter())
	var changes []FilterChange
	state.Subscribe(func(c FilterChange) { changes = append(changes, c) })

	state.SetFilterStatus(StatusConfirmed)
	first := state.Descriptor()
	state.SetFilterStatus(StatusConfirmed)

	if state.Descriptor() != first {
		t.Fatalf("second SetFilterStatus changed state: %+v", state.Descriptor())
	}
	if len(changes) != 1 || !changes[0].Refetch {
		t.Fatalf("expected exactly one refetching change, got %+v", changes)
	}
}

func TestFilterStateStatusChangeReturnsToFirstPage(t *testing.T) {
	state := NewFilterState(DefaultFilter())
	state.SetPage(3)
	state.SetFilterStatus(StatusPending)
	if got := state.Descriptor().Page; got != 1 {
		t.Fatalf("page = %d, want 1", got)
	}
}

func TestFilterStateSearchDoesNotRefetch(t *testing.T) {
	state := NewFilterState(DefaultFilter())
	var changes []FilterChange
	unsubscribe := state.Subscribe(func(c FilterChange) { changes = append(changes, c) })

	state.SetSearchQuery("amina")
	if len(changes) != 1 || changes[0].Refetch {
		t.Fatalf("search must notify without refetch, got %+v", changes)
	}

	unsubscribe()
	state.SetSearchQuery("omar")
	if len(changes) != 1 {
		t.Fatalf("unsubscribed listener was called")
	}
}

func TestFilterStateResetIsOneUpdate(t *testing.T) {
	initial := FilterDescriptor{PerPage: 10}
	state := NewFilterState(initial)
	state.SetFilterStatus(StatusCancelled)
	state.SetSearchQuery("taif")
	state.SetDateRange("2026-01-01", "2026-01-31")

	var changes int
	state.Subscribe(func(FilterChange) { changes++ })
	state.ResetFilters()

	if changes != 1 {
		t.Fatalf("reset should notify once, got %d", changes)
	}
	if state.Descriptor() != initial.Normalize() {
		t.Fatalf("reset state = %+v", state.Descriptor())
	}
	state.ResetFilters()
	if changes != 1 {
		t.Fatalf("resetting an already reset state must not notify")
	}
}

func TestFilterStatePerPageResetsPage(t *testing.T) {
	state := NewFilterState(DefaultFilter())
	state.SetPage(4)
	state.SetPerPage(50)
	got := state.Descriptor()
	if got.Page != 1 || got.PerPage != 50 {
		t.Fatalf("descriptor = %+v", got)
	}
}
