package tripdesk

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func remoteOf(records []Booking, err error) RemoteCall[Booking] {
	return func(context.Context) (Paginated[Booking], error) {
		if err != nil {
			return Paginated[Booking]{}, err
		}
		return PaginateSlice(records, 1, 50), nil
	}
}

func TestResolvePrefersRemote(t *testing.T) {
	remote := []Booking{{ID: "remote-1", Status: StatusPending, OfficeID: "office-9"}}
	res := ResolveWithFallback(context.Background(), remoteOf(remote, nil), sampleBookings(), nil, MatchOwner[Booking]("office-1"))
	if res.UsingFallback {
		t.Fatalf("expected remote data")
	}
	if !reflect.DeepEqual(ids(res.Records), []string{"remote-1"}) {
		t.Fatalf("records = %v", ids(res.Records))
	}
}

func TestResolveFallsBackOnError(t *testing.T) {
	pred := MatchFilter[Booking](FilterDescriptor{Status: StatusPending})
	res := ResolveWithFallback(context.Background(), remoteOf(nil, errUnreachable), sampleBookings(), pred, MatchOwner[Booking]("office-1"))
	if !res.UsingFallback || !errors.Is(res.Err, errUnreachable) {
		t.Fatalf("expected fallback with cause, got %+v", res)
	}
	if !reflect.DeepEqual(ids(res.Records), []string{"booking-2"}) {
		t.Fatalf("fallback must be filtered and owner scoped, got %v", ids(res.Records))
	}
	if res.Meta.Total != 1 || res.Meta.CurrentPage != 1 {
		t.Fatalf("fallback meta = %+v", res.Meta)
	}
}

func TestResolveTreatsMissingPayloadAsFallback(t *testing.T) {
	empty := func(context.Context) (Paginated[Booking], error) { return Paginated[Booking]{}, nil }
	res := ResolveWithFallback(context.Background(), empty, sampleBookings(), nil, nil)
	if !res.UsingFallback || res.Err != nil {
		t.Fatalf("nil data should resolve to fallback without error, got %+v", res)
	}
	if len(res.Records) != len(sampleBookings()) {
		t.Fatalf("records = %d", len(res.Records))
	}
}

func TestResolveEmptyRemotePageIsNotFallback(t *testing.T) {
	res := ResolveWithFallback(context.Background(), remoteOf([]Booking{}, nil), sampleBookings(), nil, nil)
	if res.UsingFallback || len(res.Records) != 0 {
		t.Fatalf("an empty remote page is a real answer, got %+v", res)
	}
}

func TestResolveWithoutRemote(t *testing.T) {
	res := ResolveWithFallback[Booking](context.Background(), nil, sampleBookings(), nil, MatchOwner[Booking]("office-2"))
	if !res.UsingFallback || !reflect.DeepEqual(ids(res.Records), []string{"booking-5"}) {
		t.Fatalf("got %+v", res)
	}
}

func TestFallbackSnapshotIsIsolated(t *testing.T) {
	seed := sampleBookings()
	store := NewFallbackStore(KindBookings, seed)
	seed[0].Status = StatusCancelled

	snap := store.Snapshot()
	if snap[0].Status != StatusConfirmed {
		t.Fatalf("store must clone its seed")
	}
	snap[0].CustomerName = "changed"
	if store.Snapshot()[0].CustomerName != "Amina Rahman" {
		t.Fatalf("snapshot must not alias the store")
	}
	store.Replace(seed[:1])
	if store.Len() != 1 || store.Kind() != KindBookings {
		t.Fatalf("replace: len=%d kind=%s", store.Len(), store.Kind())
	}
}

func TestCollectionMutations(t *testing.T) {
	c := NewCollection(sampleBookings()[:3])
	updated := sampleBookings()[1]
	updated.Status = StatusConfirmed
	if !c.ReplaceByID(updated) {
		t.Fatalf("expected replacement")
	}
	c.Prepend(Booking{ID: "booking-0"})
	c.Append(Booking{ID: "booking-9"})
	if !c.RemoveByID("booking-1") || c.RemoveByID("missing") {
		t.Fatalf("remove semantics broken")
	}
	if got := ids(c.Items()); !reflect.DeepEqual(got, []string{"booking-0", "booking-2", "booking-3", "booking-9"}) {
		t.Fatalf("items = %v", got)
	}
	if rec, ok := c.Find("booking-2"); !ok || rec.Status != StatusConfirmed {
		t.Fatalf("find = %+v %v", rec, ok)
	}
	if c.Len() != 4 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestResolveRemoteMetaFollowsClientNarrowing(t *testing.T) {
	pred := MatchFilter[Booking](FilterDescriptor{Search: "makkah"})
	res := ResolveWithFallback(context.Background(), remoteOf(sampleBookings(), nil), nil, pred, nil)
	if res.UsingFallback {
		t.Fatalf("expected remote data")
	}
	if !reflect.DeepEqual(ids(res.Records), []string{"booking-1", "booking-5"}) {
		t.Fatalf("records = %v", ids(res.Records))
	}
	if res.Meta.Total != 2 || res.Meta.From != 1 || res.Meta.To != 2 || res.Meta.LastPage != 1 {
		t.Fatalf("meta must count the narrowed rows, got %+v", res.Meta)
	}
	if res.Meta.PerPage != 50 {
		t.Fatalf("per page must keep the server value, got %d", res.Meta.PerPage)
	}

	all := ResolveWithFallback(context.Background(), remoteOf(sampleBookings(), nil), nil, nil, nil)
	if all.Meta.Total != 5 || all.Meta.To != 5 {
		t.Fatalf("unfiltered meta = %+v", all.Meta)
	}
}
