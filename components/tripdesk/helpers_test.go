package tripdesk

import (
	"context"
	"errors"
	"sync"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleBookings() []Booking {
	return []Booking{
		{ID: "booking-1", Reference: "UMR-1001", CustomerName: "Amina Rahman", TripName: "Makkah - Madinah Express", Seats: 2, Status: StatusConfirmed, PaymentStatus: "paid", OfficeID: "office-1", Timestamps: Timestamps{CreatedAt: day("2026-01-04")}},
		{ID: "booking-2", Reference: "UMR-1002", CustomerName: "Yusuf Karim", TripName: "Jeddah Airport Transfer", Seats: 4, Status: StatusPending, PaymentStatus: "unpaid", OfficeID: "office-1", Timestamps: Timestamps{CreatedAt: day("2026-01-06")}},
		{ID: "booking-3", Reference: "UMR-1003", CustomerName: "Fatima Zahra", TripName: "Taif Day Trip", Seats: 1, Status: StatusCancelled, PaymentStatus: "refunded", OfficeID: "office-1", Timestamps: Timestamps{CreatedAt: day("2026-01-08")}},
		{ID: "booking-4", Reference: "UMR-1004", CustomerName: "Omar Haddad", TripName: "Madinah Ziyarah", Seats: 3, Status: StatusCompleted, PaymentStatus: "paid", OfficeID: "office-1", Timestamps: Timestamps{CreatedAt: day("2026-01-10")}},
		{ID: "booking-5", Reference: "UMR-2001", CustomerName: "Layla Nasser", TripName: "Makkah Shuttle", Seats: 2, Status: StatusPending, PaymentStatus: "unpaid", OfficeID: "office-2", Timestamps: Timestamps{CreatedAt: day("2026-01-12")}},
	}
}

func ids[T Record](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RecordID())
	}
	return out
}

var errUnreachable = errors.New("dial tcp: connection refused")

// fakeRemote serves bookings from memory, applying the server-side filter. A gate, when
// set, blocks List until the test releases it.
type fakeRemote struct {
	mu      sync.Mutex
	records []Booking
	listErr error
	nilData bool
	gate    chan struct{}
	calls   map[string]int
	lists   []FilterDescriptor
}

func newFakeRemote(records []Booking) *fakeRemote {
	return &fakeRemote{records: append([]Booking(nil), records...), calls: map[string]int{}}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) List(ctx context.Context, filter FilterDescriptor) (Paginated[Booking], error) {
	f.mu.Lock()
	f.calls["list"]++
	f.lists = append(f.lists, filter)
	gate, listErr, nilData := f.gate, f.listErr, f.nilData
	records := append([]Booking(nil), f.records...)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Paginated[Booking]{}, ctx.Err()
		}
	}
	if listErr != nil {
		return Paginated[Booking]{}, listErr
	}
	if nilData {
		return Paginated[Booking]{CurrentPage: 1, LastPage: 1}, nil
	}
	server := filter
	server.Search = ""
	server.OwnerID = ""
	matched := FilterRecords(records, MatchFilter[Booking](server))
	return PaginateSlice(matched, filter.Page, filter.PerPage), nil
}

func (f *fakeRemote) Get(_ context.Context, id string) (Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Booking{}, ErrRecordNotFound
}

func (f *fakeRemote) Create(_ context.Context, payload any) (Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	fields, _ := payload.(map[string]any)
	name, _ := fields["customer_name"].(string)
	rec := Booking{ID: "booking-new", CustomerName: name, Status: StatusPending, OfficeID: "office-1"}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	for i, rec := range f.records {
		if rec.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (f *fakeRemote) Transition(_ context.Context, id string, action Action, _ string) (Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["transition"]++
	machine := MachineFor(KindBookings)
	for i, rec := range f.records {
		if rec.ID != id {
			continue
		}
		next, err := machine.Next(rec.Status, action)
		if err != nil {
			return Booking{}, err
		}
		f.records[i].Status = next
		return f.records[i], nil
	}
	return Booking{}, ErrRecordNotFound
}

type recordingHook struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (h *recordingHook) RecordChanged(_ context.Context, event ChangeEvent) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return nil
}

func (h *recordingHook) all() []ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ChangeEvent(nil), h.events...)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (t *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()
}

func (t *recordingTelemetry) has(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		if e == event {
			return true
		}
	}
	return false
}
