package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

// httpError is rendered as a failed envelope.
type httpError struct {
	status  int
	message string
	fields  map[string][]string
}

func (e *httpError) Error() string { return e.message }

func fail(status int, format string, args ...any) *httpError {
	return &httpError{status: status, message: fmt.Sprintf(format, args...)}
}

// table is the type-erased storage of one kind.
type table interface {
	list(filter tripdesk.FilterDescriptor, owner string) any
	get(id, owner string) (any, error)
	create(payload map[string]any, owner string) (any, error)
	update(id, owner string, payload map[string]any) (any, error)
	transition(id, owner string, action tripdesk.Action) (any, error)
	setStatus(id, owner string, status tripdesk.Status) (any, error)
	remove(id, owner string) error
}

// DeleteGuard vetoes a delete with a conflict message.
type DeleteGuard[T tripdesk.Record] func(T) string

type typedTable[T tripdesk.Record] struct {
	kind      tripdesk.ResourceKind
	machine   *tripdesk.StateMachine
	validator tripdesk.PayloadValidator
	guard     DeleteGuard[T]
	now       func() time.Time

	mu    sync.Mutex
	items *tripdesk.Collection[T]
}

func newTable[T tripdesk.Record](kind tripdesk.ResourceKind, seed []T, validator tripdesk.PayloadValidator, guard DeleteGuard[T], now func() time.Time) *typedTable[T] {
	return &typedTable[T]{
		kind:      kind,
		machine:   tripdesk.MachineFor(kind),
		validator: validator,
		guard:     guard,
		now:       now,
		items:     tripdesk.NewCollection(seed),
	}
}

func (t *typedTable[T]) list(filter tripdesk.FilterDescriptor, owner string) any {
	filter = filter.Normalize()
	filter.Search = ""
	matched := tripdesk.FilterRecords(t.items.Items(), tripdesk.And(
		tripdesk.MatchOwner[T](owner),
		tripdesk.MatchFilter[T](filter),
	))
	return tripdesk.PaginateSlice(matched, filter.Page, filter.PerPage)
}

func (t *typedTable[T]) find(id, owner string) (T, error) {
	rec, ok := t.items.Find(id)
	if !ok || !tripdesk.MatchOwner[T](owner)(rec) {
		var zero T
		return zero, fail(http.StatusNotFound, "%s %s not found", t.kind, id)
	}
	return rec, nil
}

func (t *typedTable[T]) get(id, owner string) (any, error) {
	return t.find(id, owner)
}

func (t *typedTable[T]) create(payload map[string]any, owner string) (any, error) {
	if err := t.validator.Validate(t.kind, payload); err != nil {
		herr := fail(http.StatusUnprocessableEntity, "The given data was invalid.")
		var classified tripdesk.ClassifiedError
		if errors.As(err, &classified) {
			herr.fields = classified.FieldErrors()
		}
		return nil, herr
	}
	now := t.now().UTC()
	doc := cloneMap(payload)
	if id, _ := doc["id"].(string); strings.TrimSpace(id) == "" {
		doc["id"] = strings.TrimSuffix(string(t.kind), "s") + "-" + uuid.NewString()[:8]
	}
	if status, _ := doc["status"].(string); status == "" {
		doc["status"] = string(t.machine.Initial())
	}
	doc["created_at"] = now
	doc["updated_at"] = now
	rec, err := decodeRecord[T](doc)
	if err != nil {
		return nil, err
	}
	if !t.machine.Valid(rec.RecordStatus()) {
		return nil, &httpError{
			status:  http.StatusUnprocessableEntity,
			message: "The given data was invalid.",
			fields:  map[string][]string{"status": {fmt.Sprintf("unknown status %q", rec.RecordStatus())}},
		}
	}
	rec = withOwner(rec, owner)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.items.Find(rec.RecordID()); exists {
		return nil, fail(http.StatusConflict, "%s %s already exists", t.kind, rec.RecordID())
	}
	t.items.Prepend(rec)
	return rec, nil
}

func (t *typedTable[T]) update(id, owner string, payload map[string]any) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, err := t.find(id, owner)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("devapi: encode record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("devapi: decode record: %w", err)
	}
	for k, v := range payload {
		switch k {
		case "id", "status", "created_at":
			continue
		}
		doc[k] = v
	}
	doc["updated_at"] = t.now().UTC()
	rec, err := decodeRecord[T](doc)
	if err != nil {
		return nil, err
	}
	t.items.ReplaceByID(rec)
	return rec, nil
}

func (t *typedTable[T]) transition(id, owner string, action tripdesk.Action) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, err := t.find(id, owner)
	if err != nil {
		return nil, err
	}
	to, err := t.machine.Next(current.RecordStatus(), action)
	if err != nil {
		return nil, fail(http.StatusConflict, "Cannot %s %s in status %s", action, id, current.RecordStatus())
	}
	return t.apply(current, to)
}

func (t *typedTable[T]) setStatus(id, owner string, status tripdesk.Status) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, err := t.find(id, owner)
	if err != nil {
		return nil, err
	}
	for _, action := range t.machine.Allowed(current.RecordStatus()) {
		if to, _ := t.machine.Next(current.RecordStatus(), action); to == status {
			return t.apply(current, to)
		}
	}
	return nil, fail(http.StatusConflict, "Cannot move %s from %s to %s", id, current.RecordStatus(), status)
}

func (t *typedTable[T]) apply(current T, to tripdesk.Status) (any, error) {
	updated, err := tripdesk.WithStatus(current, to, t.now())
	if err != nil {
		return nil, err
	}
	t.items.ReplaceByID(updated)
	return updated, nil
}

func (t *typedTable[T]) remove(id, owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, err := t.find(id, owner)
	if err != nil {
		return err
	}
	if t.guard != nil {
		if msg := t.guard(current); msg != "" {
			return fail(http.StatusConflict, "%s", msg)
		}
	}
	t.items.RemoveByID(id)
	return nil
}

func decodeRecord[T tripdesk.Record](doc map[string]any) (T, error) {
	var rec T
	raw, err := json.Marshal(doc)
	if err != nil {
		return rec, fmt.Errorf("devapi: encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fail(http.StatusUnprocessableEntity, "malformed payload: %v", err)
	}
	return rec, nil
}

// withOwner stamps the caller's owner id on records that carry one.
func withOwner[T tripdesk.Record](rec T, owner string) T {
	if owner == "" {
		return rec
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return rec
	}
	for _, key := range []string{"office_id", "operator_id"} {
		if _, ok := doc[key]; ok {
			doc[key] = owner
		}
	}
	out, err := decodeRecord[T](doc)
	if err != nil {
		return rec
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// busInService blocks deleting buses that are still active.
func busInService(b tripdesk.Bus) string {
	if b.Status == tripdesk.StatusActive {
		return "Cannot delete bus with active trips"
	}
	return ""
}

// paidBooking blocks deleting bookings that hold a payment.
func paidBooking(b tripdesk.Booking) string {
	if strings.EqualFold(b.PaymentStatus, "paid") {
		return "Cannot delete a paid booking"
	}
	return ""
}

func seedTables(set *fixtures.Set, validator tripdesk.PayloadValidator, now func() time.Time) map[tripdesk.ResourceKind]table {
	return map[tripdesk.ResourceKind]table{
		tripdesk.KindBookings:  newTable(tripdesk.KindBookings, set.Bookings, validator, paidBooking, now),
		tripdesk.KindBuses:     newTable(tripdesk.KindBuses, set.Buses, validator, busInService, now),
		tripdesk.KindCampaigns: newTable[tripdesk.Campaign](tripdesk.KindCampaigns, set.Campaigns, validator, nil, now),
		tripdesk.KindPackages:  newTable[tripdesk.TourPackage](tripdesk.KindPackages, set.Packages, validator, nil, now),
		tripdesk.KindPayments:  newTable[tripdesk.Payment](tripdesk.KindPayments, set.Payments, validator, nil, now),
		tripdesk.KindDocuments: newTable[tripdesk.Document](tripdesk.KindDocuments, set.Documents, validator, nil, now),
		tripdesk.KindGallery:   newTable[tripdesk.GalleryImage](tripdesk.KindGallery, set.Gallery, validator, nil, now),
	}
}
