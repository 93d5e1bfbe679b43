package tripdesk

import (
	"strings"
	"time"
)

// Predicate decides whether a record is visible.
type Predicate[T any] func(T) bool

// MatchFilter builds the client-side predicate for a descriptor: status equality,
// payment status equality, creation date range, and case-insensitive substring search
// over SearchFields.
func MatchFilter[T Record](f FilterDescriptor) Predicate[T] {
	f = f.Normalize()
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	from, to := parseDay(f.FromDate), parseDay(f.ToDate)
	return func(rec T) bool {
		if f.Status != StatusAll && rec.RecordStatus() != f.Status {
			return false
		}
		if !from.IsZero() || !to.IsZero() {
			dated, ok := any(rec).(Dated)
			if ok && !inRange(dated.Created(), from, to) {
				return false
			}
		}
		if f.PaymentStatus != "" {
			ps, ok := any(rec).(PaymentStatused)
			if ok && !strings.EqualFold(ps.PaymentState(), f.PaymentStatus) {
				return false
			}
		}
		if needle == "" {
			return true
		}
		for _, field := range rec.SearchFields() {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
}

// parseDay reads YYYY-MM-DD. Unparseable values disable that bound.
func parseDay(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}
	}
	return day
}

// inRange treats to as inclusive of the whole day.
func inRange(at, from, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && !at.Before(to.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// MatchOwner narrows records to ownerID when the record type is Owned. Empty ownerID matches all.
func MatchOwner[T Record](ownerID string) Predicate[T] {
	return func(rec T) bool {
		if ownerID == "" {
			return true
		}
		owned, ok := any(rec).(Owned)
		if !ok {
			return true
		}
		return owned.OwnerID() == ownerID
	}
}

// And combines predicates; nil predicates are ignored.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(rec T) bool {
		for _, p := range preds {
			if p != nil && !p(rec) {
				return false
			}
		}
		return true
	}
}

// FilterRecords returns the records matching pred, preserving order.
func FilterRecords[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}
