package tripdesk

import "context"

// RemoteCall fetches a page of records from the live API.
type RemoteCall[T any] func(ctx context.Context) (Paginated[T], error)

// Resolution is the outcome of one read: either remote data or filtered fallback data.
type Resolution[T any] struct {
	Records       []T
	Meta          PageMeta
	UsingFallback bool
	// Err is the remote failure that caused the fallback, if any.
	Err error
}

// ResolveWithFallback prefers the remote result and substitutes the fallback dataset when
// the call errors or returns no payload. The same predicate narrows both sources; the
// fallback is additionally narrowed by fallbackScope (e.g. owner scoping the API would
// have applied server-side).
func ResolveWithFallback[T any](ctx context.Context, remote RemoteCall[T], fallback []T, pred Predicate[T], fallbackScope Predicate[T]) Resolution[T] {
	var (
		page Paginated[T]
		err  error
	)
	if remote != nil {
		page, err = remote(ctx)
	} else {
		err = errMissingRemote
	}
	if err == nil && page.Data != nil {
		records := FilterRecords(page.Data, pred)
		return Resolution[T]{Records: records, Meta: narrowedMeta(page, len(records))}
	}
	records := FilterRecords(fallback, And(fallbackScope, pred))
	return Resolution[T]{
		Records:       records,
		Meta:          PaginateSlice(records, 1, len(records)).Meta(),
		UsingFallback: true,
		Err:           err,
	}
}

// narrowedMeta keeps the server's metadata unless the predicate dropped rows from the
// page, in which case the counts describe the rows actually shown.
func narrowedMeta[T any](page Paginated[T], shown int) PageMeta {
	meta := page.Meta()
	if shown == len(page.Data) {
		return meta
	}
	meta.CurrentPage = 1
	meta.LastPage = 1
	meta.Total = shown
	meta.From, meta.To = 0, 0
	if shown > 0 {
		meta.From, meta.To = 1, shown
	}
	return meta
}

// PendingResolution is what a page shows before its first remote call settles.
func PendingResolution[T any](fallback []T, pred Predicate[T], fallbackScope Predicate[T]) Resolution[T] {
	records := FilterRecords(fallback, And(fallbackScope, pred))
	return Resolution[T]{
		Records:       records,
		Meta:          PaginateSlice(records, 1, len(records)).Meta(),
		UsingFallback: true,
	}
}
