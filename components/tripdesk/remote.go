package tripdesk

import "context"

// RemoteReader lists and fetches records of one kind.
type RemoteReader[T Record] interface {
	List(ctx context.Context, filter FilterDescriptor) (Paginated[T], error)
	Get(ctx context.Context, id string) (T, error)
}

// RemoteWriter mutates records of one kind.
type RemoteWriter[T Record] interface {
	Create(ctx context.Context, payload any) (T, error)
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, action Action, note string) (T, error)
}

// RemoteResource is the full client surface a page needs for one kind.
type RemoteResource[T Record] interface {
	RemoteReader[T]
	RemoteWriter[T]
}
