package tripdesk

import (
	"sync"

	"github.com/jinzhu/copier"
)

// FallbackStore holds a static dataset shaped like the remote payload's data array.
type FallbackStore[T Record] struct {
	mu    sync.RWMutex
	kind  ResourceKind
	items []T
}

// NewFallbackStore builds a store from a dataset. The dataset is cloned.
func NewFallbackStore[T Record](kind ResourceKind, items []T) *FallbackStore[T] {
	return &FallbackStore[T]{kind: kind, items: cloneRecords(items)}
}

// Kind returns the resource kind of the dataset.
func (s *FallbackStore[T]) Kind() ResourceKind { return s.kind }

// Snapshot returns a deep copy of the dataset so callers cannot mutate fixtures.
func (s *FallbackStore[T]) Snapshot() []T {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.items)
}

// Replace swaps the dataset, e.g. after reloading a YAML file.
func (s *FallbackStore[T]) Replace(items []T) {
	s.mu.Lock()
	s.items = cloneRecords(items)
	s.mu.Unlock()
}

// Len returns the dataset size.
func (s *FallbackStore[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func cloneRecords[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i := range items {
		if err := copier.CopyWithOption(&out[i], &items[i], copier.Option{DeepCopy: true}); err != nil {
			out[i] = items[i]
		}
	}
	return out
}
