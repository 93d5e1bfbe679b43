package tripdesk

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// FilterDescriptor is the set of active filter, search, and pagination parameters of a list view.
type FilterDescriptor struct {
	Status        Status `json:"status,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	FromDate      string `json:"from_date,omitempty"`
	ToDate        string `json:"to_date,omitempty"`
	Search        string `json:"search,omitempty"`
	Page          int    `json:"page,omitempty"`
	PerPage       int    `json:"per_page,omitempty"`
	// OwnerID scopes fallback data locally. The API scopes by token server-side.
	OwnerID string `json:"owner_id,omitempty"`
}

// DefaultFilter returns the "all" descriptor.
func DefaultFilter() FilterDescriptor {
	return FilterDescriptor{Status: StatusAll, Page: 1, PerPage: DefaultPerPage}
}

// Normalize fills defaults and trims free text.
func (f FilterDescriptor) Normalize() FilterDescriptor {
	if f.Status == "" {
		f.Status = StatusAll
	}
	f.Status = Status(strings.ToLower(strings.TrimSpace(string(f.Status))))
	f.PaymentStatus = strings.ToLower(strings.TrimSpace(f.PaymentStatus))
	if f.PaymentStatus == string(StatusAll) {
		f.PaymentStatus = ""
	}
	f.FromDate = strings.TrimSpace(f.FromDate)
	f.ToDate = strings.TrimSpace(f.ToDate)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	return f
}

// Query encodes the server-side part of the descriptor. Search and OwnerID stay local.
func (f FilterDescriptor) Query() url.Values {
	f = f.Normalize()
	q := url.Values{}
	if f.Status != StatusAll {
		q.Set("status", string(f.Status))
	}
	if f.PaymentStatus != "" {
		q.Set("payment_status", f.PaymentStatus)
	}
	if f.FromDate != "" {
		q.Set("from_date", f.FromDate)
	}
	if f.ToDate != "" {
		q.Set("to_date", f.ToDate)
	}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("per_page", strconv.Itoa(f.PerPage))
	return q
}

// FilterFromQuery decodes a descriptor from query parameters (the inverse of Query plus search).
func FilterFromQuery(get func(string) string) FilterDescriptor {
	f := FilterDescriptor{
		Status:        Status(get("status")),
		PaymentStatus: get("payment_status"),
		FromDate:      get("from_date"),
		ToDate:        get("to_date"),
		Search:        get("search"),
		OwnerID:       get("owner_id"),
	}
	f.Page, _ = strconv.Atoi(get("page"))
	f.PerPage, _ = strconv.Atoi(get("per_page"))
	return f.Normalize()
}

func (f FilterDescriptor) serverKey() string {
	return f.Query().Encode()
}

// FilterChange is delivered to FilterState subscribers.
type FilterChange struct {
	Previous FilterDescriptor
	Current  FilterDescriptor
	// Refetch is true when the server-side parameters changed.
	Refetch bool
}

// FilterState holds a page's filter, search, and pagination state.
type FilterState struct {
	mu      sync.Mutex
	current FilterDescriptor
	base    FilterDescriptor
	subs    map[int]func(FilterChange)
	next    int
}

// NewFilterState builds a state whose reset target is initial (normalized).
func NewFilterState(initial FilterDescriptor) *FilterState {
	initial = initial.Normalize()
	return &FilterState{
		current: initial,
		base:    initial,
		subs:    make(map[int]func(FilterChange)),
	}
}

// Descriptor returns a snapshot of the current state.
func (s *FilterState) Descriptor() FilterDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn for every change and returns an unsubscribe func.
func (s *FilterState) Subscribe(fn func(FilterChange)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetFilterStatus replaces the status filter and returns to the first page.
func (s *FilterState) SetFilterStatus(status Status) {
	s.update(func(f *FilterDescriptor) {
		if f.Status != status {
			f.Page = 1
		}
		f.Status = status
	})
}

// SetPaymentStatus replaces the payment status filter.
func (s *FilterState) SetPaymentStatus(value string) {
	s.update(func(f *FilterDescriptor) {
		if f.PaymentStatus != value {
			f.Page = 1
		}
		f.PaymentStatus = value
	})
}

// SetDateRange replaces the date range filter (YYYY-MM-DD, empty for open ends).
func (s *FilterState) SetDateRange(from, to string) {
	s.update(func(f *FilterDescriptor) {
		f.FromDate = from
		f.ToDate = to
	})
}

// SetSearchQuery replaces the search text. Searching never hits the server.
func (s *FilterState) SetSearchQuery(query string) {
	s.update(func(f *FilterDescriptor) { f.Search = query })
}

// SetPage moves to page n.
func (s *FilterState) SetPage(n int) {
	s.update(func(f *FilterDescriptor) { f.Page = n })
}

// SetPerPage changes the page size and returns to the first page.
func (s *FilterState) SetPerPage(n int) {
	s.update(func(f *FilterDescriptor) {
		f.PerPage = n
		f.Page = 1
	})
}

// ResetFilters restores every field to its default in one update.
func (s *FilterState) ResetFilters() {
	s.update(func(f *FilterDescriptor) { *f = s.base })
}

func (s *FilterState) update(mutate func(*FilterDescriptor)) {
	s.mu.Lock()
	prev := s.current
	next := prev
	mutate(&next)
	next = next.Normalize()
	if next == prev {
		s.mu.Unlock()
		return
	}
	s.current = next
	subs := make([]func(FilterChange), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	change := FilterChange{Previous: prev, Current: next, Refetch: prev.serverKey() != next.serverKey()}
	for _, fn := range subs {
		fn(change)
	}
}
