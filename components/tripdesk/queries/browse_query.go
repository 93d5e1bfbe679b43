package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

type browseService interface {
	Browse(ctx context.Context, req tripdesk.BrowseRequest) (tripdesk.ListView, error)
}

// BrowseQuery resolves one page of a resource, falling back to the local dataset when the
// upstream is unreachable.
type BrowseQuery struct {
	service browseService
}

// NewBrowseQuery builds the query.
func NewBrowseQuery(service browseService) *BrowseQuery {
	return &BrowseQuery{service: service}
}

var _ gocommand.Querier[tripdesk.BrowseRequest, tripdesk.ListView] = (*BrowseQuery)(nil)

// Query resolves the list view.
func (q *BrowseQuery) Query(ctx context.Context, req tripdesk.BrowseRequest) (tripdesk.ListView, error) {
	if q.service == nil {
		return tripdesk.ListView{}, errors.New("browse query requires service")
	}
	return q.service.Browse(ctx, req)
}
