package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

type chartService interface {
	StatusChart(ctx context.Context, req tripdesk.StatusChartRequest) (string, error)
}

// ChartQuery renders the status breakdown chart as an HTML fragment.
type ChartQuery struct {
	service chartService
}

// NewChartQuery builds the query.
func NewChartQuery(service chartService) *ChartQuery {
	return &ChartQuery{service: service}
}

var _ gocommand.Querier[tripdesk.StatusChartRequest, string] = (*ChartQuery)(nil)

// Query renders the chart.
func (q *ChartQuery) Query(ctx context.Context, req tripdesk.StatusChartRequest) (string, error) {
	if q.service == nil {
		return "", errors.New("chart query requires service")
	}
	return q.service.StatusChart(ctx, req)
}
