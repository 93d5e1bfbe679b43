package tripdesk

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "320px"

// StatusChartRequest asks for a status breakdown of one resource page.
type StatusChartRequest struct {
	Kind       ResourceKind
	Filter     FilterDescriptor
	Locale     string
	AssetsHost string
}

// StatusChart renders a pie chart of the statuses on the resolved page. The chart is cached
// per view and redrawn only when the view's status tally changes.
func (s *Service) StatusChart(ctx context.Context, req StatusChartRequest) (string, error) {
	view, err := s.Browse(ctx, BrowseRequest{Kind: req.Kind, Filter: req.Filter, Locale: req.Locale})
	if err != nil {
		return "", err
	}
	var order []Status
	if res, ok := s.opts.Resources.Resource(req.Kind); ok && res.Machine() != nil {
		order = res.Machine().States()
	}
	return s.opts.ChartCache.Chart(req, view.StatusCounts, func() (string, error) {
		return RenderStatusChart(string(req.Kind), view.Banner, order, view.StatusCounts, req.AssetsHost)
	})
}

// RenderStatusChart draws counts as a pie. Statuses listed in order come first; any
// others follow in map order.
func RenderStatusChart(title, subtitle string, order []Status, counts map[Status]int, assetsHost string) (string, error) {
	pie := charts.NewPie()
	initOpts := opts.Initialization{
		Theme:  types.ThemeWesteros,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if assetsHost != "" {
		initOpts.AssetsHost = assetsHost
	}
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("status", toPieData(order, counts))

	var buf bytes.Buffer
	if err := pie.Render(&buf); err != nil {
		return "", fmt.Errorf("tripdesk: render status chart: %w", err)
	}
	return buf.String(), nil
}

func toPieData(order []Status, counts map[Status]int) []opts.PieData {
	data := make([]opts.PieData, 0, len(counts))
	seen := make(map[Status]struct{}, len(order))
	for _, status := range order {
		seen[status] = struct{}{}
		if n := counts[status]; n > 0 {
			data = append(data, opts.PieData{Name: string(status), Value: n})
		}
	}
	for status, n := range counts {
		if _, ok := seen[status]; ok || n == 0 {
			continue
		}
		data = append(data, opts.PieData{Name: string(status), Value: n})
	}
	return data
}
