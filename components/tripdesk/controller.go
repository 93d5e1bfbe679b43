package tripdesk

import (
	"context"
	"errors"
	"io"
)

const defaultListTemplate = "list.html"

// Renderer describes the template renderer contract needed by the controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// Browser resolves list views. Service satisfies it.
type Browser interface {
	Browse(ctx context.Context, req BrowseRequest) (ListView, error)
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Service  Browser
	Renderer Renderer
	Template string
}

// Controller turns resolved list views into HTML.
type Controller struct {
	service  Browser
	renderer Renderer
	template string
}

// NewController wires the service and renderer.
func NewController(opts ControllerOptions) *Controller {
	tpl := opts.Template
	if tpl == "" {
		tpl = defaultListTemplate
	}
	return &Controller{service: opts.Service, renderer: opts.Renderer, template: tpl}
}

// ListPayload resolves a view and shapes it for templates.
func (c *Controller) ListPayload(ctx context.Context, req BrowseRequest) (map[string]any, error) {
	if c.service == nil {
		return nil, errors.New("tripdesk: controller requires a service")
	}
	view, err := c.service.Browse(ctx, req)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(view.Records))
	for _, rec := range view.Records {
		label := rec.RecordID()
		if fields := rec.SearchFields(); len(fields) > 1 && fields[1] != "" {
			label = fields[1]
		}
		rows = append(rows, map[string]any{
			"id":      rec.RecordID(),
			"label":   label,
			"status":  string(rec.RecordStatus()),
			"actions": view.Actions[rec.RecordID()],
		})
	}
	return map[string]any{
		"kind":           string(view.Kind),
		"banner":         view.Banner,
		"using_fallback": view.UsingFallback,
		"rows":           rows,
		"pagination":     view.Pagination,
		"filter":         view.Filter,
		"status_counts":  view.StatusCounts,
	}, nil
}

// RenderList writes the HTML list page for req to out.
func (c *Controller) RenderList(ctx context.Context, req BrowseRequest, out io.Writer) error {
	if c.renderer == nil {
		return errors.New("tripdesk: controller requires a renderer")
	}
	payload, err := c.ListPayload(ctx, req)
	if err != nil {
		return err
	}
	_, err = c.renderer.Render(c.template, payload, out)
	return err
}
