// Package api is the remote resource client: bearer auth, envelope decoding, classified
// errors, a per-kind read cache and bounded retry for reads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// TokenSource is the session surface the client needs. The generation returned by Token is
// handed back to Invalidate when the request it authorized gets a 401.
type TokenSource interface {
	Token() (string, uint64)
	Invalidate(ctx context.Context, generation uint64, reason string) bool
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Session    TokenSource
	HTTPClient *http.Client
	// Timeout bounds calls made by the default HTTP client and each attempt of a shared read.
	Timeout   time.Duration
	Retry     RetryPolicy
	CacheTTL  time.Duration
	Telemetry tripdesk.Telemetry
	Logger    *slog.Logger
}

// Client issues requests against the upstream REST API.
type Client struct {
	baseURL   string
	session   TokenSource
	http      *http.Client
	timeout   time.Duration
	retry     RetryPolicy
	cache     *ResponseCache
	group     singleflight.Group
	telemetry tripdesk.Telemetry
	logger    *slog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	telemetry := cfg.Telemetry
	if telemetry == nil {
		telemetry = tripdesk.LogTelemetry{Logger: logger}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		session:   cfg.Session,
		http:      httpClient,
		timeout:   timeout,
		retry:     cfg.Retry.normalize(),
		cache:     NewResponseCache(cfg.CacheTTL),
		telemetry: telemetry,
		logger:    logger,
	}, nil
}

// Cache exposes the read cache.
func (c *Client) Cache() *ResponseCache { return c.cache }

// request describes one call. Body is either JSON-encodable or a prepared reader.
type request struct {
	kind        tripdesk.ResourceKind
	method      string
	path        string
	query       url.Values
	payload     any
	body        io.Reader
	contentType string
}

// read performs a cached, deduplicated, retried GET and decodes the payload into target.
// Concurrent callers share one request. The shared request runs detached from any single
// caller so one cancelled caller does not fail the others; each caller still returns as
// soon as its own ctx is done. A payload fetched across a mutation of the kind is handed
// to its callers but never cached, and later reads do not join that request.
func (c *Client) read(ctx context.Context, req request, target any) error {
	key := cacheKey(req.kind, req.path, req.query)
	if data, ok := c.cache.Get(key); ok {
		return decodeInto(data, target)
	}
	epoch := c.cache.Epoch(req.kind)
	flight := key + "#" + strconv.FormatUint(epoch, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout*time.Duration(c.retry.MaxAttempts))
		defer cancel()
		var payload json.RawMessage
		err := c.retry.run(fctx, func(attempt int) error {
			var err error
			payload, err = c.roundTrip(fctx, req)
			if err != nil && attempt > 1 {
				c.logger.Debug("api: retry", "path", req.path, "attempt", attempt, "error", err)
			}
			return err
		}, c.notifyRetry(req))
		if err != nil {
			return nil, err
		}
		if !c.cache.SetAt(req.kind, key, payload, epoch) && c.cache.Epoch(req.kind) != epoch {
			c.logger.Debug("api: read overtaken by invalidation, not cached", "kind", req.kind, "path", req.path)
		}
		return payload, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if res.Shared {
		c.telemetry.Record(ctx, "tripdesk.api.shared", map[string]any{"path": req.path})
	}
	return decodeInto(res.Val.(json.RawMessage), target)
}

// write performs a mutation once and invalidates cached reads of the kind afterwards.
func (c *Client) write(ctx context.Context, req request, target any) error {
	payload, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	c.cache.InvalidateKind(req.kind)
	c.telemetry.Record(ctx, "tripdesk.api.mutation", map[string]any{
		"kind":   string(req.kind),
		"method": req.method,
		"path":   req.path,
	})
	if target == nil {
		return nil
	}
	return decodeInto(payload, target)
}

func (c *Client) roundTrip(ctx context.Context, req request) (json.RawMessage, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	body := req.body
	contentType := req.contentType
	if body == nil && req.payload != nil {
		raw, err := json.Marshal(req.payload)
		if err != nil {
			return nil, fmt.Errorf("api: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	var generation uint64
	if c.session != nil {
		var token string
		token, generation = c.session.Token()
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, networkError(req.method, req.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(req.method, req.path, err)
	}
	c.telemetry.Record(ctx, "tripdesk.api.request", map[string]any{
		"method":   req.method,
		"path":     req.path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if resp.StatusCode >= 300 {
		msg, fields := errorBody(raw)
		return nil, c.fail(ctx, req, generation, resp.StatusCode, msg, fields)
	}
	payload, env, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	if env != nil && !env.Status {
		code := env.Code
		if code < 300 {
			code = http.StatusBadRequest
		}
		return nil, c.fail(ctx, req, generation, code, env.Message, env.Errors)
	}
	return payload, nil
}

// fail classifies a failed response. A 401 invalidates the session generation that
// authorized the request.
func (c *Client) fail(ctx context.Context, req request, generation uint64, status int, msg string, fields map[string][]string) error {
	err := newAPIError(req.method, req.path, status, msg, fields)
	if status == http.StatusUnauthorized && c.session != nil {
		if c.session.Invalidate(ctx, generation, "401 from "+req.path) {
			c.cache.Clear()
		}
	}
	return err
}

func (c *Client) notifyRetry(req request) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		c.logger.Warn("api: transient failure", "method", req.method, "path", req.path, "wait", wait, "error", err)
	}
}

func decodeInto(data json.RawMessage, target any) error {
	if target == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
