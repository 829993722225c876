// Package notion is a small client for the database and block endpoints the
// exporter needs. One Client is built per process and passed to every
// collaborator that talks to the API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/scheduler"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// TextCodeUpstream tags non rate-limit API failures.
const TextCodeUpstream = "UPSTREAM_ERROR"

var (
	ErrSecretRequired = errors.New("notion: secret is required")
	ErrIDRequired     = errors.New("notion: id is required")
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimiter replaces the request pacer. A nil limiter disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// Client talks to the Notion REST API.
type Client struct {
	http     *http.Client
	baseURL  string
	version  string
	secret   string
	pageSize int
	limiter  *rate.Limiter
	logger   interfaces.Logger
}

// New builds a client from cfg.
func New(cfg runtimeconfig.NotionConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrSecretRequired
	}
	defaults := runtimeconfig.DefaultConfig().Notion
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		version:  cfg.Version,
		secret:   strings.TrimSpace(cfg.Secret),
		pageSize: cfg.PageSize,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// QueryDatabase returns every page of the database sorted ascending by the
// Unit property. Pages are returned verbatim so callers can cache them.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string) ([]json.RawMessage, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, ErrIDRequired
	}
	endpoint := "/v1/databases/" + url.PathEscape(databaseID) + "/query"

	var (
		out    []json.RawMessage
		cursor string
	)
	for {
		body := map[string]any{
			"page_size": c.pageSize,
			"sorts": []map[string]string{
				{"property": "Unit", "direction": "ascending"},
			},
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp listResponse
		if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)
		c.logger.Debug("notion.database.page", "database_id", databaseID, "results", len(resp.Results), "has_more", resp.HasMore)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}
	return out, nil
}

// ListBlockChildren returns the direct children of a block or page,
// following cursors until exhausted.
func (c *Client) ListBlockChildren(ctx context.Context, blockID string) ([]*Block, error) {
	if strings.TrimSpace(blockID) == "" {
		return nil, ErrIDRequired
	}

	var (
		out    []*Block
		cursor string
	)
	for {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(c.pageSize))
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}
		endpoint := "/v1/blocks/" + url.PathEscape(blockID) + "/children?" + query.Encode()

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, raw := range resp.Results {
			var block Block
			if err := json.Unmarshal(raw, &block); err != nil {
				return nil, fmt.Errorf("notion: decode block under %s: %w", blockID, err)
			}
			out = append(out, &block)
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}
	return out, nil
}

// ChildPageIDs returns the ids of child_page blocks directly under pageID,
// in document order.
func (c *Client) ChildPageIDs(ctx context.Context, pageID string) ([]string, error) {
	children, err := c.ListBlockChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, child := range children {
		if child.Type == "child_page" {
			ids = append(ids, child.ID)
		}
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("notion: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "notion request failed").
			WithTextCode(TextCodeUpstream).
			WithMetadata(map[string]any{"method": method, "endpoint": endpoint})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notion: read response: %w", err)
	}
	c.logger.Trace("notion.request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp, data, endpoint)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("notion: decode response from %s: %w", endpoint, err)
	}
	return nil
}

// classify maps an error response onto the go-errors taxonomy. Rate limits
// become scheduler rate-limit errors carrying the Retry-After hint.
func classify(resp *http.Response, data []byte, endpoint string) error {
	var body errorResponse
	_ = json.Unmarshal(data, &body)

	message := strings.TrimSpace(body.Message)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests || body.Code == "rate_limited" {
		return scheduler.RateLimited("notion: "+message, resp.Header.Get("Retry-After"), nil)
	}

	category := goerrors.CategoryExternal
	switch resp.StatusCode {
	case http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case http.StatusForbidden:
		category = goerrors.CategoryAuthz
	}
	return goerrors.New("notion: "+message, category).
		WithCode(resp.StatusCode).
		WithTextCode(TextCodeUpstream).
		WithMetadata(map[string]any{"endpoint": endpoint, "notion_code": body.Code})
}

var _ interfaces.ContentSource = (*Client)(nil)
