// Package supabase is a thin REST client for a hosted PostgREST data API
// (Supabase and compatible). It speaks rows as JSON and leaves mapping to callers.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnavailable transport failure or 5xx from the data API.
var ErrUnavailable = errors.New("data api unavailable")

// APIError is the PostgREST error body. Code carries the Postgres SQLSTATE when
// the failure came from the database (e.g. 23505).
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("data api error %d (%s): %s", e.Status, e.Code, e.Message)
}

type Config struct {
	BaseURL    string // e.g. https://<project>.supabase.co/rest/v1
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}
	// Only retry reads and 5xx; writes are not idempotent.
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= 500
	})

	return &Client{httpClient: client, logger: logger}
}

// Select GETs rows of table into out (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, q *Query, out any) error {
	resp, err := c.request(ctx, q).Get("/" + table)
	if err := c.check(table, "select", resp, err); err != nil {
		return err
	}
	return decode(resp.Body(), out)
}

// MaybeSingle fetches at most one row into out. found is false on zero rows.
func (c *Client) MaybeSingle(ctx context.Context, table string, q *Query, out any) (bool, error) {
	var rows []json.RawMessage
	if err := c.Select(ctx, table, q.clone().Limit(1), &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	return true, decode(rows[0], out)
}

// Insert POSTs one row and decodes the stored representation into out.
func (c *Client) Insert(ctx context.Context, table string, row any, out any) error {
	resp, err := c.request(ctx, nil).
		SetHeader("Prefer", "return=representation").
		SetBody([]any{row}).
		Post("/" + table)
	if err := c.check(table, "insert", resp, err); err != nil {
		return err
	}
	found, err := first(resp.Body(), out)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("insert into %s returned no representation", table)
	}
	return nil
}

// Update PATCHes the matching rows; found is false when nothing matched.
func (c *Client) Update(ctx context.Context, table string, q *Query, patch any, out any) (bool, error) {
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "return=representation").
		SetBody(patch).
		Patch("/" + table)
	if err := c.check(table, "update", resp, err); err != nil {
		return false, err
	}
	return first(resp.Body(), out)
}

// Delete removes the matching rows and returns how many were deleted.
func (c *Client) Delete(ctx context.Context, table string, q *Query) (int, error) {
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "return=representation").
		Delete("/" + table)
	if err := c.check(table, "delete", resp, err); err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := decode(resp.Body(), &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Count returns the exact number of matching rows via Content-Range.
func (c *Client) Count(ctx context.Context, table string, q *Query) (int, error) {
	q = q.clone().Select("id").Limit(1)
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "count=exact").
		Get("/" + table)
	if err := c.check(table, "count", resp, err); err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header().Get("Content-Range"))
}

func (c *Client) request(ctx context.Context, q *Query) *resty.Request {
	r := c.httpClient.R().SetContext(ctx)
	if q != nil {
		r.SetQueryParamsFromValues(q.values())
	}
	return r
}

func (c *Client) check(table, op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("data api call failed",
			zap.String("table", table),
			zap.String("op", op),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w: %w", op, table, ErrUnavailable, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if jerr := json.Unmarshal(resp.Body(), apiErr); jerr != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body()))
	}
	if resp.StatusCode() >= 500 {
		c.logger.Warn("data api returned server error",
			zap.String("table", table),
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("%s %s: %w: %w", op, table, ErrUnavailable, apiErr)
	}
	return fmt.Errorf("%s %s: %w", op, table, apiErr)
}

func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode data api response: %w", err)
	}
	return nil
}

func first(body []byte, out any) (bool, error) {
	var rows []json.RawMessage
	if err := decode(body, &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	return true, decode(rows[0], out)
}

// parseContentRange reads the total from "0-0/42" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("missing total in Content-Range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("bad Content-Range %q: %w", h, err)
	}
	return n, nil
}
