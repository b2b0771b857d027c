// Package client is the HTTP client of the intensity API used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/stats"
)

const defaultMaxRetries = 3

// ErrRetriesExhausted wraps the last failure once every retry has been spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// APIError is an error envelope returned by the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsRetryable reports whether err is a transient failure: a network error, a 429 or a 5xx.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBackOff overrides the retry policy. The factory is called once per request.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the intensity API.
type Client struct {
	baseURL    string
	http       *http.Client
	newBackOff func() backoff.BackOff
	logger     logrus.FieldLogger
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return backoff.WithMaxRetries(b, defaultMaxRetries)
		},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, func(body []byte) error {
		return json.Unmarshal(body, &out)
	}); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("unexpected health status %q", out.Status)
	}
	return nil
}

// CreateRecord calls POST /api/records.
func (c *Client) CreateRecord(ctx context.Context, input domain.CreateRecordInput) (*domain.BandedRecord, error) {
	body := map[string]any{
		"user_id":       input.UserID,
		"date":          input.Date,
		"time_of_day":   input.TimeOfDay,
		"intensity":     input.Intensity,
		"exercise_type": input.ExerciseType,
		"memo":          input.Memo,
	}
	var out domain.BandedRecord
	if err := c.call(ctx, http.MethodPost, "/api/records", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecord calls DELETE /api/records/{id}.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/records/"+url.PathEscape(id), nil, nil, nil)
}

// ViewRecords calls GET /api/users/{id}/records/view.
func (c *Client) ViewRecords(ctx context.Context, userID, search, category string) (*domain.RecordView, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if category != "" {
		q.Set("category", category)
	}
	var out domain.RecordView
	if err := c.call(ctx, http.MethodGet, userPath(userID, "records/view"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Statistics calls GET /api/users/{id}/statistics.
func (c *Client) Statistics(ctx context.Context, userID, period string) (*stats.Report, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	var out stats.Report
	if err := c.call(ctx, http.MethodGet, userPath(userID, "statistics"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard calls GET /api/users/{id}/leaderboard.
func (c *Client) Leaderboard(ctx context.Context, userID string) ([]stats.Standing, error) {
	var out struct {
		Leaderboard []stats.Standing `json:"leaderboard"`
	}
	if err := c.call(ctx, http.MethodGet, userPath(userID, "leaderboard"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

func userPath(userID, suffix string) string {
	return "/api/users/" + url.PathEscape(userID) + "/" + suffix
}

// call performs an enveloped request and decodes data into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, method, path, query, body, func(raw []byte) error {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		if env.Status != "success" {
			return &APIError{StatusCode: http.StatusOK, Code: env.ErrorCode, Message: env.Message}
		}
		if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, decode func([]byte) error) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return retryIf(shouldRetry(method, err), err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retryIf(shouldRetry(method, err), err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := errorFromResponse(resp.StatusCode, raw)
			return retryIf(shouldRetry(method, apiErr), apiErr)
		}
		if err := decode(raw); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt,
			"wait":    wait,
		}).Debug("retrying request")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
	if err != nil && shouldRetry(method, err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	return err
}

// shouldRetry reports whether a request may be sent again after err. Idempotent methods retry
// every retryable failure. Other methods may already have taken effect when the connection drops
// or the server fails, so they retry only on 429 and 503, where the server did not act.
func shouldRetry(method string, err error) bool {
	if !IsRetryable(err) {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

func retryIf(retry bool, err error) error {
	if retry {
		return err
	}
	return backoff.Permanent(err)
}

func errorFromResponse(status int, raw []byte) *APIError {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Status == "error" {
		return &APIError{StatusCode: status, Code: env.ErrorCode, Message: env.Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
}
