// Package linear fetches planning snapshots from the Linear GraphQL API.
//
// The client pulls a team's backlog, active-cycle progress, and past-cycle
// completion history, and assembles them into the snapshot the planning
// engine consumes. Only reads; abacus never writes back to Linear.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// apiEndpoint is the Linear GraphQL API endpoint.
	apiEndpoint = "https://api.linear.app/graphql"

	// defaultTimeout is the per-request HTTP timeout.
	defaultTimeout = 30 * time.Second

	// retryMaxElapsed bounds the total time spent retrying one request.
	retryMaxElapsed = 45 * time.Second

	// pageSize is Linear's maximum page size.
	pageSize = 100
)

// ErrTeamNotFound indicates the requested team key resolved to nothing.
var ErrTeamNotFound = errors.New("team not found")

// Client talks to the Linear API. One Client is safe for concurrent use.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithEndpoint overrides the API endpoint, mainly for tests
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Linear client with the given API key
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: apiEndpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// graphQLRequest is a GraphQL request payload
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLResponse is a generic GraphQL response
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphQLError is one GraphQL-level error
type graphQLError struct {
	Message string `json:"message"`
}

// retryableError marks a transport failure worth retrying: rate limits,
// server errors, and network-level failures.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func newRequestBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed

	return bo
}

// execute sends one GraphQL request, retrying transient failures with
// exponential backoff. A 429's Retry-After is honored before the backoff's
// own delay.
func (c *Client) execute(ctx context.Context, req *graphQLRequest) (*graphQLResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp *graphQLResponse
	op := func() error {
		r, opErr := c.doRequest(ctx, body)
		if opErr != nil && isRetryable(opErr) {
			return opErr // transient, let the backoff retry
		}
		if opErr != nil {
			return backoff.Permanent(opErr)
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(newRequestBackoff(), ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// doRequest performs a single HTTP round trip
func (c *Client) doRequest(ctx context.Context, body []byte) (*graphQLResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Linear takes the raw API key, not a Bearer token
	httpReq.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := retryAfter(resp.Header); wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		return nil, &retryableError{err: fmt.Errorf("rate limited (status 429)")}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("server error (status %d)", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("api error: %s (status %d)", strings.TrimSpace(string(respBody)), resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	return &gqlResp, nil
}

// retryAfter parses a Retry-After header, either delta-seconds or HTTP-date
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
