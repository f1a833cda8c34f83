// Package clickadmin is a minimal HTTP client for ClickHouse administrative
// calls: creating databases over the server's HTTP interface and probing the
// /ping health endpoint.
package clickadmin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrRequestFailed is returned when the server answers with a non-2xx
	// status.
	ErrRequestFailed = errors.New("clickhouse request failed")

	// ErrUnhealthy is returned when the health probe does not answer 2xx.
	ErrUnhealthy = errors.New("clickhouse server is not healthy")
)

// AdminError wraps a failed administrative call with its context.
type AdminError struct {
	Op       string // Operation that failed
	Database string // Database name if applicable
	Status   int    // HTTP status, 0 when the request never completed
	Message  string
	Err      error
}

func (e *AdminError) Error() string {
	if e.Database != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Database, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AdminError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Client
// =============================================================================

// Authentication headers understood by the ClickHouse HTTP interface.
const (
	headerUser = "X-ClickHouse-User"
	headerKey  = "X-ClickHouse-Key"
)

const defaultTimeout = 10 * time.Second

// Client issues administrative calls against one ClickHouse server's HTTP
// base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8123".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateDatabase issues CREATE DATABASE IF NOT EXISTS for the given database
// name. username and password are sent as ClickHouse authentication headers;
// an empty password sends no key header at all. Any 2xx status is success.
func (c *Client) CreateDatabase(ctx context.Context, database, username, password string) error {
	statement := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", database)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(statement))
	if err != nil {
		return &AdminError{Op: "CreateDatabase", Database: database, Message: err.Error(), Err: err}
	}
	if username != "" {
		req.Header.Set(headerUser, username)
	}
	if password != "" {
		req.Header.Set(headerKey, password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AdminError{Op: "CreateDatabase", Database: database, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &AdminError{
			Op:       "CreateDatabase",
			Database: database,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Err:      ErrRequestFailed,
		}
	}
	return nil
}

// Ping probes the server's /ping endpoint. Any 2xx status is healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return &AdminError{Op: "Ping", Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AdminError{Op: "Ping", Message: err.Error(), Err: ErrUnhealthy}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AdminError{
			Op:      "Ping",
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("status %d", resp.StatusCode),
			Err:     ErrUnhealthy,
		}
	}
	return nil
}
