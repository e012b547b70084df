package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultClientTimeout bounds every outbound call
const DefaultClientTimeout = 5 * time.Second

// maxResponseSize caps how much of a response body the client reads
const maxResponseSize = 4 << 20

// APIError is a structured error returned by the remote endpoint
type APIError struct {
	Status  int
	Code    ErrorCode
	Message string
	Path    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote: %s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNotAvailable reports whether err is a 501 "feature not available" answer
func IsNotAvailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == ErrCodeNotAvailable
}

// IsNotFound reports whether err is a 404 answer
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client calls a remote endpoint. Each call either returns its result or a
// single error within the configured timeout.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL such as "http://100.64.0.2:8765".
// A non-positive timeout uses DefaultClientTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Status fetches GET /api/status
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Sessions fetches GET /api/sessions
func (c *Client) Sessions(ctx context.Context) ([]SessionSummary, error) {
	var sessions []SessionSummary
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []SessionSummary{}
	}
	return sessions, nil
}

// Terminal fetches a session's transcript
func (c *Client) Terminal(ctx context.Context, id string) (*TerminalResponse, error) {
	var terminal TerminalResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "terminal"), nil, &terminal); err != nil {
		return nil, err
	}
	return &terminal, nil
}

// Reply delivers a message to a session's live input
func (c *Client) Reply(ctx context.Context, id, message string) error {
	var resp SuccessResponse
	return c.do(ctx, http.MethodPost, sessionPath(id, "reply"), ReplyRequest{Message: message}, &resp)
}

// Complete marks a session completed on the remote machine
func (c *Client) Complete(ctx context.Context, id string) error {
	var resp SuccessResponse
	return c.do(ctx, http.MethodPost, sessionPath(id, "complete"), nil, &resp)
}

func sessionPath(id, action string) string {
	return "/api/sessions/" + url.PathEscape(id) + "/" + action
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Code != "" {
		return &APIError{
			Status:  status,
			Code:    errResp.Error.Code,
			Message: errResp.Error.Message,
			Path:    errResp.Error.Path,
		}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
