/*
Package remote implements leave.RemoteService against the HR backend's REST
API.

ENVELOPE:
  Every endpoint answers {"success": bool, "data": ..., "message": "..."}.
  success=false carries a human-readable message.

ERROR MAPPING:
  Transport failures, timeouts, and 5xx responses wrap
  leave.ErrRemoteUnavailable so the store can take its cache-fallback path.
  4xx responses and success=false are hard errors: the backend understood
  the request and refused it, so there is nothing to retry locally.

ENDPOINTS:
  POST /leave-requests
  GET  /leave-requests/employee/{id}
  GET  /leave-requests
  PUT  /leave-requests/{id}/status
  GET  /employees/{id}/leave-balance
  GET  /leave-statistics
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/staffhive/leave-engine/leave"
)

// Client talks to the HR backend. Zero-value timeout means 10 seconds.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// =============================================================================
// LEAVE REQUEST OPERATIONS
// =============================================================================

func (c *Client) SubmitRequest(ctx context.Context, req leave.Request) error {
	return c.do(ctx, http.MethodPost, "/leave-requests", req, nil)
}

func (c *Client) EmployeeRequests(ctx context.Context, employeeID string) ([]leave.Request, error) {
	var out []leave.Request
	path := "/leave-requests/employee/" + url.PathEscape(employeeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllRequests(ctx context.Context, f leave.Filters) ([]leave.Request, error) {
	q := url.Values{}
	if f.EmployeeID != "" {
		q.Set("employeeId", f.EmployeeID)
	}
	if f.Department != "" {
		q.Set("department", f.Department)
	}
	if f.Type != "" {
		q.Set("leaveType", string(f.Type))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	path := "/leave-requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []leave.Request
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status leave.RequestStatus, reason, actor string) (*leave.Request, error) {
	body := map[string]string{
		"status": string(status),
		"reason": reason,
		"actor":  actor,
	}
	var out leave.Request
	path := "/leave-requests/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// BALANCE AND STATISTICS
// =============================================================================

func (c *Client) Balance(ctx context.Context, employeeID string) (leave.BalanceSet, error) {
	var out leave.BalanceSet
	path := "/employees/" + url.PathEscape(employeeID) + "/leave-balance"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context, from, to time.Time) (*leave.Stats, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("startDate", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("endDate", to.Format("2006-01-02"))
	}
	path := "/leave-statistics"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out leave.Stats
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", leave.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: backend returned %d", leave.ErrRemoteUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: malformed response: %v", leave.ErrRemoteUnavailable, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("backend rejected request: %s", msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

var _ leave.RemoteService = (*Client)(nil)
