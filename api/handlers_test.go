package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhive/leave-engine/api"
	"github.com/staffhive/leave-engine/cache"
	"github.com/staffhive/leave-engine/leave"
	"github.com/staffhive/leave-engine/relay"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

// stubRemote answers every call from fixed state. down=true fails everything
// with ErrRemoteUnavailable.
type stubRemote struct {
	down     bool
	balances leave.BalanceSet
	requests map[string]leave.Request
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		balances: leave.DefaultCatalog().DefaultBalances(),
		requests: make(map[string]leave.Request),
	}
}

func (s *stubRemote) fail() error {
	return fmt.Errorf("%w: connection refused", leave.ErrRemoteUnavailable)
}

func (s *stubRemote) SubmitRequest(_ context.Context, req leave.Request) error {
	if s.down {
		return s.fail()
	}
	s.requests[req.ID] = req
	return nil
}

func (s *stubRemote) EmployeeRequests(_ context.Context, employeeID string) ([]leave.Request, error) {
	if s.down {
		return nil, s.fail()
	}
	var out []leave.Request
	for _, r := range s.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRemote) AllRequests(_ context.Context, f leave.Filters) ([]leave.Request, error) {
	if s.down {
		return nil, s.fail()
	}
	var out []leave.Request
	for _, r := range s.requests {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRemote) UpdateStatus(_ context.Context, id string, status leave.RequestStatus, reason, _ string) (*leave.Request, error) {
	if s.down {
		return nil, s.fail()
	}
	req, ok := s.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	req.Status = status
	req.RejectionReason = reason
	s.requests[id] = req
	return &req, nil
}

func (s *stubRemote) Balance(_ context.Context, _ string) (leave.BalanceSet, error) {
	if s.down {
		return nil, s.fail()
	}
	out := make(leave.BalanceSet, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out, nil
}

func (s *stubRemote) Statistics(_ context.Context, from, to time.Time) (*leave.Stats, error) {
	if s.down {
		return nil, s.fail()
	}
	reqs := make([]leave.Request, 0, len(s.requests))
	for _, r := range s.requests {
		reqs = append(reqs, r)
	}
	return leave.ComputeStats(reqs, from, to), nil
}

func newTestServer(t *testing.T, remote *stubRemote) (*httptest.Server, *relay.Hub) {
	hub := relay.NewHub()
	store, err := leave.NewStore(leave.StoreConfig{
		Remote:   remote,
		Cache:    cache.NewMemory(),
		Notifier: hub,
		Clock:    func() time.Time { return testNow },
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store, hub)))
	t.Cleanup(srv.Close)
	return srv, hub
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func validSubmission() leave.Submission {
	return leave.Submission{
		EmployeeID:   "emp-1",
		EmployeeName: "Jordan Reyes",
		Department:   "Engineering",
		Type:         leave.TypeAnnual,
		StartDate:    testNow.AddDate(0, 0, 14),
		EndDate:      testNow.AddDate(0, 0, 16),
		Reason:       "Family trip",
	}
}

// =============================================================================
// REQUEST ENDPOINT TESTS
// =============================================================================

func TestSubmitRequest_Created(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp := postJSON(t, srv.URL+"/api/leave-requests", validSubmission())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var req leave.Request
	decodeBody(t, resp, &req)
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, 3, req.Days)
	assert.True(t, strings.HasPrefix(req.ID, "LR_"))
}

func TestSubmitRequest_ValidationFailure(t *testing.T) {
	// GIVEN: A submission with no reason and 3 days notice for annual leave
	// WHEN: Posting it
	// THEN: 400 with every violation listed

	srv, _ := newTestServer(t, newStubRemote())

	sub := validSubmission()
	sub.Reason = ""
	sub.StartDate = testNow.AddDate(0, 0, 3)
	sub.EndDate = testNow.AddDate(0, 0, 4)

	resp := postJSON(t, srv.URL+"/api/leave-requests", sub)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error      string            `json:"error"`
		Violations []leave.Violation `json:"violations"`
	}
	decodeBody(t, resp, &body)
	assert.Len(t, body.Violations, 2)
}

func TestApproveRequest(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp := postJSON(t, srv.URL+"/api/leave-requests", validSubmission())
	var created leave.Request
	decodeBody(t, resp, &created)

	resp = postJSON(t, srv.URL+"/api/leave-requests/"+created.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var approved leave.Request
	decodeBody(t, resp, &approved)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, "admin", approved.ApprovedBy)
}

func TestRejectRequest_ThenConflictOnApprove(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp := postJSON(t, srv.URL+"/api/leave-requests", validSubmission())
	var created leave.Request
	decodeBody(t, resp, &created)

	resp = postJSON(t, srv.URL+"/api/leave-requests/"+created.ID+"/reject",
		map[string]string{"reason": "scheduling conflict"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rejected leave.Request
	decodeBody(t, resp, &rejected)
	assert.Equal(t, "scheduling conflict", rejected.RejectionReason)

	// Re-resolving the other way is a conflict.
	resp = postJSON(t, srv.URL+"/api/leave-requests/"+created.ID+"/approve", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResolveRequest_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp := postJSON(t, srv.URL+"/api/leave-requests/LR_missing/approve", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRequests_CacheFallbackFlagged(t *testing.T) {
	// GIVEN: A request submitted while the backend was up, backend now down
	// WHEN: Listing
	// THEN: 200 with fromCache=true so the dashboard can badge stale data

	remote := newStubRemote()
	srv, _ := newTestServer(t, remote)

	resp := postJSON(t, srv.URL+"/api/leave-requests", validSubmission())
	var created leave.Request
	decodeBody(t, resp, &created)

	// The cache only holds offline submissions; seed it by submitting down.
	remote.down = true
	sub := validSubmission()
	sub.Type = leave.TypeSick
	sub.Reason = "Flu"
	resp = postJSON(t, srv.URL+"/api/leave-requests", sub)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	httpResp, err := http.Get(srv.URL + "/api/leave-requests")
	require.NoError(t, err)
	var body struct {
		Requests  []leave.Request `json:"requests"`
		FromCache bool            `json:"fromCache"`
	}
	decodeBody(t, httpResp, &body)
	assert.True(t, body.FromCache)
	assert.Len(t, body.Requests, 1)
}

// =============================================================================
// BALANCE AND STATISTICS ENDPOINT TESTS
// =============================================================================

func TestGetBalance(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp, err := http.Get(srv.URL + "/api/employees/emp-1/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result leave.BalanceResult
	decodeBody(t, resp, &result)
	assert.False(t, result.Stale)
	assert.Equal(t, "20", result.Balances[leave.TypeAnnual].Allocated.String())
}

func TestGetBalance_BackendDown_Stale(t *testing.T) {
	remote := newStubRemote()
	remote.down = true
	srv, _ := newTestServer(t, remote)

	resp, err := http.Get(srv.URL + "/api/employees/emp-1/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result leave.BalanceResult
	decodeBody(t, resp, &result)
	assert.True(t, result.Stale)
}

func TestGetStatistics(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp := postJSON(t, srv.URL+"/api/leave-requests", validSubmission())
	resp.Body.Close()

	httpResp, err := http.Get(srv.URL + "/api/statistics?startDate=2026-03-01&endDate=2026-03-31")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var body struct {
		Statistics leave.Stats `json:"statistics"`
		FromCache  bool        `json:"fromCache"`
	}
	decodeBody(t, httpResp, &body)
	assert.False(t, body.FromCache)
	assert.Equal(t, 1, body.Statistics.Total)
	assert.Equal(t, 3, body.Statistics.TotalDays)
}

func TestGetStatistics_BadDate(t *testing.T) {
	srv, _ := newTestServer(t, newStubRemote())

	resp, err := http.Get(srv.URL + "/api/statistics?startDate=March")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// EVENT STREAM TESTS
// =============================================================================

func TestStreamEvents_DeliversStoreEvents(t *testing.T) {
	// GIVEN: A dashboard connected to /api/events
	// WHEN: A request is submitted
	// THEN: The stream carries a request_created event

	srv, _ := newTestServer(t, newStubRemote())

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected", strings.TrimSpace(line))

	// Drain the rest of the connected frame.
	reader.ReadString('\n')
	reader.ReadString('\n')

	postJSON(t, srv.URL+"/api/leave-requests", validSubmission()).Body.Close()

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: request_created", strings.TrimSpace(line))

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	var event relay.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &event))
	assert.True(t, event.IsNew)
	assert.Equal(t, "emp-1", event.Request.EmployeeID)
}
