package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"github.com/staffhive/leave-engine/leave"
)

// server holds the fake backend's in-memory state. It mirrors the real
// backend's contract closely enough to exercise every client path, including
// balance movements across the request lifecycle.
type server struct {
	mu       sync.Mutex
	requests map[string]leave.Request
	balances map[string]leave.BalanceSet
	catalog  *leave.Catalog

	// flaky makes every third call fail with 503 so cache-fallback paths can
	// be exercised against a live process.
	flaky bool
	hits  int
}

func newServer(flaky bool) *server {
	return &server{
		requests: make(map[string]leave.Request),
		balances: make(map[string]leave.BalanceSet),
		catalog:  leave.DefaultCatalog(),
		flaky:    flaky,
	}
}

func (s *server) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/leave-requests", func(r chi.Router) {
			r.Post("/", s.submitRequest)
			r.Get("/", s.allRequests)
			r.Get("/employee/{id}", s.employeeRequests)
			r.Put("/{id}/status", s.updateStatus)
		})
		r.Get("/employees/{id}/leave-balance", s.balance)
		r.Get("/leave-statistics", s.statistics)
	})

	return r
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *server) submitRequest(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}

	var req leave.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.EmployeeID == "" {
		writeFail(w, http.StatusBadRequest, "requestId and employeeId are required")
		return
	}

	s.mu.Lock()
	s.requests[req.ID] = req
	set := s.balancesFor(req.EmployeeID)
	if b, ok := set[req.Type]; ok {
		b.Pending = b.Pending.Add(decimal.NewFromInt(int64(req.Days)))
		set[req.Type] = b
	}
	s.mu.Unlock()

	writeData(w, http.StatusCreated, req)
}

func (s *server) employeeRequests(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}
	employeeID := chi.URLParam(r, "id")

	s.mu.Lock()
	out := []leave.Request{}
	for _, req := range s.requests {
		if req.EmployeeID == employeeID {
			out = append(out, req)
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *server) allRequests(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}
	f := leave.Filters{
		EmployeeID: r.URL.Query().Get("employeeId"),
		Department: r.URL.Query().Get("department"),
		Type:       leave.Type(r.URL.Query().Get("leaveType")),
		Status:     leave.RequestStatus(r.URL.Query().Get("status")),
	}

	s.mu.Lock()
	out := []leave.Request{}
	for _, req := range s.requests {
		if f.Match(req) {
			out = append(out, req)
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *server) updateStatus(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}
	id := chi.URLParam(r, "id")

	var body struct {
		Status leave.RequestStatus `json:"status"`
		Reason string              `json:"reason"`
		Actor  string              `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Status != leave.StatusApproved && body.Status != leave.StatusRejected {
		writeFail(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		writeFail(w, http.StatusNotFound, "leave request not found")
		return
	}
	if req.Status == leave.StatusPending {
		s.settle(&req, body.Status)
	}
	now := time.Now()
	req.Status = body.Status
	req.UpdatedAt = now
	switch body.Status {
	case leave.StatusApproved:
		req.ApprovedBy = body.Actor
		req.ApprovedAt = &now
	case leave.StatusRejected:
		req.RejectedBy = body.Actor
		req.RejectedAt = &now
		req.RejectionReason = body.Reason
	}
	s.requests[id] = req

	writeData(w, http.StatusOK, req)
}

func (s *server) balance(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}
	employeeID := chi.URLParam(r, "id")

	s.mu.Lock()
	set := s.balancesFor(employeeID)
	out := make(map[leave.Type]leave.Balance, len(set))
	for t, b := range set {
		out[t] = b
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *server) statistics(w http.ResponseWriter, r *http.Request) {
	if s.failNow(w) {
		return
	}
	from := parseDate(r.URL.Query().Get("startDate"))
	to := parseDate(r.URL.Query().Get("endDate"))

	s.mu.Lock()
	reqs := make([]leave.Request, 0, len(s.requests))
	for _, req := range s.requests {
		reqs = append(reqs, req)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, leave.ComputeStats(reqs, from, to))
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// balancesFor lazily seeds an employee's balances from catalog defaults.
// Caller holds s.mu.
func (s *server) balancesFor(employeeID string) leave.BalanceSet {
	set, ok := s.balances[employeeID]
	if !ok {
		set = s.catalog.DefaultBalances()
		s.balances[employeeID] = set
	}
	return set
}

// settle finalizes a pending reservation. Caller holds s.mu.
func (s *server) settle(req *leave.Request, status leave.RequestStatus) {
	set := s.balancesFor(req.EmployeeID)
	b, ok := set[req.Type]
	if !ok {
		return
	}
	d := decimal.NewFromInt(int64(req.Days))
	b.Pending = b.Pending.Sub(d)
	if b.Pending.IsNegative() {
		b.Pending = decimal.Zero
	}
	if status == leave.StatusApproved {
		b.Used = b.Used.Add(d)
	}
	set[req.Type] = b
}

func (s *server) failNow(w http.ResponseWriter) bool {
	if !s.flaky {
		return false
	}
	s.mu.Lock()
	s.hits++
	fail := s.hits%3 == 0
	s.mu.Unlock()
	if fail {
		writeFail(w, http.StatusServiceUnavailable, "injected failure")
	}
	return fail
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// ENVELOPE WRITERS
// =============================================================================

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
