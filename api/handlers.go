/*
handlers.go - HTTP handlers for the leave dashboard

PURPOSE:
  Exposes the leave engine to dashboard clients. Handles HTTP
  request/response, JSON serialization, and delegates to the store.

ENDPOINTS:
  Requests:
    POST   /api/leave-requests                   Submit a request
    GET    /api/leave-requests                   Administrative listing
    GET    /api/leave-requests/employee/{id}     One employee's requests
    POST   /api/leave-requests/{id}/approve      Approve
    POST   /api/leave-requests/{id}/reject       Reject (reason in body)

  Balances:
    GET    /api/employees/{id}/balance           Session balance view
    POST   /api/employees/{id}/balance/refresh   Force a backend re-fetch

  Statistics:
    GET    /api/statistics                       Aggregates for a date range

  Events:
    GET    /api/events                           SSE stream of store events

ERROR HANDLING:
  - 400: Validation errors (full violation list in the body), bad input
  - 404: No request matches the identifier
  - 409: Conflicting re-resolution of an already resolved request
  - 500: Cache failures and other internal errors

  Degraded-mode responses are still 200: the body carries fromCache/stale
  flags so the dashboard can badge placeholder data instead of erroring.

SEE ALSO:
  - server.go: Router setup and middleware
  - cmd/server/main.go: Process wiring
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/staffhive/leave-engine/leave"
	"github.com/staffhive/leave-engine/relay"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dashboard's dependencies.
type Handler struct {
	Store *leave.Store
	Hub   *relay.Hub
}

func NewHandler(store *leave.Store, hub *relay.Hub) *Handler {
	return &Handler{Store: store, Hub: hub}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var sub leave.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Store.Submit(r.Context(), sub)
	if err != nil {
		var verr *leave.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":      "validation failed",
				"violations": verr.Violations,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	f := leave.Filters{
		EmployeeID: r.URL.Query().Get("employeeId"),
		Department: r.URL.Query().Get("department"),
		Type:       leave.Type(r.URL.Query().Get("leaveType")),
		Status:     leave.RequestStatus(r.URL.Query().Get("status")),
	}

	reqs, fromCache, err := h.Store.LoadAll(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reqs == nil {
		reqs = []leave.Request{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests":  reqs,
		"fromCache": fromCache,
	})
}

func (h *Handler) EmployeeRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	reqs, fromCache, err := h.Store.LoadForEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reqs == nil {
		reqs = []leave.Request{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests":  reqs,
		"fromCache": fromCache,
	})
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, leave.StatusApproved, "")
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.resolveRequest(w, r, leave.StatusRejected, body.Reason)
}

func (h *Handler) resolveRequest(w http.ResponseWriter, r *http.Request, status leave.RequestStatus, reason string) {
	id := chi.URLParam(r, "id")

	req, err := h.Store.UpdateStatus(r.Context(), id, status, reason)
	switch {
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, leave.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, leave.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, req)
	}
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.Store.LoadBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.Store.RefreshBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// STATISTICS HANDLER
// =============================================================================

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateParam(w, r, "startDate")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "endDate")
	if !ok {
		return
	}

	stats, fromCache, err := h.Store.Statistics(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statistics": stats,
		"fromCache":  fromCache,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. Reports false
// after writing a 400 for an unparsable value.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
