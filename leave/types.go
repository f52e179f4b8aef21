/*
Package leave implements the leave-management core: policy catalog, day-span
calculation, request validation, and a request store that reconciles between a
remote HR backend and a durable local cache.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: Leave category key (annual, sick, ...)
  - Request: A leave request with its full lifecycle state
  - Balance: Per-employee, per-type balance with exact decimal arithmetic
  - Collaborator interfaces: RemoteService, Cache, Notifier

DESIGN PRINCIPLES:
  1. Exactness: Balances use decimal.Decimal, never floats
  2. Explicit collaborators: the Store receives everything via its constructor
  3. Degradation over failure: remote outages fall back to the local cache,
     and degraded data is always flagged as stale, never silently mixed in

SEE ALSO:
  - policies.go: Policy definitions and the built-in catalog
  - validator.go: Request validation against policy and balance
  - store.go: Request lifecycle and remote/cache reconciliation
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPE - Category key
// =============================================================================

type Type string

const (
	TypeAnnual      Type = "annual"
	TypeSick        Type = "sick"
	TypePersonal    Type = "personal"
	TypeMaternity   Type = "maternity"
	TypePaternity   Type = "paternity"
	TypeBereavement Type = "bereavement"
	TypeEmergency   Type = "emergency"
)

// =============================================================================
// REQUEST - A leave request and its lifecycle state
// =============================================================================

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Request is a leave request. It is created in pending state and transitions
// exactly once to approved or rejected. Days is fixed at creation and never
// recomputed.
type Request struct {
	ID           string        `json:"requestId"`
	EmployeeID   string        `json:"employeeId"`
	EmployeeName string        `json:"employeeName"`
	Department   string        `json:"department"`
	Type         Type          `json:"leaveType"`
	StartDate    time.Time     `json:"startDate"`
	EndDate      time.Time     `json:"endDate"`
	Days         int           `json:"days"`
	Reason       string        `json:"reason"`
	Status       RequestStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submittedAt"`
	UpdatedAt    time.Time     `json:"lastUpdated"`

	RejectionReason string     `json:"rejectionReason,omitempty"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedDate,omitempty"`
	RejectedBy      string     `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedDate,omitempty"`

	// LegacyID carries the numeric identifier assigned by earlier versions of
	// the dashboard. It exists only as a migration shim for cached records;
	// new requests are identified by ID alone.
	LegacyID string `json:"id,omitempty"`
}

// Matches reports whether id refers to this request, accepting the legacy
// numeric identifier for records that predate the current ID scheme.
func (r Request) Matches(id string) bool {
	return r.ID == id || (r.LegacyID != "" && r.LegacyID == id)
}

// Resolved reports whether the request has left the pending state.
func (r Request) Resolved() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// Submission is the caller-supplied input to Store.Submit. The store assigns
// the identifier, day count, and timestamps.
type Submission struct {
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	Department   string    `json:"department"`
	Type         Type      `json:"leaveType"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Reason       string    `json:"reason"`
}

// Filters narrows administrative listings. Zero values match everything.
type Filters struct {
	EmployeeID string
	Department string
	Type       Type
	Status     RequestStatus
}

// Match reports whether a request passes the filter.
func (f Filters) Match(r Request) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Department != "" && r.Department != f.Department {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// =============================================================================
// BALANCE - Per-employee, per-type, per-year
// =============================================================================

// Balance tracks one employee's balance for one leave type. Current is always
// derived, so allocated == used + pending + current holds by construction.
type Balance struct {
	Allocated decimal.Decimal `json:"allocated"`
	Used      decimal.Decimal `json:"used"`
	Pending   decimal.Decimal `json:"pending"`
}

// Current returns allocated - used - pending.
func (b Balance) Current() decimal.Decimal {
	return b.Allocated.Sub(b.Used).Sub(b.Pending)
}

// Available returns the days that can still be requested.
func (b Balance) Available() decimal.Decimal { return b.Current() }

// BalanceSet holds one employee's balances keyed by leave type.
type BalanceSet map[Type]Balance

// Available returns the available balance for a type, zero when absent.
func (s BalanceSet) Available(t Type) decimal.Decimal {
	b, ok := s[t]
	if !ok {
		return decimal.Zero
	}
	return b.Available()
}

// BalanceResult wraps a balance set with an explicit staleness flag. Stale is
// true when the data came from catalog defaults because the remote service
// was unreachable; callers must not treat stale data as authoritative.
type BalanceResult struct {
	Balances BalanceSet `json:"balances"`
	Stale    bool       `json:"stale"`
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// RemoteService is the HR backend the store proxies to. Implementations wrap
// transport failures with ErrRemoteUnavailable so the store can distinguish
// outages from hard errors.
type RemoteService interface {
	SubmitRequest(ctx context.Context, req Request) error
	EmployeeRequests(ctx context.Context, employeeID string) ([]Request, error)
	AllRequests(ctx context.Context, f Filters) ([]Request, error)
	UpdateStatus(ctx context.Context, id string, status RequestStatus, reason, actor string) (*Request, error)
	Balance(ctx context.Context, employeeID string) (BalanceSet, error)
	Statistics(ctx context.Context, from, to time.Time) (*Stats, error)
}

// Cache is the durable local fallback: a single named collection of requests
// read and written wholesale. Revision increases on every write so watchers
// can detect edits made by another process.
type Cache interface {
	LoadRequests(ctx context.Context) ([]Request, error)
	SaveRequests(ctx context.Context, reqs []Request) error
	Revision(ctx context.Context) (int64, error)
}

// Notifier receives store events. Delivery is fire-and-forget, at most once
// per subscriber; listeners must be idempotent against duplicates.
type Notifier interface {
	RequestCreated(req Request)
	StatusUpdated(req Request)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) RequestCreated(Request) {}
func (NopNotifier) StatusUpdated(Request)  {}
