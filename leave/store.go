/*
store.go - Request store: lifecycle, balance reservation, and reconciliation

PURPOSE:
  The Store owns the request collection and balance snapshots for a session.
  It proxies operations to the remote HR backend and degrades to the durable
  local cache when the backend is unreachable. Validation failures are the
  one exception: they surface synchronously, before any network attempt.

REQUEST FLOW:

  Submit ──▶ validate ──▶ reserve balance ──▶ remote ──ok──▶ merge + notify
                │               │                │
                ▼               │              fail
          ValidationError       │                │
          (no state change)     │                ▼
                                │          durable cache ──ok──▶ merge + notify
                                │                │
                                └── undo ◀─────fail

  UpdateStatus: pending ──▶ approved  (used += days, pending -= days)
                pending ──▶ rejected  (pending -= days, current restored)

CONCURRENCY:
  A single mutex serializes Submit and UpdateStatus, making the balance
  check-and-reserve atomic at the store boundary: two rapid submissions for
  the same employee cannot both validate against the same snapshot and
  over-commit the balance. Reads take the same lock but copy out.

STALENESS:
  Every degraded-mode read is flagged. LoadBalance returns catalog defaults
  with Stale=true when the backend is down; list operations report whether
  they served from the cache. Callers decide how to present placeholder data.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

// StoreConfig carries the store's collaborators. Remote and Cache are
// required; the rest default sensibly.
type StoreConfig struct {
	Remote   RemoteService
	Cache    Cache
	Notifier Notifier
	Catalog  *Catalog
	Clock    func() time.Time
	Logger   *slog.Logger
	Actor    string // stamped into approvedBy / rejectedBy
}

type Store struct {
	remote    RemoteService
	cache     Cache
	notifier  Notifier
	catalog   *Catalog
	clock     func() time.Time
	log       *slog.Logger
	actor     string
	validator *Validator

	mu       sync.Mutex
	requests []Request
	balances map[string]BalanceSet // employeeID -> snapshot
	stale    map[string]bool       // employeeID -> snapshot came from defaults
}

// NewStore builds a store. One store per process/session; no package-level
// state.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("store requires a remote service")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("store requires a cache")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Actor == "" {
		cfg.Actor = "admin"
	}
	return &Store{
		remote:    cfg.Remote,
		cache:     cfg.Cache,
		notifier:  cfg.Notifier,
		catalog:   cfg.Catalog,
		clock:     cfg.Clock,
		log:       cfg.Logger,
		actor:     cfg.Actor,
		validator: &Validator{Catalog: cfg.Catalog, Now: cfg.Clock},
		balances:  make(map[string]BalanceSet),
		stale:     make(map[string]bool),
	}, nil
}

// NewRequestID generates a request identifier: LR_<unix ms>_<random>.
func NewRequestID(at time.Time) string {
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("LR_%d_%s", at.UnixMilli(), random)
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates and creates a leave request. Validation failures return a
// *ValidationError with every violated rule and change no state. On success
// the request is pending, the employee's balance has days moved from current
// to pending, and the request is persisted remotely or, failing that, in the
// local cache.
func (s *Store) Submit(ctx context.Context, sub Submission) (*Request, error) {
	req, err := s.submit(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.notifier.RequestCreated(*req)
	return req, nil
}

func (s *Store) submit(ctx context.Context, sub Submission) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances, ok := s.balances[sub.EmployeeID]
	if !ok {
		balances = s.fetchBalancesLocked(ctx, sub.EmployeeID)
	}

	if violations := s.validator.Validate(sub, balances); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	now := s.clock()
	req := Request{
		ID:           NewRequestID(now),
		EmployeeID:   sub.EmployeeID,
		EmployeeName: sub.EmployeeName,
		Department:   sub.Department,
		Type:         sub.Type,
		StartDate:    sub.StartDate,
		EndDate:      sub.EndDate,
		Days:         CalculateDays(sub.StartDate, sub.EndDate),
		Reason:       sub.Reason,
		Status:       StatusPending,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}

	reserved := s.reserveLocked(sub.EmployeeID, sub.Type, req.Days)

	if err := s.remote.SubmitRequest(ctx, req); err != nil {
		s.log.Warn("remote submit failed, queuing to local cache",
			slog.String("request_id", req.ID), slog.String("error", err.Error()))
		if cerr := s.cacheAppend(ctx, req); cerr != nil {
			if reserved {
				s.releaseLocked(sub.EmployeeID, sub.Type, req.Days)
			}
			return nil, cerr
		}
	}

	s.mergeLocked(req)
	return &req, nil
}

// =============================================================================
// LOADING
// =============================================================================

// LoadForEmployee fetches an employee's requests from the backend, falling
// back to the local cache. It replaces the in-memory collection for that
// employee. The bool reports whether the cache (stale) path served the data.
func (s *Store) LoadForEmployee(ctx context.Context, employeeID string) ([]Request, bool, error) {
	reqs, err := s.remote.EmployeeRequests(ctx, employeeID)
	fromCache := false
	if err != nil {
		s.log.Warn("remote list failed, reading local cache",
			slog.String("employee_id", employeeID), slog.String("error", err.Error()))
		cached, cerr := s.loadCache(ctx)
		if cerr != nil {
			return nil, false, cerr
		}
		reqs = nil
		for _, r := range cached {
			if r.EmployeeID == employeeID {
				reqs = append(reqs, r)
			}
		}
		fromCache = true
	}

	s.mu.Lock()
	kept := s.requests[:0:0]
	for _, r := range s.requests {
		if r.EmployeeID != employeeID {
			kept = append(kept, r)
		}
	}
	s.requests = append(kept, reqs...)
	s.mu.Unlock()

	return append([]Request(nil), reqs...), fromCache, nil
}

// LoadAll fetches the administrative listing, with the same remote-then-cache
// fallback, and replaces the in-memory collection.
func (s *Store) LoadAll(ctx context.Context, f Filters) ([]Request, bool, error) {
	reqs, err := s.remote.AllRequests(ctx, f)
	fromCache := false
	if err != nil {
		s.log.Warn("remote list failed, reading local cache",
			slog.String("error", err.Error()))
		cached, cerr := s.loadCache(ctx)
		if cerr != nil {
			return nil, false, cerr
		}
		reqs = nil
		for _, r := range cached {
			if f.Match(r) {
				reqs = append(reqs, r)
			}
		}
		fromCache = true
	}

	s.mu.Lock()
	s.requests = append([]Request(nil), reqs...)
	s.mu.Unlock()

	return append([]Request(nil), reqs...), fromCache, nil
}

// LoadBalance returns an employee's balances. The first call fetches from the
// backend (degrading to catalog defaults flagged Stale); later calls serve
// the session snapshot, which reservations and settlements keep current.
// Overwriting the snapshot on every read would lose that bookkeeping.
func (s *Store) LoadBalance(ctx context.Context, employeeID string) (BalanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.balances[employeeID]
	if !ok {
		set = s.fetchBalancesLocked(ctx, employeeID)
	}
	return BalanceResult{Balances: set.clone(), Stale: s.stale[employeeID]}, nil
}

// RefreshBalance discards the session snapshot and re-fetches from the
// backend. When the backend is unreachable the current snapshot (or catalog
// defaults) is returned flagged Stale, and local bookkeeping is kept.
func (s *Store) RefreshBalance(ctx context.Context, employeeID string) (BalanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.remote.Balance(ctx, employeeID)
	if err != nil {
		s.log.Warn("remote balance refresh failed, keeping snapshot",
			slog.String("employee_id", employeeID), slog.String("error", err.Error()))
		existing, ok := s.balances[employeeID]
		if !ok {
			existing = s.catalog.DefaultBalancesAsOf(s.clock())
			s.balances[employeeID] = existing
		}
		s.stale[employeeID] = true
		return BalanceResult{Balances: existing.clone(), Stale: true}, nil
	}

	s.balances[employeeID] = set
	s.stale[employeeID] = false
	return BalanceResult{Balances: set.clone()}, nil
}

// fetchBalancesLocked loads and snapshots balances for an employee, degrading
// to accrual-capped catalog defaults when the backend is unreachable.
func (s *Store) fetchBalancesLocked(ctx context.Context, employeeID string) BalanceSet {
	set, err := s.remote.Balance(ctx, employeeID)
	if err != nil {
		s.log.Warn("remote balance failed, using catalog defaults",
			slog.String("employee_id", employeeID), slog.String("error", err.Error()))
		set = s.catalog.DefaultBalancesAsOf(s.clock())
		s.stale[employeeID] = true
	} else {
		s.stale[employeeID] = false
	}
	s.balances[employeeID] = set
	return set
}

// =============================================================================
// STATUS UPDATES
// =============================================================================

// UpdateStatus resolves a pending request to approved or rejected. Re-applying
// the current status is a state no-op that only restamps the update time; a
// conflicting re-resolution returns ErrInvalidTransition. On remote failure
// the cached record is mutated instead.
func (s *Store) UpdateStatus(ctx context.Context, id string, status RequestStatus, reason string) (*Request, error) {
	req, err := s.updateStatus(ctx, id, status, reason)
	if err != nil {
		return nil, err
	}
	s.notifier.StatusUpdated(*req)
	return req, nil
}

func (s *Store) updateStatus(ctx context.Context, id string, status RequestStatus, reason string) (*Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()

	current, found := s.findLocked(id)
	if !found {
		cached, cerr := s.loadCache(ctx)
		if cerr != nil {
			return nil, cerr
		}
		for _, r := range cached {
			if r.Matches(id) {
				current, found = r, true
				break
			}
		}
	}

	remoteReq, remoteErr := s.remote.UpdateStatus(ctx, id, status, reason, s.actor)
	if remoteErr != nil {
		s.log.Warn("remote status update failed, mutating local cache",
			slog.String("request_id", id), slog.String("status", string(status)),
			slog.String("error", remoteErr.Error()))
	} else if !found && remoteReq != nil {
		current, found = *remoteReq, true
	}
	if !found {
		return nil, ErrNotFound
	}

	wasPending := current.Status == StatusPending
	if err := resolve(&current, status, reason, s.actor, now); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		if cerr := s.cacheAppend(ctx, current); cerr != nil {
			return nil, cerr
		}
	}
	if wasPending {
		s.settleLocked(current, status)
	}
	s.mergeLocked(current)
	return &current, nil
}

// resolve applies a status transition in place. Idempotent on repeated
// identical calls: state is untouched beyond the update timestamp.
func resolve(r *Request, status RequestStatus, reason, actor string, now time.Time) error {
	if r.Status == status {
		r.UpdatedAt = now
		return nil
	}
	if r.Status != StatusPending {
		return fmt.Errorf("%w: request %s already %s", ErrInvalidTransition, r.ID, r.Status)
	}
	r.Status = status
	r.UpdatedAt = now
	at := now
	switch status {
	case StatusApproved:
		r.ApprovedBy = actor
		r.ApprovedAt = &at
	case StatusRejected:
		r.RejectedBy = actor
		r.RejectedAt = &at
		r.RejectionReason = reason
	}
	return nil
}

// =============================================================================
// IN-MEMORY FILTERS
// =============================================================================

// RequestsByStatus returns the in-memory requests with the given status.
// Pure filter: repeated calls without mutation yield identical results.
func (s *Store) RequestsByStatus(status RequestStatus) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// EmployeeRequests returns the in-memory requests for one employee.
func (s *Store) EmployeeRequests(employeeID string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// STATISTICS
// =============================================================================

// Statistics returns aggregate counts for requests submitted in [from, to].
// Remote aggregation first; on failure it computes locally over the union of
// the in-memory collection and the cache, reporting fromCache=true.
func (s *Store) Statistics(ctx context.Context, from, to time.Time) (*Stats, bool, error) {
	stats, err := s.remote.Statistics(ctx, from, to)
	if err == nil {
		return stats, false, nil
	}
	s.log.Warn("remote statistics failed, computing locally",
		slog.String("error", err.Error()))

	cached, cerr := s.loadCache(ctx)
	if cerr != nil {
		return nil, false, cerr
	}

	s.mu.Lock()
	union := append([]Request(nil), s.requests...)
	seen := make(map[string]bool, len(union))
	for _, r := range union {
		seen[r.ID] = true
	}
	for _, r := range cached {
		if !seen[r.ID] {
			union = append(union, r)
		}
	}
	s.mu.Unlock()

	return ComputeStats(union, from, to), true, nil
}

// =============================================================================
// BALANCE MUTATION (all under s.mu)
// =============================================================================

// reserveLocked moves days from current to pending. Types without a tracked
// balance (unknown to both backend and catalog) are left untracked rather
// than driven negative.
func (s *Store) reserveLocked(employeeID string, t Type, days int) bool {
	set, ok := s.balances[employeeID]
	if !ok {
		return false
	}
	b, ok := set[t]
	if !ok {
		return false
	}
	b.Pending = b.Pending.Add(decimal.NewFromInt(int64(days)))
	set[t] = b
	return true
}

// releaseLocked undoes a reservation after a failed persist.
func (s *Store) releaseLocked(employeeID string, t Type, days int) {
	set, ok := s.balances[employeeID]
	if !ok {
		return
	}
	b, ok := set[t]
	if !ok {
		return
	}
	b.Pending = clampZero(b.Pending.Sub(decimal.NewFromInt(int64(days))))
	set[t] = b
}

// settleLocked finalizes a pending reservation: approval converts pending to
// used; rejection releases it back to current.
func (s *Store) settleLocked(r Request, status RequestStatus) {
	set, ok := s.balances[r.EmployeeID]
	if !ok {
		return
	}
	b, ok := set[r.Type]
	if !ok {
		return
	}
	d := decimal.NewFromInt(int64(r.Days))
	b.Pending = clampZero(b.Pending.Sub(d))
	if status == StatusApproved {
		b.Used = b.Used.Add(d)
	}
	set[r.Type] = b
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (s BalanceSet) clone() BalanceSet {
	out := make(BalanceSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// =============================================================================
// COLLECTION AND CACHE HELPERS
// =============================================================================

// mergeLocked inserts or replaces a request by identifier, so duplicate event
// deliveries and reloads cannot double-insert.
func (s *Store) mergeLocked(req Request) {
	for i := range s.requests {
		if s.requests[i].Matches(req.ID) {
			s.requests[i] = req
			return
		}
	}
	s.requests = append(s.requests, req)
}

func (s *Store) findLocked(id string) (Request, bool) {
	for _, r := range s.requests {
		if r.Matches(id) {
			return r, true
		}
	}
	return Request{}, false
}

// loadCache reads the cached collection, treating a corrupt payload as empty.
func (s *Store) loadCache(ctx context.Context) ([]Request, error) {
	reqs, err := s.cache.LoadRequests(ctx)
	if err != nil {
		if errors.Is(err, ErrCacheCorrupted) {
			s.log.Warn("cache payload corrupted, treating as empty")
			return nil, nil
		}
		return nil, err
	}
	return reqs, nil
}

// cacheAppend adds a request to the cached collection (read-modify-write).
func (s *Store) cacheAppend(ctx context.Context, req Request) error {
	reqs, err := s.loadCache(ctx)
	if err != nil {
		return err
	}
	for i := range reqs {
		if reqs[i].Matches(req.ID) {
			reqs[i] = req
			return s.cache.SaveRequests(ctx, reqs)
		}
	}
	return s.cache.SaveRequests(ctx, append(reqs, req))
}
