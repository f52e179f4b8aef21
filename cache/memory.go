// Package cache provides leave.Cache implementations.
package cache

import (
	"context"
	"sync"

	"github.com/staffhive/leave-engine/leave"
)

// =============================================================================
// MEMORY CACHE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory Cache. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	requests []leave.Request
	revision int64
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadRequests(_ context.Context) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Request, len(m.requests))
	copy(out, m.requests)
	return out, nil
}

// SaveRequests replaces the collection wholesale and bumps the revision.
func (m *Memory) SaveRequests(_ context.Context, reqs []leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make([]leave.Request, len(reqs))
	copy(m.requests, reqs)
	m.revision++
	return nil
}

func (m *Memory) Revision(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision, nil
}

var _ leave.Cache = (*Memory)(nil)
