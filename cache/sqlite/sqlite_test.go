package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhive/leave-engine/cache/sqlite"
	"github.com/staffhive/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestCache(t *testing.T) *sqlite.Cache {
	c, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleRequests() []leave.Request {
	return []leave.Request{
		{
			ID:          "LR_1700000000000_abc",
			EmployeeID:  "emp-1",
			Type:        leave.TypeAnnual,
			StartDate:   time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC),
			Days:        3,
			Reason:      "Family trip",
			Status:      leave.StatusPending,
			SubmittedAt: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         "LR_1700000000001_def",
			LegacyID:   "1700000000001",
			EmployeeID: "emp-2",
			Type:       leave.TypeSick,
			Days:       1,
			Status:     leave.StatusApproved,
		},
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestCache_EmptyCollection(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	reqs, err := c.LoadRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	rev, err := c.Revision(ctx)
	require.NoError(t, err)
	assert.Zero(t, rev)
}

func TestCache_SaveAndLoad(t *testing.T) {
	// GIVEN: A saved collection
	// WHEN: Loading it back
	// THEN: Identifiers, day counts, and legacy ids survive the round trip

	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveRequests(ctx, sampleRequests()))

	loaded, err := c.LoadRequests(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "LR_1700000000000_abc", loaded[0].ID)
	assert.Equal(t, 3, loaded[0].Days)
	assert.Equal(t, leave.StatusPending, loaded[0].Status)
	assert.Equal(t, "1700000000001", loaded[1].LegacyID)
}

func TestCache_RevisionBumpsPerWrite(t *testing.T) {
	// Watchers poll the revision; every write must move it.

	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveRequests(ctx, sampleRequests()))
	rev1, err := c.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev1)

	require.NoError(t, c.SaveRequests(ctx, sampleRequests()[:1]))
	rev2, err := c.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev2)
}

func TestCache_LastWriteWins(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveRequests(ctx, sampleRequests()))
	require.NoError(t, c.SaveRequests(ctx, nil))

	loaded, err := c.LoadRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCache_SharedFile_CrossInstance(t *testing.T) {
	// Two cache handles on the same file model two processes sharing it.

	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	writer, err := sqlite.New(path)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := sqlite.New(path)
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, writer.SaveRequests(ctx, sampleRequests()))

	loaded, err := reader.LoadRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	rev, err := reader.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

// =============================================================================
// CORRUPTION TESTS
// =============================================================================

func TestCache_CorruptPayload(t *testing.T) {
	// GIVEN: A payload that is not valid JSON (edited out of band)
	// WHEN: Loading
	// THEN: ErrCacheCorrupted, so the store can degrade to an empty set

	path := filepath.Join(t.TempDir(), "corrupt.db")
	ctx := context.Background()

	c, err := sqlite.New(path)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SaveRequests(ctx, sampleRequests()))

	// Simulate the out-of-band edit through a raw connection.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE collections SET payload = '{not json' WHERE name = 'leave_requests'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = c.LoadRequests(ctx)
	assert.ErrorIs(t, err, leave.ErrCacheCorrupted)
}
