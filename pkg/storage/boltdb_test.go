package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func seedStore(t *testing.T, store *BoltStore, id string, status types.StoreStatus) *types.Store {
	t.Helper()

	now := time.Now().UTC()
	s := &types.Store{
		ID:          id,
		Name:        "Store " + id,
		Engine:      "woocommerce",
		Status:      types.StoreStatusQueued,
		Namespace:   id,
		HelmRelease: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateStore(s))
	if status != types.StoreStatusQueued {
		require.NoError(t, store.UpdateStoreStatus(id, status, statusError(status)))
	}
	return s
}

// statusError supplies the error message the failed state requires
func statusError(status types.StoreStatus) string {
	if status == types.StoreStatusFailed {
		return "seeded failure"
	}
	return ""
}

func TestCreateAndGetStore(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)

	got, err := store.GetStore("store-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, "store-aaaa1111", got.ID)
	assert.Equal(t, types.StoreStatusQueued, got.Status)
	assert.Equal(t, "store-aaaa1111", got.Namespace)
	assert.Equal(t, "store-aaaa1111", got.HelmRelease)
}

func TestCreateStoreDuplicate(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)

	err := store.CreateStore(&types.Store{ID: "store-aaaa1111"})
	assert.ErrorContains(t, err, "already exists")
}

func TestGetStoreNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetStore("store-ffffffff")
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestListStoresNewestFirst(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"store-00000001", "store-00000002", "store-00000003"} {
		seedStore(t, store, id, types.StoreStatusQueued)
		time.Sleep(2 * time.Millisecond)
	}

	stores, err := store.ListStores()
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, "store-00000003", stores[0].ID)
	assert.Equal(t, "store-00000001", stores[2].ID)
}

func TestActiveStoreCount(t *testing.T) {
	tests := []struct {
		name     string
		statuses []types.StoreStatus
		expected int
	}{
		{
			name:     "all active",
			statuses: []types.StoreStatus{types.StoreStatusQueued, types.StoreStatusProvisioning, types.StoreStatusReady},
			expected: 3,
		},
		{
			name:     "failed excluded, deleting counted",
			statuses: []types.StoreStatus{types.StoreStatusReady, types.StoreStatusFailed, types.StoreStatusDeleting},
			expected: 2,
		},
		{
			name:     "empty registry",
			statuses: nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			for i, status := range tt.statuses {
				seedStore(t, store, "store-0000000"+string(rune('a'+i)), status)
			}

			count, err := store.ActiveStoreCount()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)
		})
	}
}

func TestUpdateStoreStatusBumpsUpdatedAt(t *testing.T) {
	store := newTestStore(t)

	seeded := seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, store.UpdateStoreStatus("store-aaaa1111", types.StoreStatusProvisioning, ""))

	got, err := store.GetStore("store-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusProvisioning, got.Status)
	assert.True(t, got.UpdatedAt.After(seeded.UpdatedAt))
}

func TestMarkStoreReadyClearsError(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusFailed)

	require.NoError(t, store.MarkStoreReady("store-aaaa1111",
		"http://store-aaaa1111.127.0.0.1.nip.io",
		"http://store-aaaa1111.127.0.0.1.nip.io/wp-admin"))

	got, err := store.GetStore("store-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusReady, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, "http://store-aaaa1111.127.0.0.1.nip.io", got.StoreURL)
	assert.Equal(t, "http://store-aaaa1111.127.0.0.1.nip.io/wp-admin", got.AdminURL)
}

func TestDeletedIsTerminal(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)
	require.NoError(t, store.MarkStoreDeleted("store-aaaa1111"))

	assert.ErrorIs(t, store.UpdateStoreStatus("store-aaaa1111", types.StoreStatusProvisioning, ""), ErrStoreDeleted)
	assert.ErrorIs(t, store.MarkStoreReady("store-aaaa1111", "u", "a"), ErrStoreDeleted)
	assert.ErrorIs(t, store.MarkStoreDeleted("store-aaaa1111"), ErrStoreDeleted)

	got, err := store.GetStore("store-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusDeleted, got.Status)
}

func TestRecentFailures(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-00000001", types.StoreStatusFailed)
	time.Sleep(2 * time.Millisecond)
	seedStore(t, store, "store-00000002", types.StoreStatusReady)
	time.Sleep(2 * time.Millisecond)
	seedStore(t, store, "store-00000003", types.StoreStatusFailed)

	failures, err := store.RecentFailures(5)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "store-00000003", failures[0].ID)
	assert.Equal(t, "store-00000001", failures[1].ID)

	one, err := store.RecentFailures(1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "store-00000003", one[0].ID)
}

func TestStatusHistogram(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-00000001", types.StoreStatusReady)
	seedStore(t, store, "store-00000002", types.StoreStatusReady)
	seedStore(t, store, "store-00000003", types.StoreStatusFailed)

	histogram, err := store.StatusHistogram()
	require.NoError(t, err)
	assert.Equal(t, 2, histogram[types.StoreStatusReady])
	assert.Equal(t, 1, histogram[types.StoreStatusFailed])
	assert.Equal(t, 0, histogram[types.StoreStatusQueued])
}

func TestProvisioningStats(t *testing.T) {
	store := newTestStore(t)

	// No ready stores yet
	stats, err := store.ProvisioningStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalProvisioned)
	assert.Zero(t, stats.AvgDurationSeconds)

	seedStore(t, store, "store-00000001", types.StoreStatusQueued)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.MarkStoreReady("store-00000001", "u", "a"))

	stats, err = store.ProvisioningStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProvisioned)
	assert.Greater(t, stats.AvgDurationSeconds, 0.0)
	assert.Equal(t, stats.MinDurationSeconds, stats.MaxDurationSeconds)
}

func TestAuditAppendOnlyAndMonotone(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendAudit("store-00000001", types.AuditActionCreate, map[string]string{"name": "a"}))
	require.NoError(t, store.AppendAudit("store-00000002", types.AuditActionCreate, map[string]string{"name": "b"}))
	require.NoError(t, store.AppendAudit("store-00000001", types.AuditActionStatusChange, map[string]string{"status": "ready"}))

	entries, err := store.ListAudit(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first, ids strictly decreasing, no duplicates
	seen := make(map[uint64]bool)
	for i, entry := range entries {
		assert.False(t, seen[entry.ID], "duplicate audit id %d", entry.ID)
		seen[entry.ID] = true
		if i > 0 {
			assert.Less(t, entry.ID, entries[i-1].ID)
		}
	}
}

func TestAuditEmittedByMutations(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)
	require.NoError(t, store.UpdateStoreStatus("store-aaaa1111", types.StoreStatusProvisioning, ""))
	require.NoError(t, store.MarkStoreReady("store-aaaa1111", "u", "a"))
	require.NoError(t, store.MarkStoreDeleted("store-aaaa1111"))

	entries, err := store.ListAuditForStore("store-aaaa1111")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Newest first: delete, ready, provisioning, create
	assert.Equal(t, types.AuditActionDelete, entries[0].Action)
	assert.Equal(t, types.AuditActionStatusChange, entries[1].Action)
	assert.Equal(t, "ready", entries[1].Details["status"])
	assert.Equal(t, types.AuditActionStatusChange, entries[2].Action)
	assert.Equal(t, "provisioning", entries[2].Details["status"])
	assert.Equal(t, types.AuditActionCreate, entries[3].Action)
}

func TestListAuditLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.AppendAudit("", types.AuditActionCreate, nil))
	}

	entries, err := store.ListAudit(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFailedStatusCarriesError(t *testing.T) {
	store := newTestStore(t)

	seedStore(t, store, "store-aaaa1111", types.StoreStatusQueued)
	require.NoError(t, store.UpdateStoreStatus("store-aaaa1111", types.StoreStatusFailed, "Helm command failed: boom"))

	got, err := store.GetStore("store-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusFailed, got.Status)
	assert.Equal(t, "Helm command failed: boom", got.ErrorMessage)
}
