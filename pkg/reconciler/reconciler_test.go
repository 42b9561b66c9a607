package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

type fakeChecker struct {
	ready map[string]bool
	err   error
}

func (c *fakeChecker) AllPodsReady(ctx context.Context, namespace string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.ready[namespace], nil
}

func newTestRegistry() *engine.Registry {
	engines := engine.NewRegistry()
	engines.Register(engine.NewWooCommerce(engine.WooCommerceConfig{
		ChartPath:  "./charts/wordpress",
		BaseDomain: "127.0.0.1.nip.io",
		AdminUser:  "admin",
		AdminEmail: "admin@example.com",
	}))
	return engines
}

func seed(t *testing.T, store storage.Store, id string, status types.StoreStatus) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, store.CreateStore(&types.Store{
		ID:          id,
		Name:        "Shop " + id,
		Engine:      "woocommerce",
		Status:      types.StoreStatusQueued,
		Namespace:   id,
		HelmRelease: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	if status != types.StoreStatusQueued {
		require.NoError(t, store.UpdateStoreStatus(id, status, ""))
	}
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecoverReadyStore(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "store-1a2b3c4d", types.StoreStatusProvisioning)

	checker := &fakeChecker{ready: map[string]bool{"store-1a2b3c4d": true}}
	r := New(store, newTestRegistry(), checker)
	require.NoError(t, r.Run(context.Background()))

	got, err := store.GetStore("store-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusReady, got.Status)
	assert.Equal(t, "http://store-1a2b3c4d.127.0.0.1.nip.io", got.StoreURL)
	assert.Equal(t, "http://store-1a2b3c4d.127.0.0.1.nip.io/wp-admin", got.AdminURL)

	entries, err := store.ListAuditForStore("store-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, types.AuditActionRecovery, entries[0].Action)
	assert.Equal(t, "marked_ready", entries[0].Details["result"])
}

func TestRecoverUnreadyStore(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "store-1a2b3c4d", types.StoreStatusQueued)

	checker := &fakeChecker{ready: map[string]bool{}}
	r := New(store, newTestRegistry(), checker)
	require.NoError(t, r.Run(context.Background()))

	got, err := store.GetStore("store-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusFailed, got.Status)
	assert.Equal(t, "API restarted during provisioning. Click retry to re-attempt.", got.ErrorMessage)

	entries, err := store.ListAuditForStore("store-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, types.AuditActionRecovery, entries[0].Action)
	assert.Equal(t, "marked_failed", entries[0].Details["result"])
}

func TestRecoverQueryError(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "store-1a2b3c4d", types.StoreStatusProvisioning)

	checker := &fakeChecker{err: errors.New("connection refused")}
	r := New(store, newTestRegistry(), checker)
	require.NoError(t, r.Run(context.Background()))

	got, err := store.GetStore("store-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "Recovery failed:")
	assert.Contains(t, got.ErrorMessage, "connection refused")
}

func TestSettledStoresUntouched(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "store-00000001", types.StoreStatusReady)
	seed(t, store, "store-00000002", types.StoreStatusFailed)
	seed(t, store, "store-00000003", types.StoreStatusProvisioning)

	// Mark the failed one properly so the invariant holds
	require.NoError(t, store.UpdateStoreStatus("store-00000002", types.StoreStatusFailed, "earlier failure"))

	checker := &fakeChecker{ready: map[string]bool{"store-00000003": true}}
	r := New(store, newTestRegistry(), checker)
	require.NoError(t, r.Run(context.Background()))

	ready, err := store.GetStore("store-00000001")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusReady, ready.Status)

	failed, err := store.GetStore("store-00000002")
	require.NoError(t, err)
	assert.Equal(t, "earlier failure", failed.ErrorMessage)

	recovered, err := store.GetStore("store-00000003")
	require.NoError(t, err)
	assert.Equal(t, types.StoreStatusReady, recovered.Status)
}
