package storage

import (
	"errors"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

// ErrStoreNotFound is returned when a store id does not exist in the registry.
var ErrStoreNotFound = errors.New("store not found")

// ErrStoreDeleted is returned when a mutation targets a deleted store.
// Deleted is a terminal state; no further mutation is accepted.
var ErrStoreDeleted = errors.New("store is deleted")

// Store defines the persistence interface for the store registry and the
// append-only audit log. Implementations are single-writer: the control plane
// process owns the database exclusively.
type Store interface {
	// Store registry
	CreateStore(store *types.Store) error
	GetStore(id string) (*types.Store, error)
	ListStores() ([]*types.Store, error)
	ActiveStoreCount() (int, error)
	UpdateStoreStatus(id string, status types.StoreStatus, errorMessage string) error
	MarkStoreReady(id, storeURL, adminURL string) error
	MarkStoreDeleted(id string) error
	RecentFailures(n int) ([]*types.Store, error)
	StatusHistogram() (map[types.StoreStatus]int, error)
	ProvisioningStats() (*types.ProvisioningStats, error)

	// Audit log. Registry mutations append their own entries best-effort:
	// a failed append is logged by the implementation and never rolls back
	// the mutation. AppendAudit itself returns its error to the caller.
	AppendAudit(storeID string, action types.AuditAction, details map[string]string) error
	ListAudit(limit int) ([]*types.AuditEntry, error)
	ListAuditForStore(storeID string) ([]*types.AuditEntry, error)

	Close() error
}
