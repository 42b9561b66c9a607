package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

var (
	// Bucket names
	bucketStores = []byte("stores")
	bucketAudit  = []byte("audit_log")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "stores.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketStores,
			bucketAudit,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:     db,
		logger: log.WithComponent("storage"),
	}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateStore inserts a new store record and appends a create audit entry
func (s *BoltStore) CreateStore(store *types.Store) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		if b.Get([]byte(store.ID)) != nil {
			return fmt.Errorf("store already exists: %s", store.ID)
		}
		data, err := json.Marshal(store)
		if err != nil {
			return err
		}
		return b.Put([]byte(store.ID), data)
	})
	if err != nil {
		return err
	}

	s.auditBestEffort(store.ID, types.AuditActionCreate, map[string]string{
		"name":   store.Name,
		"engine": store.Engine,
	})
	return nil
}

// GetStore retrieves a store by ID
func (s *BoltStore) GetStore(id string) (*types.Store, error) {
	var store types.Store
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, id)
		}
		return json.Unmarshal(data, &store)
	})
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// ListStores returns all stores, newest first
func (s *BoltStore) ListStores() ([]*types.Store, error) {
	var stores []*types.Store
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		return b.ForEach(func(k, v []byte) error {
			var store types.Store
			if err := json.Unmarshal(v, &store); err != nil {
				return err
			}
			stores = append(stores, &store)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stores, func(i, j int) bool {
		return stores[i].CreatedAt.After(stores[j].CreatedAt)
	})
	return stores, nil
}

// ActiveStoreCount returns the number of stores holding a platform slot,
// i.e. every store not in deleted or failed state.
func (s *BoltStore) ActiveStoreCount() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		return b.ForEach(func(k, v []byte) error {
			var store types.Store
			if err := json.Unmarshal(v, &store); err != nil {
				return err
			}
			if store.Status.Active() {
				count++
			}
			return nil
		})
	})
	return count, err
}

// mutateStore loads a store, applies fn, bumps updated_at and writes it back.
// Mutations of deleted stores are rejected: deleted is terminal.
func (s *BoltStore) mutateStore(id string, fn func(*types.Store) error) (*types.Store, error) {
	var store types.Store
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, id)
		}
		if err := json.Unmarshal(data, &store); err != nil {
			return err
		}
		if store.Status == types.StoreStatusDeleted {
			return fmt.Errorf("%w: %s", ErrStoreDeleted, id)
		}
		if err := fn(&store); err != nil {
			return err
		}
		store.UpdatedAt = time.Now().UTC()
		updated, err := json.Marshal(&store)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// UpdateStoreStatus transitions a store to the given status and appends a
// status_change audit entry. errorMessage replaces any previous error.
func (s *BoltStore) UpdateStoreStatus(id string, status types.StoreStatus, errorMessage string) error {
	_, err := s.mutateStore(id, func(store *types.Store) error {
		store.Status = status
		store.ErrorMessage = errorMessage
		return nil
	})
	if err != nil {
		return err
	}

	details := map[string]string{"status": string(status)}
	if errorMessage != "" {
		details["error_message"] = errorMessage
	}
	s.auditBestEffort(id, types.AuditActionStatusChange, details)
	return nil
}

// MarkStoreReady transitions a store to ready with its public URLs and
// clears any previous error
func (s *BoltStore) MarkStoreReady(id, storeURL, adminURL string) error {
	_, err := s.mutateStore(id, func(store *types.Store) error {
		store.Status = types.StoreStatusReady
		store.StoreURL = storeURL
		store.AdminURL = adminURL
		store.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return err
	}

	s.auditBestEffort(id, types.AuditActionStatusChange, map[string]string{
		"status":    string(types.StoreStatusReady),
		"store_url": storeURL,
		"admin_url": adminURL,
	})
	return nil
}

// MarkStoreDeleted transitions a store to its terminal deleted state
func (s *BoltStore) MarkStoreDeleted(id string) error {
	_, err := s.mutateStore(id, func(store *types.Store) error {
		store.Status = types.StoreStatusDeleted
		store.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return err
	}

	s.auditBestEffort(id, types.AuditActionDelete, map[string]string{
		"status": string(types.StoreStatusDeleted),
	})
	return nil
}

// RecentFailures returns the n most recently updated failed stores
func (s *BoltStore) RecentFailures(n int) ([]*types.Store, error) {
	stores, err := s.ListStores()
	if err != nil {
		return nil, err
	}

	var failed []*types.Store
	for _, store := range stores {
		if store.Status == types.StoreStatusFailed {
			failed = append(failed, store)
		}
	}

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].UpdatedAt.After(failed[j].UpdatedAt)
	})
	if n > 0 && len(failed) > n {
		failed = failed[:n]
	}
	return failed, nil
}

// StatusHistogram returns store counts grouped by lifecycle state
func (s *BoltStore) StatusHistogram() (map[types.StoreStatus]int, error) {
	histogram := make(map[types.StoreStatus]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		return b.ForEach(func(k, v []byte) error {
			var store types.Store
			if err := json.Unmarshal(v, &store); err != nil {
				return err
			}
			histogram[store.Status]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return histogram, nil
}

// ProvisioningStats aggregates updated_at - created_at over ready stores
func (s *BoltStore) ProvisioningStats() (*types.ProvisioningStats, error) {
	stats := &types.ProvisioningStats{}
	var total float64

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStores)
		return b.ForEach(func(k, v []byte) error {
			var store types.Store
			if err := json.Unmarshal(v, &store); err != nil {
				return err
			}
			if store.Status != types.StoreStatusReady {
				return nil
			}
			seconds := store.UpdatedAt.Sub(store.CreatedAt).Seconds()
			if stats.TotalProvisioned == 0 || seconds < stats.MinDurationSeconds {
				stats.MinDurationSeconds = seconds
			}
			if seconds > stats.MaxDurationSeconds {
				stats.MaxDurationSeconds = seconds
			}
			total += seconds
			stats.TotalProvisioned++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if stats.TotalProvisioned > 0 {
		stats.AvgDurationSeconds = total / float64(stats.TotalProvisioned)
	}
	return stats, nil
}

// AppendAudit writes one audit entry. The entry id comes from the bucket
// sequence and keys are big-endian, so cursor order equals id order.
func (s *BoltStore) AppendAudit(storeID string, action types.AuditAction, details map[string]string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudit)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}

		entry := types.AuditEntry{
			ID:        id,
			StoreID:   storeID,
			Action:    action,
			Details:   details,
			CreatedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return b.Put(auditKey(id), data)
	})
}

// auditBestEffort appends an audit entry after a committed mutation.
// Failure is logged and never propagated: audit is write-through,
// at-least-once, and does not roll back the mutation it records.
func (s *BoltStore) auditBestEffort(storeID string, action types.AuditAction, details map[string]string) {
	if err := s.AppendAudit(storeID, action, details); err != nil {
		s.logger.Warn().
			Err(err).
			Str("store_id", storeID).
			Str("action", string(action)).
			Msg("Failed to append audit entry")
	}
}

// ListAudit returns up to limit audit entries, newest first.
// A limit of zero or less returns all entries.
func (s *BoltStore) ListAudit(limit int) ([]*types.AuditEntry, error) {
	var entries []*types.AuditEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry types.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAuditForStore returns all audit entries for one store, newest first
func (s *BoltStore) ListAuditForStore(storeID string) ([]*types.AuditEntry, error) {
	var entries []*types.AuditEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry types.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if entry.StoreID == storeID {
				entries = append(entries, &entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func auditKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
