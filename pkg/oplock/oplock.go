package oplock

import (
	"sync"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

// Lock is the in-process per-store operation lock. At most one lifecycle
// operation may run against a store id at any time; the second claimant
// observes the holder's kind instead of acquiring.
//
// The lock is advisory and not persistent. After a crash it is empty and
// correctness is re-established by the startup reconciler together with the
// deployer's release-exists idempotency.
type Lock struct {
	mu     sync.Mutex
	active map[string]types.OperationKind
}

// New creates an empty operation lock
func New() *Lock {
	return &Lock{active: make(map[string]types.OperationKind)}
}

// Acquire claims the lock for a store. It returns true on success, or false
// plus the currently held kind when an operation is already active.
func (l *Lock) Acquire(storeID string, kind types.OperationKind) (bool, types.OperationKind) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.active[storeID]; ok {
		return false, held
	}
	l.active[storeID] = kind
	return true, ""
}

// Release drops the lock for a store. Releasing an unheld lock is a no-op.
func (l *Lock) Release(storeID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, storeID)
}

// Get returns the operation kind currently held for a store, if any
func (l *Lock) Get(storeID string) (types.OperationKind, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kind, ok := l.active[storeID]
	return kind, ok
}

// Len returns the number of stores with an active operation
func (l *Lock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
