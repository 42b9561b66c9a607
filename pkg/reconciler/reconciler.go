package reconciler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

const restartMessage = "API restarted during provisioning. Click retry to re-attempt."

// ReadinessChecker reports whether all pods in a namespace are ready
type ReadinessChecker interface {
	AllPodsReady(ctx context.Context, namespace string) (bool, error)
}

// Reconciler converges persisted store state with cluster reality after a
// restart. Any store left in queued or provisioning belongs to a workflow
// that died with a previous process; the reconciler settles its record but
// never resumes provisioning on its own - retry is an operator decision.
type Reconciler struct {
	store   storage.Store
	engines *engine.Registry
	cluster ReadinessChecker
	logger  zerolog.Logger
}

// New creates a Reconciler
func New(store storage.Store, engines *engine.Registry, cluster ReadinessChecker) *Reconciler {
	return &Reconciler{
		store:   store,
		engines: engines,
		cluster: cluster,
		logger:  log.WithComponent("reconciler"),
	}
}

// Run performs one reconciliation pass over all stores. It is called once at
// process start, alongside the API server. Errors on individual stores are
// recorded and do not stop the pass.
func (r *Reconciler) Run(ctx context.Context) error {
	stores, err := r.store.ListStores()
	if err != nil {
		return fmt.Errorf("failed to list stores: %w", err)
	}

	recovered := 0
	for _, store := range stores {
		if store.Status != types.StoreStatusProvisioning && store.Status != types.StoreStatusQueued {
			continue
		}
		recovered++
		r.recover(ctx, store)
	}

	r.logger.Info().
		Int("total", len(stores)).
		Int("recovered", recovered).
		Msg("Startup reconciliation complete")
	return nil
}

// recover settles one mid-flight store record against the cluster
func (r *Reconciler) recover(ctx context.Context, store *types.Store) {
	storeLog := r.logger.With().Str("store_id", store.ID).Str("status", string(store.Status)).Logger()
	storeLog.Info().Msg("Recovering store left mid-flight")

	ready, err := r.cluster.AllPodsReady(ctx, store.Namespace)
	if err != nil {
		message := fmt.Sprintf("Recovery failed: %s", err)
		if updateErr := r.store.UpdateStoreStatus(store.ID, types.StoreStatusFailed, message); updateErr != nil {
			storeLog.Error().Err(updateErr).Msg("Failed to record recovery failure")
		}
		storeLog.Error().Err(err).Msg("Recovery query failed")
		return
	}

	if ready {
		eng, err := r.engines.Get(store.Engine)
		if err != nil {
			r.markFailed(store.ID, fmt.Sprintf("Recovery failed: %s", err), storeLog)
			return
		}
		storeURL, adminURL := eng.URLs(store.ID)
		if err := r.store.MarkStoreReady(store.ID, storeURL, adminURL); err != nil {
			storeLog.Error().Err(err).Msg("Failed to mark recovered store ready")
			return
		}
		r.audit(store.ID, "marked_ready")
		storeLog.Info().Msg("Store recovered as ready")
		return
	}

	r.markFailed(store.ID, restartMessage, storeLog)
	r.audit(store.ID, "marked_failed")
	storeLog.Warn().Msg("Store recovered as failed, awaiting operator retry")
}

func (r *Reconciler) markFailed(storeID, message string, storeLog zerolog.Logger) {
	if err := r.store.UpdateStoreStatus(storeID, types.StoreStatusFailed, message); err != nil {
		storeLog.Error().Err(err).Msg("Failed to mark recovered store failed")
	}
}

// audit records the recovery outcome; failures are logged like every other
// best-effort audit write
func (r *Reconciler) audit(storeID, result string) {
	err := r.store.AppendAudit(storeID, types.AuditActionRecovery, map[string]string{
		"result": result,
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("store_id", storeID).Msg("Failed to append recovery audit entry")
	}
}
