package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/helm"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/metrics"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/oplock"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

const (
	defaultProvisionTimeout = 600 * time.Second
	defaultPollInterval     = 5 * time.Second
	defaultMaxPollAttempts  = 60
	failureEventCount       = 5

	timeoutMessage = "Provisioning timed out"
)

// ErrOperationInProgress is returned when a lifecycle operation is already
// running against the store.
var ErrOperationInProgress = errors.New("operation already in progress")

// errPollExhausted marks a readiness poll that ran out of attempts. It is
// reported to the operator the same way as a deadline expiry.
var errPollExhausted = errors.New("readiness poll exhausted")

// ChartDeployer installs and removes namespaced chart releases
type ChartDeployer interface {
	Install(ctx context.Context, req helm.InstallRequest) (helm.InstallResult, error)
	Uninstall(ctx context.Context, release, namespace string, wait bool) (helm.UninstallResult, error)
	ReleaseExists(ctx context.Context, release, namespace string) (bool, error)
}

// ClusterInspector answers readiness and cleanup questions about a store
// namespace
type ClusterInspector interface {
	AllPodsReady(ctx context.Context, namespace string) (bool, error)
	FailingPods(ctx context.Context, namespace string) ([]types.PodStatus, error)
	Events(ctx context.Context, namespace string, limit int) ([]types.ClusterEvent, error)
	DeleteNamespace(ctx context.Context, namespace string, wait bool) error
}

// Config tunes workflow timing. Zero values select production defaults;
// tests shrink all three.
type Config struct {
	ProvisionTimeout time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int
}

// Provisioner drives store lifecycle workflows to completion: install, poll
// readiness, mark ready or failed; uninstall, cascade-delete, mark deleted.
// Workflows run on their own goroutines, fired from API handlers; outcomes
// land in the registry, never in an HTTP response.
type Provisioner struct {
	store    storage.Store
	engines  *engine.Registry
	deployer ChartDeployer
	cluster  ClusterInspector
	locks    *oplock.Lock

	timeout      time.Duration
	pollInterval time.Duration
	maxAttempts  int
	logger       zerolog.Logger
}

// New creates a Provisioner
func New(store storage.Store, engines *engine.Registry, deployer ChartDeployer, cluster ClusterInspector, locks *oplock.Lock, cfg Config) *Provisioner {
	if cfg.ProvisionTimeout <= 0 {
		cfg.ProvisionTimeout = defaultProvisionTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}

	return &Provisioner{
		store:        store,
		engines:      engines,
		deployer:     deployer,
		cluster:      cluster,
		locks:        locks,
		timeout:      cfg.ProvisionTimeout,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxPollAttempts,
		logger:       log.WithComponent("provisioner"),
	}
}

// Provision runs the full provisioning workflow for a store: validate the
// engine, install the chart, poll pod readiness, and record the outcome.
// A second Provision call while one is running returns quietly; re-running
// after a crash is safe because the install short-circuits on an existing
// release.
func (p *Provisioner) Provision(storeID string) error {
	storeLog := log.WithStoreID(storeID)

	acquired, _ := p.locks.Acquire(storeID, types.OperationProvisioning)
	if !acquired {
		storeLog.Debug().Msg("Provision already active, skipping")
		return nil
	}
	defer p.locks.Release(storeID)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	timer := metrics.NewTimer()
	err := p.provision(ctx, storeID, storeLog)

	switch {
	case err == nil:
		timer.ObserveDuration(metrics.ProvisionDuration)
		metrics.ProvisionsTotal.WithLabelValues("ready").Inc()
		storeLog.Info().Msg("Store provisioned")
		return nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errPollExhausted):
		metrics.ProvisionsTotal.WithLabelValues("timeout").Inc()
		p.failStore(storeID, timeoutMessage, storeLog)
		storeLog.Error().Msg("Provisioning timed out")
		return fmt.Errorf("%s: %s", timeoutMessage, storeID)

	default:
		metrics.ProvisionsTotal.WithLabelValues("failed").Inc()
		p.failStore(storeID, err.Error(), storeLog)
		storeLog.Error().Err(err).Msg("Provisioning failed")
		return err
	}
}

func (p *Provisioner) provision(ctx context.Context, storeID string, storeLog zerolog.Logger) error {
	store, err := p.store.GetStore(storeID)
	if err != nil {
		return err
	}

	eng, err := p.engines.Get(store.Engine)
	if err != nil {
		return err
	}
	if result := eng.Validate(); !result.Valid {
		return fmt.Errorf("engine %s unavailable: %s", store.Engine, result.Error)
	}

	if err := p.store.UpdateStoreStatus(storeID, types.StoreStatusProvisioning, ""); err != nil {
		return err
	}

	values, err := eng.Values(storeID)
	if err != nil {
		return err
	}

	installed, err := p.deployer.Install(ctx, helm.InstallRequest{
		Release:         store.HelmRelease,
		ChartPath:       eng.ChartPath(),
		Namespace:       store.Namespace,
		CreateNamespace: true,
		Values:          values,
	})
	if err != nil {
		metrics.HelmFailuresTotal.Inc()
		return err
	}
	if installed.AlreadyExists {
		storeLog.Info().Msg("Release already installed, polling readiness")
	}

	if err := p.pollReadiness(ctx, store.Namespace); err != nil {
		return err
	}

	storeURL, adminURL := eng.URLs(storeID)
	return p.store.MarkStoreReady(storeID, storeURL, adminURL)
}

// pollReadiness waits for every long-running pod in the namespace to report
// Ready=True. It fails fast when a pod enters phase Failed or crosses the
// crashloop restart threshold, enriching the error with recent namespace
// events captured at the moment of failure.
func (p *Provisioner) pollReadiness(ctx context.Context, namespace string) error {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, err := p.cluster.AllPodsReady(ctx, namespace)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		failing, err := p.cluster.FailingPods(ctx, namespace)
		if err != nil {
			return err
		}
		if len(failing) > 0 {
			return p.failFastError(ctx, namespace, failing)
		}

		p.logger.Debug().
			Str("namespace", namespace).
			Int("attempt", attempt).
			Int("max_attempts", p.maxAttempts).
			Msg("Pods not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	return errPollExhausted
}

// failFastError builds the operator-facing abort message: the failing pod
// names plus a summary of the most recent namespace events.
func (p *Provisioner) failFastError(ctx context.Context, namespace string, failing []types.PodStatus) error {
	names := make([]string, 0, len(failing))
	for _, pod := range failing {
		names = append(names, pod.Name)
	}

	summary := "unavailable"
	events, err := p.cluster.Events(ctx, namespace, failureEventCount)
	if err != nil {
		p.logger.Warn().Err(err).Str("namespace", namespace).Msg("Failed to fetch events for failure summary")
	} else {
		lines := make([]string, 0, len(events))
		for _, ev := range events {
			lines = append(lines, fmt.Sprintf("%s: %s", ev.Reason, ev.Message))
		}
		summary = strings.Join(lines, "; ")
	}

	return fmt.Errorf("Pods failed: %s. Events: %s", strings.Join(names, ", "), summary)
}

// Delete runs the teardown workflow: uninstall the release, cascade-delete
// the namespace, and mark the record deleted. Uninstall failure is a
// warning, not an abort - the namespace deletion catches anything the chart
// did not own.
func (p *Provisioner) Delete(storeID string) error {
	storeLog := log.WithStoreID(storeID)

	acquired, held := p.locks.Acquire(storeID, types.OperationDeleting)
	if !acquired {
		return fmt.Errorf("%w: %s is %s", ErrOperationInProgress, storeID, held)
	}
	defer p.locks.Release(storeID)

	ctx := context.Background()
	if err := p.delete(ctx, storeID, storeLog); err != nil {
		metrics.DeletesTotal.WithLabelValues("failed").Inc()
		p.failStore(storeID, fmt.Sprintf("Delete failed: %s", err), storeLog)
		storeLog.Error().Err(err).Msg("Delete failed")
		return err
	}

	metrics.DeletesTotal.WithLabelValues("deleted").Inc()
	storeLog.Info().Msg("Store deleted")
	return nil
}

func (p *Provisioner) delete(ctx context.Context, storeID string, storeLog zerolog.Logger) error {
	store, err := p.store.GetStore(storeID)
	if err != nil {
		return err
	}

	if err := p.store.UpdateStoreStatus(storeID, types.StoreStatusDeleting, ""); err != nil {
		return err
	}

	if _, err := p.deployer.Uninstall(ctx, store.HelmRelease, store.Namespace, true); err != nil {
		// The namespace deletion below is the backstop for anything helm
		// leaves behind, including its own corrupted release metadata.
		metrics.HelmFailuresTotal.Inc()
		storeLog.Warn().
			Err(err).
			Msg("Helm uninstall failed, continuing with namespace deletion")
	}

	if err := p.cluster.DeleteNamespace(ctx, store.Namespace, true); err != nil {
		return err
	}

	return p.store.MarkStoreDeleted(storeID)
}

// OperationStatus returns the operation currently running against a store,
// if any
func (p *Provisioner) OperationStatus(storeID string) (types.OperationKind, bool) {
	return p.locks.Get(storeID)
}

// failStore records a terminal failure. Storage errors here are logged only;
// there is nothing left to unwind once the workflow itself has failed.
func (p *Provisioner) failStore(storeID, message string, storeLog zerolog.Logger) {
	if err := p.store.UpdateStoreStatus(storeID, types.StoreStatusFailed, message); err != nil {
		storeLog.Error().Err(err).Msg("Failed to record store failure")
	}
}
