package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

const (
	defaultCallTimeout    = 30 * time.Second
	namespaceDeleteWindow = 120 * time.Second
	maxRestartsBeforeFail = 5
)

// Inspector answers point-in-time questions about store namespaces: pod
// readiness, job completion, recent events, and namespace lifecycle.
type Inspector struct {
	client  kubernetes.Interface
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates an Inspector. An empty kubeconfig path selects in-cluster
// configuration.
func New(kubeconfig string) (*Inspector, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig == "" {
		cfg, err = rest.InClusterConfig()
	} else {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config: %w", err)
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}
	return NewWithClient(client), nil
}

// NewWithClient creates an Inspector around an existing clientset.
// Tests pass a fake clientset here.
func NewWithClient(client kubernetes.Interface) *Inspector {
	return &Inspector{
		client:  client,
		timeout: defaultCallTimeout,
		logger:  log.WithComponent("cluster"),
	}
}

// NamespaceExists reports whether the namespace is present
func (i *Inspector) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	_, err := i.client.CoreV1().Namespaces().Get(callCtx, namespace, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get namespace %s: %w", namespace, err)
	}
	return true, nil
}

// DeleteNamespace removes a namespace and everything in it. Absent
// namespaces are a no-op. With wait, the call blocks until the namespace is
// fully gone, which is the cascade-delete backstop for orphaned resources.
func (i *Inspector) DeleteNamespace(ctx context.Context, namespace string, waitGone bool) error {
	callCtx, cancel := i.callContext(ctx)
	err := i.client.CoreV1().Namespaces().Delete(callCtx, namespace, metav1.DeleteOptions{})
	cancel()
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}

	if !waitGone {
		return nil
	}

	i.logger.Info().Str("namespace", namespace).Msg("Waiting for namespace deletion")
	return wait.PollUntilContextTimeout(ctx, 2*time.Second, namespaceDeleteWindow, true,
		func(pollCtx context.Context) (bool, error) {
			exists, err := i.NamespaceExists(pollCtx, namespace)
			if err != nil {
				return false, err
			}
			return !exists, nil
		})
}

// PodStatuses returns a snapshot of every pod in the namespace
func (i *Inspector) PodStatuses(ctx context.Context, namespace string) ([]types.PodStatus, error) {
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	pods, err := i.client.CoreV1().Pods(namespace).List(callCtx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	statuses := make([]types.PodStatus, 0, len(pods.Items))
	for _, pod := range pods.Items {
		statuses = append(statuses, types.PodStatus{
			Name:     pod.Name,
			Phase:    string(pod.Status.Phase),
			Ready:    podReady(&pod),
			Restarts: podRestarts(&pod),
		})
	}
	return statuses, nil
}

// AllPodsReady reports whether every non-finished pod in the namespace has
// the Ready=True condition. Pods in phase Succeeded are one-shot init work
// and are excluded, but at least one long-running pod must exist before the
// namespace counts as ready.
func (i *Inspector) AllPodsReady(ctx context.Context, namespace string) (bool, error) {
	statuses, err := i.PodStatuses(ctx, namespace)
	if err != nil {
		return false, err
	}

	running := 0
	for _, pod := range statuses {
		if pod.Phase == string(corev1.PodSucceeded) {
			continue
		}
		running++
		if !pod.Ready {
			return false, nil
		}
	}
	return running > 0, nil
}

// FailingPods returns the pods that should abort a readiness poll: phase
// Failed, or restart counts past the crashloop threshold.
func (i *Inspector) FailingPods(ctx context.Context, namespace string) ([]types.PodStatus, error) {
	statuses, err := i.PodStatuses(ctx, namespace)
	if err != nil {
		return nil, err
	}

	var failing []types.PodStatus
	for _, pod := range statuses {
		if pod.Phase == string(corev1.PodFailed) || pod.Restarts > maxRestartsBeforeFail {
			failing = append(failing, pod)
		}
	}
	return failing, nil
}

// JobCompleted reports whether the named job has a Complete=True condition
func (i *Inspector) JobCompleted(ctx context.Context, namespace, name string) (bool, error) {
	return i.jobHasCondition(ctx, namespace, name, batchv1.JobComplete)
}

// JobFailed reports whether the named job has a Failed=True condition
func (i *Inspector) JobFailed(ctx context.Context, namespace, name string) (bool, error) {
	return i.jobHasCondition(ctx, namespace, name, batchv1.JobFailed)
}

func (i *Inspector) jobHasCondition(ctx context.Context, namespace, name string, cond batchv1.JobConditionType) (bool, error) {
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	job, err := i.client.BatchV1().Jobs(namespace).Get(callCtx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get job %s/%s: %w", namespace, name, err)
	}
	for _, c := range job.Status.Conditions {
		if c.Type == cond && c.Status == corev1.ConditionTrue {
			return true, nil
		}
	}
	return false, nil
}

// Events returns up to limit recent events for the namespace, newest last
func (i *Inspector) Events(ctx context.Context, namespace string, limit int) ([]types.ClusterEvent, error) {
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	list, err := i.client.CoreV1().Events(namespace).List(callCtx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events in %s: %w", namespace, err)
	}

	events := make([]types.ClusterEvent, 0, len(list.Items))
	for _, ev := range list.Items {
		events = append(events, types.ClusterEvent{
			Type:      ev.Type,
			Reason:    ev.Reason,
			Message:   ev.Message,
			Object:    fmt.Sprintf("%s/%s", ev.InvolvedObject.Kind, ev.InvolvedObject.Name),
			Timestamp: eventTime(&ev),
		})
	}

	sort.Slice(events, func(a, b int) bool {
		return events[a].Timestamp.Before(events[b].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (i *Inspector) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, i.timeout)
}

// podReady checks for the Ready=True pod condition
func podReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// podRestarts returns the highest container restart count in the pod
func podRestarts(pod *corev1.Pod) int32 {
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.RestartCount > restarts {
			restarts = cs.RestartCount
		}
	}
	return restarts
}

func eventTime(ev *corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	return ev.CreationTimestamp.Time
}
