package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

var (
	// Store metrics
	StoresTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storeplane_stores_total",
			Help: "Total number of stores by lifecycle status",
		},
		[]string{"status"},
	)

	ProvisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeplane_provisions_total",
			Help: "Total number of provisioning workflows by outcome",
		},
		[]string{"outcome"},
	)

	ProvisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storeplane_provision_duration_seconds",
			Help:    "Provisioning workflow duration from start to ready",
			Buckets: []float64{15, 30, 60, 120, 240, 480, 600},
		},
	)

	DeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeplane_deletes_total",
			Help: "Total number of delete workflows by outcome",
		},
		[]string{"outcome"},
	)

	// External tool metrics
	HelmFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storeplane_helm_failures_total",
			Help: "Total number of failed helm invocations, including swallowed uninstall warnings",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeplane_api_requests_total",
			Help: "Total number of API requests by method and status code",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storeplane_api_request_duration_seconds",
			Help:    "API request duration by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		StoresTotal,
		ProvisionsTotal,
		ProvisionDuration,
		DeletesTotal,
		HelmFailuresTotal,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// UpdateStoreGauges refreshes the per-status store gauge from a histogram
func UpdateStoreGauges(histogram map[types.StoreStatus]int) {
	for _, status := range []types.StoreStatus{
		types.StoreStatusQueued,
		types.StoreStatusProvisioning,
		types.StoreStatusReady,
		types.StoreStatusFailed,
		types.StoreStatusDeleting,
		types.StoreStatusDeleted,
	} {
		StoresTotal.WithLabelValues(string(status)).Set(float64(histogram[status]))
	}
}

// Timer measures operation duration for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer creates a timer starting now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time on the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
