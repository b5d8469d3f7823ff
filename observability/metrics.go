// Package observability holds the Prometheus instrumentation shared by the
// invocation and sync pipelines.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the gateway's collectors. All fields are registered on
// construction; a nil *Metrics disables instrumentation.
type Metrics struct {
	Invocations         *prometheus.CounterVec
	RefreshCycles       prometheus.Counter
	RefreshFailures     prometheus.Counter
	ConfirmationSeconds prometheus.Histogram
	SnapshotCampaigns   prometheus.Gauge
}

// NewMetrics builds and registers the collector set on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "invocations_total",
			Help:      "Contract invocations by method and terminal outcome.",
		}, []string{"method", "outcome"}),
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "refresh_cycles_total",
			Help:      "Chain state refresh cycles attempted.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "refresh_failures_total",
			Help:      "Refresh cycles that retained the previous snapshot after an error.",
		}),
		ConfirmationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fundflow",
			Name:      "confirmation_seconds",
			Help:      "Wall time from broadcast to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		SnapshotCampaigns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fundflow",
			Name:      "snapshot_campaigns",
			Help:      "Campaigns in the current chain state snapshot.",
		}),
	}
	reg.MustRegister(m.Invocations, m.RefreshCycles, m.RefreshFailures, m.ConfirmationSeconds, m.SnapshotCampaigns)
	return m
}

// ObserveInvocation records one terminal invocation outcome. Safe on nil.
func (m *Metrics) ObserveInvocation(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(method, outcome).Inc()
	if seconds > 0 {
		m.ConfirmationSeconds.Observe(seconds)
	}
}

// ObserveRefresh records one refresh cycle. Safe on nil.
func (m *Metrics) ObserveRefresh(failed bool, campaigns int) {
	if m == nil {
		return
	}
	m.RefreshCycles.Inc()
	if failed {
		m.RefreshFailures.Inc()
	} else {
		m.SnapshotCampaigns.Set(float64(campaigns))
	}
}
