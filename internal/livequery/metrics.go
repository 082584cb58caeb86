package livequery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts live query activity. A nil *Metrics records nothing.
type Metrics struct {
	active    prometheus.Gauge
	snapshots *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewMetrics registers the live query collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agency_live_subscriptions_active",
			Help: "Number of open live query subscriptions",
		}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agency_live_snapshots_total",
			Help: "Snapshots delivered to live query subscribers",
		}, []string{"collection"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agency_live_subscription_errors_total",
			Help: "Live query subscriptions terminated by a backend error",
		}, []string{"collection"}),
	}
}

func (m *Metrics) opened() {
	if m != nil {
		m.active.Inc()
	}
}

func (m *Metrics) closed() {
	if m != nil {
		m.active.Dec()
	}
}

func (m *Metrics) snapshot(collection string) {
	if m != nil {
		m.snapshots.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) failed(collection string) {
	if m != nil {
		m.errors.WithLabelValues(collection).Inc()
	}
}
