package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/phishguard/internal/model"
)

// Metrics are the Prometheus collectors updated after every scan.
//
// Design decision: We register on an explicit registry instead of the
// global one so that several servers (and tests) can coexist in a process.
type Metrics struct {
	registry *prometheus.Registry

	// scansTotal counts finished scans.
	// Labels: verdict (Safe, Phishing), decider (precedence rule)
	scansTotal *prometheus.CounterVec

	// advisoryUnavailable counts scans whose advisory produced no reply.
	// Labels: reason (timeout, quota, ...)
	advisoryUnavailable *prometheus.CounterVec

	// scanDuration measures end-to-end scan latency.
	scanDuration prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		scansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Name:      "scans_total",
			Help:      "Total URL scans by final verdict and deciding signal",
		}, []string{"verdict", "decider"}),
		advisoryUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Name:      "advisory_unavailable_total",
			Help:      "Total scans whose external advisory was unavailable, by reason",
		}, []string{"reason"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phishguard",
			Name:      "scan_duration_seconds",
			Help:      "URL scan latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a finished scan.
func (m *Metrics) Observe(report *model.ScanReport) {
	if report == nil {
		return
	}
	m.scansTotal.WithLabelValues(report.Verdict.Label.String(), report.Verdict.Decider.String()).Inc()
	if !report.Advisory.Available() {
		m.advisoryUnavailable.WithLabelValues(report.Advisory.Reason().String()).Inc()
	}
	m.scanDuration.Observe(report.Duration.Seconds())
}
