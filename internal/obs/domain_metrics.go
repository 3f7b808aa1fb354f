package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SettlementsComputedTotal counts settlement recomputations by GST mode and resulting state.
	SettlementsComputedTotal *prometheus.CounterVec
	// LinesRejectedTotal counts rejected line add/edit attempts by reason.
	LinesRejectedTotal *prometheus.CounterVec
	// SubmissionsTotal counts invoice API submission outcomes by kind.
	SubmissionsTotal *prometheus.CounterVec
	// SubmissionLatency records invoice API submission latency in milliseconds.
	SubmissionLatency *prometheus.HistogramVec
	// ReturnsQuotedTotal counts return quote computations by outcome.
	ReturnsQuotedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SettlementsComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_computed_total",
			Help:      "Count of settlement recomputations by GST mode and resulting state.",
		}, []string{"gst_mode", "state"})
		LinesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_rejected_total",
			Help:      "Count of rejected line add/edit attempts by reason.",
		}, []string{"reason"})
		SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Count of invoice API submission outcomes.",
		}, []string{"kind", "result"})
		SubmissionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_ms",
			Help:      "Latency of invoice API submissions in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"kind", "result"})
		ReturnsQuotedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "returns_quoted_total",
			Help:      "Count of return quote computations by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, SettlementsComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementsComputedTotal = v
			}
		})
		mustRegisterCollector(reg, LinesRejectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LinesRejectedTotal = v
			}
		})
		mustRegisterCollector(reg, SubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, SubmissionLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SubmissionLatency = v
			}
		})
		mustRegisterCollector(reg, ReturnsQuotedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReturnsQuotedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
