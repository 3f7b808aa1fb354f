package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNotifier counts emitted events per topic.
type MetricsNotifier struct {
	emitted *prometheus.CounterVec
}

// NewMetricsNotifier registers the event counter on reg (the default
// registerer when nil) and returns a notifier feeding it.
func NewMetricsNotifier(reg prometheus.Registerer) MetricsNotifier {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_domain_events_total",
		Help: "Domain events emitted, labelled by topic.",
	}, []string{"topic"})
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				counter = existing
			}
		}
	}
	return MetricsNotifier{emitted: counter}
}

// Notify implements Notifier.
func (n MetricsNotifier) Notify(_ context.Context, event Event) error {
	if n.emitted != nil {
		n.emitted.WithLabelValues(event.Topic).Inc()
	}
	return nil
}
