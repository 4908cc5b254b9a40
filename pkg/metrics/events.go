package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// EventMetrics covers the outbox relay and the in-process SSE broker.
type EventMetrics struct {
	published *prometheus.CounterVec
	dropped   prometheus.Counter
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_publish_total",
		Help: "Outbox publish attempts by sink and outcome.",
	}, []string{"sink", "event_type", "outcome"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_event_stream_dropped_total",
		Help: "Events dropped because a stream subscriber was lagging.",
	})
	reg.MustRegister(published, dropped)
	return &EventMetrics{published: published, dropped: dropped}
}

func (m *EventMetrics) ObservePublish(sink string, eventType enums.OutboxEventType, outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(sink), normalizeLabel(string(eventType)), normalizeLabel(outcome)).Inc()
}

// IncDropped matches the broker's drop callback.
func (m *EventMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}
