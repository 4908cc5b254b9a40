package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// OrderMetrics counts order operations, status moves and write conflicts.
type OrderMetrics struct {
	operations  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_operations_total",
		Help: "Order operations by outcome code.",
	}, []string{"op", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to", "discouraged"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_version_conflicts_total",
		Help: "Writes rejected by optimistic concurrency.",
	}, []string{"op"})
	reg.MustRegister(operations, transitions, conflicts)
	return &OrderMetrics{operations: operations, transitions: transitions, conflicts: conflicts}
}

func (m *OrderMetrics) ObserveOperation(op string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(op), outcomeCode(err)).Inc()
}

func (m *OrderMetrics) ObserveTransition(from, to enums.OrderStatus, discouraged bool) {
	if m == nil || m.transitions == nil {
		return
	}
	flag := "false"
	if discouraged {
		flag = "true"
	}
	m.transitions.WithLabelValues(normalizeLabel(string(from)), normalizeLabel(string(to)), flag).Inc()
}

func (m *OrderMetrics) ObserveConflict(op string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

func outcomeCode(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
