package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestOrderMetricsLabelsOutcomeCodes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.ObserveOperation("orders.checkout", nil)
	m.ObserveOperation("orders.checkout", pkgerrors.New(pkgerrors.CodeValidation, "bad"))
	m.ObserveOperation("orders.delete", errors.New("plain"))
	m.ObserveTransition(enums.OrderStatusProcessing, enums.OrderStatusShipped, false)
	m.ObserveTransition(enums.OrderStatusDelivered, enums.OrderStatusProcessing, true)
	m.ObserveConflict("orders.update_status")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("orders.checkout", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("orders.checkout", string(pkgerrors.CodeValidation))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("orders.delete", string(pkgerrors.CodeInternal))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("delivered", "processing", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("orders.update_status")))
}

func TestNilRegistererIsNoop(t *testing.T) {
	var orders *OrderMetrics
	orders.ObserveOperation("x", nil)
	NewOrderMetrics(nil).ObserveConflict("x")
	NewEventMetrics(nil).IncDropped()
	NewHTTPMetrics(nil).ObserveRequest("GET", "/", 200, time.Millisecond)
}

func TestEventAndHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	events := NewEventMetrics(reg)
	httpm := NewHTTPMetrics(reg)

	events.ObservePublish("redis", enums.EventOrderCreated, "published")
	events.IncDropped()
	events.IncDropped()
	httpm.ObserveRequest("POST", "/api/v1/orders", 201, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(events.published.WithLabelValues("redis", "order_created", "published")))
	assert.Equal(t, 2.0, testutil.ToFloat64(events.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpm.requests.WithLabelValues("POST", "/api/v1/orders", "201")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "storefront_http_request_duration_seconds", "route", "/api/v1/orders")
	require.NoError(t, err)
	assert.InDelta(t, 0.02, sum, 0.0001)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return metric.GetHistogram().GetSampleSum(), nil
				}
			}
		}
		return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}
