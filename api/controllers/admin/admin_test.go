package admin

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type stubOrders struct {
	status   func(id uuid.UUID, target enums.OrderStatus, expected *int64) (*orders.StatusUpdateResult, error)
	ret      func(id uuid.UUID, target enums.ReturnStatus) (*orders.OrderView, error)
	payment  func(id uuid.UUID, target enums.PaymentStatus) (*orders.OrderView, error)
	deleted  []uuid.UUID
	clearArg *bool
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ policy.Actor, id uuid.UUID, target enums.OrderStatus, expected *int64) (*orders.StatusUpdateResult, error) {
	return s.status(id, target, expected)
}

func (s *stubOrders) UpdateReturnStatus(_ context.Context, _ policy.Actor, id uuid.UUID, target enums.ReturnStatus, _ *int64) (*orders.OrderView, error) {
	return s.ret(id, target)
}

func (s *stubOrders) UpdatePaymentStatus(_ context.Context, _ policy.Actor, id uuid.UUID, target enums.PaymentStatus, _ *int64) (*orders.OrderView, error) {
	return s.payment(id, target)
}

func (s *stubOrders) Delete(_ context.Context, _ policy.Actor, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubOrders) ClearAll(_ context.Context, _ policy.Actor, confirmed bool) (*orders.ClearResult, error) {
	s.clearArg = &confirmed
	if !confirmed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirm must be true")
	}
	return &orders.ClearResult{Deleted: 4}, nil
}

var manager = policy.Actor{UserID: uuid.New(), Role: enums.RoleManager}

func adminRequest(method, body string, actor policy.Actor, orderID string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	ctx := middleware.WithActor(req.Context(), actor)
	if orderID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", orderID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func TestUpdateStatus(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrders{status: func(id uuid.UUID, target enums.OrderStatus, expected *int64) (*orders.StatusUpdateResult, error) {
		assert.Equal(t, orderID, id)
		assert.Equal(t, enums.OrderStatusDelivered, target)
		assert.Nil(t, expected)
		return &orders.StatusUpdateResult{
			Order:      orders.OrderView{ID: id, Status: target},
			Transition: orders.StatusTransition{From: enums.OrderStatusProcessing, To: target, Changed: true, Discouraged: true},
		}, nil
	}}

	resp := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, `{"status":"delivered"}`, manager, orderID.String()))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"discouraged":true`)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	resp := httptest.NewRecorder()
	UpdateStatus(&stubOrders{}, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, `{"status":"lost"}`, manager, uuid.NewString()))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateStatusSurfacesStateConflict(t *testing.T) {
	svc := &stubOrders{status: func(uuid.UUID, enums.OrderStatus, *int64) (*orders.StatusUpdateResult, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move from delivered to processing")
	}}
	resp := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, `{"status":"processing","expected_version":2}`, manager, uuid.NewString()))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestUpdateReturnAndPaymentStatus(t *testing.T) {
	svc := &stubOrders{
		ret: func(id uuid.UUID, target enums.ReturnStatus) (*orders.OrderView, error) {
			return &orders.OrderView{ID: id, ReturnStatus: &target}, nil
		},
		payment: func(id uuid.UUID, target enums.PaymentStatus) (*orders.OrderView, error) {
			return &orders.OrderView{ID: id, PaymentStatus: target}, nil
		},
	}

	resp := httptest.NewRecorder()
	UpdateReturnStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, `{"status":"approved"}`, manager, uuid.NewString()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"return_status":"approved"`)

	resp = httptest.NewRecorder()
	UpdatePaymentStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, `{"status":"paid"}`, manager, uuid.NewString()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"payment_status":"paid"`)
}

func TestDeleteAndClearAll(t *testing.T) {
	svc := &stubOrders{}
	orderID := uuid.New()

	resp := httptest.NewRecorder()
	Delete(svc, nil).ServeHTTP(resp, adminRequest(http.MethodDelete, "", manager, orderID.String()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []uuid.UUID{orderID}, svc.deleted)

	resp = httptest.NewRecorder()
	ClearAll(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, `{"confirm":false}`, manager, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	require.NotNil(t, svc.clearArg)
	assert.False(t, *svc.clearArg)

	resp = httptest.NewRecorder()
	ClearAll(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, `{"confirm":true}`, manager, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"deleted":4`)
}

func TestEventsRejectsCustomers(t *testing.T) {
	broker := events.NewBroker(4, nil)
	customer := policy.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}

	resp := httptest.NewRecorder()
	Events(broker, policy.New(nil), time.Second, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "", customer, ""))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, broker.Subscribers())
}

func TestEventsStreamsBrokerEvents(t *testing.T) {
	broker := events.NewBroker(4, nil)
	handler := Events(broker, policy.New(nil), time.Minute, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), manager)))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return broker.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	env := outbox.PayloadEnvelope{
		Version:       1,
		EventID:       "evt-1",
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		OccurredAt:    time.Now().UTC(),
		Data:          []byte(`{"to":"shipped"}`),
	}
	require.Equal(t, 1, broker.Publish(ctx, env))

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	assert.Equal(t, "id: evt-1", lines[0])
	assert.Equal(t, "event: order_status_changed", lines[1])
	assert.Contains(t, lines[2], `"to":"shipped"`)

	cancel()
	require.Eventually(t, func() bool { return broker.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
