package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubService struct {
	checkout      func(ctx context.Context, actor policy.Actor, input orders.CheckoutInput) (*orders.OrderView, error)
	get           func(ctx context.Context, actor policy.Actor, id uuid.UUID) (*orders.OrderView, error)
	list          func(ctx context.Context, actor policy.Actor, params orders.ListParams) (*orders.OrderList, error)
	requestReturn func(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string, expectedVersion *int64) (*orders.OrderView, error)
}

func (s *stubService) Checkout(ctx context.Context, actor policy.Actor, input orders.CheckoutInput) (*orders.OrderView, error) {
	return s.checkout(ctx, actor, input)
}

func (s *stubService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*orders.OrderView, error) {
	return s.get(ctx, actor, id)
}

func (s *stubService) List(ctx context.Context, actor policy.Actor, params orders.ListParams) (*orders.OrderList, error) {
	return s.list(ctx, actor, params)
}

func (s *stubService) RequestReturn(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string, expectedVersion *int64) (*orders.OrderView, error) {
	return s.requestReturn(ctx, actor, id, reason, expectedVersion)
}

var customer = policy.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}

func withActor(req *http.Request, actor policy.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withOrderID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

const checkoutBody = `{
	"lines": [{"line_key": "tee-m", "product_id": "tee", "name": "Tee", "price_cents": 2500, "qty": 2}],
	"shipping": {"name": "Dana", "phone": "555-0100", "address": "1 Main St"},
	"payment_method": "card"
}`

func TestCheckoutRejectsClientPricedAmounts(t *testing.T) {
	svc := &stubService{checkout: func(context.Context, policy.Actor, orders.CheckoutInput) (*orders.OrderView, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	body := strings.Replace(checkoutBody, `"payment_method": "card"`, `"payment_method": "card", "coupon_discount_cents": 999999`, 1)

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), customer)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{checkout: func(_ context.Context, actor policy.Actor, input orders.CheckoutInput) (*orders.OrderView, error) {
		assert.Equal(t, customer.UserID, actor.UserID)
		require.Len(t, input.Lines, 1)
		assert.Equal(t, 2, input.Lines[0].Qty)
		assert.Equal(t, enums.PaymentGatewayCard, input.PaymentMethod)
		return &orders.OrderView{ID: orderID, TotalCents: 5500}, nil
	}}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), customer)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var body struct {
		Data orders.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, orderID, body.Data.ID)
	assert.EqualValues(t, 5500, body.Data.TotalCents)
}

func TestCheckoutRejectsInvalidBody(t *testing.T) {
	svc := &stubService{checkout: func(context.Context, policy.Actor, orders.CheckoutInput) (*orders.OrderView, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	body := `{"lines":[{"line_key":"a","product_id":"p","name":"n","price_cents":100,"qty":0}],"shipping":{"name":"a","phone":"1","address":"x"},"payment_method":"card"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), customer)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "lines[0].qty")
}

func TestListParsesQuery(t *testing.T) {
	svc := &stubService{list: func(_ context.Context, _ policy.Actor, params orders.ListParams) (*orders.OrderList, error) {
		assert.Equal(t, 10, params.Limit)
		assert.Equal(t, "abc", params.Cursor)
		require.NotNil(t, params.Status)
		assert.Equal(t, enums.OrderStatusShipped, *params.Status)
		return &orders.OrderList{Scope: orders.ListScopeOwn, Orders: []orders.OrderView{}}, nil
	}}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc&status=shipped", nil), customer)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"scope":"own"`)
}

func TestListRejectsBadQuery(t *testing.T) {
	svc := &stubService{}
	for _, query := range []string{"limit=0", "limit=abc", "status=lost"} {
		req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?"+query, nil), customer)
		resp := httptest.NewRecorder()
		List(svc, nil).ServeHTTP(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, query)
	}
}

func TestDetailMapsServiceErrors(t *testing.T) {
	svc := &stubService{get: func(context.Context, policy.Actor, uuid.UUID) (*orders.OrderView, error) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}}

	req := withOrderID(withActor(httptest.NewRequest(http.MethodGet, "/", nil), customer), uuid.NewString())
	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req = withOrderID(withActor(httptest.NewRequest(http.MethodGet, "/", nil), customer), "not-a-uuid")
	resp = httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRequestReturnPassesReasonAndVersion(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{requestReturn: func(_ context.Context, _ policy.Actor, id uuid.UUID, reason string, expected *int64) (*orders.OrderView, error) {
		assert.Equal(t, orderID, id)
		assert.Equal(t, "wrong size", reason)
		require.NotNil(t, expected)
		assert.EqualValues(t, 3, *expected)
		pending := enums.ReturnStatusPending
		return &orders.OrderView{ID: id, ReturnStatus: &pending}, nil
	}}

	body := `{"reason":"wrong size","expected_version":3}`
	req := withOrderID(withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), customer), orderID.String())
	resp := httptest.NewRecorder()
	RequestReturn(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"return_status":"pending"`)
}

func TestRequestReturnRequiresReason(t *testing.T) {
	req := withOrderID(withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":""}`)), customer), uuid.NewString())
	resp := httptest.NewRecorder()
	RequestReturn(&stubService{}, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
