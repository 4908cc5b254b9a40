package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type testEnv struct {
	handler  http.Handler
	db       *db.Client
	cfg      *config.Config
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test", RequestTimeout: 5 * time.Second},
		JWT:  config.JWTConfig{Secret: "router-test-secret", Issuer: "storefront-test"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	client := dbtest.Open(t)
	pol := policy.New(nil)
	repo := orders.NewRepository(client.DB())
	registry := prometheus.NewRegistry()

	quoter, err := orders.NewRateQuoter(orders.RateQuoterOptions{ShippingCents: 500})
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Quoter:   quoter,
		Repo:     repo,
		Tx:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Policy:   pol,
		Observer: metrics.NewOrderMetrics(registry),
		Options: orders.Options{
			EnabledGateways: []enums.PaymentGateway{enums.PaymentGatewayCard, enums.PaymentGatewayCashOnDelivery},
			MaxLines:        20,
		},
	})
	require.NoError(t, err)
	analyticsSvc, err := analytics.NewService(analytics.ServiceParams{Orders: repo, Policy: pol})
	require.NoError(t, err)

	handler := NewRouter(cfg, logger.Nop(), Dependencies{
		Readiness:   map[string]controllers.Pinger{"db": client},
		Orders:      ordersSvc,
		Analytics:   analyticsSvc,
		Events:      events.NewBroker(4, nil),
		Authorizer:  pol,
		Idempotency: &memoryStore{data: map[string]string{}},
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Gatherer:    registry,
	})
	return &testEnv{handler: handler, db: client, cfg: cfg, registry: registry}
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	tok, err := pkgauth.MintAccessToken(e.cfg.JWT, time.Now(), time.Hour, pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

const checkoutBody = `{
	"lines": [{"line_key": "tee:M", "product_id": "tee", "name": "Tee", "price_cents": 2500, "qty": 2}],
	"shipping": {"name": "Dana", "phone": "555-0100", "address": "1 Main St"},
	"payment_method": "card"
}`

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/health/ready", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `storefront_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/v1/orders", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/v1/orders", "not-a-jwt", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCheckoutFlowThroughRouter(t *testing.T) {
	env := newTestEnv(t)
	customerID := uuid.New()
	customerToken := env.token(t, customerID, enums.RoleCustomer)
	managerToken := env.token(t, uuid.New(), enums.RoleManager)

	resp := env.do(t, http.MethodPost, "/api/v1/checkout", customerToken, checkoutBody, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code, "idempotency key is mandatory on checkout")

	headers := map[string]string{"Idempotency-Key": "cart-1"}
	resp = env.do(t, http.MethodPost, "/api/v1/checkout", customerToken, checkoutBody, headers)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Data orders.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.EqualValues(t, 5500, created.Data.TotalCents)
	assert.Equal(t, enums.OrderStatusProcessing, created.Data.Status)

	replay := env.do(t, http.MethodPost, "/api/v1/checkout", customerToken, checkoutBody, headers)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))

	var count int64
	require.NoError(t, env.db.DB().Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	orderPath := "/api/v1/admin/orders/" + created.Data.ID.String()
	resp = env.do(t, http.MethodPatch, orderPath+"/status", customerToken, `{"status":"shipped"}`, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodPatch, orderPath+"/status", managerToken, `{"status":"shipped","expected_version":1}`, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.do(t, http.MethodPatch, orderPath+"/status", managerToken, `{"status":"delivered","expected_version":1}`, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/v1/orders", customerToken, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data orders.OrderList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Equal(t, orders.ListScopeOwn, list.Data.Scope)
	require.Len(t, list.Data.Orders, 1)
	assert.Equal(t, enums.OrderStatusShipped, list.Data.Orders[0].Status)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/analytics?preset=today", customerToken, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/analytics?preset=today", managerToken, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total_orders":1`)
}

func TestClearAllRequiresDeleteAll(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, uuid.New(), enums.RoleManager)
	adminToken := env.token(t, uuid.New(), enums.RoleAdmin)

	resp := env.do(t, http.MethodPost, "/api/v1/admin/orders/clear", managerToken, `{"confirm":true}`, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/v1/admin/orders/clear", adminToken, `{"confirm":true}`, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"deleted":0`)
}
