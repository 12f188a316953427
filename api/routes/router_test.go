package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/catalog"
	"github.com/angelmondragon/pos-backend/internal/sales"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Touch(_ context.Context, key string, _ time.Duration) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "pos:idempotency:" + scope + ":" + id
}

func (m *memoryRedis) CartKey(sessionID string) string {
	return "pos:cart:" + sessionID
}

type stubRecorder struct {
	calls int
}

func (s *stubRecorder) AddSale(_ context.Context, in sales.NewSale) (sales.Sale, error) {
	s.calls++
	return sales.Sale{ID: fmt.Sprintf("sale-%d", s.calls), OrderID: "000001", Items: in.Items, Total: in.Total, PaymentMethod: in.PaymentMethod, Salesman: in.Salesman}, nil
}

type stubFeed struct{}

func (stubFeed) Snapshot() sales.FeedState { return sales.FeedState{Sales: []sales.Sale{}} }
func (stubFeed) Watch(context.Context) <-chan sales.FeedState {
	ch := make(chan sales.FeedState)
	close(ch)
	return ch
}
func (stubFeed) GetSale(context.Context, string) (sales.Sale, error) { return sales.Sale{}, nil }
func (stubFeed) UpdateSale(context.Context, string, sales.Patch) error {
	return nil
}
func (stubFeed) DeleteSale(context.Context, string) error { return nil }
func (stubFeed) Healthy(context.Context) error           { return nil }

type testRouter struct {
	handler  http.Handler
	recorder *stubRecorder
}

func newTestRouter(t *testing.T) testRouter {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: "dev"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	rdb := newMemoryRedis()
	recorder := &stubRecorder{}
	cartService, err := cart.NewService(cart.NewRepository(rdb, time.Hour), catalog.Default(), recorder, logg)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	handler := NewRouter(cfg, logg, time.UTC, stubPinger{}, rdb, prometheus.NewRegistry(), catalog.Default(), cartService, stubFeed{}, sales.NewErrorHub(1))
	return testRouter{handler: handler, recorder: recorder}
}

func (tr testRouter) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	tr := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/v1/products", "/api/v1/sales", "/api/v1/reports/performance", "/api/v1/sales/export"} {
		resp := tr.do(http.MethodGet, path, "", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
	if resp := tr.do(http.MethodGet, "/api/v1/missing", "", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodGet, "/health/live", "", map[string]string{"X-Request-Id": "req-1"})
	if resp.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("expected request id echoed, got %q", resp.Header().Get("X-Request-Id"))
	}
}

func TestCartRoutesRequireSession(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodGet, "/api/v1/cart", "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutFlowThroughRouter(t *testing.T) {
	tr := newTestRouter(t)
	session := map[string]string{"X-Register-Session": "reg-1", "Content-Type": "application/json"}

	for _, id := range []string{"1", "1", "5"} {
		resp := tr.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":`+id+`}`, session)
		if resp.Code != http.StatusOK {
			t.Fatalf("add item: expected 200 got %d: %s", resp.Code, resp.Body.String())
		}
	}

	body := `{"payment_method":"Cash","salesman":"Ann"}`
	if resp := tr.do(http.MethodPost, "/api/v1/cart/checkout", body, session); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected missing idempotency key to be rejected, got %d", resp.Code)
	}

	withKey := map[string]string{"X-Register-Session": "reg-1", "Idempotency-Key": "k-1"}
	first := tr.do(http.MethodPost, "/api/v1/cart/checkout", body, withKey)
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", first.Code, first.Body.String())
	}
	if !strings.Contains(first.Body.String(), `"total":60.7`) {
		t.Fatalf("expected total in receipt, got %s", first.Body.String())
	}

	replay := tr.do(http.MethodPost, "/api/v1/cart/checkout", body, withKey)
	if replay.Code != http.StatusAccepted || replay.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed receipt, got %d %s", replay.Code, replay.Body.String())
	}
	if tr.recorder.calls != 1 {
		t.Fatalf("expected one submitted sale, got %d", tr.recorder.calls)
	}

	cartResp := tr.do(http.MethodGet, "/api/v1/cart", "", withKey)
	if !strings.Contains(cartResp.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty cart after checkout, got %s", cartResp.Body.String())
	}
}
