package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pos-backend/internal/sales"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func testSale(id string, at time.Time, total float64, items ...types.SaleItem) sales.Sale {
	return sales.Sale{
		ID:             id,
		OrderID:        "1" + id,
		Items:          items,
		Total:          total,
		PaymentMethod:  enums.PaymentMethodCash,
		Salesman:       "Ann",
		DeliveryStatus: enums.DeliveryStatusPending,
		SalesStatus:    enums.SalesStatusPending,
		Timestamp:      at,
	}
}

type stubFeed struct {
	mu        sync.Mutex
	state     sales.FeedState
	watch     chan sales.FeedState
	getSale   sales.Sale
	getErr    error
	updateErr error
	deleteErr error
	patches   []sales.Patch
	deleted   []string
}

func (s *stubFeed) Snapshot() sales.FeedState {
	return s.state
}

func (s *stubFeed) Watch(context.Context) <-chan sales.FeedState {
	return s.watch
}

func (s *stubFeed) GetSale(_ context.Context, id string) (sales.Sale, error) {
	if s.getErr != nil {
		return sales.Sale{}, s.getErr
	}
	return s.getSale, nil
}

func (s *stubFeed) UpdateSale(_ context.Context, _ string, patch sales.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patch)
	return s.updateErr
}

func (s *stubFeed) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

// syncRecorder is a flushable ResponseWriter that is safe to read while a
// streaming handler writes to it.
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	status int
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: http.Header{}}
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(b)
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
