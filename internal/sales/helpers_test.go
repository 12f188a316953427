package sales

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

func newTestDB(t *testing.T) *dbpkg.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	dir := filepath.Join("..", "..", "pkg", "migrate", "migrations")
	if err := migrate.Run(context.Background(), sqlDB, migrate.Dialect("sqlite"), dir, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return dbpkg.FromGorm(conn, "sqlite")
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func sampleSale(id string) Sale {
	return Sale{
		ID:      id,
		OrderID: "123456",
		Items: types.SaleItems{
			{ID: 1, Name: "Cabbage", Price: 17.90, Quantity: 2},
			{ID: 5, Name: "Shrimp", Price: 24.90, Quantity: 1},
		},
		Total:          60.70,
		PaymentMethod:  enums.PaymentMethodCash,
		Salesman:       "Ann",
		DeliveryStatus: enums.DeliveryStatusPending,
		SalesStatus:    enums.SalesStatusPending,
	}
}

func sampleNewSale() NewSale {
	s := sampleSale("")
	return NewSale{Items: s.Items, Total: s.Total, PaymentMethod: s.PaymentMethod, Salesman: s.Salesman}
}

// fakeStore is an in-memory Store whose subscription is driven by the test.
type fakeStore struct {
	mu      sync.Mutex
	sales   map[string]Sale
	nextID  int
	created []Sale

	createErr    error
	updateErr    error
	deleteErr    error
	getErr       error
	subscribeErr error

	snaps chan Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{sales: map[string]Sale{}, snaps: make(chan Snapshot, 8)}
}

func (f *fakeStore) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("sale-%d", f.nextID)
}

func (f *fakeStore) Create(_ context.Context, sale Sale) (Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Sale{}, f.createErr
	}
	sale.Timestamp = time.Now().UTC()
	f.sales[sale.ID] = sale
	f.created = append(f.created, sale)
	return sale, nil
}

func (f *fakeStore) UpdatePartial(_ context.Context, id string, patch Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	s, ok := f.sales[id]
	if !ok {
		return errNotFound()
	}
	f.sales[id] = patch.Apply(s)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.sales[id]; !ok {
		return errNotFound()
	}
	delete(f.sales, id)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return Sale{}, f.getErr
	}
	s, ok := f.sales[id]
	if !ok {
		return Sale{}, errNotFound()
	}
	return s, nil
}

func (f *fakeStore) List(context.Context) ([]Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sale, 0, len(f.sales))
	for _, s := range f.sales {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-f.snaps:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
				if snap.Err != nil {
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeStore) createdSales() []Sale {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sale(nil), f.created...)
}

// recordingReporter collects reports for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	reports []*StoreError
}

func (r *recordingReporter) Report(_ context.Context, err *StoreError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, err)
}

func (r *recordingReporter) all() []*StoreError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*StoreError(nil), r.reports...)
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

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
}
