package sales

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const defaultWriteTimeout = 30 * time.Second

// RepositoryParams wires a Repository.
type RepositoryParams struct {
	Store        Store
	Reporter     ErrorReporter
	Logger       *logger.Logger
	Collection   string
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Repository is the façade the rest of the application uses for sales. It
// keeps a live, ordered view of the collection and routes every store failure
// to the error channel.
type Repository struct {
	store        Store
	reporter     ErrorReporter
	logg         *logger.Logger
	collection   string
	writeTimeout time.Duration
	now          func() time.Time

	feed     *feed
	inflight sync.WaitGroup

	subMu      sync.Mutex
	subscribed bool
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewRepository(p RepositoryParams) (*Repository, error) {
	if p.Store == nil {
		return nil, errors.New("sale store required")
	}
	if p.Reporter == nil {
		return nil, errors.New("error reporter required")
	}
	if p.Collection == "" {
		p.Collection = "sales"
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = defaultWriteTimeout
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Repository{
		store:        p.Store,
		reporter:     p.Reporter,
		logg:         p.Logger,
		collection:   p.Collection,
		writeTimeout: p.WriteTimeout,
		now:          p.Now,
		feed:         newFeed(),
	}, nil
}

// Subscribe opens the live subscription. It is a no-op once subscribed. A
// subscription error is terminal: it is reported as a list failure, the view
// becomes empty with loading=false, and no new subscription is attempted.
func (r *Repository) Subscribe(ctx context.Context) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if r.subscribed {
		return nil
	}
	r.subscribed = true

	subCtx, cancel := context.WithCancel(ctx)
	snaps, err := r.store.Subscribe(subCtx)
	if err != nil {
		cancel()
		r.report(ctx, r.collection, enums.StoreOperationList, nil, err)
		r.feed.fail(err)
		return err
	}
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for snap := range snaps {
			if snap.Err != nil {
				r.report(subCtx, r.collection, enums.StoreOperationList, nil, snap.Err)
				r.feed.fail(snap.Err)
				return
			}
			r.feed.setAuthoritative(snap.Sales)
		}
	}()
	return nil
}

// AddSale stamps a new sale and submits it without waiting for the store. The
// returned sale carries the generated id and order id; its timestamp is set by
// the store. Write failures never reach the caller, only the error channel.
func (r *Repository) AddSale(ctx context.Context, in NewSale) (Sale, error) {
	if err := in.validate(); err != nil {
		return Sale{}, err
	}
	sale := Sale{
		ID:             r.store.NewID(),
		OrderID:        orderID(r.now()),
		Items:          in.Items.Clone(),
		Total:          in.Total,
		PaymentMethod:  in.PaymentMethod,
		Salesman:       in.Salesman,
		DeliveryStatus: enums.DeliveryStatusPending,
		SalesStatus:    enums.SalesStatusPending,
	}

	req := in
	req.Items = in.Items.Clone()

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
		defer cancel()
		if _, err := r.store.Create(writeCtx, sale); err != nil {
			r.report(writeCtx, r.collection, enums.StoreOperationCreate, req, err)
		}
	}()
	return sale.clone(), nil
}

// UpdateSale applies patch locally, commits it, and rolls the local view back
// if the commit fails. The failure is both reported and returned.
func (r *Repository) UpdateSale(ctx context.Context, id string, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	epoch := r.feed.applyOptimistic(func(sales []Sale) []Sale {
		for i := range sales {
			if sales[i].ID == id {
				sales[i] = patch.Apply(sales[i])
			}
		}
		return sales
	})

	if err := r.store.UpdatePartial(ctx, id, patch); err != nil {
		r.feed.revert(epoch)
		r.report(ctx, r.docPath(id), enums.StoreOperationUpdate, patch, err)
		return err
	}
	return nil
}

// DeleteSale removes the sale locally, commits the delete, and restores the
// local view if the commit fails. The failure is both reported and returned.
func (r *Repository) DeleteSale(ctx context.Context, id string) error {
	epoch := r.feed.applyOptimistic(func(sales []Sale) []Sale {
		kept := sales[:0]
		for _, s := range sales {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		return kept
	})

	if err := r.store.Delete(ctx, id); err != nil {
		r.feed.revert(epoch)
		r.report(ctx, r.docPath(id), enums.StoreOperationDelete, map[string]any{"id": id}, err)
		return err
	}
	return nil
}

// GetSale returns a sale from the live view, falling back to the store.
func (r *Repository) GetSale(ctx context.Context, id string) (Sale, error) {
	if sale, ok := r.feed.find(id); ok {
		return sale, nil
	}
	sale, err := r.store.Get(ctx, id)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			r.report(ctx, r.docPath(id), enums.StoreOperationGet, nil, err)
		}
		return Sale{}, err
	}
	return sale, nil
}

// Snapshot returns a copy of the current view.
func (r *Repository) Snapshot() FeedState {
	return r.feed.snapshot()
}

// Watch streams view changes until ctx ends, starting with the current state.
func (r *Repository) Watch(ctx context.Context) <-chan FeedState {
	return r.feed.watch(ctx)
}

// Healthy reports whether the live subscription is still running.
func (r *Repository) Healthy(context.Context) error {
	if err := r.feed.err(); err != nil {
		return fmt.Errorf("sales feed failed: %w", err)
	}
	return nil
}

// Wait blocks until every submitted AddSale has finished.
func (r *Repository) Wait() {
	r.inflight.Wait()
}

// Close stops the live subscription and drains pending writes.
func (r *Repository) Close() {
	r.subMu.Lock()
	cancel, done := r.cancel, r.done
	r.subMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	r.Wait()
}

func (r *Repository) report(ctx context.Context, path string, op enums.StoreOperation, payload any, err error) {
	r.reporter.Report(ctx, newStoreError(path, op, payload, err))
}

func (r *Repository) docPath(id string) string {
	return r.collection + "/" + id
}

// orderID is the last six digits of the millisecond clock.
func orderID(now time.Time) string {
	return fmt.Sprintf("%06d", now.UnixMilli()%1_000_000)
}
