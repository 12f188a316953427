package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

// ErrFeedClosed is delivered when a live subscription loses its change source.
var ErrFeedClosed = errors.New("sales change feed closed")

// Snapshot is one emission of a live subscription: either the full ordered
// collection or a terminal error.
type Snapshot struct {
	Sales []Sale
	Err   error
}

// Store is the Sale Store: a document collection with live ordered queries.
type Store interface {
	NewID() string
	Create(ctx context.Context, sale Sale) (Sale, error)
	UpdatePartial(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Sale, error)
	List(ctx context.Context) ([]Sale, error)
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
}

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StoreParams wires the relational Sale Store.
type StoreParams struct {
	DB       database
	Table    string
	Notifier Notifier
	Events   eventEmitter
	Metrics  *metrics.SaleStoreMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type gormStore struct {
	db       database
	table    string
	notifier Notifier
	events   eventEmitter
	metrics  *metrics.SaleStoreMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewStore builds the gorm-backed Sale Store. Without a notifier, changes are
// only visible to subscriptions in the same process.
func NewStore(p StoreParams) (Store, error) {
	if p.DB == nil {
		return nil, errors.New("database required")
	}
	if p.Table == "" {
		p.Table = models.Sale{}.TableName()
	}
	if p.Notifier == nil {
		p.Notifier = NewLocalNotifier()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &gormStore{
		db:       p.DB,
		table:    p.Table,
		notifier: p.Notifier,
		events:   p.Events,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Now,
	}, nil
}

func (s *gormStore) NewID() string {
	return uuid.NewString()
}

func (s *gormStore) Create(ctx context.Context, sale Sale) (Sale, error) {
	started := time.Now()
	sale.Timestamp = s.now().UTC().Truncate(time.Microsecond)
	row := toModel(sale)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Table(s.table).Create(&row).Error; err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventSaleCreated, sale.ID, sale)
	})
	s.metrics.Observe(string(enums.StoreOperationCreate), started, err)
	if err != nil {
		return Sale{}, classify(err, "create sale")
	}

	s.notify(ctx, enums.StoreOperationCreate, sale.ID)
	return fromModel(row), nil
}

func (s *gormStore) UpdatePartial(ctx context.Context, id string, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	started := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Table(s.table).Where("id = ?", id).Updates(patch.columns())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return s.emit(ctx, tx, enums.EventSaleUpdated, id, map[string]any{"id": id, "patch": patch})
	})
	s.metrics.Observe(string(enums.StoreOperationUpdate), started, err)
	if err != nil {
		return classify(err, "update sale")
	}

	s.notify(ctx, enums.StoreOperationUpdate, id)
	return nil
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	started := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Table(s.table).Where("id = ?", id).Delete(&models.Sale{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return s.emit(ctx, tx, enums.EventSaleDeleted, id, map[string]any{"id": id})
	})
	s.metrics.Observe(string(enums.StoreOperationDelete), started, err)
	if err != nil {
		return classify(err, "delete sale")
	}

	s.notify(ctx, enums.StoreOperationDelete, id)
	return nil
}

func (s *gormStore) Get(ctx context.Context, id string) (Sale, error) {
	started := time.Now()
	var row models.Sale
	err := s.db.DB().WithContext(ctx).Table(s.table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	s.metrics.Observe(string(enums.StoreOperationGet), started, err)
	if err != nil {
		return Sale{}, classify(err, "get sale")
	}
	return fromModel(row), nil
}

// List returns every sale, newest first. Equal timestamps fall back to id order
// so repeated reads are stable.
func (s *gormStore) List(ctx context.Context) ([]Sale, error) {
	started := time.Now()
	var rows []models.Sale
	err := s.db.DB().WithContext(ctx).
		Table(s.table).
		Order("sold_at DESC").
		Order("id DESC").
		Find(&rows).Error
	s.metrics.Observe(string(enums.StoreOperationList), started, err)
	if err != nil {
		return nil, classify(err, "list sales")
	}
	out := make([]Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Subscribe emits the full ordered collection once, then again after every
// change. The first failure is emitted as a Snapshot with Err and the channel
// closes. Bursts of changes are coalesced into one re-read.
func (s *gormStore) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	changes, err := s.notifier.Listen(ctx)
	if err != nil {
		return nil, classify(err, "listen for sale changes")
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)

		send := func(snap Snapshot) bool {
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}
		emit := func() bool {
			sales, err := s.List(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				send(Snapshot{Err: err})
				return false
			}
			return send(Snapshot{Sales: sales})
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					if ctx.Err() == nil {
						send(Snapshot{Err: pkgerrors.Wrap(pkgerrors.CodeDependency, ErrFeedClosed, "sales change feed lost")})
					}
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *gormStore) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id string, data any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSale,
		AggregateID:   id,
		Data:          data,
	})
}

func (s *gormStore) notify(ctx context.Context, op enums.StoreOperation, id string) {
	err := s.notifier.Notify(context.WithoutCancel(ctx), Change{Operation: op, SaleID: id, At: s.now().UTC()})
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"operation": op,
			"sale_id":   id,
			"error":     err.Error(),
		}), "sale change notification failed")
	}
}

func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case dbpkg.IsPermissionDenied(err):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, msg)
	case dbpkg.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msg)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}
