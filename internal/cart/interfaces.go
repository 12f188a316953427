package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/pos-backend/internal/catalog"
	"github.com/angelmondragon/pos-backend/internal/sales"
)

// ProductLookup resolves catalog products by id.
type ProductLookup interface {
	Lookup(id int) (catalog.Product, bool)
}

// SaleRecorder submits a completed cart as a sale.
type SaleRecorder interface {
	AddSale(ctx context.Context, in sales.NewSale) (sales.Sale, error)
}

// SessionStore is the redis surface the cart repository needs.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// CartRepository persists one cart per register session.
type CartRepository interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}
