package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository keeps carts in redis, one JSON document per register session.
// Every read or write pushes the expiry out by ttl.
type Repository struct {
	store SessionStore
	ttl   time.Duration
}

// NewRepository constructs a cart repository bound to the provided redis store.
func NewRepository(store SessionStore, ttl time.Duration) *Repository {
	return &Repository{store: store, ttl: ttl}
}

// Load returns the session's cart, or an empty cart when none is stored.
func (r *Repository) Load(ctx context.Context, sessionID string) (*Cart, error) {
	key := r.store.CartKey(sessionID)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if r.ttl > 0 {
		if _, err := r.store.Touch(ctx, key, r.ttl); err != nil {
			return nil, fmt.Errorf("refresh cart ttl: %w", err)
		}
	}
	return &c, nil
}

// Save stores c, or drops the key when c has no lines.
func (r *Repository) Save(ctx context.Context, sessionID string, c *Cart) error {
	if c == nil || c.IsEmpty() {
		return r.Delete(ctx, sessionID)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.store.Set(ctx, r.store.CartKey(sessionID), string(payload), r.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, r.store.CartKey(sessionID)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
