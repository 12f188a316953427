package sales

import (
	"errors"
	"sync"
)

// Client owns the process-wide Sale Store handle. It is constructed once at
// startup and passed explicitly to the components that need the store.
type Client struct {
	mu    sync.Mutex
	build func() (Store, error)
	store Store
}

func NewClient(build func() (Store, error)) (*Client, error) {
	if build == nil {
		return nil, errors.New("store builder required")
	}
	return &Client{build: build}, nil
}

// Init builds the store on first use. Later calls return the same handle.
// A failed build is not cached, so Init may be retried.
func (c *Client) Init() (Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	store, err := c.build()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store builder returned nil store")
	}
	c.store = store
	return store, nil
}
