package sales

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// Change announces that the sales collection was written.
type Change struct {
	Operation enums.StoreOperation `json:"operation"`
	SaleID    string               `json:"saleId"`
	At        time.Time            `json:"at"`
}

// Notifier carries change announcements between writers and live subscriptions.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	Listen(ctx context.Context) (<-chan Change, error)
}

// LocalNotifier fans changes out inside one process.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: map[int]chan Change{}}
}

// Notify never blocks; a listener that is already signalled keeps a single
// pending change because subscribers re-read the whole collection anyway.
func (n *LocalNotifier) Notify(_ context.Context, change Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 1)
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

type pubSubClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

// RedisNotifier shares changes between API instances over a redis channel.
type RedisNotifier struct {
	client  pubSubClient
	channel string
}

func NewRedisNotifier(client pubSubClient, channel string) (*RedisNotifier, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if channel == "" {
		return nil, errors.New("change channel required")
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload)
}

// Listen relays decoded changes until ctx ends. The returned channel closes
// early if the redis subscription drops.
func (n *RedisNotifier) Listen(ctx context.Context) (<-chan Change, error) {
	msgs, closeSub, err := n.client.Subscribe(ctx, n.channel)
	if err != nil {
		return nil, err
	}
	out := make(chan Change, 1)
	go func() {
		defer close(out)
		defer func() { _ = closeSub() }()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-msgs:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal(raw, &change); err != nil {
					continue
				}
				select {
				case out <- change:
				default:
				}
			}
		}
	}()
	return out, nil
}
