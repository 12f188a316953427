package sales

import (
	"context"
	"sync"
)

// FeedState is the live view of the sales collection handed to consumers.
// Version increases on every change, optimistic or authoritative.
type FeedState struct {
	Sales   []Sale `json:"sales"`
	Loading bool   `json:"loading"`
	Version uint64 `json:"version"`
}

// feed holds the current view plus the last authoritative snapshot so an
// optimistic change can be rolled back.
type feed struct {
	mu        sync.Mutex
	state     FeedState
	confirmed []Sale
	epoch     uint64
	failed    error
	watchers  map[int]chan FeedState
	next      int
}

func newFeed() *feed {
	return &feed{
		state:    FeedState{Sales: []Sale{}, Loading: true},
		watchers: map[int]chan FeedState{},
	}
}

func (f *feed) snapshot() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyState()
}

func (f *feed) copyState() FeedState {
	st := f.state
	st.Sales = cloneSales(f.state.Sales)
	return st
}

func (f *feed) find(id string) (Sale, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.state.Sales {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Sale{}, false
}

func (f *feed) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

// setAuthoritative replaces the view with a snapshot from the store.
func (f *feed) setAuthoritative(sales []Sale) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = cloneSales(sales)
	f.epoch++
	f.state.Sales = cloneSales(sales)
	f.state.Loading = false
	f.state.Version++
	f.broadcast()
}

// fail ends the feed: the view becomes empty and is no longer loading.
func (f *feed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = err
	f.confirmed = []Sale{}
	f.epoch++
	f.state.Sales = []Sale{}
	f.state.Loading = false
	f.state.Version++
	f.broadcast()
}

// applyOptimistic mutates the view ahead of the store. The returned epoch
// identifies the authoritative snapshot the change was based on.
func (f *feed) applyOptimistic(mutate func([]Sale) []Sale) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Sales = mutate(cloneSales(f.state.Sales))
	f.state.Version++
	f.broadcast()
	return f.epoch
}

// revert restores the last authoritative snapshot unless a newer one arrived
// after the optimistic change was applied.
func (f *feed) revert(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return false
	}
	f.state.Sales = cloneSales(f.confirmed)
	f.state.Version++
	f.broadcast()
	return true
}

// watch delivers the current state and then every change until ctx ends.
// Slow watchers only ever see the latest state.
func (f *feed) watch(ctx context.Context) <-chan FeedState {
	ch := make(chan FeedState, 1)
	f.mu.Lock()
	id := f.next
	f.next++
	f.watchers[id] = ch
	ch <- f.copyState()
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (f *feed) broadcast() {
	for _, ch := range f.watchers {
		st := f.copyState()
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
