package sales

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
)

// StoreError describes a failed Sale Store call as published on the error
// channel.
type StoreError struct {
	Path           string               `json:"path"`
	Operation      enums.StoreOperation `json:"operation"`
	RequestPayload any                  `json:"requestResourceData,omitempty"`
	Code           pkgerrors.Code       `json:"code"`
	Message        string               `json:"message"`
	OccurredAt     time.Time            `json:"occurredAt"`
	Err            error                `json:"-"`
}

func newStoreError(path string, op enums.StoreOperation, payload any, err error) *StoreError {
	se := &StoreError{
		Path:           path,
		Operation:      op,
		RequestPayload: payload,
		Code:           pkgerrors.CodeOf(err),
		OccurredAt:     time.Now().UTC(),
		Err:            err,
	}
	if err != nil {
		se.Message = err.Error()
	}
	return se
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("sale store %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorReporter receives every Sale Store failure.
type ErrorReporter interface {
	Report(ctx context.Context, err *StoreError)
}

// Reporters fans a report out to several reporters in order.
type Reporters []ErrorReporter

func (r Reporters) Report(ctx context.Context, err *StoreError) {
	for _, reporter := range r {
		if reporter != nil {
			reporter.Report(ctx, err)
		}
	}
}

// LogReporter writes store errors to the structured log and counts them.
type LogReporter struct {
	logg    *logger.Logger
	metrics *metrics.SaleStoreMetrics
}

func NewLogReporter(logg *logger.Logger, m *metrics.SaleStoreMetrics) *LogReporter {
	return &LogReporter{logg: logg, metrics: m}
}

func (r *LogReporter) Report(ctx context.Context, err *StoreError) {
	if err == nil {
		return
	}
	r.metrics.IncReported(string(err.Operation))
	if r.logg == nil {
		return
	}
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"path":      err.Path,
		"operation": err.Operation,
		"code":      err.Code,
		"dump":      pkgerrors.Dump(err.Err),
	})
	r.logg.Error(logCtx, "sale store operation failed", err.Err)
}

// ErrorHub is the application-wide error channel. Subscribers get every report
// made after they subscribed; a subscriber that falls behind loses reports
// instead of blocking the writer.
type ErrorHub struct {
	mu     sync.Mutex
	subs   map[int]chan *StoreError
	next   int
	buffer int
}

func NewErrorHub(buffer int) *ErrorHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &ErrorHub{subs: map[int]chan *StoreError{}, buffer: buffer}
}

func (h *ErrorHub) Report(_ context.Context, err *StoreError) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- err:
		default:
		}
	}
}

// Subscribe returns a channel that closes when ctx ends.
func (h *ErrorHub) Subscribe(ctx context.Context) <-chan *StoreError {
	ch := make(chan *StoreError, h.buffer)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Subscribers returns the number of live subscriptions.
func (h *ErrorHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
