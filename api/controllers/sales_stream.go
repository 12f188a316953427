package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const streamHeartbeat = 15 * time.Second

// StoreErrorSource is the application error channel.
type StoreErrorSource interface {
	Subscribe(ctx context.Context) <-chan *sales.StoreError
}

// SalesStream pushes the filtered history as server-sent events. Each feed
// change produces a "snapshot" event and each store failure a "store-error"
// event.
func SalesStream(feed SalesFeed, errs StoreErrorSource, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales feed unavailable"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		filter, err := parseSalesFilter(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		states := feed.Watch(ctx)
		var storeErrs <-chan *sales.StoreError
		if errs != nil {
			storeErrs = errs.Subscribe(ctx)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		for {
			var writeErr error
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				writeErr = writeEvent(w, "snapshot", newSalesListResponse(state, filter, loc))
			case storeErr, ok := <-storeErrs:
				if !ok {
					storeErrs = nil
					continue
				}
				writeErr = writeEvent(w, "store-error", storeErr)
			case <-ticker.C:
				_, writeErr = fmt.Fprint(w, ": ping\n\n")
			}
			if writeErr != nil {
				if logg != nil {
					logg.Warn(ctx, "sales stream closed: "+writeErr.Error())
				}
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
