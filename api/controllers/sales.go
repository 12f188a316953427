package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/reports"
	"github.com/angelmondragon/pos-backend/internal/sales"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// SalesFeed is the Sales Repository surface the HTTP layer needs.
type SalesFeed interface {
	Snapshot() sales.FeedState
	Watch(ctx context.Context) <-chan sales.FeedState
	GetSale(ctx context.Context, id string) (sales.Sale, error)
	UpdateSale(ctx context.Context, id string, patch sales.Patch) error
	DeleteSale(ctx context.Context, id string) error
}

type saleResponse struct {
	sales.Sale
	ItemCount int `json:"itemCount"`
}

type saleLineResponse struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type saleDetailResponse struct {
	saleResponse
	Lines []saleLineResponse `json:"lines"`
}

type salesListResponse struct {
	Loading bool           `json:"loading"`
	Version uint64         `json:"version"`
	Sales   []saleResponse `json:"sales"`
	Totals  reports.Totals `json:"totals"`
}

type patchSaleRequest struct {
	DeliveryStatus *string `json:"delivery_status,omitempty" validate:"omitempty,oneof=Pending Delivered Cancelled"`
	SalesStatus    *string `json:"sales_status,omitempty" validate:"omitempty,oneof=Pending Completed Refunded Cancelled"`
}

func (p patchSaleRequest) toPatch() (sales.Patch, error) {
	var patch sales.Patch
	if p.DeliveryStatus != nil {
		status, err := enums.ParseDeliveryStatus(strings.TrimSpace(*p.DeliveryStatus))
		if err != nil {
			return sales.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status")
		}
		patch.DeliveryStatus = &status
	}
	if p.SalesStatus != nil {
		status, err := enums.ParseSalesStatus(strings.TrimSpace(*p.SalesStatus))
		if err != nil {
			return sales.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sales status")
		}
		patch.SalesStatus = &status
	}
	if patch.IsEmpty() {
		return sales.Patch{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery_status or sales_status is required")
	}
	return patch, nil
}

// SalesList returns the filtered history with its totals.
func SalesList(feed SalesFeed, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales feed unavailable"))
			return
		}
		filter, err := parseSalesFilter(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := newSalesListResponse(feed.Snapshot(), filter, loc)
		if limit > 0 && len(resp.Sales) > limit {
			resp.Sales = resp.Sales[:limit]
		}
		responses.WriteSuccess(w, resp)
	}
}

// SaleDetail returns one sale with per-line subtotals.
func SaleDetail(feed SalesFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales feed unavailable"))
			return
		}
		id, err := saleIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := feed.GetSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSaleDetailResponse(sale))
	}
}

// SaleUpdate patches the delivery and/or sales status of a sale.
func SaleUpdate(feed SalesFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales feed unavailable"))
			return
		}
		id, err := saleIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload patchSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := feed.UpdateSale(r.Context(), id, patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "updated": true})
	}
}

func SaleDelete(feed SalesFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales feed unavailable"))
			return
		}
		id, err := saleIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := feed.DeleteSale(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func parseSalesFilter(r *http.Request, loc *time.Location) (reports.Filter, error) {
	from, err := validators.ParseQueryDate(r, "from", loc)
	if err != nil {
		return reports.Filter{}, err
	}
	to, err := validators.ParseQueryDate(r, "to", loc)
	if err != nil {
		return reports.Filter{}, err
	}
	if from != nil && to != nil && from.After(*to) {
		return reports.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	ids, err := validators.ParseQueryIntList(r, "product_ids")
	if err != nil {
		return reports.Filter{}, err
	}
	return reports.Filter{From: from, To: to, ProductIDs: ids}, nil
}

func saleIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "saleId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	return id, nil
}

func newSalesListResponse(state sales.FeedState, filter reports.Filter, loc *time.Location) salesListResponse {
	filtered := reports.FilterSales(state.Sales, filter, loc)
	out := make([]saleResponse, 0, len(filtered))
	for _, s := range filtered {
		out = append(out, newSaleResponse(s))
	}
	return salesListResponse{
		Loading: state.Loading,
		Version: state.Version,
		Sales:   out,
		Totals:  reports.Summarize(filtered),
	}
}

func newSaleResponse(s sales.Sale) saleResponse {
	return saleResponse{Sale: s, ItemCount: s.ItemCount()}
}

func newSaleDetailResponse(s sales.Sale) saleDetailResponse {
	lines := make([]saleLineResponse, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, saleLineResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
	}
	return saleDetailResponse{saleResponse: newSaleResponse(s), Lines: lines}
}
