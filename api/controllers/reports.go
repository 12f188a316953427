package controllers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type performanceResponse struct {
	Loading bool `json:"loading"`
	reports.Performance
	Totals reports.Totals `json:"totals"`
}

// ReportsPerformance returns the weekly, monthly and item series for the
// filtered history.
func ReportsPerformance(feed SalesFeed, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
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
		state := feed.Snapshot()
		filtered := reports.FilterSales(state.Sales, filter, loc)
		responses.WriteSuccess(w, performanceResponse{
			Loading:     state.Loading,
			Performance: reports.BuildPerformance(filtered, loc),
			Totals:      reports.Summarize(filtered),
		})
	}
}

// SalesExport downloads the filtered history as an xlsx workbook.
func SalesExport(feed SalesFeed, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
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
		filtered := reports.FilterSales(feed.Snapshot().Sales, filter, loc)

		buf := &bytes.Buffer{}
		if err := reports.ExportHistory(buf, filtered, reports.Summarize(filtered), loc); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export sales"))
			return
		}

		name := "sales-history-" + time.Now().In(locOrUTC(loc)).Format("20060102") + ".xlsx"
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
