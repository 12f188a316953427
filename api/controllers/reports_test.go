package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/pos-backend/internal/catalog"
)

func TestReportsPerformance(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/performance", nil)
	resp := httptest.NewRecorder()
	ReportsPerformance(historyFeed(), time.UTC, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Weekly []struct {
				Week    string  `json:"week"`
				Revenue float64 `json:"revenue"`
			} `json:"weekly"`
			Monthly []struct {
				Month   string  `json:"month"`
				Revenue float64 `json:"revenue"`
			} `json:"monthly"`
			Items []struct {
				Name     string `json:"name"`
				Quantity int    `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	require.Len(t, envelope.Data.Weekly, 2)
	assert.Equal(t, "2025-W09", envelope.Data.Weekly[0].Week)
	assert.Equal(t, 17.9, envelope.Data.Weekly[0].Revenue)
	assert.Equal(t, "2025-W11", envelope.Data.Weekly[1].Week)
	assert.Equal(t, 85.6, envelope.Data.Weekly[1].Revenue)

	require.Len(t, envelope.Data.Monthly, 1)
	assert.Equal(t, "Mar 2025", envelope.Data.Monthly[0].Month)
	assert.Equal(t, 103.5, envelope.Data.Monthly[0].Revenue)

	require.Len(t, envelope.Data.Items, 3)
	assert.Equal(t, "Shrimp", envelope.Data.Items[0].Name)
	assert.Equal(t, 2, envelope.Data.Items[0].Quantity)
}

func TestSalesExportReturnsWorkbook(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/export?product_ids=1", nil)
	resp := httptest.NewRecorder()
	SalesExport(historyFeed(), time.UTC, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, xlsxContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "sales-history-")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "1b", rows[1][0])
}

func TestProductList(t *testing.T) {
	resp := httptest.NewRecorder()
	ProductList(catalog.Default(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []catalog.Product `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 5)
	assert.Equal(t, "Cabbage", envelope.Data[0].Name)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pos_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	resp := httptest.NewRecorder()
	Metrics(reg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "pos_test_total 1")
}
