package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/internal/repository"
	"github.com/andresuchdata/autopo-forecast/internal/repository/memory"
	"github.com/andresuchdata/autopo-forecast/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	sales []domain.SalesRecord
	items []domain.InventoryItem
}

func (s *staticSource) LoadSales(ctx context.Context) (*repository.SalesLedger, error) {
	return &repository.SalesLedger{Records: s.sales}, nil
}

func (s *staticSource) LoadInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.items, nil
}

func newTestRouter(t *testing.T, sales []domain.SalesRecord) (*gin.Engine, *service.ForecastService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	source := &staticSource{
		sales: sales,
		items: []domain.InventoryItem{
			{ProductCode: "AMX500", Name: "Amoxicillin", CurrentStock: 15, PurchasePrice: 3, SellingPrice: 4.5},
		},
	}
	svc := service.NewForecastService(service.Dependencies{
		Engine:    forecast.NewEngine(forecast.DefaultConfig()),
		Sales:     source,
		Inventory: source,
		Snapshots: memory.NewSnapshotStore(),
		Runs:      memory.NewRunStore(),
	})
	t.Cleanup(svc.WaitForHooks)

	return NewRouter(&Services{ForecastService: svc}, nil), svc
}

func salesLedger() []domain.SalesRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []domain.SalesRecord
	for d := 0; d < 30; d++ {
		rows = append(rows, domain.SalesRecord{
			Date:        start.AddDate(0, 0, d),
			ProductCode: "AMX500",
			ProductName: "Amoxicillin",
			Quantity:    5,
			UnitPrice:   4.5,
		})
	}
	return rows
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRunForecastEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, salesLedger())

	w := doRequest(router, http.MethodPost, "/api/v1/forecast", `{"action":"full_forecast","horizon_days":14}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp domain.ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "AMX500", resp.Results[0].ProductCode)
	assert.Equal(t, 14, resp.Results[0].HorizonDays)
	assert.Nil(t, resp.Optimization)
	assert.Contains(t, w.Body.String(), `"optimization":null`)
}

func TestRunForecastErrors(t *testing.T) {
	tests := []struct {
		name   string
		sales  []domain.SalesRecord
		body   string
		status int
		code   string
	}{
		{
			name:   "MalformedJSON",
			sales:  salesLedger(),
			body:   `{"action":`,
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidRequest,
		},
		{
			name:   "UnknownAction",
			sales:  salesLedger(),
			body:   `{"action":"replenish"}`,
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidRequest,
		},
		{
			name:   "OptimizeWithoutBudget",
			sales:  salesLedger(),
			body:   `{"action":"optimize"}`,
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidBudget,
		},
		{
			name:   "NegativeBudget",
			sales:  salesLedger(),
			body:   `{"action":"optimize","budget":-5}`,
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidBudget,
		},
		{
			name:   "EmptyLedger",
			body:   `{"action":"full_forecast"}`,
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tt.sales)

			w := doRequest(router, http.MethodPost, "/api/v1/forecast", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp domain.ForecastResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
			assert.Empty(t, resp.Results)
		})
	}
}

func TestLatestEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, salesLedger())

	w := doRequest(router, http.MethodGet, "/api/v1/forecast/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/forecast", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	var run domain.ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))

	w = doRequest(router, http.MethodGet, "/api/v1/forecast/latest", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot domain.ForecastSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, run.RunID, snapshot.RunID)
	assert.Len(t, snapshot.Results, 1)
}

func TestListRunsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, salesLedger())

	doRequest(router, http.MethodPost, "/api/v1/forecast", `{}`)
	doRequest(router, http.MethodPost, "/api/v1/forecast", `{"action":"optimize","budget":100}`)

	w := doRequest(router, http.MethodGet, "/api/v1/forecast/runs?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs  []domain.ForecastRun `json:"runs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, domain.ActionOptimize, body.Runs[0].Action)

	w = doRequest(router, http.MethodGet, "/api/v1/forecast/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
