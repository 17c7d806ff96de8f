package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Quote), args.Error(1)
}

func (m *MockMarketService) Quotes(ctx context.Context, symbols []string) market.BatchQuotes {
	args := m.Called(ctx, symbols)
	return args.Get(0).(market.BatchQuotes)
}

func (m *MockMarketService) Headlines(ctx context.Context) market.BatchQuotes {
	args := m.Called(ctx)
	return args.Get(0).(market.BatchQuotes)
}

func (m *MockMarketService) History(ctx context.Context, symbol, rng string) ([]market.PricePoint, error) {
	args := m.Called(ctx, symbol, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.PricePoint), args.Error(1)
}

func (m *MockMarketService) IndexTable(ctx context.Context, index string) (*market.IndexTable, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.IndexTable), args.Error(1)
}

func (m *MockMarketService) Movers(ctx context.Context, index string, n int) (*market.Movers, error) {
	args := m.Called(ctx, index, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Movers), args.Error(1)
}

func (m *MockMarketService) Search(query string, limit int) []market.Instrument {
	args := m.Called(query, limit)
	return args.Get(0).([]market.Instrument)
}

func (m *MockMarketService) Technicals(ctx context.Context, symbol string) (*market.Technicals, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Technicals), args.Error(1)
}

func (m *MockMarketService) Bhavcopy(ctx context.Context, date time.Time) (*market.Bhavcopy, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Bhavcopy), args.Error(1)
}

func setupRouter(svc *MockMarketService) chi.Router {
	router := chi.NewRouter()
	NewHandler(svc, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)
	return router
}

func get(t *testing.T, router chi.Router, path string) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestHandleQuote(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Quote", mock.Anything, "TCS").Return(&market.Quote{Quote: yahoo.Quote{Symbol: "TCS", Price: 3500}}, nil)
	svc.On("Quote", mock.Anything, "DOWN").Return(nil, market.ErrUnavailable)
	svc.On("Quote", mock.Anything, "BOOM").Return(nil, errors.New("boom"))
	router := setupRouter(svc)

	code, body := get(t, router, "/market/quote/TCS")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["available"])
	assert.Equal(t, 3500.0, data["quote"].(map[string]interface{})["price"])

	code, body = get(t, router, "/market/quote/DOWN")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["data"].(map[string]interface{})["available"])

	code, body = get(t, router, "/market/quote/BOOM")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "failed to load market data", body["error"])
}

func TestHandleQuotes(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Quotes", mock.Anything, []string{"TCS", "INFY"}).Return(market.BatchQuotes{
		Quotes: []market.Quote{{Quote: yahoo.Quote{Symbol: "TCS"}}},
		Failed: []string{"INFY"},
	})
	router := setupRouter(svc)

	code, body := get(t, router, "/market/quotes?symbols=TCS,%20INFY")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["quotes"], 1)
	assert.Equal(t, []interface{}{"INFY"}, data["failed"])

	code, _ = get(t, router, "/market/quotes")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandleHistory(t *testing.T) {
	svc := new(MockMarketService)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("History", mock.Anything, "TCS", "5y").Return([]market.PricePoint{{Date: day, Close: 10}}, nil)
	svc.On("History", mock.Anything, "TCS", "1y").Return([]market.PricePoint{}, nil)
	svc.On("History", mock.Anything, "TCS", "7y").Return(nil, market.ErrInvalidRange)
	router := setupRouter(svc)

	code, body := get(t, router, "/market/history/TCS?range=5y")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "1wk", data["interval"])
	assert.Equal(t, true, data["available"])
	assert.Len(t, data["points"], 1)

	_, body = get(t, router, "/market/history/TCS")
	assert.Equal(t, false, body["data"].(map[string]interface{})["available"])

	code, _ = get(t, router, "/market/history/TCS?range=7y")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandleIndexTableAndMovers(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("IndexTable", mock.Anything, "NIFTY 50").Return(&market.IndexTable{
		Index: "NIFTY 50",
		Rows:  []nse.Constituent{{Symbol: "TCS"}},
	}, nil)
	svc.On("IndexTable", mock.Anything, "NOPE").Return(nil, market.ErrUnknownIndex)
	svc.On("Movers", mock.Anything, "NIFTY BANK", 3).Return(&market.Movers{Index: "NIFTY BANK"}, nil)
	router := setupRouter(svc)

	code, body := get(t, router, "/market/index")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["available"])

	code, _ = get(t, router, "/market/index?name=NOPE")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, router, "/market/movers?index=NIFTY%20BANK&n=3")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, router, "/market/movers?n=100")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, router, "/market/movers?n=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandleIndices(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Headlines", mock.Anything).Return(market.BatchQuotes{Quotes: []market.Quote{}, Failed: []string{"^NSEI"}})
	router := setupRouter(svc)

	code, body := get(t, router, "/market/indices")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["indices"], len(nse.Indices))
}

func TestHandleSearch(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Search", "tata", market.DefaultSearchLimit).Return([]market.Instrument{{Symbol: "TCS"}})
	router := setupRouter(svc)

	code, body := get(t, router, "/market/search?q=tata")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].(map[string]interface{})["results"], 1)
}

func TestHandleTechnicals(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Technicals", mock.Anything, "INFY").Return(&market.Technicals{Symbol: "INFY", LastClose: 1500}, nil)
	svc.On("Technicals", mock.Anything, "NONE").Return(nil, market.ErrUnavailable)
	router := setupRouter(svc)

	code, body := get(t, router, "/market/technicals/INFY")
	assert.Equal(t, http.StatusOK, code)
	tech := body["data"].(map[string]interface{})["technicals"].(map[string]interface{})
	assert.Equal(t, 1500.0, tech["lastClose"])

	_, body = get(t, router, "/market/technicals/NONE")
	assert.Equal(t, false, body["data"].(map[string]interface{})["available"])
}

func TestHandleBhavcopy(t *testing.T) {
	svc := new(MockMarketService)
	day := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	svc.On("Bhavcopy", mock.Anything, day).Return(&market.Bhavcopy{Date: day}, nil)
	router := setupRouter(svc)

	code, body := get(t, router, "/market/bhavcopy?date=2025-01-03")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2025-01-03", data["date"])
	assert.Equal(t, 0.0, data["count"])

	code, _ = get(t, router, "/market/bhavcopy?date=03-01-2025")
	assert.Equal(t, http.StatusBadRequest, code)
}
