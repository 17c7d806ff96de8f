package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sharesathi/internal/modules/calculator"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalculatorService struct {
	mock.Mock
}

func (m *MockCalculatorService) Calculate(ctx context.Context, req calculator.Request) (*calculator.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calculator.Outcome), args.Error(1)
}

func (m *MockCalculatorService) Compare(ctx context.Context, symbol string, amount float64) ([]calculator.Outcome, error) {
	args := m.Called(ctx, symbol, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calculator.Outcome), args.Error(1)
}

func (m *MockCalculatorService) Defaults() (float64, int) {
	args := m.Called()
	return args.Get(0).(float64), args.Int(1)
}

func setupRouter(svc *MockCalculatorService) chi.Router {
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

func TestHandleCalculate(t *testing.T) {
	svc := new(MockCalculatorService)
	req := calculator.Request{Symbol: "TCS", Amount: 10000, YearsBack: 5}
	svc.On("Calculate", mock.Anything, req).Return(&calculator.Outcome{
		Symbol:    "TCS",
		YearsBack: 5,
		Amount:    10000,
		Result:    &calculator.Result{Shares: 25, CAGR: 0.1},
		Available: true,
	}, nil)
	router := setupRouter(svc)

	code, body := get(t, router, "/calculator?symbol=TCS&amount=10000&years=5")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["available"])
	assert.Equal(t, 25.0, data["result"].(map[string]interface{})["shares"])
	svc.AssertExpectations(t)
}

func TestHandleCalculate_Errors(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("Calculate", mock.Anything, calculator.Request{Symbol: "TCS", YearsBack: 7}).
		Return(nil, calculator.ErrInvalidYears)
	svc.On("Calculate", mock.Anything, calculator.Request{Symbol: "BOOM"}).
		Return(nil, errors.New("upstream exploded"))
	router := setupRouter(svc)

	code, _ := get(t, router, "/calculator?symbol=TCS&amount=abc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, router, "/calculator?symbol=TCS&years=x")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, router, "/calculator?symbol=TCS&years=7")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := get(t, router, "/calculator?symbol=BOOM")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Nil(t, data["result"])
	assert.Equal(t, false, data["available"])
}

func TestHandleCompare(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("Compare", mock.Anything, "TCS", 0.0).Return([]calculator.Outcome{{YearsBack: 1}, {YearsBack: 3}}, nil)
	router := setupRouter(svc)

	code, body := get(t, router, "/calculator/compare?symbol=TCS")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].(map[string]interface{})["outcomes"], 2)
}

func TestHandlePresets(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("Defaults").Return(10000.0, 5)
	router := setupRouter(svc)

	code, body := get(t, router, "/calculator/presets")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{1.0, 3.0, 5.0, 10.0}, data["presets"])
	assert.Equal(t, 5.0, data["defaultYearsBack"])
}
