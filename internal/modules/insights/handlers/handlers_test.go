package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sharesathi/internal/modules/insights"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInsights struct{}

func (stubInsights) QuoteOfTheDay(ctx context.Context) insights.DailyQuote {
	return insights.DailyQuote{Text: "Stay the course.", Author: "Jack Bogle", Source: insights.SourceFallback}
}

func (stubInsights) CompanyProfile(ctx context.Context, query string) (*insights.CompanyProfile, error) {
	if query == "" {
		return nil, insights.ErrEmptyQuery
	}
	return &insights.CompanyProfile{Query: query, Title: query, Available: query != "missing"}, nil
}

func serve(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	router := chi.NewRouter()
	NewHandler(stubInsights{}, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestHandleQuote(t *testing.T) {
	code, body := serve(t, "/insights/quote")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Jack Bogle", body["data"].(map[string]interface{})["author"])
}

func TestHandleCompany(t *testing.T) {
	code, body := serve(t, "/insights/company?q=Infosys")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["available"])

	_, body = serve(t, "/insights/company?q=missing")
	assert.Equal(t, false, body["data"].(map[string]interface{})["available"])

	code, body = serve(t, "/insights/company")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])
}
