package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/sharesathi/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, description TEXT, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := settings.NewService(settings.NewRepository(db, log), nil, log)

	router := chi.NewRouter()
	NewHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestHandleGetAll(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/settings/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response struct {
		Data struct {
			Values map[string]string `json:"values"`
		} `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "system", response.Data.Values[settings.KeyTheme])
	assert.Contains(t, response.Metadata, "timestamp")
}

func TestHandleUpdate(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		body   string
		status int
	}{
		{"ok", settings.KeyTheme, `{"value":"dark"}`, http.StatusOK},
		{"invalid value", settings.KeyTheme, `{"value":"neon"}`, http.StatusBadRequest},
		{"unknown key", "nope", `{"value":"x"}`, http.StatusNotFound},
		{"bad json", settings.KeyTheme, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(t)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("PUT", "/settings/"+tt.key, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)

			if tt.status != http.StatusOK {
				var response map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.NotEmpty(t, response["error"])
			}
		})
	}
}
