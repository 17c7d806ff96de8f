package nse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/sharesathi/internal/clients/fetch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituentsFixture = `{
  "name": "NIFTY 50",
  "data": [
    {"priority": 1, "symbol": "NIFTY 50", "lastPrice": 24000.5, "pChange": 0.4},
    {"priority": 0, "symbol": "RELIANCE", "lastPrice": 2950.5, "change": 20.5, "pChange": 0.7,
     "open": 2930, "dayHigh": 2960, "dayLow": 2920, "previousClose": 2930,
     "yearHigh": 3200, "yearLow": "2,220.30", "totalTradedVolume": 5000000,
     "meta": {"companyName": "Reliance Industries Limited", "industry": "Refineries"}},
    {"priority": 0, "symbol": "tcs", "lastPrice": "4,100.00", "pChange": -1.2}
  ]
}`

func TestParseConstituents(t *testing.T) {
	rows, err := ParseConstituents([]byte(constituentsFixture), "nifty 50")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.Equal(t, "Reliance Industries Limited", rows[0].Name)
	assert.Equal(t, "Refineries", rows[0].Industry)
	assert.Equal(t, 2950.5, rows[0].Price)
	assert.Equal(t, 2220.3, rows[0].FiftyTwoWeekLow)
	assert.Equal(t, int64(5000000), rows[0].Volume)

	assert.Equal(t, "TCS", rows[1].Symbol)
	assert.Equal(t, 4100.0, rows[1].Price)
	assert.Equal(t, -1.2, rows[1].ChangePercent)
	assert.Empty(t, rows[1].Name)
}

func TestParseConstituents_Malformed(t *testing.T) {
	_, err := ParseConstituents([]byte(`not json`), "NIFTY 50")
	assert.Error(t, err)

	_, err = ParseConstituents([]byte(`{"other": []}`), "NIFTY 50")
	assert.Error(t, err)
}

func TestIndexConstituents_PrimesSession(t *testing.T) {
	var primes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			atomic.AddInt32(&primes, 1)
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
			w.Write([]byte("<html></html>"))
		case "/api/equity-stockIndices":
			cookie, err := r.Cookie("nsit")
			if err != nil || cookie.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "NIFTY 50", r.URL.Query().Get("index"))
			w.Write([]byte(constituentsFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := NewClient(log).WithBaseURL(srv.URL)
	client.WithFetcher(fetch.New(log, fetch.WithHTTPClient(client.fetch.HTTPClient()), fetch.WithRetry(1, time.Millisecond)))

	rows, err := client.IndexConstituents(context.Background(), "NIFTY 50")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = client.IndexConstituents(context.Background(), "NIFTY 50")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primes))
}
