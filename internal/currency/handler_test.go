package currency

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(c *Cache) *http.ServeMux {
	h := NewHandler(c, quietLogger())
	h.now = func() time.Time { return day }
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/exchange-rates/convert", h.Convert)
	mux.HandleFunc("GET /api/v1/exchange-rates/rate/{from}/{to}", h.Rate)
	mux.HandleFunc("GET /api/v1/exchange-rates/multiple", h.Multiple)
	mux.HandleFunc("POST /api/v1/exchange-rates/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/exchange-rates/supported", h.SupportedCurrencies)
	return mux
}

func get(t *testing.T, mux http.Handler, method, target string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w.Code, body
}

func TestHandler_Convert(t *testing.T) {
	p := usdProvider(40)
	mux := newTestMux(newTestCache(nil, p, &clock{t: day}))

	code, body := get(t, mux, http.MethodGet, "/api/v1/exchange-rates/convert?fromCurrency=USD&toCurrency=UYU&amount=100")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, 4000.0, data["convertedAmount"])
	assert.Equal(t, 40.0, data["exchangeRate"])
	assert.Equal(t, 100.0, data["originalAmount"])
	assert.Equal(t, "2024-06-01", data["date"])
}

func TestHandler_ConvertRoundsToCents(t *testing.T) {
	p := usdProvider(0.3333)
	p.rates["USD"]["EUR"] = 0.3333
	mux := newTestMux(newTestCache(nil, p, &clock{t: day}))

	_, body := get(t, mux, http.MethodGet, "/api/v1/exchange-rates/convert?fromCurrency=usd&toCurrency=eur&amount=10.5")
	assert.Equal(t, 3.5, body["data"].(map[string]any)["convertedAmount"])
}

func TestHandler_ConvertValidation(t *testing.T) {
	mux := newTestMux(newTestCache(nil, usdProvider(40), &clock{t: day}))

	code, body := get(t, mux, http.MethodGet, "/api/v1/exchange-rates/convert?fromCurrency=JPY&amount=abc&date=tomorrow")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Len(t, body["details"], 4)
}

func TestHandler_RefreshForcesProviderCall(t *testing.T) {
	p := usdProvider(40)
	mux := newTestMux(newTestCache(nil, p, &clock{t: day}))
	target := "/api/v1/exchange-rates/convert?fromCurrency=USD&toCurrency=UYU&amount=1"

	get(t, mux, http.MethodGet, target)
	get(t, mux, http.MethodGet, target)
	assert.EqualValues(t, 1, p.calls.Load())

	code, _ := get(t, mux, http.MethodPost, "/api/v1/exchange-rates/refresh")
	require.Equal(t, http.StatusOK, code)

	get(t, mux, http.MethodGet, target)
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestHandler_RateMultipleSupported(t *testing.T) {
	mux := newTestMux(newTestCache(nil, usdProvider(40), &clock{t: day}))

	code, body := get(t, mux, http.MethodGet, "/api/v1/exchange-rates/rate/usd/uyu?date=2024-06-01")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 40.0, body["data"].(map[string]any)["rate"])

	code, _ = get(t, mux, http.MethodGet, "/api/v1/exchange-rates/rate/USD/XXX")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = get(t, mux, http.MethodGet, "/api/v1/exchange-rates/multiple?base=USD&targets=UYU,EUR")
	require.Equal(t, http.StatusOK, code)
	rates := body["data"].(map[string]any)["rates"].(map[string]any)
	assert.Equal(t, 40.0, rates["UYU"])
	assert.Equal(t, 0.9, rates["EUR"])

	code, _ = get(t, mux, http.MethodGet, "/api/v1/exchange-rates/multiple?base=USD")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = get(t, mux, http.MethodGet, "/api/v1/exchange-rates/supported")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].(map[string]any)["currencies"], 5)
}

func TestHandler_OffsetDateReportsLookupDay(t *testing.T) {
	mux := newTestMux(newTestCache(nil, usdProvider(40), &clock{t: day}))

	// 23:00 at UTC-3 is already the next day in UTC.
	code, body := get(t, mux, http.MethodGet, "/api/v1/exchange-rates/rate/USD/UYU?date=2024-01-01T23:00:00-03:00")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-01-02", body["data"].(map[string]any)["date"])

	code, body = get(t, mux, http.MethodGet, "/api/v1/exchange-rates/convert?fromCurrency=USD&toCurrency=UYU&amount=1&date=2024-01-01T23:00:00-03:00")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-01-02", body["data"].(map[string]any)["date"])
}
