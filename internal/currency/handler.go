package currency

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/models"
)

// Rates is what the HTTP surface needs from the cache.
type Rates interface {
	Rate(ctx context.Context, from, to string, date time.Time) float64
	MultipleRates(ctx context.Context, base string, targets []string, date time.Time) map[string]float64
	Clear()
}

type Handler struct {
	rates Rates
	now   func() time.Time
	log   *slog.Logger
}

func NewHandler(rates Rates, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{rates: rates, now: time.Now, log: log}
}

type conversion struct {
	FromCurrency    string  `json:"fromCurrency"`
	ToCurrency      string  `json:"toCurrency"`
	OriginalAmount  float64 `json:"originalAmount"`
	ConvertedAmount float64 `json:"convertedAmount"`
	ExchangeRate    float64 `json:"exchangeRate"`
	Date            string  `json:"date"`
}

// Convert handles GET /api/v1/exchange-rates/convert.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var details []string
	from, err := currencyParam("fromCurrency", q.Get("fromCurrency"))
	if err != nil {
		details = append(details, err.Error())
	}
	to, err := currencyParam("toCurrency", q.Get("toCurrency"))
	if err != nil {
		details = append(details, err.Error())
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		details = append(details, "amount must be a number")
	}
	date, err := h.dateParam(q.Get("date"))
	if err != nil {
		details = append(details, err.Error())
	}
	if len(details) > 0 {
		httpx.Error(w, h.log, common.NewValidationError(details...))
		return
	}

	rate := h.rates.Rate(r.Context(), from, to, date)
	converted := amount.Mul(decimal.NewFromFloat(rate)).Round(2)
	httpx.OK(w, conversion{
		FromCurrency:    from,
		ToCurrency:      to,
		OriginalAmount:  amount.InexactFloat64(),
		ConvertedAmount: converted.InexactFloat64(),
		ExchangeRate:    rate,
		Date:            date.Format(time.DateOnly),
	})
}

// Rate handles GET /api/v1/exchange-rates/rate/{from}/{to}.
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var details []string
	from, err := currencyParam("from", r.PathValue("from"))
	if err != nil {
		details = append(details, err.Error())
	}
	to, err := currencyParam("to", r.PathValue("to"))
	if err != nil {
		details = append(details, err.Error())
	}
	date, err := h.dateParam(r.URL.Query().Get("date"))
	if err != nil {
		details = append(details, err.Error())
	}
	if len(details) > 0 {
		httpx.Error(w, h.log, common.NewValidationError(details...))
		return
	}
	httpx.OK(w, map[string]any{
		"fromCurrency": from,
		"toCurrency":   to,
		"rate":         h.rates.Rate(r.Context(), from, to, date),
		"date":         date.Format(time.DateOnly),
	})
}

// Multiple handles GET /api/v1/exchange-rates/multiple?base=USD&targets=UYU,EUR.
func (h *Handler) Multiple(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var details []string
	base, err := currencyParam("base", q.Get("base"))
	if err != nil {
		details = append(details, err.Error())
	}
	var targets []string
	for _, t := range strings.Split(q.Get("targets"), ",") {
		if strings.TrimSpace(t) == "" {
			continue
		}
		code, err := currencyParam("targets", t)
		if err != nil {
			details = append(details, err.Error())
			continue
		}
		targets = append(targets, code)
	}
	if len(targets) == 0 && len(details) == 0 {
		details = append(details, "targets must list at least one currency")
	}
	date, err := h.dateParam(q.Get("date"))
	if err != nil {
		details = append(details, err.Error())
	}
	if len(details) > 0 {
		httpx.Error(w, h.log, common.NewValidationError(details...))
		return
	}
	httpx.OK(w, map[string]any{
		"base":  base,
		"rates": h.rates.MultipleRates(r.Context(), base, targets, date),
		"date":  date.Format(time.DateOnly),
	})
}

// Refresh handles POST /api/v1/exchange-rates/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.rates.Clear()
	h.log.Info("exchange rate cache cleared")
	httpx.Message(w, http.StatusOK, "Exchange rate cache cleared")
}

// SupportedCurrencies handles GET /api/v1/exchange-rates/supported.
func (h *Handler) SupportedCurrencies(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, map[string]any{"currencies": Supported()})
}

func currencyParam(name, raw string) (string, error) {
	code := models.NormalizeCurrency(raw)
	if code == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	if !models.IsSupportedCurrency(code) {
		return "", fmt.Errorf("%s: currency %q is not supported", name, code)
	}
	return code, nil
}

// dateParam returns the UTC day the rate is looked up under.
func (h *Handler) dateParam(raw string) (time.Time, error) {
	if raw == "" {
		return models.Day(h.now()), nil
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date: %v", err)
	}
	return models.Day(t), nil
}
