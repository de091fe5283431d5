package ledger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/handlers"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GET /api/v1/transactions/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var details []string

	currency := models.NormalizeCurrency(q.Get("currency"))
	if currency == "" {
		currency = models.CurrencyUYU
		if acc := middleware.AccountFromCtx(r.Context()); acc != nil && acc.PreferredCurrency != "" {
			currency = acc.PreferredCurrency
		}
	} else if !models.IsSupportedCurrency(currency) {
		details = append(details, "currency is not supported")
	}

	from, err := optionalDate(q.Get("dateFrom"))
	if err != nil {
		details = append(details, "dateFrom: "+err.Error())
	}
	to, err := optionalDate(q.Get("dateTo"))
	if err != nil {
		details = append(details, "dateTo: "+err.Error())
	}
	if to != nil {
		// dateTo names the last day included.
		end := models.Day(*to).AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !to.After(*from) {
		details = append(details, "dateTo must not be before dateFrom")
	}
	if len(details) > 0 {
		httpx.Error(w, h.log, common.NewValidationError(details...))
		return
	}

	sum, err := h.svc.Summary(r.Context(), middleware.OwnerFromCtx(r.Context()), currency, from, to)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.OK(w, sum)
}

// GET /api/v1/budgets/{id}/progress
func (h *Handler) BudgetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.BudgetProgress(r.Context(), middleware.OwnerFromCtx(r.Context()), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.OK(w, p)
}

func optionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
