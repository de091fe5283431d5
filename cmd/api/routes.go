package main

import (
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/currency"
	"github.com/fintrack/backend/internal/handlers"
	"github.com/fintrack/backend/internal/imports"
	"github.com/fintrack/backend/internal/ledger"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/router"
	"github.com/fintrack/backend/internal/services"
)

type v1Handlers struct {
	Transactions *handlers.Resource[models.Transaction]
	Budgets      *handlers.Resource[models.Budget]
	Categories   *handlers.Resource[models.Category]
	Rates        *currency.Handler
	Ledger       *ledger.Handler
	Imports      *imports.Handler
}

// registerV1Routes adds the resource, exchange-rate and import endpoints.
// Middleware chain: Authenticate -> ValidateBody (writes only) -> handler.
func registerV1Routes(mux *http.ServeMux, h v1Handlers, verifier middleware.TokenVerifier, validator *services.Validator, logger *slog.Logger) {
	requireAuth := middleware.RequireAuth(verifier, logger)
	optionalAuth := middleware.OptionalAuth(verifier, logger)
	body := func(schema string) func(http.Handler) http.Handler {
		return middleware.ValidateBody(validator, schema, logger)
	}
	route := func(pattern string, fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
		mux.Handle(pattern, middleware.Chain(fn, mws...))
	}
	base := router.Base

	// --- transactions ---
	route("GET "+base+"/transactions", h.Transactions.List, requireAuth)
	route("POST "+base+"/transactions", h.Transactions.Create, requireAuth, body(services.SchemaTransactionCreate))
	route("GET "+base+"/transactions/summary", h.Ledger.Summary, requireAuth)
	route("GET "+base+"/transactions/{id}", h.Transactions.Get, requireAuth)
	route("PUT "+base+"/transactions/{id}", h.Transactions.Update, requireAuth, body(services.SchemaTransactionUpdate))
	route("DELETE "+base+"/transactions/{id}", h.Transactions.Delete, requireAuth)

	// --- budgets ---
	route("GET "+base+"/budgets", h.Budgets.List, requireAuth)
	route("POST "+base+"/budgets", h.Budgets.Create, requireAuth, body(services.SchemaBudgetCreate))
	route("GET "+base+"/budgets/{id}", h.Budgets.Get, requireAuth)
	route("GET "+base+"/budgets/{id}/progress", h.Ledger.BudgetProgress, requireAuth)
	route("PUT "+base+"/budgets/{id}", h.Budgets.Update, requireAuth, body(services.SchemaBudgetUpdate))
	route("DELETE "+base+"/budgets/{id}", h.Budgets.Delete, requireAuth)

	// --- categories (anonymous readers see the default set) ---
	route("GET "+base+"/categories", h.Categories.List, optionalAuth)
	route("POST "+base+"/categories", h.Categories.Create, requireAuth, body(services.SchemaCategoryCreate))
	route("GET "+base+"/categories/{id}", h.Categories.Get, optionalAuth)
	route("PUT "+base+"/categories/{id}", h.Categories.Update, requireAuth, body(services.SchemaCategoryUpdate))
	route("DELETE "+base+"/categories/{id}", h.Categories.Delete, requireAuth)

	// --- exchange rates ---
	route("GET "+base+"/exchange-rates/convert", h.Rates.Convert)
	route("GET "+base+"/exchange-rates/rate/{from}/{to}", h.Rates.Rate)
	route("GET "+base+"/exchange-rates/multiple", h.Rates.Multiple)
	route("GET "+base+"/exchange-rates/supported", h.Rates.SupportedCurrencies)
	route("POST "+base+"/exchange-rates/refresh", h.Rates.Refresh, requireAuth)

	// --- statement imports ---
	route("POST "+base+"/imports/analyze", h.Imports.Analyze, requireAuth)
	route("POST "+base+"/imports", h.Imports.Create, requireAuth)
	route("GET "+base+"/imports", h.Imports.List, requireAuth)
	route("GET "+base+"/imports/{id}", h.Imports.Get, requireAuth)
	route("GET "+base+"/imports/{id}/download", h.Imports.Download, requireAuth)
}
