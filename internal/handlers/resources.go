package handlers

import (
	"log/slog"

	"github.com/fintrack/backend/internal/models"
)

func NewTransactions(store Store[models.Transaction], log *slog.Logger) *Resource[models.Transaction] {
	return &Resource[models.Transaction]{
		Store:    store,
		Noun:     "Transaction",
		Filters:  []string{"type", "currency", "categoryId", "source", "importId", "dateFrom", "dateTo", "search"},
		Validate: (*models.Transaction).Validate,
		Clone:    (*models.Transaction).Clone,
		// Source and import linkage are set by the import worker only.
		Protect: func(t, existing *models.Transaction) {
			if existing == nil {
				t.Source = models.TransactionSourceManual
				t.ImportID = nil
				return
			}
			t.Source = existing.Source
			t.ImportID = existing.ImportID
		},
		Logger: log,
	}
}

func NewBudgets(store Store[models.Budget], log *slog.Logger) *Resource[models.Budget] {
	return &Resource[models.Budget]{
		Store:    store,
		Noun:     "Budget",
		Filters:  []string{"period", "categoryId", "isActive", "currency"},
		New:      func() *models.Budget { return &models.Budget{IsActive: true, Period: models.PeriodMonthly} },
		Validate: (*models.Budget).Validate,
		Clone:    (*models.Budget).Clone,
		Logger:   log,
	}
}

func NewCategories(store Store[models.Category], log *slog.Logger) *Resource[models.Category] {
	return &Resource[models.Category]{
		Store:    store,
		Noun:     "Category",
		Filters:  []string{"type", "search"},
		Validate: (*models.Category).Validate,
		Logger:   log,
	}
}
