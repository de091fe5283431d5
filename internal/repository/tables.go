package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/backend/internal/models"
)

// Transactions maps models.Transaction onto the transactions table.
var Transactions = Table[models.Transaction]{
	Name:    "transactions",
	Columns: []string{"type", "amount", "currency", "description", "category_id", "date", "notes", "source", "import_id"},
	Values: func(t *models.Transaction) []any {
		return []any{t.Type, t.Amount, t.Currency, t.Description, t.CategoryID, t.Date.Time, t.Notes, t.Source, t.ImportID}
	},
	Scan: func(row pgx.Row) (*models.Transaction, error) {
		var t models.Transaction
		var owner *uuid.UUID
		err := row.Scan(&t.ID, &owner, &t.Type, &t.Amount, &t.Currency, &t.Description, &t.CategoryID,
			&t.Date.Time, &t.Notes, &t.Source, &t.ImportID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		t.Owner = models.OwnerFromColumn(owner)
		return &t, nil
	},
	Sortable: map[string]string{
		"date":        "date",
		"amount":      "amount",
		"description": "description",
		"createdAt":   "created_at",
	},
	DefaultSort: "date",
	Filters: map[string]Filter{
		"type":       {Column: "type", Op: "=", Parse: oneOf(models.TypeIncome, models.TypeExpense)},
		"currency":   {Column: "currency", Op: "=", Parse: currency},
		"categoryId": {Column: "category_id", Op: "=", Parse: parseUUID},
		"source":     {Column: "source", Op: "=", Parse: oneOf(models.TransactionSourceManual, models.TransactionSourceImport)},
		"importId":   {Column: "import_id", Op: "=", Parse: parseUUID},
		"dateFrom":   {Column: "date", Op: ">=", Parse: parseDate},
		"dateTo":     {Column: "date", Op: "<", Parse: parseDateExclusive},
		"search":     {Column: "description", Op: "ILIKE", Parse: text},
	},
}

// Budgets maps models.Budget onto the budgets table.
var Budgets = Table[models.Budget]{
	Name:    "budgets",
	Columns: []string{"name", "category_id", "amount", "currency", "period", "start_date", "end_date", "is_active"},
	Values: func(b *models.Budget) []any {
		var end *time.Time
		if b.EndDate != nil && !b.EndDate.IsZero() {
			end = &b.EndDate.Time
		}
		return []any{b.Name, b.CategoryID, b.Amount, b.Currency, b.Period, b.StartDate.Time, end, b.IsActive}
	},
	Scan: func(row pgx.Row) (*models.Budget, error) {
		var b models.Budget
		var owner *uuid.UUID
		var end *time.Time
		err := row.Scan(&b.ID, &owner, &b.Name, &b.CategoryID, &b.Amount, &b.Currency, &b.Period,
			&b.StartDate.Time, &end, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}
		b.Owner = models.OwnerFromColumn(owner)
		if end != nil {
			d := models.NewDate(*end)
			b.EndDate = &d
		}
		return &b, nil
	},
	Sortable: map[string]string{
		"name":      "name",
		"amount":    "amount",
		"startDate": "start_date",
		"createdAt": "created_at",
	},
	DefaultSort: "created_at",
	Filters: map[string]Filter{
		"period":     {Column: "period", Op: "=", Parse: oneOf(models.PeriodWeekly, models.PeriodMonthly, models.PeriodYearly)},
		"categoryId": {Column: "category_id", Op: "=", Parse: parseUUID},
		"isActive":   {Column: "is_active", Op: "=", Parse: parseBool},
		"currency":   {Column: "currency", Op: "=", Parse: currency},
	},
}

// Categories maps models.Category onto the categories table.
var Categories = Table[models.Category]{
	Name:    "categories",
	Columns: []string{"name", "type", "color", "icon"},
	Values: func(c *models.Category) []any {
		return []any{c.Name, c.Type, c.Color, c.Icon}
	},
	Scan: func(row pgx.Row) (*models.Category, error) {
		var c models.Category
		var owner *uuid.UUID
		err := row.Scan(&c.ID, &owner, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		c.Owner = models.OwnerFromColumn(owner)
		return &c, nil
	},
	Sortable: map[string]string{
		"name":      "name",
		"type":      "type",
		"createdAt": "created_at",
	},
	DefaultSort: "name",
	Filters: map[string]Filter{
		"type":   {Column: "type", Op: "=", Parse: oneOf(models.TypeIncome, models.TypeExpense)},
		"search": {Column: "name", Op: "ILIKE", Parse: text},
	},
}

func oneOf(allowed ...string) func(string) (any, error) {
	return func(raw string) (any, error) {
		for _, a := range allowed {
			if raw == a {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func currency(raw string) (any, error) {
	code := models.NormalizeCurrency(raw)
	if !models.IsSupportedCurrency(code) {
		return nil, fmt.Errorf("currency %q is not supported", raw)
	}
	return code, nil
}

func parseUUID(raw string) (any, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("must be a UUID")
	}
	return id, nil
}

func parseDate(raw string) (any, error) {
	return models.ParseDate(raw)
}

// parseDateExclusive makes a bare calendar date include its whole day.
func parseDateExclusive(raw string) (any, error) {
	t, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == len(time.DateOnly) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func parseBool(raw string) (any, error) {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("must be true or false")
	}
	return b, nil
}

func text(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 100 {
		return nil, errors.New("must be at most 100 characters")
	}
	return raw, nil
}

// StatementImports maps models.StatementImport onto statement_imports.
var StatementImports = Table[models.StatementImport]{
	Name:    "statement_imports",
	Columns: []string{"filename", "object_key", "status", "source", "item_count", "error"},
	Values: func(i *models.StatementImport) []any {
		return []any{i.Filename, i.ObjectKey, i.Status, i.Source, i.ItemCount, i.Error}
	},
	Scan: func(row pgx.Row) (*models.StatementImport, error) {
		var i models.StatementImport
		var owner *uuid.UUID
		err := row.Scan(&i.ID, &owner, &i.Filename, &i.ObjectKey, &i.Status, &i.Source, &i.ItemCount, &i.Error,
			&i.CreatedAt, &i.UpdatedAt)
		if err != nil {
			return nil, err
		}
		i.Owner = models.OwnerFromColumn(owner)
		return &i, nil
	},
	Sortable: map[string]string{
		"createdAt": "created_at",
		"filename":  "filename",
		"status":    "status",
	},
	DefaultSort: "created_at",
	Filters: map[string]Filter{
		"status": {Column: "status", Op: "=", Parse: oneOf(models.ImportStatusPending, models.ImportStatusProcessing,
			models.ImportStatusCompleted, models.ImportStatusFailed)},
	},
}
