package statement

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
)

// Item is one expense or income line extracted from a statement.
type Item struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Type         string  `json:"type"`
	Category     *string `json:"category,omitempty"`
	Installments *string `json:"installments,omitempty"`
}

// Transaction converts the item into an import-sourced transaction.
func (it Item) Transaction(importID *uuid.UUID) (*models.Transaction, error) {
	d, err := time.Parse(time.DateOnly, it.Date)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", it.Description, err)
	}
	t := &models.Transaction{
		Type:        it.Type,
		Amount:      decimal.NewFromFloat(it.Amount),
		Currency:    it.Currency,
		Description: truncateRunes(it.Description, 200),
		Date:        models.NewDate(d),
		Source:      models.TransactionSourceImport,
		ImportID:    importID,
	}
	if it.Installments != nil && *it.Installments != "" {
		t.Notes = "installment " + *it.Installments
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ItemsFromRows keeps the rows that move money for the card holder:
// purchases, refunds and charges. Balances and card payments are dropped.
// Undated charges take the latest transaction date seen before them.
func ItemsFromRows(rows []Row) []Item {
	var items []Item
	var lastDate string
	for _, r := range rows {
		if r.Kind != KindTransaction && r.Kind != KindCharge {
			continue
		}
		date := isoDate(r.Date)
		if date == "" {
			date = lastDate
		}
		if date == "" {
			continue
		}
		if r.Kind == KindTransaction {
			lastDate = date
		}

		amount, cur := r.AmountUYU, models.CurrencyUYU
		if amount == 0 && r.AmountUSD != nil {
			amount, cur = *r.AmountUSD, models.CurrencyUSD
		}
		if amount == 0 {
			continue
		}
		typ := models.TypeExpense
		if amount < 0 {
			typ = models.TypeIncome
		}
		it := Item{
			Date:        date,
			Description: r.Description,
			Amount:      math.Abs(amount),
			Currency:    cur,
			Type:        typ,
		}
		if r.Installments != "" {
			inst := r.Installments
			it.Installments = &inst
		}
		items = append(items, it)
	}
	return items
}

// isoDate turns DD/MM/YY into YYYY-MM-DD, or "" when it is not a valid date.
func isoDate(ddmmyy string) string {
	t, err := time.Parse("02/01/06", ddmmyy)
	if err != nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
