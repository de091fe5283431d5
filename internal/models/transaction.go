package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/common"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	TransactionSourceManual = "manual"
	TransactionSourceImport = "import"
)

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Owner       Owner           `json:"owner"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"categoryId,omitempty"`
	Date        Date            `json:"date"`
	Notes       string          `json:"notes"`
	Source      string          `json:"source"`
	ImportID    *uuid.UUID      `json:"importId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Validate normalizes the transaction and reports every rule it breaks.
func (t *Transaction) Validate() error {
	t.Currency = NormalizeCurrency(t.Currency)
	t.Description = strings.TrimSpace(t.Description)
	if t.Source == "" {
		t.Source = TransactionSourceManual
	}

	var details []string
	if t.Type != TypeIncome && t.Type != TypeExpense {
		details = append(details, fmt.Sprintf("type must be %q or %q", TypeIncome, TypeExpense))
	}
	if !t.Amount.IsPositive() {
		details = append(details, "amount must be greater than 0")
	}
	if !IsSupportedCurrency(t.Currency) {
		details = append(details, fmt.Sprintf("currency %q is not supported", t.Currency))
	}
	if t.Description == "" || len(t.Description) > 200 {
		details = append(details, "description must be 1-200 characters")
	}
	if t.Date.IsZero() {
		details = append(details, "date is required")
	}
	if t.Source != TransactionSourceManual && t.Source != TransactionSourceImport {
		details = append(details, fmt.Sprintf("source %q is not valid", t.Source))
	}
	if len(details) > 0 {
		return common.NewValidationError(details...)
	}
	t.Amount = t.Amount.Round(2)
	return nil
}

// Clone returns a copy that shares no pointers with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.CategoryID = cloneUUID(t.CategoryID)
	c.ImportID = cloneUUID(t.ImportID)
	return &c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// Signed returns the amount as a balance delta: negative for expenses.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
