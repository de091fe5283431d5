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
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

type Budget struct {
	ID         uuid.UUID       `json:"id"`
	Owner      Owner           `json:"owner"`
	Name       string          `json:"name"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Period     string          `json:"period"`
	StartDate  Date            `json:"startDate"`
	EndDate    *Date           `json:"endDate,omitempty"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with b.
func (b *Budget) Clone() *Budget {
	c := *b
	c.CategoryID = cloneUUID(b.CategoryID)
	if b.EndDate != nil {
		end := *b.EndDate
		c.EndDate = &end
	}
	return &c
}

func (b *Budget) Validate() error {
	b.Name = strings.TrimSpace(b.Name)
	b.Currency = NormalizeCurrency(b.Currency)

	var details []string
	if b.Name == "" || len(b.Name) > 100 {
		details = append(details, "name must be 1-100 characters")
	}
	if !b.Amount.IsPositive() {
		details = append(details, "amount must be greater than 0")
	}
	if !IsSupportedCurrency(b.Currency) {
		details = append(details, fmt.Sprintf("currency %q is not supported", b.Currency))
	}
	switch b.Period {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
	default:
		details = append(details, "period must be weekly, monthly or yearly")
	}
	if b.StartDate.IsZero() {
		details = append(details, "startDate is required")
	}
	if b.EndDate != nil && !b.EndDate.IsZero() && !b.EndDate.After(b.StartDate.Time) {
		details = append(details, "endDate must be after startDate")
	}
	if len(details) > 0 {
		return common.NewValidationError(details...)
	}
	b.Amount = b.Amount.Round(2)
	return nil
}

// Window returns the [start, end) period of the budget that contains now.
// Before the start date it is the first period; the end is clamped to EndDate.
func (b *Budget) Window(now time.Time) (time.Time, time.Time) {
	start := Day(b.StartDate.Time)
	next := func(t time.Time) time.Time {
		switch b.Period {
		case PeriodWeekly:
			return t.AddDate(0, 0, 7)
		case PeriodYearly:
			return t.AddDate(1, 0, 0)
		default:
			return t.AddDate(0, 1, 0)
		}
	}
	end := next(start)
	for !now.Before(end) {
		start, end = end, next(end)
	}
	if b.EndDate != nil && !b.EndDate.IsZero() && b.EndDate.Before(end) {
		end = b.EndDate.Time
	}
	return start, end
}
