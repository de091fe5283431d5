// Package ledger computes owner-scoped money summaries. Amounts in other
// currencies are converted with the rate of the day they were booked.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
)

type Source interface {
	Totals(ctx context.Context, owner models.Owner, from, to *time.Time) ([]Total, error)
	Spent(ctx context.Context, owner models.Owner, categoryID *uuid.UUID, from, to time.Time) ([]Total, error)
	Budget(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.Budget, error)
}

// Converter is satisfied by *currency.Cache.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string, date time.Time) float64
}

type CurrencyTotal struct {
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Count    int             `json:"count"`
}

type Summary struct {
	Currency         string          `json:"currency"`
	Income           decimal.Decimal `json:"income"`
	Expense          decimal.Decimal `json:"expense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	// ByCurrency holds unconverted totals per booked currency.
	ByCurrency []CurrencyTotal `json:"byCurrency"`
}

type BudgetProgress struct {
	BudgetID         uuid.UUID       `json:"budgetId"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	Period           string          `json:"period"`
	WindowStart      time.Time       `json:"windowStart"`
	WindowEnd        time.Time       `json:"windowEnd"`
	Amount           decimal.Decimal `json:"amount"`
	Spent            decimal.Decimal `json:"spent"`
	Remaining        decimal.Decimal `json:"remaining"`
	PercentUsed      float64         `json:"percentUsed"`
	Exceeded         bool            `json:"exceeded"`
	TransactionCount int             `json:"transactionCount"`
}

type Service struct {
	src Source
	fx  Converter
	now func() time.Time
}

func NewService(src Source, fx Converter) *Service {
	return &Service{src: src, fx: fx, now: time.Now}
}

// Summary totals the owner's transactions in [from, to) in currency.
func (s *Service) Summary(ctx context.Context, owner models.Owner, currency string, from, to *time.Time) (*Summary, error) {
	rows, err := s.src.Totals(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Currency: currency, ByCurrency: []CurrencyTotal{}}
	per := map[string]*CurrencyTotal{}
	for _, row := range rows {
		ct, ok := per[row.Currency]
		if !ok {
			ct = &CurrencyTotal{Currency: row.Currency}
			per[row.Currency] = ct
		}
		converted := s.convert(ctx, row.Amount, row.Currency, currency, row.Day)
		switch row.Type {
		case models.TypeIncome:
			sum.Income = sum.Income.Add(converted)
			ct.Income = ct.Income.Add(row.Amount)
		case models.TypeExpense:
			sum.Expense = sum.Expense.Add(converted)
			ct.Expense = ct.Expense.Add(row.Amount)
		}
		ct.Count += row.Count
		sum.TransactionCount += row.Count
	}

	sum.Income = sum.Income.Round(2)
	sum.Expense = sum.Expense.Round(2)
	sum.Balance = sum.Income.Sub(sum.Expense)
	for _, ct := range per {
		sum.ByCurrency = append(sum.ByCurrency, *ct)
	}
	sort.Slice(sum.ByCurrency, func(i, j int) bool { return sum.ByCurrency[i].Currency < sum.ByCurrency[j].Currency })
	return sum, nil
}

// BudgetProgress reports spending against budget id in its current window.
func (s *Service) BudgetProgress(ctx context.Context, owner models.Owner, id uuid.UUID) (*BudgetProgress, error) {
	b, err := s.src.Budget(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	start, end := b.Window(s.now())
	rows, err := s.src.Spent(ctx, owner, b.CategoryID, start, end)
	if err != nil {
		return nil, err
	}

	p := &BudgetProgress{
		BudgetID:    b.ID,
		Name:        b.Name,
		Currency:    b.Currency,
		Period:      b.Period,
		WindowStart: start,
		WindowEnd:   end,
		Amount:      b.Amount,
	}
	for _, row := range rows {
		p.Spent = p.Spent.Add(s.convert(ctx, row.Amount, row.Currency, b.Currency, row.Day))
		p.TransactionCount += row.Count
	}
	p.Spent = p.Spent.Round(2)
	p.Remaining = b.Amount.Sub(p.Spent)
	p.Exceeded = p.Spent.GreaterThan(b.Amount)
	if b.Amount.IsPositive() {
		p.PercentUsed = p.Spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return p, nil
}

func (s *Service) convert(ctx context.Context, amount decimal.Decimal, from, to string, day time.Time) decimal.Decimal {
	if from == to {
		return amount
	}
	return decimal.NewFromFloat(s.fx.Convert(ctx, amount.InexactFloat64(), from, to, day))
}
