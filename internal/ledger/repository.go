package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

// Total is the sum of one owner's transactions of a type, in one currency,
// on one UTC day.
type Total struct {
	Currency string
	Type     string
	Day      time.Time
	Amount   decimal.Decimal
	Count    int
}

type Repository struct {
	db      repository.DB
	budgets *repository.Store[models.Budget]
}

func NewRepository(db repository.DB) *Repository {
	return &Repository{db: db, budgets: repository.NewStore(db, repository.Budgets)}
}

var _ Source = (*Repository)(nil)

// Totals groups the owner's transactions in [from, to). Nil bounds are open.
func (r *Repository) Totals(ctx context.Context, owner models.Owner, from, to *time.Time) ([]Total, error) {
	return r.totals(ctx, `
		SELECT currency, type, date_trunc('day', date AT TIME ZONE 'UTC') AS day, sum(amount), count(*)
		FROM transactions
		WHERE owner_id IS NOT DISTINCT FROM $1::uuid
		  AND ($2::timestamptz IS NULL OR date >= $2)
		  AND ($3::timestamptz IS NULL OR date < $3)
		GROUP BY currency, type, day
		ORDER BY day, currency, type
	`, owner.Arg(), from, to)
}

// Spent groups the owner's expenses in [from, to), restricted to
// categoryID when it is set.
func (r *Repository) Spent(ctx context.Context, owner models.Owner, categoryID *uuid.UUID, from, to time.Time) ([]Total, error) {
	return r.totals(ctx, `
		SELECT currency, type, date_trunc('day', date AT TIME ZONE 'UTC') AS day, sum(amount), count(*)
		FROM transactions
		WHERE owner_id IS NOT DISTINCT FROM $1::uuid
		  AND type = 'expense'
		  AND date >= $2 AND date < $3
		  AND ($4::uuid IS NULL OR category_id = $4)
		GROUP BY currency, type, day
		ORDER BY day, currency
	`, owner.Arg(), from, to, categoryID)
}

func (r *Repository) Budget(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.Budget, error) {
	return r.budgets.Get(ctx, owner, id)
}

func (r *Repository) totals(ctx context.Context, sql string, args ...any) ([]Total, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapErr(err)
	}
	defer rows.Close()

	var out []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Currency, &t.Type, &t.Day, &t.Amount, &t.Count); err != nil {
			return nil, repository.MapErr(err)
		}
		t.Day = models.Day(t.Day)
		out = append(out, t)
	}
	return out, repository.MapErr(rows.Err())
}
