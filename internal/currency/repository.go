package currency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

// Repository stores rate observations in exchange_rates.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Latest(ctx context.Context, from, to string, dayStart, dayEnd time.Time) (*models.ExchangeRate, error) {
	var rec models.ExchangeRate
	err := r.pool.QueryRow(ctx, `
		SELECT id, from_currency, to_currency, rate, date, source, is_active, created_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND is_active
		  AND date >= $3 AND date < $4
		ORDER BY date DESC, created_at DESC
		LIMIT 1
	`, from, to, dayStart, dayEnd).Scan(&rec.ID, &rec.FromCurrency, &rec.ToCurrency, &rec.Rate,
		&rec.Date, &rec.Source, &rec.IsActive, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Save inserts a new observation; existing rows are never rewritten.
func (r *Repository) Save(ctx context.Context, rec *models.ExchangeRate) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, date, source, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, rec.FromCurrency, rec.ToCurrency, rec.Rate, rec.Date, rec.Source, rec.IsActive).
		Scan(&rec.ID, &rec.CreatedAt)
}
