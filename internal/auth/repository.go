package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name, preferred_currency,
	timezone, is_active, ai_api_key, password_changed_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ AccountStore = (*Repository)(nil)

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.PreferredCurrency, &a.Timezone, &a.IsActive, &a.AIAPIKey, &a.PasswordChangedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, repository.MapErr(err)
	}
	return &a, nil
}

// Create inserts a new account and fills in its generated fields.
func (r *Repository) Create(ctx context.Context, a *models.Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, email, password_hash, first_name, last_name, preferred_currency, timezone)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)
		RETURNING id, email, is_active, created_at, updated_at
	`, a.Username, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.PreferredCurrency, a.Timezone).
		Scan(&a.ID, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: email or username already registered", common.ErrConflict)
		}
		return repository.MapErr(err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByLogin looks an account up by email (case-insensitive) or username.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE lower(email) = $1 OR username = $2
		LIMIT 1
	`, strings.ToLower(login), login))
}

func (r *Repository) UpdateProfile(ctx context.Context, a *models.Account) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET first_name = $2, last_name = $3, preferred_currency = $4, timezone = $5, ai_api_key = $6, updated_at = now()
		WHERE id = $1
	`, a.ID, a.FirstName, a.LastName, a.PreferredCurrency, a.Timezone, a.AIAPIKey)
	if err != nil {
		return repository.MapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, password_changed_at = $3, updated_at = now()
		WHERE id = $1
	`, id, hash, changedAt)
	if err != nil {
		return repository.MapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return repository.MapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
