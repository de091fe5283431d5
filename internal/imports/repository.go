package imports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

type Repository struct {
	pool  *pgxpool.Pool
	store *repository.Store[models.StatementImport]
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, store: repository.NewStore(pool, repository.StatementImports)}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	return tx, repository.MapErr(err)
}

// CreateTx inserts a pending import inside tx.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, owner models.Owner, imp *models.StatementImport) (*models.StatementImport, error) {
	return repository.NewStore(tx, repository.StatementImports).Create(ctx, owner, imp)
}

func (r *Repository) Get(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.StatementImport, error) {
	return r.store.Get(ctx, owner, id)
}

func (r *Repository) List(ctx context.Context, owner models.Owner, q repository.ListQuery) (*repository.Page[models.StatementImport], error) {
	return r.store.List(ctx, owner, q)
}

// Load reads an import by id regardless of owner. Only the worker uses it;
// the job arguments come from a row the owner created.
func (r *Repository) Load(ctx context.Context, id uuid.UUID) (*models.StatementImport, error) {
	var i models.StatementImport
	var owner *uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, filename, object_key, status, source, item_count, error, created_at, updated_at
		FROM statement_imports WHERE id = $1
	`, id).Scan(&i.ID, &owner, &i.Filename, &i.ObjectKey, &i.Status, &i.Source, &i.ItemCount, &i.Error,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, repository.MapErr(err)
	}
	i.Owner = models.OwnerFromColumn(owner)
	return &i, nil
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE statement_imports SET status = 'processing', error = NULL, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// Complete stores txns as the import owner's transactions and marks the
// import completed, atomically.
func (r *Repository) Complete(ctx context.Context, imp *models.StatementImport, source string, txns []*models.Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	store := repository.NewStore(tx, repository.Transactions)
	for _, t := range txns {
		if _, err := store.Create(ctx, imp.Owner, t); err != nil {
			return fmt.Errorf("insert imported transaction %q: %w", t.Description, err)
		}
	}
	_, err = tx.Exec(ctx, `
		UPDATE statement_imports
		SET status = 'completed', source = $2, item_count = $3, error = NULL, updated_at = now()
		WHERE id = $1
	`, imp.ID, source, len(txns))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE statement_imports SET status = 'failed', error = $2, updated_at = now() WHERE id = $1
	`, id, reason)
	return err
}
