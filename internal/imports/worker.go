package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/statement"
	"github.com/fintrack/backend/internal/storage"
)

type StatementImportArgs struct {
	ImportID uuid.UUID `json:"import_id"`
}

func (StatementImportArgs) Kind() string { return "statement_import" }

// JobStore is what the worker needs to move an import through its states.
type JobStore interface {
	Load(ctx context.Context, id uuid.UUID) (*models.StatementImport, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, imp *models.StatementImport, source string, txns []*models.Transaction) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type Analyzer interface {
	Analyze(ctx context.Context, acc *models.Account, pdf []byte) (*statement.Result, error)
}

type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type Worker struct {
	river.WorkerDefaults[StatementImportArgs]
	store    JobStore
	blobs    storage.BlobStore
	analyzer Analyzer
	accounts AccountLookup
	log      *slog.Logger
}

// NewWorker builds the import worker. accounts may be nil, in which case
// the server's AI credentials are always used.
func NewWorker(store JobStore, blobs storage.BlobStore, analyzer Analyzer, accounts AccountLookup, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{store: store, blobs: blobs, analyzer: analyzer, accounts: accounts, log: log}
}

func (w *Worker) Timeout(*river.Job[StatementImportArgs]) time.Duration { return 3 * time.Minute }

func (w *Worker) Work(ctx context.Context, job *river.Job[StatementImportArgs]) error {
	id := job.Args.ImportID
	imp, err := w.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return river.JobCancel(fmt.Errorf("import %s no longer exists", id))
		}
		return fmt.Errorf("load import: %w", err)
	}
	if imp.Status == models.ImportStatusCompleted {
		return nil
	}
	if err := w.store.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	pdf, err := w.blobs.Get(ctx, imp.ObjectKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return w.fail(ctx, id, "archived statement is missing")
		}
		return fmt.Errorf("load archived statement: %w", err)
	}

	res, err := w.analyzer.Analyze(ctx, w.account(ctx, imp.Owner), pdf)
	if err != nil {
		return w.fail(ctx, id, err.Error())
	}

	txns := make([]*models.Transaction, 0, len(res.Items))
	for i, item := range res.Items {
		t, err := item.Transaction(&imp.ID)
		if err != nil {
			return w.fail(ctx, id, fmt.Sprintf("item %d: %v", i+1, err))
		}
		txns = append(txns, t)
	}
	if err := w.store.Complete(ctx, imp, res.Source, txns); err != nil {
		return fmt.Errorf("store imported transactions: %w", err)
	}
	w.log.Info("statement imported", "import_id", id, "source", res.Source, "items", len(txns))
	return nil
}

func (w *Worker) account(ctx context.Context, owner models.Owner) *models.Account {
	id, ok := owner.AccountID()
	if !ok || w.accounts == nil {
		return nil
	}
	acc, err := w.accounts.GetByID(ctx, id)
	if err != nil {
		w.log.Warn("import owner lookup failed", "account_id", id, "error", err)
		return nil
	}
	return acc
}

// fail records reason on the import and cancels the job; analysis failures
// are not retried.
func (w *Worker) fail(ctx context.Context, id uuid.UUID, reason string) error {
	if markErr := w.store.MarkFailed(ctx, id, reason); markErr != nil {
		return fmt.Errorf("import failed (%s) and could not be marked failed: %w", reason, markErr)
	}
	w.log.Warn("statement import failed", "import_id", id, "reason", reason)
	return river.JobCancel(errors.New(reason))
}
