// Package imports runs statement imports: the upload is archived, queued,
// and turned into transactions by a background worker.
package imports

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
	"github.com/fintrack/backend/internal/statement"
	"github.com/fintrack/backend/internal/storage"
)

// InsertJobTxFunc enqueues a statement import job within tx. Provided by
// main as a closure over river.Client.InsertTx.
type InsertJobTxFunc func(ctx context.Context, tx pgx.Tx, args StatementImportArgs) error

type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, owner models.Owner, imp *models.StatementImport) (*models.StatementImport, error)
	Get(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.StatementImport, error)
	List(ctx context.Context, owner models.Owner, q repository.ListQuery) (*repository.Page[models.StatementImport], error)
}

type Service struct {
	repo      Store
	blobs     storage.BlobStore
	analyzer  Analyzer
	insertJob InsertJobTxFunc
	now       func() time.Time
	log       *slog.Logger
}

func NewService(repo Store, blobs storage.BlobStore, analyzer Analyzer, insertJob InsertJobTxFunc, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, blobs: blobs, analyzer: analyzer, insertJob: insertJob, now: time.Now, log: log}
}

// Analyze runs the extractor synchronously without storing anything.
func (s *Service) Analyze(ctx context.Context, acc *models.Account, pdf []byte) (*statement.Result, error) {
	if err := statement.CheckPDF(pdf); err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, acc, pdf)
}

// Create archives pdf and queues its import. The row and the job are
// inserted in one transaction, so a queued job always has its row.
func (s *Service) Create(ctx context.Context, owner models.Owner, filename string, pdf []byte) (*models.StatementImport, error) {
	if err := statement.CheckPDF(pdf); err != nil {
		return nil, err
	}
	key := storage.StatementKey(owner, s.now())
	if err := s.blobs.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return nil, fmt.Errorf("archive statement: %w", err)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	imp, err := s.repo.CreateTx(ctx, tx, owner, &models.StatementImport{
		Filename:  cleanFilename(filename),
		ObjectKey: key,
		Status:    models.ImportStatusPending,
	})
	if err != nil {
		return nil, err
	}
	if err := s.insertJob(ctx, tx, StatementImportArgs{ImportID: imp.ID}); err != nil {
		return nil, fmt.Errorf("enqueue import: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("statement import queued", "import_id", imp.ID, "owner", owner.String(), "bytes", len(pdf))
	return imp, nil
}

func (s *Service) Get(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.StatementImport, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *Service) List(ctx context.Context, owner models.Owner, q repository.ListQuery) (*repository.Page[models.StatementImport], error) {
	return s.repo.List(ctx, owner, q)
}

// DownloadURL returns a presigned link to the archived PDF.
func (s *Service) DownloadURL(ctx context.Context, owner models.Owner, id uuid.UUID) (string, error) {
	imp, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, imp.ObjectKey, storage.DownloadTTL)
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return "statement.pdf"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
