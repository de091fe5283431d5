package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/auth"
	"github.com/fintrack/backend/internal/config"
	"github.com/fintrack/backend/internal/currency"
	"github.com/fintrack/backend/internal/dashboard"
	"github.com/fintrack/backend/internal/handlers"
	"github.com/fintrack/backend/internal/imports"
	"github.com/fintrack/backend/internal/ledger"
	"github.com/fintrack/backend/internal/llm"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/migrations"
	"github.com/fintrack/backend/internal/repository"
	"github.com/fintrack/backend/internal/router"
	"github.com/fintrack/backend/internal/services"
	"github.com/fintrack/backend/internal/statement"
	"github.com/fintrack/backend/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func loadConfig(flags rootFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, nil, codeError(3, "loading config: %s", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, codeError(1, "creating database pool: %s", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, codeError(1, "cannot reach PostgreSQL: %s", err)
	}
	logger.Info("connected to PostgreSQL")
	if err := migrations.Run(ctx, pool); err != nil {
		pool.Close()
		return nil, codeError(1, "migrating: %s", err)
	}
	logger.Info("migrations applied")
	return pool, nil
}

func runMigrate(ctx context.Context, flags rootFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	pool.Close()
	return nil
}

// newExtractor builds the statement service. A provider that cannot be
// configured leaves only the text parser available.
func newExtractor(cfg *config.Config, validator *services.Validator, logger *slog.Logger) *statement.Service {
	provider, err := llm.New(llm.Config{
		Provider: cfg.AIProvider,
		Model:    cfg.AIModel,
		APIKey:   cfg.AIKey(),
		Timeout:  cfg.AITimeout,
	})
	if err != nil {
		logger.Warn("AI provider disabled", "error", err)
		provider = nil
	}
	return statement.NewService(statement.Options{
		Provider:  provider,
		Validator: validator,
		Logger:    logger,
	})
}

func runAnalyze(ctx context.Context, flags rootFlags, path string, out io.Writer) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return codeError(3, "reading statement: %s", err)
	}
	if err := statement.CheckPDF(data); err != nil {
		return codeError(3, "%s: %s", path, err)
	}
	validator, err := services.NewValidator()
	if err != nil {
		return codeError(1, "loading schemas: %s", err)
	}
	res, err := newExtractor(cfg, validator, logger).Analyze(ctx, nil, data)
	if err != nil {
		return codeError(2, "analyzing %s: %s", path, err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runServe(ctx context.Context, flags rootFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	validator, err := services.NewValidator()
	if err != nil {
		return codeError(1, "loading schemas: %s", err)
	}

	// Exchange rates
	rates := currency.NewCache(
		currency.NewRepository(pool),
		currency.NewHTTPProvider(cfg.ExchangeRateAPIURL, cfg.ExchangeRateAPIKey, cfg.RateProviderTimeout),
		currency.Options{TTL: cfg.RateCacheTTL, Logger: logger},
	)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, auth.Options{
		Secret:   []byte(cfg.JWTSecret),
		TTL:      cfg.JWTExpiresIn,
		NoExpiry: cfg.JWTNoExpiry,
	})

	// Statement imports: archive, queue, worker
	extractor := newExtractor(cfg, validator, logger)
	blobs, err := storage.NewS3(ctx, storage.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return codeError(1, "configuring object storage: %s", err)
	}
	importRepo := imports.NewRepository(pool)

	workers := river.NewWorkers()
	river.AddWorker(workers, imports.NewWorker(importRepo, blobs, extractor, authRepo, logger))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.ImportWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return codeError(1, "creating job client: %s", err)
	}
	insertJob := func(ctx context.Context, tx pgx.Tx, args imports.StatementImportArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	importSvc := imports.NewService(importRepo, blobs, extractor, insertJob, logger)

	// Ledger views over the resource tables
	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), rates)

	mux := router.New(auth.NewHandler(authSvc, logger), dashboard.NewHandler(authSvc, logger), authSvc, logger)
	registerV1Routes(mux, v1Handlers{
		Transactions: handlers.NewTransactions(repository.NewStore(pool, repository.Transactions), logger),
		Budgets:      handlers.NewBudgets(repository.NewStore(pool, repository.Budgets), logger),
		Categories:   handlers.NewCategories(repository.NewStore(pool, repository.Categories), logger),
		Rates:        currency.NewHandler(rates, logger),
		Ledger:       ledger.NewHandler(ledgerSvc, logger),
		Imports:      imports.NewHandler(importSvc, logger),
	}, authSvc, validator, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler
	handler := middleware.Chain(mux, middleware.Recover(logger), middleware.RequestLog(logger), corsHandler)

	// The job client outlives the signal context so Stop can drain it.
	if err := riverClient.Start(context.WithoutCancel(ctx)); err != nil {
		return codeError(1, "starting job client: %s", err)
	}

	addr := flags.addr
	if addr == "" {
		addr = net.JoinHostPort("0.0.0.0", cfg.Port)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return codeError(1, "HTTP server failed: %s", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		logger.Error("job client shutdown", "error", err)
	}
	return nil
}
