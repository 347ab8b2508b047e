package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/queryguard/queryguard/internal/api"
	"github.com/queryguard/queryguard/internal/audit"
	auditpostgres "github.com/queryguard/queryguard/internal/audit/postgres"
	audits3 "github.com/queryguard/queryguard/internal/audit/s3"
	"github.com/queryguard/queryguard/internal/auth"
	"github.com/queryguard/queryguard/internal/config"
	"github.com/queryguard/queryguard/internal/explain"
	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/pipeline"
	"github.com/queryguard/queryguard/internal/policy"
	"github.com/queryguard/queryguard/internal/preview"
	"github.com/queryguard/queryguard/internal/schema"
	storeduckdb "github.com/queryguard/queryguard/internal/store/duckdb"
	storepostgres "github.com/queryguard/queryguard/internal/store/postgres"
	"github.com/queryguard/queryguard/internal/store/sqlrunner"
)

func main() {
	cfg, err := config.LoadFromEnv("queryguard-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to open data store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	runner := sqlrunner.New(db)

	tablePolicy := policy.Default()
	if cfg.Policy.Spec != "" {
		tablePolicy, err = policy.Parse(cfg.Policy.Spec)
		if err != nil {
			logger.Error("failed to parse policy spec", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var recorder audit.Recorder
	switch cfg.Audit.Backend {
	case "postgres":
		recorder = auditpostgres.NewRecorder(db)
	case "s3":
		recorder, err = audits3.NewRecorder(audits3.Config{
			Endpoint:        cfg.Audit.S3Endpoint,
			Region:          cfg.Audit.S3Region,
			Bucket:          cfg.Audit.S3Bucket,
			AccessKeyID:     cfg.Audit.S3AccessKeyID,
			SecretAccessKey: cfg.Audit.S3SecretKey,
			UseSSL:          cfg.Audit.S3UseSSL,
			Prefix:          cfg.Audit.S3Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize audit recorder", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		recorder = audit.Nop{}
	}

	var explainer explain.Explainer
	if cfg.AI.ExplainEnabled {
		explainer, err = explain.NewOpenAIExplainer(explain.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize explainer", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var translator nl2sql.Translator
	if cfg.AI.TranslateEnabled {
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize translator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	previews := preview.NewMemoryStore(cfg.Preview.TTL, nil)
	sweeper := &preview.Sweeper{
		Store:    previews,
		Interval: cfg.Preview.SweepInterval,
		Logger:   logger,
	}
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("preview sweeper stopped", slog.Any("error", err))
		}
	}()

	service := &pipeline.Service{
		Policy:         tablePolicy,
		Previews:       previews,
		Runner:         runner,
		Recorder:       recorder,
		Explainer:      explainer,
		Logger:         logger,
		ExplainTimeout: cfg.AI.Timeout,
	}

	deps := api.Dependencies{
		Logger:   logger,
		Pipeline: service,
		Schema: &schema.Provider{
			Runner:     runner,
			Tables:     cfg.Schema.Tables,
			SampleRows: cfg.Schema.SampleRows,
		},
		Translator: translator,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseConfig(cfg),
			db.PingContext,
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openDatabase(cfg config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "duckdb":
		return storeduckdb.Open(context.Background(), storeduckdb.Config{Path: cfg.Database.DuckDBPath})
	default:
		return storepostgres.Open(context.Background(), storepostgres.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
	}
}
