package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/db"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/async"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/cases"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/export"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/extract"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pairing"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pipeline"
	repo "github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/server"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/storage"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/tenant"
)

func main() {
	cfg := common.LoadConfig()

	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.HealthCheck(ctx, pool, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := db.Apply(ctx, pool, logger); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	brands, err := parse.LoadBrandTable()
	if err != nil {
		logger.Error("failed to load brand table", "error", err)
		os.Exit(1)
	}

	docsRepo := repo.NewPostgresDocumentRepository(pool, logger)
	casesRepo := repo.NewPostgresCaseRepository(pool, logger)
	attachRepo := repo.NewPostgresAttachmentRepository(pool, logger)

	extractor := extract.NewExtractor(cfg.Extract, logger)
	orderParser := parse.NewCaseOrderParser(logger)
	certParser := parse.NewCertificateParser(brands, logger)
	detector := pairing.NewDetector(docsRepo, cfg.Pairing.Window, logger)
	creator := cases.NewCreator(casesRepo, attachRepo, store, logger)
	processor := pipeline.NewProcessor(extractor, orderParser, certParser, detector, creator, docsRepo, store, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
	)

	exporter := export.NewService(docsRepo, logger)
	resolver := tenant.NewStaticResolver(cfg.Tenant.Keys)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	srv := server.New(processor, queue, docsRepo, exporter, resolver, logger)
	srv.Routes(engine)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case "minio":
		ms, err := storage.NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("using minio storage", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
		return ms, nil
	default:
		ls, err := storage.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using local storage", "dir", cfg.LocalDir)
		return ls, nil
	}
}
