// docbatch re-drives stuck documents. It lists rows in the requested states
// and runs each through the pipeline again, which is safe because processing
// is idempotent; ERROR rows are lifted back to PENDING first so they get a
// real retry. Typical uses: draining a WAITING_FOR_PAIR backlog after its
// counterparts finally arrive, or retrying ERROR rows after an OCR binary or
// storage outage is fixed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/cases"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/export"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/extract"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pairing"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pipeline"
	repo "github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/storage"
)

func main() {
	var (
		statusList = flag.String("status", "PENDING,WAITING_FOR_PAIR", "comma-separated states to re-drive (PENDING, WAITING_FOR_PAIR, ERROR)")
		docID      = flag.String("id", "", "process a single document id instead of listing by status")
		limit      = flag.Int("limit", 0, "maximum number of documents to process, 0 for all")
		out        = flag.String("out", "", "also write the XLSX document report to this path")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	statuses, err := parseStatuses(*statusList)
	if err != nil {
		logger.Error("invalid --status value", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store, err := storage.NewLocalStore(cfg.Storage.LocalDir)
	if err != nil {
		logger.Error("failed to open local storage", "error", err)
		os.Exit(1)
	}
	var st storage.Store = store
	if cfg.Storage.Backend == "minio" {
		ms, err := storage.NewMinioStore(cfg.Storage)
		if err != nil {
			logger.Error("failed to open minio storage", "error", err)
			os.Exit(1)
		}
		st = ms
	}

	brands, err := parse.LoadBrandTable()
	if err != nil {
		logger.Error("failed to load brand table", "error", err)
		os.Exit(1)
	}

	docsRepo := repo.NewPostgresDocumentRepository(pool, logger)
	casesRepo := repo.NewPostgresCaseRepository(pool, logger)
	attachRepo := repo.NewPostgresAttachmentRepository(pool, logger)

	processor := pipeline.NewProcessor(
		extract.NewExtractor(cfg.Extract, logger),
		parse.NewCaseOrderParser(logger),
		parse.NewCertificateParser(brands, logger),
		pairing.NewDetector(docsRepo, cfg.Pairing.Window, logger),
		cases.NewCreator(casesRepo, attachRepo, st, logger),
		docsRepo,
		st,
		logger,
	)

	var ids []uuid.UUID
	if *docID != "" {
		id, err := uuid.Parse(*docID)
		if err != nil {
			logger.Error("invalid --id value", "error", err)
			os.Exit(1)
		}
		ids = []uuid.UUID{id}
	} else {
		docs, err := docsRepo.ListByStatus(ctx, statuses, *limit)
		if err != nil {
			logger.Error("failed to list documents", "error", err)
			os.Exit(1)
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	logger.Info("re-driving documents", "count", len(ids), "statuses", *statusList)

	processed, failures := 0, 0
	for _, id := range ids {
		res, err := processor.Reprocess(ctx, id)
		if err != nil {
			logger.Error("processing failed", "document_id", id, "error", err)
			failures++
			continue
		}
		logger.Info("document processed", "document_id", id, "status", res.Status)
		processed++
	}

	if *out != "" {
		xlsx, err := export.NewService(docsRepo, logger).DocumentsXLSX(ctx)
		if err != nil {
			logger.Error("failed to build report", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsx, 0644); err != nil {
			logger.Error("failed to write report", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("report written", "path", *out)
	}

	fmt.Printf("Done: %d processed, %d failures\n", processed, failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func parseStatuses(list string) ([]constants.DocStatus, error) {
	var out []constants.DocStatus
	for _, raw := range strings.Split(list, ",") {
		s := constants.DocStatus(strings.ToUpper(strings.TrimSpace(raw)))
		switch s {
		case constants.StatusPending, constants.StatusWaitingForPair, constants.StatusError,
			constants.StatusCompleted, constants.StatusDuplicate:
			out = append(out, s)
		case "":
		default:
			return nil, fmt.Errorf("unknown status %q", raw)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no statuses given")
	}
	return out, nil
}
