package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/classify"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/export"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/extract"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/ingest"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/ocr"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/repository"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/semantic"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/textacq"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/validate"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir         = flag.String("dir", "", "directory of tax documents to process (required)")
		year        = flag.Int("year", 0, "tax year the documents belong to (required)")
		out         = flag.String("out", "", "output XLSX path (optional, defaults next to --dir)")
		concurrency = flag.Int("concurrency", 4, "documents processed in parallel")
		skipHidden  = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		reprocess   = flag.Bool("reprocess", false, "overwrite records for already-stored documents")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *year == 0 {
		printError("Error: --year is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), fmt.Sprintf("taxdocs-%d.xlsx", *year))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)
	if err := repository.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	relational := repository.NewPostgres(pool, logger)

	llmClient := openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.Timeout,
	}, logger)

	semStore, err := semantic.NewStore(semantic.Config{
		Path:           cfg.Semantic.Path,
		Dataset:        cfg.Semantic.Dataset,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}, llmClient, logger)
	if err != nil {
		logger.Error("failed to open semantic store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = semStore.Close() }()

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL:  cfg.OCR.ServiceURL,
		Language: cfg.OCR.Language,
		Timeout:  cfg.OCR.Timeout,
	}, logger)
	if err := ocrClient.Health(ctx); err != nil {
		logger.Warn("ocr service not reachable; scanned documents will fail until it is", "error", err)
	}

	acquirer := textacq.NewAcquirer(textacq.Config{
		Pdftoppm:         cfg.OCR.Pdftoppm,
		DPI:              cfg.OCR.DPI,
		DensityThreshold: cfg.Pipeline.DensityThreshold,
	}, ocrClient, logger)

	retry := common.RetryPolicy{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Backoff:     cfg.Pipeline.RetryBackoff,
	}
	processor := pipeline.NewProcessor(
		acquirer,
		classify.NewClassifier(llmClient, cfg.Pipeline.ClassifyThreshold, logger),
		extract.NewExtractor(llmClient, logger),
		validate.NewValidator(logger),
		relational,
		store.NewCoordinator(relational, semStore, logger),
		retry,
		logger,
	)

	batch := ingest.NewBatch(ingest.NewIngestor(relational, logger), processor, *concurrency, logger)
	results, stats, err := batch.Run(ctx, *dir, *year, *skipHidden, *reprocess)
	if err != nil {
		logger.Error("batch run aborted", "error", err)
		os.Exit(1)
	}

	for _, r := range results {
		if r.Err != "" {
			logger.Warn("document failed", "path", r.Path, "error", r.Err)
		}
	}
	logger.Info("batch complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	xlsx, err := export.NewService(relational, logger).ExportYearXLSX(ctx, *year)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("workbook written", "path", *out)
}
