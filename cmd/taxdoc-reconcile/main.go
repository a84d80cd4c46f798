package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/repository"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/semantic"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
)

func main() {
	var (
		limit = flag.Int("limit", 100, "max pending documents to index per run")
		query = flag.String("search", "", "run a similarity search instead of reconciling")
		topK  = flag.Int("k", 5, "number of search hits to return")
		hash  = flag.String("hash", "", "look up a document by hex content hash instead of reconciling")
	)
	flag.Parse()

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

	coord := store.NewCoordinator(relational, semStore, logger)

	if *hash != "" {
		sum, err := hex.DecodeString(*hash)
		if err != nil {
			logger.Error("invalid content hash", "error", err)
			os.Exit(1)
		}
		doc, rec, err := coord.ReadBack(ctx, sum)
		if err != nil {
			logger.Error("lookup failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("document %s  status=%s  path=%s\n", doc.ID, doc.Status, doc.SourcePath)
		if rec == nil {
			fmt.Println("no extraction record")
			return
		}
		fmt.Printf("record %s  form=%s  validation=%s  warnings=%d\n",
			rec.ID, rec.FormType, rec.ValidationStatus, len(rec.Warnings))
		return
	}

	if *query != "" {
		hits, err := coord.Search(ctx, *query, *topK)
		if err != nil {
			logger.Error("search failed", "error", err)
			os.Exit(1)
		}
		for i, h := range hits {
			fmt.Printf("%d. [%s %d] score=%.4f %s\n", i+1, h.FormType, h.TaxYear, h.Score, h.Summary)
		}
		return
	}

	indexed, err := coord.Reconcile(ctx, *limit)
	if err != nil {
		logger.Error("reconcile failed", "indexed", indexed, "error", err)
		os.Exit(1)
	}
	logger.Info("reconcile complete", "indexed", indexed)
}
