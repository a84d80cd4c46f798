package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/ocr"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/textacq"
)

// Acquires text from a single file and prints it. Useful for checking the
// OCR service and the density threshold against a real document before a
// batch run.
func main() {
	file := flag.String("file", "", "pdf or image file to acquire (required)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	ext := constants.NormalizeExt(filepath.Ext(*file))
	media := constants.MapExtToMedia(ext)
	if media == "" {
		fmt.Fprintf(os.Stderr, "Error: unsupported extension %q\n", ext)
		os.Exit(1)
	}

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL:  cfg.OCR.ServiceURL,
		Language: cfg.OCR.Language,
		Timeout:  cfg.OCR.Timeout,
	}, logger)
	if err := ocrClient.Health(ctx); err != nil {
		logger.Warn("ocr service not reachable", "error", err)
	}

	acquirer := textacq.NewAcquirer(textacq.Config{
		Pdftoppm:         cfg.OCR.Pdftoppm,
		DPI:              cfg.OCR.DPI,
		DensityThreshold: cfg.Pipeline.DensityThreshold,
	}, ocrClient, logger)

	res, err := acquirer.Acquire(ctx, *file, media)
	if err != nil {
		logger.Error("acquisition failed", "error", err)
		os.Exit(1)
	}

	logger.Info("acquired",
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"warnings", res.Warnings,
	)
	fmt.Println(res.Text)
}
