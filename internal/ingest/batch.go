package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

// DocumentProcessor runs one ingested document through the pipeline.
// Satisfied by pipeline.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *entity.Document, reprocess bool) (*entity.ExtractionRecord, error)
}

// FileResult is the per-file outcome of a batch run.
type FileResult struct {
	Path             string
	DocumentID       string
	Deduplicated     bool
	FormType         constants.FormType
	ValidationStatus constants.ValidationStatus
	Err              string
}

// DirStats aggregates a batch run.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Batch walks a directory and pushes every matching file through the
// pipeline with bounded concurrency. Each document still runs its own
// stages sequentially; only distinct documents overlap.
type Batch struct {
	ingestor    *Ingestor
	processor   DocumentProcessor
	concurrency int
	logger      *slog.Logger
}

func NewBatch(ingestor *Ingestor, processor DocumentProcessor, concurrency int, logger *slog.Logger) *Batch {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		ingestor:    ingestor,
		processor:   processor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run ingests and processes every supported file under root. Per-file
// failures are reported in the results, never abort the batch; only a
// cancelled context stops the walk early.
func (b *Batch) Run(ctx context.Context, root string, taxYear int, skipHidden, reprocess bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var stats DirStats
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			b.logger.Warn("batch.walk_error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	results := make([]FileResult, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for idx, path := range paths {
		g.Go(func() error {
			res := b.runOne(gctx, path, taxYear, reprocess)
			mu.Lock()
			results[idx] = res
			switch {
			case res.Err != "":
				stats.Failed++
			default:
				stats.Succeeded++
				if res.Deduplicated {
					stats.Deduplicated++
				}
			}
			mu.Unlock()
			// Cancellation is the only error that stops the group.
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

func (b *Batch) runOne(ctx context.Context, path string, taxYear int, reprocess bool) FileResult {
	res := FileResult{Path: path}

	doc, created, err := b.ingestor.IngestPath(ctx, path, taxYear)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.DocumentID = doc.ID.String()
	res.Deduplicated = !created

	// An already-stored document is immutable unless explicitly reprocessed.
	if !created && doc.Status == constants.StatusStored && !reprocess {
		return res
	}

	rec, err := b.processor.Process(ctx, doc, reprocess)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.FormType = rec.FormType
	res.ValidationStatus = rec.ValidationStatus
	return res
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
