package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
)

// Ingestor registers local files as documents. The sha256 of the raw bytes
// is the identity: the same bytes under any path resolve to one row.
type Ingestor struct {
	relational store.RelationalStore
	logger     *slog.Logger
}

func NewIngestor(relational store.RelationalStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{relational: relational, logger: logger}
}

// IngestPath hashes one file and creates its document row unless the hash
// is already known; created reports which happened.
func (i *Ingestor) IngestPath(ctx context.Context, path string, taxYear int) (*entity.Document, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	media := constants.MapExtToMedia(ext)
	if media == "" {
		return nil, false, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("ingest.close_error", "path", abs, "error", cerr)
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, false, fmt.Errorf("hash %s: %w", abs, err)
	}
	sum := h.Sum(nil)

	doc, created, err := i.relational.CreateDocument(ctx, &entity.Document{
		ContentHash: sum,
		SourcePath:  abs,
		MediaType:   media,
		TaxYear:     taxYear,
	})
	if err != nil {
		return nil, false, err
	}

	i.logger.Info("ingest.path.ok",
		"document_id", doc.ID,
		"path", abs,
		"hash", hex.EncodeToString(sum),
		"deduplicated", !created,
	)
	return doc, created, nil
}
