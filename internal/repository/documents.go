package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

// Postgres implements store.RelationalStore on a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

const documentColumns = `id, content_hash, source_path, media_type, tax_year,
	acquisition_method, raw_text, status, needs_review, semantic_index_pending,
	failure_stage, failure_message, created_at, updated_at`

// CreateDocument inserts unless the content hash already exists. The
// conflict path returns the stored row, so re-ingesting identical bytes is
// a read, not a second document.
func (p *Postgres) CreateDocument(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusPending
	}

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO documents (id, content_hash, source_path, media_type, tax_year, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_hash) DO NOTHING`,
		doc.ID, doc.ContentHash, doc.SourcePath, doc.MediaType, doc.TaxYear, doc.Status,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert document: %w", err)
	}

	stored, err := p.GetDocumentByHash(ctx, doc.ContentHash)
	if err != nil {
		return nil, false, err
	}
	created := tag.RowsAffected() == 1
	if !created {
		p.logger.Info("repository.document.dedup_hit",
			"document_id", stored.ID,
			"source_path", doc.SourcePath,
			"existing_path", stored.SourcePath,
		)
	}
	return stored, created, nil
}

func (p *Postgres) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (p *Postgres) GetDocumentByHash(ctx context.Context, hash []byte) (*entity.Document, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = $1`, hash)
	return scanDocument(row)
}

// UpdateStatus applies a forward transition. The current status rides in
// the WHERE clause so a stale worker updates zero rows instead of
// regressing the document.
func (p *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	cur, err := p.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.Advances(status) {
		return common.NewPipelineError(common.ClassWriteConflict, "repository",
			fmt.Sprintf("status %s does not advance to %s for %s", cur.Status, status, id), nil)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE documents SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		status, id, cur.Status,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewPipelineError(common.ClassWriteConflict, "repository",
			fmt.Sprintf("document %s changed status concurrently", id), nil)
	}
	return nil
}

func (p *Postgres) SetAcquisition(ctx context.Context, id uuid.UUID, method constants.AcquisitionMethod, rawText string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE documents SET acquisition_method = $1, raw_text = $2, updated_at = now()
		WHERE id = $3`,
		method, rawText, id,
	)
	if err != nil {
		return fmt.Errorf("set acquisition: %w", err)
	}
	return nil
}

func (p *Postgres) MarkNeedsReview(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE documents SET needs_review = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark needs review: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure. Text acquired before the failure
// stays on the row; a stored document can no longer fail.
func (p *Postgres) MarkFailed(ctx context.Context, id uuid.UUID, stage, message string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE documents
		SET status = $1, failure_stage = $2, failure_message = $3, updated_at = now()
		WHERE id = $4 AND status <> $5`,
		constants.StatusFailed, stage, message, id, constants.StatusStored,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		p.logger.Warn("repository.mark_failed.skipped_stored_document", "document_id", id)
	}
	return nil
}

// ResetForReprocess is the one sanctioned backward move: a failed document
// being retried, or a stored one under an explicit reprocess directive,
// returns to pending with its failure fields cleared.
func (p *Postgres) ResetForReprocess(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE documents
		SET status = $1, failure_stage = '', failure_message = '',
		    needs_review = FALSE, updated_at = now()
		WHERE id = $2`,
		constants.StatusPending, id,
	)
	if err != nil {
		return fmt.Errorf("reset for reprocess: %w", err)
	}
	return nil
}

func (p *Postgres) ClearSemanticPending(ctx context.Context, documentID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE documents SET semantic_index_pending = FALSE, updated_at = now()
		WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("clear semantic pending: %w", err)
	}
	return nil
}

func (p *Postgres) ListSemanticPending(ctx context.Context, limit int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE semantic_index_pending AND status = $1
		ORDER BY updated_at
		LIMIT $2`,
		constants.StatusStored, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list semantic pending: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	err := row.Scan(
		&doc.ID, &doc.ContentHash, &doc.SourcePath, &doc.MediaType, &doc.TaxYear,
		&doc.AcquisitionMethod, &doc.RawText, &doc.Status, &doc.NeedsReview,
		&doc.SemanticIndexPending, &doc.FailureStage, &doc.FailureMessage,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}
