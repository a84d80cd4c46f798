package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

// RelationalStore is the authoritative record of documents and their
// extraction records. Implemented by repository.Postgres.
type RelationalStore interface {
	// CreateDocument inserts a document unless its content hash already
	// exists; created reports which happened. On a duplicate the stored
	// row comes back unchanged.
	CreateDocument(ctx context.Context, doc *entity.Document) (stored *entity.Document, created bool, err error)

	GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetDocumentByHash(ctx context.Context, hash []byte) (*entity.Document, error)

	// UpdateStatus applies a forward status transition. Backward moves
	// are rejected so a stale worker can never regress a document.
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	SetAcquisition(ctx context.Context, id uuid.UUID, method constants.AcquisitionMethod, rawText string) error
	MarkNeedsReview(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, stage, message string) error
	// ResetForReprocess moves a failed or explicitly reprocessed document
	// back to pending, clearing failure fields. The only sanctioned
	// backward status move.
	ResetForReprocess(ctx context.Context, id uuid.UUID) error

	// CommitRecord inserts the extraction record and flips the document
	// to stored in one transaction. A (document_id, form_type) collision
	// surfaces as a write-conflict error.
	CommitRecord(ctx context.Context, rec *entity.ExtractionRecord, semanticPending bool) (*entity.ExtractionRecord, error)
	// ReplaceRecord overwrites an existing record under an explicit
	// reprocess directive.
	ReplaceRecord(ctx context.Context, rec *entity.ExtractionRecord, semanticPending bool) (*entity.ExtractionRecord, error)
	// SaveInvalidRecord stores a failed extraction's record (invalid,
	// raw payload retained) without touching the document status.
	SaveInvalidRecord(ctx context.Context, rec *entity.ExtractionRecord) (*entity.ExtractionRecord, error)
	GetRecord(ctx context.Context, documentID uuid.UUID, form constants.FormType) (*entity.ExtractionRecord, error)

	ClearSemanticPending(ctx context.Context, documentID uuid.UUID) error
	ListSemanticPending(ctx context.Context, limit int) ([]*entity.Document, error)
	ListRecordsByYear(ctx context.Context, taxYear int) ([]*entity.ExtractionRecord, error)
}

// SemanticStore is the derived similarity index. Implemented by
// semantic.Store. Upsert is idempotent on document identity.
type SemanticStore interface {
	Upsert(ctx context.Context, entry *entity.SemanticEntry) error
	Search(ctx context.Context, query string, k int) ([]entity.SemanticHit, error)
}
