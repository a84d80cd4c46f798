package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
)

// Document represents one physical input (PDF or image) for data transfer
// between layers. The content hash is the primary dedup key: re-ingesting
// identical bytes is a no-op, never a duplicate row.
type Document struct {
	ID                   uuid.UUID                   `json:"id"`
	ContentHash          []byte                      `json:"content_hash"`
	SourcePath           string                      `json:"source_path"`
	MediaType            constants.MediaType         `json:"media_type"`
	TaxYear              int                         `json:"tax_year"`
	AcquisitionMethod    constants.AcquisitionMethod `json:"acquisition_method,omitempty"`
	RawText              string                      `json:"raw_text,omitempty"`
	Status               constants.DocumentStatus    `json:"status"`
	NeedsReview          bool                        `json:"needs_review"`
	SemanticIndexPending bool                        `json:"semantic_index_pending"`
	FailureStage         string                      `json:"failure_stage,omitempty"`
	FailureMessage       string                      `json:"failure_message,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}
