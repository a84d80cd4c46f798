package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
)

// SemanticEntry is the derived vector-store payload for one Document:
// its acquired text plus a denormalized summary of the extraction record.
// Never hand-edited; rebuilt from the relational record on reconciliation.
type SemanticEntry struct {
	DocumentID  uuid.UUID          `json:"document_id"`
	ContentHash string             `json:"content_hash"` // hex
	FormType    constants.FormType `json:"form_type"`
	TaxYear     int                `json:"tax_year"`
	Text        string             `json:"text"`
	Summary     string             `json:"summary"`
}

// SemanticHit is one similarity-search result.
type SemanticHit struct {
	DocumentID uuid.UUID
	FormType   constants.FormType
	TaxYear    int
	Summary    string
	Score      float32
}
