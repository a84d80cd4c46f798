package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
)

// FieldMap maps schema field names to typed values. Values are one of
// nil, Amount, string, bool, or []CodedEntry; nothing else is stored.
type FieldMap map[string]any

// CodedEntry is one (code, amount) pair from a coded-list field such as
// W-2 box 12.
type CodedEntry struct {
	Code   string `json:"code"`
	Amount Amount `json:"amount"`
}

// ExtractionRecord is the structured, validated field output for one
// Document under one FormType. RawPayload retains the model's full
// response verbatim for audit and manual correction.
type ExtractionRecord struct {
	ID                       uuid.UUID                  `json:"id"`
	DocumentID               uuid.UUID                  `json:"document_id"`
	FormType                 constants.FormType         `json:"form_type"`
	Fields                   FieldMap                   `json:"fields"`
	FieldConfidence          map[string]float32         `json:"field_confidence,omitempty"`
	Warnings                 []string                   `json:"warnings,omitempty"`
	RawPayload               []byte                     `json:"raw_payload,omitempty"`
	ValidationStatus         constants.ValidationStatus `json:"validation_status"`
	ClassificationConfidence float32                    `json:"classification_confidence"`
	CreatedAt                time.Time                  `json:"created_at"`
}
