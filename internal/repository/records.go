package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/forms"
)

const uniqueViolation = "23505"

// CommitRecord inserts the record and flips its document to stored in one
// transaction. A second commit for the same (document, form) pair trips
// the unique constraint and surfaces as a write conflict for read-back.
func (p *Postgres) CommitRecord(ctx context.Context, rec *entity.ExtractionRecord, semanticPending bool) (*entity.ExtractionRecord, error) {
	return p.writeRecord(ctx, rec, &semanticPending, false)
}

// ReplaceRecord overwrites the stored record for (document, form). Only
// the explicit reprocess path calls this; a routine commit never rewrites.
func (p *Postgres) ReplaceRecord(ctx context.Context, rec *entity.ExtractionRecord, semanticPending bool) (*entity.ExtractionRecord, error) {
	return p.writeRecord(ctx, rec, &semanticPending, true)
}

// SaveInvalidRecord stores the record without touching the document row.
// The extraction-failure path uses this to retain the raw payload while
// the document itself moves to failed.
func (p *Postgres) SaveInvalidRecord(ctx context.Context, rec *entity.ExtractionRecord) (*entity.ExtractionRecord, error) {
	return p.writeRecord(ctx, rec, nil, false)
}

func (p *Postgres) writeRecord(ctx context.Context, rec *entity.ExtractionRecord, semanticPending *bool, replace bool) (*entity.ExtractionRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	confJSON, err := json.Marshal(rec.FieldConfidence)
	if err != nil {
		return nil, fmt.Errorf("marshal field confidence: %w", err)
	}
	warnJSON, err := json.Marshal(rec.Warnings)
	if err != nil {
		return nil, fmt.Errorf("marshal warnings: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `
		INSERT INTO extraction_records
			(id, document_id, form_type, fields, field_confidence, warnings,
			 raw_payload, validation_status, classification_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if replace {
		insert += `
		ON CONFLICT (document_id, form_type) DO UPDATE SET
			fields = excluded.fields,
			field_confidence = excluded.field_confidence,
			warnings = excluded.warnings,
			raw_payload = excluded.raw_payload,
			validation_status = excluded.validation_status,
			classification_confidence = excluded.classification_confidence`
	}
	_, err = tx.Exec(ctx, insert,
		rec.ID, rec.DocumentID, rec.FormType, fieldsJSON, confJSON, warnJSON,
		string(rec.RawPayload), rec.ValidationStatus, rec.ClassificationConfidence,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.NewPipelineError(common.ClassWriteConflict, "repository",
				fmt.Sprintf("record already committed for document %s form %s", rec.DocumentID, rec.FormType), err)
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if semanticPending != nil {
		_, err = tx.Exec(ctx, `
			UPDATE documents
			SET status = $1, semantic_index_pending = $2, updated_at = now()
			WHERE id = $3`,
			constants.StatusStored, *semanticPending, rec.DocumentID,
		)
		if err != nil {
			return nil, fmt.Errorf("mark document stored: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit record tx: %w", err)
	}

	p.logger.Info("repository.record.committed",
		"record_id", rec.ID,
		"document_id", rec.DocumentID,
		"form_type", rec.FormType,
		"validation_status", rec.ValidationStatus,
	)
	return p.GetRecord(ctx, rec.DocumentID, rec.FormType)
}

func (p *Postgres) GetRecord(ctx context.Context, documentID uuid.UUID, form constants.FormType) (*entity.ExtractionRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, document_id, form_type, fields, field_confidence, warnings,
		       raw_payload, validation_status, classification_confidence, created_at
		FROM extraction_records
		WHERE document_id = $1 AND form_type = $2`,
		documentID, form,
	)
	return scanRecord(row)
}

func (p *Postgres) ListRecordsByYear(ctx context.Context, taxYear int) ([]*entity.ExtractionRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.document_id, r.form_type, r.fields, r.field_confidence, r.warnings,
		       r.raw_payload, r.validation_status, r.classification_confidence, r.created_at
		FROM extraction_records r
		JOIN documents d ON d.id = r.document_id
		WHERE d.tax_year = $1
		ORDER BY r.form_type, r.created_at`,
		taxYear,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []*entity.ExtractionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecord(row rowScanner) (*entity.ExtractionRecord, error) {
	var rec entity.ExtractionRecord
	var fieldsJSON, confJSON, warnJSON []byte
	var rawPayload string
	err := row.Scan(
		&rec.ID, &rec.DocumentID, &rec.FormType, &fieldsJSON, &confJSON, &warnJSON,
		&rawPayload, &rec.ValidationStatus, &rec.ClassificationConfidence, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.RawPayload = []byte(rawPayload)

	if forms.Registered(rec.FormType) {
		schema, err := forms.Get(rec.FormType)
		if err != nil {
			return nil, err
		}
		rec.Fields, err = forms.DecodeFields(schema, fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	} else {
		rec.Fields = entity.FieldMap{}
	}
	if err := json.Unmarshal(confJSON, &rec.FieldConfidence); err != nil {
		return nil, fmt.Errorf("decode field confidence: %w", err)
	}
	if err := json.Unmarshal(warnJSON, &rec.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	return &rec, nil
}
