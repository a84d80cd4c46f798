package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id                     UUID PRIMARY KEY,
		content_hash           BYTEA NOT NULL UNIQUE,
		source_path            TEXT NOT NULL,
		media_type             TEXT NOT NULL,
		tax_year               INT NOT NULL,
		acquisition_method     TEXT NOT NULL DEFAULT '',
		raw_text               TEXT NOT NULL DEFAULT '',
		status                 TEXT NOT NULL DEFAULT 'pending',
		needs_review           BOOLEAN NOT NULL DEFAULT FALSE,
		semantic_index_pending BOOLEAN NOT NULL DEFAULT FALSE,
		failure_stage          TEXT NOT NULL DEFAULT '',
		failure_message        TEXT NOT NULL DEFAULT '',
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_records (
		id                        UUID PRIMARY KEY,
		document_id               UUID NOT NULL REFERENCES documents(id),
		form_type                 TEXT NOT NULL,
		fields                    JSONB NOT NULL DEFAULT '{}',
		field_confidence          JSONB NOT NULL DEFAULT '{}',
		warnings                  JSONB NOT NULL DEFAULT '[]',
		raw_payload               TEXT NOT NULL DEFAULT '',
		validation_status         TEXT NOT NULL,
		classification_confidence REAL NOT NULL DEFAULT 0,
		created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (document_id, form_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_semantic_pending
		ON documents(semantic_index_pending) WHERE semantic_index_pending`,
	`CREATE INDEX IF NOT EXISTS idx_records_form_created
		ON extraction_records(form_type, created_at)`,
}

// Migrate applies the schema. Statements are idempotent, so running this
// on every start is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
