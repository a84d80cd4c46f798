package semantic

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm"
)

// Config for the semantic index.
type Config struct {
	Path           string // sqlite database file
	Dataset        string // namespace within the store
	EmbeddingModel string // recorded with each row
}

// Store is the sqlite-vec backed similarity index. One row per document,
// keyed by document id, so repeated upserts overwrite instead of
// accumulating.
type Store struct {
	db       *sql.DB
	dataset  string
	vtable   string
	shadow   string
	model    string
	embedder llm.Embedder
	logger   *slog.Logger
}

// NewStore opens the sqlite file, registers the vec module, and ensures
// the schema.
func NewStore(cfg Config, embedder llm.Embedder, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("semantic: db path required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "taxdocs"
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := engine.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("semantic: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := vec.Register(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("semantic: register vec module: %w", err)
	}

	s := &Store{
		db:       db,
		dataset:  cfg.Dataset,
		vtable:   "tax_docs",
		shadow:   "_vec_tax_docs",
		model:    cfg.EmbeddingModel,
		embedder: embedder,
		logger:   logger,
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id       TEXT NOT NULL,
			id               TEXT NOT NULL,
			asset_id         TEXT NOT NULL,
			content          TEXT,
			meta             TEXT,
			embedding        BLOB,
			embedding_model  TEXT,
			scn              INTEGER NOT NULL,
			archived         INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);`, s.shadow),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id);`, s.vtable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_asset ON %s(dataset_id, asset_id);`, s.vtable, s.shadow),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("semantic: ensure schema: %w", err)
		}
	}
	return nil
}

type rowMeta struct {
	DocumentID string             `json:"document_id"`
	FormType   constants.FormType `json:"form_type"`
	TaxYear    int                `json:"tax_year"`
	Summary    string             `json:"summary"`
}

// Upsert embeds the entry and writes one row keyed by document id. Calling
// it again with the same entry rewrites the row in place.
func (s *Store) Upsert(ctx context.Context, entry *entity.SemanticEntry) error {
	vecs, err := s.embedder.EmbedDocuments(ctx, []string{embedText(entry)})
	if err != nil {
		return err
	}
	blob, err := vector.EncodeEmbedding(vecs[0])
	if err != nil {
		return fmt.Errorf("semantic: encode embedding: %w", err)
	}
	metaJSON, err := json.Marshal(rowMeta{
		DocumentID: entry.DocumentID.String(),
		FormType:   entry.FormType,
		TaxYear:    entry.TaxYear,
		Summary:    entry.Summary,
	})
	if err != nil {
		return fmt.Errorf("semantic: encode meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(dataset_id, id, asset_id, content, meta, embedding, embedding_model, scn, archived)
		VALUES(?,?,?,?,?,?,?,0,0)
		ON CONFLICT(dataset_id, id) DO UPDATE SET
			asset_id=excluded.asset_id,
			content=excluded.content,
			meta=excluded.meta,
			embedding=excluded.embedding,
			embedding_model=excluded.embedding_model,
			archived=0`, s.shadow),
		s.dataset, entry.DocumentID.String(), entry.ContentHash,
		entry.Text, string(metaJSON), blob, s.model,
	)
	if err != nil {
		return fmt.Errorf("semantic: upsert %s: %w", entry.DocumentID, err)
	}

	s.logger.Debug("semantic.upsert.ok",
		"document_id", entry.DocumentID,
		"form_type", entry.FormType,
	)
	return nil
}

// Search embeds the query and runs a MATCH scan over the virtual table.
func (s *Store) Search(ctx context.Context, query string, k int) ([]entity.SemanticHit, error) {
	if k <= 0 {
		k = 10
	}
	qvec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	blob, err := vector.EncodeEmbedding(qvec)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.id, d.meta, v.match_score
		FROM %s v
		JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
		WHERE v.dataset_id = ?
		  AND v.doc_id MATCH ?
		  AND d.archived = 0
		ORDER BY v.match_score DESC
		LIMIT ?`, s.vtable, s.shadow),
		s.dataset, blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	defer rows.Close()

	var hits []entity.SemanticHit
	for rows.Next() {
		var id, metaJSON string
		var score float64
		if err := rows.Scan(&id, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("semantic: scan hit: %w", err)
		}
		var m rowMeta
		if err := json.Unmarshal([]byte(metaJSON), &m); err != nil {
			return nil, fmt.Errorf("semantic: decode meta: %w", err)
		}
		docID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("semantic: bad document id %q: %w", id, err)
		}
		hits = append(hits, entity.SemanticHit{
			DocumentID: docID,
			FormType:   m.FormType,
			TaxYear:    m.TaxYear,
			Summary:    m.Summary,
			Score:      float32(score),
		})
	}
	return hits, rows.Err()
}

// embedText is what actually gets vectorized: the summary leads so the
// structured facts dominate the embedding, the raw text follows.
func embedText(entry *entity.SemanticEntry) string {
	const textCap = 8192
	text := entry.Text
	if len(text) > textCap {
		text = text[:textCap]
	}
	return entry.Summary + "\n\n" + text
}
