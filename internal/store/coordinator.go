package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

// Coordinator owns the dual-store commit: the relational write is
// authoritative and lands first; the semantic write follows and may lag.
// A document whose semantic write failed keeps its pending flag until
// Reconcile catches it up, so the index is eventually consistent but the
// relational record never waits on it.
type Coordinator struct {
	relational RelationalStore
	semantic   SemanticStore
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*docLock
}

// docLock serializes commits for one content hash. Reference counted so
// the map entry can be dropped once the last holder releases it.
type docLock struct {
	mu   sync.Mutex
	refs int
}

func NewCoordinator(relational RelationalStore, semantic SemanticStore, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		relational: relational,
		semantic:   semantic,
		logger:     logger,
		locks:      map[string]*docLock{},
	}
}

// lockFor serializes commits per content hash. Two workers racing on the
// same document bytes queue here instead of racing in the database.
func (c *Coordinator) lockFor(key string) *docLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &docLock{}
		c.locks[key] = l
	}
	l.refs++
	return l
}

func (c *Coordinator) unlock(key string, l *docLock) {
	l.mu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
}

// Commit persists the extraction record and indexes the document. On a
// write conflict the already-committed record is read back and returned:
// committing the same document twice converges on one stored row. Only a
// restart (explicit reprocess, or the retry of a failed document)
// overwrites a prior record. The returned record is always the stored one.
func (c *Coordinator) Commit(ctx context.Context, doc *entity.Document, rec *entity.ExtractionRecord, reprocess bool) (*entity.ExtractionRecord, error) {
	key := hex.EncodeToString(doc.ContentHash)
	l := c.lockFor(key)
	l.mu.Lock()
	defer c.unlock(key, l)

	var stored *entity.ExtractionRecord
	var err error
	if reprocess {
		stored, err = c.relational.ReplaceRecord(ctx, rec, true)
	} else {
		stored, err = c.relational.CommitRecord(ctx, rec, true)
	}
	if err != nil {
		if common.IsClass(err, common.ClassWriteConflict) {
			c.logger.Warn("store.commit.conflict_readback",
				"document_id", rec.DocumentID,
				"form_type", rec.FormType,
			)
			return c.relational.GetRecord(ctx, rec.DocumentID, rec.FormType)
		}
		return nil, err
	}

	entry := BuildEntry(doc, stored)
	if err := c.semantic.Upsert(ctx, entry); err != nil {
		// Leave the pending flag set; Reconcile picks this up later.
		c.logger.Warn("store.commit.semantic_deferred",
			"document_id", doc.ID,
			"error", err,
		)
		return stored, nil
	}
	if err := c.relational.ClearSemanticPending(ctx, doc.ID); err != nil {
		c.logger.Warn("store.commit.clear_pending_failed",
			"document_id", doc.ID,
			"error", err,
		)
	}
	return stored, nil
}

// Reconcile replays outstanding semantic writes. Safe to run at any time
// and concurrently with commits: upserts are idempotent on document id.
func (c *Coordinator) Reconcile(ctx context.Context, limit int) (int, error) {
	docs, err := c.relational.ListSemanticPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		rec, err := c.recordFor(ctx, doc)
		if err != nil {
			c.logger.Error("store.reconcile.record_missing",
				"document_id", doc.ID, "error", err)
			continue
		}
		if err := c.semantic.Upsert(ctx, BuildEntry(doc, rec)); err != nil {
			c.logger.Warn("store.reconcile.upsert_failed",
				"document_id", doc.ID, "error", err)
			continue
		}
		if err := c.relational.ClearSemanticPending(ctx, doc.ID); err != nil {
			c.logger.Warn("store.reconcile.clear_pending_failed",
				"document_id", doc.ID, "error", err)
			continue
		}
		done++
	}
	c.logger.Info("store.reconcile.done", "pending", len(docs), "indexed", done)
	return done, nil
}

func (c *Coordinator) recordFor(ctx context.Context, doc *entity.Document) (*entity.ExtractionRecord, error) {
	for _, ft := range constants.FormTypes {
		rec, err := c.relational.GetRecord(ctx, doc.ID, ft)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}
	return nil, common.ErrNotFound
}

// ReadBack resolves a content hash to its current document and record
// pair, or ErrNotFound. The record is nil for documents that failed before
// any record was written.
func (c *Coordinator) ReadBack(ctx context.Context, contentHash []byte) (*entity.Document, *entity.ExtractionRecord, error) {
	doc, err := c.relational.GetDocumentByHash(ctx, contentHash)
	if err != nil {
		return nil, nil, err
	}
	rec, err := c.recordFor(ctx, doc)
	if errors.Is(err, common.ErrNotFound) {
		return doc, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, rec, nil
}

// Search answers similarity queries over indexed documents.
func (c *Coordinator) Search(ctx context.Context, query string, k int) ([]entity.SemanticHit, error) {
	return c.semantic.Search(ctx, query, k)
}

// BuildEntry derives the semantic payload from the stored document and
// record. Reconcile rebuilds the identical entry from the same rows, which
// is what makes the deferred write safe.
func BuildEntry(doc *entity.Document, rec *entity.ExtractionRecord) *entity.SemanticEntry {
	return &entity.SemanticEntry{
		DocumentID:  doc.ID,
		ContentHash: hex.EncodeToString(doc.ContentHash),
		FormType:    rec.FormType,
		TaxYear:     doc.TaxYear,
		Text:        doc.RawText,
		Summary:     summarize(doc, rec),
	}
}

func summarize(doc *entity.Document, rec *entity.ExtractionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tax year %d", rec.FormType, doc.TaxYear)
	for _, name := range []string{
		"employer_name", "payer_name", "lender_name",
		"wages", "interest_income", "total_ordinary_dividends",
		"proceeds", "nonemployee_compensation", "mortgage_interest_received",
	} {
		if v := rec.Fields[name]; v != nil {
			fmt.Fprintf(&b, "; %s %v", name, v)
		}
	}
	fmt.Fprintf(&b, "; validation %s", rec.ValidationStatus)
	return b.String()
}
