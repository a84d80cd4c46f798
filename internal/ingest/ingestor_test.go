package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
)

// fakeRelational dedups documents on content hash, like the Postgres
// implementation does with its unique index.
type fakeRelational struct {
	store.RelationalStore

	byHash map[string]*entity.Document
}

func newFakeRelational() *fakeRelational {
	return &fakeRelational{byHash: map[string]*entity.Document{}}
}

func (f *fakeRelational) CreateDocument(_ context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if existing, ok := f.byHash[string(doc.ContentHash)]; ok {
		return existing, false, nil
	}
	cp := *doc
	cp.ID = uuid.New()
	cp.Status = constants.StatusPending
	f.byHash[string(cp.ContentHash)] = &cp
	return &cp, true, nil
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestPath(t *testing.T) {
	rel := newFakeRelational()
	ing := NewIngestor(rel, nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "w2.pdf", []byte("%PDF-1.4 fake"))

	doc, created, err := ing.IngestPath(context.Background(), path, 2024)
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}
	if !created {
		t.Error("first ingest must create")
	}
	if doc.MediaType != constants.MediaPDF {
		t.Errorf("MediaType = %s", doc.MediaType)
	}
	if doc.TaxYear != 2024 {
		t.Errorf("TaxYear = %d", doc.TaxYear)
	}
	if len(doc.ContentHash) != 32 {
		t.Errorf("ContentHash length = %d, want sha256", len(doc.ContentHash))
	}
}

// The same bytes under a different path resolve to the one existing row.
func TestIngestPathDeduplicates(t *testing.T) {
	rel := newFakeRelational()
	ing := NewIngestor(rel, nil)
	dir := t.TempDir()
	content := []byte("%PDF-1.4 same bytes")
	first := writeFile(t, dir, "a.pdf", content)
	second := writeFile(t, dir, "copy-of-a.pdf", content)

	doc1, created1, err := ing.IngestPath(context.Background(), first, 2024)
	if err != nil {
		t.Fatal(err)
	}
	doc2, created2, err := ing.IngestPath(context.Background(), second, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if !created1 || created2 {
		t.Errorf("created = %v, %v; want true, false", created1, created2)
	}
	if doc1.ID != doc2.ID {
		t.Errorf("ids differ: %s vs %s", doc1.ID, doc2.ID)
	}
	if len(rel.byHash) != 1 {
		t.Errorf("documents = %d, want one row for identical bytes", len(rel.byHash))
	}
}

func TestIngestPathUnsupportedExtension(t *testing.T) {
	ing := NewIngestor(newFakeRelational(), nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", []byte("not a tax form"))

	if _, _, err := ing.IngestPath(context.Background(), path, 2024); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

type fakeProcessor struct {
	processed []uuid.UUID
	err       error
}

func (f *fakeProcessor) Process(_ context.Context, doc *entity.Document, _ bool) (*entity.ExtractionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.processed = append(f.processed, doc.ID)
	return &entity.ExtractionRecord{
		DocumentID:       doc.ID,
		FormType:         constants.FormW2,
		ValidationStatus: constants.ValidationValid,
	}, nil
}

func TestBatchRun(t *testing.T) {
	rel := newFakeRelational()
	proc := &fakeProcessor{}
	b := NewBatch(NewIngestor(rel, nil), proc, 2, nil)

	dir := t.TempDir()
	writeFile(t, dir, "w2.pdf", []byte("doc one"))
	writeFile(t, dir, "1099.png", []byte("doc two"))
	writeFile(t, dir, ".hidden.pdf", []byte("skip me"))
	writeFile(t, dir, "notes.txt", []byte("skip me too"))

	results, stats, err := b.Run(context.Background(), dir, 2024, true, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Matched != 2 {
		t.Errorf("Matched = %d", stats.Matched)
	}
	if stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d", stats.Succeeded)
	}
	if stats.Failed != 0 {
		t.Errorf("Failed = %d", stats.Failed)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	for _, r := range results {
		if r.Err != "" {
			t.Errorf("%s: %s", r.Path, r.Err)
		}
		if r.ValidationStatus != constants.ValidationValid {
			t.Errorf("%s: status = %s", r.Path, r.ValidationStatus)
		}
	}
	if len(proc.processed) != 2 {
		t.Errorf("processed = %d", len(proc.processed))
	}
}

// A stored document is immutable without the explicit reprocess directive.
func TestBatchSkipsStoredDocuments(t *testing.T) {
	rel := newFakeRelational()
	proc := &fakeProcessor{}
	b := NewBatch(NewIngestor(rel, nil), proc, 1, nil)

	dir := t.TempDir()
	writeFile(t, dir, "w2.pdf", []byte("stored already"))

	// First run stores the document.
	if _, _, err := b.Run(context.Background(), dir, 2024, true, false); err != nil {
		t.Fatal(err)
	}
	for _, doc := range rel.byHash {
		doc.Status = constants.StatusStored
	}

	if _, stats, err := b.Run(context.Background(), dir, 2024, true, false); err != nil {
		t.Fatal(err)
	} else if stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d", stats.Deduplicated)
	}
	if len(proc.processed) != 1 {
		t.Errorf("processed = %d, stored document must be skipped", len(proc.processed))
	}

	// Reprocess pushes it through again.
	if _, _, err := b.Run(context.Background(), dir, 2024, true, true); err != nil {
		t.Fatal(err)
	}
	if len(proc.processed) != 2 {
		t.Errorf("processed = %d, reprocess must run the pipeline", len(proc.processed))
	}
}

func TestBatchPerFileFailureDoesNotAbort(t *testing.T) {
	rel := newFakeRelational()
	proc := &fakeProcessor{err: context.DeadlineExceeded}
	b := NewBatch(NewIngestor(rel, nil), proc, 2, nil)

	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", []byte("doc a"))
	writeFile(t, dir, "b.pdf", []byte("doc b"))

	results, stats, err := b.Run(context.Background(), dir, 2024, true, false)
	if err != nil {
		t.Fatalf("per-file failures must not abort the batch: %v", err)
	}
	if stats.Failed != 2 {
		t.Errorf("Failed = %d", stats.Failed)
	}
	for _, r := range results {
		if r.Err == "" {
			t.Errorf("%s: expected recorded error", r.Path)
		}
	}
}
