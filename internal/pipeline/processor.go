package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/classify"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/extract"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/textacq"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/validate"
)

// Stage seams, satisfied by the concrete packages and stubbed in tests.
type (
	Acquirer interface {
		Acquire(ctx context.Context, path string, media constants.MediaType) (textacq.Result, error)
	}
	Classifier interface {
		Classify(ctx context.Context, text string) (classify.Result, error)
	}
	Extractor interface {
		Extract(ctx context.Context, form constants.FormType, text string) (extract.Result, error)
	}
	Validator interface {
		Validate(form constants.FormType, fields entity.FieldMap) (validate.Outcome, error)
	}
)

// Processor runs one document through acquire, classify, extract,
// validate, and commit. Stages for one document are strictly sequential;
// concurrency lives above this type, one Processor call per document.
type Processor struct {
	acquirer   Acquirer
	classifier Classifier
	extractor  Extractor
	validator  Validator
	relational store.RelationalStore
	coord      *store.Coordinator
	retry      common.RetryPolicy
	logger     *slog.Logger
}

func NewProcessor(
	acquirer Acquirer,
	classifier Classifier,
	extractor Extractor,
	validator Validator,
	relational store.RelationalStore,
	coord *store.Coordinator,
	retry common.RetryPolicy,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		acquirer:   acquirer,
		classifier: classifier,
		extractor:  extractor,
		validator:  validator,
		relational: relational,
		coord:      coord,
		retry:      retry,
		logger:     logger,
	}
}

// Process advances doc through every stage and returns the stored record.
// Cancellation is honored at the checkpoints between stages; once the
// commit begins it runs to completion or explicit failure. Non-retryable
// stage failures mark the document failed with the owning stage recorded
// and propagate; the invalid-extraction path additionally retains the
// model's raw reply in a stored record.
func (p *Processor) Process(ctx context.Context, doc *entity.Document, reprocess bool) (*entity.ExtractionRecord, error) {
	start := time.Now()
	log := p.logger.With("document_id", doc.ID, "source_path", doc.SourcePath)

	// A failed document being retried, or a stored one under an explicit
	// reprocess directive, restarts from pending. The earlier run may have
	// retained a record (the extraction-failure path keeps the raw reply),
	// so the eventual commit must overwrite rather than conflict.
	restart := reprocess || doc.Status == constants.StatusFailed
	if restart {
		if err := p.relational.ResetForReprocess(ctx, doc.ID); err != nil {
			return nil, p.fail(ctx, log, doc, "reset", err)
		}
		doc.Status = constants.StatusPending
		doc.NeedsReview = false
		doc.FailureStage = ""
		doc.FailureMessage = ""
	}

	// Stage 1: text acquisition.
	var acq textacq.Result
	err := common.Retry(ctx, p.retry, log, "textacq", func(ctx context.Context) error {
		var aerr error
		acq, aerr = p.acquirer.Acquire(ctx, doc.SourcePath, doc.MediaType)
		return aerr
	})
	if err != nil {
		return nil, p.fail(ctx, log, doc, "textacq", err)
	}
	doc.RawText = acq.Text
	doc.AcquisitionMethod = acq.Method
	if err := p.relational.SetAcquisition(ctx, doc.ID, acq.Method, acq.Text); err != nil {
		return nil, p.fail(ctx, log, doc, "textacq", err)
	}
	if err := p.checkpoint(ctx, log, "textacq"); err != nil {
		return nil, err
	}

	// Stage 2: classification.
	var cls classify.Result
	err = common.Retry(ctx, p.retry, log, "classify", func(ctx context.Context) error {
		var cerr error
		cls, cerr = p.classifier.Classify(ctx, acq.Text)
		return cerr
	})
	if err != nil {
		return nil, p.fail(ctx, log, doc, "classify", err)
	}
	if err := p.relational.UpdateStatus(ctx, doc.ID, constants.StatusClassified); err != nil {
		return nil, p.fail(ctx, log, doc, "classify", err)
	}
	if cls.NeedsReview {
		doc.NeedsReview = true
		if err := p.relational.MarkNeedsReview(ctx, doc.ID); err != nil {
			return nil, p.fail(ctx, log, doc, "classify", err)
		}
	}
	if err := p.checkpoint(ctx, log, "classify"); err != nil {
		return nil, err
	}

	// Stage 3: field extraction.
	var ext extract.Result
	err = common.Retry(ctx, p.retry, log, "extract", func(ctx context.Context) error {
		var eerr error
		ext, eerr = p.extractor.Extract(ctx, cls.FormType, acq.Text)
		return eerr
	})
	if err != nil {
		if common.IsClass(err, common.ClassExtraction) {
			p.saveInvalid(ctx, log, doc, cls, ext.RawPayload, err)
		}
		return nil, p.fail(ctx, log, doc, "extract", err)
	}
	if err := p.relational.UpdateStatus(ctx, doc.ID, constants.StatusExtracted); err != nil {
		return nil, p.fail(ctx, log, doc, "extract", err)
	}
	if err := p.checkpoint(ctx, log, "extract"); err != nil {
		return nil, err
	}

	// Stage 4: validation.
	outcome, err := p.validator.Validate(cls.FormType, ext.Fields)
	if err != nil {
		return nil, p.fail(ctx, log, doc, "validate", err)
	}
	// Low classification confidence caps the aggregate status.
	if cls.NeedsReview && outcome.Status == constants.ValidationValid {
		outcome.Status = constants.ValidationWithWarnings
		outcome.Warnings = append(outcome.Warnings, "classification confidence below threshold")
	}
	for _, name := range ext.Missing {
		outcome.FieldConfidence[name] = 0
	}
	if err := p.relational.UpdateStatus(ctx, doc.ID, constants.StatusValidated); err != nil {
		return nil, p.fail(ctx, log, doc, "validate", err)
	}
	if err := p.checkpoint(ctx, log, "validate"); err != nil {
		return nil, err
	}

	// Stage 5: dual-store commit. No cancellation checks from here on.
	rec := &entity.ExtractionRecord{
		DocumentID:               doc.ID,
		FormType:                 cls.FormType,
		Fields:                   ext.Fields,
		FieldConfidence:          outcome.FieldConfidence,
		Warnings:                 outcome.Warnings,
		RawPayload:               ext.RawPayload,
		ValidationStatus:         outcome.Status,
		ClassificationConfidence: cls.Confidence,
	}
	var stored *entity.ExtractionRecord
	err = common.Retry(ctx, p.retry, log, "commit", func(ctx context.Context) error {
		var serr error
		stored, serr = p.coord.Commit(ctx, doc, rec, restart)
		return serr
	})
	if err != nil {
		return nil, p.fail(ctx, log, doc, "commit", err)
	}

	log.Info("pipeline.document.done",
		"form_type", stored.FormType,
		"validation_status", stored.ValidationStatus,
		"needs_review", doc.NeedsReview,
		"acquisition_method", acq.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stored, nil
}

// checkpoint honors cancellation between stages. A cancelled document is
// not failed; it simply stops where it is and can be re-run.
func (p *Processor) checkpoint(ctx context.Context, log *slog.Logger, after string) error {
	if err := ctx.Err(); err != nil {
		log.Info("pipeline.cancelled", "after_stage", after)
		return err
	}
	return nil
}

// fail records the terminal failure with its owning stage. Field values
// never reach the failure message; the error text carries names and
// classes only.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, doc *entity.Document, stage string, cause error) error {
	log.Error("pipeline.stage.failed",
		"stage", stage,
		"class", string(common.ClassOf(cause)),
		"error", cause,
	)
	// The failure write must land even when the run's context is gone.
	if err := p.relational.MarkFailed(context.WithoutCancel(ctx), doc.ID, stage, cause.Error()); err != nil {
		log.Error("pipeline.mark_failed_error", "stage", stage, "error", err)
	}
	return cause
}

// saveInvalid retains the unusable model reply as an invalid record so a
// human can correct it later. Best effort: the document is moving to
// failed either way.
func (p *Processor) saveInvalid(ctx context.Context, log *slog.Logger, doc *entity.Document, cls classify.Result, raw []byte, cause error) {
	rec := &entity.ExtractionRecord{
		DocumentID:               doc.ID,
		FormType:                 cls.FormType,
		Fields:                   entity.FieldMap{},
		Warnings:                 []string{"extraction failed: " + string(common.ClassOf(cause))},
		RawPayload:               raw,
		ValidationStatus:         constants.ValidationInvalid,
		ClassificationConfidence: cls.Confidence,
	}
	if _, err := p.relational.SaveInvalidRecord(ctx, rec); err != nil {
		log.Error("pipeline.save_invalid_record_failed", "error", err)
	}
}
