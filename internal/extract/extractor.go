package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/forms"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm"
)

// Result is the typed field mapping for one document. RawPayload holds the
// model's reply verbatim, including replies that failed validation, so the
// stored record always shows what the model actually said.
type Result struct {
	Fields     entity.FieldMap
	Missing    []string // schema keys the model left null or omitted
	Notes      []string // sanitizer rewrites, one note per touched key
	RawPayload []byte
}

// Extractor produces a field mapping for a classified document.
type Extractor struct {
	chat   llm.ChatClient
	logger *slog.Logger
}

func NewExtractor(chat llm.ChatClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, logger: logger}
}

// Extract runs the schema prompt for the form type and normalizes the
// reply. OTHER yields an empty mapping without a model call. A reply that
// stays unparseable or schema-invalid after fence stripping comes back as
// an extraction error with the verbatim payload attached to the Result.
func (e *Extractor) Extract(ctx context.Context, form constants.FormType, text string) (Result, error) {
	if form == constants.FormOther {
		return Result{Fields: entity.FieldMap{}}, nil
	}

	schema, err := forms.Get(form)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	sys, user := llm.BuildExtractPrompts(schema, text)
	raw, err := e.chat.ChatJSON(ctx, llm.ChatRequest{
		System: sys,
		User:   user,
		Schema: schema.JSONSchema(),
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{RawPayload: raw}

	cleaned, missing, notes, err := llm.NormalizeModelJSON(llm.StripCodeFence(raw), schema, e.logger)
	if err != nil {
		e.logger.Error("extract.unparseable_reply",
			"form_type", form,
			"error", err,
			"raw_len", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, common.NewPipelineError(common.ClassExtraction, "extract",
			"model reply is not valid JSON", err)
	}
	res.Missing = missing
	res.Notes = notes

	if err := schema.Validate(cleaned); err != nil {
		e.logger.Error("extract.schema_validation_failed",
			"form_type", form,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, common.NewPipelineError(common.ClassExtraction, "extract",
			"model reply failed schema validation", err)
	}

	fieldMap, err := forms.DecodeFields(schema, cleaned)
	if err != nil {
		return res, common.NewPipelineError(common.ClassExtraction, "extract",
			"decode normalized fields", err)
	}
	res.Fields = fieldMap

	e.logger.Info("extract.ok",
		"form_type", form,
		"fields", len(res.Fields),
		"missing", len(res.Missing),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
