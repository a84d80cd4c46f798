package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm"
)

// Result is the classifier's verdict for one document.
type Result struct {
	FormType   constants.FormType
	Confidence float32
	// NeedsReview is set when confidence sits below the configured
	// threshold or the model answered outside the label set.
	NeedsReview bool
}

// Classifier assigns one form type from the closed label set.
type Classifier struct {
	chat      llm.ChatClient
	threshold float32
	logger    *slog.Logger
}

func NewClassifier(chat llm.ChatClient, threshold float32, logger *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{chat: chat, threshold: threshold, logger: logger}
}

type classifyReply struct {
	DocumentType string  `json:"document_type"`
	Confidence   float32 `json:"confidence"`
}

// Classify labels the document text. A reply that is not valid JSON after
// fence stripping, or that lacks a document_type, is a classification
// error; an unknown label degrades to OTHER with review flagged instead.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, error) {
	start := time.Now()

	sys, user := llm.BuildClassifyPrompts(text)
	raw, err := c.chat.ChatJSON(ctx, llm.ChatRequest{System: sys, User: user})
	if err != nil {
		return Result{}, err
	}

	var reply classifyReply
	if err := json.Unmarshal(llm.StripCodeFence(raw), &reply); err != nil {
		c.logger.Error("classify.malformed_reply",
			"error", err,
			"raw_len", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, common.NewPipelineError(common.ClassClassification, "classify",
			"malformed classifier reply", err)
	}
	if reply.DocumentType == "" {
		return Result{}, common.NewPipelineError(common.ClassClassification, "classify",
			"classifier reply missing document_type", nil)
	}

	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	form, known := constants.CanonicalFormType(reply.DocumentType)
	res := Result{
		FormType:    form,
		Confidence:  conf,
		NeedsReview: !known || conf < c.threshold,
	}
	if !known {
		c.logger.Warn("classify.unknown_label",
			"label", reply.DocumentType,
			"confidence", conf,
		)
	}

	c.logger.Info("classify.ok",
		"form_type", res.FormType,
		"confidence", res.Confidence,
		"needs_review", res.NeedsReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
