package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm"
)

type fakeChat struct {
	reply []byte
	err   error
	calls int
	last  llm.ChatRequest
}

func (f *fakeChat) ChatJSON(_ context.Context, req llm.ChatRequest) ([]byte, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func TestClassifyKnownLabel(t *testing.T) {
	chat := &fakeChat{reply: []byte(`{"document_type": "W-2", "confidence": 0.93}`)}
	c := NewClassifier(chat, 0.5, nil)

	res, err := c.Classify(context.Background(), "Form W-2 Wage and Tax Statement")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.FormType != constants.FormW2 {
		t.Errorf("FormType = %s, want W2", res.FormType)
	}
	if res.Confidence != 0.93 {
		t.Errorf("Confidence = %v", res.Confidence)
	}
	if res.NeedsReview {
		t.Error("high-confidence known label must not need review")
	}
}

func TestClassifyFencedReply(t *testing.T) {
	chat := &fakeChat{reply: []byte("```json\n{\"document_type\": \"FORM_1099_INT\", \"confidence\": 0.8}\n```")}
	c := NewClassifier(chat, 0.5, nil)

	res, err := c.Classify(context.Background(), "1099-INT Interest Income")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.FormType != constants.Form1099INT {
		t.Errorf("FormType = %s", res.FormType)
	}
}

func TestClassifyUnknownLabel(t *testing.T) {
	chat := &fakeChat{reply: []byte(`{"document_type": "SCHEDULE_K1", "confidence": 0.9}`)}
	c := NewClassifier(chat, 0.5, nil)

	res, err := c.Classify(context.Background(), "Schedule K-1")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.FormType != constants.FormOther {
		t.Errorf("FormType = %s, want OTHER", res.FormType)
	}
	if !res.NeedsReview {
		t.Error("out-of-set label must flag review")
	}
}

func TestClassifyLowConfidence(t *testing.T) {
	chat := &fakeChat{reply: []byte(`{"document_type": "W2", "confidence": 0.3}`)}
	c := NewClassifier(chat, 0.5, nil)

	res, err := c.Classify(context.Background(), "blurry scan")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.FormType != constants.FormW2 {
		t.Errorf("FormType = %s", res.FormType)
	}
	if !res.NeedsReview {
		t.Error("confidence below threshold must flag review")
	}
}

func TestClassifyMalformedReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"not json", "I think this is a W-2."},
		{"missing type", `{"confidence": 0.9}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(&fakeChat{reply: []byte(tc.reply)}, 0.5, nil)
			_, err := c.Classify(context.Background(), "text")
			if err == nil {
				t.Fatal("expected error")
			}
			if !common.IsClass(err, common.ClassClassification) {
				t.Errorf("class = %s, want classification_error", common.ClassOf(err))
			}
		})
	}
}

func TestClassifyBackendError(t *testing.T) {
	cause := common.NewPipelineError(common.ClassExtractorUnavailable, "llm", "connect refused", errors.New("dial tcp"))
	c := NewClassifier(&fakeChat{err: cause}, 0.5, nil)

	_, err := c.Classify(context.Background(), "text")
	if !common.Retryable(err) {
		t.Fatalf("backend unavailability must stay retryable, got %v", err)
	}
}

func TestClassifyConfidenceClamped(t *testing.T) {
	chat := &fakeChat{reply: []byte(`{"document_type": "W2", "confidence": 1.7}`)}
	c := NewClassifier(chat, 0.5, nil)

	res, err := c.Classify(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", res.Confidence)
	}
}
