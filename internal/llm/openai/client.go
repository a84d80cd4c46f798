package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/llm"
)

// ChatJSON implements llm.ChatClient over chat/completions with JSON-object
// response format. Temperature rides the config; extraction keeps it at 0
// so identical input yields identical output up to model nondeterminism.
func (c *Client) ChatJSON(ctx context.Context, req llm.ChatRequest) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.chat.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"user_len", len(req.User),
		"has_schema", req.Schema != nil,
	)

	messages := []map[string]any{
		{"role": "system", "content": req.System},
		{"role": "user", "content": req.User + "\n\nReturn ONLY JSON."},
	}
	if req.Schema != nil {
		messages = append(messages, map[string]any{
			"role": "system", "content": "JSON Schema:\n" + mustJSON(req.Schema),
		})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.chat.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.chat.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			"decode chat response", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.chat.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			"no choices in chat response", nil)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	c.logger.Info("llm.chat.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

// EmbedDocuments implements llm.Embedder over the embeddings endpoint.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model": c.cfg.EmbeddingModel,
		"input": texts,
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/embeddings"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.embed.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var er struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			"decode embeddings response", err)
	}
	if len(er.Data) != len(texts) {
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(er.Data)), nil)
	}

	out := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		out[d.Index] = d.Embedding
	}

	c.logger.Debug("llm.embed.ok",
		"req_id", rid,
		"count", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// EmbedQuery embeds one query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			"model backend unreachable", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("llm response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewPipelineError(common.ClassExtractorUnavailable, "llm",
			"read model response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := common.ClassExtraction
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			class = common.ClassExtractorUnavailable
		}
		return nil, common.NewPipelineError(class, "llm",
			fmt.Sprintf("model backend status %d: %s", resp.StatusCode, clip(string(raw), 512)), nil)
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
