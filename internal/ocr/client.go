package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
)

// Config for the OCR service client.
type Config struct {
	BaseURL  string        // e.g. http://localhost:5000
	Language string        // tesseract language code, default "eng"
	Timeout  time.Duration // per-request timeout
}

// Client talks to the HTTP OCR service. The service accepts a base64 page
// image and returns recognized text; it is stateless, so any page can be
// retried independently.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type recognizeRequest struct {
	Image string `json:"image"`
	Lang  string `json:"lang"`
}

type recognizeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

// Recognize submits one page image and returns its text. Transport errors
// and 5xx responses surface as retryable acquisition-unavailable failures;
// anything the service itself rejects is a plain acquisition error.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("ocr.recognize.start",
		"req_id", rid,
		"image_bytes", len(image),
		"lang", c.cfg.Language,
	)

	body, err := json.Marshal(recognizeRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Lang:  c.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.recognize.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewPipelineError(common.ClassAcquisitionUnavailable, "textacq",
			"ocr service unreachable", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("ocr response body close error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.NewPipelineError(common.ClassAcquisitionUnavailable, "textacq",
			"read ocr response", err)
	}

	if resp.StatusCode >= 500 {
		c.logger.Error("ocr.recognize.server_error",
			"req_id", rid, "status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewPipelineError(common.ClassAcquisitionUnavailable, "textacq",
			fmt.Sprintf("ocr service status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", common.NewPipelineError(common.ClassAcquisition, "textacq",
			fmt.Sprintf("ocr service status %d: %s", resp.StatusCode, truncate(string(raw), 512)), nil)
	}

	var out recognizeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", common.NewPipelineError(common.ClassAcquisition, "textacq",
			"decode ocr response", err)
	}
	if !out.Success {
		return "", common.NewPipelineError(common.ClassAcquisition, "textacq",
			"ocr service rejected page: "+out.Error, nil)
	}

	c.logger.Debug("ocr.recognize.ok",
		"req_id", rid,
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Text, nil
}

// Health probes GET /health. Used at startup and by the batch runner
// before committing to optical acquisition.
func (c *Client) Health(ctx context.Context) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return common.NewPipelineError(common.ClassAcquisitionUnavailable, "textacq",
			"ocr service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return common.NewPipelineError(common.ClassAcquisitionUnavailable, "textacq",
			fmt.Sprintf("ocr health status %d", resp.StatusCode), nil)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
