// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers the rendered report to configured channels:
// a JSON webhook and SMTP email. Delivery failures are reported to the
// caller but never abort a run; the report file stays on disk either
// way.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/arxiv-agent/internal/report"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// reportPayload is the webhook body. Receivers key on Type to route
// the message.
type reportPayload struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Timestamp  string `json:"timestamp"`
	PaperCount int    `json:"paper_count"`
	Content    string `json:"content"`
	Format     string `json:"format"`
}

// SendWebhook posts the Markdown report to the configured webhook URL.
// Any 2xx response counts as delivered.
func SendWebhook(ctx context.Context, cfg types.WebhookConfig, meta report.Meta, paperCount int, content string) error {
	if cfg.URL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload := reportPayload{
		Type:       "arxiv_report",
		RunID:      meta.RunID,
		Timestamp:  meta.GeneratedAt.UTC().Format(time.RFC3339),
		PaperCount: paperCount,
		Content:    content,
		Format:     "markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
