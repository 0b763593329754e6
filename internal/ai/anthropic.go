// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// Default settings for the Anthropic client.
const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicDefaultModel   = "claude-3-5-haiku-latest"

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	cfg    types.ProviderConfig
	client *http.Client
}

func newAnthropic(pc types.ProviderConfig) (*AnthropicClient, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key required (set ai.anthropic.api_key or .secrets/anthropic-api-key)")
	}
	if pc.BaseURL == "" {
		pc.BaseURL = anthropicDefaultBaseURL
	}
	if pc.Model == "" {
		pc.Model = anthropicDefaultModel
	}
	if pc.MaxTokens == 0 {
		// The Messages API rejects requests without max_tokens.
		pc.MaxTokens = defaultMaxTokens
	}
	return &AnthropicClient{
		cfg:    pc,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

// Provider implements Client.
func (c *AnthropicClient) Provider() string { return "anthropic" }

// anthropicRequest is the request body for /v1/messages.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from /v1/messages.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(anthropicRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", wrapTransport("anthropic", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus("anthropic", resp.StatusCode, body)
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", Transient(fmt.Errorf("decoding anthropic response: %w", err))
	}
	if aResp.Error != nil {
		return "", Permanent(fmt.Errorf("anthropic API error: %s", aResp.Error.Message))
	}

	var text strings.Builder
	for _, block := range aResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", Transient(fmt.Errorf("anthropic API returned empty completion"))
	}
	return out, nil
}
