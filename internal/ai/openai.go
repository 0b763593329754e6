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

// Default settings for the OpenAI client.
const (
	openaiDefaultBaseURL = "https://api.openai.com"
	openaiDefaultModel   = "gpt-4o-mini"
)

// OpenAIClient calls the OpenAI chat completions API. The same wire
// format serves OpenAI-compatible gateways via BaseURL.
type OpenAIClient struct {
	cfg    types.ProviderConfig
	client *http.Client
}

func newOpenAI(pc types.ProviderConfig) (*OpenAIClient, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("openai: API key required (set ai.openai.api_key or .secrets/openai-api-key)")
	}
	if pc.BaseURL == "" {
		pc.BaseURL = openaiDefaultBaseURL
	}
	if pc.Model == "" {
		pc.Model = openaiDefaultModel
	}
	if pc.MaxTokens == 0 {
		pc.MaxTokens = defaultMaxTokens
	}
	return &OpenAIClient{
		cfg:    pc,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

// Provider implements Client.
func (c *OpenAIClient) Provider() string { return "openai" }

// openaiRequest is the request body for /v1/chat/completions.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the response body from /v1/chat/completions.
type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openaiMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.Prompt})

	bodyBytes, err := json.Marshal(openaiRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", wrapTransport("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus("openai", resp.StatusCode, body)
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", Transient(fmt.Errorf("decoding openai response: %w", err))
	}
	if oResp.Error != nil {
		return "", Permanent(fmt.Errorf("openai API error: %s", oResp.Error.Message))
	}
	if len(oResp.Choices) == 0 || strings.TrimSpace(oResp.Choices[0].Message.Content) == "" {
		return "", Transient(fmt.Errorf("openai API returned empty completion"))
	}
	return strings.TrimSpace(oResp.Choices[0].Message.Content), nil
}
