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

// Default settings for the Ollama client.
const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "qwen2.5:7b"
)

// OllamaClient calls a local Ollama server. No authentication; slow
// local models are expected, so the HTTP timeout is generous.
type OllamaClient struct {
	cfg    types.ProviderConfig
	client *http.Client
}

func newOllama(pc types.ProviderConfig) *OllamaClient {
	if pc.BaseURL == "" {
		pc.BaseURL = ollamaDefaultBaseURL
	}
	if pc.Model == "" {
		pc.Model = ollamaDefaultModel
	}
	return &OllamaClient{
		cfg:    pc,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Provider implements Client.
func (c *OllamaClient) Provider() string { return "ollama" }

// ollamaRequest is the request body for /api/generate.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ollamaResponse is the non-streaming response from /api/generate.
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Complete implements Client.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(ollamaRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", wrapTransport("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus("ollama", resp.StatusCode, body)
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", Transient(fmt.Errorf("decoding ollama response: %w", err))
	}
	if oResp.Error != "" {
		// Ollama reports missing models and bad parameters here.
		return "", Permanent(fmt.Errorf("ollama error: %s", oResp.Error))
	}
	out := strings.TrimSpace(oResp.Response)
	if out == "" {
		return "", Transient(fmt.Errorf("ollama returned empty completion"))
	}
	return out, nil
}
