// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// fingerprintPayload is the canonical form hashed into a cache
// fingerprint. Field order is fixed by the struct; two configurations
// hash equal exactly when every field is equal.
type fingerprintPayload struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	BaseURL     string   `json:"base_url"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Prompts     string   `json:"prompts"`
	Keywords    []string `json:"keywords,omitempty"`
}

// EnrichmentKey fingerprints the configuration guarding the summary,
// translation, and insights artifacts: provider identity, connection
// settings, and the normalized enrichment prompt text (promptSig).
// The API key is not part of the identity; rotating credentials must
// not invalidate the cache.
func EnrichmentKey(provider string, pc types.ProviderConfig, promptSig string) string {
	return fingerprint(fingerprintPayload{
		Provider:    provider,
		Model:       pc.Model,
		BaseURL:     pc.BaseURL,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Prompts:     promptSig,
	})
}

// FilterKey fingerprints the configuration guarding the filter verdict.
// It covers the filter prompt and the filter keyword list but none of
// the enrichment prompts, so editing the filter setup never invalidates
// cached enrichment artifacts, and vice versa.
func FilterKey(provider string, pc types.ProviderConfig, promptSig string, keywords []string) string {
	return fingerprint(fingerprintPayload{
		Provider:    provider,
		Model:       pc.Model,
		BaseURL:     pc.BaseURL,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Prompts:     promptSig,
		Keywords:    keywords,
	})
}

func fingerprint(p fingerprintPayload) string {
	b, err := json.Marshal(p)
	if err != nil {
		// Marshalling a flat struct of strings and numbers cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
