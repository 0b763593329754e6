// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

var testPromptData = PromptData{
	Title:      "Attention Is All You Need",
	Authors:    "Vaswani et al.",
	Abstract:   "We propose the Transformer.",
	Categories: "cs.CL, cs.LG",
	Keywords:   "transformers, attention",
	Language:   "Chinese",
}

func TestDefaultPromptsRender(t *testing.T) {
	set := DefaultPrompts()

	tests := []struct {
		kind     types.ArtifactKind
		contains []string
	}{
		{types.KindFilter, []string{"transformers, attention", "Attention Is All You Need", `"relevant"`}},
		{types.KindSummary, []string{"Key idea:", "Method:", "Results:", "Application:", "Vaswani et al."}},
		{types.KindTranslation, []string{"Chinese", "We propose the Transformer."}},
		{types.KindInsights, []string{"JSON array", "Attention Is All You Need"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			req, err := set.Render(tt.kind, testPromptData)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(req.Prompt, want) {
					t.Errorf("%s prompt missing %q:\n%s", tt.kind, want, req.Prompt)
				}
			}
		})
	}

	// Only the filter carries a system prompt by default.
	req, err := set.Render(types.KindFilter, testPromptData)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if req.System == "" {
		t.Error("filter system prompt is empty")
	}
}

func TestLoadPromptsMissingFileUsesDefaults(t *testing.T) {
	set, err := LoadPrompts(filepath.Join(t.TempDir(), "prompts.yaml"))
	if err != nil {
		t.Fatalf("LoadPrompts of missing file warned: %v", err)
	}
	if set.Signature(types.KindFilter) != DefaultPrompts().Signature(types.KindFilter) {
		t.Error("missing file changed the prompt signature")
	}
}

func TestLoadPromptsOverridesOneKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	override := `filter:
  system: custom system
  template: "Is {{.Title}} about {{.Keywords}}? JSON only."
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}

	req, err := set.Render(types.KindFilter, testPromptData)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if req.System != "custom system" {
		t.Errorf("system = %q", req.System)
	}
	if !strings.Contains(req.Prompt, "Is Attention Is All You Need about transformers, attention?") {
		t.Errorf("override not rendered: %q", req.Prompt)
	}

	// Untouched kinds keep their defaults.
	defaults := DefaultPrompts()
	if set.Signature(types.KindSummary) != defaults.Signature(types.KindSummary) {
		t.Error("summary prompt changed by a filter-only override")
	}
	if set.Signature(types.KindFilter) == defaults.Signature(types.KindFilter) {
		t.Error("filter signature unchanged despite override")
	}
}

func TestLoadPromptsMalformedDegradesToUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("filter: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadPrompts(path)
	if err == nil {
		t.Fatal("LoadPrompts of malformed file returned no warning")
	}
	if sig := set.Signature(types.KindFilter); sig != "unknown" {
		t.Errorf("Signature = %q, want \"unknown\"", sig)
	}

	// The degraded set still renders with defaults.
	if _, err := set.Render(types.KindSummary, testPromptData); err != nil {
		t.Errorf("Render after degraded load: %v", err)
	}
}

func TestSignatureNormalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	// Same template text as the default, with incidental whitespace.
	override := "translation:\n  template: \"  " +
		strings.ReplaceAll(defaultTranslationTemplate, "\n", "\\n") + "\\n  \"\n"
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	if set.Signature(types.KindTranslation) != DefaultPrompts().Signature(types.KindTranslation) {
		t.Error("surrounding whitespace changed the signature")
	}
}

func TestSignatureOrderAndIsolation(t *testing.T) {
	set := DefaultPrompts()

	enrich := set.Signature(types.KindSummary, types.KindTranslation, types.KindInsights)
	filter := set.Signature(types.KindFilter)
	if enrich == filter {
		t.Error("enrichment and filter signatures are identical")
	}
	if set.Signature(types.KindSummary) == set.Signature(types.KindTranslation) {
		t.Error("distinct kinds share a signature")
	}

	// Deterministic across calls.
	if enrich != set.Signature(types.KindSummary, types.KindTranslation, types.KindInsights) {
		t.Error("signature not stable across calls")
	}
}
