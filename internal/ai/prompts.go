// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// Built-in prompt templates, overridable per kind from a YAML file.
const (
	defaultFilterSystem = `You are a research assistant deciding whether papers match a reader's interests. Answer with JSON only.`

	defaultFilterTemplate = `Decide whether this paper is relevant to the research interests: {{.Keywords}}.

Title: {{.Title}}
Abstract: {{.Abstract}}
Categories: {{.Categories}}

Respond with a single JSON object: {"relevant": true or false, "confidence": a number between 0.0 and 1.0, "reason": "one sentence"}. No other text.`

	defaultSummaryTemplate = `Summarize this paper in four short sections, one paragraph each, using exactly these labels on their own lines:

Key idea:
Method:
Results:
Application:

Title: {{.Title}}
Authors: {{.Authors}}
Abstract: {{.Abstract}}`

	defaultTranslationTemplate = `Translate the following paper title and abstract into {{.Language}}. Keep established technical terms in English where customary. Return only the translation, title first.

Title: {{.Title}}
Abstract: {{.Abstract}}`

	defaultInsightsTemplate = `List up to five practical takeaways from this paper for a working engineer. Respond with a JSON array of short strings only, no other text.

Title: {{.Title}}
Abstract: {{.Abstract}}`
)

// Prompt is one template pair: an optional system prompt and the user
// prompt template in text/template syntax.
type Prompt struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`

	tmpl *template.Template
}

// PromptData is the per-paper data rendered into the templates.
type PromptData struct {
	Title      string
	Authors    string
	Abstract   string
	Categories string

	// Keywords is the filter interest list, comma-joined.
	Keywords string

	// Language is the translation target language.
	Language string
}

// PromptSet holds the active prompt for each artifact kind.
type PromptSet struct {
	prompts map[types.ArtifactKind]*Prompt

	// unknownSig is set when an override file existed but could not be
	// used; the signature degrades to "unknown" so cached artifacts
	// produced under a readable prompt set are not served by accident.
	unknownSig bool
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() *PromptSet {
	set := &PromptSet{prompts: map[types.ArtifactKind]*Prompt{
		types.KindFilter:      {System: defaultFilterSystem, Template: defaultFilterTemplate},
		types.KindSummary:     {Template: defaultSummaryTemplate},
		types.KindTranslation: {Template: defaultTranslationTemplate},
		types.KindInsights:    {Template: defaultInsightsTemplate},
	}}
	for kind, p := range set.prompts {
		p.tmpl = template.Must(template.New(string(kind)).Parse(p.Template))
	}
	return set
}

// promptFile is the YAML shape of a prompt override file. Absent kinds
// keep their defaults.
type promptFile struct {
	Filter      *Prompt `yaml:"filter"`
	Summary     *Prompt `yaml:"summary"`
	Translation *Prompt `yaml:"translation"`
	Insights    *Prompt `yaml:"insights"`
}

// LoadPrompts returns the default set overlaid with any overrides in
// path. Failures are soft: a missing file is not an error; an
// unreadable or malformed file returns the defaults plus a warning
// error, with the signature degraded to "unknown".
func LoadPrompts(path string) (*PromptSet, error) {
	set := DefaultPrompts()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		set.unknownSig = true
		return set, fmt.Errorf("reading prompts file %s: %w", path, err)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		set.unknownSig = true
		return set, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}

	overrides := map[types.ArtifactKind]*Prompt{
		types.KindFilter:      pf.Filter,
		types.KindSummary:     pf.Summary,
		types.KindTranslation: pf.Translation,
		types.KindInsights:    pf.Insights,
	}
	for kind, p := range overrides {
		if p == nil || p.Template == "" {
			continue
		}
		tmpl, err := template.New(string(kind)).Parse(p.Template)
		if err != nil {
			set.unknownSig = true
			return set, fmt.Errorf("parsing %s prompt template: %w", kind, err)
		}
		p.tmpl = tmpl
		set.prompts[kind] = p
	}
	return set, nil
}

// Render produces the completion request for one kind and paper.
func (s *PromptSet) Render(kind types.ArtifactKind, data PromptData) (Request, error) {
	p, ok := s.prompts[kind]
	if !ok {
		return Request{}, fmt.Errorf("no prompt for artifact kind %q", kind)
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return Request{}, fmt.Errorf("rendering %s prompt: %w", kind, err)
	}
	return Request{System: p.System, Prompt: buf.String()}, nil
}

// Signature returns a normalized representation of the prompt text for
// the given kinds, in the given order, for use in cache fingerprints.
// Normalization ignores surrounding whitespace and line-ending style so
// incidental editing does not invalidate caches. A degraded set always
// reports "unknown".
func (s *PromptSet) Signature(kinds ...types.ArtifactKind) string {
	if s.unknownSig {
		return "unknown"
	}
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		p, ok := s.prompts[kind]
		if !ok {
			continue
		}
		parts = append(parts, string(kind)+"\x1f"+normalizePrompt(p.System)+"\x1f"+normalizePrompt(p.Template))
	}
	return strings.Join(parts, "\x1e")
}

func normalizePrompt(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}
