// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/arxiv-agent/internal/cache"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// maxInsights caps the takeaway list regardless of how chatty the
// model is.
const maxInsights = 5

// parseArtifact converts raw model output into the typed artifact for
// one kind. Parsers tolerate markdown fences and label drift; output
// that yields no usable artifact at all is an error, so the field
// degrades to absent instead of caching junk.
func parseArtifact(kind types.ArtifactKind, text string) (cache.Artifact, error) {
	switch kind {
	case types.KindFilter:
		v, err := parseFilterVerdict(text)
		return cache.Artifact{Filter: v}, err
	case types.KindSummary:
		return cache.Artifact{Summary: parseSummary(text)}, nil
	case types.KindTranslation:
		t := strings.TrimSpace(text)
		if t == "" {
			return cache.Artifact{}, fmt.Errorf("empty translation")
		}
		return cache.Artifact{Translation: t}, nil
	case types.KindInsights:
		insights, err := parseInsights(text)
		return cache.Artifact{Insights: insights}, err
	}
	return cache.Artifact{}, fmt.Errorf("unknown artifact kind %q", kind)
}

// parseFilterVerdict reads the JSON verdict the filter prompt demands.
// Confidence is clamped into [0,1].
func parseFilterVerdict(text string) (*types.FilterVerdict, error) {
	body := stripCodeFence(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in filter response")
	}

	var v types.FilterVerdict
	if err := json.Unmarshal([]byte(body[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("parsing filter verdict: %w", err)
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	return &v, nil
}

// summaryLabels maps the section labels the summary prompt requests to
// their fields. Matching is case-insensitive on the line prefix.
var summaryLabels = []struct {
	label string
	set   func(*types.Summary, string)
}{
	{"key idea:", func(s *types.Summary, v string) { s.KeyIdea = v }},
	{"method:", func(s *types.Summary, v string) { s.Method = v }},
	{"results:", func(s *types.Summary, v string) { s.Results = v }},
	{"application:", func(s *types.Summary, v string) { s.Application = v }},
}

// parseSummary splits model output into the four labeled sections.
// Output matching no label at all is kept verbatim in Raw, so a custom
// summary prompt with its own structure loses nothing.
func parseSummary(text string) *types.Summary {
	s := &types.Summary{}
	var current func(*types.Summary, string)
	var buf []string

	flush := func() {
		if current != nil {
			current(s, strings.TrimSpace(strings.Join(buf, "\n")))
		}
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		// Tolerate headings and bold markers around the label.
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "#*- ")
		matched := false
		for _, sl := range summaryLabels {
			if len(trimmed) >= len(sl.label) && strings.EqualFold(trimmed[:len(sl.label)], sl.label) {
				flush()
				current = sl.set
				if rest := strings.TrimLeft(strings.TrimSpace(trimmed[len(sl.label):]), "* "); rest != "" {
					buf = append(buf, rest)
				}
				matched = true
				break
			}
		}
		if !matched && current != nil {
			buf = append(buf, line)
		}
	}
	flush()

	if s.IsZero() {
		s.Raw = strings.TrimSpace(text)
	}
	return s
}

// parseInsights accepts the JSON array the default prompt requests, an
// {"insights": [...]} object some models produce instead, or a plain
// bulleted list. Blank items are dropped and the list is capped.
func parseInsights(text string) ([]string, error) {
	body := stripCodeFence(text)

	var arr []string
	if err := json.Unmarshal([]byte(body), &arr); err == nil {
		return capInsights(arr)
	}
	var obj struct {
		Insights []string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(body), &obj); err == nil && len(obj.Insights) > 0 {
		return capInsights(obj.Insights)
	}

	var insights []string
	for _, line := range strings.Split(body, "\n") {
		if item, ok := trimBullet(strings.TrimSpace(line)); ok {
			insights = append(insights, item)
		}
	}
	return capInsights(insights)
}

// trimBullet strips a leading list marker ("- ", "* ", "• ", "1.") and
// reports whether the line was a list item.
func trimBullet(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	if len(line) > 2 && line[0] >= '1' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

func capInsights(list []string) ([]string, error) {
	out := make([]string, 0, maxInsights)
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxInsights {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no insights in response")
	}
	return out, nil
}

// stripCodeFence unwraps a ```json ... ``` or ``` ... ``` block,
// returning the inner text; text without a fence passes through
// trimmed.
func stripCodeFence(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(text)
}
