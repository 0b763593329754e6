// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

func testMeta() Meta {
	return Meta{
		RunID:       "run-123",
		GeneratedAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		Keywords:    []string{"agents", "rag"},
	}
}

func allSections() types.EnrichConfig {
	return types.EnrichConfig{Summary: true, Translation: true, Insights: true}
}

func enrichedPaper() types.Paper {
	score := 0.75
	return types.Paper{
		ArxivID:        "2301.07041",
		Title:          "Planning Agents",
		Authors:        []string{"Alice Smith", "Bob Jones"},
		Abstract:       "We study planning agents.",
		Categories:     []string{"cs.CL", "cs.AI"},
		Published:      time.Date(2026, 2, 18, 8, 0, 0, 0, time.UTC),
		Updated:        time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC),
		Link:           "http://arxiv.org/abs/2301.07041v1",
		PDFURL:         "http://arxiv.org/pdf/2301.07041v1",
		RelevanceScore: &score,
		AI: types.AIArtifacts{
			Summary: &types.Summary{
				KeyIdea:     "Agents plan.",
				Method:      "Tree search.",
				Results:     "Better plans.",
				Application: "Robotics.",
			},
			Translation:   "规划智能体研究。",
			Insights:      []string{"First takeaway", "Second takeaway"},
			FilterVerdict: &types.FilterVerdict{Relevant: true, Confidence: 0.92, Reason: "matches interests"},
		},
	}
}

// --- Rendering ---

func TestRenderHeader(t *testing.T) {
	md := Render([]types.Paper{enrichedPaper()}, testMeta(), allSections())

	for _, want := range []string{
		"# ArXiv Paper Digest",
		"**Generated**: 2026-03-15 09:30:00",
		"**Run ID**: run-123",
		"**Papers**: 1",
		"**Keywords**: agents, rag",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderContents(t *testing.T) {
	a := enrichedPaper()
	b := enrichedPaper()
	b.ArxivID = "2301.07042"
	b.Title = "Retrieval for Science!"

	md := Render([]types.Paper{a, b}, testMeta(), allSections())

	if !strings.Contains(md, "1. [Planning Agents](#1-planning-agents)") {
		t.Errorf("contents missing first entry:\n%s", md)
	}
	if !strings.Contains(md, "2. [Retrieval for Science!](#2-retrieval-for-science)") {
		t.Errorf("contents missing second entry:\n%s", md)
	}
}

func TestRenderPaperSections(t *testing.T) {
	md := Render([]types.Paper{enrichedPaper()}, testMeta(), allSections())

	for _, want := range []string{
		"## 1. Planning Agents",
		"- **arXiv**: [2301.07041](http://arxiv.org/abs/2301.07041v1) ([PDF](http://arxiv.org/pdf/2301.07041v1))",
		"- **Authors**: Alice Smith, Bob Jones",
		"- **Published**: 2026-02-18",
		"- **Categories**: `cs.CL` `cs.AI`",
		"- **Relevance**: 0.750",
		"- **Filter**: relevant (confidence 0.92): matches interests",
		"- First takeaway",
		"> We study planning agents.",
		"> 规划智能体研究。",
		"**Key idea**: Agents plan.",
		"**Method**: Tree search.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Insights come before the abstract for quick scanning.
	if strings.Index(md, "### Insights") > strings.Index(md, "### Abstract") {
		t.Error("insights section should precede the abstract")
	}
}

func TestRenderPlaceholdersForMissingArtifacts(t *testing.T) {
	p := enrichedPaper()
	p.AI = types.AIArtifacts{}

	md := Render([]types.Paper{p}, testMeta(), allSections())

	if got := strings.Count(md, "> Not available."); got != 3 {
		t.Errorf("placeholder count = %d, want 3 (insights, translation, summary)", got)
	}
}

func TestRenderDisabledSectionsOmitted(t *testing.T) {
	md := Render([]types.Paper{enrichedPaper()}, testMeta(), types.EnrichConfig{})

	for _, section := range []string{"### Insights", "### Translation", "### Summary"} {
		if strings.Contains(md, section) {
			t.Errorf("disabled section %q still rendered", section)
		}
	}
	// The abstract always renders.
	if !strings.Contains(md, "### Abstract") {
		t.Error("abstract section missing")
	}
}

func TestRenderSummaryRawFallback(t *testing.T) {
	p := enrichedPaper()
	p.AI.Summary = &types.Summary{Raw: "unstructured model output"}

	md := Render([]types.Paper{p}, testMeta(), allSections())

	if !strings.Contains(md, "unstructured model output") {
		t.Error("raw summary text missing")
	}
	if strings.Contains(md, "**Key idea**") {
		t.Error("labeled sections rendered for a raw-only summary")
	}
}

func TestRenderNotRelevantVerdict(t *testing.T) {
	p := enrichedPaper()
	p.AI.FilterVerdict = &types.FilterVerdict{Relevant: false, Confidence: 0.3}

	md := Render([]types.Paper{p}, testMeta(), allSections())
	if !strings.Contains(md, "- **Filter**: not relevant (confidence 0.30)") {
		t.Errorf("verdict line missing:\n%s", md)
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta([]string{"agents"})
	if len(m.RunID) != 36 {
		t.Errorf("RunID = %q, want a UUID", m.RunID)
	}
	if m.GeneratedAt.IsZero() {
		t.Error("GeneratedAt is zero")
	}
}

// --- Helpers ---

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Planning Agents", "planning-agents"},
		{"Retrieval for Science!", "retrieval-for-science"},
		{"A: B, C (D)", "a-b-c-d"},
		{"  spaced   out  ", "spaced-out"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 30)
	if got := slugify(long); len([]rune(got)) > 50 {
		t.Errorf("slug length = %d, want <= 50", len([]rune(got)))
	}
}

func TestFormatAuthors(t *testing.T) {
	few := []string{"A", "B"}
	if got := formatAuthors(few); got != "A, B" {
		t.Errorf("formatAuthors = %q", got)
	}
	many := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	if got := formatAuthors(many); got != "A, B, C, D, E and 3 more" {
		t.Errorf("formatAuthors = %q", got)
	}
}

// --- File outputs ---

func TestSaveAndLoadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	papers := []types.Paper{enrichedPaper()}

	path, err := SaveJSON(dir, testMeta(), papers)
	if err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if filepath.Base(path) != "papers_20260315_093000.json" {
		t.Errorf("filename = %q", filepath.Base(path))
	}

	loaded, err := LoadPapers(path)
	if err != nil {
		t.Fatalf("LoadPapers: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("len(loaded) = %d, want 1", len(loaded))
	}
	got := loaded[0]
	if got.ArxivID != "2301.07041" {
		t.Errorf("ArxivID = %q", got.ArxivID)
	}
	if got.AI.Translation != "规划智能体研究。" {
		t.Errorf("Translation = %q", got.AI.Translation)
	}
	if got.AI.Summary == nil || got.AI.Summary.KeyIdea != "Agents plan." {
		t.Errorf("Summary not preserved: %+v", got.AI.Summary)
	}
	if got.RelevanceScore == nil || *got.RelevanceScore != 0.75 {
		t.Errorf("RelevanceScore not preserved")
	}
}

func TestLoadPapersMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPapers(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestSaveCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveCSV(dir, testMeta(), []types.Paper{enrichedPaper()})
	if err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening CSV: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "arxiv_id" {
		t.Errorf("header[0] = %q", rows[0][0])
	}

	row := rows[1]
	if row[0] != "2301.07041" {
		t.Errorf("arxiv_id = %q", row[0])
	}
	if row[2] != "Alice Smith; Bob Jones" {
		t.Errorf("authors = %q", row[2])
	}
	if row[9] != "0.750" {
		t.Errorf("relevance_score = %q", row[9])
	}
	if row[10] != "true" || row[11] != "0.92" {
		t.Errorf("filter columns = %q, %q", row[10], row[11])
	}
	if row[13] != "First takeaway; Second takeaway" {
		t.Errorf("insights = %q", row[13])
	}
}

func TestSaveMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := SaveMarkdown(dir, testMeta(), "# digest\n")
	if err != nil {
		t.Fatalf("SaveMarkdown: %v", err)
	}
	if filepath.Base(path) != "arxiv_report_20260315_093000.md" {
		t.Errorf("filename = %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(data) != "# digest\n" {
		t.Errorf("content = %q", string(data))
	}
}
