// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the enriched paper set as a Markdown digest
// and exports it as JSON and CSV. The digest leads with a table of
// contents and puts insights above the abstract so a reader can scan
// the day's papers quickly.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// timeNow is replaceable in tests.
var timeNow = time.Now

// fileStamp is the timestamp layout used in output filenames.
const fileStamp = "20060102_150405"

// maxSlugLen caps anchor slugs, matching the contents links.
const maxSlugLen = 50

// Meta identifies one pipeline run in the report header and in
// notification payloads.
type Meta struct {
	// RunID is a fresh UUID for this run.
	RunID string

	// GeneratedAt is the report generation time.
	GeneratedAt time.Time

	// Keywords are the search keywords, shown in the header.
	Keywords []string
}

// NewMeta stamps a new run with an ID and the current time.
func NewMeta(keywords []string) Meta {
	return Meta{
		RunID:       uuid.New().String(),
		GeneratedAt: timeNow(),
		Keywords:    keywords,
	}
}

// Render produces the Markdown digest for a paper set. The include
// flags control which AI sections appear; a section that is enabled
// but absent on a paper renders a placeholder instead of vanishing, so
// degraded papers are visible in the report.
func Render(papers []types.Paper, meta Meta, include types.EnrichConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# ArXiv Paper Digest\n\n")
	fmt.Fprintf(&b, "**Generated**: %s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Run ID**: %s\n", meta.RunID)
	fmt.Fprintf(&b, "**Papers**: %d\n", len(papers))
	if len(meta.Keywords) > 0 {
		fmt.Fprintf(&b, "**Keywords**: %s\n", strings.Join(meta.Keywords, ", "))
	}
	b.WriteString("\n---\n\n")

	if len(papers) > 0 {
		b.WriteString("## Contents\n\n")
		for i, p := range papers {
			title := cleanLinkText(p.Title)
			fmt.Fprintf(&b, "%d. [%s](#%d-%s)\n", i+1, title, i+1, slugify(p.Title))
		}
		b.WriteString("\n---\n\n")
	}

	for i, p := range papers {
		renderPaper(&b, &p, i+1, include)
		b.WriteString("\n---\n\n")
	}

	b.WriteString("## About\n\n")
	b.WriteString("Generated by arxiv-agent from [arXiv.org](https://arxiv.org/) data.\n")
	if include.Summary || include.Translation || include.Insights {
		b.WriteString("AI-generated sections are for reference only.\n")
	}
	return b.String()
}

func renderPaper(b *strings.Builder, p *types.Paper, index int, include types.EnrichConfig) {
	fmt.Fprintf(b, "## %d. %s\n\n", index, p.Title)

	link := p.Link
	if link == "" {
		link = "https://arxiv.org/abs/" + p.ArxivID
	}
	fmt.Fprintf(b, "- **arXiv**: [%s](%s)", p.ArxivID, link)
	if p.PDFURL != "" {
		fmt.Fprintf(b, " ([PDF](%s))", p.PDFURL)
	}
	b.WriteString("\n")

	if len(p.Authors) > 0 {
		fmt.Fprintf(b, "- **Authors**: %s\n", formatAuthors(p.Authors))
	}
	if !p.Published.IsZero() {
		fmt.Fprintf(b, "- **Published**: %s\n", p.Published.Format("2006-01-02"))
	}
	if len(p.Categories) > 0 {
		fmt.Fprintf(b, "- **Categories**: %s\n", formatCategories(p.Categories))
	}
	if p.RelevanceScore != nil {
		fmt.Fprintf(b, "- **Relevance**: %.3f\n", *p.RelevanceScore)
	}
	if v := p.AI.FilterVerdict; v != nil {
		verdict := "relevant"
		if !v.Relevant {
			verdict = "not relevant"
		}
		fmt.Fprintf(b, "- **Filter**: %s (confidence %.2f)", verdict, v.Confidence)
		if v.Reason != "" {
			fmt.Fprintf(b, ": %s", v.Reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if include.Insights {
		b.WriteString("### Insights\n\n")
		if len(p.AI.Insights) > 0 {
			for _, ins := range p.AI.Insights {
				fmt.Fprintf(b, "- %s\n", ins)
			}
		} else {
			b.WriteString("> Not available.\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("### Abstract\n\n")
	if p.Abstract != "" {
		fmt.Fprintf(b, "> %s\n", p.Abstract)
	} else {
		b.WriteString("> No abstract.\n")
	}
	b.WriteString("\n")

	if include.Translation {
		b.WriteString("### Translation\n\n")
		if p.AI.Translation != "" {
			fmt.Fprintf(b, "> %s\n", p.AI.Translation)
		} else {
			b.WriteString("> Not available.\n")
		}
		b.WriteString("\n")
	}

	if include.Summary {
		b.WriteString("### Summary\n\n")
		renderSummary(b, p.AI.Summary)
	}
}

func renderSummary(b *strings.Builder, s *types.Summary) {
	if s.IsZero() {
		b.WriteString("> Not available.\n")
		return
	}
	sections := []struct {
		label string
		text  string
	}{
		{"Key idea", s.KeyIdea},
		{"Method", s.Method},
		{"Results", s.Results},
		{"Application", s.Application},
	}
	wrote := false
	for _, sec := range sections {
		if sec.text == "" {
			continue
		}
		fmt.Fprintf(b, "**%s**: %s\n\n", sec.label, sec.text)
		wrote = true
	}
	if !wrote {
		// Parsing failed upstream; show the model output verbatim.
		fmt.Fprintf(b, "%s\n", s.Raw)
	}
}

func formatAuthors(authors []string) string {
	const max = 5
	if len(authors) <= max {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:max], ", ") +
		fmt.Sprintf(" and %d more", len(authors)-max)
}

func formatCategories(cats []string) string {
	const max = 5
	if len(cats) > max {
		cats = cats[:max]
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = "`" + c + "`"
	}
	return strings.Join(out, " ")
}

// cleanLinkText strips characters that break Markdown link syntax.
func cleanLinkText(s string) string {
	return strings.NewReplacer("[", "", "]", "", "#", "").Replace(s)
}

// slugify lowercases, drops punctuation, and hyphenates a title for
// use as an anchor, capped at 50 runes.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	runes := []rune(slug)
	if len(runes) > maxSlugLen {
		slug = string(runes[:maxSlugLen])
	}
	return slug
}

// SaveMarkdown writes the rendered digest under dir, named by the run
// timestamp, and returns the file path.
func SaveMarkdown(dir string, meta Meta, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "arxiv_report_"+meta.GeneratedAt.Format(fileStamp)+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// SaveJSON writes the paper set as an indented JSON array and returns
// the file path. The file round-trips through LoadPapers.
func SaveJSON(dir string, meta Meta, papers []types.Paper) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding papers: %w", err)
	}
	path := filepath.Join(dir, "papers_"+meta.GeneratedAt.Format(fileStamp)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing papers JSON: %w", err)
	}
	return path, nil
}

// LoadPapers reads a paper set previously written by SaveJSON.
func LoadPapers(path string) ([]types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}
	var papers []types.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing papers %s: %w", path, err)
	}
	return papers, nil
}

// csvHeader lists the flat columns of the CSV export. List fields are
// joined with "; ".
var csvHeader = []string{
	"arxiv_id", "title", "authors", "abstract", "categories",
	"published", "updated", "link", "pdf_url",
	"relevance_score", "filter_relevant", "filter_confidence",
	"translation", "insights",
}

// SaveCSV writes a flat CSV of the paper set and returns the file path.
func SaveCSV(dir string, meta Meta, papers []types.Paper) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "papers_"+meta.GeneratedAt.Format(fileStamp)+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating papers CSV: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	for i := range papers {
		if err := w.Write(csvRow(&papers[i])); err != nil {
			return "", fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV: %w", err)
	}
	return path, nil
}

func csvRow(p *types.Paper) []string {
	score := ""
	if p.RelevanceScore != nil {
		score = strconv.FormatFloat(*p.RelevanceScore, 'f', 3, 64)
	}
	relevant, confidence := "", ""
	if v := p.AI.FilterVerdict; v != nil {
		relevant = strconv.FormatBool(v.Relevant)
		confidence = strconv.FormatFloat(v.Confidence, 'f', 2, 64)
	}
	return []string{
		p.ArxivID,
		p.Title,
		strings.Join(p.Authors, "; "),
		p.Abstract,
		strings.Join(p.Categories, "; "),
		formatTime(p.Published),
		formatTime(p.Updated),
		p.Link,
		p.PDFURL,
		score,
		relevant,
		confidence,
		p.AI.Translation,
		strings.Join(p.AI.Insights, "; "),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
