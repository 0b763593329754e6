// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-agent pipeline:
// the Paper record flowing through every stage, the AI artifact shapes
// produced by the enrichment stage, and the sort criteria understood by the
// multi-level sorter.
package types

import "time"

// Paper represents one arXiv paper as it flows through the pipeline.
// Search populates the metadata fields; the scorer and the enrichment
// stage fill in RelevanceScore and AI.
type Paper struct {
	// ArxivID is the stable identifier extracted from the abstract URL,
	// without version suffix (e.g. "2301.07041").
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Title is the paper title with feed whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Categories lists arXiv category codes (e.g. "cs.CL").
	Categories []string `json:"categories" yaml:"categories"`

	// Published is the first-submission time reported by the feed.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the last-modified time reported by the feed. Together
	// with ArxivID it forms the cache identity key, so a revised paper
	// is treated as new.
	Updated time.Time `json:"updated" yaml:"updated"`

	// Link is the abstract page URL.
	Link string `json:"link" yaml:"link"`

	// PDFURL is the direct PDF download URL.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// RelevanceScore is a value in [0,1] populated by the relevance
	// scorer when scoring is enabled; nil otherwise.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// AI holds the optional artifacts produced by the enrichment stage.
	AI AIArtifacts `json:"ai" yaml:"ai"`
}

// Score returns the relevance score, or 0 when the scorer did not run.
func (p *Paper) Score() float64 {
	if p.RelevanceScore == nil {
		return 0
	}
	return *p.RelevanceScore
}

// AIArtifacts groups the per-paper outputs of the enrichment stage.
// Each field is independent: one failing to generate leaves the others
// intact.
type AIArtifacts struct {
	// Summary is the structured four-section digest.
	Summary *Summary `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Translation is the translated title and abstract.
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`

	// Insights lists up to five short takeaways.
	Insights []string `json:"insights,omitempty" yaml:"insights,omitempty"`

	// FilterVerdict is the relevance verdict from the AI filter phase.
	FilterVerdict *FilterVerdict `json:"filter_verdict,omitempty" yaml:"filter_verdict,omitempty"`
}

// Summary is a four-section digest of a paper. The sections mirror the
// labels requested by the summary prompt; Raw preserves the model output
// verbatim when section parsing fails.
type Summary struct {
	KeyIdea     string `json:"key_idea,omitempty" yaml:"key_idea,omitempty"`
	Method      string `json:"method,omitempty" yaml:"method,omitempty"`
	Results     string `json:"results,omitempty" yaml:"results,omitempty"`
	Application string `json:"application,omitempty" yaml:"application,omitempty"`
	Raw         string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// IsZero reports whether no section and no raw text is present.
func (s *Summary) IsZero() bool {
	return s == nil || (s.KeyIdea == "" && s.Method == "" && s.Results == "" &&
		s.Application == "" && s.Raw == "")
}

// FilterVerdict is the outcome of one AI filter call.
type FilterVerdict struct {
	// Relevant is the model's yes/no judgment.
	Relevant bool `json:"relevant" yaml:"relevant"`

	// Confidence is the model's self-reported confidence in [0,1].
	// A paper is retained when Confidence >= the configured threshold.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Reason is the model's one-line rationale.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ArtifactKind identifies one unit of AI work. It is the granularity of
// both cache entries and enrichment dispatch.
type ArtifactKind string

const (
	KindFilter      ArtifactKind = "filter"
	KindSummary     ArtifactKind = "summary"
	KindTranslation ArtifactKind = "translation"
	KindInsights    ArtifactKind = "insights"
)

// SortField names a paper attribute the multi-level sorter can order by.
type SortField string

const (
	SortBySubmitted SortField = "submitted"
	SortByUpdated   SortField = "updated"
	SortByRelevance SortField = "relevance"
	SortByTitle     SortField = "title"
)

// Sort directions accepted in SortCriterion.Direction.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortCriterion is one level of the multi-level sort: a field and a
// direction. Criteria are applied in order; later levels break ties.
type SortCriterion struct {
	// Field selects the attribute to compare.
	Field SortField `json:"field" yaml:"field"`

	// Direction is "asc" or "desc" (default "desc").
	Direction string `json:"direction" yaml:"direction"`
}

// Descending reports whether this level orders high-to-low. An empty
// direction defaults to descending, matching the feed's newest-first bias.
func (c SortCriterion) Descending() bool {
	return c.Direction != SortAsc
}
