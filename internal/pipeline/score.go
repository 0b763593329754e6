// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// Relevance weights. A title match counts once, an abstract match
// counts once per distinct keyword, a category overlap counts once.
const (
	titleWeight    = 5.0
	abstractWeight = 3.0
	categoryWeight = 2.0
)

// Score computes a keyword relevance score in [0,1] for one paper.
// Matching is case-insensitive substring. Repeat occurrences of the
// same keyword in the abstract do not accumulate beyond its one
// credit, which keeps the normalized scale bounded.
func Score(p types.Paper, keywords, categories []string) float64 {
	maxScore := titleWeight + abstractWeight*float64(len(keywords)) + categoryWeight

	title := strings.ToLower(p.Title)
	abstract := strings.ToLower(p.Abstract)

	var score float64
	titleMatched := false
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if !titleMatched && strings.Contains(title, kw) {
			score += titleWeight
			titleMatched = true
		}
		if strings.Contains(abstract, kw) {
			score += abstractWeight
		}
	}

	if intersects(p.Categories, categories) {
		score += categoryWeight
	}

	return score / maxScore
}

// ScorePapers populates RelevanceScore on every paper in place. When
// the relevant-category set is empty the search categories stand in,
// so a category-constrained query still earns the category weight.
func ScorePapers(papers []types.Paper, keywords, categories []string) {
	for i := range papers {
		s := Score(papers[i], keywords, categories)
		papers[i].RelevanceScore = &s
	}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = true
	}
	for _, v := range b {
		if set[strings.ToLower(v)] {
			return true
		}
	}
	return false
}
