// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/arxiv-agent/pkg/types"

// Deduplicate returns papers with exactly one record per distinct
// ArxivID, preserving first-seen order. Feed pages overlap when new
// submissions shift results between requests, so duplicates are
// expected input, not an error.
func Deduplicate(papers []types.Paper) []types.Paper {
	seen := make(map[string]bool, len(papers))
	out := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if seen[p.ArxivID] {
			continue
		}
		seen[p.ArxivID] = true
		out = append(out, p)
	}
	return out
}
