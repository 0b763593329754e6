// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// SortPapers orders papers in place by the given criteria: compare by
// the first level, break ties with the next, and so on. The sort is
// stable, so records tying on every level keep their input order.
// Unrecognized fields compare as ties.
func SortPapers(papers []types.Paper, criteria []types.SortCriterion) {
	if len(criteria) == 0 {
		return
	}
	sort.SliceStable(papers, func(i, j int) bool {
		for _, c := range criteria {
			cmp := comparePapers(&papers[i], &papers[j], c.Field)
			if cmp == 0 {
				continue
			}
			if c.Descending() {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// ValidateSortCriteria rejects unknown sort fields early so a config
// typo fails the run instead of silently sorting by nothing.
func ValidateSortCriteria(criteria []types.SortCriterion) error {
	for _, c := range criteria {
		switch c.Field {
		case types.SortBySubmitted, types.SortByUpdated, types.SortByRelevance, types.SortByTitle:
		default:
			return &UnknownSortFieldError{Field: string(c.Field)}
		}
		switch c.Direction {
		case "", types.SortAsc, types.SortDesc:
		default:
			return &UnknownSortFieldError{Field: string(c.Field), Direction: c.Direction}
		}
	}
	return nil
}

// UnknownSortFieldError reports an unusable sort criterion.
type UnknownSortFieldError struct {
	Field     string
	Direction string
}

func (e *UnknownSortFieldError) Error() string {
	if e.Direction != "" {
		return "unknown sort direction \"" + e.Direction + "\" for field \"" + e.Field + "\": use asc or desc"
	}
	return "unknown sort field \"" + e.Field + "\": use submitted, updated, relevance, or title"
}

func comparePapers(a, b *types.Paper, field types.SortField) int {
	switch field {
	case types.SortBySubmitted:
		return compareTimes(a.Published, b.Published)
	case types.SortByUpdated:
		return compareTimes(a.Updated, b.Updated)
	case types.SortByRelevance:
		switch {
		case a.Score() < b.Score():
			return -1
		case a.Score() > b.Score():
			return 1
		}
		return 0
	case types.SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
