// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the paper-processing stages: fetch,
// deduplicate, score, sort, and AI enrichment. The controller owns no
// I/O beyond progress output; the fetch source, the enricher, and the
// artifact cache are injected.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/arxiv-agent/internal/cache"
	"github.com/pdiddy/arxiv-agent/internal/enrich"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// Source produces candidate papers. Sources may return overlapping
// pages; the pipeline dedupes everything it gets back.
type Source interface {
	Fetch(ctx context.Context) ([]types.Paper, error)
}

// Enricher runs the AI filter and enrichment phases over a paper set.
type Enricher interface {
	Process(ctx context.Context, papers []types.Paper, w io.Writer) ([]types.Paper, enrich.Stats)
}

// Deps are the pipeline's injected collaborators. Enricher may be nil
// when AI processing is disabled; Cache may be nil when caching is
// disabled.
type Deps struct {
	Source   Source
	Enricher Enricher
	Cache    *cache.Store
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Papers is the final ordered, possibly enriched paper set.
	Papers []types.Paper

	// Fetched counts raw records returned by the source.
	Fetched int

	// Duplicates counts records removed by deduplication.
	Duplicates int

	// AIStats summarizes the enrichment stage; zero when AI is off.
	AIStats enrich.Stats
}

// FatalError marks a failure that prevents obtaining any candidate
// papers, which makes the rest of the run meaningless. Downstream
// degradation (failed AI calls, cache trouble) is never fatal.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "pipeline: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Run executes the pipeline: fetch, dedupe, score, sort, enrich. The
// cache is evicted to capacity and persisted exactly once before
// returning, on every path, including fetch failure and interrupt; a
// persist failure is reported as a warning, never as a run failure.
func Run(ctx context.Context, cfg types.Config, deps Deps, w io.Writer) (*Result, error) {
	if err := ValidateSortCriteria(cfg.Sort); err != nil {
		return nil, err
	}

	defer func() {
		if deps.Cache == nil {
			return
		}
		if n := deps.Cache.Evict(); n > 0 {
			fmt.Fprintf(w, "cache: evicted %d entries over capacity\n", n)
		}
		if err := deps.Cache.Persist(); err != nil {
			fmt.Fprintf(w, "warning: persisting cache: %v\n", err)
		}
	}()

	fmt.Fprintf(w, "searching arXiv: %d keywords, %d categories (max %d results)\n",
		len(cfg.Search.Keywords), len(cfg.Search.Categories), cfg.Search.MaxResults)

	papers, err := deps.Source.Fetch(ctx)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("fetching papers: %w", err)}
	}

	fetched := len(papers)
	papers = Deduplicate(papers)
	dups := fetched - len(papers)
	if dups > 0 {
		fmt.Fprintf(w, "fetched %d papers (%d duplicates removed)\n", fetched, dups)
	} else {
		fmt.Fprintf(w, "fetched %d papers\n", fetched)
	}

	res := &Result{Fetched: fetched, Duplicates: dups}
	if len(papers) == 0 {
		fmt.Fprintln(w, "no papers matched the query")
		return res, nil
	}

	if cfg.Relevance.Enabled && len(cfg.Search.Keywords) > 0 {
		cats := cfg.Relevance.Categories
		if len(cats) == 0 {
			cats = cfg.Search.Categories
		}
		ScorePapers(papers, cfg.Search.Keywords, cats)
		fmt.Fprintf(w, "scored %d papers against %d keywords\n", len(papers), len(cfg.Search.Keywords))
	}

	SortPapers(papers, cfg.Sort)

	if deps.Enricher != nil {
		papers, res.AIStats = deps.Enricher.Process(ctx, papers, w)
	}

	res.Papers = papers
	return res, nil
}
