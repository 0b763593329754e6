// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich decides, for each candidate paper, what AI work is
// needed and obtains it from the artifact cache or from the provider.
// It runs two phases: an optional filter phase that drops papers the
// model judges irrelevant, and an enrichment phase that fills in
// summary, translation, and insights. Cache misses are dispatched
// across a bounded worker pool; a failure degrades one field or
// retains one paper, never the whole run.
package enrich

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/arxiv-agent/internal/ai"
	"github.com/pdiddy/arxiv-agent/internal/cache"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

const (
	defaultMaxWorkers = 4
	defaultMaxRetries = 3
)

// retryBase controls the first backoff delay between attempts. Tests
// override this to avoid real sleeps.
var retryBase = 500 * time.Millisecond

// Stats holds counts from one orchestrator pass.
type Stats struct {
	// CacheHits counts artifacts served from the cache.
	CacheHits int

	// Calls counts provider calls that produced a usable artifact.
	Calls int

	// Fallbacks counts papers retained because their filter call
	// failed after retries.
	Fallbacks int

	// Dropped counts papers removed by a filter verdict.
	Dropped int

	// Failed counts enrichment calls that failed after retries.
	Failed int
}

// HasFailures reports whether any AI call failed after retries.
func (s Stats) HasFailures() bool {
	return s.Fallbacks > 0 || s.Failed > 0
}

// task is one unit of AI work: one artifact kind for one paper,
// addressed by its position in the paper slice.
type task struct {
	index int
	kind  types.ArtifactKind
}

// result carries one task outcome back to the collecting loop, which
// decides containment centrally instead of each worker deciding for
// itself.
type result struct {
	task
	artifact cache.Artifact
	err      error
}

// Orchestrator resolves AI artifacts for a set of papers, serving from
// the cache where fingerprints match and calling the provider
// otherwise.
type Orchestrator struct {
	cfg     types.AIConfig
	client  ai.Client
	prompts *ai.PromptSet
	cache   *cache.Store

	// keywords is the comma-joined filter interest list shown to the
	// filter prompt.
	keywords string
	language string

	enrichKey string
	filterKey string
}

// New builds an orchestrator for one run. The cache fingerprints are
// fixed here: the three enrichment artifacts share one fingerprint
// covering the enrichment prompts, and the filter verdict carries its
// own covering the filter prompt and keywords, so editing one side
// never invalidates the other. Filter keywords fall back to the search
// keywords when unset.
func New(cfg types.AIConfig, searchKeywords []string, client ai.Client, prompts *ai.PromptSet, store *cache.Store) *Orchestrator {
	keywords := cfg.Filter.Keywords
	if len(keywords) == 0 {
		keywords = searchKeywords
	}
	language := cfg.Enrich.Language
	if language == "" {
		language = "Chinese"
	}

	pc := ai.ProviderSettings(cfg)
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		prompts:  prompts,
		cache:    store,
		keywords: strings.Join(keywords, ", "),
		language: language,
		enrichKey: cache.EnrichmentKey(cfg.Provider, pc,
			prompts.Signature(types.KindSummary, types.KindTranslation, types.KindInsights)),
		filterKey: cache.FilterKey(cfg.Provider, pc,
			prompts.Signature(types.KindFilter), keywords),
	}
}

// Process runs the filter phase then the enrichment phase. It returns
// the retained papers, in input order, with artifact fields filled
// from cache or fresh provider calls. Failures are contained per paper
// and per artifact; Process itself never fails.
func (o *Orchestrator) Process(ctx context.Context, papers []types.Paper, w io.Writer) ([]types.Paper, Stats) {
	var stats Stats
	if len(papers) == 0 {
		return papers, stats
	}

	if o.cfg.Filter.Enabled {
		papers = o.filterPapers(ctx, papers, w, &stats)
	}
	o.enrichPapers(ctx, papers, w, &stats)
	return papers, stats
}

// filterPapers runs the filter phase. Papers with a valid cached
// verdict skip the provider; the rest are checked concurrently. A
// paper is dropped only by an actual verdict: when the filter call
// fails after retries the paper is retained with a fallback verdict
// that is never written to the cache, so the next run retries the
// check against the verdict already stored.
func (o *Orchestrator) filterPapers(ctx context.Context, papers []types.Paper, w io.Writer, stats *Stats) []types.Paper {
	if o.keywords == "" {
		fmt.Fprintf(w, "filter enabled but no keywords configured, skipping\n")
		return papers
	}

	var pending []task
	for i := range papers {
		p := &papers[i]
		if art, ok := o.cache.Lookup(p.ArxivID, p.Updated, types.KindFilter, o.filterKey); ok {
			applyArtifact(p, types.KindFilter, art)
			stats.CacheHits++
			continue
		}
		pending = append(pending, task{index: i, kind: types.KindFilter})
	}

	fallback := make([]bool, len(papers))
	if len(pending) > 0 {
		fmt.Fprintf(w, "filtering %d papers (%d cached, %d workers)\n",
			len(pending), stats.CacheHits, poolWidth(o.cfg.MaxWorkers, len(pending)))

		for _, r := range o.dispatch(ctx, papers, pending) {
			p := &papers[r.index]
			if r.err != nil {
				fmt.Fprintf(w, "filter failed %s (retained): %v\n", p.ArxivID, r.err)
				p.AI.FilterVerdict = &types.FilterVerdict{
					Relevant:   true,
					Confidence: 0.5,
					Reason:     "filter failed: " + r.err.Error(),
				}
				fallback[r.index] = true
				stats.Fallbacks++
				continue
			}
			applyArtifact(p, types.KindFilter, r.artifact)
			o.cache.Put(p.ArxivID, p.Updated, types.KindFilter, o.filterKey, r.artifact)
			stats.Calls++
		}
	}

	kept := make([]types.Paper, 0, len(papers))
	for i := range papers {
		v := papers[i].AI.FilterVerdict
		switch {
		case v == nil || fallback[i]:
			// Never judged, or the call failed: retain. Filter
			// failures must not silently drop papers.
			kept = append(kept, papers[i])
		case v.Relevant && v.Confidence >= o.cfg.Filter.Threshold:
			kept = append(kept, papers[i])
		default:
			stats.Dropped++
		}
	}
	fmt.Fprintf(w, "filter kept %d of %d papers\n", len(kept), len(papers))
	return kept
}

// enrichPapers fills summary, translation, and insights for every
// retained paper. Each artifact is an independent unit of work: one
// failing leaves the paper and its other artifacts intact.
func (o *Orchestrator) enrichPapers(ctx context.Context, papers []types.Paper, w io.Writer, stats *Stats) {
	kinds := o.enabledKinds()
	if len(kinds) == 0 || len(papers) == 0 {
		return
	}

	cached := 0
	var pending []task
	for i := range papers {
		p := &papers[i]
		for _, kind := range kinds {
			if kind == types.KindTranslation && p.Abstract == "" {
				continue
			}
			if art, ok := o.cache.Lookup(p.ArxivID, p.Updated, kind, o.enrichKey); ok {
				applyArtifact(p, kind, art)
				cached++
				continue
			}
			pending = append(pending, task{index: i, kind: kind})
		}
	}
	stats.CacheHits += cached

	if len(pending) == 0 {
		if cached > 0 {
			fmt.Fprintf(w, "enrichment: all %d artifacts cached\n", cached)
		}
		return
	}

	fmt.Fprintf(w, "enriching %d papers: %d tasks (%d cached, %d workers)\n",
		len(papers), len(pending), cached, poolWidth(o.cfg.MaxWorkers, len(pending)))

	for _, r := range o.dispatch(ctx, papers, pending) {
		p := &papers[r.index]
		if r.err != nil {
			fmt.Fprintf(w, "%s failed %s: %v\n", r.kind, p.ArxivID, r.err)
			stats.Failed++
			continue
		}
		applyArtifact(p, r.kind, r.artifact)
		o.cache.Put(p.ArxivID, p.Updated, r.kind, o.enrichKey, r.artifact)
		stats.Calls++
	}
}

// dispatch fans tasks out across the worker pool and returns one
// result per task. Workers fill disjoint slots, so the result slice
// needs no locking. An interrupt stops dispatching; tasks never
// started carry the context error so the collector treats them as
// failures.
func (o *Orchestrator) dispatch(ctx context.Context, papers []types.Paper, tasks []task) []result {
	results := make([]result, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(poolWidth(o.cfg.MaxWorkers, len(tasks)))

	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(tasks); j++ {
				results[j] = result{task: tasks[j], err: err}
			}
			break
		}
		i, t := i, t // per-iteration copies; the go directive predates Go 1.22 loop scoping
		g.Go(func() error {
			results[i] = o.runTask(ctx, &papers[t.index], t)
			return nil
		})
	}

	// Wait's error is always nil: task outcomes travel in results and
	// are judged by the caller.
	_ = g.Wait()
	return results
}

// runTask renders the prompt, calls the provider, and parses the
// response for one task.
func (o *Orchestrator) runTask(ctx context.Context, p *types.Paper, t task) result {
	req, err := o.prompts.Render(t.kind, o.promptData(p))
	if err != nil {
		return result{task: t, err: err}
	}
	text, err := o.callWithRetry(ctx, req)
	if err != nil {
		return result{task: t, err: err}
	}
	art, err := parseArtifact(t.kind, text)
	return result{task: t, artifact: art, err: err}
}

// callWithRetry invokes the client with exponential backoff. Each
// attempt gets its own timeout so a hung call is treated as transient
// and retried. Permanent failures and cancellation return immediately.
func (o *Orchestrator) callWithRetry(ctx context.Context, req ai.Request) (string, error) {
	attempts := o.cfg.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * retryBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := o.callOnce(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !ai.IsTransient(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// callOnce makes a single provider call under the per-call timeout.
func (o *Orchestrator) callOnce(ctx context.Context, req ai.Request) (string, error) {
	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}
	return o.client.Complete(ctx, req)
}

// promptData assembles the template fields for one paper. Authors are
// capped at three to keep prompts short.
func (o *Orchestrator) promptData(p *types.Paper) ai.PromptData {
	authors := p.Authors
	if len(authors) > 3 {
		authors = authors[:3]
	}
	return ai.PromptData{
		Title:      p.Title,
		Authors:    strings.Join(authors, ", "),
		Abstract:   p.Abstract,
		Categories: strings.Join(p.Categories, ", "),
		Keywords:   o.keywords,
		Language:   o.language,
	}
}

func (o *Orchestrator) enabledKinds() []types.ArtifactKind {
	var kinds []types.ArtifactKind
	if o.cfg.Enrich.Summary {
		kinds = append(kinds, types.KindSummary)
	}
	if o.cfg.Enrich.Translation {
		kinds = append(kinds, types.KindTranslation)
	}
	if o.cfg.Enrich.Insights {
		kinds = append(kinds, types.KindInsights)
	}
	return kinds
}

// applyArtifact writes one artifact onto its paper field.
func applyArtifact(p *types.Paper, kind types.ArtifactKind, art cache.Artifact) {
	switch kind {
	case types.KindFilter:
		p.AI.FilterVerdict = art.Filter
	case types.KindSummary:
		p.AI.Summary = art.Summary
	case types.KindTranslation:
		p.AI.Translation = art.Translation
	case types.KindInsights:
		p.AI.Insights = art.Insights
	}
}

// poolWidth bounds concurrency at min(configured, pending) so the pool
// never exceeds the provider ceiling and never idles goroutines.
func poolWidth(configured, pending int) int {
	if configured <= 0 {
		configured = defaultMaxWorkers
	}
	if pending < configured {
		return pending
	}
	return configured
}
