// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv export API and converts its Atom feed
// into Paper records. The client pages through results, paces requests
// to stay inside the API's politeness window, and retries throttled
// responses.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-agent/internal/httputil"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// apiBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// timeNow is replaceable in tests that exercise the lookback window.
var timeNow = time.Now

const (
	defaultMaxResults = 50
	defaultPageSize   = 100

	// The API rejects slices larger than this.
	maxPageSize = 2000

	// The API asks for at most one request every 3 seconds.
	defaultRequestInterval = 3 * time.Second
)

// Client fetches papers from the arXiv search API.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     types.SearchConfig
}

// New builds a Client from search configuration. Zero values fall back
// to the reference defaults (30s timeout, 3s request spacing).
func New(cfg types.SearchConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = defaultRequestInterval
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		cfg:     cfg,
	}
}

// Fetch retrieves up to MaxResults papers matching the configured
// keywords and categories, newest submissions first. Results are paged;
// a short page ends the walk. Entries without a recognizable arXiv ID
// are skipped. Duplicates across pages are possible and left to the
// caller to resolve.
func (c *Client) Fetch(ctx context.Context) ([]types.Paper, error) {
	query := buildQuery(c.cfg)

	want := c.cfg.MaxResults
	if want <= 0 {
		want = defaultMaxResults
	}
	pageSize := c.cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var papers []types.Paper
	for start := 0; start < want; {
		size := pageSize
		if remaining := want - start; remaining < size {
			size = remaining
		}

		feed, err := c.fetchPage(ctx, query, start, size)
		if err != nil {
			return nil, err
		}

		for _, e := range feed.Entries {
			if p, ok := entryToPaper(e); ok {
				papers = append(papers, p)
			}
		}

		start += len(feed.Entries)
		if len(feed.Entries) < size {
			break
		}
		if feed.Total > 0 && start >= feed.Total {
			break
		}
	}
	return papers, nil
}

// fetchPage requests one slice of results. It waits on the politeness
// limiter first, then lets httputil retry 429/503 responses.
func (c *Client) fetchPage(ctx context.Context, query string, start, count int) (*arxivFeed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		apiBase, url.QueryEscape(query), start, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return &feed, nil
}

// buildQuery constructs the search_query parameter. Keywords become a
// quoted all-fields disjunction, categories a cat: disjunction, joined
// with AND. With neither configured the query matches everything. A
// lookback window adds a submittedDate range.
func buildQuery(cfg types.SearchConfig) string {
	var parts []string

	if len(cfg.Keywords) > 0 {
		terms := make([]string, len(cfg.Keywords))
		for i, kw := range cfg.Keywords {
			terms[i] = fmt.Sprintf("all:%q", kw)
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}
	if len(cfg.Categories) > 0 {
		terms := make([]string, len(cfg.Categories))
		for i, cat := range cfg.Categories {
			terms[i] = "cat:" + cat
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}

	query := "all:*"
	if len(parts) > 0 {
		query = strings.Join(parts, " AND ")
	}

	if cfg.LookbackDays > 0 {
		now := timeNow().UTC()
		from := now.AddDate(0, 0, -cfg.LookbackDays)
		query += fmt.Sprintf(" AND submittedDate:[%s TO %s]",
			from.Format("200601021504"), now.Format("200601021504"))
	}
	return query
}

// arXiv Atom feed XML structures. totalResults comes from the
// OpenSearch extension; matching by local name is sufficient.
type arxivFeed struct {
	Total   int          `xml:"totalResults"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Updated    string          `xml:"updated"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
	Links      []arxivLink     `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// entryToPaper converts one feed entry. Entries whose <id> carries no
// arXiv identifier are dropped.
func entryToPaper(e arxivEntry) (types.Paper, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ArxivID:  id,
		Title:    collapseSpace(e.Title),
		Abstract: collapseSpace(e.Summary),
		Link:     e.ID,
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, cat := range e.Categories {
		if cat.Term != "" {
			p.Categories = append(p.Categories, cat.Term)
		}
	}
	for _, l := range e.Links {
		switch {
		case l.Title == "pdf" || l.Type == "application/pdf":
			p.PDFURL = l.Href
		case l.Rel == "alternate" && l.Href != "":
			p.Link = l.Href
		}
	}
	if p.PDFURL == "" && strings.Contains(p.Link, "/abs/") {
		p.PDFURL = strings.Replace(p.Link, "/abs/", "/pdf/", 1)
	}

	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		p.Published = t
	}
	if t, err := time.Parse(time.RFC3339, e.Updated); err == nil {
		p.Updated = t
	}
	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapseSpace folds the feed's hard-wrapped whitespace into single
// spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
