// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

const defaultSearchLimit = 20

// SearchResult is an archived paper with its full-text match rank.
// Lower rank sorts first.
type SearchResult struct {
	types.Paper
	Rank float64 `json:"rank" yaml:"rank"`
}

// Search runs an FTS5 full-text query over title, abstract, and summary.
// The query string uses FTS5 syntax, so quoted phrases and OR work.
// Results are ranked by relevance. A limit of zero uses the default.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.arxiv_id, p.title, p.authors, p.abstract, p.categories,
			p.published, p.updated, p.link, p.pdf_url, p.relevance_score,
			p.summary, p.translation, p.insights, papers_fts.rank
		FROM papers_fts
		JOIN papers p ON p.rowid = papers_fts.rowid
		WHERE papers_fts MATCH ?
		ORDER BY papers_fts.rank
		LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			sr             SearchResult
			authorsJSON    sql.NullString
			categoriesJSON sql.NullString
			published      sql.NullString
			updated        sql.NullString
			score          sql.NullFloat64
			summary        sql.NullString
			translation    sql.NullString
			insightsJSON   sql.NullString
		)

		if err := rows.Scan(
			&sr.ArxivID, &sr.Title, &authorsJSON, &sr.Abstract, &categoriesJSON,
			&published, &updated, &sr.Link, &sr.PDFURL, &score,
			&summary, &translation, &insightsJSON, &sr.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &sr.Authors)
		}
		if categoriesJSON.Valid {
			json.Unmarshal([]byte(categoriesJSON.String), &sr.Categories)
		}
		if published.Valid {
			sr.Published, _ = time.Parse(time.RFC3339, published.String)
		}
		if updated.Valid {
			sr.Updated, _ = time.Parse(time.RFC3339, updated.String)
		}
		if score.Valid {
			v := score.Float64
			sr.RelevanceScore = &v
		}
		if summary.Valid && summary.String != "" {
			sr.AI.Summary = &types.Summary{Raw: summary.String}
		}
		if translation.Valid {
			sr.AI.Translation = translation.String
		}
		if insightsJSON.Valid {
			json.Unmarshal([]byte(insightsJSON.String), &sr.AI.Insights)
		}

		results = append(results, sr)
	}

	return results, rows.Err()
}

// Count returns the number of archived papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}
