// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps a local SQLite index of every paper the pipeline
// has processed, searchable by full text across title, abstract, and
// summary.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

const defaultDBPath = "archive/arxiv-agent.db"

// Store manages the archive SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database at cfg.DBPath, creating
// the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT NOT NULL UNIQUE,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			categories TEXT,
			published TEXT,
			updated TEXT,
			link TEXT,
			pdf_url TEXT,
			relevance_score REAL,
			summary TEXT,
			translation TEXT,
			insights TEXT,
			content_hash TEXT NOT NULL,
			first_seen TEXT NOT NULL,
			last_updated TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, summary, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract, summary)
				VALUES (new.rowid, new.title, new.abstract, new.summary);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, summary)
				VALUES('delete', old.rowid, old.title, old.abstract, old.summary);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, summary)
				VALUES('delete', old.rowid, old.title, old.abstract, old.summary);
				INSERT INTO papers_fts(rowid, title, abstract, summary)
				VALUES (new.rowid, new.title, new.abstract, new.summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from one archive ingestion run.
type IngestSummary struct {
	Added     int
	Updated   int
	Unchanged int
	Failed    int
}

// Total returns the number of papers processed.
func (s IngestSummary) Total() int {
	return s.Added + s.Updated + s.Unchanged + s.Failed
}

// Ingest upserts the given papers into the archive. A content hash over
// each paper's metadata and AI artifacts detects unchanged rows so
// repeat runs over the same feed window are cheap.
func (s *Store) Ingest(ctx context.Context, papers []types.Paper, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary
	now := time.Now().UTC().Format(time.RFC3339)

	for i := range papers {
		p := &papers[i]

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		hash := contentHash(p)

		var storedHash string
		err := s.db.QueryRowContext(ctx,
			`SELECT content_hash FROM papers WHERE arxiv_id = ?`, p.ArxivID,
		).Scan(&storedHash)

		if err == nil && storedHash == hash {
			summary.Unchanged++
			continue
		}
		isUpdate := err == nil

		if err := s.upsertPaper(ctx, p, hash, now); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", p.ArxivID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated  %s\n", p.ArxivID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "archived %s\n", p.ArxivID)
			summary.Added++
		}
	}

	fmt.Fprintf(w, "archive: %d added, %d updated, %d unchanged, %d failed\n",
		summary.Added, summary.Updated, summary.Unchanged, summary.Failed)

	return summary, nil
}

func (s *Store) upsertPaper(ctx context.Context, p *types.Paper, hash, now string) error {
	authorsJSON, _ := json.Marshal(p.Authors)
	categoriesJSON, _ := json.Marshal(p.Categories)
	insightsJSON, _ := json.Marshal(p.AI.Insights)

	var score any
	if p.RelevanceScore != nil {
		score = *p.RelevanceScore
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (arxiv_id, title, authors, abstract, categories,
			published, updated, link, pdf_url, relevance_score,
			summary, translation, insights, content_hash, first_seen, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(arxiv_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, categories=excluded.categories,
			published=excluded.published, updated=excluded.updated,
			link=excluded.link, pdf_url=excluded.pdf_url,
			relevance_score=excluded.relevance_score,
			summary=excluded.summary, translation=excluded.translation,
			insights=excluded.insights, content_hash=excluded.content_hash,
			last_updated=excluded.last_updated`,
		p.ArxivID, p.Title, string(authorsJSON), p.Abstract, string(categoriesJSON),
		p.Published.UTC().Format(time.RFC3339), p.Updated.UTC().Format(time.RFC3339),
		p.Link, p.PDFURL, score,
		summaryText(p.AI.Summary), p.AI.Translation, string(insightsJSON), hash, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}
	return nil
}

// contentHash fingerprints the fields the archive stores. Zero-byte
// separators keep adjacent fields from colliding.
func contentHash(p *types.Paper) string {
	h := xxhash.New()
	h.WriteString(p.Title)
	h.Write([]byte{0})
	h.WriteString(p.Abstract)
	h.Write([]byte{0})
	h.WriteString(p.Updated.UTC().Format(time.RFC3339))
	h.Write([]byte{0})
	if p.RelevanceScore != nil {
		h.WriteString(strconv.FormatFloat(*p.RelevanceScore, 'f', -1, 64))
	}
	h.Write([]byte{0})
	h.WriteString(summaryText(p.AI.Summary))
	h.Write([]byte{0})
	h.WriteString(p.AI.Translation)
	for _, insight := range p.AI.Insights {
		h.Write([]byte{0})
		h.WriteString(insight)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// summaryText flattens a structured summary into one searchable block.
func summaryText(sum *types.Summary) string {
	if sum.IsZero() {
		return ""
	}
	var parts []string
	for _, section := range []string{sum.KeyIdea, sum.Method, sum.Results, sum.Application} {
		if section != "" {
			parts = append(parts, section)
		}
	}
	if len(parts) == 0 {
		return sum.Raw
	}
	return strings.Join(parts, "\n")
}
