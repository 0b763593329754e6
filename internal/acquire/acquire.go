// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads paper PDFs to local storage.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// validatePDF is swapped out in tests to avoid shipping real PDF fixtures.
var validatePDF = checkPDF

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the total number of papers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any downloads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// DownloadAll fetches the PDF for each paper into cfg.PapersDir. Files
// that already exist are skipped, downloads land via a temporary file so
// a partial fetch never leaves a broken PDF behind, and each fetched
// file must parse as a PDF with at least one page or it is discarded.
// It continues after individual failures and applies cfg.DownloadDelay
// between consecutive downloads.
func DownloadAll(ctx context.Context, client *http.Client, papers []types.Paper, cfg types.AcquireConfig, w io.Writer) (BatchResult, error) {
	var result BatchResult

	dir := cfg.PapersDir
	if dir == "" {
		dir = "papers/raw"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("creating papers directory: %w", err)
	}

	first := true
	for i := range papers {
		p := &papers[i]

		if p.PDFURL == "" {
			fmt.Fprintf(w, "failed   %s: no PDF URL\n", p.ArxivID)
			result.Failed++
			continue
		}

		destPath := filepath.Join(dir, fileName(p.ArxivID))
		if _, err := os.Stat(destPath); err == nil {
			fmt.Fprintf(w, "skipped  %s (already exists)\n", p.ArxivID)
			result.Skipped++
			continue
		}

		// Delay between consecutive fetches, never before the first.
		if !first && cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(cfg.DownloadDelay):
			}
		}
		first = false

		fmt.Fprintf(w, "fetching %s\n", p.ArxivID)
		if err := downloadFile(ctx, client, p.PDFURL, destPath, cfg); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", p.ArxivID, err)
			result.Failed++
			continue
		}

		if err := validatePDF(destPath); err != nil {
			os.Remove(destPath)
			fmt.Fprintf(w, "failed   %s: invalid PDF: %v\n", p.ArxivID, err)
			result.Failed++
			continue
		}

		result.Downloaded++
	}

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())

	return result, nil
}

// fileName maps an arXiv ID to a safe file name. Pre-2007 IDs contain a
// slash ("hep-th/9901001") which would nest directories.
func fileName(arxivID string) string {
	return strings.ReplaceAll(arxivID, "/", "_") + ".pdf"
}

// downloadFile fetches url to destPath using a temporary file.
func downloadFile(ctx context.Context, client *http.Client, url, destPath string, cfg types.AcquireConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// checkPDF opens the file as a PDF and requires at least one page.
func checkPDF(path string) error {
	f, r, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return fmt.Errorf("no pages")
	}
	return nil
}
