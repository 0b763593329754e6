// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Query the long-term paper archive",
	Long: `Archive works with the SQLite index of every paper past runs have
processed. Papers are added automatically at the end of a run when
archive.enabled is set; use the subcommands to query the index.`,
}

// --- search subcommand ---

var archiveSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over archived papers",
	Long: `Search queries the archive with full-text search over titles,
abstracts, and AI summaries. The query supports FTS5 syntax: quoted
phrases, AND/OR, and prefix* matching. Results are ordered by match
rank.`,
	RunE: runArchiveSearch,
}

func runArchiveSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return err
	}
	defer idx.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := idx.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatArchiveResults(results, jsonOutput)
}

func formatArchiveResults(results []archive.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%s] %s\n", i+1, r.ArxivID, r.Title)
		if len(r.Authors) > 0 {
			fmt.Printf("   %s\n", strings.Join(r.Authors, ", "))
		}
		detail := make([]string, 0, 3)
		if !r.Published.IsZero() {
			detail = append(detail, r.Published.Format("2006-01-02"))
		}
		if len(r.Categories) > 0 {
			detail = append(detail, strings.Join(r.Categories, " "))
		}
		if r.RelevanceScore != nil {
			detail = append(detail, fmt.Sprintf("score %.2f", *r.RelevanceScore))
		}
		if len(detail) > 0 {
			fmt.Printf("   %s\n", strings.Join(detail, "  "))
		}
		fmt.Println()
	}

	fmt.Printf("%d results\n", len(results))
	return nil
}

// --- stats subcommand ---

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive location and size",
	RunE:  runArchiveStats,
}

func runArchiveStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Count(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Archive: %s\n", cfg.Archive.DBPath)
	fmt.Printf("Papers:  %d\n", n)
	return nil
}

func init() {
	archiveSearchCmd.Flags().Int("limit", 0, "maximum results (0 = default)")
	archiveSearchCmd.Flags().Bool("json", false, "output results as JSON")

	archiveCmd.AddCommand(archiveSearchCmd)
	archiveCmd.AddCommand(archiveStatsCmd)

	rootCmd.AddCommand(archiveCmd)
}
