package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/arxiv"
	"github.com/pdiddy/arxiv-agent/internal/pipeline"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search arXiv and print ranked results",
	Long: `Search runs the fetch, deduplicate, score, and sort stages and prints
the ranked papers as a table or as JSON. No AI calls are made and no
files are written.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSlice("keywords", nil, "override search keywords (comma-separated)")
	searchCmd.Flags().StringSlice("categories", nil, "override search categories (comma-separated)")
	searchCmd.Flags().Int("max-results", 0, "maximum papers to fetch (0 = config value)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if kws, _ := cmd.Flags().GetStringSlice("keywords"); len(kws) > 0 {
		cfg.Search.Keywords = kws
	}
	if cats, _ := cmd.Flags().GetStringSlice("categories"); len(cats) > 0 {
		cfg.Search.Categories = cats
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.Search.MaxResults = n
	}
	cfg.AI.Enabled = false

	// Progress goes to stderr in JSON mode so stdout stays parseable.
	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := io.Writer(os.Stdout)
	if jsonOutput {
		w = os.Stderr
	}

	deps := pipeline.Deps{Source: arxiv.New(cfg.Search)}
	res, err := pipeline.Run(cmd.Context(), cfg, deps, w)
	if err != nil {
		return err
	}

	return formatSearchOutput(res.Papers, jsonOutput)
}

func formatSearchOutput(papers []types.Paper, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n%-4s  %-6s  %-14s  %-60s  %s\n",
		"Rank", "Score", "ID", "Title", "Published")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-6.2f  %-14s  %-60s  %s\n",
			i+1, p.Score(), p.ArxivID, title, p.Published.Format("2006-01-02"))
	}

	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}
