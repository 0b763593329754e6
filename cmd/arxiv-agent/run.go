package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/acquire"
	"github.com/pdiddy/arxiv-agent/internal/ai"
	"github.com/pdiddy/arxiv-agent/internal/archive"
	"github.com/pdiddy/arxiv-agent/internal/arxiv"
	"github.com/pdiddy/arxiv-agent/internal/cache"
	"github.com/pdiddy/arxiv-agent/internal/enrich"
	"github.com/pdiddy/arxiv-agent/internal/notify"
	"github.com/pdiddy/arxiv-agent/internal/pipeline"
	"github.com/pdiddy/arxiv-agent/internal/report"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full paper pipeline once",
	Long: `Run executes the complete pipeline: search arXiv, deduplicate, score,
sort, filter and enrich through the configured AI provider, write the
Markdown report and exports, then deliver notifications. Failures past
the search stage degrade the output instead of aborting the run.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().Bool("no-ai", false, "skip the AI filter and enrichment phases")
	runCmd.Flags().Bool("no-notify", false, "skip webhook and email delivery")
	runCmd.Flags().Int("max-results", 0, "override search.max_results")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if noAI, _ := cmd.Flags().GetBool("no-ai"); noAI {
		cfg.AI.Enabled = false
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.Search.MaxResults = n
	}
	noNotify, _ := cmd.Flags().GetBool("no-notify")

	return executeRun(cmd.Context(), cfg, noNotify, os.Stdout)
}

// executeRun performs one complete pipeline run. The schedule command
// calls it once per scheduled day with the same config.
func executeRun(ctx context.Context, cfg types.Config, noNotify bool, w io.Writer) error {
	store, err := cache.Load(cfg.Cache.Path, cfg.Cache.MaxItems)
	if err != nil {
		fmt.Fprintf(w, "warning: %v (starting with an empty cache)\n", err)
	}

	deps := pipeline.Deps{
		Source: arxiv.New(cfg.Search),
		Cache:  store,
	}

	if cfg.AI.Enabled {
		client, err := ai.New(cfg.AI)
		if err != nil {
			return err
		}

		promptsFile := cfg.AI.PromptsFile
		if promptsFile == "" {
			promptsFile = "prompts.yaml"
		}
		prompts, err := ai.LoadPrompts(promptsFile)
		if err != nil {
			fmt.Fprintf(w, "warning: %v (using built-in prompts)\n", err)
		}

		deps.Enricher = enrich.New(cfg.AI, cfg.Search.Keywords, client, prompts, store)
	}

	res, err := pipeline.Run(ctx, cfg, deps, w)
	if err != nil {
		return err
	}

	if stats := store.Stats(); stats.Hits+stats.Misses > 0 {
		line := fmt.Sprintf("cache: %d hits, %d misses", stats.Hits, stats.Misses)
		if stats.FingerprintMisses > 0 {
			line += fmt.Sprintf(" (%d from configuration changes)", stats.FingerprintMisses)
		}
		fmt.Fprintln(w, line)
	}

	papers := res.Papers
	if len(papers) == 0 {
		return nil
	}

	meta := report.NewMeta(cfg.Search.Keywords)
	include := cfg.AI.Enrich
	if !cfg.AI.Enabled {
		include = types.EnrichConfig{}
	}
	content := report.Render(papers, meta, include)

	mdPath, err := report.SaveMarkdown(cfg.Output.Dir, meta, content)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(w, "report written to %s\n", mdPath)

	if cfg.Output.SaveJSON {
		path, err := report.SaveJSON(cfg.Output.Dir, meta, papers)
		if err != nil {
			fmt.Fprintf(w, "warning: saving JSON export: %v\n", err)
		} else {
			fmt.Fprintf(w, "papers exported to %s\n", path)
		}
	}
	if cfg.Output.SaveCSV {
		path, err := report.SaveCSV(cfg.Output.Dir, meta, papers)
		if err != nil {
			fmt.Fprintf(w, "warning: saving CSV export: %v\n", err)
		} else {
			fmt.Fprintf(w, "papers exported to %s\n", path)
		}
	}

	if cfg.Acquire.Enabled {
		httpClient := &http.Client{Timeout: cfg.Acquire.Timeout}
		if _, err := acquire.DownloadAll(ctx, httpClient, papers, cfg.Acquire, w); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(w, "warning: downloading PDFs: %v\n", err)
		}
	}

	if cfg.Archive.Enabled {
		if err := archivePapers(ctx, cfg.Archive, papers, w); err != nil {
			fmt.Fprintf(w, "warning: archiving papers: %v\n", err)
		}
	}

	if !noNotify {
		deliverReport(ctx, cfg, meta, papers, content, w)
	}

	if res.AIStats.HasFailures() {
		fmt.Fprintf(w, "warning: %d AI call(s) failed after retries\n",
			res.AIStats.Fallbacks+res.AIStats.Failed)
	}
	fmt.Fprintf(w, "\nrun complete: %d papers in the report\n", len(papers))
	return nil
}

func archivePapers(ctx context.Context, cfg types.ArchiveConfig, papers []types.Paper, w io.Writer) error {
	idx, err := archive.NewStore(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	_, err = idx.Ingest(ctx, papers, w)
	return err
}

// deliverReport sends the rendered report to the enabled channels. A
// delivery failure is a warning; the report is already on disk.
func deliverReport(ctx context.Context, cfg types.Config, meta report.Meta, papers []types.Paper, content string, w io.Writer) {
	if cfg.Webhook.Enabled {
		if err := notify.SendWebhook(ctx, cfg.Webhook, meta, len(papers), content); err != nil {
			fmt.Fprintf(w, "warning: webhook delivery: %v\n", err)
		} else {
			fmt.Fprintln(w, "webhook delivered")
		}
	}

	if cfg.Email.Enabled {
		subject := fmt.Sprintf("ArXiv Paper Digest %s (%d papers)",
			meta.GeneratedAt.Format("2006-01-02"), len(papers))

		var atts []notify.Attachment
		if data, err := json.MarshalIndent(papers, "", "  "); err == nil {
			atts = append(atts, notify.Attachment{Filename: "papers.json", Data: data})
		}

		if err := notify.SendEmail(ctx, cfg.Email, subject, content, atts); err != nil {
			fmt.Fprintf(w, "warning: email delivery: %v\n", err)
		} else {
			fmt.Fprintf(w, "email sent to %d recipient(s)\n", len(cfg.Email.To))
		}
	}
}
