package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <papers-json>",
	Short: "Re-render a Markdown report from a saved JSON export",
	Long: `Report rebuilds the Markdown digest from a papers JSON export written
by a previous run, without fetching or calling AI providers. Useful
after changing report settings or to recover from a delivery failure.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("output", "", "write the report to this path instead of the output directory")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide the path of a papers JSON export")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	papers, err := report.LoadPapers(args[0])
	if err != nil {
		return err
	}

	meta := report.NewMeta(cfg.Search.Keywords)
	content := report.Render(papers, meta, cfg.AI.Enrich)

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("report written to %s\n", outPath)
		return nil
	}

	path, err := report.SaveMarkdown(cfg.Output.Dir, meta, content)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("report written to %s\n", path)
	return nil
}
