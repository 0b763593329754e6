package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// starterConfig is the commented configuration written by "config init".
// Keys omitted from the file fall back to the built-in defaults.
const starterConfig = `# arxiv-agent configuration.
#
# Keys you omit fall back to built-in defaults. API keys, the SMTP
# password, and the webhook URL are better provided through .secrets/
# files or environment variables than through this file.

search:
  # Edit these to your research interests.
  keywords:
    - machine learning
  categories:
    - cs.LG
  max_results: 50
  # Only papers submitted within the last N days; 0 keeps everything.
  lookback_days: 7
  # The arXiv API asks for at most one request every 3 seconds.
  request_interval: 3s
  timeout: 30s
  user_agent: arxiv-agent/0.1

relevance:
  enabled: true

# Applied in order; later levels break ties.
sort:
  - {field: relevance, direction: desc}
  - {field: submitted, direction: desc}

ai:
  enabled: true
  provider: openai # openai, anthropic, or ollama
  max_workers: 4
  max_retries: 3
  call_timeout: 60s
  requests_per_second: 0 # 0 disables rate limiting
  filter:
    enabled: true
    threshold: 0.5
    # keywords: []  # defaults to search.keywords
  enrich:
    summary: true
    translation: true
    insights: true
    language: Chinese
  openai:
    model: gpt-4o-mini
    max_tokens: 1024
    temperature: 0.3
  anthropic:
    model: claude-3-5-haiku-latest
    max_tokens: 1024
    temperature: 0.3
  ollama:
    model: qwen2.5:7b
    base_url: http://localhost:11434
    max_tokens: 1024
    temperature: 0.3

cache:
  path: cache.json
  max_items: 1000

output:
  dir: output
  save_json: true
  save_csv: false

acquire:
  enabled: false
  papers_dir: papers/raw
  download_delay: 1s
  timeout: 60s
  user_agent: arxiv-agent/0.1

email:
  enabled: false
  smtp_host: smtp.example.com
  smtp_port: 587
  username: bot@example.com
  from: bot@example.com
  to:
    - you@example.com

webhook:
  enabled: false
  url: ""
  timeout: 30s
  user_agent: arxiv-agent/0.1

archive:
  enabled: false
  db_path: archive/arxiv-agent.db

schedule:
  daily: "09:00"
  run_on_start: false
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the arxiv-agent configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter arxiv-agent.yaml",
	Long: `Init writes a commented starter configuration into the current
directory. An existing file is not overwritten unless --force is
given.`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := "arxiv-agent.yaml"
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists: pass --force to overwrite", path)
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
