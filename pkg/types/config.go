// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the arXiv search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Keywords are the query terms; a paper matches when any keyword
	// appears in its metadata. Also the input to the relevance scorer.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Categories restricts the query to arXiv categories (e.g. "cs.CL").
	Categories []string `json:"categories" yaml:"categories"`

	// MaxResults is the total number of papers to fetch (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PageSize is the number of results per API request (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// RequestInterval is the minimum spacing between API requests.
	// The arXiv API asks for no more than one request every 3 seconds.
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval"`

	// LookbackDays limits results to papers submitted within the last
	// N days; 0 disables the date constraint.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`
}

// RelevanceConfig holds settings for the keyword relevance scorer.
type RelevanceConfig struct {
	// Enabled turns local relevance scoring on. When off, papers carry
	// no score and sorting by relevance is a no-op level.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Categories is the relevant-category set awarded the category
	// weight. Empty means reuse the search categories.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// ProviderConfig holds connection settings for one AI provider.
type ProviderConfig struct {
	// APIKey authenticates requests. Filled from secrets when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider endpoint; empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the response length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// FilterConfig holds settings for the AI filter phase.
type FilterConfig struct {
	// Enabled turns the filter phase on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Threshold is the minimum verdict confidence to retain a paper
	// (default 0.5). A failed filter call always retains the paper.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Keywords are the research interests given to the filter prompt.
	// Empty means reuse the search keywords. Part of the filter
	// fingerprint: changing them invalidates cached verdicts.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// EnrichConfig toggles the individual enrichment artifacts.
type EnrichConfig struct {
	// Summary enables the four-section digest.
	Summary bool `json:"summary" yaml:"summary"`

	// Translation enables title+abstract translation.
	Translation bool `json:"translation" yaml:"translation"`

	// Insights enables the short-takeaway list.
	Insights bool `json:"insights" yaml:"insights"`

	// Language is the translation target language (default "Chinese").
	Language string `json:"language" yaml:"language"`
}

// AIConfig holds settings shared by the filter and enrichment phases.
type AIConfig struct {
	// Enabled turns all AI stages on. When off the pipeline runs
	// search, scoring, and sorting only.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Provider selects the backend: "openai", "anthropic", or "ollama".
	Provider string `json:"provider" yaml:"provider"`

	// MaxWorkers bounds concurrent AI calls (default 4). The effective
	// pool width is min(MaxWorkers, pending tasks).
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// MaxRetries is the attempt count for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout bounds one AI call including retries' individual
	// attempts (default 60s per attempt).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// RequestsPerSecond rate-limits calls to the provider; 0 disables.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// PromptsFile is an optional YAML file overriding the built-in
	// prompt templates (default "prompts.yaml" when present).
	PromptsFile string `json:"prompts_file,omitempty" yaml:"prompts_file,omitempty"`

	Filter FilterConfig `json:"filter" yaml:"filter"`
	Enrich EnrichConfig `json:"enrich" yaml:"enrich"`

	OpenAI    ProviderConfig `json:"openai" yaml:"openai"`
	Anthropic ProviderConfig `json:"anthropic" yaml:"anthropic"`
	Ollama    ProviderConfig `json:"ollama" yaml:"ollama"`
}

// CacheConfig holds settings for the AI artifact cache.
type CacheConfig struct {
	// Path is the cache file location (default "cache.json").
	Path string `json:"path" yaml:"path"`

	// MaxItems caps the entry count; the least recently updated entries
	// are evicted beyond it (default 1000).
	MaxItems int `json:"max_items" yaml:"max_items"`
}

// OutputConfig holds settings for run outputs.
type OutputConfig struct {
	// Dir is the directory for reports and exports (default "output").
	Dir string `json:"dir" yaml:"dir"`

	// SaveJSON writes the enriched paper set as JSON.
	SaveJSON bool `json:"save_json" yaml:"save_json"`

	// SaveCSV writes a flat CSV of the enriched paper set.
	SaveCSV bool `json:"save_csv" yaml:"save_csv"`
}

// AcquireConfig holds settings for the optional PDF download stage.
type AcquireConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled turns PDF downloading on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// PapersDir is the download directory (default "papers/raw").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// DownloadDelay is the delay between consecutive downloads
	// (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`
}

// EmailConfig holds SMTP delivery settings for the report.
type EmailConfig struct {
	// Enabled turns email delivery on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// SMTPHost and SMTPPort locate the SMTP server.
	SMTPHost string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `json:"smtp_port" yaml:"smtp_port"`

	// Username and Password authenticate with the server. Password is
	// filled from secrets when empty.
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// From is the sender address; To lists the recipients.
	From string   `json:"from" yaml:"from"`
	To   []string `json:"to" yaml:"to"`
}

// WebhookConfig holds webhook delivery settings for the report.
type WebhookConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled turns webhook delivery on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// URL is the webhook endpoint. Filled from secrets when empty.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ArchiveConfig holds settings for the local paper archive index.
type ArchiveConfig struct {
	// Enabled turns archive ingestion on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DBPath is the SQLite database location (default
	// "archive/arxiv-agent.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ScheduleConfig holds settings for daily scheduled runs.
type ScheduleConfig struct {
	// Daily is the wall-clock run time in "HH:MM" 24-hour form.
	Daily string `json:"daily" yaml:"daily"`

	// RunOnStart triggers one run immediately before the daily loop.
	RunOnStart bool `json:"run_on_start" yaml:"run_on_start"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Relevance RelevanceConfig `json:"relevance" yaml:"relevance"`
	Sort      []SortCriterion `json:"sort" yaml:"sort"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Acquire   AcquireConfig   `json:"acquire" yaml:"acquire"`
	Email     EmailConfig     `json:"email" yaml:"email"`
	Webhook   WebhookConfig   `json:"webhook" yaml:"webhook"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule"`
}

// DefaultConfig returns a Config seeded with the reference defaults.
// Callers overlay file and environment values on top of it.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig:      HTTPConfig{Timeout: 30 * time.Second, UserAgent: "arxiv-agent/0.1"},
			MaxResults:      50,
			PageSize:        100,
			RequestInterval: 3 * time.Second,
		},
		Relevance: RelevanceConfig{Enabled: true},
		Sort: []SortCriterion{
			{Field: SortByRelevance, Direction: SortDesc},
			{Field: SortBySubmitted, Direction: SortDesc},
		},
		AI: AIConfig{
			Provider:    "openai",
			MaxWorkers:  4,
			MaxRetries:  3,
			CallTimeout: 60 * time.Second,
			Filter:      FilterConfig{Threshold: 0.5},
			Enrich:      EnrichConfig{Summary: true, Translation: true, Insights: true, Language: "Chinese"},
			OpenAI:      ProviderConfig{Model: "gpt-4o-mini", MaxTokens: 1024, Temperature: 0.3},
			Anthropic:   ProviderConfig{Model: "claude-3-5-haiku-latest", MaxTokens: 1024, Temperature: 0.3},
			Ollama:      ProviderConfig{Model: "qwen2.5:7b", BaseURL: "http://localhost:11434", MaxTokens: 1024, Temperature: 0.3},
		},
		Cache:   CacheConfig{Path: "cache.json", MaxItems: 1000},
		Output:  OutputConfig{Dir: "output", SaveJSON: true},
		Acquire: AcquireConfig{HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: "arxiv-agent/0.1"}, PapersDir: "papers/raw", DownloadDelay: time.Second},
		Webhook: WebhookConfig{HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "arxiv-agent/0.1"}},
		Archive: ArchiveConfig{DBPath: "archive/arxiv-agent.db"},
	}
}
