// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the arxiv-agent CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-agent/internal/secrets"
	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the arxiv-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "arxiv-agent",
	Short: "Daily arXiv paper digest pipeline",
	Long: `arxiv-agent fetches new arXiv papers matching configured keywords and
categories, removes duplicates, scores and sorts them, filters and
enriches them through an AI provider, and delivers a Markdown digest
to disk, a webhook, or email.

Run the whole pipeline with "run", or keep it running daily with
"schedule". The remaining commands work with the pieces: "search" for
raw ranked results, "cache" and "archive" for the local stores,
"report" to re-render a digest from a saved export.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./arxiv-agent.yaml or ~/.config/arxiv-agent/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("arxiv-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "arxiv-agent"))
		}
	}

	viper.SetEnvPrefix("ARXIV_AGENT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the reference defaults overlaid with the config
// file viper located, with secrets filling empty credential fields.
func loadConfig() (types.Config, error) {
	return loadConfigFile(viper.ConfigFileUsed())
}

func loadConfigFile(path string) (types.Config, error) {
	cfg := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.AI.OpenAI.APIKey = secretDefault(secrets.OpenAIAPIKey, cfg.AI.OpenAI.APIKey)
	cfg.AI.Anthropic.APIKey = secretDefault(secrets.AnthropicAPIKey, cfg.AI.Anthropic.APIKey)
	cfg.Email.Password = secretDefault(secrets.SMTPPassword, cfg.Email.Password)
	cfg.Webhook.URL = secretDefault(secrets.WebhookURL, cfg.Webhook.URL)
	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
