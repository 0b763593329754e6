package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the AI artifact cache",
	Long: `Cache works with the local artifact cache that stores AI outputs
between runs. Cached artifacts are reused when a paper revision and
the AI configuration are both unchanged.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and file size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cache file",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := cache.Load(cfg.Cache.Path, cfg.Cache.MaxItems)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("Cache file: %s\n", cfg.Cache.Path)
	fmt.Printf("Entries:    %d (capacity %d)\n", store.Len(), cfg.Cache.MaxItems)
	if info, err := os.Stat(cfg.Cache.Path); err == nil {
		fmt.Printf("Size:       %.1f KiB\n", float64(info.Size())/1024)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.Remove(cfg.Cache.Path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("cache is already empty")
			return nil
		}
		return fmt.Errorf("removing cache: %w", err)
	}
	fmt.Printf("removed %s\n", cfg.Cache.Path)
	return nil
}
