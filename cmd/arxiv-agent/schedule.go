package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-agent/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline once a day at a fixed time",
	Long: `Schedule runs the full pipeline at a fixed wall-clock time every day
(schedule.daily, "HH:MM" 24-hour). The process stays in the foreground
until interrupted. A failed run is reported and the loop continues
with the next day.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().String("daily", "", "daily run time, HH:MM (overrides schedule.daily)")
	scheduleCmd.Flags().Bool("run-on-start", false, "run once immediately, then follow the schedule")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if daily, _ := cmd.Flags().GetString("daily"); daily != "" {
		cfg.Schedule.Daily = daily
	}
	if onStart, _ := cmd.Flags().GetBool("run-on-start"); onStart {
		cfg.Schedule.RunOnStart = true
	}
	if cfg.Schedule.Daily == "" {
		return fmt.Errorf("no daily time configured: set schedule.daily or pass --daily HH:MM")
	}

	return schedule.Loop(cmd.Context(), cfg.Schedule, os.Stdout, func(ctx context.Context) error {
		return executeRun(ctx, cfg, false, os.Stdout)
	})
}
