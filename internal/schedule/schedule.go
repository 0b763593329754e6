// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule runs the pipeline on a daily wall-clock timer.
package schedule

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

var timeNow = time.Now

// Loop calls run at cfg.Daily (local wall-clock "HH:MM") every day until
// ctx is cancelled, which is the normal way to stop it. A failing run is
// reported on w and the loop keeps going; the next occurrence is always
// computed fresh so a long run never stacks up missed executions.
func Loop(ctx context.Context, cfg types.ScheduleConfig, w io.Writer, run func(context.Context) error) error {
	hour, minute, err := parseDaily(cfg.Daily)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "scheduling daily run at %s\n", cfg.Daily)

	if cfg.RunOnStart {
		fmt.Fprintln(w, "running on start")
		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(w, "warning: run failed: %v\n", err)
		}
	}

	for {
		now := timeNow()
		next := nextRun(now, hour, minute)
		fmt.Fprintf(w, "next run at %s\n", next.Format("2006-01-02 15:04"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(w, "warning: run failed: %v\n", err)
		}
	}
}

// parseDaily parses a 24-hour "HH:MM" string. time.Parse alone would
// accept single-digit hours, so the length check keeps the format strict.
func parseDaily(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, 0, fmt.Errorf("invalid daily time %q: want HH:MM (24-hour)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// nextRun returns the first occurrence of hour:minute after now, in
// now's location. A time equal to now rolls over to tomorrow.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
