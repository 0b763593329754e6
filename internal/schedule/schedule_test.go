// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schedule

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

func TestParseDaily(t *testing.T) {
	tests := []struct {
		in       string
		wantHour int
		wantMin  int
		wantErr  bool
	}{
		{"09:00", 9, 0, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"9:00", 0, 0, true},
		{"24:00", 0, 0, true},
		{"09:60", 0, 0, true},
		{"morning", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hour, minute, err := parseDaily(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDaily(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if hour != tt.wantHour || minute != tt.wantMin {
				t.Errorf("parseDaily(%q) = %d:%d, want %d:%d", tt.in, hour, minute, tt.wantHour, tt.wantMin)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		min  int
		want time.Time
	}{
		{
			"later today",
			time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), 9, 30,
			time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			"already passed rolls to tomorrow",
			time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), 9, 30,
			time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC),
		},
		{
			"exactly now rolls to tomorrow",
			time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), 9, 30,
			time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC),
		},
		{
			"year boundary",
			time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), 6, 0,
			time.Date(2027, 1, 1, 6, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextRun(tt.now, tt.hour, tt.min)
			if !got.Equal(tt.want) {
				t.Errorf("nextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoopInvalidDailyTime(t *testing.T) {
	var calls int
	err := Loop(context.Background(), types.ScheduleConfig{Daily: "noonish"}, &strings.Builder{},
		func(context.Context) error { calls++; return nil })
	if err == nil {
		t.Fatal("expected error for invalid time")
	}
	if calls != 0 {
		t.Errorf("run called %d times, want 0", calls)
	}
}

func TestLoopRunOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	var buf strings.Builder
	err := Loop(ctx, types.ScheduleConfig{Daily: "09:00", RunOnStart: true}, &buf,
		func(context.Context) error {
			calls++
			cancel()
			return nil
		})
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if calls != 1 {
		t.Errorf("run called %d times, want 1", calls)
	}
	if !strings.Contains(buf.String(), "running on start") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestLoopFiresAtScheduledTime(t *testing.T) {
	// Freeze the clock just before the scheduled minute so each wait is
	// a few milliseconds of real time.
	old := timeNow
	timeNow = func() time.Time {
		return time.Date(2026, 3, 15, 8, 59, 59, int(999*time.Millisecond), time.UTC)
	}
	defer func() { timeNow = old }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	var buf strings.Builder
	err := Loop(ctx, types.ScheduleConfig{Daily: "09:00"}, &buf,
		func(context.Context) error {
			calls++
			if calls == 2 {
				cancel()
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if calls != 2 {
		t.Errorf("run called %d times, want 2", calls)
	}
	if !strings.Contains(buf.String(), "next run at 2026-03-15 09:00") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestLoopContinuesAfterFailedRun(t *testing.T) {
	old := timeNow
	timeNow = func() time.Time {
		return time.Date(2026, 3, 15, 8, 59, 59, int(999*time.Millisecond), time.UTC)
	}
	defer func() { timeNow = old }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	var buf strings.Builder
	err := Loop(ctx, types.ScheduleConfig{Daily: "09:00"}, &buf,
		func(context.Context) error {
			calls++
			if calls == 1 {
				return fmt.Errorf("arXiv unreachable")
			}
			cancel()
			return nil
		})
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if calls != 2 {
		t.Errorf("run called %d times, want 2", calls)
	}
	if !strings.Contains(buf.String(), "warning: run failed: arXiv unreachable") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestLoopStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := Loop(ctx, types.ScheduleConfig{Daily: "09:00"}, &strings.Builder{},
		func(context.Context) error { calls++; return nil })
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if calls != 0 {
		t.Errorf("run called %d times after cancellation, want 0", calls)
	}
}
