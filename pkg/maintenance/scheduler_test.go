package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/telemetry/logging"
	"yiyi-hq/gateway/pkg/usage"
)

func noop(context.Context) (int64, error) { return 0, nil }

func TestScheduler_Add(t *testing.T) {
	tests := []struct {
		name      string
		job       Job
		wantError bool
		wantEntry bool
	}{
		{
			name:      "valid daily schedule",
			job:       Job{Name: "daily", Schedule: "0 3 * * *", Run: noop},
			wantEntry: true,
		},
		{
			name:      "descriptor schedule",
			job:       Job{Name: "every", Schedule: "@every 1h", Run: noop},
			wantEntry: true,
		},
		{
			name: "empty schedule is skipped",
			job:  Job{Name: "off", Run: noop},
		},
		{
			name:      "invalid schedule",
			job:       Job{Name: "bad", Schedule: "invalid cron", Run: noop},
			wantError: true,
		},
		{
			name:      "missing run function",
			job:       Job{Name: "norun", Schedule: "0 3 * * *"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(nil)
			err := s.Add(tt.job)
			if (err != nil) != tt.wantError {
				t.Fatalf("Add() error = %v, wantError %v", err, tt.wantError)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			s.Start(ctx)
			defer s.Stop()

			next := s.NextRun(tt.job.Name)
			if tt.wantEntry && next == nil {
				t.Error("NextRun() returned nil for a scheduled job")
			}
			if !tt.wantEntry && next != nil {
				t.Errorf("NextRun() = %v, want nil", next)
			}
		})
	}
}

func TestScheduler_DuplicateJob(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Add(Job{Name: "a", Schedule: "0 3 * * *", Run: noop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add(Job{Name: "a", Schedule: "0 4 * * *", Run: noop}); err == nil {
		t.Error("expected error for duplicate job name")
	}
}

func TestScheduler_StopOnContextCancel(t *testing.T) {
	s := NewScheduler(nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	if !s.IsRunning() {
		t.Fatal("expected scheduler to be running")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("expected scheduler to stop after context cancellation")
	}
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(nil)
	err := s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) (int64, error) {
		calls.Add(1)
		return 1, nil
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	s.Stop()

	if calls.Load() == 0 {
		t.Error("expected job to run at least once")
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(nil)
	wantErr := errors.New("boom")
	_ = s.Add(Job{Name: "fails", Schedule: "0 3 * * *", Run: func(context.Context) (int64, error) {
		return 0, wantErr
	}})

	if _, err := s.RunNow(context.Background(), "fails"); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
	if _, err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestLogPruneJob(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logging.FileName(time.Now().AddDate(0, 0, -10)))
	fresh := filepath.Join(dir, logging.FileName(time.Now()))
	for _, path := range []string{old, fresh} {
		if err := os.WriteFile(path, []byte("line\n"), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	if err := os.Chtimes(old, tenDaysAgo, tenDaysAgo); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}

	job := LogPruneJob("0 4 * * *", dir, 7*24*time.Hour)
	removed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected today's log to remain: %v", err)
	}

	if got := LogPruneJob("0 4 * * *", "", time.Hour).Schedule; got != "" {
		t.Errorf("expected job without dir to be disabled, got schedule %q", got)
	}
}

func TestUsagePruneJob(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ledger := usage.NewMemoryLedger()
	_ = ledger.Record(ctx, &usage.Record{SessionID: "old", Time: now.Add(-48 * time.Hour)})
	_ = ledger.Record(ctx, &usage.Record{SessionID: "new", Time: now.Add(-1 * time.Hour)})

	job := UsagePruneJob("30 4 * * *", ledger, 24*time.Hour, func() time.Time { return now })
	removed, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 record removed, got %d", removed)
	}

	if got := UsagePruneJob("30 4 * * *", ledger, 0, nil).Schedule; got != "" {
		t.Errorf("expected zero retention to disable the job, got schedule %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Logging.Dir = t.TempDir()

	s, err := FromConfig(cfg, usage.NewMemoryLedger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	if s.NextRun(JobLogPrune) == nil {
		t.Error("expected log prune job to be scheduled")
	}
	if s.NextRun(JobUsagePrune) == nil {
		t.Error("expected usage prune job to be scheduled")
	}

	cfg.Maintenance.UsagePruneSchedule = "not a schedule"
	if _, err := FromConfig(cfg, usage.NewMemoryLedger()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
