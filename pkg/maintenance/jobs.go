package maintenance

import (
	"context"
	"time"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/telemetry/logging"
	"yiyi-hq/gateway/pkg/usage"
)

// Job names.
const (
	JobLogPrune   = "log_prune"
	JobUsagePrune = "usage_prune"
)

// LogPruneJob deletes daily log files in dir older than maxAge. The job is
// disabled when dir is empty or maxAge is not positive.
func LogPruneJob(schedule, dir string, maxAge time.Duration) Job {
	if dir == "" || maxAge <= 0 {
		schedule = ""
	}
	return Job{
		Name:     JobLogPrune,
		Schedule: schedule,
		Run: func(context.Context) (int64, error) {
			n, err := logging.PruneOldLogs(dir, maxAge)
			return int64(n), err
		},
	}
}

// UsagePruneJob deletes usage records older than retention. A zero
// retention keeps records forever and disables the job.
func UsagePruneJob(schedule string, ledger usage.Ledger, retention time.Duration, now func() time.Time) Job {
	if ledger == nil || retention <= 0 {
		schedule = ""
	}
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     JobUsagePrune,
		Schedule: schedule,
		Run: func(ctx context.Context) (int64, error) {
			return ledger.Prune(ctx, now().Add(-retention))
		},
	}
}

// FromConfig builds the scheduler for cfg. ledger may be nil when usage
// recording is disabled.
func FromConfig(cfg *config.Config, ledger usage.Ledger) (*Scheduler, error) {
	s := NewScheduler(logging.FromContext(context.Background()))

	logJob := LogPruneJob(cfg.Maintenance.LogPruneSchedule, config.ExpandHome(cfg.Logging.Dir), cfg.Logging.MaxAge)
	if err := s.Add(logJob); err != nil {
		return nil, err
	}

	usageJob := UsagePruneJob(cfg.Maintenance.UsagePruneSchedule, ledger, cfg.Usage.Retention, nil)
	if err := s.Add(usageJob); err != nil {
		return nil, err
	}
	return s, nil
}
