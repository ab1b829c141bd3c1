// Package scheduler runs periodic background scans independent of request
// handling. The only scan today walks overdue tasks and enqueues one
// notification job per record.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/jobs"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// OverdueScanner periodically queries for tasks past their due date and
// still pending, and enqueues an overdue notice for each.
type OverdueScanner struct {
	tasks    store.TaskStore
	enqueuer jobs.Enqueuer
	jobsCfg  config.JobsConfig
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time
}

// NewOverdueScanner creates a scanner firing on the given cron schedule
// (e.g. "@hourly").
func NewOverdueScanner(
	tasks store.TaskStore,
	enqueuer jobs.Enqueuer,
	jobsCfg config.JobsConfig,
	schedule string,
	logger *slog.Logger,
) *OverdueScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueScanner{
		tasks:    tasks,
		enqueuer: enqueuer,
		jobsCfg:  jobsCfg,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With(slog.String("component", "overdue_scanner")),
		now:      time.Now,
	}
}

// Start registers the scan on the cron schedule and begins the timer.
func (s *OverdueScanner) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("register overdue scan schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("overdue scanner started", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the timer, waiting for a running scan to finish.
func (s *OverdueScanner) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("overdue scanner stopped")
}

// Run executes one scan. An individual enqueue failure is logged and does
// not abort the rest of the batch; the run's success and failure counts are
// logged for triage.
func (s *OverdueScanner) Run(ctx context.Context) {
	now := s.now().UTC()

	overdue, err := s.tasks.ListOverdue(ctx, now)
	if err != nil {
		s.logger.Error("overdue scan query failed", slog.String("error", err.Error()))
		return
	}

	var enqueued, failed int
	for _, task := range overdue {
		payload := jobs.OverdueNoticePayload{
			TaskID:  task.ID,
			UserID:  task.UserID,
			DueDate: *task.DueDate,
		}

		err := s.enqueuer.Enqueue(ctx, jobs.TypeOverdueNotice, payload, jobs.Options{
			MaxAttempts: s.jobsCfg.MaxRetry,
			Retention:   s.jobsCfg.CompletedRetention,
		})
		if err != nil {
			failed++
			s.logger.Error("failed to enqueue overdue notice",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		enqueued++
	}

	s.logger.Info("overdue scan complete",
		slog.Int("scanned", len(overdue)),
		slog.Int("enqueued", enqueued),
		slog.Int("failed", failed))
}
