package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// archiveQueue is the queue whose archive the pruner sweeps. All jobs are
// enqueued on the default queue.
const archiveQueue = "default"

// prunePageSize bounds how many archive entries one listing call returns.
const prunePageSize = 100

// ArchiveInspector is the slice of the queue inspection API the pruner
// needs. Satisfied by *asynq.Inspector.
type ArchiveInspector interface {
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// ArchivePruner periodically deletes archived jobs that failed longer ago
// than the configured failed-job retention. The archive keeps recent
// failure evidence for debugging while the pruner bounds its growth.
type ArchivePruner struct {
	inspector ArchiveInspector
	retention time.Duration
	schedule  string
	pageSize  int
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchivePruner creates a pruner firing on the given cron schedule.
func NewArchivePruner(
	inspector ArchiveInspector,
	retention time.Duration,
	schedule string,
	logger *slog.Logger,
) *ArchivePruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivePruner{
		inspector: inspector,
		retention: retention,
		schedule:  schedule,
		pageSize:  prunePageSize,
		cron:      cron.New(),
		logger:    logger.With(slog.String("component", "archive_pruner")),
		now:       time.Now,
	}
}

// Start registers the sweep on the cron schedule and begins the timer.
func (p *ArchivePruner) Start() error {
	_, err := p.cron.AddFunc(p.schedule, p.Run)
	if err != nil {
		return fmt.Errorf("register archive prune schedule %q: %w", p.schedule, err)
	}

	p.cron.Start()
	p.logger.Info("archive pruner started",
		slog.String("schedule", p.schedule),
		slog.Duration("retention", p.retention))
	return nil
}

// Stop halts the timer, waiting for a running sweep to finish.
func (p *ArchivePruner) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("archive pruner stopped")
}

// Run executes one sweep. An individual delete failure is logged and does
// not abort the rest of the sweep.
func (p *ArchivePruner) Run() {
	cutoff := p.now().UTC().Add(-p.retention)

	// Collect the full listing before deleting anything so removals do not
	// shift pages under the iteration.
	var stale []*asynq.TaskInfo
	for page := 1; ; page++ {
		tasks, err := p.inspector.ListArchivedTasks(archiveQueue,
			asynq.PageSize(p.pageSize), asynq.Page(page))
		if err != nil {
			p.logger.Error("archive listing failed", slog.String("error", err.Error()))
			return
		}
		for _, info := range tasks {
			if info.LastFailedAt.Before(cutoff) {
				stale = append(stale, info)
			}
		}
		if len(tasks) < p.pageSize {
			break
		}
	}

	var pruned, failed int
	for _, info := range stale {
		if err := p.inspector.DeleteTask(archiveQueue, info.ID); err != nil {
			failed++
			p.logger.Error("failed to prune archived job",
				slog.String("job_id", info.ID),
				slog.String("job_type", info.Type),
				slog.String("error", err.Error()))
			continue
		}
		pruned++
	}

	if pruned > 0 || failed > 0 {
		p.logger.Info("archive prune complete",
			slog.Int("pruned", pruned),
			slog.Int("failed", failed))
	}
}
