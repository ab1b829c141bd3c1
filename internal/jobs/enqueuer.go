package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskboard-api/internal/config"
)

// Options control retry and retention behavior for an enqueued job.
// Zero values fall back to the configured defaults.
type Options struct {
	// MaxAttempts is the total execution budget for the job, counting the
	// first attempt. A job that has failed MaxAttempts times is terminally
	// failed and never run again.
	MaxAttempts int

	// Retention is how long a completed job is kept before being discarded.
	// Failed jobs are archived by the queue and outlive this, preserving
	// failure evidence for debugging.
	Retention time.Duration

	// ProcessIn delays the first processing attempt.
	ProcessIn time.Duration
}

// Enqueuer is the producer side of the job queue contract.
type Enqueuer interface {
	// Enqueue serializes the payload and submits a job of the given type.
	// Enqueue failures must never be allowed to fail the caller's primary
	// mutation; callers log and continue.
	Enqueue(ctx context.Context, jobType string, payload any, opts Options) error
}

// QueueEnqueuer implements Enqueuer on top of the asynq client.
type QueueEnqueuer struct {
	client   *asynq.Client
	defaults config.JobsConfig
}

// Ensure QueueEnqueuer implements the Enqueuer interface
var _ Enqueuer = (*QueueEnqueuer)(nil)

// NewQueueEnqueuer creates an Enqueuer connected to the shared Redis queue.
func NewQueueEnqueuer(redisCfg config.RedisConfig, defaults config.JobsConfig) *QueueEnqueuer {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	return &QueueEnqueuer{client: client, defaults: defaults}
}

// Enqueue implements Enqueuer.Enqueue
func (e *QueueEnqueuer) Enqueue(ctx context.Context, jobType string, payload any, opts Options) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", jobType, err)
	}

	task := asynq.NewTask(jobType, raw)
	if _, err := e.client.EnqueueContext(ctx, task, queueOptions(opts, e.defaults)...); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	return nil
}

// queueOptions translates the job options into asynq options, filling zero
// values from the configured defaults. asynq's MaxRetry counts retries after
// the first execution, so an attempt budget of N maps to N-1 retries.
func queueOptions(opts Options, defaults config.JobsConfig) []asynq.Option {
	attempts := opts.MaxAttempts
	if attempts == 0 {
		attempts = defaults.MaxRetry
	}
	retention := opts.Retention
	if retention == 0 {
		retention = defaults.CompletedRetention
	}

	asynqOpts := []asynq.Option{
		asynq.MaxRetry(attempts - 1),
		asynq.Retention(retention),
	}
	if opts.ProcessIn > 0 {
		asynqOpts = append(asynqOpts, asynq.ProcessIn(opts.ProcessIn))
	}
	return asynqOpts
}

// Close releases the underlying client connections.
func (e *QueueEnqueuer) Close() error {
	return e.client.Close()
}
