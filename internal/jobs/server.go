package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskboard-api/internal/config"
)

// Server wraps the asynq consumer: it pulls jobs from the shared Redis
// queue and dispatches them by type. Retry and backoff are owned by the
// queue framework; handlers only succeed or fail.
type Server struct {
	srv        *asynq.Server
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewServer creates the job consumer with exponential retry backoff and an
// error handler that logs attempt counts for operational triage.
func NewServer(
	redisCfg config.RedisConfig,
	jobsCfg config.JobsConfig,
	dispatcher *Dispatcher,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "job_server"))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency:    jobsCfg.Concurrency,
			RetryDelayFunc: ExponentialBackoff(jobsCfg.BackoffBase),
			ErrorHandler:   asynq.ErrorHandlerFunc(logFailure(logger)),
			Logger:         &slogAdapter{logger: logger},
		},
	)

	return &Server{srv: srv, dispatcher: dispatcher, logger: logger}
}

// logFailure logs every handler failure with the attempt number and the
// attempts remaining. Exhausted jobs are archived by the queue as
// terminally failed and never retried again.
func logFailure(logger *slog.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		attrs := []any{
			slog.String("job_type", task.Type()),
			slog.Int("attempt", retried+1),
			slog.Int("attempts_remaining", maxRetry-retried),
			slog.String("error", err.Error()),
		}

		if retried >= maxRetry {
			logger.Error("job failed terminally, attempts exhausted", attrs...)
			return
		}
		logger.Warn("job failed, will retry", attrs...)
	}
}

// Start begins processing jobs. It does not block; processing stops when
// Shutdown is called.
func (s *Server) Start() error {
	if err := s.srv.Start(s.dispatcher); err != nil {
		return fmt.Errorf("start job server: %w", err)
	}
	s.logger.Info("job server started")
	return nil
}

// Shutdown waits for in-flight jobs to finish and stops the consumer.
func (s *Server) Shutdown() {
	s.srv.Shutdown()
	s.logger.Info("job server stopped")
}

// slogAdapter bridges asynq's logger interface onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *slogAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a *slogAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *slogAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a *slogAdapter) Fatal(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
