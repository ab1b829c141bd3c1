package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandlerFunc processes the raw payload of a single job. A returned error
// causes the queue to retry the job per its retry policy.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Dispatcher routes jobs to registered handlers by job type. Unknown types
// are logged and acknowledged rather than retried: a rolling deployment may
// produce types this instance does not know yet, and retrying those would
// only churn the queue.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// Ensure Dispatcher implements the asynq.Handler interface
var _ asynq.Handler = (*Dispatcher)(nil)

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger.With(slog.String("component", "job_dispatcher")),
	}
}

// Register binds a handler to a job type. Panics on duplicate registration,
// which would otherwise silently shadow a handler.
func (d *Dispatcher) Register(jobType string, handler HandlerFunc) {
	if _, exists := d.handlers[jobType]; exists {
		panic(fmt.Sprintf("jobs: handler already registered for %q", jobType))
	}
	d.handlers[jobType] = handler
}

// ProcessTask implements asynq.Handler.
func (d *Dispatcher) ProcessTask(ctx context.Context, task *asynq.Task) error {
	handler, ok := d.handlers[task.Type()]
	if !ok {
		d.logger.Warn("no handler for job type, acknowledging without retry",
			slog.String("job_type", task.Type()))
		return nil
	}

	return handler(ctx, task.Payload())
}

// NotificationHandlers implements the application's job handlers. Delivery
// here is a structured log record; a mail or push transport would slot in
// behind the same handlers.
type NotificationHandlers struct {
	logger *slog.Logger
}

// NewNotificationHandlers creates the handler set.
func NewNotificationHandlers(logger *slog.Logger) *NotificationHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandlers{
		logger: logger.With(slog.String("component", "notification_handlers")),
	}
}

// RegisterAll binds every known job type onto the dispatcher.
func (h *NotificationHandlers) RegisterAll(d *Dispatcher) {
	d.Register(TypeStatusChanged, h.HandleStatusChanged)
	d.Register(TypeOverdueNotice, h.HandleOverdueNotice)
}

// HandleStatusChanged processes a task status transition notification.
func (h *NotificationHandlers) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var p StatusChangedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode status_changed payload: %w", err)
	}

	h.logger.InfoContext(ctx, "task status changed",
		slog.String("task_id", p.TaskID.String()),
		slog.String("user_id", p.UserID.String()),
		slog.String("old_status", string(p.OldStatus)),
		slog.String("new_status", string(p.NewStatus)))

	return nil
}

// HandleOverdueNotice processes an overdue task notification.
func (h *NotificationHandlers) HandleOverdueNotice(ctx context.Context, payload []byte) error {
	var p OverdueNoticePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode overdue_notice payload: %w", err)
	}

	h.logger.InfoContext(ctx, "task overdue",
		slog.String("task_id", p.TaskID.String()),
		slog.String("user_id", p.UserID.String()),
		slog.Time("due_date", p.DueDate))

	return nil
}
