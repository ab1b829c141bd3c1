package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard-api/internal/cache"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/jobs"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// Pagination bounds. Out-of-range values from clients are clamped, not
// rejected.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BatchAction is the operation applied to every task in a batch request.
type BatchAction string

const (
	BatchActionComplete BatchAction = "COMPLETE"
	BatchActionDelete   BatchAction = "DELETE"
)

// ParseBatchAction converts a string into a BatchAction.
// Returns ErrInvalidBatchAction for unknown values.
func ParseBatchAction(s string) (BatchAction, error) {
	switch BatchAction(strings.ToUpper(s)) {
	case BatchActionComplete, BatchActionDelete:
		return BatchAction(strings.ToUpper(s)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBatchAction, s)
	}
}

// CreateTaskInput carries the fields for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput carries a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
}

// TaskPage is one page of list results plus pagination metadata. It is also
// the serialized shape stored in the cache.
type TaskPage struct {
	Data       []*domain.Task `json:"data"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// TaskStatsResult aggregates a user's tasks for the stats endpoint.
type TaskStatsResult struct {
	Total          int64                         `json:"total"`
	ByStatus       map[domain.TaskStatus]int64   `json:"by_status"`
	ByPriority     map[domain.TaskPriority]int64 `json:"by_priority"`
	Overdue        int64                         `json:"overdue"`
	CompletionRate float64                       `json:"completion_rate"`
}

// BatchItemResult reports the outcome for one task in a batch request.
type BatchItemResult struct {
	TaskID  uuid.UUID `json:"task_id"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// BatchResult reports the outcome of a batch request. Each item's
// success or failure is independent.
type BatchResult struct {
	Processed  int               `json:"processed"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []BatchItemResult `json:"results"`
}

// TaskService defines the application operations on tasks.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, page store.Page) (*TaskPage, error)
	Update(ctx context.Context, userID, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*TaskStatsResult, error)
	Batch(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID, action BatchAction) (*BatchResult, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	tasks    store.TaskStore
	cache    *cache.Cache
	enqueuer jobs.Enqueuer
	listTTL  time.Duration
	itemTTL  time.Duration
	statsTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Ensure taskServiceImpl implements the TaskService interface
var _ TaskService = (*taskServiceImpl)(nil)

// TaskServiceTTLs carries the per-query-class cache TTLs.
type TaskServiceTTLs struct {
	List  time.Duration
	Item  time.Duration
	Stats time.Duration
}

// NewTaskService creates a TaskService implementation.
func NewTaskService(
	tasks store.TaskStore,
	c *cache.Cache,
	enqueuer jobs.Enqueuer,
	ttls TaskServiceTTLs,
	log *slog.Logger,
) TaskService {
	if tasks == nil {
		panic("tasks store cannot be nil")
	}
	if c == nil {
		panic("cache cannot be nil")
	}
	if enqueuer == nil {
		panic("enqueuer cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		tasks:    tasks,
		cache:    c,
		enqueuer: enqueuer,
		listTTL:  ttls.List,
		itemTTL:  ttls.Item,
		statsTTL: ttls.Stats,
		logger:   log.With(slog.String("component", "task_service")),
		now:      time.Now,
	}
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(
	ctx context.Context,
	userID uuid.UUID,
	input CreateTaskInput,
) (*domain.Task, error) {
	task, err := domain.NewTask(userID, input.Title, input.Description, input.Priority, input.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// New rows change list and stats results for the owner.
	s.invalidateTaskCaches(ctx, userID, task.ID)

	return task, nil
}

// Get implements TaskService.Get
func (s *taskServiceImpl) Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	key := taskItemKey(taskID)

	if cached, ok := cache.Read[*domain.Task](ctx, s.cache, key); ok {
		// The item key is not user-scoped; enforce ownership on the
		// cached copy the same way the store query would.
		if cached.UserID == userID {
			return cached, nil
		}
		return nil, store.ErrTaskNotFound
	}

	task, err := s.tasks.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	s.cache.Write(ctx, key, task, s.itemTTL)
	return task, nil
}

// List implements TaskService.List
func (s *taskServiceImpl) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	page store.Page,
) (*TaskPage, error) {
	page = clampPage(page)
	key := taskListKey(userID, filter, page)

	if cached, ok := cache.Read[*TaskPage](ctx, s.cache, key); ok {
		return cached, nil
	}

	items, total, err := s.tasks.List(ctx, userID, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := &TaskPage{
		Data:       items,
		Page:       page.Number,
		Limit:      page.Size,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(page.Size))),
	}

	s.cache.Write(ctx, key, result, s.listTTL)
	return result, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(
	ctx context.Context,
	userID, taskID uuid.UUID,
	input UpdateTaskInput,
) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	oldStatus := task.Status

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	task.UpdatedAt = s.now().UTC()

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidateTaskCaches(ctx, userID, taskID)

	if task.Status != oldStatus {
		s.enqueueStatusChanged(ctx, task, oldStatus)
	}

	return task, nil
}

// Delete implements TaskService.Delete
func (s *taskServiceImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
		return err
	}

	s.invalidateTaskCaches(ctx, userID, taskID)
	return nil
}

// Stats implements TaskService.Stats
func (s *taskServiceImpl) Stats(ctx context.Context, userID uuid.UUID) (*TaskStatsResult, error) {
	key := taskStatsKey(userID)

	if cached, ok := cache.Read[*TaskStatsResult](ctx, s.cache, key); ok {
		return cached, nil
	}

	stats, err := s.tasks.CountStats(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to compute task stats: %w", err)
	}

	result := &TaskStatsResult{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
		Overdue:    stats.Overdue,
	}
	if stats.Total > 0 {
		result.CompletionRate = float64(stats.ByStatus[domain.TaskStatusCompleted]) / float64(stats.Total)
	}

	s.cache.Write(ctx, key, result, s.statsTTL)
	return result, nil
}

// Batch implements TaskService.Batch.
//
// Items are processed and committed independently, with no enclosing
// transaction: the response reports per-item success and failure, and an
// atomic envelope around independently-reported items would contradict
// itself. A failure for one task never aborts the rest.
func (s *taskServiceImpl) Batch(
	ctx context.Context,
	userID uuid.UUID,
	taskIDs []uuid.UUID,
	action BatchAction,
) (*BatchResult, error) {
	result := &BatchResult{
		Processed: len(taskIDs),
		Results:   make([]BatchItemResult, 0, len(taskIDs)),
	}

	for _, taskID := range taskIDs {
		var err error
		switch action {
		case BatchActionComplete:
			status := domain.TaskStatusCompleted
			_, err = s.Update(ctx, userID, taskID, UpdateTaskInput{Status: &status})
		case BatchActionDelete:
			err = s.Delete(ctx, userID, taskID)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidBatchAction, action)
		}

		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BatchItemResult{
				TaskID:  taskID,
				Success: false,
				Error:   batchErrorMessage(err),
			})
			continue
		}

		result.Successful++
		result.Results = append(result.Results, BatchItemResult{TaskID: taskID, Success: true})
	}

	return result, nil
}

// enqueueStatusChanged submits a notification job for a status transition.
// Enqueue is fire-and-forget: the primary mutation has already committed,
// so a queue failure is logged and swallowed.
func (s *taskServiceImpl) enqueueStatusChanged(
	ctx context.Context,
	task *domain.Task,
	oldStatus domain.TaskStatus,
) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	payload := jobs.StatusChangedPayload{
		TaskID:    task.ID,
		UserID:    task.UserID,
		OldStatus: oldStatus,
		NewStatus: task.Status,
	}

	if err := s.enqueuer.Enqueue(ctx, jobs.TypeStatusChanged, payload, jobs.Options{}); err != nil {
		log.Error("failed to enqueue status change notification",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}
}

// batchErrorMessage converts a per-item error into the structured failure
// record's message without leaking internals.
func batchErrorMessage(err error) string {
	switch {
	case store.IsNotFoundError(err):
		return "task not found"
	default:
		return "operation failed"
	}
}

// clampPage normalizes caller-supplied pagination to sane bounds.
func clampPage(page store.Page) store.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	return page
}
