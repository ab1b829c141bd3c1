package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// TaskFilter narrows task list queries. Zero values mean "no filter".
type TaskFilter struct {
	Status   domain.TaskStatus
	Priority domain.TaskPriority
}

// Page describes offset pagination for list queries.
type Page struct {
	Number int // 1-based page number
	Size   int // items per page
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TaskStats aggregates a user's tasks for the stats endpoint.
type TaskStats struct {
	Total      int64
	ByStatus   map[domain.TaskStatus]int64
	ByPriority map[domain.TaskPriority]int64
	Overdue    int64
}

// TaskStore defines the interface for task data persistence.
// All read and mutate operations are scoped to the owning user.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID, scoped to the owning user.
	// Returns ErrTaskNotFound if absent or owned by another user.
	GetByID(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// Update persists changes to an existing task.
	// Returns ErrTaskNotFound if absent or owned by another user.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task, scoped to the owning user.
	// Returns ErrTaskNotFound if absent or owned by another user.
	Delete(ctx context.Context, userID, taskID uuid.UUID) error

	// List returns a page of the user's tasks matching the filter, newest
	// first, along with the total match count.
	List(ctx context.Context, userID uuid.UUID, filter TaskFilter, page Page) ([]*domain.Task, int64, error)

	// CountStats computes the status/priority/overdue aggregates for a user.
	CountStats(ctx context.Context, userID uuid.UUID, now time.Time) (*TaskStats, error)

	// ListOverdue returns all tasks (across users) whose due date is before
	// now and whose status is still pending. Used by the scheduled scan.
	ListOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance bound to the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
