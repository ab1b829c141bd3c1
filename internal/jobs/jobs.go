// Package jobs defines the background job types, the producer contract, and
// the consumer dispatch for the Redis-backed job queue.
package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// Job type identifiers. The queue dispatches to handlers by these names.
const (
	// TypeStatusChanged is enqueued when a task transitions between
	// lifecycle states, so downstream notification delivery can react.
	TypeStatusChanged = "task:status_changed"

	// TypeOverdueNotice is enqueued by the scheduled scan for each task
	// found past its due date and still pending.
	TypeOverdueNotice = "task:overdue_notice"
)

// StatusChangedPayload is the payload for TypeStatusChanged jobs.
type StatusChangedPayload struct {
	TaskID    uuid.UUID         `json:"task_id"`
	UserID    uuid.UUID         `json:"user_id"`
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// OverdueNoticePayload is the payload for TypeOverdueNotice jobs.
type OverdueNoticePayload struct {
	TaskID  uuid.UUID `json:"task_id"`
	UserID  uuid.UUID `json:"user_id"`
	DueDate time.Time `json:"due_date"`
}
