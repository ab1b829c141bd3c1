package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	userID := uuid.New()
	due := time.Now().Add(48 * time.Hour)

	task, err := NewTask(userID, "  Write report  ", "quarterly numbers", TaskPriorityHigh, &due)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, userID, task.UserID)
	assert.Equal(t, "Write report", task.Title, "title should be trimmed")
	assert.Equal(t, TaskStatusPending, task.Status, "new tasks start pending")
	assert.Equal(t, TaskPriorityHigh, task.Priority)
	assert.Equal(t, &due, task.DueDate)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestNewTaskDefaultsPriorityToMedium(t *testing.T) {
	task, err := NewTask(uuid.New(), "Write report", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, TaskPriorityMedium, task.Priority)
}

func TestNewTaskValidation(t *testing.T) {
	tests := []struct {
		name     string
		userID   uuid.UUID
		title    string
		priority TaskPriority
		wantErr  error
	}{
		{
			name:    "missing user",
			userID:  uuid.Nil,
			title:   "Write report",
			wantErr: ErrTaskUserIDEmpty,
		},
		{
			name:    "empty title",
			userID:  uuid.New(),
			title:   "   ",
			wantErr: ErrTaskTitleEmpty,
		},
		{
			name:    "title too long",
			userID:  uuid.New(),
			title:   strings.Repeat("x", 201),
			wantErr: ErrTaskTitleTooLong,
		},
		{
			name:     "unknown priority",
			userID:   uuid.New(),
			title:    "Write report",
			priority: "urgent",
			wantErr:  ErrInvalidTaskPriority,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTask(tc.userID, tc.title, "", tc.priority, nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	status, err := ParseTaskStatus("In_Progress")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, status)

	_, err = ParseTaskStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}

func TestParseTaskPriority(t *testing.T) {
	priority, err := ParseTaskPriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, TaskPriorityHigh, priority)

	_, err = ParseTaskPriority("critical")
	assert.ErrorIs(t, err, ErrInvalidTaskPriority)
}

func TestTaskOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		dueDate *time.Time
		status  TaskStatus
		want    bool
	}{
		{name: "past due and pending", dueDate: &past, status: TaskStatusPending, want: true},
		{name: "past due but completed", dueDate: &past, status: TaskStatusCompleted, want: false},
		{name: "past due but cancelled", dueDate: &past, status: TaskStatusCancelled, want: false},
		{name: "not yet due", dueDate: &future, status: TaskStatusPending, want: false},
		{name: "no due date", dueDate: nil, status: TaskStatusPending, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := &Task{DueDate: tc.dueDate, Status: tc.status}
			assert.Equal(t, tc.want, task.Overdue(now))
		})
	}
}
