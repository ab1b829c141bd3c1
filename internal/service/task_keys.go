package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/cache"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// Cache key layout. List and stats results are derived from per-user data,
// so their keys embed the user ID and a mutation can sweep them by prefix.
const (
	taskItemPrefix  = "tasks:item"
	taskListPrefix  = "tasks:list"
	taskStatsPrefix = "tasks:stats"
)

func taskItemKey(taskID uuid.UUID) string {
	return cache.Key(taskItemPrefix, map[string]string{"id": taskID.String()})
}

func taskListKey(userID uuid.UUID, filter store.TaskFilter, page store.Page) string {
	return cache.Key(taskListPrefix+":"+userID.String(), map[string]string{
		"page":     strconv.Itoa(page.Number),
		"limit":    strconv.Itoa(page.Size),
		"status":   string(filter.Status),
		"priority": string(filter.Priority),
	})
}

func taskListPattern(userID uuid.UUID) string {
	return taskListPrefix + ":" + userID.String() + ":*"
}

func taskStatsKey(userID uuid.UUID) string {
	return cache.Key(taskStatsPrefix, map[string]string{"user": userID.String()})
}

// invalidateTaskCaches applies the domain invalidation rule: a mutation of a
// task invalidates the single-task key and every list/stats key scoped to
// the owning user.
func (s *taskServiceImpl) invalidateTaskCaches(ctx context.Context, userID, taskID uuid.UUID) {
	s.cache.Invalidate(ctx, taskItemKey(taskID), taskStatsKey(userID))
	s.cache.InvalidateByPrefix(ctx, taskListPattern(userID))
}
