package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/service"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// stubTaskService returns canned values and records the arguments it saw.
type stubTaskService struct {
	createInput service.CreateTaskInput
	updateInput service.UpdateTaskInput
	listFilter  store.TaskFilter
	listPage    store.Page
	batchIDs    []uuid.UUID
	batchAction service.BatchAction

	task  *domain.Task
	page  *service.TaskPage
	stats *service.TaskStatsResult
	batch *service.BatchResult
	err   error
}

var _ service.TaskService = (*stubTaskService)(nil)

func (s *stubTaskService) Create(_ context.Context, _ uuid.UUID, input service.CreateTaskInput) (*domain.Task, error) {
	s.createInput = input
	return s.task, s.err
}

func (s *stubTaskService) Get(_ context.Context, _, _ uuid.UUID) (*domain.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) List(_ context.Context, _ uuid.UUID, filter store.TaskFilter, page store.Page) (*service.TaskPage, error) {
	s.listFilter = filter
	s.listPage = page
	return s.page, s.err
}

func (s *stubTaskService) Update(_ context.Context, _, _ uuid.UUID, input service.UpdateTaskInput) (*domain.Task, error) {
	s.updateInput = input
	return s.task, s.err
}

func (s *stubTaskService) Delete(_ context.Context, _, _ uuid.UUID) error {
	return s.err
}

func (s *stubTaskService) Stats(_ context.Context, _ uuid.UUID) (*service.TaskStatsResult, error) {
	return s.stats, s.err
}

func (s *stubTaskService) Batch(_ context.Context, _ uuid.UUID, taskIDs []uuid.UUID, action service.BatchAction) (*service.BatchResult, error) {
	s.batchIDs = taskIDs
	s.batchAction = action
	return s.batch, s.err
}

// authedRequest builds a request carrying an authenticated user and, when id
// is non-nil, a chi route context with the {id} parameter.
func authedRequest(t *testing.T, method, path string, body any, userID uuid.UUID, id *uuid.UUID) *http.Request {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	ctx := shared.WithUserID(req.Context(), userID)

	if id != nil {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", id.String())
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}

	return req.WithContext(ctx)
}

func sampleTask(t *testing.T, userID uuid.UUID) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(userID, "Write report", "", domain.TaskPriorityHigh, nil)
	require.NoError(t, err)
	return task
}

func TestTaskHandlerCreate(t *testing.T) {
	userID := uuid.New()
	svc := &stubTaskService{task: sampleTask(t, userID)}
	h := NewTaskHandler(svc)

	req := authedRequest(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:    "Write report",
		Priority: "high",
	}, userID, nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Write report", svc.createInput.Title)
	assert.Equal(t, domain.TaskPriorityHigh, svc.createInput.Priority)
}

func TestTaskHandlerCreateRejectsBadPriority(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	req := authedRequest(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:    "Write report",
		Priority: "urgent",
	}, uuid.New(), nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandlerCreateRequiresAuth(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskHandlerList(t *testing.T) {
	userID := uuid.New()
	svc := &stubTaskService{page: &service.TaskPage{Page: 2, Limit: 10, Total: 11, TotalPages: 2}}
	h := NewTaskHandler(svc)

	req := authedRequest(t, http.MethodGet, "/api/tasks?page=2&limit=10&status=pending&priority=high", nil, userID, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, store.Page{Number: 2, Size: 10}, svc.listPage)
	assert.Equal(t, store.TaskFilter{Status: domain.TaskStatusPending, Priority: domain.TaskPriorityHigh}, svc.listFilter)
}

func TestTaskHandlerListRejectsBadQuery(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	tests := []struct {
		name string
		url  string
	}{
		{name: "non-numeric page", url: "/api/tasks?page=abc"},
		{name: "zero page", url: "/api/tasks?page=0"},
		{name: "non-numeric limit", url: "/api/tasks?limit=ten"},
		{name: "unknown status", url: "/api/tasks?status=archived"},
		{name: "unknown priority", url: "/api/tasks?priority=critical"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(t, http.MethodGet, tc.url, nil, uuid.New(), nil)
			rec := httptest.NewRecorder()
			h.List(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTaskHandlerGet(t *testing.T) {
	userID := uuid.New()
	task := sampleTask(t, userID)
	h := NewTaskHandler(&stubTaskService{task: task})

	req := authedRequest(t, http.MethodGet, "/api/tasks/"+task.ID.String(), nil, userID, &task.ID)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, task.ID, got.ID)
}

func TestTaskHandlerGetNotFound(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{err: store.ErrTaskNotFound})

	id := uuid.New()
	req := authedRequest(t, http.MethodGet, "/api/tasks/"+id.String(), nil, uuid.New(), &id)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandlerGetRejectsBadID(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	req := authedRequest(t, http.MethodGet, "/api/tasks/not-a-uuid", nil, uuid.New(), nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandlerUpdate(t *testing.T) {
	userID := uuid.New()
	task := sampleTask(t, userID)
	svc := &stubTaskService{task: task}
	h := NewTaskHandler(svc)

	status := "completed"
	req := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(), UpdateTaskRequest{
		Status: &status,
	}, userID, &task.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.updateInput.Status)
	assert.Equal(t, domain.TaskStatusCompleted, *svc.updateInput.Status)
	assert.Nil(t, svc.updateInput.Title, "absent fields stay nil")
}

func TestTaskHandlerUpdateRejectsUnknownStatus(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	id := uuid.New()
	status := "archived"
	req := authedRequest(t, http.MethodPatch, "/api/tasks/"+id.String(), UpdateTaskRequest{
		Status: &status,
	}, uuid.New(), &id)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandlerDelete(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	id := uuid.New()
	req := authedRequest(t, http.MethodDelete, "/api/tasks/"+id.String(), nil, uuid.New(), &id)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTaskHandlerStats(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{stats: &service.TaskStatsResult{Total: 4, CompletionRate: 0.5}})

	req := authedRequest(t, http.MethodGet, "/api/tasks/stats", nil, uuid.New(), nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got service.TaskStatsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(4), got.Total)
	assert.InDelta(t, 0.5, got.CompletionRate, 1e-9)
}

func TestTaskHandlerBatch(t *testing.T) {
	svc := &stubTaskService{batch: &service.BatchResult{Processed: 2, Successful: 2}}
	h := NewTaskHandler(svc)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	req := authedRequest(t, http.MethodPost, "/api/tasks/batch", BatchTaskRequest{
		Tasks:  ids,
		Action: "COMPLETE",
	}, uuid.New(), nil)
	rec := httptest.NewRecorder()
	h.Batch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ids, svc.batchIDs)
	assert.Equal(t, service.BatchActionComplete, svc.batchAction)
}

func TestTaskHandlerBatchValidation(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	tests := []struct {
		name string
		req  BatchTaskRequest
	}{
		{name: "empty task list", req: BatchTaskRequest{Action: "COMPLETE"}},
		{name: "unknown action", req: BatchTaskRequest{Tasks: []uuid.UUID{uuid.New()}, Action: "ARCHIVE"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(t, http.MethodPost, "/api/tasks/batch", tc.req, uuid.New(), nil)
			rec := httptest.NewRecorder()
			h.Batch(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
