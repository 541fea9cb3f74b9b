package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// --- モック定義 ---

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	listFn   func(ctx context.Context, userID string) ([]model.Task, error)
	createFn func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error)
	updateFn func(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error)
	deleteFn func(ctx context.Context, userID, taskID string) error
}

func (m *mockTaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []model.Task{}, nil
}

func (m *mockTaskService) Create(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockTaskService) Update(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, taskID, input)
	}
	return nil, nil
}

func (m *mockTaskService) Delete(ctx context.Context, userID, taskID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, taskID)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- GET /api/tasks テスト ---

func TestTaskHandler_List_Success(t *testing.T) {
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	svc := &mockTaskService{
		listFn: func(ctx context.Context, userID string) ([]model.Task, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return []model.Task{
				{ID: "task-1", Title: "first", Status: model.TaskStatusOpen, DueDate: &due},
				{ID: "task-2", Title: "second", Status: model.TaskStatusComplete},
			}, nil
		},
	}
	h := NewTaskHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "user-123")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Tasks []taskResponse `json:"tasks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(resp.Tasks))
	}
	if resp.Tasks[0].DueDate != "2026-09-15" {
		t.Errorf("due_date = %q, want %q", resp.Tasks[0].DueDate, "2026-09-15")
	}
	if resp.Tasks[1].DueDate != "" {
		t.Errorf("due_date = %q, want empty", resp.Tasks[1].DueDate)
	}
}

func TestTaskHandler_List_Unauthorized(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeUnauthorized)
	}
}

// --- POST /api/tasks テスト ---

func TestTaskHandler_Create_Success(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
			if input.Title != "buy milk" {
				t.Errorf("title = %q, want %q", input.Title, "buy milk")
			}
			if input.DueDate == nil || input.DueDate.Format("2006-01-02") != "2026-09-15" {
				t.Errorf("due_date = %v, want 2026-09-15", input.DueDate)
			}
			now := time.Now()
			return &model.Task{
				ID: "task-1", UserID: userID, Title: input.Title,
				Description: input.Description, DueDate: input.DueDate,
				Status: model.TaskStatusOpen, CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}
	h := NewTaskHandler(svc)

	body := bytes.NewBufferString(`{"title":"buy milk","description":"2 liters","due_date":"2026-09-15"}`)
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", body), "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d. body = %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp taskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "Open" {
		t.Errorf("status = %q, want %q", resp.Status, "Open")
	}
}

func TestTaskHandler_Create_EmptyTitle(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
			return nil, model.NewEmptyTitleError()
		},
	}
	h := NewTaskHandler(svc)

	body := bytes.NewBufferString(`{"title":"   "}`)
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", body), "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeEmptyTitle {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeEmptyTitle)
	}
}

func TestTaskHandler_Create_InvalidDueDate(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := bytes.NewBufferString(`{"title":"t","due_date":"next tuesday"}`)
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", body), "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeInvalidDueDate {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidDueDate)
	}
}

func TestTaskHandler_Create_MalformedBody(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := bytes.NewBufferString(`{not json`)
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", body), "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/tasks/{id} テスト ---

func TestTaskHandler_Update_PartialFields(t *testing.T) {
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error) {
			if taskID != "task-1" {
				t.Errorf("taskID = %q, want %q", taskID, "task-1")
			}
			if input.Title == nil || *input.Title != "renamed" {
				t.Errorf("title = %v, want renamed", input.Title)
			}
			if input.Description != nil {
				t.Errorf("description should be untouched, got %v", *input.Description)
			}
			if input.SetDueDate {
				t.Error("due_date should be untouched when field is absent")
			}
			return &model.Task{ID: taskID, Title: *input.Title, Status: model.TaskStatusOpen}, nil
		},
	}
	h := NewTaskHandler(svc)

	body := bytes.NewBufferString(`{"title":"renamed"}`)
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/tasks/task-1", body), "user-123")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d. body = %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestTaskHandler_Update_ClearDueDate(t *testing.T) {
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error) {
			if !input.SetDueDate || input.DueDate != nil {
				t.Errorf("input = %+v, want SetDueDate with nil DueDate", input)
			}
			return &model.Task{ID: taskID, Status: model.TaskStatusOpen}, nil
		},
	}
	h := NewTaskHandler(svc)

	body := bytes.NewBufferString(`{"due_date":null}`)
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/tasks/task-1", body), "user-123")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d. body = %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestTaskHandler_Update_InvalidStatus(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := bytes.NewBufferString(`{"status":"Done"}`)
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/tasks/task-1", body), "user-123")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeInvalidStatus {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidStatus)
	}
}

func TestTaskHandler_Update_NotFound(t *testing.T) {
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, userID, taskID string, input task.UpdateInput) (*model.Task, error) {
			return nil, model.NewTaskNotFoundError(taskID)
		},
	}
	h := NewTaskHandler(svc)

	body := bytes.NewBufferString(`{"title":"x"}`)
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/tasks/other-users-task", body), "user-123")
	req = withChiURLParam(req, "id", "other-users-task")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeTaskNotFound {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeTaskNotFound)
	}
}

// --- DELETE /api/tasks/{id} テスト ---

func TestTaskHandler_Delete_Success(t *testing.T) {
	called := false
	svc := &mockTaskService{
		deleteFn: func(ctx context.Context, userID, taskID string) error {
			called = true
			if taskID != "task-1" {
				t.Errorf("taskID = %q, want %q", taskID, "task-1")
			}
			return nil
		},
	}
	h := NewTaskHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/tasks/task-1", nil), "user-123")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !called {
		t.Error("expected service.Delete to be called")
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] == "" {
		t.Error("expected acknowledgment message in response")
	}
}

func TestTaskHandler_Delete_StoreFailure_Returns500(t *testing.T) {
	svc := &mockTaskService{
		deleteFn: func(ctx context.Context, userID, taskID string) error {
			return errors.New("db down")
		},
	}
	h := NewTaskHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/tasks/task-1", nil), "user-123")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
