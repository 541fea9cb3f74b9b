// Package task はタスクCRUDのビジネスロジックとキャッシュ戦略を提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// TaskCache はユーザー単位のタスク一覧キャッシュのインターフェース。
type TaskCache interface {
	// Get はキャッシュされたタスク一覧を取得する。第2戻り値はヒットしたかどうか。
	Get(ctx context.Context, userID string) ([]model.Task, bool, error)
	// Set はタスク一覧をキャッシュに保存する。
	Set(ctx context.Context, userID string, tasks []model.Task) error
	// Invalidate はユーザーのキャッシュエントリを削除する。
	Invalidate(ctx context.Context, userID string) error
}

// Sanitizer は入力文字列のサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(input string) string
}

// MetricsRecorder はタスク操作のメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordTaskMutation(operation string)
}

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// UpdateInput はタスク部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	SetDueDate  bool // trueの場合のみdue_dateを更新する（DueDate=nilならクリア）
	Status      *model.TaskStatus
}

// Service はタスクに関するビジネスロジックを提供する。
// 読み取りはキャッシュ経由、書き込みは必ずキャッシュを無効化する。
type Service struct {
	taskRepo  repository.TaskRepository
	cache     TaskCache
	sanitizer Sanitizer
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository, cache TaskCache, sanitizer Sanitizer, metrics MetricsRecorder) *Service {
	return &Service{
		taskRepo:  taskRepo,
		cache:     cache,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// List はユーザーのタスク一覧を作成日時の降順で取得する。
// キャッシュヒット時はキャッシュの内容をそのまま返し、ミスまたは
// キャッシュ障害時はDBから取得してベストエフォートでキャッシュに書き戻す。
func (s *Service) List(ctx context.Context, userID string) ([]model.Task, error) {
	// 1. キャッシュから取得を試みる
	cached, hit, err := s.cache.Get(ctx, userID)
	if err != nil {
		// キャッシュ障害はDBフォールバックで吸収する
		slog.Warn("task cache read failed, falling back to database",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if hit {
		s.metrics.RecordCacheHit()
		return cached, nil
	}
	s.metrics.RecordCacheMiss()

	// 2. DBから取得
	tasks, err := s.taskRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	// 3. ベストエフォートでキャッシュに書き戻す。失敗してもリクエストは成功させる
	if err := s.cache.Set(ctx, userID, tasks); err != nil {
		slog.Warn("task cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return tasks, nil
}

// Create は新しいタスクを作成する。
// タイトルはサニタイズとトリムの後に空チェックされ、ステータスは常にOpenで開始する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		return nil, model.NewEmptyTitleError()
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		DueDate:     input.DueDate,
		Status:      model.TaskStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.metrics.RecordTaskMutation("create")

	s.invalidateCache(ctx, userID)

	return task, nil
}

// Update はユーザー自身のタスクを部分更新する。
// 他のユーザーのタスクや存在しないIDの場合は見つからない扱いで、
// どちらのケースかは呼び出し側に区別させない。
func (s *Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (*model.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		// 不正な形式のIDは存在しないIDと同じ扱いにする
		return nil, model.NewTaskNotFoundError(taskID)
	}

	update := model.TaskUpdate{
		DueDate:    input.DueDate,
		SetDueDate: input.SetDueDate,
		Status:     input.Status,
	}

	if input.Title != nil {
		title := s.sanitizer.Sanitize(*input.Title)
		if title == "" {
			return nil, model.NewEmptyTitleError()
		}
		update.Title = &title
	}
	if input.Description != nil {
		description := s.sanitizer.Sanitize(*input.Description)
		update.Description = &description
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, model.NewInvalidStatusError(string(*input.Status))
	}

	// フィールドが1つもない更新も受け付ける。
	// ストア側でupdated_atだけが更新される（タッチ更新）。
	task, err := s.taskRepo.UpdateScoped(ctx, taskID, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	s.metrics.RecordTaskMutation("update")

	s.invalidateCache(ctx, userID)

	return task, nil
}

// Delete はユーザー自身のタスクを削除する。
// Delete は冪等な削除を行う。対象行が存在しない場合（不正なID、他人のタスク、
// 削除済み）もエラーにせず成功として扱い、キャッシュは常に破棄する。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := uuid.Parse(taskID); err != nil {
		// マッチしうる行が存在しないため、ストアには問い合わせない
		s.invalidateCache(ctx, userID)
		return nil
	}

	deleted, err := s.taskRepo.DeleteScoped(ctx, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if deleted {
		s.metrics.RecordTaskMutation("delete")
	}

	s.invalidateCache(ctx, userID)

	return nil
}

// invalidateCache はユーザーのキャッシュを無効化する。
// 無効化の失敗はログに残すが、ミューテーション自体は成功扱いにする。
func (s *Service) invalidateCache(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		slog.Warn("task cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
