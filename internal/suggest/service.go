package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Completer はチャット補完のインターフェース。
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// MetricsRecorder は提案生成のメトリクス記録のインターフェース。
type MetricsRecorder interface {
	ObserveSuggestionDuration(seconds float64)
	RecordSuggestionFailure()
}

// ServiceConfig は提案サービスの設定。
type ServiceConfig struct {
	ContextTasks int // プロンプトに含める直近タスクの最大件数
}

// Service はユーザーのタスク状況を踏まえたAI提案を生成する。
type Service struct {
	completer Completer
	taskRepo  repository.TaskRepository
	metrics   MetricsRecorder
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(completer Completer, taskRepo repository.TaskRepository, metrics MetricsRecorder, config ServiceConfig) *Service {
	return &Service{
		completer: completer,
		taskRepo:  taskRepo,
		metrics:   metrics,
		config:    config,
	}
}

// taskContext はプロンプトに埋め込むタスクの要約表現。
type taskContext struct {
	Title   string `json:"title"`
	Status  string `json:"status"`
	DueDate string `json:"due_date,omitempty"`
}

// Suggest はプロンプトとユーザーの直近タスクからAI提案を生成する。
// プロバイダー側の失敗はすべてUpstream系のAPIErrorに変換する。
func (s *Service) Suggest(ctx context.Context, userID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", model.NewPromptRequiredError()
	}

	// 1. 直近のタスクを取得してコンテキストを作る。取得失敗は提案自体を諦めない
	systemPrompt := s.buildSystemPrompt(ctx, userID)

	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	// 2. チャット補完APIを呼び出す
	start := time.Now()
	answer, err := s.completer.Complete(ctx, messages)
	s.metrics.ObserveSuggestionDuration(time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSuggestionFailure()
		slog.Error("suggestion generation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return "", model.NewSuggestionFailedError(err.Error())
	}

	return answer, nil
}

// buildSystemPrompt はユーザーの直近タスクを埋め込んだシステムプロンプトを構築する。
func (s *Service) buildSystemPrompt(ctx context.Context, userID string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI assistant for a todo task management app. ")
	sb.WriteString("Help users organize their tasks, suggest priorities, and break down work into actionable steps. ")
	sb.WriteString("Keep responses under 200 words.")

	tasks, err := s.taskRepo.ListRecentByUserID(ctx, userID, s.config.ContextTasks)
	if err != nil {
		// コンテキストなしでも提案は成立する
		slog.Warn("failed to load task context for suggestion",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return sb.String()
	}
	if len(tasks) == 0 {
		return sb.String()
	}

	contexts := make([]taskContext, 0, len(tasks))
	for _, t := range tasks {
		tc := taskContext{Title: t.Title, Status: string(t.Status)}
		if t.DueDate != nil {
			tc.DueDate = t.DueDate.Format("2006-01-02")
		}
		contexts = append(contexts, tc)
	}

	encoded, err := json.Marshal(contexts)
	if err != nil {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("\n\nThe user's current tasks: %s", encoded))
	return sb.String()
}
