// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeEmptyTitle       = "EMPTY_TITLE"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeInvalidDueDate   = "INVALID_DUE_DATE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"
	ErrCodePromptRequired   = "PROMPT_REQUIRED"
	ErrCodeSuggestionFailed = "SUGGESTION_FAILED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
// リソースの存在有無を漏らさないよう、常に同一メッセージを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewEmptyTitleError はタイトル未入力エラーを生成する。
func NewEmptyTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTitle,
		Message:  "タイトルを入力してください。",
		Category: "validation",
		Action:   "1文字以上のタイトルを指定してください。",
	}
}

// NewInvalidStatusError は無効なステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには Open または Complete を指定してください。",
	}
}

// NewInvalidDueDateError は無効な期日エラーを生成する。
func NewInvalidDueDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDueDate,
		Message:  fmt.Sprintf("無効な期日です: %s", value),
		Category: "validation",
		Action:   "期日は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 存在しないIDと他ユーザー所有のIDを区別しない（存在の漏洩を防ぐため同一応答とする）。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewPromptRequiredError はプロンプト未入力エラーを生成する。
func NewPromptRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePromptRequired,
		Message:  "プロンプトを入力してください。",
		Category: "validation",
		Action:   "提案してほしい内容を入力してください。",
	}
}

// NewSuggestionFailedError はAI提案の生成失敗エラーを生成する。
func NewSuggestionFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSuggestionFailed,
		Message:  fmt.Sprintf("AI提案の生成に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
