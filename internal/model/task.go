// Package model はドメインモデルを定義する。
package model

import "time"

// TaskStatus はタスクの状態を表す。
type TaskStatus string

const (
	// TaskStatusOpen は未完了のタスクを表す。
	TaskStatusOpen TaskStatus = "Open"
	// TaskStatusComplete は完了済みのタスクを表す。
	TaskStatusComplete TaskStatus = "Complete"
)

// IsValid はTaskStatusが定義済みの値かどうかを判定する。
func (s TaskStatus) IsValid() bool {
	return s == TaskStatusOpen || s == TaskStatusComplete
}

// Task はユーザーが所有するタスクを表す。
// 所有者（UserID）は作成後に変更されない。
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskUpdate は部分更新で変更するフィールドを表す。
// nilのフィールドは変更せず、既存の値を維持する。
// DueDateはSetDueDateがtrueの場合のみ反映する（nilへの更新=期日クリアを区別するため）。
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	SetDueDate  bool
	Status      *TaskStatus
}
