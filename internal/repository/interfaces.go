// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/taskman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はIdPから取得した表示名・アバターを更新する。
	UpdateProfile(ctx context.Context, id, name, avatarURL string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// 全ての読み書きは所有者スコープで行い、他ユーザーのタスクには一切触れない。
type TaskRepository interface {
	// ListByUserID はユーザーの全タスクを作成日時降順で返す。
	// タスクが存在しない場合は空スライスを返す（エラーではない）。
	ListByUserID(ctx context.Context, userID string) ([]model.Task, error)

	// ListRecentByUserID はユーザーの直近のタスクを作成日時降順で最大limit件返す。
	// AI提案のコンテキスト取得に使用する。
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]model.Task, error)

	// Create は新規タスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// UpdateScoped はタスクIDと所有者IDの両方でスコープした部分更新を行う。
	// nilフィールドは変更せず、updated_atは常に更新する。
	// 一致する行がない場合（ID不一致または他ユーザー所有）はnilを返す。
	UpdateScoped(ctx context.Context, id, userID string, update model.TaskUpdate) (*model.Task, error)

	// DeleteScoped はタスクIDと所有者IDの両方でスコープした削除を行う。
	// 行が削除されたかどうかを返す（削除対象がなくてもエラーではない）。
	DeleteScoped(ctx context.Context, id, userID string) (bool, error)
}
