package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 全クエリは所有者スコープ（user_id条件）をWHERE句に含み、
// アプリケーション層のチェックに依存せずデータアクセス層で分離を保証する。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// taskColumns はタスク取得クエリで使用するカラムリスト。
const taskColumns = `id, user_id, title, description, due_date, status, created_at, updated_at`

// scanTask は1行分のタスクをスキャンする。
func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	task := &model.Task{}
	var dueDate sql.NullTime
	err := scanner.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&dueDate, &task.Status, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}
	return task, nil
}

// ListByUserID はユーザーの全タスクを作成日時降順で返す。
// タスクが存在しない場合は空スライスを返す。
func (r *PostgresTaskRepo) ListByUserID(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// ListRecentByUserID はユーザーの直近のタスクを作成日時降順で最大limit件返す。
func (r *PostgresTaskRepo) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Create は新規タスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, due_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.UserID, task.Title, task.Description,
		task.DueDate, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// UpdateScoped はタスクIDと所有者IDの両方でスコープした部分更新を行う。
// nilフィールドはCOALESCEで既存値を維持し、updated_atは常にnow()で更新する。
// 一致する行がない場合（ID不一致または他ユーザー所有）はnilを返す。
// どちらのケースかは呼び出し元に区別させない。
func (r *PostgresTaskRepo) UpdateScoped(ctx context.Context, id, userID string, update model.TaskUpdate) (*model.Task, error) {
	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			due_date = CASE WHEN $5 THEN $6 ELSE due_date END,
			status = COALESCE($7, status),
			updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+taskColumns,
		id, userID, update.Title, update.Description,
		update.SetDueDate, update.DueDate, status,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteScoped はタスクIDと所有者IDの両方でスコープした削除を行う。
// 行が削除されたかどうかを返す。削除対象がなくてもエラーにはしない。
func (r *PostgresTaskRepo) DeleteScoped(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
