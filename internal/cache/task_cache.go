// Package cache はユーザーごとのタスク一覧スナップショットを保持するキャッシュ層を提供する。
// Redis互換のキーバリューストアを使用し、エントリのライフサイクル
// （TTL付き生成、ミューテーション時の破棄）はこのパッケージが排他的に所有する。
// キャッシュはあくまで最適化であり、正しさの拠り所にはしない。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/taskman/internal/model"
)

// keyPrefix はタスクスナップショットのキープレフィックス。
// キーは tasks:<user_id> の形式で、ユーザーごとに最大1エントリ。
const keyPrefix = "tasks:"

// OpenClient はRedis接続URLからクライアントを生成する。
// redis.NewClientは接続を試行しないため、実際の接続確認にはPingを使用すること。
func OpenClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// TaskCache はユーザーIDをキーとするタスク一覧スナップショットのキャッシュ。
// 値は作成日時降順のタスク列をJSONシリアライズしたもの。
type TaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTaskCache はTaskCacheを生成する。
// ttlはエントリの生存期間で、経過後はエントリが存在しないものとして扱われる。
func NewTaskCache(client *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{
		client: client,
		ttl:    ttl,
	}
}

// Get は指定ユーザーのスナップショットを取得する。
// 2番目の戻り値はキャッシュヒットしたかどうかを表す（ミスはエラーではない）。
func (c *TaskCache) Get(ctx context.Context, userID string) ([]model.Task, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		// 壊れたエントリはミス扱い。次のSetで上書きされる。
		return nil, false, fmt.Errorf("cache entry unmarshal failed: %w", err)
	}

	return tasks, true, nil
}

// Set は指定ユーザーのスナップショットを固定TTL付きで保存する。
func (c *TaskCache) Set(ctx context.Context, userID string, tasks []model.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("cache entry marshal failed: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+userID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}

	return nil
}

// Invalidate は指定ユーザーのスナップショットを破棄する。
// エントリが存在しなくてもエラーにはならない（冪等）。
func (c *TaskCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("cache invalidate failed: %w", err)
	}
	return nil
}

// Ping はRedis接続の疎通を確認する。
func (c *TaskCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
