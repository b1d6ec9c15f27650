package store

import (
	"context"
	"fmt"

	"github.com/rushteam/procurekit/core"
)

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store 和 core.KeyValueStore 接口。
//
// 示例：
//   var kv core.KeyValueStore = NewMemoryStore()

// Kind 是 VECTOR_STORE 的取值。
const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

// Open 按 kind 打开存储后端。
func Open(ctx context.Context, kind string, redisOpts RedisOptions) (core.KeyValueStore, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindRedis:
		return NewRedisStore(ctx, redisOpts)
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeConfiguration,
			fmt.Sprintf("store: unknown kind %q (supported: %s, %s)", kind, KindMemory, KindRedis))
	}
}
