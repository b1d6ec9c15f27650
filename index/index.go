// Package index 保存每个商品的原始属性与各 Space 的预计算特征。
//
// 并发模型：
//   - 已发布的 Entry 不可变，写入即整体替换指针
//   - RWMutex 只在替换指针与拍快照时持有，从不跨越 I/O
//   - 同一 id 的写入通过分段锁串行化，不同 id 之间并发
//   - 同一 id 的并发写入按开始顺序“后写者胜”
package index

import (
	"context"
	"hash/fnv"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/pkg/logger"
	"github.com/rushteam/procurekit/space"
)

const stripes = 64

// Entry 是 Index 中的一条记录，发布后只读。
type Entry struct {
	Entity   *core.Entity             `json:"entity"`
	Features map[string]space.Feature `json:"features"`
	Version  uint64                   `json:"version"`
}

// ID 返回 Entry 的商品 id。
func (e *Entry) ID() string { return e.Entity.ID }

// Index 是内存索引，可选地以 core.KeyValueStore 持久化。
type Index struct {
	catalog  *core.Catalog
	spaces   *space.Set
	embedder core.Embedder

	store        core.KeyValueStore
	prefix       string
	embedTimeout time.Duration
	concurrency  int
	logger       *log.Logger

	clock atomic.Uint64
	locks [stripes]sync.Mutex

	mu      sync.RWMutex
	entries map[string]*Entry
}

// Option 配置 Index。
type Option func(*Index)

// WithStore 开启持久化：每次写入同步落到 store 的 Hash 中。
func WithStore(store core.KeyValueStore, prefix string) Option {
	return func(ix *Index) {
		ix.store = store
		ix.prefix = prefix
	}
}

// WithEmbedTimeout 设置单次 Embedding 调用的超时。
func WithEmbedTimeout(d time.Duration) Option {
	return func(ix *Index) { ix.embedTimeout = d }
}

// WithConcurrency 设置 UpsertBatch 的最大并发数。
func WithConcurrency(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithLogger 注入日志器。
func WithLogger(l *log.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// New 创建空索引。
func New(catalog *core.Catalog, spaces *space.Set, embedder core.Embedder, opts ...Option) *Index {
	ix := &Index{
		catalog:      catalog,
		spaces:       spaces,
		embedder:     embedder,
		prefix:       "procurekit:",
		embedTimeout: 30 * time.Second,
		concurrency:  8,
		entries:      make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = logger.OrNop(ix.logger).With("module", core.ModuleIndex)
	return ix
}

// Spaces 返回索引使用的 Space 集合。
func (ix *Index) Spaces() *space.Set { return ix.spaces }

// Catalog 返回索引使用的 Catalog。
func (ix *Index) Catalog() *core.Catalog { return ix.catalog }

// Upsert 计算 Entity 的全部特征后原子发布；相同 id 覆盖旧记录。
// 特征计算失败或持久化失败时不发布，旧记录保持不变。
func (ix *Index) Upsert(ctx context.Context, e *core.Entity) error {
	return ix.upsertWith(ctx, ix.embedder, e)
}

func (ix *Index) encode(ctx context.Context, embedder core.Embedder, e *core.Entity) (map[string]space.Feature, error) {
	if ix.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.embedTimeout)
		defer cancel()
	}
	return ix.spaces.Features(ctx, embedder, e)
}

// publish 在分段锁内完成“持久化 + 替换指针”。
// 已发布版本比 entry 新时放弃本次写入（并发写入同一 id 时的后写者胜）。
func (ix *Index) publish(ctx context.Context, entry *Entry, persist bool) (bool, error) {
	lock := &ix.locks[stripe(entry.ID())]
	lock.Lock()
	defer lock.Unlock()

	ix.mu.RLock()
	cur := ix.entries[entry.ID()]
	ix.mu.RUnlock()
	if cur != nil && cur.Version > entry.Version {
		ix.logger.Debug("superseded upsert dropped", "id", entry.ID(), "version", entry.Version, "current", cur.Version)
		return false, nil
	}

	if persist && ix.store != nil {
		if err := ix.persist(ctx, entry); err != nil {
			return false, err
		}
	}

	ix.mu.Lock()
	ix.entries[entry.ID()] = entry
	ix.mu.Unlock()
	return true, nil
}

func stripe(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32() % stripes
}

// Get 按 id 返回 Entity 的副本。
func (ix *Index) Get(id string) (*core.Entity, error) {
	ix.mu.RLock()
	entry, ok := ix.entries[id]
	ix.mu.RUnlock()
	if !ok {
		return nil, core.Errorf(core.ModuleIndex, core.ErrorCodeNotFound, "entity %q not found", id)
	}
	return entry.Entity.Clone(), nil
}

// Entry 按 id 返回已发布的 Entry（只读）。
func (ix *Index) Entry(id string) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.entries[id]
	return entry, ok
}

// AllIDs 返回排序后的全部 id。
func (ix *Index) AllIDs() []string {
	ix.mu.RLock()
	ids := make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	ix.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Snapshot 返回调用时刻的全部 Entry；Entry 不可变，切片归调用方所有。
func (ix *Index) Snapshot() []*Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Entry, 0, len(ix.entries))
	for _, entry := range ix.entries {
		out = append(out, entry)
	}
	return out
}

// Scan 遍历调用时刻的快照：无重复、无遗漏，遍历期间的写入不可见。
func (ix *Index) Scan() iter.Seq[*Entry] {
	snap := ix.Snapshot()
	return func(yield func(*Entry) bool) {
		for _, entry := range snap {
			if !yield(entry) {
				return
			}
		}
	}
}

// Len 返回记录数。
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Ready 表示索引非空且 Space 已初始化。
func (ix *Index) Ready() bool {
	return ix.spaces != nil && ix.spaces.Len() > 0 && ix.Len() > 0
}

// DistinctValues 返回某个字符串属性的去重取值（排序），空值忽略。
func (ix *Index) DistinctValues(attr string) []string {
	seen := make(map[string]struct{})
	for entry := range ix.Scan() {
		if v, ok := entry.Entity.StringValue(attr); ok && v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
