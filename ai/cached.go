package ai

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/procurekit/core"
)

// DefaultCacheSize 是 CachedEmbedder 默认缓存的文本条数。
const DefaultCacheSize = 4096

// DefaultFlightTimeout 是共享下游调用的超时。
const DefaultFlightTimeout = 30 * time.Second

// CachedEmbedder 为 Embedder 增加进程内缓存；
// 相同文本的并发请求只会向下游发起一次（singleflight）。
//
// 缓存满时随机淘汰一条，Embedder 的输出是确定的，淘汰只影响命中率。
// 共享调用不随任何一个调用方取消，每个调用方只放弃自己的等待。
type CachedEmbedder struct {
	inner   core.Embedder
	size    int
	timeout time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]float32
}

func NewCachedEmbedder(inner core.Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &CachedEmbedder{
		inner:   inner,
		size:    size,
		timeout: DefaultFlightTimeout,
		cache:   make(map[string][]float32),
	}
}

// WithFlightTimeout 设置共享下游调用的超时，返回 c 便于链式调用。
func (c *CachedEmbedder) WithFlightTimeout(d time.Duration) *CachedEmbedder {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func (c *CachedEmbedder) lookup(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cache[text]
	return v, ok
}

func (c *CachedEmbedder) store(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[text]; !ok && len(c.cache) >= c.size {
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[text] = vec
}

// Embed 返回的切片与缓存共享，调用方不得修改。
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(text); ok {
		return v, nil
	}
	ch := c.group.DoChan(text, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		vec, err := c.inner.Embed(callCtx, text)
		if err != nil {
			return nil, err
		}
		c.store(text, vec)
		return vec, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

// EmbedBatch 只为未命中的文本调用下游；下游支持批量时合并为一次请求。
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	for i, t := range texts {
		if v, ok := c.lookup(t); ok {
			out[i] = v
		} else if !slices.Contains(missing, t) {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch, ok := c.inner.(core.BatchEmbedder)
	if !ok {
		for i, t := range texts {
			if out[i] != nil {
				continue
			}
			v, err := c.Embed(ctx, t)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	vecs, err := batch.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding batch size mismatch: got %d want %d", len(vecs), len(missing))
	}
	fetched := make(map[string][]float32, len(missing))
	for i, t := range missing {
		c.store(t, vecs[i])
		fetched[t] = vecs[i]
	}
	for i, t := range texts {
		if out[i] == nil {
			out[i] = fetched[t]
		}
	}
	return out, nil
}

// Len 返回当前缓存条数。
func (c *CachedEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
