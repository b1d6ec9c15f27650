package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/procurekit/core"
)

// UpsertBatch 并发写入一批记录，每条记录独立生效；批次边界没有语义。
// 返回所有失败记录的错误（errors.Join），成功的记录不受影响。
//
// 若 Embedder 实现了 core.BatchEmbedder，先一次性批量计算文本向量，
// 批量调用失败时退回逐条调用。
func (ix *Index) UpsertBatch(ctx context.Context, entities []*core.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	embedder := ix.prefetch(ctx, entities)

	var (
		mu   sync.Mutex
		errs []error
		eg   errgroup.Group
	)
	eg.SetLimit(ix.concurrency)

	for _, e := range entities {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if err := ix.upsertWith(ctx, embedder, e); err != nil {
				id := "<nil>"
				if e != nil {
					id = e.ID
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("upsert %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}

func (ix *Index) upsertWith(ctx context.Context, embedder core.Embedder, e *core.Entity) error {
	if err := ix.catalog.Check(e); err != nil {
		return err
	}
	version := ix.clock.Add(1)
	entity := e.Clone()
	features, err := ix.encode(ctx, embedder, entity)
	if err != nil {
		return err
	}
	_, err = ix.publish(ctx, &Entry{Entity: entity, Features: features, Version: version}, true)
	return err
}

// prefetch 对批次中所有文本 Space 的输入做一次批量 Embedding。
func (ix *Index) prefetch(ctx context.Context, entities []*core.Entity) core.Embedder {
	batch, ok := ix.embedder.(core.BatchEmbedder)
	if !ok {
		return ix.embedder
	}
	seen := make(map[string]struct{})
	var texts []string
	for _, ts := range ix.spaces.TextSpaces() {
		attrs := ts.Attributes()
		for _, e := range entities {
			if e == nil {
				continue
			}
			text := e.Text(attrs...)
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return ix.embedder
	}

	callCtx := ctx
	if ix.embedTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, ix.embedTimeout)
		defer cancel()
	}
	vectors, err := batch.EmbedBatch(callCtx, texts)
	if err != nil || len(vectors) != len(texts) {
		ix.logger.Warn("batch embedding failed, falling back to single calls", "texts", len(texts), "err", err)
		return ix.embedder
	}
	cache := make(map[string][]float32, len(texts))
	for i, t := range texts {
		cache[t] = vectors[i]
	}
	return &prefetched{cache: cache, next: ix.embedder}
}

type prefetched struct {
	cache map[string][]float32
	next  core.Embedder
}

func (p *prefetched) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := p.cache[text]; ok {
		return v, nil
	}
	return p.next.Embed(ctx, text)
}
