// Package rank 实现多 Space 加权排序：过滤、打分、Top-K。
//
// 流程：
//  1. 校验参数并编译过滤条件
//  2. 对 Probe 文本做一次 Embedding（需要时）
//  3. 把快照切分给多个 worker，每个 worker 过滤、打分并维护局部 Top-K
//  4. 单线程合并局部结果，按分数降序、id 升序排序后截断
package rank

import (
	"context"
	"errors"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/filter"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/pkg/logger"
	"github.com/rushteam/procurekit/space"
)

// 每处理多少条检查一次取消。
const cancelCheckEvery = 256

// Engine 是无状态的查询引擎，可并发调用。
type Engine struct {
	index        *index.Index
	spaces       *space.Set
	catalog      *core.Catalog
	embedder     core.Embedder
	workers      int
	embedTimeout time.Duration
	logger       *log.Logger
}

// Option 配置 Engine。
type Option func(*Engine)

// WithWorkers 设置打分并发度，默认 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithEmbedTimeout 设置 Probe Embedding 的超时。
func WithEmbedTimeout(d time.Duration) Option {
	return func(e *Engine) { e.embedTimeout = d }
}

// WithLogger 注入日志器。
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(ix *index.Index, embedder core.Embedder, opts ...Option) *Engine {
	e := &Engine{
		index:        ix,
		spaces:       ix.Spaces(),
		catalog:      ix.Catalog(),
		embedder:     embedder,
		workers:      runtime.GOMAXPROCS(0),
		embedTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.OrNop(e.logger).With("module", core.ModuleQuery)
	return e
}

// Spaces 返回引擎使用的 Space 集合。
func (e *Engine) Spaces() *space.Set { return e.spaces }

// Search 执行一次查询，返回至多 params.Limit 条结果。
// 调用被取消时返回 ctx.Err()，不返回部分结果。
func (e *Engine) Search(ctx context.Context, params *core.QueryParameters) ([]*core.Item, error) {
	if err := e.validate(params); err != nil {
		return nil, err
	}
	chain, err := filter.Compile(e.catalog, params.Filters)
	if err != nil {
		return nil, err
	}
	weights := e.spaces.Resolve(params.Weights)
	probe, err := e.probe(ctx, params, weights)
	if err != nil {
		return nil, err
	}

	snap := e.index.Snapshot()
	parts, err := e.scan(ctx, snap, chain, weights, probe, params.Limit)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	top := merge(params.Limit, parts)
	items := make([]*core.Item, len(top))
	for i, c := range top {
		items[i] = e.toItem(c, weights)
	}
	e.logger.Debug("search done", "scanned", len(snap), "returned", len(items), "limit", params.Limit)
	return items, nil
}

func (e *Engine) validate(params *core.QueryParameters) error {
	if params == nil {
		return invalidParams("query parameters are required")
	}
	if params.Limit <= 0 {
		return invalidParams("limit must be positive, got %d", params.Limit)
	}
	for name, w := range params.Weights {
		if _, ok := e.spaces.Get(name); !ok {
			return invalidParams("unknown space %q in weights", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return invalidParams("weight for %q must be a finite number >= 0, got %v", name, w)
		}
	}
	return nil
}

// probe 构建查询侧输入；只有 ProbeText 非空且存在非零权重的文本 Space 时才调用 Embedder。
func (e *Engine) probe(ctx context.Context, params *core.QueryParameters, weights []float64) (*space.Probe, error) {
	p := &space.Probe{Requested: make(map[string][]string)}
	needText := false
	for i, sp := range e.spaces.Spaces() {
		if weights[i] == 0 {
			continue
		}
		switch sp.Kind() {
		case space.KindText:
			needText = true
		case space.KindCategorical:
			for _, attr := range sp.Attributes() {
				if f, ok := params.FilterFor(attr, core.OpIn); ok {
					p.Requested[attr] = f.Values
				}
			}
		}
	}
	if !needText || params.ProbeText == "" {
		return p, nil
	}
	if e.embedder == nil {
		return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeConfiguration, "no embedder configured for text spaces")
	}

	callCtx := ctx
	if e.embedTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.embedTimeout)
		defer cancel()
	}
	vec, err := e.embedder.Embed(callCtx, params.ProbeText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.WrapError(core.ModuleQuery, core.ErrorCodeExternalService, "embed probe", err)
	}
	p.Vector = vec
	return p, nil
}

func (e *Engine) scan(
	ctx context.Context,
	snap []*index.Entry,
	chain filter.Chain,
	weights []float64,
	probe *space.Probe,
	limit int,
) ([]*topK, error) {
	workers := min(e.workers, len(snap))
	if workers <= 0 {
		return nil, nil
	}
	spaces := e.spaces.Spaces()
	parts := make([]*topK, workers)
	chunk := (len(snap) + workers - 1) / workers

	eg, egCtx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(snap))
		if lo >= hi {
			continue
		}
		eg.Go(func() error {
			local := newTopK(limit)
			for i, entry := range snap[lo:hi] {
				if i%cancelCheckEvery == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				if !chain.Keep(entry.Entity) {
					continue
				}
				local.offer(score(entry, spaces, weights, probe))
			}
			parts[w] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
		return nil, err
	}
	return parts, nil
}

// score 计算 Σ weight × contribution，按 Space 声明顺序求和，保证浮点结果确定。
func score(entry *index.Entry, spaces []space.Space, weights []float64, probe *space.Probe) *candidate {
	c := &candidate{entry: entry, contributions: make([]float64, len(spaces))}
	for i, sp := range spaces {
		w := weights[i]
		if w == 0 {
			continue
		}
		contrib := w * sp.Contribution(entry.Features[sp.Name()], probe)
		c.contributions[i] = contrib
		c.score += contrib
	}
	return c
}

func (e *Engine) toItem(c *candidate, weights []float64) *core.Item {
	it := core.NewItem(c.entry.ID())
	it.Score = c.score
	it.Meta = c.entry.Entity.Fields()

	best, bestIdx := math.Inf(-1), -1
	for i, sp := range e.spaces.Spaces() {
		if weights[i] == 0 {
			continue
		}
		it.Features[sp.Name()] = c.contributions[i]
		if c.contributions[i] > best {
			best, bestIdx = c.contributions[i], i
		}
	}
	if bestIdx >= 0 && best > 0 {
		it.PutLabel("rank_space", core.Label{Value: e.spaces.Spaces()[bestIdx].Name(), Source: "rank"})
	}
	return it
}

func invalidParams(format string, args ...any) error {
	return core.Errorf(core.ModuleQuery, core.ErrorCodeInvalidParameters, format, args...)
}
