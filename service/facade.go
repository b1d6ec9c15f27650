// Package service 是对外的单一调用面：自然语言查询、结构化查询与健康检查。
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/nlq"
	"github.com/rushteam/procurekit/pkg/logger"
	"github.com/rushteam/procurekit/rank"
)

// Facade 组合 Extractor 与 Engine，本身不持有查询状态。
type Facade struct {
	index     *index.Index
	engine    *rank.Engine
	extractor *nlq.Extractor
	logger    *log.Logger
}

// Answer 是一次自然语言查询的结果。
type Answer struct {
	Items      []*core.Item
	Params     *core.QueryParameters
	Extraction *nlq.Extraction
}

// Health 描述索引是否可以对外服务。
type Health struct {
	Ready    bool     `json:"ready"`
	Entities int      `json:"entities"`
	Spaces   []string `json:"spaces"`
}

type Option func(*Facade)

func WithLogger(l *log.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// New 创建 Facade。Extractor 的权重参数必须指向 Engine 中已声明的 Space，
// 否则所有自然语言查询都会被拒绝，这里提前返回 CONFIGURATION 错误。
func New(ix *index.Index, engine *rank.Engine, extractor *nlq.Extractor, opts ...Option) (*Facade, error) {
	if extractor != nil {
		for _, p := range extractor.Params() {
			if p.Kind != nlq.KindWeight {
				continue
			}
			if _, ok := engine.Spaces().Get(p.Target); !ok {
				return nil, core.Errorf(core.ModuleNLQ, core.ErrorCodeConfiguration,
					"parameter %q targets unknown space %q", p.Name, p.Target)
			}
		}
	}
	f := &Facade{index: ix, engine: engine, extractor: extractor}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logger.OrNop(f.logger)
	return f, nil
}

// Ask 抽取参数，用 limit 覆盖抽取结果中的条数（limit 为 0 时保留默认值），再执行查询。
func (f *Facade) Ask(ctx context.Context, text string, limit int) (*Answer, error) {
	if f.extractor == nil {
		return nil, core.NewDomainError(core.ModuleNLQ, core.ErrorCodeNotSupported, "natural language queries are not configured")
	}
	start := time.Now()
	ext, err := f.extractor.ExtractDetailed(ctx, text)
	if err != nil {
		return nil, err
	}
	params := ext.Params
	if limit != 0 {
		params.Limit = limit
	}
	items, err := f.engine.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	f.logger.Info("ask",
		"fallback", ext.Fallback,
		"anomalies", len(ext.Anomalies),
		"results", len(items),
		"elapsed", time.Since(start))
	return &Answer{Items: items, Params: params, Extraction: ext}, nil
}

// Search 执行结构化查询。
func (f *Facade) Search(ctx context.Context, params *core.QueryParameters) ([]*core.Item, error) {
	return f.engine.Search(ctx, params)
}

func (f *Facade) Health() Health {
	return Health{
		Ready:    f.index.Ready(),
		Entities: f.index.Len(),
		Spaces:   f.engine.Spaces().Names(),
	}
}

// Index 返回底层索引，供导入使用。
func (f *Facade) Index() *index.Index { return f.index }
