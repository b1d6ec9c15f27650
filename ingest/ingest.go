// Package ingest 把原始商品记录（CSV 文件或 JSON）分块写入 Index。
//
// 每条记录独立生效：转换失败或未通过规则的记录被跳过并记录日志，不影响同批次其他记录。
package ingest

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/pkg/dsl"
	"github.com/rushteam/procurekit/pkg/logger"
)

// DefaultChunkSize 是每批写入的记录数。
const DefaultChunkSize = 10

// Report 汇总一次导入。
type Report struct {
	Read     int `json:"read"`     // 读到的记录数
	Loaded   int `json:"loaded"`   // 成功写入
	Rejected int `json:"rejected"` // 转换失败或未通过规则
	Failed   int `json:"failed"`   // 写入 Index 失败（Embedding 等）
}

func (r *Report) add(o Report) {
	r.Read += o.Read
	r.Loaded += o.Loaded
	r.Rejected += o.Rejected
	r.Failed += o.Failed
}

// Loader 负责转换、规则校验与分块写入，可并发使用。
type Loader struct {
	index     *index.Index
	catalog   *core.Catalog
	rules     dsl.RuleSet
	chunkSize int
	logger    *log.Logger
}

type Option func(*Loader)

// WithRules 设置导入规则，未通过任一规则的记录被跳过。
func WithRules(rules dsl.RuleSet) Option {
	return func(l *Loader) { l.rules = rules }
}

func WithChunkSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

func WithLogger(lg *log.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

func New(ix *index.Index, opts ...Option) *Loader {
	l := &Loader{index: ix, catalog: ix.Catalog(), chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logger.OrNop(l.logger).With("module", core.ModuleIngest)
	return l
}

// Records 导入一组原始记录（例如 REST 请求体）。
func (l *Loader) Records(ctx context.Context, records []map[string]any) (Report, error) {
	var total Report
	for start := 0; start < len(records); start += l.chunkSize {
		end := min(start+l.chunkSize, len(records))
		rep, err := l.chunk(ctx, records[start:end])
		total.add(rep)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// chunk 写入一个批次；只有调用方取消才返回错误。
func (l *Loader) chunk(ctx context.Context, records []map[string]any) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	rep := Report{Read: len(records)}
	entities := make([]*core.Entity, 0, len(records))
	for _, raw := range records {
		e, err := l.catalog.Conform(raw)
		if err != nil {
			rep.Rejected++
			l.logger.Warn("record rejected", "err", err)
			continue
		}
		if rule, err := l.rules.Check(e); rule != nil {
			rep.Rejected++
			l.logger.Warn("record rejected by rule", "id", e.ID, "rule", rule.Name, "expr", rule.Expr, "err", err)
			continue
		}
		entities = append(entities, e)
	}

	err := l.index.UpsertBatch(ctx, entities)
	failed := countErrors(err)
	rep.Failed = failed
	rep.Loaded = len(entities) - failed
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, ctxErr
		}
		l.logger.Error("upsert failed", "records", failed, "err", err)
	}
	return rep, nil
}

func countErrors(err error) int {
	if err == nil {
		return 0
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}

// ErrNoHeader 表示 CSV 没有表头或缺少 id 列。
var ErrNoHeader = errors.New("csv has no usable header")

func wrapRead(err error) error {
	return core.WrapError(core.ModuleIngest, core.ErrorCodeInvalidInput, "read csv", err)
}
