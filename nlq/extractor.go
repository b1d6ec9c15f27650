// Package nlq 把自然语言的采购需求抽取为 QueryParameters。
//
// 一次抽取的状态流转：
//
//	Received → Requested → Parsed | Failed → Validated → Returned
//
// LLM 调用失败、超时或输出无法解码时进入 Failed，返回声明的默认参数，
// 并把原文作为 ProbeText；调用方取消时直接返回 ctx.Err()。
package nlq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/pkg/logger"
)

const (
	schemaName        = "procurement_query"
	schemaDescription = "Search parameters extracted from a procurement request"
)

// State 是一次抽取所处的阶段。
type State string

const (
	StateReceived  State = "received"
	StateRequested State = "requested"
	StateParsed    State = "parsed"
	StateFailed    State = "failed"
	StateValidated State = "validated"
	StateReturned  State = "returned"
)

// OptionSource 提供动态类目属性（如 brand）的当前取值集合，*index.Index 满足该接口。
type OptionSource interface {
	DistinctValues(attr string) []string
}

// Extraction 是一次抽取的完整结果。
type Extraction struct {
	Params    *core.QueryParameters
	Anomalies []Anomaly
	Fallback  bool    // 是否使用了默认参数
	Cause     error   // Fallback 的原因
	State     State   // 终态，总是 StateReturned
	Trace     []State // 经过的状态
	Raw       map[string]any
}

func (e *Extraction) enter(s State) {
	e.State = s
	e.Trace = append(e.Trace, s)
}

// Extractor 调用 Completer 抽取参数并修正越界值，可并发调用。
type Extractor struct {
	catalog      *core.Catalog
	completer    core.Completer
	params       []Param
	options      OptionSource
	systemPrompt string
	timeout      time.Duration
	limiter      *rate.Limiter
	logger       *log.Logger
}

// Option 配置 Extractor。
type Option func(*Extractor)

// WithParams 替换参数声明。
func WithParams(params []Param) Option {
	return func(x *Extractor) { x.params = params }
}

// WithOptionSource 设置动态类目取值来源。
func WithOptionSource(src OptionSource) Option {
	return func(x *Extractor) { x.options = src }
}

func WithSystemPrompt(prompt string) Option {
	return func(x *Extractor) {
		if prompt != "" {
			x.systemPrompt = prompt
		}
	}
}

// WithTimeout 设置单次 LLM 调用的超时，默认 30s；0 表示不限。
func WithTimeout(d time.Duration) Option {
	return func(x *Extractor) { x.timeout = d }
}

// WithRateLimit 限制每秒发往 LLM 的请求数。
func WithRateLimit(perSecond float64, burst int) Option {
	return func(x *Extractor) {
		if perSecond > 0 {
			x.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// New 创建 Extractor；参数声明与 Catalog 不一致时返回 CONFIGURATION 错误。
// completer 为 nil 时每次抽取都走 Fallback。
func New(catalog *core.Catalog, completer core.Completer, opts ...Option) (*Extractor, error) {
	x := &Extractor{
		catalog:      catalog,
		completer:    completer,
		params:       DefaultParams(),
		systemPrompt: SystemPrompt,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(x)
	}
	if err := checkParams(catalog, x.params); err != nil {
		return nil, err
	}
	x.logger = logger.OrNop(x.logger).With("module", core.ModuleNLQ)
	return x, nil
}

// Params 返回参数声明。
func (x *Extractor) Params() []Param { return x.params }

// Extract 返回抽取出的参数。只有调用方取消才会返回错误。
func (x *Extractor) Extract(ctx context.Context, text string) (*core.QueryParameters, error) {
	res, err := x.ExtractDetailed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Params, nil
}

// ExtractDetailed 与 Extract 相同，但同时返回修正记录和状态轨迹。
func (x *Extractor) ExtractDetailed(ctx context.Context, text string) (*Extraction, error) {
	res := &Extraction{}
	res.enter(StateReceived)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := x.resolveOptions()
	raw, err := x.request(ctx, res, text, options)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res.enter(StateFailed)
		res.Fallback, res.Cause = true, err
		x.logger.Warn("extraction failed, using defaults", "err", err)
	} else {
		res.enter(StateParsed)
		res.Raw = raw
	}

	params, anomalies := x.validate(raw, options)
	if res.Fallback {
		params.ProbeText = text
	}
	for _, a := range anomalies {
		x.logger.Warn("parameter repaired", "param", a.Param, "action", a.Action, "value", a.Value, "err", a.Err())
	}
	res.Params, res.Anomalies = params, anomalies
	res.enter(StateValidated)

	res.enter(StateReturned)
	return res, nil
}

// request 发起 LLM 调用；返回错误即进入 Fallback。
func (x *Extractor) request(ctx context.Context, res *Extraction, text string, options map[string][]string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewDomainError(core.ModuleNLQ, core.ErrorCodeInvalidInput, "empty query text")
	}
	if x.completer == nil {
		return nil, core.NewDomainError(core.ModuleNLQ, core.ErrorCodeNotSupported, "no completer configured")
	}
	if x.limiter != nil {
		if err := x.limiter.Wait(ctx); err != nil {
			return nil, core.WrapError(core.ModuleNLQ, core.ErrorCodeUnavailable, "rate limit", err)
		}
	}

	callCtx := ctx
	if x.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	res.enter(StateRequested)
	req := core.StructuredRequest{
		Name:         schemaName,
		Description:  schemaDescription,
		SystemPrompt: x.systemPrompt,
		UserText:     text,
		Schema:       x.buildSchema(options),
	}
	var raw map[string]any
	if err := x.completer.CompleteStructured(callCtx, req, &raw); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.WrapError(core.ModuleNLQ, core.ErrorCodeExternalService, fmt.Sprintf("completion timed out after %s", x.timeout), err)
		}
		return nil, core.WrapError(core.ModuleNLQ, core.ErrorCodeExternalService, "completion", err)
	}
	if raw == nil {
		return nil, core.NewDomainError(core.ModuleNLQ, core.ErrorCodeExternalService, "completion returned no object")
	}
	return raw, nil
}

// resolveOptions 计算每个类目参数的合法取值：Param.Options > Catalog 声明 > 动态来源。
func (x *Extractor) resolveOptions() map[string][]string {
	out := make(map[string][]string)
	for _, p := range x.params {
		if p.Kind != KindInclude && p.Kind != KindExclude {
			continue
		}
		switch attr, _ := x.catalog.Attribute(p.Target); {
		case len(p.Options) > 0:
			out[p.Name] = p.Options
		case len(attr.Options) > 0:
			out[p.Name] = attr.Options
		case attr.DynamicOptions && x.options != nil:
			out[p.Name] = x.options.DistinctValues(p.Target)
		}
	}
	return out
}
