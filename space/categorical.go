package space

import (
	"context"
	"slices"

	"github.com/rushteam/procurekit/core"
)

// CategoricalSpace 对类目属性做精确匹配。
// 期望集合来自查询在同一属性上的 in 过滤条件；没有期望时视为全部匹配。
type CategoricalSpace struct {
	base
	attribute  string
	categories []string
}

func NewCategoricalSpace(name, attribute string, categories []string, defaultWeight float64) (*CategoricalSpace, error) {
	if attribute == "" {
		return nil, configErr(name, "categorical space needs an attribute")
	}
	return &CategoricalSpace{
		base:       base{name: name, defaultWeight: defaultWeight},
		attribute:  attribute,
		categories: slices.Clone(categories),
	}, nil
}

func (s *CategoricalSpace) Kind() Kind           { return KindCategorical }
func (s *CategoricalSpace) Attributes() []string { return []string{s.attribute} }
func (s *CategoricalSpace) Categories() []string { return slices.Clone(s.categories) }

func (s *CategoricalSpace) Encode(_ context.Context, _ core.Embedder, e *core.Entity) (Feature, error) {
	v, ok := e.StringValue(s.attribute)
	if !ok || v == "" {
		return Feature{Missing: true}, nil
	}
	return Feature{Category: v}, nil
}

func (s *CategoricalSpace) Contribution(f Feature, p *Probe) float64 {
	var requested []string
	if p != nil {
		requested = p.Requested[s.attribute]
	}
	return Match(f.Category, requested)
}

// Match 在 requested 为空或包含 value 时返回 1.0，否则返回 0.0。
func Match(value string, requested []string) float64 {
	if len(requested) == 0 || slices.Contains(requested, value) {
		return 1
	}
	return 0
}
