package core

import "slices"

// FilterOp 是过滤操作符。
type FilterOp string

const (
	OpRange FilterOp = "range"
	OpIn    FilterOp = "in"
	OpNotIn FilterOp = "not_in"
)

// FilterSpec 描述一个过滤条件，多个 FilterSpec 之间为 AND 关系。
// range 的 Min / Max 可以只给一个；in / not_in 使用 Values。
type FilterSpec struct {
	Attribute string   `json:"attribute"`
	Op        FilterOp `json:"op"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// Range 构造一个 range 过滤条件；nil 表示该侧不设边界。
func Range(attr string, min, max *float64) FilterSpec {
	return FilterSpec{Attribute: attr, Op: OpRange, Min: min, Max: max}
}

// In 构造一个 in 过滤条件。
func In(attr string, values ...string) FilterSpec {
	return FilterSpec{Attribute: attr, Op: OpIn, Values: values}
}

// NotIn 构造一个 not_in 过滤条件。
func NotIn(attr string, values ...string) FilterSpec {
	return FilterSpec{Attribute: attr, Op: OpNotIn, Values: values}
}

// Float 返回 v 的指针，便于构造 range 边界。
func Float(v float64) *float64 { return &v }

// QueryParameters 是一次查询的完整参数，请求级别，不持有任何资源。
//
// Weights 以 Space 名称为 key；未出现的 Space 使用其默认权重。
// ProbeText 为空时所有文本 Space 贡献为 0。
type QueryParameters struct {
	Weights   map[string]float64 `json:"weights,omitempty"`
	ProbeText string             `json:"probe_text,omitempty"`
	Filters   []FilterSpec       `json:"filters,omitempty"`
	Limit     int                `json:"limit"`
}

// DefaultLimit 是未指定 limit 时的结果条数。
const DefaultLimit = 10

// Weight 返回 space 的权重，未指定时返回 def。
func (q *QueryParameters) Weight(space string, def float64) float64 {
	if w, ok := q.Weights[space]; ok {
		return w
	}
	return def
}

// FilterFor 返回作用于 attr 的第一个指定操作符的过滤条件。
func (q *QueryParameters) FilterFor(attr string, op FilterOp) (FilterSpec, bool) {
	i := slices.IndexFunc(q.Filters, func(f FilterSpec) bool {
		return f.Attribute == attr && f.Op == op
	})
	if i < 0 {
		return FilterSpec{}, false
	}
	return q.Filters[i], true
}
