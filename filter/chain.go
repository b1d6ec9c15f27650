package filter

import (
	"math"

	"github.com/rushteam/procurekit/core"
)

// Chain 是编译后的过滤器序列，AND 语义。
type Chain []Filter

// Keep 依次检查每个过滤器，遇到第一个命中的过滤器即返回 false。
func (c Chain) Keep(e *core.Entity) bool {
	for _, f := range c {
		if f.ShouldFilter(e) {
			return false
		}
	}
	return true
}

// Rejected 返回第一个命中的过滤器名称，用于解释；保留时返回空字符串。
func (c Chain) Rejected(e *core.Entity) string {
	for _, f := range c {
		if f.ShouldFilter(e) {
			return f.Name()
		}
	}
	return ""
}

// Compile 按 Catalog 校验过滤条件并构建 Chain。
//
// 以下情况返回 INVALID_FILTER：
//   - 属性未声明或未声明为可过滤
//   - range 作用于非数值属性，in / not_in 作用于数值属性
//   - range 的 Min > Max，或边界为 NaN
//   - 未知操作符
//
// 空的 in / not_in 视为未设置，不产生过滤器。
func Compile(catalog *core.Catalog, specs []core.FilterSpec) (Chain, error) {
	chain := make(Chain, 0, len(specs))
	for _, s := range specs {
		attr, ok := catalog.Attribute(s.Attribute)
		if !ok {
			return nil, invalid("unknown filter attribute %q", s.Attribute)
		}
		if !attr.Roles.Has(core.RoleFilterable) {
			return nil, invalid("attribute %q is not filterable", s.Attribute)
		}
		switch s.Op {
		case core.OpRange:
			if attr.Kind != core.AttrNumeric {
				return nil, invalid("range filter on non-numeric attribute %q", s.Attribute)
			}
			if isNaN(s.Min) || isNaN(s.Max) {
				return nil, invalid("range filter on %q has NaN bound", s.Attribute)
			}
			if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
				return nil, invalid("range filter on %q has min %v > max %v", s.Attribute, *s.Min, *s.Max)
			}
			chain = append(chain, &RangeFilter{Attribute: s.Attribute, Lo: s.Min, Hi: s.Max})
		case core.OpIn, core.OpNotIn:
			if !attr.IsString() {
				return nil, invalid("%s filter on numeric attribute %q", s.Op, s.Attribute)
			}
			if len(s.Values) == 0 {
				continue
			}
			if s.Op == core.OpIn {
				chain = append(chain, NewInFilter(s.Attribute, s.Values))
			} else {
				chain = append(chain, NewNotInFilter(s.Attribute, s.Values))
			}
		default:
			return nil, invalid("unknown filter op %q on %q", s.Op, s.Attribute)
		}
	}
	return chain, nil
}

func isNaN(p *float64) bool { return p != nil && math.IsNaN(*p) }

func invalid(format string, args ...any) error {
	return core.Errorf(core.ModuleQuery, core.ErrorCodeInvalidFilter, format, args...)
}
