package filter

import (
	"fmt"
	"math"

	"github.com/rushteam/procurekit/core"
)

// RangeFilter 保留 Lo <= v <= Hi 的实体；任一边界可以为 nil。
// 实体缺少该属性时被过滤。
type RangeFilter struct {
	Attribute string
	Lo, Hi    *float64
}

func (f *RangeFilter) Name() string {
	return fmt.Sprintf("filter.range(%s)", f.Attribute)
}

func (f *RangeFilter) ShouldFilter(e *core.Entity) bool {
	v, ok := e.NumberValue(f.Attribute)
	if !ok || math.IsNaN(v) {
		return true
	}
	if f.Lo != nil && v < *f.Lo {
		return true
	}
	if f.Hi != nil && v > *f.Hi {
		return true
	}
	return false
}
