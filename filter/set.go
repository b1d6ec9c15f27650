package filter

import (
	"fmt"

	"github.com/rushteam/procurekit/core"
)

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// InFilter 保留属性值在 Values 中的实体；缺少该属性的实体被过滤。
type InFilter struct {
	Attribute string
	values    map[string]struct{}
}

func NewInFilter(attr string, values []string) *InFilter {
	return &InFilter{Attribute: attr, values: toSet(values)}
}

func (f *InFilter) Name() string {
	return fmt.Sprintf("filter.in(%s)", f.Attribute)
}

func (f *InFilter) ShouldFilter(e *core.Entity) bool {
	v, ok := e.StringValue(f.Attribute)
	if !ok {
		return true
	}
	_, hit := f.values[v]
	return !hit
}

// NotInFilter 过滤掉属性值在 Values 中的实体，相当于按属性值的黑名单。
type NotInFilter struct {
	Attribute string
	values    map[string]struct{}
}

func NewNotInFilter(attr string, values []string) *NotInFilter {
	return &NotInFilter{Attribute: attr, values: toSet(values)}
}

func (f *NotInFilter) Name() string {
	return fmt.Sprintf("filter.not_in(%s)", f.Attribute)
}

func (f *NotInFilter) ShouldFilter(e *core.Entity) bool {
	v, ok := e.StringValue(f.Attribute)
	if !ok {
		return false
	}
	_, hit := f.values[v]
	return hit
}
