// Package filter 实现查询的硬过滤条件：数值范围、集合包含、集合排除。
// 多个过滤器之间为 AND 关系；数值过滤使用原始属性值，而不是 Space 归一化后的分数。
package filter

import "github.com/rushteam/procurekit/core"

// Filter 是过滤器的抽象接口，用于判断一个 Entity 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
// 过滤器在编译期完成校验，求值期不返回错误。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 entity 是否应该被过滤
	ShouldFilter(e *core.Entity) bool
}
