package core

import (
	"maps"
	"strings"
)

// Entity 是一条已按 Catalog 规整的商品记录。
// 文本与类目属性放在 Strings，数值属性放在 Numbers；缺失的属性不出现在 map 中。
type Entity struct {
	ID      string             `json:"id"`
	Strings map[string]string  `json:"strings,omitempty"`
	Numbers map[string]float64 `json:"numbers,omitempty"`
}

func NewEntity(id string) *Entity {
	return &Entity{
		ID:      id,
		Strings: make(map[string]string),
		Numbers: make(map[string]float64),
	}
}

// StringValue 返回字符串属性，不存在时返回 ("", false)。
func (e *Entity) StringValue(name string) (string, bool) {
	v, ok := e.Strings[name]
	return v, ok
}

// NumberValue 返回数值属性，不存在时返回 (0, false)。
func (e *Entity) NumberValue(name string) (float64, bool) {
	v, ok := e.Numbers[name]
	return v, ok
}

// Text 按顺序拼接多个字符串属性（空值跳过），作为 Embedding 输入。
func (e *Entity) Text(attrs ...string) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if v := strings.TrimSpace(e.Strings[a]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Fields 返回所有原始属性的扁平视图（结果展示、规则求值、持久化共用）。
func (e *Entity) Fields() map[string]any {
	out := make(map[string]any, len(e.Strings)+len(e.Numbers))
	for k, v := range e.Strings {
		out[k] = v
	}
	for k, v := range e.Numbers {
		out[k] = v
	}
	return out
}

// Clone 深拷贝，Index 发布前使用，保证已发布的 Entity 不被调用方修改。
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	return &Entity{
		ID:      e.ID,
		Strings: maps.Clone(e.Strings),
		Numbers: maps.Clone(e.Numbers),
	}
}

// Equal 判断两个 Entity 的属性是否完全一致。
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ID == o.ID && maps.Equal(e.Strings, o.Strings) && maps.Equal(e.Numbers, o.Numbers)
}
