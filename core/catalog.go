package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rushteam/procurekit/pkg/conv"
)

// AttrKind 标记属性的类型，Space 定义按此做模式匹配，而不是运行时类型探测。
type AttrKind int

const (
	AttrText        AttrKind = iota + 1 // 文本：可 Embedding
	AttrNumeric                         // 数值：可优化 / 可范围过滤
	AttrCategorical                     // 类目：精确匹配 / 集合过滤
)

func (k AttrKind) String() string {
	switch k {
	case AttrText:
		return "text"
	case AttrNumeric:
		return "numeric"
	case AttrCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Role 是属性角色的位集合。
type Role uint8

const (
	RoleEmbeddable Role = 1 << iota
	RoleFilterable
	RoleOptimizable
)

// Has 判断是否包含某个角色。
func (r Role) Has(role Role) bool { return r&role != 0 }

// Attribute 是 Catalog 中声明的单个属性。
type Attribute struct {
	Name  string
	Kind  AttrKind
	Roles Role

	// Min / Max 是数值属性的声明值域，Extractor 用它截断过滤边界。
	Min float64
	Max float64

	// Options 是类目属性的封闭取值集合。
	Options []string
	// DynamicOptions 为 true 时取值集合由 Index 中的去重值决定（例如 brand）。
	DynamicOptions bool
}

// IsString 文本与类目属性都以字符串形式存储。
func (a Attribute) IsString() bool {
	return a.Kind == AttrText || a.Kind == AttrCategorical
}

// AllowsOption 判断 value 是否在封闭集合内；动态集合由调用方另行校验。
func (a Attribute) AllowsOption(value string) bool {
	return slices.Contains(a.Options, value)
}

// Catalog 声明实体的固定属性集合，进程启动后只读。
type Catalog struct {
	idField string
	attrs   []Attribute
	byName  map[string]int
}

// NewCatalog 校验并构建 Catalog。
func NewCatalog(idField string, attrs ...Attribute) (*Catalog, error) {
	if idField == "" {
		return nil, NewDomainError(ModuleCatalog, ErrorCodeConfiguration, "catalog: id field is required")
	}
	c := &Catalog{
		idField: idField,
		attrs:   make([]Attribute, 0, len(attrs)),
		byName:  make(map[string]int, len(attrs)),
	}
	for _, a := range attrs {
		if a.Name == "" || a.Name == idField {
			return nil, Errorf(ModuleCatalog, ErrorCodeConfiguration, "catalog: invalid attribute name %q", a.Name)
		}
		if _, dup := c.byName[a.Name]; dup {
			return nil, Errorf(ModuleCatalog, ErrorCodeConfiguration, "catalog: duplicate attribute %q", a.Name)
		}
		switch a.Kind {
		case AttrText, AttrCategorical:
		case AttrNumeric:
			if a.Max < a.Min {
				return nil, Errorf(ModuleCatalog, ErrorCodeConfiguration,
					"catalog: attribute %q has max %v < min %v", a.Name, a.Max, a.Min)
			}
		default:
			return nil, Errorf(ModuleCatalog, ErrorCodeConfiguration, "catalog: attribute %q has no kind", a.Name)
		}
		a.Options = slices.Clone(a.Options)
		c.byName[a.Name] = len(c.attrs)
		c.attrs = append(c.attrs, a)
	}
	return c, nil
}

// IDField 返回 id 字段名。
func (c *Catalog) IDField() string { return c.idField }

// Attribute 按名称查找属性。
func (c *Catalog) Attribute(name string) (Attribute, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return c.attrs[i], true
}

// Attributes 按声明顺序返回所有属性（副本）。
func (c *Catalog) Attributes() []Attribute {
	return slices.Clone(c.attrs)
}

// Filterable 判断属性是否声明为可过滤。
func (c *Catalog) Filterable(name string) bool {
	a, ok := c.Attribute(name)
	return ok && a.Roles.Has(RoleFilterable)
}

// Numeric 返回数值属性，不存在或类型不符时返回错误。
func (c *Catalog) Numeric(name string) (Attribute, error) {
	a, ok := c.Attribute(name)
	if !ok {
		return Attribute{}, Errorf(ModuleCatalog, ErrorCodeConfiguration, "catalog: unknown attribute %q", name)
	}
	if a.Kind != AttrNumeric {
		return Attribute{}, Errorf(ModuleCatalog, ErrorCodeConfiguration, "catalog: attribute %q is %s, not numeric", name, a.Kind)
	}
	return a, nil
}

// Conform 把原始记录（CSV 行 / JSON body）转换为 Entity。
// 数值字段做类型转换；未声明的字段被忽略；缺失的 id 视为非法输入。
func (c *Catalog) Conform(raw map[string]any) (*Entity, error) {
	id, _ := conv.ToString(raw[c.idField])
	if id == "" {
		return nil, Errorf(ModuleCatalog, ErrorCodeInvalidInput, "record has no %s", c.idField)
	}
	e := NewEntity(id)
	for _, a := range c.attrs {
		v, ok := raw[a.Name]
		if !ok || v == nil {
			continue
		}
		if a.IsString() {
			s, ok := conv.ToString(v)
			if !ok {
				return nil, Errorf(ModuleCatalog, ErrorCodeInvalidInput, "record %s: attribute %q is not a string", id, a.Name)
			}
			e.Strings[a.Name] = s
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		f, ok := conv.ToFloat64(v)
		if !ok {
			return nil, Errorf(ModuleCatalog, ErrorCodeInvalidInput, "record %s: attribute %q is not numeric (%v)", id, a.Name, v)
		}
		e.Numbers[a.Name] = f
	}
	return e, nil
}

// Check 校验 Entity 只包含已声明的属性且类型一致。
func (c *Catalog) Check(e *Entity) error {
	if e == nil || e.ID == "" {
		return NewDomainError(ModuleCatalog, ErrorCodeInvalidInput, "entity has no id")
	}
	for name := range e.Strings {
		a, ok := c.Attribute(name)
		if !ok || !a.IsString() {
			return Errorf(ModuleCatalog, ErrorCodeInvalidInput, "entity %s: %q is not a declared string attribute", e.ID, name)
		}
	}
	for name := range e.Numbers {
		a, ok := c.Attribute(name)
		if !ok || a.Kind != AttrNumeric {
			return Errorf(ModuleCatalog, ErrorCodeInvalidInput, "entity %s: %q is not a declared numeric attribute", e.ID, name)
		}
	}
	return nil
}

func (c *Catalog) String() string {
	return fmt.Sprintf("Catalog(%s, %d attributes)", c.idField, len(c.attrs))
}
