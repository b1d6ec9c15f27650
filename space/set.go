package space

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rushteam/procurekit/core"
)

// Set 是 Space 的有序不可变集合，顺序即声明顺序，也是打分时的求和顺序。
type Set struct {
	spaces []Space
	byName map[string]int
}

// NewSet 构建 Set；名称重复或属性未在 Catalog 中正确声明时返回 CONFIGURATION 错误。
func NewSet(catalog *core.Catalog, spaces ...Space) (*Set, error) {
	if len(spaces) == 0 {
		return nil, core.NewDomainError(core.ModuleSpace, core.ErrorCodeConfiguration, "space set is empty")
	}
	s := &Set{
		spaces: make([]Space, 0, len(spaces)),
		byName: make(map[string]int, len(spaces)),
	}
	for _, sp := range spaces {
		if sp == nil || sp.Name() == "" {
			return nil, core.NewDomainError(core.ModuleSpace, core.ErrorCodeConfiguration, "space without name")
		}
		if _, dup := s.byName[sp.Name()]; dup {
			return nil, configErr(sp.Name(), "duplicate space name")
		}
		if catalog != nil {
			if err := checkAttributes(catalog, sp); err != nil {
				return nil, err
			}
		}
		s.byName[sp.Name()] = len(s.spaces)
		s.spaces = append(s.spaces, sp)
	}
	return s, nil
}

func checkAttributes(catalog *core.Catalog, sp Space) error {
	for _, name := range sp.Attributes() {
		a, ok := catalog.Attribute(name)
		if !ok {
			return configErr(sp.Name(), fmt.Sprintf("unknown attribute %q", name))
		}
		var want core.AttrKind
		switch sp.Kind() {
		case KindNumber:
			want = core.AttrNumeric
		case KindCategorical:
			want = core.AttrCategorical
		case KindText:
			if !a.Roles.Has(core.RoleEmbeddable) {
				return configErr(sp.Name(), fmt.Sprintf("attribute %q is not embeddable", name))
			}
			continue
		}
		if a.Kind != want {
			return configErr(sp.Name(), fmt.Sprintf("attribute %q is %s, want %s", name, a.Kind, want))
		}
	}
	return nil
}

// Get 按名称查找 Space。
func (s *Set) Get(name string) (Space, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.spaces[i], true
}

// Spaces 按声明顺序返回所有 Space。
func (s *Set) Spaces() []Space {
	return append([]Space(nil), s.spaces...)
}

// Names 按声明顺序返回 Space 名称。
func (s *Set) Names() []string {
	names := make([]string, len(s.spaces))
	for i, sp := range s.spaces {
		names[i] = sp.Name()
	}
	return names
}

// Len 返回 Space 数量。
func (s *Set) Len() int { return len(s.spaces) }

// TextSpaces 返回所有文本 Space。
func (s *Set) TextSpaces() []*TextSpace {
	var out []*TextSpace
	for _, sp := range s.spaces {
		if ts, ok := sp.(*TextSpace); ok {
			out = append(out, ts)
		}
	}
	return out
}

// DefaultWeights 返回每个 Space 的默认权重。
func (s *Set) DefaultWeights() map[string]float64 {
	out := make(map[string]float64, len(s.spaces))
	for _, sp := range s.spaces {
		out[sp.Name()] = sp.DefaultWeight()
	}
	return out
}

// Resolve 把查询权重展开为与 Spaces() 对齐的切片，未指定的使用默认权重。
func (s *Set) Resolve(weights map[string]float64) []float64 {
	out := make([]float64, len(s.spaces))
	for i, sp := range s.spaces {
		w, ok := weights[sp.Name()]
		if !ok {
			w = sp.DefaultWeight()
		}
		out[i] = w
	}
	return out
}

// Features 重新计算 Entity 在所有 Space 上的特征；任一 Space 失败则整体失败。
func (s *Set) Features(ctx context.Context, embedder core.Embedder, e *core.Entity) (map[string]Feature, error) {
	out := make(map[string]Feature, len(s.spaces))
	for _, sp := range s.spaces {
		f, err := sp.Encode(ctx, embedder, e)
		if err != nil {
			return nil, err
		}
		out[sp.Name()] = f
	}
	return out, nil
}

// Signature 是 Space 声明的指纹，持久化的特征只有在签名一致时才可复用。
func (s *Set) Signature() string {
	h := fnv.New64a()
	for _, sp := range s.spaces {
		fmt.Fprintf(h, "%s|%s|%s", sp.Name(), sp.Kind(), strings.Join(sp.Attributes(), ","))
		switch v := sp.(type) {
		case *NumberSpace:
			fmt.Fprintf(h, "|%v|%v|%s|%s", v.min, v.max, v.mode, v.scale)
		case *TextSpace:
			fmt.Fprintf(h, "|%s", v.model)
		case *CategoricalSpace:
			fmt.Fprintf(h, "|%s", strings.Join(v.categories, ","))
		}
		h.Write([]byte{';'})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
