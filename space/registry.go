package space

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/pkg/conv"
)

// Spec 是单个 Space 的声明（支持 YAML/JSON）。
type Spec struct {
	Name   string         `yaml:"name" json:"name"`
	Type   string         `yaml:"type" json:"type"`     // number / text / categorical
	Config map[string]any `yaml:"config" json:"config"` // Space 特定配置
}

// Builder 根据 config 构建 Space。
// 各类型在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type Builder func(name string, config map[string]any) (Space, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

func init() {
	Register(string(KindNumber), buildNumber)
	Register(string(KindText), buildText)
	Register(string(KindCategorical), buildCategorical)
}

// Register 注册一种 Space 的构建逻辑。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Space 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build 根据声明构建 Set，并按 Catalog 校验属性。
func Build(catalog *core.Catalog, specs []Spec) (*Set, error) {
	spaces := make([]Space, 0, len(specs))
	for _, sc := range specs {
		buildersMu.RLock()
		b, ok := builders[sc.Type]
		buildersMu.RUnlock()
		if !ok {
			return nil, configErr(sc.Name, fmt.Sprintf("unsupported space type %q (supported: %v)", sc.Type, SupportedTypes()))
		}
		sp, err := b(sc.Name, sc.Config)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, sp)
	}
	return NewSet(catalog, spaces...)
}

func buildNumber(name string, config map[string]any) (Space, error) {
	if _, ok := config["min_value"]; !ok {
		return nil, configErr(name, "min_value is required")
	}
	if _, ok := config["max_value"]; !ok {
		return nil, configErr(name, "max_value is required")
	}
	mode, err := ParseMode(conv.ConfigGet[string](config, "mode", string(Maximize)))
	if err != nil {
		return nil, configErr(name, err.Error())
	}
	scale, err := ParseScale(conv.ConfigGet[string](config, "scale", string(Linear)))
	if err != nil {
		return nil, configErr(name, err.Error())
	}
	return NewNumberSpace(name, NumberOptions{
		Attribute:     conv.ConfigGet[string](config, "attribute", name),
		Min:           conv.ConfigGetFloat64(config, "min_value", 0),
		Max:           conv.ConfigGetFloat64(config, "max_value", 0),
		Mode:          mode,
		Scale:         scale,
		DefaultWeight: conv.ConfigGetFloat64(config, "default_weight", 0),
	})
}

func buildText(name string, config map[string]any) (Space, error) {
	attrs := conv.SliceAnyToString(config["attributes"])
	return NewTextSpace(name, attrs,
		conv.ConfigGet[string](config, "model", ""),
		conv.ConfigGetFloat64(config, "default_weight", 1.0))
}

func buildCategorical(name string, config map[string]any) (Space, error) {
	return NewCategoricalSpace(name,
		conv.ConfigGet[string](config, "attribute", ""),
		conv.SliceAnyToString(config["categories"]),
		conv.ConfigGetFloat64(config, "default_weight", 0))
}
