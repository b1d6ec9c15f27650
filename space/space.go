// Package space 定义排序使用的 Space：把一个或多个属性变换为有界特征。
//
// 三种 Space：
//   - NumberSpace：有方向的数值归一化，输出 [0,1]，1 表示最偏好
//   - TextSpace：Embedding + 余弦相似度，输出 [-1,1]
//   - CategoricalSpace：类目匹配，输出 {0,1}
//
// Space 在进程启动时构建，之后只读；Set 是 Space 的有序不可变集合。
package space

import (
	"context"

	"github.com/rushteam/procurekit/core"
)

// Kind 是 Space 的类型。
type Kind string

const (
	KindNumber      Kind = "number"
	KindText        Kind = "text"
	KindCategorical Kind = "categorical"
)

// Feature 是某个 Space 对单个 Entity 预计算的特征。
// 各 Space 只使用与自身类型对应的字段。
type Feature struct {
	Vector   []float32 `json:"vector,omitempty"`
	Value    float64   `json:"value,omitempty"`
	Category string    `json:"category,omitempty"`
	// Missing 表示 Entity 缺少该 Space 所需的属性，贡献记为 0。
	Missing bool `json:"missing,omitempty"`
}

// Probe 是一次查询在所有 Space 上共享的查询侧输入，查询期间只读。
type Probe struct {
	// Vector 是 ProbeText 的 Embedding；为空时文本 Space 贡献为 0。
	Vector []float32
	// Requested 是类目 Space 的期望集合，key 为属性名。
	Requested map[string][]string
}

// Space 是所有 Space 的统一接口。
type Space interface {
	// Name 返回 Space 名称，即 QueryParameters.Weights 的 key
	Name() string
	Kind() Kind
	// Attributes 返回该 Space 读取的属性
	Attributes() []string
	// DefaultWeight 是查询未指定权重时使用的值
	DefaultWeight() float64
	// Encode 为 Entity 计算特征（Index 写入时调用）
	Encode(ctx context.Context, embedder core.Embedder, e *core.Entity) (Feature, error)
	// Contribution 返回未加权的贡献值
	Contribution(f Feature, p *Probe) float64
}

type base struct {
	name          string
	defaultWeight float64
}

func (b base) Name() string           { return b.name }
func (b base) DefaultWeight() float64 { return b.defaultWeight }
