package space

import (
	"context"
	"math"

	"github.com/rushteam/procurekit/core"
)

// TextSpace 把若干字符串属性拼接后做 Embedding，查询时与 Probe 向量求余弦相似度。
type TextSpace struct {
	base
	attributes []string
	model      string
}

// NewTextSpace 构建 TextSpace；model 仅用于标识与持久化签名。
func NewTextSpace(name string, attributes []string, model string, defaultWeight float64) (*TextSpace, error) {
	if len(attributes) == 0 {
		return nil, configErr(name, "text space needs at least one attribute")
	}
	return &TextSpace{
		base:       base{name: name, defaultWeight: defaultWeight},
		attributes: append([]string(nil), attributes...),
		model:      model,
	}, nil
}

func (s *TextSpace) Kind() Kind           { return KindText }
func (s *TextSpace) Attributes() []string { return append([]string(nil), s.attributes...) }
func (s *TextSpace) Model() string        { return s.model }

// Encode 调用 Embedder；文本为空时不发起调用，特征标记为 Missing。
func (s *TextSpace) Encode(ctx context.Context, embedder core.Embedder, e *core.Entity) (Feature, error) {
	text := e.Text(s.attributes...)
	if text == "" {
		return Feature{Missing: true}, nil
	}
	if embedder == nil {
		return Feature{}, core.Errorf(core.ModuleSpace, core.ErrorCodeConfiguration, "space %q: no embedder configured", s.name)
	}
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return Feature{}, core.WrapError(core.ModuleSpace, core.ErrorCodeExternalService, "embed "+e.ID, err)
	}
	return Feature{Vector: vec}, nil
}

func (s *TextSpace) Contribution(f Feature, p *Probe) float64 {
	if f.Missing || p == nil {
		return 0
	}
	return Cosine(f.Vector, p.Vector)
}

// Cosine 计算余弦相似度；长度不一致、空向量或零向量返回 0。
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return clamp(sim, -1, 1)
}
