package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions 是 HashEmbedder 的默认维度。
const DefaultHashDimensions = 256

// HashEmbedder 用特征哈希把文本映射为 L2 归一化向量，不依赖外部服务。
// 词与相邻词对各占一个桶，共享词越多余弦相似度越高；适合离线运行和测试。
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Dimensions 返回向量维度。
func (h *HashEmbedder) Dimensions() int { return h.dim }

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// add 按哈希选桶，最高位决定符号以减小碰撞偏差。
func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	f := fnv.New32a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum32()
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[int(sum%uint32(h.dim))] += weight
}
