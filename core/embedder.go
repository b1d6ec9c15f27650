package core

import "context"

// Embedder 把文本映射为定长向量。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（ai/openai、ai/ollama、ai）实现
//   - 同一进程内，相同输入必须得到相同输出
//   - 调用方负责超时（context），Embedder 不持有任何查询状态
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder 是 Embedder 的可选扩展，批量导入时减少网络往返。
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc 把函数适配为 Embedder，主要用于测试。
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
