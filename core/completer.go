package core

import "context"

// StructuredRequest 是一次结构化输出（JSON Schema 约束）的 LLM 请求。
type StructuredRequest struct {
	Name         string // Schema 名称，部分服务端要求 [a-zA-Z0-9_-]
	Description  string
	SystemPrompt string
	UserText     string
	Schema       any // 可 JSON 序列化的 Schema，通常是 *jsonschema.Schema
}

// Completer 是 LLM 结构化补全的边界，由 ai/openai、ai/ollama 实现。
// 实现负责把模型输出解码到 out（非 nil 指针）；输出无法解码时返回错误。
type Completer interface {
	CompleteStructured(ctx context.Context, req StructuredRequest, out any) error
}

// CompleterFunc 把函数适配为 Completer。
type CompleterFunc func(ctx context.Context, req StructuredRequest, out any) error

func (f CompleterFunc) CompleteStructured(ctx context.Context, req StructuredRequest, out any) error {
	return f(ctx, req, out)
}
