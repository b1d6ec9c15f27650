// Package openai 基于 OpenAI 兼容接口实现 core.Completer 与 core.BatchEmbedder。
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/rushteam/procurekit/ai"
	"github.com/rushteam/procurekit/core"
)

const (
	DefaultChatModel      = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Params 是创建 Client 的参数。EmbeddingURL / EmbeddingKey 为空时复用聊天端点。
type Params struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	EmbeddingURL   string
	EmbeddingKey   string
	// Dimensions > 0 时要求服务端返回指定维度（仅 text-embedding-3 系列支持）。
	Dimensions int64
	// MaxConcurrentRequests 限制同时进行的请求数，默认 4。
	MaxConcurrentRequests int64
	Temperature           float64
}

// Client 同时提供结构化补全与 Embedding。
type Client struct {
	chat           *openai.Client
	embed          *openai.Client
	chatModel      string
	embeddingModel string
	dimensions     int64
	temperature    float64
	sem            *semaphore.Weighted
}

func New(p Params) (*Client, error) {
	if p.APIKey == "" {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeConfiguration, "openai: api key is required")
	}
	if p.ChatModel == "" {
		p.ChatModel = DefaultChatModel
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = DefaultEmbeddingModel
	}
	if p.EmbeddingURL == "" {
		p.EmbeddingURL = p.BaseURL
	}
	if p.EmbeddingKey == "" {
		p.EmbeddingKey = p.APIKey
	}
	if p.MaxConcurrentRequests <= 0 {
		p.MaxConcurrentRequests = 4
	}
	if p.Temperature == 0 {
		p.Temperature = 0.1
	}
	return &Client{
		chat:           newClient(p.BaseURL, p.APIKey),
		embed:          newClient(p.EmbeddingURL, p.EmbeddingKey),
		chatModel:      p.ChatModel,
		embeddingModel: p.EmbeddingModel,
		dimensions:     p.Dimensions,
		temperature:    p.Temperature,
		sem:            semaphore.NewWeighted(p.MaxConcurrentRequests),
	}, nil
}

func newClient(baseURL, apiKey string) *openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	return &c
}

// CompleteStructured 以 strict JSON Schema 模式请求补全，并容错解码到 out。
func (c *Client) CompleteStructured(ctx context.Context, req core.StructuredRequest, out any) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.UserText))

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Name,
					Description: openai.String(req.Description),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(c.temperature),
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	resp, err := c.chat.Chat.Completions.New(ctx, body)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("no choices in response from model")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return fmt.Errorf("empty response from model (finish_reason: %s)", resp.Choices[0].FinishReason)
	}
	return ai.UnmarshalFlexible(content, out)
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 一次请求生成多条 Embedding，结果与输入顺序一致。
// 空白文本不发送，返回 nil 向量（Space 视为缺失）。
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	idx := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		inputs = append(inputs, t)
	}
	if len(inputs) == 0 {
		return out, nil
	}

	body := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:          openai.EmbeddingModel(c.embeddingModel),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		body.Dimensions = openai.Int(c.dimensions)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	resp, err := c.embed.Embeddings.New(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(resp.Data), len(inputs))
	}
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(inputs) {
			return nil, fmt.Errorf("embedding index out of range: %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[idx[i]] = vec
	}
	return out, nil
}
