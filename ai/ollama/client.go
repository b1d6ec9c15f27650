// Package ollama 基于本地 Ollama 服务实现 core.Completer 与 core.BatchEmbedder。
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/rushteam/procurekit/ai"
	"github.com/rushteam/procurekit/core"
)

const (
	DefaultURL            = "http://localhost:11434"
	DefaultChatModel      = "llama3.1"
	DefaultEmbeddingModel = "all-minilm"
)

// Params 是创建 Client 的参数。
type Params struct {
	BaseURL        string
	APIKey         string // 经反向代理访问时使用
	ChatModel      string
	EmbeddingModel string
	// MaxConcurrentRequests 限制同时进行的请求数，默认 2。
	MaxConcurrentRequests int64
	Temperature           float64
}

type Client struct {
	api            *api.Client
	chatModel      string
	embeddingModel string
	temperature    float64
	sem            *semaphore.Weighted
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

func New(p Params) (*Client, error) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultURL
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, core.WrapError(core.ModuleConfig, core.ErrorCodeConfiguration, "ollama: invalid base url", err)
	}
	if p.ChatModel == "" {
		p.ChatModel = DefaultChatModel
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = DefaultEmbeddingModel
	}
	if p.MaxConcurrentRequests <= 0 {
		p.MaxConcurrentRequests = 2
	}
	if p.Temperature == 0 {
		p.Temperature = 0.1
	}

	httpClient := http.DefaultClient
	if p.APIKey != "" {
		httpClient = &http.Client{Transport: &headerTransport{
			headers: map[string]string{"Authorization": "Bearer " + p.APIKey},
			rt:      http.DefaultTransport,
		}}
	}
	return &Client{
		api:            api.NewClient(u, httpClient),
		chatModel:      p.ChatModel,
		embeddingModel: p.EmbeddingModel,
		temperature:    p.Temperature,
		sem:            semaphore.NewWeighted(p.MaxConcurrentRequests),
	}, nil
}

// CompleteStructured 通过 format 字段约束输出为给定 JSON Schema。
func (c *Client) CompleteStructured(ctx context.Context, req core.StructuredRequest, out any) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	format, err := json.Marshal(req.Schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	msgs := make([]api.Message, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: req.UserText})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.chatModel,
		Messages: msgs,
		Stream:   &stream,
		Format:   json.RawMessage(format),
		Options:  map[string]any{"temperature": c.temperature},
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	var content strings.Builder
	if err := c.api.Chat(ctx, chatReq, func(cr api.ChatResponse) error {
		content.WriteString(cr.Message.Content)
		return nil
	}); err != nil {
		return err
	}
	return ai.UnmarshalFlexible(content.String(), out)
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 一次请求生成多条 Embedding；空白文本返回 nil 向量。
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

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	res, err := c.api.Embed(ctx, &api.EmbedRequest{Model: c.embeddingModel, Input: inputs})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(inputs))
	}
	for i, emb := range res.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[idx[i]] = vec
	}
	return out, nil
}
