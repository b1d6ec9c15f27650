// Package app 按 config.Config 组装各组件：存储、Embedding、索引、查询引擎、抽取器与导入器。
package app

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/rushteam/procurekit/ai"
	"github.com/rushteam/procurekit/ai/ollama"
	"github.com/rushteam/procurekit/ai/openai"
	"github.com/rushteam/procurekit/config"
	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/ingest"
	"github.com/rushteam/procurekit/nlq"
	"github.com/rushteam/procurekit/pkg/dsl"
	"github.com/rushteam/procurekit/pkg/logger"
	"github.com/rushteam/procurekit/rank"
	"github.com/rushteam/procurekit/service"
	"github.com/rushteam/procurekit/space"
	"github.com/rushteam/procurekit/store"
)

// App 持有一个进程内的全部组件。
type App struct {
	Config *config.Config
	Store  core.KeyValueStore
	Index  *index.Index
	Engine *rank.Engine
	Facade *service.Facade
	Loader *ingest.Loader

	logger *log.Logger
}

// Build 组装组件并从存储恢复索引；Ingest.LoadOnStart 为 true 且索引为空时导入 DataPath。
func Build(ctx context.Context, cfg *config.Config, lg *log.Logger) (*App, error) {
	lg = logger.OrNop(lg)
	catalog := core.DefaultCatalog()

	spaces, err := space.Build(catalog, cfg.SpaceSpecs())
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(cfg)
	if err != nil {
		return nil, err
	}

	kv, err := store.Open(ctx, cfg.Store.Kind, store.RedisOptions{
		Addr:     cfg.Store.Redis.Addr,
		Password: cfg.Store.Redis.Password.Value(),
		DB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	ixOpts := []index.Option{
		index.WithEmbedTimeout(cfg.Embedding.Timeout),
		index.WithLogger(lg),
	}
	// 只有外部存储才开启持久化
	if cfg.Store.Kind == store.KindRedis {
		ixOpts = append(ixOpts, index.WithStore(kv, cfg.Store.Prefix))
	}
	ix := index.New(catalog, spaces, embedder, ixOpts...)

	engOpts := []rank.Option{rank.WithLogger(lg)}
	if cfg.Engine.Workers > 0 {
		engOpts = append(engOpts, rank.WithWorkers(cfg.Engine.Workers))
	}
	if cfg.Engine.EmbedTimeout > 0 {
		engOpts = append(engOpts, rank.WithEmbedTimeout(cfg.Engine.EmbedTimeout))
	}
	engine := rank.New(ix, embedder, engOpts...)

	extractor, err := nlq.New(catalog, completer,
		nlq.WithOptionSource(ix),
		nlq.WithTimeout(cfg.LLM.Timeout),
		nlq.WithRateLimit(cfg.LLM.RateLimit, cfg.LLM.Burst),
		nlq.WithLogger(lg),
	)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	facade, err := service.New(ix, engine, extractor, service.WithLogger(lg))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	rules, err := dsl.CompileAll(cfg.Ingest.Rules)
	if err != nil {
		_ = kv.Close()
		return nil, core.WrapError(core.ModuleConfig, core.ErrorCodeConfiguration, "compile ingest rules", err)
	}
	loader := ingest.New(ix,
		ingest.WithRules(rules),
		ingest.WithChunkSize(cfg.Ingest.ChunkSize),
		ingest.WithLogger(lg),
	)

	a := &App{
		Config: cfg,
		Store:  kv,
		Index:  ix,
		Engine: engine,
		Facade: facade,
		Loader: loader,
		logger: lg,
	}
	if err := a.restore(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) restore(ctx context.Context) error {
	n, err := a.Index.Load(ctx)
	if err != nil {
		// 部分条目损坏时其余条目已恢复，继续启动
		a.logger.Warn("index restore incomplete", "loaded", n, "err", err)
		if core.IsExternalService(err) {
			return err
		}
	} else if n > 0 {
		a.logger.Info("index restored", "entities", n)
	}

	if !a.Config.Ingest.LoadOnStart || a.Index.Len() > 0 {
		return nil
	}
	report, err := a.Loader.File(ctx, a.Config.Ingest.DataPath)
	if core.IsNotFound(err) {
		a.logger.Warn("initial ingest skipped", "path", a.Config.Ingest.DataPath, "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Info("initial ingest", "path", a.Config.Ingest.DataPath,
		"read", report.Read, "loaded", report.Loaded, "rejected", report.Rejected, "failed", report.Failed)
	return nil
}

// Close 释放存储连接。
func (a *App) Close() error {
	return a.Store.Close()
}

func newEmbedder(cfg *config.Config) (core.Embedder, error) {
	var inner core.Embedder
	switch cfg.Embedding.Provider {
	case config.ProviderHash:
		dim := cfg.Embedding.Dimensions
		if dim <= 0 {
			dim = ai.DefaultHashDimensions
		}
		inner = ai.NewHashEmbedder(dim)
	case config.ProviderOpenAI:
		c, err := openai.New(openai.Params{
			APIKey:         cfg.LLM.APIKey.Value(),
			BaseURL:        cfg.LLM.BaseURL,
			EmbeddingModel: remoteModel(cfg.Embedding.Model),
			Dimensions:     int64(cfg.Embedding.Dimensions),
		})
		if err != nil {
			return nil, err
		}
		inner = c
	case config.ProviderOllama:
		c, err := ollama.New(ollama.Params{
			BaseURL:        cfg.LLM.OllamaURL,
			EmbeddingModel: remoteModel(cfg.Embedding.Model),
		})
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeConfiguration, "unknown embedding provider %q", cfg.Embedding.Provider)
	}
	size := cfg.Embedding.CacheSize
	if size <= 0 {
		size = ai.DefaultCacheSize
	}
	return ai.NewCachedEmbedder(inner, size), nil
}

// remoteModel 把默认的本地模型标识换成服务端默认模型。
func remoteModel(model string) string {
	if model == space.DefaultModel {
		return ""
	}
	return model
}

func newCompleter(cfg *config.Config) (core.Completer, error) {
	switch cfg.LLM.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return openai.New(openai.Params{
			APIKey:    cfg.LLM.APIKey.Value(),
			BaseURL:   cfg.LLM.BaseURL,
			ChatModel: cfg.LLM.Model,
		})
	case config.ProviderOllama:
		return ollama.New(ollama.Params{
			BaseURL:   cfg.LLM.OllamaURL,
			ChatModel: ollamaModel(cfg.LLM.Model),
		})
	default:
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeConfiguration, "unknown llm provider %q", cfg.LLM.Provider)
	}
}

func ollamaModel(model string) string {
	if model == openai.DefaultChatModel {
		return ""
	}
	return model
}
