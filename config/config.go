// Package config 加载进程配置：默认值 < YAML 文件 < .env / 环境变量。
//
// Config 在启动时构建一次，之后只读，显式传给各组件的构造函数。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/pkg/dsl"
	"github.com/rushteam/procurekit/space"
)

// Secret 是敏感配置，打印与序列化时隐藏原值。
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "**********"
}

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + s.String() + `"`), nil }

func (s Secret) MarshalYAML() (any, error) { return s.String(), nil }

// Value 返回原值。
func (s Secret) Value() string { return string(s) }

// 嵌入与 LLM 的提供方。
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash" // 离线特征哈希，仅用于 Embedding
	ProviderNone   = "none" // 不启用 LLM，自然语言查询总是走默认参数
)

type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	// Spaces 为空时使用 space.DefaultSpecs。
	Spaces []space.Spec `yaml:"spaces"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	// Model 是文本 Space 记录的模型标识，同时作为 openai/ollama 的模型名。
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    Secret        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	OllamaURL string        `yaml:"ollama_url"`
	Timeout   time.Duration `yaml:"timeout"`
	// RateLimit 是每秒请求数上限，0 表示不限。
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password Secret `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StoreConfig struct {
	Kind   string      `yaml:"kind"` // memory | redis
	Prefix string      `yaml:"prefix"`
	Redis  RedisConfig `yaml:"redis"`
}

type IngestConfig struct {
	DataPath    string         `yaml:"data_path"`
	ChunkSize   int            `yaml:"chunk_size"`
	LoadOnStart bool           `yaml:"load_on_start"`
	Rules       []dsl.RuleSpec `yaml:"rules"`
}

type EngineConfig struct {
	Workers      int           `yaml:"workers"`
	EmbedTimeout time.Duration `yaml:"embed_timeout"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxLimit       int           `yaml:"max_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default 返回默认配置，无需任何外部服务即可运行。
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  ProviderHash,
			Model:     space.DefaultModel,
			CacheSize: 4096,
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  ProviderNone,
			Model:     "gpt-4o",
			OllamaURL: "http://localhost:11434",
			Timeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Kind:   "memory",
			Prefix: "procurekit:",
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Ingest: IngestConfig{
			DataPath:  "./data/csv/products_enriched.csv",
			ChunkSize: 10,
			Rules: []dsl.RuleSpec{
				{Name: "non_negative_cost", Expr: "!has(item.cost) || item.cost >= 0"},
			},
		},
		Engine: EngineConfig{EmbedTimeout: 10 * time.Second},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 60 * time.Second,
			MaxLimit:       100,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load 依次应用默认值、YAML 文件（path 为空时跳过）、.env 与环境变量，然后校验。
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile 把 YAML 覆盖到当前配置上；文件中的 ${VAR} 会先被展开。
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return configErr("read %s: %v", path, err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return configErr("parse %s: %v", path, err)
	}
	return nil
}

// Validate 检查启动期不变量，失败时进程不应启动。
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderHash:
	default:
		return configErr("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderNone:
	default:
		return configErr("unknown llm provider %q", c.LLM.Provider)
	}
	if (c.LLM.Provider == ProviderOpenAI || c.Embedding.Provider == ProviderOpenAI) && c.LLM.APIKey == "" {
		return configErr("OPENAI_API_KEY is required for the openai provider")
	}
	switch c.Store.Kind {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return configErr("redis store requires an address")
		}
	default:
		return configErr("unknown store kind %q", c.Store.Kind)
	}
	if c.Ingest.ChunkSize <= 0 {
		return configErr("chunk size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Server.MaxLimit <= 0 {
		return configErr("server max_limit must be positive, got %d", c.Server.MaxLimit)
	}
	return nil
}

// SpaceSpecs 返回生效的 Space 声明。
func (c *Config) SpaceSpecs() []space.Spec {
	if len(c.Spaces) > 0 {
		return c.Spaces
	}
	return space.DefaultSpecs(c.Embedding.Model)
}

func configErr(format string, args ...any) error {
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeConfiguration, "config: "+fmt.Sprintf(format, args...))
}
