package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc 与 os.LookupEnv 签名一致，便于测试注入。
type LookupFunc func(key string) (string, bool)

// LoadEnv 把 .env 文件加载进进程环境；已存在的环境变量不会被覆盖，文件不存在时忽略。
// 未指定文件时加载当前目录的 .env。
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return configErr("load %s: %v", f, err)
		}
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置。数值解析失败返回 CONFIGURATION 错误。
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	secret := func(key string, dst *Secret) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = Secret(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return configErr("%s=%q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return configErr("%s=%q is not a duration", key, v)
		}
		*dst = d
		return nil
	}

	secret("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_BASE_URL", &c.LLM.BaseURL)
	str("OPENAI_MODEL", &c.LLM.Model)
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("OLLAMA_URL", &c.LLM.OllamaURL)
	str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	str("REDIS_ADDR", &c.Store.Redis.Addr)
	secret("REDIS_PASSWORD", &c.Store.Redis.Password)
	str("VECTOR_STORE", &c.Store.Kind)
	str("DATA_PATH", &c.Ingest.DataPath)
	str("SERVER_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	for _, f := range []func() error{
		func() error { return integer("REDIS_DB", &c.Store.Redis.DB) },
		func() error { return integer("CHUNK_SIZE", &c.Ingest.ChunkSize) },
		func() error { return duration("LLM_TIMEOUT", &c.LLM.Timeout) },
	} {
		if err := f(); err != nil {
			return err
		}
	}

	// 只给了 API Key 时默认启用 OpenAI 抽取
	if _, set := lookup("LLM_PROVIDER"); !set && c.LLM.Provider == ProviderNone && c.LLM.APIKey != "" {
		c.LLM.Provider = ProviderOpenAI
	}
	return nil
}
