package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/space"
)

func lookupMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "sentence-transformers/all-MiniLM-L12-v2", c.Embedding.Model)
	assert.Equal(t, 10, c.Ingest.ChunkSize)
	assert.Equal(t, "gpt-4o", c.LLM.Model)
	assert.Equal(t, "./data/csv/products_enriched.csv", c.Ingest.DataPath)
	assert.Equal(t, "memory", c.Store.Kind)
	assert.Len(t, c.SpaceSpecs(), len(space.DefaultSpecs("")))
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(lookupMap(map[string]string{
		"OPENAI_API_KEY":     "sk-test",
		"OPENAI_MODEL":       "gpt-4o-mini",
		"EMBEDDING_PROVIDER": "ollama",
		"CHUNK_SIZE":         "25",
		"DATA_PATH":          "/custom/data/path.csv",
		"VECTOR_STORE":       "redis",
		"REDIS_ADDR":         "redis:6379",
		"REDIS_DB":           "2",
		"LLM_TIMEOUT":        "5s",
	}))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "sk-test", c.LLM.APIKey.Value())
	assert.Equal(t, ProviderOpenAI, c.LLM.Provider, "api key alone enables openai extraction")
	assert.Equal(t, "gpt-4o-mini", c.LLM.Model)
	assert.Equal(t, ProviderOllama, c.Embedding.Provider)
	assert.Equal(t, 25, c.Ingest.ChunkSize)
	assert.Equal(t, "/custom/data/path.csv", c.Ingest.DataPath)
	assert.Equal(t, "redis", c.Store.Kind)
	assert.Equal(t, "redis:6379", c.Store.Redis.Addr)
	assert.Equal(t, 2, c.Store.Redis.DB)
	assert.Equal(t, 5*time.Second, c.LLM.Timeout)
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"CHUNK_SIZE": "ten"},
		{"REDIS_DB": "x"},
		{"LLM_TIMEOUT": "soon"},
	} {
		err := Default().ApplyEnv(lookupMap(env))
		require.Error(t, err, "%v", env)
		assert.True(t, core.IsConfiguration(err))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"llm provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"openai without key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }},
		{"store kind", func(c *Config) { c.Store.Kind = "qdrant" }},
		{"redis without addr", func(c *Config) { c.Store.Kind = "redis"; c.Store.Redis.Addr = "" }},
		{"chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }},
		{"max limit", func(c *Config) { c.Server.MaxLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, core.IsConfiguration(err))
		})
	}
}

func TestSecretIsMasked(t *testing.T) {
	s := Secret("sk-very-secret-key")
	assert.Equal(t, "**********", s.String())
	assert.NotContains(t, fmt.Sprint(s), "sk-very-secret-key")
	out, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-very-secret-key")
	assert.Equal(t, "", Secret("").String())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROCUREKIT_TEST_ADDR", ":9999")
	path := filepath.Join(dir, "procurekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ${PROCUREKIT_TEST_ADDR}
  max_limit: 50
ingest:
  chunk_size: 5
  rules:
    - name: known_department
      expr: 'item.department in ["Women", "Men", "Kids"]'
spaces:
  - name: cost
    type: number
    config:
      attribute: cost
      min_value: 0
      max_value: 200
      mode: minimize
`), 0o644))

	c, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Server.Addr)
	assert.Equal(t, 50, c.Server.MaxLimit)
	assert.Equal(t, 5, c.Ingest.ChunkSize)
	require.Len(t, c.Ingest.Rules, 1)
	assert.Equal(t, "known_department", c.Ingest.Rules[0].Name)
	require.Len(t, c.SpaceSpecs(), 1)
	assert.Equal(t, 200, c.SpaceSpecs()[0].Config["max_value"])
	assert.Equal(t, 60*time.Second, c.Server.RequestTimeout, "unset keys keep defaults")
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 80\n"), 0o644))
	_, err := Load(path, filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PROCUREKIT_TEST_FROM_FILE=yes\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PROCUREKIT_TEST_FROM_FILE") })
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "yes", os.Getenv("PROCUREKIT_TEST_FROM_FILE"))
}
