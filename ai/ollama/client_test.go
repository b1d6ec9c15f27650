package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/procurekit/core"
)

func TestClient_CompleteStructuredAndEmbed(t *testing.T) {
	var chatReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			_ = json.NewDecoder(r.Body).Decode(&chatReq)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.1",
				"message": map[string]any{"role": "assistant", "content": `"{\"cost_weight\": 2}"`},
				"done":    true,
			})
		case "/api/embed":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":      "all-minilm",
				"embeddings": [][]float32{{1, 0}, {0, 1}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(Params{BaseURL: srv.URL})
	require.NoError(t, err)

	var out map[string]any
	err = c.CompleteStructured(context.Background(), core.StructuredRequest{
		SystemPrompt: "system",
		UserText:     "q",
		Schema:       map[string]any{"type": "object"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out["cost_weight"])
	assert.Equal(t, map[string]any{"type": "object"}, chatReq["format"])
	assert.Len(t, chatReq["messages"], 2)

	vecs, err := c.EmbedBatch(context.Background(), []string{"x", "", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, nil, {0, 1}}, vecs)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Params{BaseURL: "://bad"})
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}
