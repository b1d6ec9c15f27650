package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/procurekit/ai"
	"github.com/rushteam/procurekit/config"
	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/ingest"
	"github.com/rushteam/procurekit/nlq"
	"github.com/rushteam/procurekit/rank"
	"github.com/rushteam/procurekit/service"
	"github.com/rushteam/procurekit/space"
)

func record(id, name, dept string, cost, margin float64) map[string]any {
	return map[string]any{
		"product_id":                 id,
		"name":                       name,
		"category":                   "Jeans",
		"brand":                      "Levi's",
		"department":                 dept,
		"cost":                       cost,
		"profit_margin_percent":      margin,
		"return_rate_percent":        5,
		"total_orders":               10,
		"total_revenue":              1000,
		"supplier_reliability_score": 7,
	}
}

func newTestServer(t *testing.T, c core.Completer, maxLimit int) *httptest.Server {
	t.Helper()
	catalog := core.DefaultCatalog()
	set, err := space.Default(catalog, "")
	require.NoError(t, err)
	emb := ai.NewHashEmbedder(64)
	ix := index.New(catalog, set, emb)
	x, err := nlq.New(catalog, c, nlq.WithOptionSource(ix))
	require.NoError(t, err)
	f, err := service.New(ix, rank.New(ix, emb), x)
	require.NoError(t, err)

	s := New(f, ingest.New(ix), config.ServerConfig{RequestTimeout: 5 * time.Second, MaxLimit: maxLimit}, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func seed(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, out := post(t, ts, "/api/v1/ingest", IngestRequest{Records: []map[string]any{
		record("A", "slim jeans", "Women", 10, 80),
		record("B", "slim jeans", "Women", 100, 20),
		record("C", "slim jeans", "Men", 10, 80),
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, out["loaded"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, 100)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "empty index is not ready")

	seed(t, ts)
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var h service.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, 3, h.Entities)
	assert.True(t, h.Ready)
}

func TestSearch_NaturalQuery(t *testing.T) {
	c := core.CompleterFunc(func(_ context.Context, _ core.StructuredRequest, out any) error {
		*(out.(*map[string]any)) = map[string]any{
			"cost_weight":          1.0,
			"profit_margin_weight": 1.0,
			"description_weight":   0.0,
			"departments_include":  []any{"women"},
			"max_cost":             5000.0,
		}
		return nil
	})
	ts := newTestServer(t, c, 100)
	seed(t, ts)

	resp, out := post(t, ts, "/api/v1/search/procurement_query", SearchRequest{NaturalQuery: "cheap high margin jeans for women", Limit: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := out["entries"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, "A", first["id"])
	assert.Contains(t, first, "contributions")
	assert.Equal(t, "slim jeans", first["fields"].(map[string]any)["name"])

	meta := out["metadata"].(map[string]any)
	assert.Equal(t, false, meta["fallback"])
	assert.EqualValues(t, 2, meta["summary"].(map[string]any)["count"])
	assert.EqualValues(t, 55, meta["summary"].(map[string]any)["avg_cost"])
	require.NotEmpty(t, meta["anomalies"], "max_cost above the attribute domain is clamped")
}

func TestSearch_Fallback(t *testing.T) {
	c := core.CompleterFunc(func(context.Context, core.StructuredRequest, any) error {
		return errors.New("llm down")
	})
	ts := newTestServer(t, c, 100)
	seed(t, ts)

	resp, out := post(t, ts, "/api/v1/search/procurement_query", SearchRequest{NaturalQuery: "slim jeans"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meta := out["metadata"].(map[string]any)
	assert.Equal(t, true, meta["fallback"])
	assert.Contains(t, meta["cause"], "llm down")
	assert.Len(t, out["entries"], 3)
}

func TestSearch_Structured(t *testing.T) {
	ts := newTestServer(t, nil, 2)
	seed(t, ts)

	resp, out := post(t, ts, "/api/v1/search/procurement_query", SearchRequest{
		Params: &core.QueryParameters{
			Weights: map[string]float64{space.NameCost: 1},
			Filters: []core.FilterSpec{core.In(core.FieldDepartment, "Women", "Men")},
			Limit:   50,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["entries"], 2, "limit is capped by max_limit")
	meta := out["metadata"].(map[string]any)
	assert.EqualValues(t, 2, meta["params"].(map[string]any)["limit"])
}

func TestSearch_Errors(t *testing.T) {
	ts := newTestServer(t, nil, 100)
	seed(t, ts)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"empty request", SearchRequest{}, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"unknown space weight", SearchRequest{Params: &core.QueryParameters{
			Weights: map[string]float64{"color": 1},
		}}, http.StatusBadRequest, core.ErrorCodeInvalidParameters},
		{"filter on unknown attribute", SearchRequest{Params: &core.QueryParameters{
			Filters: []core.FilterSpec{core.In("color", "red")},
		}}, http.StatusBadRequest, core.ErrorCodeInvalidFilter},
		{"negative limit", SearchRequest{NaturalQuery: "jeans", Limit: -1}, http.StatusBadRequest, core.ErrorCodeInvalidParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts, "/api/v1/search/procurement_query", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, out["code"])
		})
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, 100)
	resp, err := http.Post(ts.URL+"/api/v1/search/procurement_query", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngest_Empty(t *testing.T) {
	ts := newTestServer(t, nil, 100)
	resp, out := post(t, ts, "/api/v1/ingest", IngestRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, core.ErrorCodeInvalidInput, out["code"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{context.Canceled, statusClientClosed},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, "x"), http.StatusNotFound},
		{core.NewDomainError(core.ModuleNLQ, core.ErrorCodeExternalService, "x"), http.StatusBadGateway},
		{core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "x"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusOf(tt.err), "%v", tt.err)
	}
}
