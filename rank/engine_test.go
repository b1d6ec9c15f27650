package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/index"
	"github.com/rushteam/procurekit/space"
)

// wordEmbedder 把文本映射到一个按关键词计数的小向量，足以区分测试中的商品。
type wordEmbedder struct {
	calls atomic.Int64
	err   error
}

var vocab = []string{"shoe", "jacket", "dress", "sock"}

func (w *wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	w.calls.Add(1)
	if w.err != nil {
		return nil, w.err
	}
	v := make([]float32, len(vocab))
	lower := strings.ToLower(text)
	for i, word := range vocab {
		v[i] = float32(strings.Count(lower, word))
	}
	return v, nil
}

type fixture struct {
	ix     *index.Index
	engine *Engine
	emb    *wordEmbedder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	catalog := core.DefaultCatalog()
	set, err := space.Default(catalog, "")
	require.NoError(t, err)
	emb := &wordEmbedder{}
	ix := index.New(catalog, set, emb)
	return &fixture{ix: ix, engine: New(ix, emb, opts...), emb: emb}
}

func (f *fixture) add(t *testing.T, id, name, dept string, cost, margin float64) {
	t.Helper()
	e := core.NewEntity(id)
	e.Strings[core.FieldName] = name
	e.Strings[core.FieldDepartment] = dept
	e.Strings[core.FieldCategory] = "Active"
	e.Numbers[core.FieldCost] = cost
	e.Numbers[core.FieldProfitMargin] = margin
	require.NoError(t, f.ix.Upsert(context.Background(), e))
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSearch_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "running shoe", "Women", 10, 80)
	f.add(t, "B", "running shoe", "Women", 100, 20)
	f.add(t, "C", "running shoe", "Men", 10, 80)

	items, err := f.engine.Search(context.Background(), &core.QueryParameters{
		Weights: map[string]float64{space.NameCost: 1, space.NameProfitMargin: 1},
		Filters: []core.FilterSpec{core.In(core.FieldDepartment, "Women")},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, ids(items))
	assert.Greater(t, items[0].Score, items[1].Score)
	assert.Equal(t, "Women", items[0].Meta[core.FieldDepartment])
	assert.Equal(t, int64(3), f.emb.calls.Load(), "empty probe is never embedded")

	sum := 0.0
	for _, c := range items[0].Features {
		sum += c
	}
	assert.InDelta(t, items[0].Score, sum, 1e-12)
}

func TestSearch_DirectionInversion(t *testing.T) {
	f := newFixture(t)
	f.add(t, "expensive", "x", "Women", 20, 50)
	f.add(t, "cheap", "x", "Women", 10, 50)

	items, err := f.engine.Search(context.Background(), &core.QueryParameters{
		Weights: map[string]float64{space.NameText: 0, space.NameCost: 1},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap", "expensive"}, ids(items))
}

func TestSearch_WeightMonotonicity(t *testing.T) {
	f := newFixture(t)
	f.add(t, "relevant", "trail shoe", "Women", 300, 50)
	f.add(t, "cheap", "wool jacket", "Women", 5, 50)

	search := func(costWeight float64) []*core.Item {
		items, err := f.engine.Search(context.Background(), &core.QueryParameters{
			Weights:   map[string]float64{space.NameText: 1, space.NameCost: costWeight},
			ProbeText: "shoe",
			Limit:     10,
		})
		require.NoError(t, err)
		return items
	}

	rankOf := func(items []*core.Item, id string) int {
		for i, it := range items {
			if it.ID == id {
				return i
			}
		}
		return -1
	}

	prev := rankOf(search(0), "cheap")
	assert.Equal(t, 1, prev)
	for _, w := range []float64{0.1, 0.5, 1, 2, 5, 10} {
		r := rankOf(search(w), "cheap")
		assert.LessOrEqual(t, r, prev, "raising cost weight to %v must not push the cheap item down", w)
		prev = r
	}
	assert.Equal(t, 0, prev)
}

func TestSearch_FilterConjunction(t *testing.T) {
	f := newFixture(t)
	for i := range 40 {
		dept := core.Departments[i%3]
		f.add(t, fmt.Sprintf("P%02d", i), "sock", dept, float64(i*3), 40)
	}

	items, err := f.engine.Search(context.Background(), &core.QueryParameters{
		Weights: map[string]float64{space.NameProfitMargin: 1},
		Filters: []core.FilterSpec{
			core.Range(core.FieldCost, nil, core.Float(50)),
			core.In(core.FieldDepartment, "Women"),
		},
		Limit: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.LessOrEqual(t, it.Meta[core.FieldCost], 50.0)
		assert.Equal(t, "Women", it.Meta[core.FieldDepartment])
	}
}

func TestSearch_DeterministicTieBreak(t *testing.T) {
	f := newFixture(t, WithWorkers(4))
	for _, id := range []string{"d", "b", "e", "a", "c", "f", "h", "g"} {
		f.add(t, id, "dress", "Kids", 42, 42)
	}
	params := &core.QueryParameters{
		Weights: map[string]float64{space.NameCost: 1},
		Limit:   5,
	}
	first, err := f.engine.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(first))

	for range 10 {
		again, err := f.engine.Search(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
	}
}

func TestSearch_AllZeroWeightsOrdersByID(t *testing.T) {
	f := newFixture(t)
	f.add(t, "z", "shoe", "Men", 1, 1)
	f.add(t, "m", "shoe", "Men", 400, 90)
	f.add(t, "a", "shoe", "Men", 50, 10)

	items, err := f.engine.Search(context.Background(), &core.QueryParameters{
		Weights:   map[string]float64{space.NameText: 0},
		ProbeText: "shoe",
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, ids(items))
	for _, it := range items {
		assert.Zero(t, it.Score)
	}
	assert.Equal(t, int64(3), f.emb.calls.Load(), "zero text weight skips probe embedding")
}

func TestSearch_WorkerCountDoesNotChangeResults(t *testing.T) {
	single := newFixture(t, WithWorkers(1))
	many := newFixture(t, WithWorkers(7))
	for i := range 100 {
		name := vocab[i%len(vocab)] + " " + vocab[(i/3)%len(vocab)]
		cost, margin := float64((i*37)%500), float64((i*11)%100)
		single.add(t, fmt.Sprintf("P%03d", i), name, "Women", cost, margin)
		many.add(t, fmt.Sprintf("P%03d", i), name, "Women", cost, margin)
	}
	params := &core.QueryParameters{
		Weights:   map[string]float64{space.NameCost: 0.7, space.NameProfitMargin: 1.3},
		ProbeText: "shoe jacket",
		Limit:     15,
	}
	a, err := single.engine.Search(context.Background(), params)
	require.NoError(t, err)
	b, err := many.engine.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, a, 15)
	assert.Equal(t, ids(a), ids(b))
	for i := range a {
		assert.Equal(t, a[i].Score, b[i].Score)
	}
}

func TestSearch_InvalidParameters(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "shoe", "Women", 1, 1)
	tests := []struct {
		name   string
		params *core.QueryParameters
		check  func(error) bool
	}{
		{"nil", nil, core.IsInvalidParameters},
		{"zero limit", &core.QueryParameters{Limit: 0}, core.IsInvalidParameters},
		{"negative limit", &core.QueryParameters{Limit: -3}, core.IsInvalidParameters},
		{"negative weight", &core.QueryParameters{Limit: 1, Weights: map[string]float64{space.NameCost: -1}}, core.IsInvalidParameters},
		{"nan weight", &core.QueryParameters{Limit: 1, Weights: map[string]float64{space.NameCost: math.NaN()}}, core.IsInvalidParameters},
		{"unknown space", &core.QueryParameters{Limit: 1, Weights: map[string]float64{"color": 1}}, core.IsInvalidParameters},
		{"unknown filter attribute", &core.QueryParameters{Limit: 1, Filters: []core.FilterSpec{core.In("color", "red")}}, core.IsInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := f.engine.Search(context.Background(), tt.params)
			require.Error(t, err)
			assert.Nil(t, items)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestSearch_ProbeEmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "shoe", "Women", 1, 1)
	f.emb.err = errors.New("rate limited")

	_, err := f.engine.Search(context.Background(), &core.QueryParameters{ProbeText: "shoe", Limit: 1})
	require.Error(t, err)
	assert.True(t, core.IsExternalService(err))

	f.emb.err = nil
	items, err := f.engine.Search(context.Background(), &core.QueryParameters{ProbeText: "shoe", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSearch_Cancelled(t *testing.T) {
	f := newFixture(t)
	for i := range 10 {
		f.add(t, fmt.Sprintf("P%d", i), "shoe", "Women", 1, 1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := f.engine.Search(ctx, &core.QueryParameters{Weights: map[string]float64{space.NameCost: 1}, Limit: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, items)
}

func TestSearch_CategoricalSpace(t *testing.T) {
	catalog := core.DefaultCatalog()
	specs := append(space.DefaultSpecs(""), space.Spec{
		Name: "department_match", Type: "categorical",
		Config: map[string]any{"attribute": core.FieldDepartment, "categories": []any{"Women", "Men", "Kids"}},
	})
	set, err := space.Build(catalog, specs)
	require.NoError(t, err)
	ix := index.New(catalog, set, &wordEmbedder{})
	engine := New(ix, nil)

	for id, dept := range map[string]string{"a": "Men", "b": "Women"} {
		e := core.NewEntity(id)
		e.Strings[core.FieldDepartment] = dept
		require.NoError(t, ix.Upsert(context.Background(), e))
	}

	items, err := engine.Search(context.Background(), &core.QueryParameters{
		Weights: map[string]float64{space.NameText: 0, "department_match": 2},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2.0, items[0].Score, "no requested set matches everything")

	items, err = engine.Search(context.Background(), &core.QueryParameters{
		Weights: map[string]float64{space.NameText: 0, "department_match": 2},
		Filters: []core.FilterSpec{core.In(core.FieldDepartment, "Women")},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids(items))
	assert.Equal(t, core.Label{Value: "department_match", Source: "rank"}, items[0].Labels["rank_space"])
}
