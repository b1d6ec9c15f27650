package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rushteam/procurekit/core"
)

func TestTopSpaces(t *testing.T) {
	tests := []struct {
		name    string
		contrib map[string]float64
		want    string
	}{
		{"highest first, ties by name", map[string]float64{"cost": 0.4, "text": 0.9, "profit_margin": 0.4}, "text,cost"},
		{"fewer than n", map[string]float64{"cost": 0.1}, "cost"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := topSpaces(tt.contrib, 2); got != tt.want {
				t.Errorf("topSpaces = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadParams(t *testing.T) {
	p, err := readParams("-", strings.NewReader(`{"weights":{"cost":1},"filters":[{"attribute":"department","op":"in","values":["Women"]}],"limit":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Weights["cost"] != 1 || p.Limit != 3 {
		t.Errorf("params = %+v", p)
	}
	if len(p.Filters) != 1 || p.Filters[0].Op != core.OpIn {
		t.Errorf("filters = %+v", p.Filters)
	}

	if _, err := readParams("-", strings.NewReader(`{`)); !core.IsInvalidInput(err) {
		t.Errorf("malformed json err = %v, want INVALID_INPUT", err)
	}
}

func TestRender(t *testing.T) {
	it := core.NewItem("A")
	it.Score = 0.75
	it.Meta[core.FieldName] = "slim jeans"
	it.Meta[core.FieldCost] = 10.0
	it.Features["cost"] = 0.75

	var buf bytes.Buffer
	if err := render(&buf, []*core.Item{it}, &core.QueryParameters{Limit: 1}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"slim jeans", "0.7500", "1 products, avg cost 10.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
