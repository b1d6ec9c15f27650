package filter

import (
	"math"
	"testing"

	"github.com/rushteam/procurekit/core"
)

func entity(id, dept, category string, cost float64) *core.Entity {
	e := core.NewEntity(id)
	e.Strings[core.FieldDepartment] = dept
	e.Strings[core.FieldCategory] = category
	e.Numbers[core.FieldCost] = cost
	return e
}

func TestCompile_Errors(t *testing.T) {
	catalog := core.DefaultCatalog()
	tests := []struct {
		name string
		spec core.FilterSpec
	}{
		{"unknown attribute", core.In("color", "red")},
		{"not filterable", core.In(core.FieldName, "x")},
		{"range on categorical", core.Range(core.FieldDepartment, core.Float(1), nil)},
		{"in on numeric", core.In(core.FieldCost, "10")},
		{"inverted range", core.Range(core.FieldCost, core.Float(50), core.Float(10))},
		{"nan bound", core.Range(core.FieldCost, core.Float(math.NaN()), nil)},
		{"unknown op", core.FilterSpec{Attribute: core.FieldCost, Op: "between"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(catalog, []core.FilterSpec{tt.spec})
			if err == nil {
				t.Fatalf("expected error for %+v", tt.spec)
			}
			if !core.IsInvalidFilter(err) {
				t.Errorf("got %v, want INVALID_FILTER", err)
			}
		})
	}
}

func TestChain_Conjunction(t *testing.T) {
	catalog := core.DefaultCatalog()
	chain, err := Compile(catalog, []core.FilterSpec{
		core.Range(core.FieldCost, nil, core.Float(50)),
		core.In(core.FieldDepartment, "Women"),
		core.NotIn(core.FieldCategory, "Swim"),
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		entity *core.Entity
		keep   bool
		reason string
	}{
		{entity("a", "Women", "Jeans", 50), true, ""},
		{entity("b", "Women", "Jeans", 50.01), false, "filter.range(cost)"},
		{entity("c", "Men", "Jeans", 10), false, "filter.in(department)"},
		{entity("d", "Women", "Swim", 10), false, "filter.not_in(category)"},
		{core.NewEntity("e"), false, "filter.range(cost)"},
	}
	for _, tt := range tests {
		if got := chain.Keep(tt.entity); got != tt.keep {
			t.Errorf("%s: Keep = %v, want %v", tt.entity.ID, got, tt.keep)
		}
		if got := chain.Rejected(tt.entity); got != tt.reason {
			t.Errorf("%s: Rejected = %q, want %q", tt.entity.ID, got, tt.reason)
		}
	}
}

func TestRangeFilter_OpenBounds(t *testing.T) {
	lo := &RangeFilter{Attribute: core.FieldCost, Lo: core.Float(10)}
	if lo.ShouldFilter(entity("a", "", "", 10)) {
		t.Error("lower bound is inclusive")
	}
	if !lo.ShouldFilter(entity("a", "", "", 9.99)) {
		t.Error("below lower bound must be filtered")
	}
	none := &RangeFilter{Attribute: core.FieldCost}
	if none.ShouldFilter(entity("a", "", "", -1e9)) {
		t.Error("unbounded range keeps any value")
	}
}

func TestCompile_EmptySetIsNoop(t *testing.T) {
	chain, err := Compile(core.DefaultCatalog(), []core.FilterSpec{
		core.In(core.FieldDepartment),
		core.NotIn(core.FieldCategory),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 0 {
		t.Fatalf("len(chain) = %d, want 0", len(chain))
	}
	if !chain.Keep(core.NewEntity("x")) {
		t.Error("empty chain keeps everything")
	}
}

func TestNotInFilter_MissingAttributeKept(t *testing.T) {
	f := NewNotInFilter(core.FieldBrand, []string{"Nike"})
	if f.ShouldFilter(core.NewEntity("x")) {
		t.Error("entity without brand is not excluded by brand blacklist")
	}
}
