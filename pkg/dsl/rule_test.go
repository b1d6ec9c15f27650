package dsl

import (
	"testing"

	"github.com/rushteam/procurekit/core"
)

func product() *core.Entity {
	e := core.NewEntity("p1")
	e.Strings[core.FieldDepartment] = "Women"
	e.Strings[core.FieldBrand] = "Acme"
	e.Numbers[core.FieldCost] = 12.5
	return e
}

func TestRule_Eval(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{"numeric int literal", "item.cost >= 0", true, false},
		{"numeric double literal", "item.cost < 10.0", false, false},
		{"string equality", `item.department == "Women"`, true, false},
		{"membership", `item.department in ["Men", "Kids"]`, false, false},
		{"has on missing", "!has(item.return_rate_percent) || item.return_rate_percent <= 100", true, false},
		{"id", `id.startsWith("p")`, true, false},
		{"missing key errors", "item.total_orders > 0", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Compile(tt.name, tt.expr)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got, err := r.Eval(product())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Eval() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{"item.cost >=", `"not a bool"`, "1 + 2"} {
		if _, err := Compile("bad", expr); err == nil {
			t.Errorf("Compile(%q) expected error", expr)
		}
	}
}

func TestRuleSet_Check(t *testing.T) {
	rules, err := CompileAll([]RuleSpec{
		{Name: "non_negative_cost", Expr: "item.cost >= 0"},
		{Name: "known_department", Expr: `item.department in ["Women", "Men", "Kids"]`},
	})
	if err != nil {
		t.Fatal(err)
	}

	if failed, err := rules.Check(product()); failed != nil || err != nil {
		t.Fatalf("Check() = %v, %v; want pass", failed, err)
	}

	bad := product()
	bad.Strings[core.FieldDepartment] = "Pets"
	failed, err := rules.Check(bad)
	if err != nil || failed == nil || failed.Name != "known_department" {
		t.Fatalf("Check() = %v, %v; want known_department", failed, err)
	}
}
