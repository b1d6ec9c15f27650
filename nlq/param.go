package nlq

import (
	"fmt"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/space"
)

// ParamKind 决定参数如何映射到 QueryParameters。
type ParamKind string

const (
	KindProbe   ParamKind = "probe"   // ProbeText
	KindWeight  ParamKind = "weight"  // Weights[Target]，Target 为 Space 名称
	KindMin     ParamKind = "min"     // range 过滤下界，Target 为数值属性
	KindMax     ParamKind = "max"     // range 过滤上界
	KindInclude ParamKind = "include" // in 过滤，Target 为类目属性
	KindExclude ParamKind = "exclude" // not_in 过滤
)

// MaxWeight 是抽取出的权重上限。
const MaxWeight = 10.0

// Param 是 LLM 需要填写的一个参数。
type Param struct {
	Name        string
	Kind        ParamKind
	Target      string
	Description string
	// Default 是未填写时的取值；nil 表示不设置（权重为 0，边界不过滤）。
	Default *float64
	// Options 覆盖类目属性的取值集合；为空时使用 Catalog 声明或 Index 去重值。
	Options []string
}

func weight(name, target, desc string) Param {
	return Param{Name: name, Kind: KindWeight, Target: target, Description: desc}
}

func bound(name string, kind ParamKind, attr, desc string, def float64) Param {
	return Param{Name: name, Kind: kind, Target: attr, Description: desc, Default: core.Float(def)}
}

// DefaultParams 返回商品查询的参数声明。
func DefaultParams() []Param {
	return []Param{
		{Name: "product_description", Kind: KindProbe, Description: productGuidance},
		weight("cost_weight", space.NameCost, costGuidance),
		weight("reliability_weight", space.NameReliability, reliabilityGuidance),
		weight("profit_margin_weight", space.NameProfitMargin, profitMarginGuidance),
		weight("return_rate_weight", space.NameReturnRate, returnRateGuidance),
		weight("sales_performance_weight", space.NameSalesVolume, salesGuidance),
		weight("revenue_performance_weight", space.NameRevenue, revenueGuidance),
		{Name: "description_weight", Kind: KindWeight, Target: space.NameText, Description: descriptionWeightGuidance, Default: core.Float(1.0)},
		bound("min_cost", KindMin, core.FieldCost, minCostGuidance, 0),
		bound("max_cost", KindMax, core.FieldCost, maxCostGuidance, 1000),
		bound("min_profit_margin", KindMin, core.FieldProfitMargin, minProfitMarginGuidance, 0),
		bound("max_return_rate", KindMax, core.FieldReturnRate, maxReturnRateGuidance, 100),
		bound("min_orders", KindMin, core.FieldTotalOrders, minOrdersGuidance, 0),
		bound("min_revenue", KindMin, core.FieldTotalRevenue, minRevenueGuidance, 0),
		{Name: "departments_include", Kind: KindInclude, Target: core.FieldDepartment, Description: departmentGuidance},
		{Name: "categories_include", Kind: KindInclude, Target: core.FieldCategory, Description: categoryIncludeGuidance},
		{Name: "categories_exclude", Kind: KindExclude, Target: core.FieldCategory, Description: categoryExcludeGuidance},
		{Name: "brands_include", Kind: KindInclude, Target: core.FieldBrand, Description: brandGuidance},
	}
}

// checkParams 按 Catalog 校验参数声明。
func checkParams(catalog *core.Catalog, params []Param) error {
	seen := make(map[string]struct{}, len(params))
	probes := 0
	for _, p := range params {
		if p.Name == "" {
			return configErr("parameter without name")
		}
		if _, dup := seen[p.Name]; dup {
			return configErr(fmt.Sprintf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = struct{}{}

		switch p.Kind {
		case KindProbe:
			probes++
		case KindWeight:
			if p.Target == "" {
				return configErr(fmt.Sprintf("weight parameter %q has no space", p.Name))
			}
		case KindMin, KindMax:
			if _, err := catalog.Numeric(p.Target); err != nil {
				return configErr(fmt.Sprintf("parameter %q: %v", p.Name, err))
			}
		case KindInclude, KindExclude:
			a, ok := catalog.Attribute(p.Target)
			if !ok || a.Kind != core.AttrCategorical {
				return configErr(fmt.Sprintf("parameter %q targets non-categorical attribute %q", p.Name, p.Target))
			}
		default:
			return configErr(fmt.Sprintf("parameter %q has unknown kind %q", p.Name, p.Kind))
		}
	}
	if probes > 1 {
		return configErr("at most one probe parameter is allowed")
	}
	return nil
}

func configErr(msg string) error {
	return core.NewDomainError(core.ModuleNLQ, core.ErrorCodeConfiguration, "nlq: "+msg)
}
