package space

import "github.com/rushteam/procurekit/core"

// 默认 Space 名称，即查询权重的 key。
const (
	NameText         = "text"
	NameCost         = "cost"
	NameProfitMargin = "profit_margin"
	NameReliability  = "reliability"
	NameReturnRate   = "return_rate"
	NameSalesVolume  = "sales_volume"
	NameRevenue      = "revenue"
)

// DefaultModel 是默认的文本 Embedding 模型标识。
const DefaultModel = "sentence-transformers/all-MiniLM-L12-v2"

// DefaultSpecs 返回商品索引的 Space 声明。
// 退货率按 minimize、销量与营收按 maximize，方向在这里固定。
func DefaultSpecs(model string) []Spec {
	if model == "" {
		model = DefaultModel
	}
	number := func(name, attr string, min, max float64, mode Mode, scale Scale) Spec {
		return Spec{Name: name, Type: string(KindNumber), Config: map[string]any{
			"attribute": attr,
			"min_value": min,
			"max_value": max,
			"mode":      string(mode),
			"scale":     string(scale),
		}}
	}
	return []Spec{
		{Name: NameText, Type: string(KindText), Config: map[string]any{
			"attributes":     []any{core.FieldName},
			"model":          model,
			"default_weight": 1.0,
		}},
		number(NameCost, core.FieldCost, 0, 500, Minimize, Logarithmic),
		number(NameProfitMargin, core.FieldProfitMargin, 0, 100, Maximize, Logarithmic),
		number(NameReliability, core.FieldReliability, 0, 10, Maximize, Linear),
		number(NameReturnRate, core.FieldReturnRate, 0, 100, Minimize, Linear),
		number(NameSalesVolume, core.FieldTotalOrders, 0, 1000, Maximize, Logarithmic),
		number(NameRevenue, core.FieldTotalRevenue, 0, 50000, Maximize, Logarithmic),
	}
}

// Default 构建默认 Set。
func Default(catalog *core.Catalog, model string) (*Set, error) {
	return Build(catalog, DefaultSpecs(model))
}
