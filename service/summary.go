package service

import (
	"github.com/rushteam/procurekit/core"
)

// Summary 是结果集的汇总指标。
type Summary struct {
	Count           int     `json:"count"`
	AvgCost         float64 `json:"avg_cost"`
	AvgProfitMargin float64 `json:"avg_profit_margin"`
}

// Summarize 计算平均成本与平均利润率，缺失值不计入对应均值。
func Summarize(items []*core.Item) Summary {
	s := Summary{Count: len(items)}
	s.AvgCost = mean(items, core.FieldCost)
	s.AvgProfitMargin = mean(items, core.FieldProfitMargin)
	return s
}

func mean(items []*core.Item, field string) float64 {
	var sum float64
	n := 0
	for _, it := range items {
		if v, ok := it.Meta[field].(float64); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
