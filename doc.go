// Package procurekit 是一个多属性商品检索工具包。
//
// 设计要点：
// - Space-first: 文本、数值、类目各自归一化到 [0,1]，按查询权重线性加权
// - 查询期权重: 同一个索引无需重建即可切换排序偏好
// - 自然语言入口: LLM 把采购需求抽取为结构化参数，失败时回退到默认参数
package procurekit

import (
	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/service"
)

// 轻量 facade：便于直接 import "procurekit" 使用核心抽象。
type (
	Facade          = service.Facade
	QueryParameters = core.QueryParameters
	FilterSpec      = core.FilterSpec
	Item            = core.Item
	Entity          = core.Entity
)

const (
	OpRange = core.OpRange
	OpIn    = core.OpIn
	OpNotIn = core.OpNotIn
)
