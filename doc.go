// Package custkit 是一个客户事件分析与推荐工具包（Customer Kit）。
//
// 设计要点：
// - 事件表驱动: view/cart/purchase 事件按权重折算为用户×物品交互矩阵
// - 整体换装: 矩阵、索引映射、相似度、元数据作为不可变状态原子发布
// - 混合打分: 物品相似度 + 全局热度按权重混合，冷启动退化为热度榜
package custkit

import (
	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/engine"
)

// 轻量 facade：便于用户直接 import "custkit" 使用核心抽象。
type Event = core.Event
type EventType = core.EventType
type Recommendation = core.Recommendation
type Engine = engine.Engine
type Options = engine.Options

const (
	EventView     = core.EventView
	EventCart     = core.EventCart
	EventPurchase = core.EventPurchase
)

// New 创建推荐引擎并（可选）摄入初始事件表。
func New(opts Options, events ...Event) *Engine {
	return engine.New(opts, events...)
}
