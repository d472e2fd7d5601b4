// Package narrator 是规则式的推荐理由生成器（core.Narrator 的默认实现）。
// 文案纯展示用途：按用户历史与推荐物品的类目关系三选一，不依赖外部服务。
package narrator

import (
	"context"
	"fmt"

	"github.com/custkit/custkit/core"
)

// HistorySource 提供用户历史事件（engine.Engine 满足此接口）。
type HistorySource interface {
	UserEvents(userID string) []core.Event
}

// RuleNarrator 按规则生成一句推荐理由：
//   - 无历史：新用户起步文案
//   - 有同类目历史：引用该类目下首个交互过的物品
//   - 其他：泛化类目文案
type RuleNarrator struct {
	History HistorySource
}

func New(history HistorySource) *RuleNarrator {
	return &RuleNarrator{History: history}
}

func (n *RuleNarrator) Narrate(_ context.Context, userID string, rec core.Recommendation) string {
	category := rec.Category
	if category == "" {
		category = "this category"
	}
	name := rec.ItemName
	if name == "" {
		name = "this item"
	}

	var events []core.Event
	if n.History != nil {
		events = n.History.UserEvents(userID)
	}
	if len(events) == 0 {
		return fmt.Sprintf("We think %s could be a good starting point for you in %s.", name, category)
	}

	for _, ev := range events {
		if ev.Category == rec.Category && ev.ItemName != "" {
			return fmt.Sprintf("Since you interacted with '%s' in %s, '%s' is a natural next suggestion for you.",
				ev.ItemName, category, name)
		}
	}

	return fmt.Sprintf("Based on your previous behaviour, users like you often enjoy %s items such as '%s'.",
		category, name)
}

var _ core.Narrator = (*RuleNarrator)(nil)
