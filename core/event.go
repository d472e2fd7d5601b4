package core

import "time"

// EventType 是交互事件类型（view / cart / purchase）。
// 未知类型不会被拒绝，构建交互矩阵时使用默认权重。
type EventType string

const (
	EventView     EventType = "view"     // 浏览
	EventCart     EventType = "cart"     // 加购
	EventPurchase EventType = "purchase" // 购买
)

// Event 是一条原始交互事件，摄入后不可变。
//
// 字段约定：
//   - UserID / ItemID 为必填；缺失任意一个的事件在摄入时被静默丢弃
//   - Timestamp 可为零值，表示时间戳缺失或无法解析，此时不做时间衰减
//   - Rating 为可选评分（0-5），nil 表示未评分，权重按 1.0 处理
//   - ItemName / Category 仅用于展示元数据，不参与打分
type Event struct {
	UserID    string
	ItemID    string
	Type      EventType
	Timestamp time.Time
	Rating    *float64
	ItemName  string
	Category  string
}

// Valid 判断事件是否可参与矩阵构建（user/item id 齐全）。
func (e Event) Valid() bool {
	return e.UserID != "" && e.ItemID != ""
}

// HasTimestamp 判断事件是否携带可用时间戳。
func (e Event) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}
