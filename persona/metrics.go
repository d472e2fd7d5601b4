// Package persona 把用户事件流折算为行为指标，并用优先级规则表
// （自上而下、首个命中生效）产出画像标签与预测分。
// 规则表达式使用 CEL，阈值与优先级显式可测，而不是隐含在 if/else 顺序里。
package persona

import (
	"sort"
	"time"

	"github.com/custkit/custkit/core"
)

// UserMetrics 是单个用户的行为指标汇总，是规则表达式的输入。
type UserMetrics struct {
	UserID string `json:"user_id"`

	TotalEvents int `json:"total_events"`
	Views       int `json:"views"`
	Carts       int `json:"carts"`
	Purchases   int `json:"purchases"`

	// PurchaseRatio = Purchases / TotalEvents
	PurchaseRatio float64 `json:"purchase_ratio"`

	// ViewToCartRate = Carts / Views（无浏览时为 0）
	ViewToCartRate float64 `json:"view_to_cart_rate"`

	// CategoryCounts 按类目统计交互次数；TopCategory 是最高频类目
	CategoryCounts    map[string]int `json:"category_counts"`
	TopCategory       string         `json:"top_category"`
	CategoryDiversity int            `json:"category_diversity"`

	// AvgRating 是有评分事件的平均分；RatedEvents 为 0 时 AvgRating 为 0
	AvgRating   float64 `json:"avg_rating"`
	RatedEvents int     `json:"rated_events"`

	// RecencyDays 距最近一次带时间戳的事件的天数；无时间戳时为 -1
	RecencyDays float64 `json:"recency_days"`

	// RecentEvents30d 最近 30 天内的事件数（仅统计带时间戳的事件）
	RecentEvents30d int `json:"recent_events_30d"`
}

// ComputeMetrics 从用户事件流折算行为指标。now 注入便于测试。
func ComputeMetrics(userID string, events []core.Event, now time.Time) UserMetrics {
	m := UserMetrics{
		UserID:         userID,
		CategoryCounts: make(map[string]int),
		RecencyDays:    -1,
	}

	var ratingSum float64
	var lastSeen time.Time
	// 类目按首次出现顺序记录，保证 TopCategory 同频时的确定性
	var categoryOrder []string

	for _, ev := range events {
		m.TotalEvents++
		switch ev.Type {
		case core.EventView:
			m.Views++
		case core.EventCart:
			m.Carts++
		case core.EventPurchase:
			m.Purchases++
		}

		if ev.Category != "" {
			if _, seen := m.CategoryCounts[ev.Category]; !seen {
				categoryOrder = append(categoryOrder, ev.Category)
			}
			m.CategoryCounts[ev.Category]++
		}

		if ev.Rating != nil {
			ratingSum += *ev.Rating
			m.RatedEvents++
		}

		if ev.HasTimestamp() {
			if ev.Timestamp.After(lastSeen) {
				lastSeen = ev.Timestamp
			}
			if now.Sub(ev.Timestamp) <= 30*24*time.Hour {
				m.RecentEvents30d++
			}
		}
	}

	if m.TotalEvents > 0 {
		m.PurchaseRatio = float64(m.Purchases) / float64(m.TotalEvents)
	}
	if m.Views > 0 {
		m.ViewToCartRate = float64(m.Carts) / float64(m.Views)
	}
	if m.RatedEvents > 0 {
		m.AvgRating = ratingSum / float64(m.RatedEvents)
	}
	if !lastSeen.IsZero() {
		m.RecencyDays = now.Sub(lastSeen).Hours() / 24
	}

	m.CategoryDiversity = len(m.CategoryCounts)
	m.TopCategory = topCategory(m.CategoryCounts, categoryOrder)
	return m
}

// topCategory 返回最高频类目，同频时按首次出现顺序取先出现者。
func topCategory(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, cat := range order {
		if counts[cat] > bestCount {
			best = cat
			bestCount = counts[cat]
		}
	}
	return best
}

// secondCategory 返回次高频类目（类目迁移预测用），不足两个类目时返回空串。
func secondCategory(counts map[string]int, top string) string {
	type catCount struct {
		cat   string
		count int
	}
	rest := make([]catCount, 0, len(counts))
	for cat, c := range counts {
		if cat == top {
			continue
		}
		rest = append(rest, catCount{cat, c})
	}
	if len(rest) == 0 {
		return ""
	}
	// 同频时按类目名排序，保证确定性
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].count != rest[j].count {
			return rest[i].count > rest[j].count
		}
		return rest[i].cat < rest[j].cat
	})
	return rest[0].cat
}

// celInput 把指标折算为 CEL 表达式可访问的 map（user.total_events 等）。
func (m UserMetrics) celInput() map[string]any {
	return map[string]any{
		"user_id":            m.UserID,
		"total_events":       m.TotalEvents,
		"views":              m.Views,
		"carts":              m.Carts,
		"purchases":          m.Purchases,
		"purchase_ratio":     m.PurchaseRatio,
		"view_to_cart_rate":  m.ViewToCartRate,
		"top_category":       m.TopCategory,
		"category_diversity": m.CategoryDiversity,
		"avg_rating":         m.AvgRating,
		"rated_events":       m.RatedEvents,
		"recency_days":       m.RecencyDays,
		"recent_events_30d":  m.RecentEvents30d,
	}
}
