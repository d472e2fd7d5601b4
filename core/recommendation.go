package core

import "fmt"

// ItemMeta 是物品的展示元数据，取该物品在事件表中首次出现的名称/类目。
// 仅用于展示，不参与打分。
type ItemMeta struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Recommendation 是针对某个用户打分后的候选物品。
// 按请求实时计算，不落盘。
//
//   - Score 是 [0,100] 的展示分：clamp((RawScore+1)*50, 0, 100)
//   - RawScore 是混合打分的原始值（相似度 + 热度），保留用于调试/解释
type Recommendation struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`
}

// NormalizeScore 将原始混合分映射到 [0,100] 展示区间。
func NormalizeScore(raw float64) float64 {
	s := (raw + 1) * 50
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// FallbackMeta 返回元数据缺失时的占位展示信息。
func FallbackMeta(itemID string) ItemMeta {
	return ItemMeta{
		Name:     fmt.Sprintf("Item %s", itemID),
		Category: "unknown",
	}
}
