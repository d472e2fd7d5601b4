// Package engine 是推荐引擎：持有事件表与派生的目录状态（CatalogState），
// 对外提供 recommend(user, k) 查询与事件摄入/重建。
package engine

import (
	"fmt"
	"time"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/matrix"
	"github.com/custkit/custkit/similarity"
)

// CatalogState 是一次重建产出的不可变整体：
// 交互矩阵、两侧索引映射、相似度矩阵、物品元数据必须同批构建、同批发布，
// 读取方永远不会看到矩阵与映射跨版本混搭。
type CatalogState struct {
	R     *matrix.Dense
	Users *matrix.Index
	Items *matrix.Index
	Sim   *matrix.Dense
	Meta  map[string]core.ItemMeta

	BuiltAt    time.Time
	EventCount int // 构建时使用的事件数
}

// BuildState 由事件表全量构建新状态。构建在旁路完成，发布由调用方整体换装。
func BuildState(events []core.Event, b *matrix.Builder) *CatalogState {
	inter := b.Build(events)
	idx := similarity.Build(inter.R, events)
	return &CatalogState{
		R:          inter.R,
		Users:      inter.Users,
		Items:      inter.Items,
		Sim:        idx.Sim,
		Meta:       idx.Meta,
		BuiltAt:    time.Now(),
		EventCount: len(events),
	}
}

// Validate 校验矩阵与索引映射的维度一致性。
// 若整体换装纪律被遵守则永远不会失败；一旦失败，引擎必须拒绝服务，
// 而不是按错误的映射返回打分结果。
func (s *CatalogState) Validate() error {
	if s == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeStateInvalid,
			"engine: catalog state not built")
	}
	if s.R.Rows() != s.Users.Len() || s.R.Cols() != s.Items.Len() {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeStateInvalid,
			fmt.Sprintf("engine: matrix %dx%d does not match index %dx%d",
				s.R.Rows(), s.R.Cols(), s.Users.Len(), s.Items.Len()))
	}
	if s.Sim.Rows() != s.Items.Len() || s.Sim.Cols() != s.Items.Len() {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeStateInvalid,
			fmt.Sprintf("engine: similarity %dx%d does not match %d items",
				s.Sim.Rows(), s.Sim.Cols(), s.Items.Len()))
	}
	return nil
}

// interactedSet 返回用户已交互（行项 > 0）的物品下标集合。
// 用户不在索引中时返回 nil（冷启动的一种形态）。
func (s *CatalogState) interactedSet(userID string) map[int]bool {
	u, ok := s.Users.Lookup(userID)
	if !ok {
		return nil
	}
	row := s.R.Row(u)
	var set map[int]bool
	for j, v := range row {
		if v > 0 {
			if set == nil {
				set = make(map[int]bool)
			}
			set[j] = true
		}
	}
	return set
}

// metaFor 取物品展示元数据，缺失时使用占位值。
func (s *CatalogState) metaFor(itemID string) core.ItemMeta {
	m, ok := s.Meta[itemID]
	if !ok {
		return core.FallbackMeta(itemID)
	}
	if m.Name == "" {
		m.Name = core.FallbackMeta(itemID).Name
	}
	if m.Category == "" {
		m.Category = "unknown"
	}
	return m
}
