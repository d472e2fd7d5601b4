package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/custkit/custkit/core"
)

// 可视化采样参数：面板只要趋势，不做全量扫描。
const (
	vizSampleUsers = 10
	vizSampleK     = 20
	vizTopServed   = 10
)

// VisualizationData 是面板图表的统一响应格式。
type VisualizationData struct {
	ChartType   string `json:"chart_type"`
	Data        any    `json:"data"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleScoreDistribution 处理 GET /api/visualization/score-distribution：
// 抽样部分用户的推荐展示分，按 10 分一档做直方图。
func (s *Server) handleScoreDistribution(w http.ResponseWriter, r *http.Request) {
	users := s.Engine.Users()
	if len(users) > vizSampleUsers {
		users = users[:vizSampleUsers]
	}

	// 用户间采样并行，装桶在合并阶段串行完成
	perUser := make([][]float64, len(users))
	eg, _ := errgroup.WithContext(r.Context())
	eg.SetLimit(batchConcurrency)
	for i, userID := range users {
		i, userID := i, userID
		eg.Go(func() error {
			recs, err := s.Engine.Recommend(userID, vizSampleK)
			if err != nil {
				return nil
			}
			scores := make([]float64, 0, len(recs))
			for _, rec := range recs {
				scores = append(scores, rec.Score)
			}
			perUser[i] = scores
			return nil
		})
	}
	_ = eg.Wait()

	bins := make(map[string]int, 10)
	for b := 0; b < 100; b += 10 {
		bins[fmt.Sprintf("%d-%d", b, b+10)] = 0
	}
	for _, scores := range perUser {
		for _, score := range scores {
			b := int(score) / 10 * 10
			if b >= 100 {
				b = 90
			}
			bins[fmt.Sprintf("%d-%d", b, b+10)]++
		}
	}

	s.writeJSON(w, http.StatusOK, VisualizationData{
		ChartType:   "histogram",
		Data:        bins,
		Title:       "Recommendation Score Distribution",
		Description: "Display score histogram over sampled users",
	})
}

// handleCategoryDistribution 处理 GET /api/visualization/category-distribution：
// 全事件表的品类占比（饼图）。
func (s *Server) handleCategoryDistribution(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for _, ev := range s.Engine.Events() {
		category := ev.Category
		if category == "" {
			category = "unknown"
		}
		counts[category]++
	}

	s.writeJSON(w, http.StatusOK, VisualizationData{
		ChartType:   "pie",
		Data:        counts,
		Title:       "Category Distribution",
		Description: "Event share per item category",
	})
}

// handleUserPreferences 处理 GET /api/visualization/user-preferences/{userID}：
// 单用户的品类偏好、事件类型构成与按天的活跃曲线。
func (s *Server) handleUserPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	events := s.Engine.UserEvents(userID)
	if len(events) == 0 {
		s.writeError(w, http.StatusNotFound, "no events for user")
		return
	}

	categories := make(map[string]int)
	eventTypes := make(map[string]int)
	timeline := make(map[string]int)
	for _, ev := range events {
		category := ev.Category
		if category == "" {
			category = "unknown"
		}
		categories[category]++
		eventTypes[string(ev.Type)]++
		if ev.HasTimestamp() {
			timeline[ev.Timestamp.Format("2006-01-02")]++
		}
	}

	s.writeJSON(w, http.StatusOK, VisualizationData{
		ChartType: "radar",
		Data: map[string]any{
			"user_id":     userID,
			"categories":  categories,
			"event_types": eventTypes,
			"timeline":    timeline,
		},
		Title:       "User Preferences",
		Description: "Category and event-type breakdown for one user",
	})
}

// servedItem 是强度榜单的一行。
type servedItem struct {
	Rank     int    `json:"rank"`
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Category string `json:"category"`
}

// handleRecommendationStrength 处理 GET /api/visualization/recommendation-strength：
// 曝光日志中累计下发分最高的物品榜单。没有曝光记录时退化为全局热度榜。
func (s *Server) handleRecommendationStrength(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if s.Collector != nil {
		top, err := s.Collector.TopServed(r.Context(), vizTopServed)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("top served read failed")
		} else {
			ids = top
		}
	}
	if len(ids) == 0 {
		ids = s.popularItems(vizTopServed)
	}

	st := s.Engine.State()
	items := make([]servedItem, 0, len(ids))
	for rank, id := range ids {
		meta := core.FallbackMeta(id)
		if st != nil {
			if m, ok := st.Meta[id]; ok {
				if m.Name != "" {
					meta.Name = m.Name
				}
				if m.Category != "" {
					meta.Category = m.Category
				}
			}
		}
		items = append(items, servedItem{
			Rank:     rank + 1,
			ItemID:   id,
			ItemName: meta.Name,
			Category: meta.Category,
		})
	}

	s.writeJSON(w, http.StatusOK, VisualizationData{
		ChartType:   "bar",
		Data:        items,
		Title:       "Recommendation Strength",
		Description: "Items ranked by cumulative served score",
	})
}

// popularItems 按全局热度（交互矩阵列和）取 TopN 物品标识符。
func (s *Server) popularItems(n int) []string {
	st := s.Engine.State()
	if st == nil || st.Items.Len() == 0 {
		return nil
	}
	pop := st.R.ColSums()
	idx := make([]int, len(pop))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return pop[idx[a]] > pop[idx[b]] })
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]string, 0, len(idx))
	for _, j := range idx {
		out = append(out, st.Items.ID(j))
	}
	return out
}
