package server

import (
	"encoding/json"
	"net/http"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/dataset"
	"github.com/custkit/custkit/pkg/conv"
)

type ingestRequest struct {
	Events []map[string]any `json:"events"`
}

// handleIngest 处理 POST /api/ingest：追加一批事件并按需触发重建。
// 事件字段按弱类型解析（rating 允许数字或字符串数字，timestamp 允许缺省），
// 缺失 user_id / item_id 的行被静默丢弃，与 CSV 加载口径一致。
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Events) == 0 {
		s.writeError(w, http.StatusBadRequest, "no events provided")
		return
	}

	events := make([]core.Event, 0, len(req.Events))
	for _, raw := range req.Events {
		events = append(events, decodeEvent(raw))
	}
	added := s.Engine.Ingest(events)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ingested":     added,
		"total_events": s.Engine.EventCount(),
	})
}

// decodeEvent 把松散 JSON 对象折算为事件。非法事件交给 Ingest 统一丢弃。
func decodeEvent(raw map[string]any) core.Event {
	ev := core.Event{
		UserID:   conv.ConfigGet(raw, "user_id", ""),
		ItemID:   conv.ConfigGet(raw, "item_id", ""),
		ItemName: conv.ConfigGet(raw, "item_name", ""),
		Category: conv.ConfigGet(raw, "category", ""),
	}
	ev.Type = core.EventType(conv.ConfigGet(raw, "event_type", ""))

	if ts, ok := conv.ToString(raw["timestamp"]); ok && ts != "" {
		ev.Timestamp = dataset.ParseTimestamp(ts)
	}

	if v, ok := conv.ToFloat64(raw["rating"]); ok {
		rating := v
		ev.Rating = &rating
	}
	return ev
}
