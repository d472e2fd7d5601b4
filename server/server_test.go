package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/engine"
	"github.com/custkit/custkit/feedback"
	"github.com/custkit/custkit/narrator"
	"github.com/custkit/custkit/persona"
	"github.com/custkit/custkit/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	events := []core.Event{
		{UserID: "u1", ItemID: "i1", Type: core.EventView, ItemName: "Laptop", Category: "electronics"},
		{UserID: "u1", ItemID: "i2", Type: core.EventPurchase, ItemName: "Mouse", Category: "electronics"},
		{UserID: "u2", ItemID: "i1", Type: core.EventPurchase, ItemName: "Laptop", Category: "electronics"},
		{UserID: "u2", ItemID: "i3", Type: core.EventView, ItemName: "Desk", Category: "furniture"},
	}
	eng := engine.New(engine.Options{}, events...)

	evaluator, err := persona.NewEvaluator(persona.DefaultRules())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	return &Server{
		Engine:    eng,
		Narrator:  narrator.New(eng),
		Evaluator: evaluator,
		Collector: feedback.NewStoreCollector(ms, ""),
		Logger:    zerolog.Nop(),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
	if resp["events"].(float64) != 4 {
		t.Errorf("events = %v, want 4", resp["events"])
	}
}

func TestHandleRecommend(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodPost, "/api/recommend",
		map[string]any{"user_id": "u1", "k": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		UserID          string `json:"user_id"`
		Recommendations []struct {
			ItemID   string  `json:"item_id"`
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		} `json:"recommendations"`
	}
	decode(t, w, &resp)

	if resp.UserID != "u1" {
		t.Errorf("user_id = %q, want u1", resp.UserID)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].ItemID != "i3" {
		t.Fatalf("recommendations = %+v, want single i3", resp.Recommendations)
	}
	if resp.Recommendations[0].Feedback == "" {
		t.Error("feedback copy should not be empty")
	}
	if s := resp.Recommendations[0].Score; s < 0 || s > 100 {
		t.Errorf("score %v out of [0,100]", s)
	}
}

func TestHandleRecommend_BadRequests(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodPost, "/api/recommend", map[string]any{"k": 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/recommend",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestHandleRecommend_UnknownUserColdStart(t *testing.T) {
	h := newTestServer(t).Router()

	// 未知用户是冷启动，不是 404
	w := doJSON(t, h, http.MethodPost, "/api/recommend",
		map[string]any{"user_id": "stranger", "k": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Recommendations []struct {
			ItemID string `json:"item_id"`
		} `json:"recommendations"`
	}
	decode(t, w, &resp)
	if len(resp.Recommendations) != 2 || resp.Recommendations[0].ItemID != "i1" {
		t.Errorf("cold start top = %+v, want i1 first", resp.Recommendations)
	}
}

func TestHandleAnalyze(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodGet, "/api/analyze/u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		UserID  string `json:"user_id"`
		Persona string `json:"persona"`
		Metrics struct {
			TotalEvents int `json:"total_events"`
		} `json:"metrics"`
		PurchaseProbability float64 `json:"purchase_probability"`
		Recommendations     []any   `json:"recommendations"`
	}
	decode(t, w, &resp)

	if resp.UserID != "u1" {
		t.Errorf("user_id = %q, want u1", resp.UserID)
	}
	if resp.Persona == "" {
		t.Error("persona should not be empty")
	}
	if resp.Metrics.TotalEvents != 2 {
		t.Errorf("total_events = %d, want 2", resp.Metrics.TotalEvents)
	}
	// u1 有 2 条事件、1 次购买：casual 规则命中，购买概率走 one-off 档
	if resp.Persona != "Casual Browser" {
		t.Errorf("persona = %q, want Casual Browser", resp.Persona)
	}
	if len(resp.Recommendations) == 0 {
		t.Error("analysis should include recommendations")
	}
}

func TestHandleBatchAnalyze(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodPost, "/api/batch-analyze",
		map[string]any{"user_ids": []string{"u1", "u2", "stranger"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		AnalyzedCount int `json:"analyzed_count"`
		Results       []struct {
			UserID string `json:"user_id"`
		} `json:"results"`
	}
	decode(t, w, &resp)
	if resp.AnalyzedCount != 3 {
		t.Errorf("analyzed_count = %d, want 3", resp.AnalyzedCount)
	}
	// 结果顺序与请求顺序一致
	if resp.Results[0].UserID != "u1" || resp.Results[2].UserID != "stranger" {
		t.Errorf("result order = %+v", resp.Results)
	}

	w = doJSON(t, h, http.MethodPost, "/api/batch-analyze", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", w.Code)
	}
}

func TestHandleBatchAnalyze_NumericUserIDs(t *testing.T) {
	h := newTestServer(t).Router()

	// 数字形式的标识符被折算为字符串，而不是整批拒绝
	w := doJSON(t, h, http.MethodPost, "/api/batch-analyze",
		map[string]any{"user_ids": []any{"u1", 42}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		AnalyzedCount int `json:"analyzed_count"`
		Results       []struct {
			UserID string `json:"user_id"`
		} `json:"results"`
	}
	decode(t, w, &resp)
	if resp.AnalyzedCount != 2 {
		t.Fatalf("analyzed_count = %d, want 2", resp.AnalyzedCount)
	}
	if resp.Results[1].UserID != "42" {
		t.Errorf("results[1].user_id = %q, want \"42\"", resp.Results[1].UserID)
	}
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	w := doJSON(t, h, http.MethodPost, "/api/ingest", map[string]any{
		"events": []map[string]any{
			{"user_id": "u3", "item_id": "i4", "event_type": "purchase",
				"rating": 5, "timestamp": "2025-01-15 10:30:00",
				"item_name": "Chair", "category": "furniture"},
			{"user_id": "", "item_id": "i5", "event_type": "view"},
			{"user_id": "u3", "item_id": "i1", "event_type": "view"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp map[string]any
	decode(t, w, &resp)
	if resp["ingested"].(float64) != 2 {
		t.Errorf("ingested = %v, want 2 (row without user_id dropped)", resp["ingested"])
	}
	if resp["total_events"].(float64) != 6 {
		t.Errorf("total_events = %v, want 6", resp["total_events"])
	}

	// 新物品立即可被推荐
	recs, err := s.Engine.Recommend("u1", 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	found := false
	for _, rec := range recs {
		if rec.ItemID == "i4" {
			found = true
			if rec.ItemName != "Chair" {
				t.Errorf("ingested item name = %q, want Chair", rec.ItemName)
			}
		}
	}
	if !found {
		t.Error("ingested item i4 missing from recommendations")
	}

	w = doJSON(t, h, http.MethodPost, "/api/ingest", map[string]any{"events": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty ingest status = %d, want 400", w.Code)
	}
}

func TestHandleScoreDistribution(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodGet, "/api/visualization/score-distribution", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		ChartType string         `json:"chart_type"`
		Data      map[string]int `json:"data"`
	}
	decode(t, w, &resp)
	if resp.ChartType != "histogram" {
		t.Errorf("chart_type = %q, want histogram", resp.ChartType)
	}
	if len(resp.Data) != 10 {
		t.Errorf("bins = %d, want 10", len(resp.Data))
	}
	total := 0
	for _, c := range resp.Data {
		total += c
	}
	if total == 0 {
		t.Error("histogram should count at least one sampled score")
	}
}

func TestHandleCategoryDistribution(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodGet, "/api/visualization/category-distribution", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		ChartType string         `json:"chart_type"`
		Data      map[string]int `json:"data"`
	}
	decode(t, w, &resp)
	if resp.ChartType != "pie" {
		t.Errorf("chart_type = %q, want pie", resp.ChartType)
	}
	if resp.Data["electronics"] != 3 || resp.Data["furniture"] != 1 {
		t.Errorf("data = %v, want electronics:3 furniture:1", resp.Data)
	}
}

func TestHandleUserPreferences(t *testing.T) {
	h := newTestServer(t).Router()

	w := doJSON(t, h, http.MethodGet, "/api/visualization/user-preferences/u2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Data struct {
			UserID     string         `json:"user_id"`
			Categories map[string]int `json:"categories"`
			EventTypes map[string]int `json:"event_types"`
		} `json:"data"`
	}
	decode(t, w, &resp)
	if resp.Data.UserID != "u2" {
		t.Errorf("user_id = %q, want u2", resp.Data.UserID)
	}
	if resp.Data.EventTypes["purchase"] != 1 || resp.Data.EventTypes["view"] != 1 {
		t.Errorf("event_types = %v", resp.Data.EventTypes)
	}

	w = doJSON(t, h, http.MethodGet, "/api/visualization/user-preferences/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", w.Code)
	}
}

func TestHandleRecommendationStrength(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	// 无曝光记录时退化为热度榜
	w := doJSON(t, h, http.MethodGet, "/api/visualization/recommendation-strength", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Data []struct {
			Rank     int    `json:"rank"`
			ItemID   string `json:"item_id"`
			ItemName string `json:"item_name"`
		} `json:"data"`
	}
	decode(t, w, &resp)
	if len(resp.Data) != 3 || resp.Data[0].ItemID != "i1" {
		t.Fatalf("popularity fallback = %+v, want i1 first of 3", resp.Data)
	}

	// 产生曝光后读曝光榜
	doJSON(t, h, http.MethodPost, "/api/recommend", map[string]any{"user_id": "u1", "k": 5})
	w = doJSON(t, h, http.MethodGet, "/api/visualization/recommendation-strength", nil)
	decode(t, w, &resp)
	if len(resp.Data) != 1 || resp.Data[0].ItemID != "i3" {
		t.Errorf("served ranking = %+v, want only i3", resp.Data)
	}
	if resp.Data[0].ItemName != "Desk" {
		t.Errorf("served item name = %q, want Desk", resp.Data[0].ItemName)
	}
}
