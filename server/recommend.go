package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/persona"
	"github.com/custkit/custkit/pkg/conv"
)

// batchConcurrency 是批量分析的 fan-out 并发上限。
const batchConcurrency = 4

type recommendRequest struct {
	UserID string `json:"user_id"`
	K      int    `json:"k"`
}

// narratedRecommendation 是带叙述文案的推荐条目。
type narratedRecommendation struct {
	core.Recommendation
	Feedback string `json:"feedback"`
}

type recommendResponse struct {
	UserID          string                   `json:"user_id"`
	Recommendations []narratedRecommendation `json:"recommendations"`
}

// handleRecommend 处理 POST /api/recommend。
// 未知用户走冷启动分支，不是错误；内部计算异常只表现为空列表。
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.K == 0 {
		req.K = 5
	}

	resp, err := s.recommendFor(r, req.UserID, req.K)
	if err != nil {
		// 状态一致性校验失败：拒绝服务而不是按错误映射打分
		s.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("recommend refused")
		s.writeError(w, http.StatusServiceUnavailable, "no recommendations available")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// recommendFor 执行推荐 + 叙述 + 曝光记录。
func (s *Server) recommendFor(r *http.Request, userID string, k int) (*recommendResponse, error) {
	recs, err := s.Engine.Recommend(userID, k)
	if err != nil {
		return nil, err
	}

	enriched := make([]narratedRecommendation, 0, len(recs))
	for _, rec := range recs {
		fb := ""
		if s.Narrator != nil {
			fb = s.Narrator.Narrate(r.Context(), userID, rec)
		}
		enriched = append(enriched, narratedRecommendation{Recommendation: rec, Feedback: fb})
	}

	if s.Collector != nil && len(recs) > 0 {
		if err := s.Collector.RecordServe(r.Context(), userID, recs); err != nil {
			// 曝光记录失败不影响下发
			s.Logger.Warn().Err(err).Str("user_id", userID).Msg("record serve failed")
		}
	}

	return &recommendResponse{UserID: userID, Recommendations: enriched}, nil
}

// analyzeResponse 是单用户综合分析结果。
type analyzeResponse struct {
	persona.Analysis
	Recommendations []narratedRecommendation `json:"recommendations"`
}

// handleAnalyze 处理 GET /api/analyze/{userID}：画像 + 预测分 + 推荐。
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	resp, err := s.analyzeOne(r, userID)
	if err != nil {
		s.Logger.Error().Err(err).Str("user_id", userID).Msg("analyze refused")
		s.writeError(w, http.StatusServiceUnavailable, "no recommendations available")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) analyzeOne(r *http.Request, userID string) (*analyzeResponse, error) {
	metrics := persona.ComputeMetrics(userID, s.Engine.UserEvents(userID), s.now())
	analysis := s.Evaluator.Analyze(metrics)

	rec, err := s.recommendFor(r, userID, 5)
	if err != nil {
		return nil, err
	}
	return &analyzeResponse{
		Analysis:        analysis,
		Recommendations: rec.Recommendations,
	}, nil
}

type batchAnalyzeResponse struct {
	AnalyzedCount int               `json:"analyzed_count"`
	Results       []analyzeResponse `json:"results"`
}

// handleBatchAnalyze 处理 POST /api/batch-analyze：
// errgroup 并发 fan-out，单个用户失败不拖垮整批。
// user_ids 按弱类型解析：客户端把数字形式的标识符发成 JSON number 也接受。
func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userIDs := conv.SliceAnyToString(req["user_ids"])
	if len(userIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no user ids provided")
		return
	}

	results := make([]*analyzeResponse, len(userIDs))
	eg, _ := errgroup.WithContext(r.Context())
	eg.SetLimit(batchConcurrency)

	for i, userID := range userIDs {
		i, userID := i, userID
		eg.Go(func() error {
			resp, err := s.analyzeOne(r, userID)
			if err != nil {
				// 单用户失败按空槽处理，不中断其他用户
				return nil
			}
			results[i] = resp
			return nil
		})
	}
	_ = eg.Wait()

	out := batchAnalyzeResponse{Results: make([]analyzeResponse, 0, len(results))}
	for _, res := range results {
		if res == nil {
			continue
		}
		out.Results = append(out.Results, *res)
	}
	out.AnalyzedCount = len(out.Results)
	s.writeJSON(w, http.StatusOK, out)
}
