// Package server 是 HTTP API 层：接收标识符查询，把引擎/画像/叙述的
// 产物作为 JSON 文档返回。核心契约只有 recommend(user_id, k)；
// 鉴权与分页不在此层承诺范围内。
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/engine"
	"github.com/custkit/custkit/feedback"
	"github.com/custkit/custkit/persona"
)

// Server 聚合引擎与各协作方，暴露 REST 接口。
type Server struct {
	Engine    *engine.Engine
	Narrator  core.Narrator
	Evaluator *persona.Evaluator
	Collector feedback.Collector
	Logger    zerolog.Logger

	// Now 取当前时间（画像指标折算用），便于测试注入；nil 时用 time.Now
	Now func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Router 构建路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/recommend", s.handleRecommend)
	r.Get("/api/analyze/{userID}", s.handleAnalyze)
	r.Post("/api/batch-analyze", s.handleBatchAnalyze)
	r.Post("/api/ingest", s.handleIngest)

	r.Route("/api/visualization", func(r chi.Router) {
		r.Get("/score-distribution", s.handleScoreDistribution)
		r.Get("/category-distribution", s.handleCategoryDistribution)
		r.Get("/user-preferences/{userID}", s.handleUserPreferences)
		r.Get("/recommendation-strength", s.handleRecommendationStrength)
	})

	return r
}

// requestLogger 是 zerolog 请求日志中间件。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"events": s.Engine.EventCount(),
	})
}
