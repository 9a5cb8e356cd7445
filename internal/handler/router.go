package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/golazo/internal/metrics"
	"github.com/hitoshi/golazo/internal/middleware"
)

// RouterConfig はルーター組み立てに必要な依存の束。
type RouterConfig struct {
	Matches MatchProvider
	Forum   ForumServiceInterface
	Profile UserProfileService

	Verifier middleware.TokenVerifier
	Logger   *slog.Logger

	// Collector はnilでもよい（メトリクスを記録しない）。
	Collector *metrics.Collector

	AllowedOrigin string
}

// NewRouter はAPI全体のルーティングを設定したchi.Routerを返す。
//
// ミドルウェアは recovery → request-ID → CORS → logging の順で全ルートに適用し、
// /health 以外のすべてのAPIルートを認証ミドルウェアのグループ配下に置く。
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	var authRecorder metrics.AuthRecorder
	var statusRecorder middleware.HTTPStatusRecorder
	if cfg.Collector != nil {
		authRecorder = cfg.Collector
		statusRecorder = cfg.Collector
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewCORSMiddleware(cfg.AllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger, statusRecorder))

	// ヘルスチェックのみ認証不要
	r.Get("/health", handleHealth)

	matchHandler := NewMatchHandler(cfg.Matches)
	forumHandler := NewForumHandler(cfg.Forum)
	userHandler := NewUserHandler(cfg.Profile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(cfg.Verifier, authRecorder))

		r.Get("/matches/live", matchHandler.ListLiveMatches)
		r.Get("/matches/today", matchHandler.ListTodaysMatches)
		r.Get("/matches/date/{date}", matchHandler.ListMatchesByDate)
		r.Get("/standings/{competitionId}", matchHandler.GetStandings)

		r.Post("/forum/post", forumHandler.CreatePost)
		r.Post("/forum/post/{postId}/comment", forumHandler.AddComment)

		r.Get("/user/profile", userHandler.GetProfile)
		r.Patch("/user/profile", userHandler.UpdateProfile)
	})

	return r
}

// handleHealth はヘルスチェックに応答する。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}
