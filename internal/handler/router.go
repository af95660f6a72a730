package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netfluenz/netfluenz-api/internal/metrics"
	"github.com/netfluenz/netfluenz-api/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier           middleware.CredentialVerifier
	RoleFinder         middleware.RoleFinder
	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string
	Logger             *slog.Logger

	// メトリクス（Gathererがnilの場合/metricsは公開しない）
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// サービス
	ProfileService    ProfileServiceInterface
	ModerationService ModerationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェア:
//
//	RequestID → Logging → Recovery → SecurityHeaders → Metrics → CORS
//
// /api/users 配下:
//
//	BearerAuth → RateLimit(General) [→ RoleGate [→ RateLimit(Moderation)]]
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var denied middleware.AccessDeniedRecorder
	if deps.Metrics != nil {
		denied = deps.Metrics
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	profileHandler := NewProfileHandler(deps.ProfileService)
	moderationHandler := NewModerationHandler(deps.ModerationService)

	// --- 認証不要のルート ---
	r.Get("/api/health", Health)
	r.Get("/api", Root)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	r.Route("/api/users", func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Verifier, denied))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/me", profileHandler.GetMe)
		r.Put("/me", profileHandler.UpdateMe)

		// 管理者のみ
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRoleGateMiddleware(deps.RoleFinder, denied))

			r.Get("/pending", moderationHandler.ListPending)
			r.Get("/all", moderationHandler.ListAll)
			r.Get("/recycled", moderationHandler.ListRecycled)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(deps.RateLimiter.ModerationMiddleware())
				r.Post("/approve", moderationHandler.Approve)
				r.Post("/reject", moderationHandler.Reject)
				r.Post("/restore", moderationHandler.Restore)
			})
		})
	})

	return r
}
