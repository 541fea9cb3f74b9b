package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// CachePinger はキャッシュの疎通確認に必要なインターフェース。
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ヘルスチェック依存
	HealthChecker HealthChecker
	CachePinger   CachePinger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	SessionSigner     *middleware.CookieSigner
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	MetricsRecorder   middleware.HTTPStatusRecorder
	MetricsGatherer   prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// タスク
	TaskService TaskServiceInterface

	// AI提案
	SuggestionService SuggestionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery, SecurityHeaders, CORS, Logging, Metrics, Session, CSRF, RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェック、メトリクスはミドルウェアチェーンの外に配置する。
// ページルート（/、/dashboard）はセッションガードでリダイレクト制御する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	taskHandler := NewTaskHandler(deps.TaskService)
	suggestionHandler := NewSuggestionHandler(deps.SuggestionService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.HealthChecker, deps.CachePinger))

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- ページルート（セッションガードでリダイレクト制御）---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionGuard(deps.SessionFinder, deps.SessionSigner, middleware.DefaultGuardConfig()))
		r.Get("/", landingPage)
		r.Get("/dashboard", dashboardPage)
	})

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.SessionSigner))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// CSRFトークン取得
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
			})
		})

		// AI提案（提案専用レート制限を追加）
		r.With(deps.RateLimiter.AIMiddleware()).Post("/api/ai/suggestions", suggestionHandler.Suggest)
	})

	return r
}

// newHealthHandler はDBとキャッシュの疎通を確認するヘルスチェックハンドラーを返す。
// キャッシュはベストエフォート扱いのため、疎通が取れなくてもdegradedとして200を返す。
func newHealthHandler(db HealthChecker, cache CachePinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status":   "unavailable",
					"database": "down",
				})
				return
			}
		}

		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["cache"] = "down"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// landingPage は未認証ユーザー向けのランディングページ。
func landingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!DOCTYPE html><html><head><title>Taskman</title></head><body><h1>Taskman</h1><p><a href=\"/auth/google/login\">Sign in with Google</a></p></body></html>"))
}

// dashboardPage は認証済みユーザー向けのダッシュボードページ。
func dashboardPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!DOCTYPE html><html><head><title>Taskman - Dashboard</title></head><body><h1>Dashboard</h1><div id=\"app\"></div></body></html>"))
}
