package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookshelf/internal/metrics"
	"github.com/hitoshi/bookshelf/internal/middleware"
	"github.com/hitoshi/bookshelf/internal/model"
)

// healthCheckTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はヘルスチェックで疎通を確認する対象。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenVerifier     middleware.TokenVerifier
	Metrics           metrics.MetricsCollector

	// 運用エンドポイント。nilの場合は登録しない
	MetricsHandler http.Handler
	Health         HealthChecker

	AuthService    AuthServiceInterface
	CatalogService CatalogServiceInterface
	BorrowService  BorrowServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → OptionalAuth → RateLimit(General)
//
// OptionalAuthが有効なトークンのクレームを注入するため、API全般のレート制限は
// 認証済みならユーザー単位、未認証ならIP単位になる。
// 登録・ログインにはIP単位のレート制限を追加し、保護ルートにはAuth（必要に応じてRequireRole）を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ROUTE_NOT_FOUND",
			Message:  "Route not found",
			Category: "system",
			Action:   "リクエストのパスを確認してください。",
		})
	})

	// --- 運用エンドポイント（レート制限なし） ---
	if deps.Health != nil {
		r.Get("/health", healthHandler(deps.Health))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	userHandler := NewUserHandler(deps.AuthService)
	bookHandler := NewBookHandler(deps.CatalogService)
	borrowHandler := NewBorrowHandler(deps.BorrowService)

	identify := middleware.NewOptionalAuthMiddleware(deps.TokenVerifier)
	authenticate := middleware.NewAuthMiddleware(deps.TokenVerifier)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(identify)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 利用者登録・ログイン（ログイン専用レート制限を追加）
		r.Route("/users", func(r chi.Router) {
			r.Use(deps.RateLimiter.LoginMiddleware())
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		// 蔵書
		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Get("/{id}", bookHandler.GetBook)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)
				r.Post("/", bookHandler.CreateBook)
				r.Put("/{id}", bookHandler.UpdateBook)
				r.Delete("/{id}", bookHandler.DeleteBook)
			})
		})

		// 貸出・返却
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/borrow", borrowHandler.Borrow)
			r.Post("/return", borrowHandler.Return)
			r.Get("/borrows", borrowHandler.ListBorrows)
		})
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler はDBへの疎通を確認するハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
