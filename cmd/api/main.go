// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sap/internal/auth"
	"github.com/yourusername/sap/internal/config"
	"github.com/yourusername/sap/internal/database"
	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/records"
	"github.com/yourusername/sap/internal/session"
	"github.com/yourusername/sap/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	rdb, err := setupRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	deps, err := newDependencies(cfg, db, rdb, logger)
	if err != nil {
		log.Fatalf("Failed to initialise services: %v", err)
	}

	router, err := setupRouter(cfg, deps)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s, db: %s)", addr, cfg.GinMode, cfg.DatabaseDriver)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sap-api",
		"version": "0.1.0",
	})
}

// setupRouter はミドルウェアとルーティングを配線したルーターを返します。
func setupRouter(cfg *config.Config, deps *dependencies) (*gin.Engine, error) {
	// デフォルトミドルウェア: Logger, Recovery
	router := gin.Default()
	router.SetHTMLTemplate(web.Templates())

	secret, err := sessionSecret(cfg, deps.logger)
	if err != nil {
		return nil, err
	}

	// ブラウザ側セッション（セッション参照・CSRFトークン・フラッシュ）は署名付きクッキーに保存
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   deps.sessions.MaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(session.CookieName, store))

	if cfg.CORSAllowedOrigins != "" {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			auth.CSRFHeader,
		}
		corsConfig.ExposeHeaders = []string{auth.CSRFHeader}
		router.Use(cors.New(corsConfig))
	}

	setupRoutes(router, deps)
	return router, nil
}

// setupRoutes は画面と認証周りの配線を行います。
func setupRoutes(router *gin.Engine, deps *dependencies) {
	router.GET("/health", handleHealth)

	h := deps.authHandler

	// 状態を変更するリクエストはすべて CSRF 検証を通す（GET などの安全なメソッドは素通り）
	forms := router.Group("", auth.VerifyCSRF(deps.logger))
	{
		forms.GET("/", h.Index)
		forms.GET("/login", h.LoginPage)
		forms.POST("/login", h.Login)
		forms.GET("/register", h.RegisterPage)
		forms.POST("/register", h.Register)

		protected := forms.Group("")
		protected.Use(deps.sessions.RequireLogin(deps.logger))
		{
			protected.GET("/home", records.HomeHandler(deps.recipes, deps.logger))
			// GET はリンクからのログアウト用で、CSRF 検証の対象外
			protected.GET("/logout", h.Logout)
			protected.POST("/logout", h.Logout)
		}
	}
}
