// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Felmeta-M/task-management-system/internal/auth"
	"github.com/Felmeta-M/task-management-system/internal/config"
	"github.com/Felmeta-M/task-management-system/internal/storage"
	"github.com/Felmeta-M/task-management-system/internal/task"
)

func main() {
	// 設定の読み込み（JWT_SECRET 欠落はここで致命エラーになる）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベース接続とスキーマ適用
	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := storage.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migration: %v", err)
	}

	userStore := storage.NewUserStore(db)
	taskStore := storage.NewTaskStore(db)

	// 認証まわりの組み立て
	codec := auth.NewTokenCodec(cfg.JWTSecret)
	authManager := auth.NewManager(codec, userStore, cfg.IsRelease())

	// 期限リマインダーのワーカーを起動
	reminderManager, err := setupReminders(cfg, taskStore)
	if err != nil {
		log.Fatalf("Failed to setup reminders: %v", err)
	}
	reminderManager.StartWorkers()

	taskService := task.NewService(taskStore, reminderManager, log.Default())

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	router.Use(cors.New(corsConfig))

	// ルートゲート: すべてのページ遷移はここを通ってから各ハンドラーに届く
	gate := auth.NewGate(authManager)
	router.Use(gate.Middleware())

	// ルーティングの設定
	setupRoutes(router, cfg, authManager, taskService, reminderManager)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "task-management-api",
		"version": "1.0.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authManager *auth.Manager,
	taskService *task.Service,
	reminderManager reminderSource,
) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authManager.Login)
			// ログアウトはセッションが無くても成功する（冪等）ため保護しない
			authRoutes.POST("/logout", authManager.Logout)
			authRoutes.GET("/me", authManager.RequireLogin(), authManager.Me)
		}

		// ゲートは /api/ を素通しするため、データアクセスはここで必ず再検証する
		protected := api.Group("")
		protected.Use(authManager.RequireLogin())
		{
			protected.GET("/tasks", task.ListHandler(taskService))
			protected.POST("/tasks", task.CreateHandler(taskService))
			protected.GET("/tasks/:id", task.GetHandler(taskService))
			protected.PUT("/tasks/:id", task.UpdateHandler(taskService))
			protected.DELETE("/tasks/:id", task.DeleteHandler(taskService))

			protected.GET("/reminders", remindersHandler(reminderManager))
		}
	}

	setupPages(router, cfg)
}

// setupPages はゲート通過後のページ配信を設定します。
// UI 本体はビルド済みフロントエンドに任せ、ここでは SPA のシェルを返すだけです。
func setupPages(router *gin.Engine, cfg *config.Config) {
	if cfg.FrontendDistDir == "" {
		return
	}

	assetsDir := filepath.Join(cfg.FrontendDistDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		router.Static("/assets", assetsDir)
	}

	indexPath := filepath.Join(cfg.FrontendDistDir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "指定されたリソースは存在しません",
			})
			return
		}
		c.File(indexPath)
	})
}
