package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-kitchen/internal/api"
	"smart-kitchen/internal/core/ai/cache"
	"smart-kitchen/internal/core/ai/gemini"
	aiservice "smart-kitchen/internal/core/ai/service"
	chefcore "smart-kitchen/internal/core/chef"
	"smart-kitchen/internal/core/image"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 初始化儲存層
	store, err := newStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	// 初始化快取
	cacheManager, err := cache.NewManager(&cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache manager", zap.Error(err))
	}
	defer cacheManager.Close()

	// 初始化模型客戶端與服務
	geminiClient := gemini.NewClient(&cfg.Gemini)
	defer geminiClient.Close()
	aiSvc := aiservice.NewService(cfg, geminiClient, cacheManager)
	imageSvc := image.NewService(cfg.Image.MaxSizeBytes)
	chefSvc := chefcore.NewService(aiSvc, imageSvc, store)

	// 設置路由
	router := api.SetupRouter(cfg, chefSvc, aiSvc, store)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.String("database_driver", cfg.Database.Driver),
			zap.String("gemini_model", cfg.Gemini.Model),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}

// newStore 依設定建立儲存層
func newStore(cfg *config.Config) (inventory.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return inventory.NewPostgresStore(cfg.Database.DSN)
	default:
		return inventory.NewMemoryStore(), nil
	}
}
