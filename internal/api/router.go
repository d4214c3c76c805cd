package api

import (
	"context"
	"net/http"
	"time"

	chefHandler "smart-kitchen/internal/api/handlers/chef"
	"smart-kitchen/internal/api/handlers/health"
	"smart-kitchen/internal/api/handlers/pantry"
	"smart-kitchen/internal/api/middleware"
	aiservice "smart-kitchen/internal/core/ai/service"
	chefcore "smart-kitchen/internal/core/chef"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求超時需涵蓋模型呼叫與一次重試
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (10MB)，圖片以 base64 上傳
	maxBodySize = 10 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, chefSvc *chefcore.Service, aiSvc *aiservice.Service, store inventory.Store) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
			})
		}
	})

	// 健康檢查路由
	router.GET("/health", health.Handler(cfg, aiSvc))
	router.GET("/ready", health.Readiness(store))
	router.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	groceryHandler := pantry.NewGroceryHandler(store)
	shoppingHandler := pantry.NewShoppingHandler(store)
	recipeHandler := chefHandler.NewRecipeHandler(chefSvc, store)
	billHandler := chefHandler.NewBillHandler(chefSvc)

	// API 路由組，所有資料操作需表明使用者身分
	api := router.Group("/api/v1")
	api.Use(middleware.Identity())
	{
		groceries := api.Group("/groceries")
		{
			groceries.GET("", groceryHandler.List)
			groceries.POST("", groceryHandler.Create)
			groceries.GET("/categories", groceryHandler.Categories)
			groceries.GET("/warnings", recipeHandler.Warnings)
			groceries.GET("/:id", groceryHandler.Get)
			groceries.PUT("/:id", groceryHandler.Update)
			groceries.DELETE("/:id", groceryHandler.Delete)
		}

		shopping := api.Group("/shopping-list")
		{
			shopping.GET("", shoppingHandler.List)
			shopping.POST("", shoppingHandler.Add)
			shopping.DELETE("/:id", shoppingHandler.Remove)
		}

		recipes := api.Group("/recipes")
		{
			// 生成類端點套用去重與限流，避免重複觸發模型呼叫
			generate := recipes.Group("")
			generate.Use(middleware.Deduplication(cfg))
			if cfg.RateLimit.Enabled {
				generate.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
			}
			{
				generate.POST("/generate", recipeHandler.Generate)
				generate.POST("/refine", recipeHandler.Refine)
			}

			recipes.POST("", recipeHandler.Save)
			recipes.GET("", recipeHandler.List)
			recipes.GET("/:id", recipeHandler.Get)
			recipes.DELETE("/:id", recipeHandler.Delete)
			recipes.GET("/:id/deduction", recipeHandler.DeductionPreview)
			recipes.POST("/:id/cook", recipeHandler.Cook)
		}

		bills := api.Group("/bills")
		{
			extract := bills.Group("")
			extract.Use(middleware.Deduplication(cfg))
			{
				extract.POST("/extract", billHandler.Extract)
				extract.POST("/analyze-food", billHandler.AnalyzeFood)
			}
			bills.POST("/confirm", billHandler.Confirm)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)
	return router
}
