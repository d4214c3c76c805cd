package health

import (
	"net/http"
	"runtime"
	"time"

	aiservice "smart-kitchen/internal/core/ai/service"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     map[string]interface{} `json:"cache"`
}

// Handler 健康檢查處理器
func Handler(cfg *config.Config, ai *aiservice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		c.JSON(http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   cfg.App.Version,
			Runtime: map[string]interface{}{
				"goroutines": runtime.NumGoroutine(),
				"memory": map[string]interface{}{
					"alloc":  m.Alloc,
					"sys":    m.Sys,
					"num_gc": m.NumGC,
				},
			},
			Cache: ai.Stats(),
		})
	}
}

// Readiness 就緒探測，以一次輕量查詢確認儲存層可用
func Readiness(store inventory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := store.ListGroceries(c.Request.Context(), 0, ""); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
